package sync

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
)

// SyncPlan is the set of remote names that need to be fetched
type SyncPlan = mapset.Set[string]

// Diff plans every remote name whose version is strictly greater than the local one.
// A name missing locally counts as version 0. Reserved names are never planned.
func Diff(local, remote VersionMap) SyncPlan {
	plan := mapset.NewThreadUnsafeSet[string]()
	for name, remoteVersion := range remote {
		if name == "" || IsReserved(name) {
			continue
		}
		if local[name] < remoteVersion {
			plan.Add(name)
		}
	}
	return plan
}

// fullPlan plans every non-reserved remote name regardless of its version
func fullPlan(remote VersionMap) SyncPlan {
	plan := mapset.NewThreadUnsafeSet[string]()
	for name := range remote {
		if name == "" || IsReserved(name) {
			continue
		}
		plan.Add(name)
	}
	return plan
}

// planOrder returns the plan in a stable order so scheduling and logs are reproducible
func planOrder(plan SyncPlan) []string {
	names := plan.ToSlice()
	slices.Sort(names)
	return names
}
