package sync

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ReservedPrefix marks internal entries of a version document; they are never materialized as files
const ReservedPrefix = "_"

// VersionMap maps a published file name to its version indicator
type VersionMap map[string]int64

func IsReserved(name string) bool {
	return strings.HasPrefix(name, ReservedPrefix)
}

// Validate reports the first offending entry in key order
func (m VersionMap) Validate() error {
	for _, name := range m.Names() {
		switch {
		case name == "":
			return fmt.Errorf("%w: empty name", ErrInvalidEntry)
		case IsReserved(name):
			return fmt.Errorf("%w: reserved name %q", ErrInvalidEntry, name)
		case m[name] < 0:
			return fmt.Errorf("%w: negative version %d for %q", ErrInvalidEntry, m[name], name)
		}
	}
	return nil
}

// Names returns the keys in sorted order
func (m VersionMap) Names() []string {
	return slices.Sorted(maps.Keys(m))
}

func (m VersionMap) Clone() VersionMap {
	out := make(VersionMap, len(m))
	maps.Copy(out, m)
	return out
}

// Merge returns a copy of m with every entry of other applied on top
func (m VersionMap) Merge(other VersionMap) VersionMap {
	out := m.Clone()
	maps.Copy(out, other)
	return out
}
