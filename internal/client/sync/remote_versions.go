package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmined/scriptsync/internal/scriptsdk"
)

// RemoteVersionSource reports the version map currently published by the origin
type RemoteVersionSource interface {
	FetchVersions(ctx context.Context) (VersionMap, error)
}

type versionsGetter interface {
	GetVersions(ctx context.Context) (map[string]int64, error)
}

var _ versionsGetter = (*scriptsdk.SDK)(nil)

// SDKVersionSource fetches the version document and drops reserved and ignored names
type SDKVersionSource struct {
	client versionsGetter
	ignore *SyncIgnoreList
}

func NewRemoteVersionSource(client versionsGetter, ignore *SyncIgnoreList) *SDKVersionSource {
	return &SDKVersionSource{client: client, ignore: ignore}
}

func (r *SDKVersionSource) FetchVersions(ctx context.Context) (VersionMap, error) {
	raw, err := r.client.GetVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteVersions, err)
	}

	versions := make(VersionMap, len(raw))
	for name, version := range raw {
		if IsReserved(name) {
			slog.Debug("remote versions drop reserved", "name", name)
			continue
		}
		if r.ignore.ShouldIgnore(name) {
			slog.Debug("remote versions drop ignored", "name", name)
			continue
		}
		versions[name] = version
	}

	return versions, nil
}
