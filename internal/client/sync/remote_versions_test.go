package sync

import (
	"context"
	"testing"

	"github.com/openmined/scriptsync/internal/scriptsdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersionsGetter struct {
	versions map[string]int64
	err      error
}

func (f *fakeVersionsGetter) GetVersions(ctx context.Context) (map[string]int64, error) {
	return f.versions, f.err
}

func TestSDKVersionSource_FiltersReservedAndIgnored(t *testing.T) {
	ignore := NewSyncIgnoreList("", []string{"*.bak"})
	ignore.Load()

	source := NewRemoteVersionSource(&fakeVersionsGetter{versions: map[string]int64{
		"scripts/main.py": 10,
		"_meta":           99,
		"_":               1,
		"old.bak":         4,
		"notes_v2.txt":    2,
	}}, ignore)

	versions, err := source.FetchVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VersionMap{"scripts/main.py": 10, "notes_v2.txt": 2}, versions)
}

func TestSDKVersionSource_UnconfiguredDropsOnlyReserved(t *testing.T) {
	ignore := NewSyncIgnoreList("", nil)
	ignore.Load()

	source := NewRemoteVersionSource(&fakeVersionsGetter{versions: map[string]int64{
		"lib/helper.pyc":   3,
		"config/.DS_Store": 1,
		"main.py":          2,
		"_meta":            9,
	}}, ignore)

	versions, err := source.FetchVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, VersionMap{"lib/helper.pyc": 3, "config/.DS_Store": 1, "main.py": 2}, versions)
}

func TestSDKVersionSource_WrapsFailures(t *testing.T) {
	source := NewRemoteVersionSource(&fakeVersionsGetter{err: scriptsdk.ErrInvalidVersionMap}, nil)

	versions, err := source.FetchVersions(context.Background())
	assert.Nil(t, versions)
	assert.ErrorIs(t, err, ErrRemoteVersions)
	assert.ErrorIs(t, err, scriptsdk.ErrInvalidVersionMap)
}
