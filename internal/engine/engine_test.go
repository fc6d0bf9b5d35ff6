package engine_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/engine"
	"github.com/iamNilotpal/dtnstore/internal/store"
	"github.com/iamNilotpal/dtnstore/pkg/logger"
	"github.com/iamNilotpal/dtnstore/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, dataDir string) *engine.Engine {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = dataDir
	opts.StoreFilePaths = []string{filepath.Join(dataDir, "disk-0"), filepath.Join(dataDir, "disk-1")}
	opts.SegmentSize = 4096
	opts.TotalCapacityBytes = 2 * 256 * 1024
	opts.ReadCacheDepth = 10

	eng, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestEngine_PushPopRemove_RoundTrip(t *testing.T) {
	eng := newTestEngine(t, t.TempDir())

	dest := bundleid.EID{NodeID: 7, ServiceID: 1}
	payload := []byte("a bundle pushed through the engine facade")

	session, err := eng.Push(store.PrimaryBlockInfo{DestEID: dest, Priority: bundleid.PriorityNormal, AbsExpiration: 9999}, uint64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, eng.PushAllSegments(session, 100, payload))

	popSession, size, ok := eng.PopTop([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, uint64(len(payload)), size)

	var got []byte
	buf := make([]byte, 4096)
	for {
		n, err := eng.TopSegment(popSession, buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, payload, got)

	require.NoError(t, eng.RemoveReadBundle(100))

	snap := eng.Telemetry()
	require.Equal(t, 0, snap.BundlesInCatalog)
}

func TestEngine_RestoreAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	eng := newTestEngine(t, dir)

	dest := bundleid.EID{NodeID: 3, ServiceID: 1}
	payload := []byte("bundle that must survive a restart")
	session, err := eng.Push(store.PrimaryBlockInfo{DestEID: dest, Priority: bundleid.PriorityExpedited, AbsExpiration: 5000}, uint64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, eng.PushAllSegments(session, 200, payload))
	require.NoError(t, eng.Close())

	opts := options.NewDefaultOptions()
	opts.DataDir = dir
	opts.StoreFilePaths = []string{filepath.Join(dir, "disk-0"), filepath.Join(dir, "disk-1")}
	opts.SegmentSize = 4096
	opts.TotalCapacityBytes = 2 * 256 * 1024
	opts.ReadCacheDepth = 10

	reopened, err := engine.New(&engine.Config{Options: &opts, Logger: logger.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	require.NotNil(t, reopened.RestoreResult())
	require.Equal(t, 1, reopened.RestoreResult().BundlesRestored)

	popSession, size, ok := reopened.PopTop([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, uint64(len(payload)), size)

	var got []byte
	buf := make([]byte, 4096)
	for {
		n, err := reopened.TopSegment(popSession, buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, payload, got)
}
