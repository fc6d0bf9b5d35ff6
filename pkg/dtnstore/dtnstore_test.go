package dtnstore_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/pkg/dtnstore"
	"github.com/iamNilotpal/dtnstore/pkg/options"
	"github.com/stretchr/testify/require"
)

func TestInstance_PushPopRemove_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	inst, err := dtnstore.NewInstance(
		"dtnstore-test",
		options.WithDataDir(dir),
		options.WithStoreFilePaths(filepath.Join(dir, "disk-0"), filepath.Join(dir, "disk-1")),
		options.WithSegmentSize(4096),
		options.WithTotalCapacityBytes(2*256*1024),
		options.WithReadCacheDepth(10),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })

	dest := bundleid.EID{NodeID: 1, ServiceID: 1}
	payload := []byte("round trip through the public facade")

	session, err := inst.Push(dtnstore.PrimaryBlockInfo{DestEID: dest, Priority: bundleid.PriorityNormal, AbsExpiration: 1000}, uint64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, inst.PushAllSegments(session, 1, payload))

	popSession, size, ok := inst.PopTop([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, uint64(len(payload)), size)

	var got []byte
	buf := make([]byte, 4096)
	for {
		n, err := inst.TopSegment(popSession, buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	require.Equal(t, payload, got)

	require.NoError(t, inst.RemoveReadBundle(1))

	snap := inst.Telemetry()
	require.Equal(t, 0, snap.BundlesInCatalog)
}

func TestInstance_ReturnTop_MakesBundlePopAgain(t *testing.T) {
	dir := t.TempDir()

	inst, err := dtnstore.NewInstance(
		"dtnstore-test",
		options.WithDataDir(dir),
		options.WithStoreFilePaths(filepath.Join(dir, "disk-0")),
		options.WithSegmentSize(4096),
		options.WithTotalCapacityBytes(256*1024),
		options.WithReadCacheDepth(10),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = inst.Close() })

	dest := bundleid.EID{NodeID: 9, ServiceID: 1}
	payload := []byte("not yet delivered")

	session, err := inst.Push(dtnstore.PrimaryBlockInfo{DestEID: dest, Priority: bundleid.PriorityBulk, AbsExpiration: 100}, uint64(len(payload)))
	require.NoError(t, err)
	require.NoError(t, inst.PushAllSegments(session, 42, payload))

	popSession, _, ok := inst.PopTop([]bundleid.EID{dest})
	require.True(t, ok)
	inst.ReturnTop(popSession)

	_, _, ok = inst.PopTop([]bundleid.EID{dest})
	require.True(t, ok, "returned bundle must be poppable again")
}
