package diskio

import (
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/dtnstore/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, numDisks int) *Manager {
	t.Helper()
	dir := t.TempDir()

	paths := make([]string, numDisks)
	for i := range paths {
		paths[i] = filepath.Join(dir, "disk-"+string(rune('0'+i)))
	}

	m, err := Open(&Config{
		FilePaths:    paths,
		BytesPerDisk: 1 << 20,
		SegmentSize:  4096,
		RingDepth:    8,
		Logger:       logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

// TestWriteThenRead_SingleDisk implements spec.md §8 scenario S1: a
// single-disk round trip of one segment's bytes.
func TestWriteThenRead_SingleDisk(t *testing.T) {
	m := newTestManager(t, 1)

	buf := make([]byte, 4096)
	Encode(buf, Header{BundleSizeBytes: 100, CustodyId: 7, NextSegmentId: NoNextSegment})
	copy(buf[HeaderSize:], []byte("hello world"))

	require.NoError(t, m.WriteSegment(0, buf))

	readBuf := make([]byte, 4096)
	n, err := m.ReadSegment(0, readBuf)
	require.NoError(t, err)
	require.Equal(t, 4096, n)

	hdr := Decode(readBuf)
	require.Equal(t, uint64(100), hdr.BundleSizeBytes)
	require.Equal(t, uint64(7), hdr.CustodyId)
	require.Contains(t, string(readBuf[HeaderSize:]), "hello world")
}

// TestInterleavedSegments_MultiDisk implements spec.md §8 scenario S3:
// segments belonging to the same chain are distributed round-robin
// across disks, and each round trips independently.
func TestInterleavedSegments_MultiDisk(t *testing.T) {
	m := newTestManager(t, 3)

	for seg := uint64(0); seg < 6; seg++ {
		buf := make([]byte, 4096)
		Encode(buf, Header{BundleSizeBytes: 50, CustodyId: seg, NextSegmentId: NoNextSegment})
		require.NoError(t, m.WriteSegment(seg, buf))
	}

	for seg := uint64(0); seg < 6; seg++ {
		readBuf := make([]byte, 4096)
		n, err := m.ReadSegment(seg, readBuf)
		require.NoError(t, err)
		require.Equal(t, 4096, n)
		require.Equal(t, seg, Decode(readBuf).CustodyId)
	}
}

func TestTombstoneWrite(t *testing.T) {
	m := newTestManager(t, 1)

	buf := make([]byte, 4096)
	Encode(buf, Header{BundleSizeBytes: 100, CustodyId: 9, NextSegmentId: NoNextSegment})
	require.NoError(t, m.WriteSegment(0, buf))

	tomb := make([]byte, 4096)
	EncodeTombstone(tomb, 9)
	require.NoError(t, m.WriteSegment(0, tomb))

	readBuf := make([]byte, 4096)
	_, err := m.ReadSegment(0, readBuf)
	require.NoError(t, err)
	require.True(t, Decode(readBuf).IsTombstone())
}

// TestWriteThenReadMeta_DoesNotOverlapSegmentPayload verifies that a head
// segment's full payloadPerSegment window round-trips untouched by a
// meta write to the same segment id, confirming the meta region is a
// separate area of the backing file rather than a carve-out of segment
// capacity.
func TestWriteThenReadMeta_DoesNotOverlapSegmentPayload(t *testing.T) {
	m := newTestManager(t, 1)

	buf := make([]byte, 4096)
	Encode(buf, Header{BundleSizeBytes: 4064, CustodyId: 3, NextSegmentId: NoNextSegment})
	payload := make([]byte, 4064)
	for i := range payload {
		payload[i] = 0xAB
	}
	copy(buf[HeaderSize:], payload)
	require.NoError(t, m.WriteSegment(0, buf))

	meta := make([]byte, PrimaryMetaSize)
	for i := range meta {
		meta[i] = 0xCD
	}
	require.NoError(t, m.WriteMeta(0, meta))

	readBuf := make([]byte, 4096)
	n, err := m.ReadSegment(0, readBuf)
	require.NoError(t, err)
	require.Equal(t, 4096, n)
	require.Equal(t, payload, readBuf[HeaderSize:])

	readMeta := make([]byte, PrimaryMetaSize)
	n, err = m.ReadMeta(0, readMeta)
	require.NoError(t, err)
	require.Equal(t, PrimaryMetaSize, n)
	require.Equal(t, meta, readMeta)
}

func TestClose_Idempotent(t *testing.T) {
	m := newTestManager(t, 2)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestWriteAfterClose_Fails(t *testing.T) {
	m := newTestManager(t, 1)
	require.NoError(t, m.Close())

	err := m.WriteSegment(0, make([]byte, 4096))
	require.Error(t, err)
}
