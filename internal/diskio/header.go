// Package diskio moves segment-sized buffers between the Store and the
// N backing files that make up the bundle storage engine's disk layout,
// one worker goroutine per file, per SPEC_FULL.md §4.3.
package diskio

import "encoding/binary"

// TombstoneSize marks a head segment as deleted when written as its
// bundleSizeBytes field, per spec.md §3.
const TombstoneSize = ^uint64(0)

// NoNextSegment is the ALL_ONES sentinel for the last segment in a chain.
const NoNextSegment = ^uint64(0)

// NonHeadMarker is written into bundleSizeBytes on every non-head segment
// of a chain. It is numerically identical to TombstoneSize — the only
// difference is position: UINT64_MAX on the head segment means deleted,
// UINT64_MAX anywhere else just means "not a head," per spec.md §3.
const NonHeadMarker = TombstoneSize

// HeaderSize is the fixed on-disk width of a segment header: two u64
// fields plus nextSegmentId stored at u64 width regardless of the
// configured SegmentIDBits, padded to 32 bytes total.
const HeaderSize = 32

// Header is the decoded form of a segment's 32-byte on-disk header.
type Header struct {
	BundleSizeBytes uint64
	CustodyId       uint64
	NextSegmentId   uint64
}

// IsTombstone reports whether this header marks its segment deleted.
func (h Header) IsTombstone() bool {
	return h.BundleSizeBytes == TombstoneSize
}

// IsLast reports whether this segment is the last in its chain.
func (h Header) IsLast() bool {
	return h.NextSegmentId == NoNextSegment
}

// Encode writes the header into the first HeaderSize bytes of buf,
// little-endian, per spec.md §3.
func Encode(buf []byte, h Header) {
	binary.LittleEndian.PutUint64(buf[0:8], h.BundleSizeBytes)
	binary.LittleEndian.PutUint64(buf[8:16], h.CustodyId)
	binary.LittleEndian.PutUint64(buf[16:24], h.NextSegmentId)
}

// Decode reads a header out of the first HeaderSize bytes of buf.
func Decode(buf []byte) Header {
	return Header{
		BundleSizeBytes: binary.LittleEndian.Uint64(buf[0:8]),
		CustodyId:       binary.LittleEndian.Uint64(buf[8:16]),
		NextSegmentId:   binary.LittleEndian.Uint64(buf[16:24]),
	}
}

// EncodeTombstone writes a tombstone header into buf: bundleSizeBytes is
// all-ones, custodyId is the given id, and nextSegmentId is NoNextSegment.
func EncodeTombstone(buf []byte, custodyId uint64) {
	Encode(buf, Header{BundleSizeBytes: TombstoneSize, CustodyId: custodyId, NextSegmentId: NoNextSegment})
}
