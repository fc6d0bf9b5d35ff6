package diskio

import (
	"encoding/binary"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
)

// PrimaryMetaSize is the fixed width of the recovery record kept
// alongside a chain's head segment in its disk's separate meta region. It
// duplicates, in a restore-friendly binary layout, exactly the
// CatalogEntry fields Restore cannot otherwise recover from segment
// headers alone (destination, priority, expiration, sequence, custody
// flag, UUID). The meta region sits past the end of every disk's
// segment-payload region, so a recovery record never counts against any
// segment's caller-visible payload capacity.
const PrimaryMetaSize = 96

// PrimaryMeta is the decoded form of a head segment's recovery record.
type PrimaryMeta struct {
	DestNodeID                     uint64
	DestServiceID                  uint64
	PackedAbsExpirationAndPriority uint64
	Sequence                       uint64
	HasCustody                     bool
	UUID                           bundleid.UUID
}

// EncodePrimaryMeta writes m into the first PrimaryMetaSize bytes of buf.
func EncodePrimaryMeta(buf []byte, m PrimaryMeta) {
	binary.LittleEndian.PutUint64(buf[0:8], m.DestNodeID)
	binary.LittleEndian.PutUint64(buf[8:16], m.DestServiceID)
	binary.LittleEndian.PutUint64(buf[16:24], m.PackedAbsExpirationAndPriority)
	binary.LittleEndian.PutUint64(buf[24:32], m.Sequence)

	if m.HasCustody {
		buf[32] = 1
	} else {
		buf[32] = 0
	}
	if m.UUID.Fragmented {
		buf[33] = 1
	} else {
		buf[33] = 0
	}

	binary.LittleEndian.PutUint64(buf[40:48], m.UUID.CreationSeconds)
	binary.LittleEndian.PutUint64(buf[48:56], m.UUID.Sequence)
	binary.LittleEndian.PutUint64(buf[56:64], m.UUID.SrcNodeID)
	binary.LittleEndian.PutUint64(buf[64:72], m.UUID.SrcServiceID)
	binary.LittleEndian.PutUint64(buf[72:80], m.UUID.FragmentOffset)
	binary.LittleEndian.PutUint64(buf[80:88], m.UUID.DataLength)
}

// RequiredSegments returns how many segmentSize-sized segments a chain
// needs to hold bundleSizeBytes. Every segment, including the head,
// carries the same payloadPerSegment = segmentSize - HeaderSize bytes of
// caller-visible capacity — the head's recovery record lives in its
// disk's separate meta region and never shrinks this figure. Shared by
// Store.Push (to allocate the chain) and Restore (to validate a
// recovered chain's length).
func RequiredSegments(bundleSizeBytes, segmentSize uint64) int {
	payloadPerSegment := segmentSize - HeaderSize
	if bundleSizeBytes == 0 {
		return 1
	}
	return int((bundleSizeBytes + payloadPerSegment - 1) / payloadPerSegment)
}

// DecodePrimaryMeta reads a recovery record out of the first
// PrimaryMetaSize bytes of buf.
func DecodePrimaryMeta(buf []byte) PrimaryMeta {
	m := PrimaryMeta{
		DestNodeID:                     binary.LittleEndian.Uint64(buf[0:8]),
		DestServiceID:                  binary.LittleEndian.Uint64(buf[8:16]),
		PackedAbsExpirationAndPriority: binary.LittleEndian.Uint64(buf[16:24]),
		Sequence:                       binary.LittleEndian.Uint64(buf[24:32]),
		HasCustody:                     buf[32] == 1,
	}

	m.UUID = bundleid.UUID{
		Fragmented:      buf[33] == 1,
		CreationSeconds: binary.LittleEndian.Uint64(buf[40:48]),
		Sequence:        binary.LittleEndian.Uint64(buf[48:56]),
		SrcNodeID:       binary.LittleEndian.Uint64(buf[56:64]),
		SrcServiceID:    binary.LittleEndian.Uint64(buf[64:72]),
		FragmentOffset:  binary.LittleEndian.Uint64(buf[72:80]),
		DataLength:      binary.LittleEndian.Uint64(buf[80:88]),
	}
	return m
}
