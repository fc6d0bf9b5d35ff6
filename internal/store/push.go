package store

import (
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/pkg/errors"
)

// PrimaryBlockInfo is the subset of a bundle's primary block the Store
// needs to catalog it, decoded by the caller (the convergence layer /
// ingress pipeline sits outside engine scope, per spec.md's Non-goals).
type PrimaryBlockInfo struct {
	DestEID       bundleid.EID
	Priority      int
	AbsExpiration uint64
	HasCustody    bool
	UUID          *bundleid.UUID
}

// Push computes the segment chain length required for bundleSizeBytes,
// allocates it, and returns a session ready to receive PushSegment calls.
// Returns an out-of-space error without any side effect if the allocator
// cannot satisfy the request.
func (s *Store) Push(primary PrimaryBlockInfo, bundleSizeBytes uint64) (*PushSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	required := diskio.RequiredSegments(bundleSizeBytes, s.opts.SegmentSize)

	chain, err := s.alloc.Allocate(required)
	if err != nil {
		return nil, err
	}

	entry := &catalog.CatalogEntry{
		BundleSizeBytes:                bundleSizeBytes,
		SegmentIdChain:                 chain,
		DestEID:                        primary.DestEID,
		PackedAbsExpirationAndPriority: bundleid.PackExpirationAndPriority(primary.AbsExpiration, primary.Priority),
		Sequence:                       s.NextSequence(),
		HasCustody:                     primary.HasCustody,
		UUID:                           primary.UUID,
	}

	return &PushSession{chain: chain, entry: entry}, nil
}

// PushSegment writes the payload for the next unwritten segment in
// session's chain. Every segment, including the head, gets the full
// payloadPerSegment capacity; the head segment's recovery record (the
// serialized primary block) is written separately into its disk's meta
// region so Restore can reconstruct this entry without shrinking any
// segment's caller-visible capacity. When this was the chain's last
// segment, the entry is cataloged — making it visible to PopBest — as
// the final step.
func (s *Store) PushSegment(session *PushSession, custodyId bundleid.CustodyId, payload []byte) error {
	if session.cursor >= len(session.chain) {
		return errors.NewEngineError(nil, errors.ErrorCodeBadSegmentHeader, "push session chain already fully written").
			WithCustodyID(uint64(custodyId)).WithOperation("PushSegment")
	}

	idx := session.cursor
	if idx > 0 && custodyId != session.custodyId {
		return errors.NewEngineError(nil, errors.ErrorCodeBadSegmentHeader, "custody id differs from the one written to the head segment").
			WithCustodyID(uint64(custodyId)).WithOperation("PushSegment")
	}
	payloadOffset := uint64(diskio.HeaderSize)
	maxLen := s.opts.PayloadPerSegment()
	if uint64(len(payload)) > maxLen {
		return errors.NewEngineError(nil, errors.ErrorCodeBadSegmentHeader, "payload exceeds segment capacity").
			WithCustodyID(uint64(custodyId)).WithOperation("PushSegment")
	}

	segmentId := session.chain[idx]

	bundleSizeField := diskio.NonHeadMarker
	if idx == 0 {
		bundleSizeField = session.entry.BundleSizeBytes
	}

	next := diskio.NoNextSegment
	if idx+1 < len(session.chain) {
		next = session.chain[idx+1]
	}

	buf := make([]byte, s.opts.SegmentSize)
	diskio.Encode(buf, diskio.Header{BundleSizeBytes: bundleSizeField, CustodyId: uint64(custodyId), NextSegmentId: next})
	copy(buf[payloadOffset:], payload)

	if idx == 0 {
		meta := diskio.PrimaryMeta{
			DestNodeID:                     session.entry.DestEID.NodeID,
			DestServiceID:                  session.entry.DestEID.ServiceID,
			PackedAbsExpirationAndPriority: session.entry.PackedAbsExpirationAndPriority,
			Sequence:                       session.entry.Sequence,
			HasCustody:                     session.entry.HasCustody,
		}
		if session.entry.UUID != nil {
			meta.UUID = *session.entry.UUID
		}
		metaBuf := make([]byte, diskio.PrimaryMetaSize)
		diskio.EncodePrimaryMeta(metaBuf, meta)
		if err := s.disk.WriteMeta(segmentId, metaBuf); err != nil {
			return err
		}
	}

	if err := s.disk.WriteSegment(segmentId, buf); err != nil {
		return err
	}
	session.cursor++
	session.custodyId = custodyId

	if session.cursor == len(session.chain) {
		s.mu.Lock()
		result := s.cat.CatalogIncomingBundle(custodyId, session.entry, s.policy)
		s.mu.Unlock()

		if !result.Inserted {
			return errors.NewEngineError(nil, errors.ErrorCodeBadSegmentHeader, "duplicate sequence rejected under BY_SEQUENCE policy").
				WithCustodyID(uint64(custodyId)).WithOperation("PushSegment")
		}
	}
	return nil
}

// PushAllSegments is a convenience wrapper that splits allBytes into
// uniform payloadPerSegment-sized chunks and writes them via PushSegment
// in order.
func (s *Store) PushAllSegments(session *PushSession, custodyId bundleid.CustodyId, allBytes []byte) error {
	perSegment := s.opts.PayloadPerSegment()

	offset := uint64(0)
	for {
		end := offset + perSegment
		if end > uint64(len(allBytes)) {
			end = uint64(len(allBytes))
		}
		if err := s.PushSegment(session, custodyId, allBytes[offset:end]); err != nil {
			return err
		}
		offset = end
		if offset >= uint64(len(allBytes)) {
			break
		}
	}
	return nil
}
