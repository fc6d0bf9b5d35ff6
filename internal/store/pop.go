package store

import (
	"io"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/pkg/errors"
)

// PopTop asks the Catalog for the best bundle among availableDests and,
// if one is found, initializes a read-ahead session over its segment
// chain. Returns (nil, 0, false) if nothing is eligible.
func (s *Store) PopTop(availableDests []bundleid.EID) (*PopSession, uint64, bool) {
	s.mu.Lock()
	custodyId, entry, ok := s.cat.PopBest(availableDests)
	s.mu.Unlock()
	if !ok {
		return nil, 0, false
	}

	cacheDepth := s.opts.ReadCacheDepth
	if cacheDepth <= 0 || cacheDepth > len(entry.SegmentIdChain) {
		cacheDepth = len(entry.SegmentIdChain)
	}

	session := &PopSession{
		custodyId:   custodyId,
		entry:       entry,
		chain:       entry.SegmentIdChain,
		slots:       make([]*segmentSlot, len(entry.SegmentIdChain)),
		cacheDepth:  cacheDepth,
		disk:        s.disk,
		segmentSize: s.opts.SegmentSize,
	}
	session.prefetch(0)
	return session, entry.BundleSizeBytes, true
}

// prefetch launches a fetch goroutine for every not-yet-scheduled segment
// in [from, from+cacheDepth), per spec.md §4.3's read-ahead window.
func (p *PopSession) prefetch(from int) {
	limit := from + p.cacheDepth
	if limit > len(p.chain) {
		limit = len(p.chain)
	}

	for i := from; i < limit; i++ {
		if p.slots[i] != nil {
			continue
		}
		slot := &segmentSlot{done: make(chan struct{})}
		p.slots[i] = slot

		go func(idx int, segmentId uint64) {
			buf := make([]byte, p.segmentSize)
			n, err := p.disk.ReadSegment(segmentId, buf)
			slot.buf, slot.n, slot.err = buf, n, err
			close(slot.done)
		}(i, p.chain[i])
	}
}

// TopSegment blocks until the next logical segment's read completes,
// validates its on-disk header against the catalog entry, copies its
// payload into buf, and advances the session. Returns io.EOF once every
// segment in the chain has been returned.
func (s *Store) TopSegment(session *PopSession, buf []byte) (int, error) {
	if session.nextLogical >= len(session.chain) {
		return 0, io.EOF
	}

	idx := session.nextLogical
	slot := session.slots[idx]
	<-slot.done
	if slot.err != nil {
		session.nextLogical++
		session.prefetch(session.nextLogical)
		return 0, slot.err
	}

	hdr := diskio.Decode(slot.buf)
	mismatched := hdr.CustodyId != uint64(session.custodyId)
	if idx == 0 {
		mismatched = mismatched || hdr.BundleSizeBytes != session.entry.BundleSizeBytes
	}
	if mismatched {
		s.log.Errorw(
			"On-disk segment header disagrees with catalog",
			"custodyId", session.custodyId, "segmentIndex", idx, "segmentId", session.chain[idx],
		)
		session.nextLogical++
		session.prefetch(session.nextLogical)
		return 0, errors.NewBadSegmentHeaderError(session.chain[idx], uint64(session.custodyId))
	}

	offset, length := segmentPayloadWindow(session, idx)
	n := copy(buf, slot.buf[offset:offset+length])
	session.nextLogical++
	session.prefetch(session.nextLogical)
	return n, nil
}

// segmentPayloadWindow returns where the caller's payload bytes start
// within a segment's buffer and how many of them are meaningful. Every
// segment, including the head, carries the same payloadPerSegment window
// right after its header — the head's recovery record lives in a
// separate meta region and never steals from this window.
func segmentPayloadWindow(session *PopSession, idx int) (offset uint64, length uint64) {
	perSegment := session.segmentSize - diskio.HeaderSize
	offset = diskio.HeaderSize

	if idx < len(session.chain)-1 {
		length = perSegment
		return offset, length
	}

	if session.entry.BundleSizeBytes == 0 {
		return offset, 0
	}
	remainder := session.entry.BundleSizeBytes % perSegment
	if remainder == 0 {
		length = perSegment
	} else {
		length = remainder
	}
	return offset, length
}

// ReturnTop reinserts the bundle this session was reading back into its
// awaiting-send bucket, preserving expiration order for a later pop.
func (s *Store) ReturnTop(session *PopSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cat.ReturnToAwaiting(session.custodyId, session.entry)
}
