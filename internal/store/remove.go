package store

import (
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/pkg/errors"
)

// RemoveReadBundle retires a bundle that has been fully forwarded:
// schedules a tombstone write to its head segment, frees its segment
// chain back to the allocator, and erases it from the Catalog. Removing
// a custody id that isn't present is not an error.
func (s *Store) RemoveReadBundle(custodyId bundleid.CustodyId) error {
	s.mu.Lock()
	entry, ok := s.cat.GetEntry(custodyId)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	if len(entry.SegmentIdChain) > 0 {
		tomb := make([]byte, s.opts.SegmentSize)
		diskio.EncodeTombstone(tomb, uint64(custodyId))
		if err := s.disk.WriteSegment(entry.SegmentIdChain[0], tomb); err != nil {
			return errors.NewEngineError(err, errors.ErrorCodeShortIO, "failed to write tombstone").
				WithCustodyID(uint64(custodyId)).
				WithSegmentID(entry.SegmentIdChain[0]).
				WithOperation("RemoveReadBundle")
		}
	}

	s.alloc.Free(entry.SegmentIdChain)

	s.mu.Lock()
	s.cat.RemoveCompletely(custodyId)
	s.mu.Unlock()
	return nil
}

// Close shuts down the disk I/O manager, draining and joining every
// per-disk worker.
func (s *Store) Close() error {
	return s.disk.Close()
}
