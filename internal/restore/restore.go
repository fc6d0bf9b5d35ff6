// Package restore reconstructs SegmentAllocator and Catalog state from
// the backing files on engine startup, per SPEC_FULL.md §4.5. It runs
// before any client or disk-worker goroutine begins normal operation,
// because it uses the allocator's non-thread-safe AllocateID/IsFree
// probes directly.
package restore

import (
	"github.com/iamNilotpal/dtnstore/internal/allocator"
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/pkg/errors"
	"go.uber.org/zap"
)

// Config holds the collaborators and geometry Restore needs to scan the
// backing files and rebuild in-memory state.
type Config struct {
	Allocator   *allocator.Allocator
	Catalog     *catalog.Catalog
	Disk        *diskio.Manager
	MaxSegments uint64
	SegmentSize uint64
	Logger      *zap.SugaredLogger
}

// Result summarizes what Restore found.
type Result struct {
	BundlesRestored int
	SegmentsClaimed uint64
	MaxSequenceSeen uint64
}

// Run scans every segment ID in ascending order. A segment already
// claimed (non-free) by an earlier chain walk is skipped. A free segment
// whose header marks it tombstoned or non-head is skipped. Otherwise it
// is treated as a chain head: the recovery record is decoded, the chain
// is walked via nextSegmentId, and on success every visited segment is
// claimed in the allocator and the bundle is cataloged under FIFO order,
// per spec.md §4.5.
func Run(config *Config) (*Result, error) {
	if config == nil || config.Allocator == nil || config.Catalog == nil || config.Disk == nil || config.SegmentSize == 0 {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "restore configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	result := &Result{}

	for segId := uint64(0); segId < config.MaxSegments; segId++ {
		if !config.Allocator.IsFree(segId) {
			continue
		}

		buf := make([]byte, config.SegmentSize)
		if _, err := config.Disk.ReadSegment(segId, buf); err != nil {
			return nil, errors.NewRestoreInconsistencyError(segId, "failed to read candidate head segment")
		}

		hdr := diskio.Decode(buf)
		if hdr.IsTombstone() {
			// Numerically identical to the non-head marker: either this
			// segment was deleted, or it was never a head to begin with.
			continue
		}

		chain, err := walkChain(config, segId, hdr)
		if err != nil {
			return nil, err
		}

		metaBuf := make([]byte, diskio.PrimaryMetaSize)
		if _, err := config.Disk.ReadMeta(segId, metaBuf); err != nil {
			return nil, errors.NewRestoreInconsistencyError(segId, "failed to read head segment's recovery record").
				WithCustodyID(hdr.CustodyId)
		}
		meta := diskio.DecodePrimaryMeta(metaBuf)

		for _, id := range chain {
			if err := config.Allocator.AllocateID(id); err != nil {
				return nil, errors.NewRestoreInconsistencyError(id, "segment already claimed by another chain").
					WithCustodyID(hdr.CustodyId)
			}
		}

		entry := &catalog.CatalogEntry{
			BundleSizeBytes:                hdr.BundleSizeBytes,
			SegmentIdChain:                 chain,
			DestEID:                        bundleid.EID{NodeID: meta.DestNodeID, ServiceID: meta.DestServiceID},
			PackedAbsExpirationAndPriority: meta.PackedAbsExpirationAndPriority,
			Sequence:                       meta.Sequence,
			HasCustody:                     meta.HasCustody,
		}
		if meta.HasCustody {
			uuid := meta.UUID
			entry.UUID = &uuid
		}

		config.Catalog.CatalogIncomingBundle(bundleid.CustodyId(hdr.CustodyId), entry, catalog.PolicyFIFO)

		result.BundlesRestored++
		result.SegmentsClaimed += uint64(len(chain))
		if meta.Sequence > result.MaxSequenceSeen {
			result.MaxSequenceSeen = meta.Sequence
		}
	}

	log.Infow("Restore scan complete", "bundlesRestored", result.BundlesRestored, "segmentsClaimed", result.SegmentsClaimed)
	return result, nil
}

// walkChain follows nextSegmentId from a head's header, validating that
// every visited segment is free and shares the head's custody id, and
// that the chain's length matches what bundleSizeBytes requires.
func walkChain(config *Config, headId uint64, head diskio.Header) ([]uint64, error) {
	chain := []uint64{headId}
	cur := head

	for !cur.IsLast() {
		nextId := cur.NextSegmentId
		if nextId >= config.MaxSegments || !config.Allocator.IsFree(nextId) {
			return nil, errors.NewRestoreInconsistencyError(nextId, "chain references an already-claimed or out-of-range segment").
				WithCustodyID(head.CustodyId)
		}

		buf := make([]byte, config.SegmentSize)
		if _, err := config.Disk.ReadSegment(nextId, buf); err != nil {
			return nil, errors.NewRestoreInconsistencyError(nextId, "failed to read chain segment").WithCustodyID(head.CustodyId)
		}

		nhdr := diskio.Decode(buf)
		if nhdr.CustodyId != head.CustodyId {
			return nil, errors.NewRestoreInconsistencyError(nextId, "custody id mismatch within chain").WithCustodyID(head.CustodyId)
		}

		chain = append(chain, nextId)
		cur = nhdr
	}

	expected := diskio.RequiredSegments(head.BundleSizeBytes, config.SegmentSize)
	if len(chain) != expected {
		return nil, errors.NewRestoreInconsistencyError(headId, "chain length disagrees with bundleSizeBytes").
			WithCustodyID(head.CustodyId).
			WithDetail("expected", expected).
			WithDetail("got", len(chain))
	}

	return chain, nil
}
