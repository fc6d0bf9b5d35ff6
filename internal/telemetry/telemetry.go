// Package telemetry aggregates read-only snapshots from the allocator and
// catalog into one engine-level report, per SPEC_FULL.md §6. It never
// mutates state and never serializes anything — the wire/export format for
// a metrics surface is an explicit collaborator concern, out of scope.
package telemetry

import (
	"github.com/iamNilotpal/dtnstore/internal/allocator"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
)

// Snapshot is a point-in-time view of storage occupancy and activity.
type Snapshot struct {
	// UsedSpaceBytes and FreeSpaceBytes describe the allocator's pool in
	// bytes (segment counts scaled by segment size), matching the
	// original implementation's m_usedSpaceBytes/m_freeSpaceBytes.
	UsedSpaceBytes uint64
	FreeSpaceBytes uint64

	// BundlesInCatalog and BytesInCatalog are current point-in-time
	// figures; WriteOps/WriteBytes/EraseOps/EraseBytes are cumulative
	// counters straight from the catalog.
	BundlesInCatalog int
	BytesInCatalog   uint64
	WriteOps         uint64
	WriteBytes       uint64
	EraseOps         uint64
	EraseBytes       uint64
}

// Reporter produces Snapshot values on demand from the live allocator and
// catalog. It holds no state of its own beyond the two collaborators and
// the segment size needed to convert segment counts to bytes.
type Reporter struct {
	alloc       *allocator.Allocator
	cat         *catalog.Catalog
	segmentSize uint64
}

// New builds a Reporter over the given allocator and catalog. Both are
// required: a telemetry report with only half the picture would be
// misleading rather than merely incomplete.
func New(alloc *allocator.Allocator, cat *catalog.Catalog, segmentSize uint64) *Reporter {
	return &Reporter{alloc: alloc, cat: cat, segmentSize: segmentSize}
}

// Snapshot returns the current occupancy and activity counters.
func (r *Reporter) Snapshot() Snapshot {
	counters := r.cat.Snapshot()
	return Snapshot{
		UsedSpaceBytes:   r.alloc.UsedCount() * r.segmentSize,
		FreeSpaceBytes:   r.alloc.FreeCount() * r.segmentSize,
		BundlesInCatalog: counters.BundlesInCatalog,
		BytesInCatalog:   counters.BytesInCatalog,
		WriteOps:         counters.WriteOps,
		WriteBytes:       counters.WriteBytes,
		EraseOps:         counters.EraseOps,
		EraseBytes:       counters.EraseBytes,
	}
}

// ExpiredBundleIds proxies to the catalog's expiration scan, supplementing
// the original implementation's periodic sweep (see internal/catalog's
// GetExpiredBundleIds doc comment).
func (r *Reporter) ExpiredBundleIds(nowSeconds uint64, maxNumberToFind int) []uint64 {
	ids := r.cat.GetExpiredBundleIds(nowSeconds, maxNumberToFind)
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

// ExpiringBeforeThreshold proxies to the catalog's per-destination,
// per-priority expiration report.
func (r *Reporter) ExpiringBeforeThreshold(priority int, thresholdSeconds uint64) []catalog.DestinationExpiringReport {
	return r.cat.GetStorageExpiringBeforeThresholdTelemetry(priority, thresholdSeconds)
}
