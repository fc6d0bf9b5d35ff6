package catalog

import (
	"sort"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
)

// Counters is a read-only snapshot of the Catalog's cumulative activity,
// consumed by internal/telemetry per spec.md §6.
type Counters struct {
	BundlesInCatalog int
	BytesInCatalog   uint64
	WriteOps         uint64
	WriteBytes       uint64
	EraseOps         uint64
	EraseBytes       uint64
}

// Snapshot returns the Catalog's current counters. BytesInCatalog sums
// BundleSizeBytes across every entry presently in custody — a
// point-in-time figure, distinct from the cumulative WriteBytes counter.
func (c *Catalog) Snapshot() Counters {
	var bytesInCatalog uint64
	c.custody.ForEach(func(_ bundleid.CustodyId, entry *CatalogEntry) {
		bytesInCatalog += entry.BundleSizeBytes
	})

	return Counters{
		BundlesInCatalog: c.custody.Len(),
		BytesInCatalog:   bytesInCatalog,
		WriteOps:         c.writeOps,
		WriteBytes:       c.writeBytes,
		EraseOps:         c.eraseOps,
		EraseBytes:       c.eraseBytes,
	}
}

// GetExpiredBundleIds returns up to maxNumberToFind custody ids whose
// absolute expiration is at or before nowSeconds, supplementing the
// original implementation's periodic expiration sweep (original_source
// BundleStorageCatalog's expiration scan). Order is unspecified beyond
// "expired"; callers that need earliest-first ordering should sort the
// result themselves.
func (c *Catalog) GetExpiredBundleIds(nowSeconds uint64, maxNumberToFind int) []bundleid.CustodyId {
	if maxNumberToFind <= 0 {
		return nil
	}

	var expired []bundleid.CustodyId
	c.custody.ForEach(func(id bundleid.CustodyId, entry *CatalogEntry) {
		if len(expired) >= maxNumberToFind {
			return
		}
		if entry.AbsExpiration() <= nowSeconds {
			expired = append(expired, id)
		}
	})
	return expired
}

// DestinationExpiringReport summarizes, for one destination node, how
// many bytes and bundles are awaiting send and will expire within the
// requested threshold.
type DestinationExpiringReport struct {
	NodeID          uint64
	BundleCount     int
	TotalSizeBytes  uint64
	EarliestExpires uint64
}

// GetStorageExpiringBeforeThresholdTelemetry groups awaiting-send bundles
// of the given priority band by destination node id, reporting only
// destinations with at least one bundle expiring at or before
// thresholdSeconds. Restores the original implementation's
// StorageExpiringBeforeThresholdTelemetry_t report, which carries its own
// priority field — this is a single-priority-band query, not an
// aggregate across bands.
func (c *Catalog) GetStorageExpiringBeforeThresholdTelemetry(priority int, thresholdSeconds uint64) []DestinationExpiringReport {
	byNode := make(map[uint64]*DestinationExpiringReport)

	for dest, buckets := range c.awaiting {
		band := buckets.byPriority[priority]
		for expiration, queue := range band {
			if expiration > thresholdSeconds || queue.empty() {
				continue
			}
			for n := queue.head; n != nil; n = n.next {
				entry, ok := c.custody.Get(n.custodyId)
				if !ok {
					continue
				}
				report, ok := byNode[dest.NodeID]
				if !ok {
					report = &DestinationExpiringReport{NodeID: dest.NodeID, EarliestExpires: expiration}
					byNode[dest.NodeID] = report
				}
				report.BundleCount++
				report.TotalSizeBytes += entry.BundleSizeBytes
				if expiration < report.EarliestExpires {
					report.EarliestExpires = expiration
				}
			}
		}
	}

	reports := make([]DestinationExpiringReport, 0, len(byNode))
	for _, r := range byNode {
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].NodeID < reports[j].NodeID })
	return reports
}
