package telemetry_test

import (
	"testing"

	"github.com/iamNilotpal/dtnstore/internal/allocator"
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/telemetry"
	"github.com/iamNilotpal/dtnstore/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_ReflectsAllocatorAndCatalog(t *testing.T) {
	alloc, err := allocator.New(&allocator.Config{MaxSegments: 8, Logger: logger.Nop()})
	require.NoError(t, err)
	cat, err := catalog.New(&catalog.Config{Logger: logger.Nop()})
	require.NoError(t, err)

	ids, err := alloc.Allocate(3)
	require.NoError(t, err)

	entry := &catalog.CatalogEntry{
		BundleSizeBytes:                100,
		SegmentIdChain:                 ids,
		DestEID:                        bundleid.EID{NodeID: 1, ServiceID: 1},
		PackedAbsExpirationAndPriority: bundleid.PackExpirationAndPriority(1000, bundleid.PriorityNormal),
	}
	cat.CatalogIncomingBundle(1, entry, catalog.PolicyFIFO)

	reporter := telemetry.New(alloc, cat, 4096)
	snap := reporter.Snapshot()

	require.Equal(t, uint64(3*4096), snap.UsedSpaceBytes)
	require.Equal(t, uint64(5*4096), snap.FreeSpaceBytes)
	require.Equal(t, 1, snap.BundlesInCatalog)
	require.Equal(t, uint64(100), snap.BytesInCatalog)
	require.Equal(t, uint64(1), snap.WriteOps)
}

func TestExpiredBundleIds_Proxy(t *testing.T) {
	alloc, err := allocator.New(&allocator.Config{MaxSegments: 4, Logger: logger.Nop()})
	require.NoError(t, err)
	cat, err := catalog.New(&catalog.Config{Logger: logger.Nop()})
	require.NoError(t, err)

	ids, err := alloc.Allocate(1)
	require.NoError(t, err)
	entry := &catalog.CatalogEntry{
		BundleSizeBytes:                10,
		SegmentIdChain:                 ids,
		DestEID:                        bundleid.EID{NodeID: 2, ServiceID: 1},
		PackedAbsExpirationAndPriority: bundleid.PackExpirationAndPriority(50, bundleid.PriorityNormal),
	}
	cat.CatalogIncomingBundle(9, entry, catalog.PolicyFIFO)

	reporter := telemetry.New(alloc, cat, 4096)
	expired := reporter.ExpiredBundleIds(100, 10)
	require.Equal(t, []uint64{9}, expired)

	reports := reporter.ExpiringBeforeThreshold(bundleid.PriorityNormal, 100)
	require.Len(t, reports, 1)
	require.Equal(t, uint64(2), reports[0].NodeID)
}
