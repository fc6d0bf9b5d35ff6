package catalog

import (
	"testing"

	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(&Config{})
	require.NoError(t, err)
	return c
}

func entryFor(dest bundleid.EID, priority int, expiration, sequence, sizeBytes uint64) *CatalogEntry {
	return &CatalogEntry{
		BundleSizeBytes:                sizeBytes,
		DestEID:                        dest,
		PackedAbsExpirationAndPriority: bundleid.PackExpirationAndPriority(expiration, priority),
		Sequence:                       sequence,
	}
}

// TestPopBest_PriorityThenExpiration implements spec.md §8 scenario S2:
// among bundles for the same destination, a higher priority band always
// wins, and within a band the earliest expiration wins.
func TestPopBest_PriorityThenExpiration(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 1, ServiceID: 1}

	bulkEarly := entryFor(dest, bundleid.PriorityBulk, 100, 1, 10)
	bulkLate := entryFor(dest, bundleid.PriorityBulk, 200, 2, 10)
	expeditedLate := entryFor(dest, bundleid.PriorityExpedited, 500, 3, 10)
	normalEarly := entryFor(dest, bundleid.PriorityNormal, 150, 4, 10)

	require.True(t, c.CatalogIncomingBundle(1, bulkEarly, PolicyFIFO).Inserted)
	require.True(t, c.CatalogIncomingBundle(2, bulkLate, PolicyFIFO).Inserted)
	require.True(t, c.CatalogIncomingBundle(3, expeditedLate, PolicyFIFO).Inserted)
	require.True(t, c.CatalogIncomingBundle(4, normalEarly, PolicyFIFO).Inserted)

	id, entry, ok := c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(3), id)
	require.Equal(t, bundleid.PriorityExpedited, entry.PriorityIndex())

	id, entry, ok = c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(4), id)
	require.Equal(t, bundleid.PriorityNormal, entry.PriorityIndex())

	id, _, ok = c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(1), id, "earliest expiration within the bulk band pops first")

	id, _, ok = c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(2), id)

	_, _, ok = c.PopBest([]bundleid.EID{dest})
	require.False(t, ok, "catalog must report empty once drained")
}

// TestPopReturnIdempotence covers invariant 7: popping a bundle and
// immediately returning it leaves the catalog able to pop the exact same
// bundle again.
func TestPopReturnIdempotence(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 7, ServiceID: 1}
	entry := entryFor(dest, bundleid.PriorityNormal, 100, 1, 20)

	require.True(t, c.CatalogIncomingBundle(42, entry, PolicyFIFO).Inserted)

	id, popped, ok := c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(42), id)

	c.ReturnToAwaiting(id, popped)

	id2, _, ok := c.PopBest([]bundleid.EID{dest})
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(42), id2)
}

// TestUUIDDuplicate_S6 implements spec.md §8 scenario S6: a second bundle
// with a UUID identical to an already-present custody-bearing bundle is
// still cataloged (by custody id), but its UUID mapping is rejected;
// removing the original custody id later restores the mapping so a
// subsequent insert can claim it.
func TestUUIDDuplicate_S6(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 3, ServiceID: 1}
	u := bundleid.UUID{CreationSeconds: 1000, Sequence: 1, SrcNodeID: 9, SrcServiceID: 1}

	first := entryFor(dest, bundleid.PriorityNormal, 100, 1, 10)
	first.HasCustody = true
	first.UUID = &u

	second := entryFor(dest, bundleid.PriorityNormal, 200, 2, 10)
	second.HasCustody = true
	second.UUID = &u

	resultFirst := c.CatalogIncomingBundle(11, first, PolicyFIFO)
	require.True(t, resultFirst.Inserted)
	require.True(t, resultFirst.UUIDInserted)

	resultSecond := c.CatalogIncomingBundle(12, second, PolicyFIFO)
	require.True(t, resultSecond.Inserted, "second bundle is still cataloged by custody id")
	require.False(t, resultSecond.UUIDInserted, "uuid already mapped to custody id 11")

	resolved, ok := c.GetCustodyIdFromUuid(u)
	require.True(t, ok)
	require.Equal(t, bundleid.CustodyId(11), resolved)

	removeResult := c.RemoveCompletely(11)
	require.True(t, removeResult.Touched())
	require.True(t, removeResult.UUIDMapTouched)

	_, ok = c.GetCustodyIdFromUuid(u)
	require.False(t, ok, "uuid mapping erased along with its owning custody id")

	resultThird := c.CatalogIncomingBundle(12, second, PolicyFIFO)
	require.True(t, resultThird.UUIDInserted, "uuid now free for a later insert to claim")
}

func TestRemoveCompletely_NotFound(t *testing.T) {
	c := newTestCatalog(t)
	result := c.RemoveCompletely(999)
	require.False(t, result.Touched())
}

func TestBySequence_RejectsDuplicate(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 1, ServiceID: 1}

	a := entryFor(dest, bundleid.PriorityNormal, 100, 5, 10)
	b := entryFor(dest, bundleid.PriorityNormal, 100, 5, 10)

	require.True(t, c.CatalogIncomingBundle(1, a, PolicyBySequence).Inserted)
	require.False(t, c.CatalogIncomingBundle(2, b, PolicyBySequence).Inserted)
}

func TestGetExpiredBundleIds(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 1, ServiceID: 1}

	expired := entryFor(dest, bundleid.PriorityNormal, 100, 1, 10)
	fresh := entryFor(dest, bundleid.PriorityNormal, 500, 2, 10)

	c.CatalogIncomingBundle(1, expired, PolicyFIFO)
	c.CatalogIncomingBundle(2, fresh, PolicyFIFO)

	ids := c.GetExpiredBundleIds(200, 10)
	require.Equal(t, []bundleid.CustodyId{1}, ids)
}

func TestSnapshot_TracksWritesAndErases(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 1, ServiceID: 1}
	entry := entryFor(dest, bundleid.PriorityNormal, 100, 1, 30)

	c.CatalogIncomingBundle(1, entry, PolicyFIFO)
	snap := c.Snapshot()
	require.Equal(t, 1, snap.BundlesInCatalog)
	require.Equal(t, uint64(30), snap.BytesInCatalog)
	require.Equal(t, uint64(1), snap.WriteOps)
	require.Equal(t, uint64(30), snap.WriteBytes)

	c.RemoveCompletely(1)
	snap = c.Snapshot()
	require.Equal(t, 0, snap.BundlesInCatalog)
	require.Equal(t, uint64(0), snap.BytesInCatalog)
	require.Equal(t, uint64(1), snap.EraseOps)
	require.Equal(t, uint64(30), snap.EraseBytes)
}

// TestGetStorageExpiringBeforeThresholdTelemetry_FiltersByPriority
// confirms the report only considers the requested priority band: a
// bulk-priority bundle expiring within the threshold must not show up in
// a normal-priority query for the same destination.
func TestGetStorageExpiringBeforeThresholdTelemetry_FiltersByPriority(t *testing.T) {
	c := newTestCatalog(t)
	dest := bundleid.EID{NodeID: 4, ServiceID: 1}

	bulk := entryFor(dest, bundleid.PriorityBulk, 100, 1, 40)
	normal := entryFor(dest, bundleid.PriorityNormal, 100, 2, 60)

	c.CatalogIncomingBundle(1, bulk, PolicyFIFO)
	c.CatalogIncomingBundle(2, normal, PolicyFIFO)

	bulkReports := c.GetStorageExpiringBeforeThresholdTelemetry(bundleid.PriorityBulk, 200)
	require.Len(t, bulkReports, 1)
	require.Equal(t, uint64(4), bulkReports[0].NodeID)
	require.Equal(t, 1, bulkReports[0].BundleCount)
	require.Equal(t, uint64(40), bulkReports[0].TotalSizeBytes)

	normalReports := c.GetStorageExpiringBeforeThresholdTelemetry(bundleid.PriorityNormal, 200)
	require.Len(t, normalReports, 1)
	require.Equal(t, uint64(60), normalReports[0].TotalSizeBytes)

	expeditedReports := c.GetStorageExpiringBeforeThresholdTelemetry(bundleid.PriorityExpedited, 200)
	require.Empty(t, expeditedReports)
}
