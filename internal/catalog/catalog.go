package catalog

import (
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
)

// InsertResult reports the outcome of CatalogIncomingBundle, including
// whether the UUID mapping independently collided with an existing
// entry — per spec.md §8 scenario S6, a UUID collision does not prevent
// the bundle from being cataloged.
type InsertResult struct {
	// Inserted is true when the entry was added to custodyIdToEntry and
	// the awaiting-send index.
	Inserted bool

	// UUIDInserted is true when a UUID mapping was requested (HasCustody)
	// and successfully inserted. False either because HasCustody is
	// false or because the UUID was already mapped to some custody id
	// (the same one included).
	UUIDInserted bool
}

// CatalogIncomingBundle inserts entry into custodyIdToEntry, places its
// key into the proper awaiting-send queue under policy, and — if the
// entry asserts custody transfer — inserts the UUID mapping. It fails
// (Inserted=false) only when policy is PolicyBySequence and an entry with
// the same sequence already exists in the destination bucket.
func (c *Catalog) CatalogIncomingBundle(
	custodyId bundleid.CustodyId,
	entry *CatalogEntry,
	policy DuplicateOrderPolicy,
) InsertResult {
	queue := c.bucketFor(entry.DestEID, entry.PriorityIndex(), entry.AbsExpiration(), true)

	switch policy {
	case PolicyFILO:
		queue.pushFront(custodyId, entry.Sequence)
	case PolicyBySequence:
		if !queue.insertBySequence(custodyId, entry.Sequence) {
			return InsertResult{}
		}
	default: // PolicyFIFO
		queue.pushBack(custodyId, entry.Sequence)
	}

	c.custody.Put(custodyId, entry)
	c.writeOps++
	c.writeBytes += entry.BundleSizeBytes

	result := InsertResult{Inserted: true}
	if entry.HasCustody && entry.UUID != nil {
		result.UUIDInserted = c.uuidIndexFor(*entry.UUID).Insert(*entry.UUID, custodyId)
	}
	return result
}

// PopBest selects the next bundle to release among the given eligible
// destinations, from highest to lowest priority band; within a band, the
// bundle with the smallest expiration wins, per spec.md §4.2. The chosen
// custody id is removed from the awaiting-send index (but remains in
// custodyIdToEntry). Returns (0, nil, false) if nothing is eligible.
func (c *Catalog) PopBest(availableDests []bundleid.EID) (bundleid.CustodyId, *CatalogEntry, bool) {
	if len(availableDests) == 0 {
		return 0, nil, false
	}

	for priority := 2; priority >= 0; priority-- {
		bestExpiration := uint64(0)
		var bestQueue *orderedQueue
		var bestBuckets *destBuckets
		found := false

		for _, dest := range availableDests {
			buckets, ok := c.awaiting[dest]
			if !ok {
				continue
			}
			for expiration, q := range buckets.byPriority[priority] {
				if q.empty() {
					continue
				}
				if !found || expiration < bestExpiration {
					bestExpiration = expiration
					bestQueue = q
					bestBuckets = buckets
					found = true
				}
			}
		}

		if !found {
			continue
		}

		custodyId, ok := bestQueue.popFront()
		if !ok {
			continue
		}
		if bestQueue.empty() {
			// Keep the map tidy; the bucketFor helper recreates it
			// lazily on the next insert.
			delete(bestBuckets.byPriority[priority], bestExpiration)
		}

		entry, ok := c.custody.Get(custodyId)
		if !ok {
			continue
		}
		return custodyId, entry, true
	}

	return 0, nil, false
}

// ReturnToAwaiting reinserts a popped-but-not-removed bundle at the head
// of its bucket (FILO semantics), preserving its position for a
// subsequent pop, per spec.md §3's lifecycle note.
func (c *Catalog) ReturnToAwaiting(custodyId bundleid.CustodyId, entry *CatalogEntry) {
	queue := c.bucketFor(entry.DestEID, entry.PriorityIndex(), entry.AbsExpiration(), true)
	queue.pushFront(custodyId, entry.Sequence)
}

// RemoveResult reports which of the three indexing structures were
// actually touched by RemoveCompletely, for diagnostics.
type RemoveResult struct {
	CustodyMapTouched bool
	AwaitingTouched   bool
	UUIDMapTouched    bool
}

// Touched reports whether RemoveCompletely found and removed anything at
// all.
func (r RemoveResult) Touched() bool {
	return r.CustodyMapTouched || r.AwaitingTouched || r.UUIDMapTouched
}

// RemoveCompletely erases custodyId from custodyIdToEntry, from its
// awaiting queue if still present, and from the UUID map if custody
// transfer was asserted. Removing a custody id that is not present is
// not an error — it simply reports zero touched structures.
func (c *Catalog) RemoveCompletely(custodyId bundleid.CustodyId) RemoveResult {
	entry, ok := c.custody.Get(custodyId)
	if !ok {
		return RemoveResult{}
	}

	var result RemoveResult

	if queue := c.bucketFor(entry.DestEID, entry.PriorityIndex(), entry.AbsExpiration(), false); queue != nil {
		if queue.remove(custodyId) {
			result.AwaitingTouched = true
		}
	}

	if _, removed := c.custody.Delete(custodyId); removed {
		result.CustodyMapTouched = true
		c.eraseOps++
		c.eraseBytes += entry.BundleSizeBytes
	}

	if entry.HasCustody && entry.UUID != nil {
		if c.uuidIndexFor(*entry.UUID).Delete(*entry.UUID, custodyId) {
			result.UUIDMapTouched = true
		}
	}

	return result
}

// bucketFor returns the awaiting-send queue for a destination/priority/
// expiration triple, creating the intermediate maps when create is true.
func (c *Catalog) bucketFor(dest bundleid.EID, priority int, expiration uint64, create bool) *orderedQueue {
	buckets, ok := c.awaiting[dest]
	if !ok {
		if !create {
			return nil
		}
		buckets = newDestBuckets()
		c.awaiting[dest] = buckets
	}

	queue, ok := buckets.byPriority[priority][expiration]
	if !ok {
		if !create {
			return nil
		}
		queue = &orderedQueue{}
		buckets.byPriority[priority][expiration] = queue
	}
	return queue
}

// uuidIndexFor returns the fragmenting or non-fragmenting UUID index
// depending on the UUID's variant.
func (c *Catalog) uuidIndexFor(u bundleid.UUID) *uuidIndex {
	if u.Fragmented {
		return c.uuidFrag
	}
	return c.uuidNoFrag
}

// GetEntry returns the catalog entry for a custody id, if present.
func (c *Catalog) GetEntry(custodyId bundleid.CustodyId) (*CatalogEntry, bool) {
	return c.custody.Get(custodyId)
}

// GetCustodyIdFromUuid resolves a UUID to its custody id.
func (c *Catalog) GetCustodyIdFromUuid(u bundleid.UUID) (bundleid.CustodyId, bool) {
	return c.uuidIndexFor(u).Get(u)
}

// NumBundles returns the number of entries currently in custodyIdToEntry.
func (c *Catalog) NumBundles() int {
	return c.custody.Len()
}
