package catalog

import "github.com/iamNilotpal/dtnstore/internal/bundleid"

// numBuckets is the fixed bucket count for both the custody-id map and
// the UUID maps, per spec.md §4.2: "sharded into 65,536 fixed buckets."
// The 16-bit hash folds directly into this many buckets; do not
// substitute a generic, dynamically-resized hash map, per spec.md §9.
const numBuckets = 1 << 16

// custodyNode is one link in a bucket's singly-linked list, kept in
// ascending key order to bound lookup cost and simplify delete-by-link.
type custodyNode struct {
	key   bundleid.CustodyId
	value *CatalogEntry
	next  *custodyNode
}

// custodyIndex is the bucketed custodyIdToEntry map from spec.md §4.2.
type custodyIndex struct {
	buckets [numBuckets]*custodyNode
	count   int
}

func newCustodyIndex() *custodyIndex {
	return &custodyIndex{}
}

// Get returns the entry for a custody id, if present.
func (ci *custodyIndex) Get(id bundleid.CustodyId) (*CatalogEntry, bool) {
	for n := ci.buckets[bundleid.CustodyHash16(id)]; n != nil; n = n.next {
		if n.key == id {
			return n.value, true
		}
		if n.key > id {
			break
		}
	}
	return nil, false
}

// Put inserts or overwrites the entry for a custody id, returning true if
// a prior entry for the same id was replaced.
func (ci *custodyIndex) Put(id bundleid.CustodyId, entry *CatalogEntry) bool {
	bucket := bundleid.CustodyHash16(id)
	head := ci.buckets[bucket]

	if head == nil || head.key > id {
		ci.buckets[bucket] = &custodyNode{key: id, value: entry, next: head}
		ci.count++
		return false
	}

	prev := (*custodyNode)(nil)
	cur := head
	for cur != nil && cur.key < id {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.key == id {
		cur.value = entry
		return true
	}

	node := &custodyNode{key: id, value: entry, next: cur}
	if prev == nil {
		ci.buckets[bucket] = node
	} else {
		prev.next = node
	}
	ci.count++
	return false
}

// Delete removes the entry for a custody id, returning it if present.
func (ci *custodyIndex) Delete(id bundleid.CustodyId) (*CatalogEntry, bool) {
	bucket := bundleid.CustodyHash16(id)
	var prev *custodyNode
	cur := ci.buckets[bucket]

	for cur != nil && cur.key < id {
		prev = cur
		cur = cur.next
	}
	if cur == nil || cur.key != id {
		return nil, false
	}

	if prev == nil {
		ci.buckets[bucket] = cur.next
	} else {
		prev.next = cur.next
	}
	ci.count--
	return cur.value, true
}

// Len returns the number of entries currently indexed.
func (ci *custodyIndex) Len() int {
	return ci.count
}

// ForEach visits every (custodyId, entry) pair. The callback must not
// mutate the index.
func (ci *custodyIndex) ForEach(fn func(bundleid.CustodyId, *CatalogEntry)) {
	for _, head := range ci.buckets {
		for n := head; n != nil; n = n.next {
			fn(n.key, n.value)
		}
	}
}
