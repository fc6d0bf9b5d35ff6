package catalog

import "github.com/iamNilotpal/dtnstore/internal/bundleid"

// uuidNode is one link in a UUID bucket's singly-linked list.
type uuidNode struct {
	key   bundleid.UUID
	value bundleid.CustodyId
	next  *uuidNode
}

// uuidIndex is the bucketed uuidToCustodyId / uuidNoFragToCustodyId map
// from spec.md §4.2, hashed by UUID.Hash16.
type uuidIndex struct {
	buckets [numBuckets]*uuidNode
	count   int
}

func newUUIDIndex() *uuidIndex {
	return &uuidIndex{}
}

// Get returns the custody id mapped to a UUID, if present.
func (ui *uuidIndex) Get(u bundleid.UUID) (bundleid.CustodyId, bool) {
	for n := ui.buckets[u.Hash16()]; n != nil; n = n.next {
		if n.key == u {
			return n.value, true
		}
	}
	return 0, false
}

// Insert adds a (uuid, custodyId) mapping only if the uuid is not already
// present; it returns false without modifying state if the uuid already
// maps to some custody id, per spec.md §8 scenario S6.
func (ui *uuidIndex) Insert(u bundleid.UUID, id bundleid.CustodyId) bool {
	bucket := u.Hash16()
	for n := ui.buckets[bucket]; n != nil; n = n.next {
		if n.key == u {
			return false
		}
	}
	ui.buckets[bucket] = &uuidNode{key: u, value: id, next: ui.buckets[bucket]}
	ui.count++
	return true
}

// Delete removes the mapping for uuid only if it currently points at
// expectedID, per spec.md §8 scenario S6 ("removing custodyId 11 restores
// the UUID map to pointing at 12 on a subsequent insert") — a stale
// mapping belonging to some other custody id must never be erased out
// from under it.
func (ui *uuidIndex) Delete(u bundleid.UUID, expectedID bundleid.CustodyId) bool {
	bucket := u.Hash16()
	var prev *uuidNode
	cur := ui.buckets[bucket]

	for cur != nil {
		if cur.key == u {
			if cur.value != expectedID {
				return false
			}
			if prev == nil {
				ui.buckets[bucket] = cur.next
			} else {
				prev.next = cur.next
			}
			ui.count--
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}

// Len returns the number of mappings currently indexed.
func (ui *uuidIndex) Len() int {
	return ui.count
}
