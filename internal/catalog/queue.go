package catalog

import "github.com/iamNilotpal/dtnstore/internal/bundleid"

// queueNode is one link in an awaiting-send bucket's ordered queue.
type queueNode struct {
	custodyId bundleid.CustodyId
	sequence  uint64
	next      *queueNode
}

// orderedQueue is a singly-linked list augmented with a tail pointer so
// FIFO appends and FILO prepends are both O(1), per spec.md §4.2.
// BySequence insertion first compares against the tail, so the common
// case (creation sequence is monotonic under nominal input) is an O(1)
// append; otherwise it scans linearly from the head.
type orderedQueue struct {
	head   *queueNode
	tail   *queueNode
	length int
}

// pushBack appends to the tail (FIFO order).
func (q *orderedQueue) pushBack(custodyId bundleid.CustodyId, sequence uint64) {
	n := &queueNode{custodyId: custodyId, sequence: sequence}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.length++
}

// pushFront prepends to the head (FILO order, and used by returnToAwaiting).
func (q *orderedQueue) pushFront(custodyId bundleid.CustodyId, sequence uint64) {
	n := &queueNode{custodyId: custodyId, sequence: sequence, next: q.head}
	q.head = n
	if q.tail == nil {
		q.tail = n
	}
	q.length++
}

// insertBySequence maintains ascending order by sequence, scanning from
// the tail backward conceptually by walking from head but favoring the
// common case of new sequences exceeding every existing one (an append).
// It reports false without modifying the queue if sequence already
// exists, per spec.md §4.2 ("BY_SEQUENCE detects duplicate sequences and
// rejects").
func (q *orderedQueue) insertBySequence(custodyId bundleid.CustodyId, sequence uint64) bool {
	if q.tail == nil || sequence > q.tail.sequence {
		q.pushBack(custodyId, sequence)
		return true
	}

	var prev *queueNode
	cur := q.head
	for cur != nil && cur.sequence < sequence {
		prev = cur
		cur = cur.next
	}
	if cur != nil && cur.sequence == sequence {
		return false
	}

	n := &queueNode{custodyId: custodyId, sequence: sequence, next: cur}
	if prev == nil {
		q.head = n
	} else {
		prev.next = n
	}
	if n.next == nil {
		q.tail = n
	}
	q.length++
	return true
}

// popFront removes and returns the head entry's custody id.
func (q *orderedQueue) popFront() (bundleid.CustodyId, bool) {
	if q.head == nil {
		return 0, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.length--
	return n.custodyId, true
}

// peekExpiration-ordering helper: front returns the head custody id
// without removing it.
func (q *orderedQueue) front() (bundleid.CustodyId, bool) {
	if q.head == nil {
		return 0, false
	}
	return q.head.custodyId, true
}

func (q *orderedQueue) empty() bool {
	return q.head == nil
}

// remove scans the queue for custodyId and unlinks it, used by
// removeCompletely to evict a bundle that is still sitting in its
// awaiting-send bucket.
func (q *orderedQueue) remove(custodyId bundleid.CustodyId) bool {
	var prev *queueNode
	cur := q.head
	for cur != nil {
		if cur.custodyId == custodyId {
			if prev == nil {
				q.head = cur.next
			} else {
				prev.next = cur.next
			}
			if cur == q.tail {
				q.tail = prev
			}
			q.length--
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}
