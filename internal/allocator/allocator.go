// Package allocator implements the segment allocator described in
// SPEC_FULL.md §4.1: a six-level tree of u64 bitmaps providing O(1)-ish
// allocate/free/isFree over a flat pool of dense segment IDs.
//
// Level 0 is the bottom leaf row, one bit per segment. Each level above
// has one bit per 64 bits of the level below; a 1 at level N+1 means "this
// group of 64 at level N is exhausted" (full), not "has a free bit" — the
// inverted convention matters for the fullness-propagation logic below.
// Tree depth is fixed at six levels regardless of pool size; pools much
// smaller than 64^6 simply have trivial (size-1, mostly-padding) upper
// levels, and the padding bits are permanently marked "used" so the
// search never descends into them.
package allocator

import (
	"math/bits"
	"sync"

	"github.com/iamNilotpal/dtnstore/pkg/errors"
	"go.uber.org/zap"
)

// numLevels is the fixed tree depth. 64^6 bits is far beyond any realistic
// segment pool, so the top levels are usually a single, mostly-padded word.
const numLevels = 6

// allWords is a u64 with every bit set — the "this word is exhausted"
// sentinel used throughout fullness propagation.
const allWords = ^uint64(0)

// Allocator is a thread-safe bitset-backed free-pool over [0, maxSegments)
// segment IDs. A single mutex protects Allocate/Free; AllocateID and
// IsFree are not thread-safe and are intended for use during Restore,
// before any client or disk-worker goroutine is running.
type Allocator struct {
	mu          sync.Mutex
	levels      [numLevels][]uint64
	maxSegments uint64
	usedCount   uint64
	log         *zap.SugaredLogger
}

// Config holds the parameters required to build an Allocator.
type Config struct {
	MaxSegments uint64
	Logger      *zap.SugaredLogger
}

// New builds an Allocator over [0, config.MaxSegments), with every
// segment initially free.
func New(config *Config) (*Allocator, error) {
	if config == nil || config.MaxSegments == 0 || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "allocator configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	a := &Allocator{maxSegments: config.MaxSegments, log: config.Logger}
	a.buildLevels()

	a.log.Infow("Segment allocator initialized", "maxSegments", config.MaxSegments)
	return a, nil
}

// buildLevels sizes every level's word slice bottom-up, then marks the
// bits beyond each level's real child count as permanently "full" so the
// free-search never wanders into non-existent segments or words.
func (a *Allocator) buildLevels() {
	childCount := a.maxSegments
	for level := range numLevels {
		wordCount := wordsFor(childCount)
		a.levels[level] = make([]uint64, wordCount)
		padLastWord(a.levels[level], childCount)
		childCount = wordCount
	}
}

// wordsFor returns how many u64 words are needed to hold one bit per
// child, i.e. ceil(children/64). A zero-child level still needs one word
// so descent never indexes an empty slice.
func wordsFor(children uint64) uint64 {
	if children == 0 {
		return 1
	}
	return (children + 63) / 64
}

// padLastWord sets the bits in the final word of a level that don't
// correspond to a real child (because the level's child count isn't a
// multiple of 64) to 1, marking them permanently "full"/"used".
func padLastWord(words []uint64, realChildren uint64) {
	if len(words) == 0 {
		return
	}
	lastWordIdx := len(words) - 1
	validInLastWord := realChildren - uint64(lastWordIdx)*64
	if validInLastWord >= 64 {
		return
	}
	var pad uint64
	for bit := validInLastWord; bit < 64; bit++ {
		pad |= 1 << bit
	}
	words[lastWordIdx] |= pad
}

// Allocate fills out a slice of n freshly-allocated, ascending segment
// IDs, or fails the whole request and rolls back every allocation made
// during the call, leaving allocator state unchanged, per spec.md §4.1's
// atomicity requirement.
func (a *Allocator) Allocate(n int) ([]uint64, error) {
	if n <= 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]uint64, 0, n)
	for range n {
		id, ok := a.findFreeLocked()
		if !ok {
			for _, rollbackID := range ids {
				a.clearRec(0, rollbackID/64, uint(rollbackID%64))
			}
			a.log.Warnw("Segment allocation failed, rolled back", "requested", n, "allocated", len(ids))
			return nil, errors.NewOutOfSegmentsError(n)
		}
		a.setRec(0, id/64, uint(id%64))
		ids = append(ids, id)
	}

	a.usedCount += uint64(n)
	return ids, nil
}

// Free releases every segment ID in ids back to the pool.
func (a *Allocator) Free(ids []uint64) {
	if len(ids) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, id := range ids {
		a.clearRec(0, id/64, uint(id%64))
	}
	a.usedCount -= uint64(len(ids))
}

// AllocateID marks a specific segment ID used. It is not thread-safe and
// is intended for use only by Restore, before concurrent access begins.
// It fails if the ID was already allocated.
func (a *Allocator) AllocateID(id uint64) error {
	if id >= a.maxSegments {
		return errors.NewOutOfSegmentsError(1).WithSegmentID(id)
	}
	if !a.isFreeLocked(id) {
		return errors.NewOutOfSegmentsError(1).
			WithSegmentID(id).
			WithDetail("reason", "segment already allocated")
	}

	a.setRec(0, id/64, uint(id%64))
	a.usedCount++
	return nil
}

// IsFree reports whether a segment ID is currently free. It is not
// thread-safe and is intended for use only by Restore.
func (a *Allocator) IsFree(id uint64) bool {
	if id >= a.maxSegments {
		return false
	}
	return a.isFreeLocked(id)
}

func (a *Allocator) isFreeLocked(id uint64) bool {
	word := a.levels[0][id/64]
	return word&(1<<(id%64)) == 0
}

// UsedCount returns the number of currently allocated segments.
func (a *Allocator) UsedCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usedCount
}

// FreeCount returns the number of currently free segments.
func (a *Allocator) FreeCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.maxSegments - a.usedCount
}

// findFreeLocked descends from the top level to level 0, at each level
// choosing the lowest-order zero bit and multiplying by 64 to compute the
// next level's word index, per spec.md §4.1.
func (a *Allocator) findFreeLocked() (uint64, bool) {
	idx := uint64(0)
	for level := numLevels - 1; level >= 1; level-- {
		bit, ok := lowestZeroBit(a.levels[level][idx])
		if !ok {
			return 0, false
		}
		idx = idx*64 + uint64(bit)
	}

	bit, ok := lowestZeroBit(a.levels[0][idx])
	if !ok {
		return 0, false
	}
	return idx*64 + uint64(bit), true
}

// setRec sets one bit at (level, wordIdx, bit) and, if that word is now
// entirely full, bubbles the "full" bit up into the parent level.
// Padding bits pre-set at build time mean a word reads as all-ones
// exactly when every real child is also allocated, so no masking is
// needed here.
func (a *Allocator) setRec(level int, wordIdx uint64, bit uint) {
	a.levels[level][wordIdx] |= 1 << bit
	if a.levels[level][wordIdx] != allWords || level+1 >= numLevels {
		return
	}
	a.setRec(level+1, wordIdx/64, uint(wordIdx%64))
}

// clearRec clears one bit at (level, wordIdx, bit). If the word was
// previously all-ones, the parent's "full" bit for this word must also be
// cleared; otherwise the parent bit was already clear and propagation
// stops, per spec.md §4.1.
func (a *Allocator) clearRec(level int, wordIdx uint64, bit uint) {
	word := a.levels[level][wordIdx]
	wasFull := word == allWords
	a.levels[level][wordIdx] = word &^ (1 << bit)

	if !wasFull || level+1 >= numLevels {
		return
	}
	a.clearRec(level+1, wordIdx/64, uint(wordIdx%64))
}

// lowestZeroBit returns the position of the lowest-order zero bit in
// word, or false if word is all-ones.
func lowestZeroBit(word uint64) (int, bool) {
	if word == allWords {
		return 0, false
	}
	return bits.TrailingZeros64(^word), true
}
