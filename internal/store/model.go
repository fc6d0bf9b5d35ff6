// Package store is the bundle storage engine's front door: it accepts
// incoming bundles (allocate segments, write them, catalog the entry),
// pops the best bundle for a set of eligible destinations (read-ahead via
// diskio), and retires bundles once they've been forwarded (tombstone,
// free, erase), per SPEC_FULL.md §4.4.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/dtnstore/internal/allocator"
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/pkg/errors"
	"github.com/iamNilotpal/dtnstore/pkg/options"
	"go.uber.org/zap"
)

// Config holds the already-constructed collaborators a Store wires
// together. The engine builds Allocator and Catalog (and Restore fills
// them) before the Store exists, so Store never constructs them itself.
type Config struct {
	Allocator *allocator.Allocator
	Catalog   *catalog.Catalog
	Disk      *diskio.Manager
	Options   *options.Options
	Logger    *zap.SugaredLogger
	Policy    catalog.DuplicateOrderPolicy
}

// Store is the engine's single entry point for bundle lifecycle
// operations. Its mutex guards every Catalog access and the allocation
// step of Push. It is not held across a whole push, pop or remove
// sequence (disk writes, reads and allocator frees run outside it), so
// callers with more than one client goroutine must serialize Store
// operations themselves.
type Store struct {
	mu sync.Mutex

	alloc *allocator.Allocator
	cat   *catalog.Catalog
	disk  *diskio.Manager
	opts  *options.Options
	log   *zap.SugaredLogger

	policy   catalog.DuplicateOrderPolicy
	sequence atomic.Uint64
}

// New builds a Store from already-initialized collaborators.
func New(config *Config) (*Store, error) {
	if config == nil || config.Allocator == nil || config.Catalog == nil || config.Disk == nil || config.Options == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "store configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Store{
		alloc:  config.Allocator,
		cat:    config.Catalog,
		disk:   config.Disk,
		opts:   config.Options,
		log:    log,
		policy: config.Policy,
	}, nil
}

// NextSequence assigns a fresh, monotonically-increasing bundle creation
// sequence. Push calls this once per bundle.
func (s *Store) NextSequence() uint64 {
	return s.sequence.Add(1)
}

// Bump advances the sequence counter to at least n. The engine calls it
// with the highest sequence Restore recovered, so newly-pushed bundles
// never collide with a recovered sequence.
func (s *Store) Bump(n uint64) {
	for {
		cur := s.sequence.Load()
		if n <= cur {
			return
		}
		if s.sequence.CompareAndSwap(cur, n) {
			return
		}
	}
}

// PushSession tracks one in-progress incoming bundle: its allocated
// segment chain and how much of it has been written so far.
type PushSession struct {
	custodyId bundleid.CustodyId
	chain     []uint64
	cursor    int
	entry     *catalog.CatalogEntry
}

// SegmentIdChain returns the session's allocated segment ids, in write
// order.
func (s *PushSession) SegmentIdChain() []uint64 {
	return s.chain
}

// PopSession tracks one in-progress outgoing bundle read: the chain being
// walked and the read-ahead window of in-flight segment fetches.
type PopSession struct {
	custodyId   bundleid.CustodyId
	entry       *catalog.CatalogEntry
	chain       []uint64
	slots       []*segmentSlot
	nextLogical int
	cacheDepth  int
	disk        *diskio.Manager
	segmentSize uint64
}

type segmentSlot struct {
	done chan struct{}
	buf  []byte
	n    int
	err  error
}

// CustodyID returns the custody id this session is reading.
func (p *PopSession) CustodyID() bundleid.CustodyId {
	return p.custodyId
}

// BundleSizeBytes returns the total bundle size being read.
func (p *PopSession) BundleSizeBytes() uint64 {
	return p.entry.BundleSizeBytes
}
