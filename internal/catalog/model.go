// Package catalog implements the bundle storage engine's in-memory
// indexing: the custody-id → entry map, the destination/priority/
// expiration awaiting-send index used for pop-by-best-bundle, and the
// UUID → custody-id lookups used for duplicate/custody resolution.
//
// Thread-safety is delegated to the enclosing Store — per spec.md §4.2,
// "the Catalog itself exposes non-reentrant operations and assumes the
// caller holds the Store lock." No method here takes an internal lock.
package catalog

import (
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"go.uber.org/zap"
)

// DuplicateOrderPolicy controls how two bundles that land in the same
// destination/priority/expiration bucket are ordered relative to one
// another.
type DuplicateOrderPolicy int

const (
	// PolicyFIFO appends new entries to the tail of the bucket's queue.
	PolicyFIFO DuplicateOrderPolicy = iota
	// PolicyFILO prepends new entries to the head of the bucket's queue.
	PolicyFILO
	// PolicyBySequence maintains ascending order by CatalogEntry.Sequence,
	// rejecting an insert whose sequence already exists in the bucket.
	PolicyBySequence
)

// CatalogEntry is the in-memory record for one accepted bundle, per
// spec.md §3.
type CatalogEntry struct {
	BundleSizeBytes                uint64
	SegmentIdChain                 []uint64
	DestEID                        bundleid.EID
	PackedAbsExpirationAndPriority uint64
	Sequence                       uint64

	// HasCustody records whether the primary block asserted custody
	// transfer for this bundle, per original_source/.../CatalogEntry.h's
	// HasCustody/HasCustodyAndFragmentation/HasCustodyAndNonFragmentation.
	HasCustody bool

	// UUID is the originator-assigned identity, populated only when
	// HasCustody is true; nil otherwise.
	UUID *bundleid.UUID
}

// PriorityIndex returns the entry's priority band, 0..2.
func (e *CatalogEntry) PriorityIndex() int {
	return bundleid.UnpackPriority(e.PackedAbsExpirationAndPriority)
}

// AbsExpiration returns the entry's absolute expiration, seconds since
// the Unix epoch.
func (e *CatalogEntry) AbsExpiration() uint64 {
	return bundleid.UnpackExpiration(e.PackedAbsExpirationAndPriority)
}

// Catalog holds all in-memory indexing structures for the bundle storage
// engine.
type Catalog struct {
	log *zap.SugaredLogger

	custody    *custodyIndex
	uuidFrag   *uuidIndex
	uuidNoFrag *uuidIndex

	awaiting map[bundleid.EID]*destBuckets

	writeOps   uint64
	writeBytes uint64
	eraseOps   uint64
	eraseBytes uint64
}

// Config holds the parameters required to build a Catalog.
type Config struct {
	Logger *zap.SugaredLogger
}

// destBuckets holds, for one destination EID, the three priority bands'
// expiration-keyed awaiting-send queues.
type destBuckets struct {
	byPriority [3]map[uint64]*orderedQueue
}

func newDestBuckets() *destBuckets {
	d := &destBuckets{}
	for i := range d.byPriority {
		d.byPriority[i] = make(map[uint64]*orderedQueue)
	}
	return d
}

// New builds an empty Catalog.
func New(config *Config) (*Catalog, error) {
	if config == nil || config.Logger == nil {
		config = &Config{Logger: zap.NewNop().Sugar()}
	}

	return &Catalog{
		log:        config.Logger,
		custody:    newCustodyIndex(),
		uuidFrag:   newUUIDIndex(),
		uuidNoFrag: newUUIDIndex(),
		awaiting:   make(map[bundleid.EID]*destBuckets),
	}, nil
}
