// Package dtnstore provides a persistent, segment-chunked store for DTN
// bundles awaiting forwarding. It combines an in-memory catalog (custody
// ids, awaiting-send priority/expiration order, UUID lookups) with a
// fixed-segment on-disk layout spread across one or more backing files, to
// achieve durable storage that survives a restart without a full bundle
// re-ingest. It is designed for DTN routers and other store-and-forward
// nodes that need fast custody-id lookup, priority/expiration-ordered
// pop-for-send, and recovery of the catalog from the backing files on
// restart. Writes are handed to per-disk workers without fsync, so
// durability is best-effort.
package dtnstore

import (
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/engine"
	"github.com/iamNilotpal/dtnstore/internal/restore"
	"github.com/iamNilotpal/dtnstore/internal/store"
	"github.com/iamNilotpal/dtnstore/internal/telemetry"
	"github.com/iamNilotpal/dtnstore/pkg/logger"
	"github.com/iamNilotpal/dtnstore/pkg/options"
)

// PrimaryBlockInfo re-exports the primary-block fields the store needs to
// catalog an incoming bundle.
type PrimaryBlockInfo = store.PrimaryBlockInfo

// PushSession and PopSession re-export the engine's session handles so
// callers never need to import internal/store directly.
type PushSession = store.PushSession
type PopSession = store.PopSession

// Instance represents an instance of the DTN bundle store. It encapsulates
// the core engine responsible for segment allocation, cataloging, and disk
// I/O, and the configuration options applied to this instance.
//
// Instance is the primary entry point for interacting with the store,
// providing methods for pushing, popping, and retiring bundles.
type Instance struct {
	engine  *engine.Engine   // The underlying storage engine handling read/write operations.
	options *options.Options // Configuration options applied to this store instance.
}

// NewInstance creates and initializes a new bundle store instance.
func NewInstance(service string, opts ...options.OptionFunc) (*Instance, error) {
	// Initialize a logger for the given service.
	log := logger.New(service)

	// Initialize default options.
	defaultOpts := options.NewDefaultOptions()

	// Apply any provided functional options to override defaults.
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	// Create a new internal engine with the initialized logger.
	eng, err := engine.New(&engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Push begins accepting a new bundle, allocating the segment chain its
// bundleSizeBytes requires. Call PushSegment (or PushAllSegments) to write
// the payload before the bundle becomes visible to PopTop.
func (i *Instance) Push(primary PrimaryBlockInfo, bundleSizeBytes uint64) (*PushSession, error) {
	return i.engine.Push(primary, bundleSizeBytes)
}

// PushSegment writes the next unwritten segment of session's chain.
func (i *Instance) PushSegment(session *PushSession, custodyId bundleid.CustodyId, payload []byte) error {
	return i.engine.PushSegment(session, custodyId, payload)
}

// PushAllSegments writes every segment of a bundle in one call.
func (i *Instance) PushAllSegments(session *PushSession, custodyId bundleid.CustodyId, allBytes []byte) error {
	return i.engine.PushAllSegments(session, custodyId, allBytes)
}

// PopTop selects the best awaiting bundle among availableDests — highest
// priority, then earliest expiration — and begins a read-ahead session
// over its segment chain. Returns ok=false if nothing is eligible.
func (i *Instance) PopTop(availableDests []bundleid.EID) (session *PopSession, bundleSizeBytes uint64, ok bool) {
	return i.engine.PopTop(availableDests)
}

// TopSegment reads the next segment of an in-progress pop session into
// buf, returning io.EOF once every segment has been returned.
func (i *Instance) TopSegment(session *PopSession, buf []byte) (int, error) {
	return i.engine.TopSegment(session, buf)
}

// ReturnTop reinserts a popped-but-not-yet-forwarded bundle back into its
// awaiting-send bucket, so a later PopTop call can select it again.
func (i *Instance) ReturnTop(session *PopSession) {
	i.engine.ReturnTop(session)
}

// RemoveReadBundle permanently retires a bundle once it has been
// forwarded: tombstones its head segment, frees its chain, and erases it
// from the catalog.
func (i *Instance) RemoveReadBundle(custodyId bundleid.CustodyId) error {
	return i.engine.RemoveReadBundle(custodyId)
}

// Telemetry returns a point-in-time snapshot of storage occupancy and
// cumulative activity.
func (i *Instance) Telemetry() telemetry.Snapshot {
	return i.engine.Telemetry()
}

// ExpiredBundleIds returns up to maxNumberToFind custody ids expired at or
// before nowSeconds.
func (i *Instance) ExpiredBundleIds(nowSeconds uint64, maxNumberToFind int) []uint64 {
	return i.engine.ExpiredBundleIds(nowSeconds, maxNumberToFind)
}

// ExpiringBeforeThreshold reports, per destination node, how many bundles
// of the given priority band and bytes are awaiting send and will expire
// at or before thresholdSeconds.
func (i *Instance) ExpiringBeforeThreshold(priority int, thresholdSeconds uint64) []catalog.DestinationExpiringReport {
	return i.engine.ExpiringBeforeThreshold(priority, thresholdSeconds)
}

// RestoreResult reports what the startup restore scan found, or nil if
// TryRestoreFromDisk was disabled for this instance.
func (i *Instance) RestoreResult() *restore.Result {
	return i.engine.RestoreResult()
}

// Close gracefully shuts down the store instance, releasing all
// associated resources: draining and joining every disk worker, closing
// the backing files, and — if configured — deleting them.
func (i *Instance) Close() error {
	return i.engine.Close()
}
