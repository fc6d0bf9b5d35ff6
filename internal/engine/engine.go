// Package engine provides the core bundle storage engine implementation.
//
// The engine serves as the central coordinator and entry point for all
// storage operations. It orchestrates the interaction between five main
// subsystems:
//   - Allocator: Manages the free/used segment pool
//   - Catalog: Tracks custody ids, awaiting-send order, and UUID lookups
//   - DiskIo: Owns the per-disk worker goroutines that do the actual I/O
//   - Restore: Reconstructs Allocator and Catalog state at startup
//   - Store: The front door that ties Allocator, Catalog and DiskIo
//     together for Push/Pop/Remove
//
// The engine implements a thread-safe interface with proper lifecycle
// management, ensuring resources are properly initialized and cleaned up.
// It uses atomic operations for state management to provide consistent
// behavior across concurrent operations.
package engine

import (
	"errors"
	"sync/atomic"

	"github.com/iamNilotpal/dtnstore/internal/allocator"
	"github.com/iamNilotpal/dtnstore/internal/bundleid"
	"github.com/iamNilotpal/dtnstore/internal/catalog"
	"github.com/iamNilotpal/dtnstore/internal/diskio"
	"github.com/iamNilotpal/dtnstore/internal/restore"
	"github.com/iamNilotpal/dtnstore/internal/store"
	"github.com/iamNilotpal/dtnstore/internal/telemetry"
	"github.com/iamNilotpal/dtnstore/pkg/filesys"
	"github.com/iamNilotpal/dtnstore/pkg/options"
	"go.uber.org/zap"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")
)

// Engine represents the main storage engine that coordinates all
// subsystems. It acts as the primary interface for storage operations and
// manages the lifecycle of all internal components. The engine is
// designed to be thread-safe and supports concurrent operations while
// maintaining data consistency.
type Engine struct {
	options   *options.Options   // options contains all configuration parameters for the engine and its subsystems.
	log       *zap.SugaredLogger // log provides structured logging capabilities throughout the engine.
	closed    atomic.Bool        // closed is an atomic boolean that tracks the engine's lifecycle state.
	allocator *allocator.Allocator
	catalog   *catalog.Catalog
	disk      *diskio.Manager
	store     *store.Store
	telemetry *telemetry.Reporter

	// restoreResult is nil when TryRestoreFromDisk was disabled.
	restoreResult *restore.Result
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// maxSegments derives the allocator's pool size from the configured
// aggregate capacity and segment size.
func maxSegments(opts *options.Options) uint64 {
	return opts.TotalCapacityBytes / opts.SegmentSize
}

// New creates and initializes a new Engine instance with the provided
// configuration. This constructor follows the dependency injection
// pattern, making the engine testable and allowing for different
// configurations in different environments.
//
// Subsystems are built leaves-first: Allocator and Catalog have no
// external dependencies, DiskIo opens and pre-sizes the backing files,
// Restore (if enabled) reconstructs Allocator/Catalog state from those
// files, and Store is wired last since it depends on Allocator, Catalog
// and DiskIo.
//
// Returns:
//   - *Engine: A fully initialized engine ready for use
//   - error: Any error encountered during initialization, typically from
//     disk setup or a restore inconsistency
func New(config *Config) (*Engine, error) {
	opts := config.Options
	log := config.Logger

	// DataDir is created if it does not exist yet. The backing files are
	// opened at StoreFilePaths exactly as given, not relative to DataDir.
	exists, err := filesys.Exists(opts.DataDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := filesys.CreateDir(opts.DataDir, 0o755, true); err != nil {
			return nil, err
		}
	}

	alloc, err := allocator.New(&allocator.Config{MaxSegments: maxSegments(opts), Logger: log})
	if err != nil {
		return nil, err
	}

	cat, err := catalog.New(&catalog.Config{Logger: log})
	if err != nil {
		return nil, err
	}

	bytesPerDisk := uint64(0)
	if n := opts.NumDisks(); n > 0 {
		bytesPerDisk = opts.TotalCapacityBytes / uint64(n)
	}
	disk, err := diskio.Open(&diskio.Config{
		FilePaths:    opts.StoreFilePaths,
		BytesPerDisk: bytesPerDisk,
		SegmentSize:  opts.SegmentSize,
		RingDepth:    opts.RingDepth,
		Logger:       log,
	})
	if err != nil {
		return nil, err
	}

	var restoreResult *restore.Result
	if opts.TryRestoreFromDisk {
		restoreResult, err = restore.Run(&restore.Config{
			Allocator:   alloc,
			Catalog:     cat,
			Disk:        disk,
			MaxSegments: maxSegments(opts),
			SegmentSize: opts.SegmentSize,
			Logger:      log,
		})
		if err != nil {
			disk.Close()
			return nil, err
		}
	}

	st, err := store.New(&store.Config{
		Allocator: alloc,
		Catalog:   cat,
		Disk:      disk,
		Options:   opts,
		Logger:    log,
		Policy:    catalog.PolicyFIFO,
	})
	if err != nil {
		disk.Close()
		return nil, err
	}
	if restoreResult != nil {
		st.Bump(restoreResult.MaxSequenceSeen)
	}

	log.Infow("Engine initialized", "numDisks", disk.NumDisks(), "maxSegments", maxSegments(opts))

	return &Engine{
		options:       opts,
		log:           log,
		allocator:     alloc,
		catalog:       cat,
		disk:          disk,
		store:         st,
		telemetry:     telemetry.New(alloc, cat, opts.SegmentSize),
		restoreResult: restoreResult,
	}, nil
}

// Push begins accepting a new bundle, allocating its segment chain.
func (e *Engine) Push(primary store.PrimaryBlockInfo, bundleSizeBytes uint64) (*store.PushSession, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return e.store.Push(primary, bundleSizeBytes)
}

// PushSegment writes one segment of an in-progress push session.
func (e *Engine) PushSegment(session *store.PushSession, custodyId bundleid.CustodyId, payload []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.store.PushSegment(session, custodyId, payload)
}

// PushAllSegments writes every segment of a bundle in one call.
func (e *Engine) PushAllSegments(session *store.PushSession, custodyId bundleid.CustodyId, allBytes []byte) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.store.PushAllSegments(session, custodyId, allBytes)
}

// PopTop selects the best bundle among availableDests and begins a
// read-ahead session over it.
func (e *Engine) PopTop(availableDests []bundleid.EID) (*store.PopSession, uint64, bool) {
	if e.closed.Load() {
		return nil, 0, false
	}
	return e.store.PopTop(availableDests)
}

// TopSegment reads the next segment of an in-progress pop session.
func (e *Engine) TopSegment(session *store.PopSession, buf []byte) (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	return e.store.TopSegment(session, buf)
}

// ReturnTop reinserts a popped-but-not-yet-forwarded bundle.
func (e *Engine) ReturnTop(session *store.PopSession) {
	if e.closed.Load() {
		return
	}
	e.store.ReturnTop(session)
}

// RemoveReadBundle permanently retires a bundle once it has been forwarded.
func (e *Engine) RemoveReadBundle(custodyId bundleid.CustodyId) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.store.RemoveReadBundle(custodyId)
}

// Telemetry returns a point-in-time snapshot of storage occupancy and activity.
func (e *Engine) Telemetry() telemetry.Snapshot {
	return e.telemetry.Snapshot()
}

// ExpiredBundleIds returns custody ids expired at or before nowSeconds.
func (e *Engine) ExpiredBundleIds(nowSeconds uint64, maxNumberToFind int) []uint64 {
	return e.telemetry.ExpiredBundleIds(nowSeconds, maxNumberToFind)
}

// ExpiringBeforeThreshold returns per-destination expiring-bundle reports
// for bundles of the given priority band expiring at or before
// thresholdSeconds.
func (e *Engine) ExpiringBeforeThreshold(priority int, thresholdSeconds uint64) []catalog.DestinationExpiringReport {
	return e.telemetry.ExpiringBeforeThreshold(priority, thresholdSeconds)
}

// RestoreResult reports what the startup restore scan found, or nil if
// TryRestoreFromDisk was disabled.
func (e *Engine) RestoreResult() *restore.Result {
	return e.restoreResult
}

// Close gracefully shuts down the engine and releases all associated
// resources. This method ensures that all pending disk workers drain
// before the engine becomes unusable.
func (e *Engine) Close() error {
	// Use atomic compare-and-swap to transition from open (false) to closed (true).
	// This operation is atomic and thread-safe, ensuring only one goroutine
	// can successfully close the engine.
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	if err := e.disk.Close(); err != nil {
		return err
	}

	if e.options.AutoDeleteFilesOnExit {
		for _, path := range e.options.StoreFilePaths {
			if err := filesys.DeleteFile(path); err != nil {
				e.log.Errorw("Failed to remove backing file on exit", "path", path, "error", err)
			}
		}
	}
	return nil
}
