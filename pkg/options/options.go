// Package options provides data structures and functions for configuring
// the bundle storage engine. It defines the parameters the core itself
// consumes — disk file paths, capacity, segment geometry, and restore
// behavior — leaving everything else (property-tree parsing, convergence
// layer addresses, routing policy) to external collaborators per the
// engine's scope.
package options

import (
	"strings"
)

// Options defines the configuration parameters for the bundle storage
// engine. It provides control over disk layout, segment geometry, and
// startup recovery behavior.
type Options struct {
	// DataDir is a directory the engine creates at startup if it does not
	// exist. StoreFilePaths are opened exactly as given and are not
	// resolved against it.
	//
	// Default: "/var/lib/dtnstore"
	DataDir string `json:"dataDir"`

	// StoreFilePaths is the ordered list of backing files, one per disk.
	// The slice index is the disk id; segment s resides on disk
	// s mod len(StoreFilePaths).
	StoreFilePaths []string `json:"storeFilePaths"`

	// TotalCapacityBytes is the aggregate capacity across all configured
	// disks. Each disk's segment region is
	// TotalCapacityBytes / len(StoreFilePaths) bytes; its backing file is
	// pre-sized to that plus a small recovery-record region.
	//
	// Default: 256 MiB
	TotalCapacityBytes uint64 `json:"totalCapacityBytes"`

	// SegmentSize is the fixed size of one segment in bytes, inclusive of
	// the 32-byte segment header. Must be a multiple of 4 KiB.
	//
	//  - Default: 4096
	//  - Minimum: 4096
	//  - Maximum: 16 MiB
	SegmentSize uint64 `json:"segmentSize"`

	// SegmentIDBits records a nextSegmentId width of 32 or 64. Nothing in
	// the engine reads it: the on-disk header always stores nextSegmentId
	// at 64-bit width, whatever this is set to.
	//
	// Default: 32
	SegmentIDBits int `json:"segmentIdBits"`

	// ReadCacheDepth is the number of upcoming segments in a chain that
	// TopSegment's read-ahead enqueues concurrently across disks.
	//
	// Default: 50
	ReadCacheDepth int `json:"readCacheDepth"`

	// RingDepth is the fixed depth of each disk's SPSC circular index
	// buffer.
	//
	// Default: 30
	RingDepth int `json:"ringDepth"`

	// TryRestoreFromDisk controls whether the engine runs the Restore
	// scan on startup to reconstruct allocator and catalog state from
	// the backing files.
	//
	// Default: true
	TryRestoreFromDisk bool `json:"tryRestoreFromDisk"`

	// AutoDeleteFilesOnExit removes the backing files on a clean engine
	// shutdown. Intended for ephemeral/test deployments.
	//
	// Default: false
	AutoDeleteFilesOnExit bool `json:"autoDeleteFilesOnExit"`
}

// OptionFunc is a function type that modifies the engine's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies a predefined set of default configuration
// values to the Options struct.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithDataDir sets the directory the engine creates at startup if it does
// not exist.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithStoreFilePaths sets the ordered list of per-disk backing files.
func WithStoreFilePaths(paths ...string) OptionFunc {
	return func(o *Options) {
		if len(paths) > 0 {
			o.StoreFilePaths = append([]string(nil), paths...)
		}
	}
}

// WithTotalCapacityBytes sets the aggregate capacity across all disks.
func WithTotalCapacityBytes(bytes uint64) OptionFunc {
	return func(o *Options) {
		if bytes > 0 {
			o.TotalCapacityBytes = bytes
		}
	}
}

// WithSegmentSize sets the fixed per-segment size in bytes.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size >= MinSegmentSize && size <= MaxSegmentSize && size%4096 == 0 {
			o.SegmentSize = size
		}
	}
}

// WithSegmentIDBits sets SegmentIDBits. Only 32 and 64 are accepted; any
// other value is ignored. The header encoding does not depend on it.
func WithSegmentIDBits(bits int) OptionFunc {
	return func(o *Options) {
		if bits == 32 || bits == 64 {
			o.SegmentIDBits = bits
		}
	}
}

// WithReadCacheDepth sets the read-ahead depth used by TopSegment.
func WithReadCacheDepth(depth int) OptionFunc {
	return func(o *Options) {
		if depth > 0 {
			o.ReadCacheDepth = depth
		}
	}
}

// WithRingDepth sets the depth of each disk's SPSC circular index buffer.
func WithRingDepth(depth int) OptionFunc {
	return func(o *Options) {
		if depth > 0 {
			o.RingDepth = depth
		}
	}
}

// WithTryRestoreFromDisk controls whether the engine reconstructs state
// from the backing files on startup.
func WithTryRestoreFromDisk(try bool) OptionFunc {
	return func(o *Options) {
		o.TryRestoreFromDisk = try
	}
}

// WithAutoDeleteFilesOnExit controls whether backing files are removed on
// clean shutdown.
func WithAutoDeleteFilesOnExit(autoDelete bool) OptionFunc {
	return func(o *Options) {
		o.AutoDeleteFilesOnExit = autoDelete
	}
}

// PayloadPerSegment returns the number of payload bytes available in one
// segment, i.e. SegmentSize minus the fixed 32-byte header.
func (o *Options) PayloadPerSegment() uint64 {
	return o.SegmentSize - SegmentHeaderSize
}

// NumDisks returns the number of configured backing disks.
func (o *Options) NumDisks() int {
	return len(o.StoreFilePaths)
}
