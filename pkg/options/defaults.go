package options

const (
	// DefaultSegmentSize is the default size of a segment in bytes, the
	// unit of disk allocation for the bundle storage engine. Must be a
	// multiple of 4 KiB.
	DefaultSegmentSize uint64 = 4096

	// MinSegmentSize is the smallest segment size the engine accepts.
	MinSegmentSize uint64 = 4096

	// MaxSegmentSize caps segment size to keep chain lengths and
	// read-ahead buffers reasonably sized.
	MaxSegmentSize uint64 = 16 * 1024 * 1024

	// SegmentHeaderSize is the fixed width of the on-disk segment header
	// (bundleSizeBytes + custodyId + nextSegmentId at 64-bit width).
	SegmentHeaderSize uint64 = 32

	// DefaultSegmentIDBits is the default value of Options.SegmentIDBits.
	// The header codec does not read it: nextSegmentId is always stored at
	// 64-bit width.
	DefaultSegmentIDBits = 32

	// DefaultTotalCapacityBytes is the default aggregate capacity across
	// all configured disks.
	DefaultTotalCapacityBytes uint64 = 256 * 1024 * 1024

	// DefaultReadCacheDepth is the default number of segments read ahead
	// per pop session.
	DefaultReadCacheDepth = 50

	// DefaultRingDepth is the default depth of each disk's SPSC index ring.
	DefaultRingDepth = 30

	// DefaultDataDir is the default DataDir. It does not supply backing
	// file locations: StoreFilePaths has no default, and the engine does
	// not start without at least one.
	DefaultDataDir = "/var/lib/dtnstore"
)

// Holds the default configuration settings for a bundle storage engine
// instance.
var defaultOptions = Options{
	DataDir:               DefaultDataDir,
	SegmentSize:           DefaultSegmentSize,
	SegmentIDBits:         DefaultSegmentIDBits,
	TotalCapacityBytes:    DefaultTotalCapacityBytes,
	ReadCacheDepth:        DefaultReadCacheDepth,
	RingDepth:             DefaultRingDepth,
	TryRestoreFromDisk:    true,
	AutoDeleteFilesOnExit: false,
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	opts := defaultOptions
	opts.StoreFilePaths = append([]string(nil), defaultOptions.StoreFilePaths...)
	return opts
}
