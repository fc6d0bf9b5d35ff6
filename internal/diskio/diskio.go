package diskio

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/dtnstore/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Config holds the parameters required to build a Manager.
type Config struct {
	// FilePaths is the ordered list of backing files, one per disk. The
	// slice index is the disk id; segment s resides on disk
	// s mod len(FilePaths).
	FilePaths []string

	// BytesPerDisk is the pre-sized capacity of each backing file's
	// segment region. Every backing file additionally carries a small
	// fixed-location meta region past this offset (see metaRegionBytes)
	// that is never counted against a segment's payload capacity.
	BytesPerDisk uint64

	// SegmentSize is the fixed size of one segment in bytes, including
	// the header.
	SegmentSize uint64

	// RingDepth is the fixed depth of each disk's SPSC index ring.
	RingDepth int

	Logger *zap.SugaredLogger
}

// worker owns exactly one backing file and the SPSC ring feeding it. No
// other goroutine touches the file once the worker starts, per spec.md
// §5 ("Backing file: owned by one thread... no other thread touches it
// after startup").
type worker struct {
	diskIndex       int
	file            *os.File
	ring            *spscRing
	segmentSize     uint64
	numDisks        uint64
	metaRegionStart uint64
	log             *zap.SugaredLogger
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		req, ok := w.ring.pop()
		if !ok {
			return
		}
		w.process(req)
	}
}

// offsetFor computes the on-disk byte offset for a request. Segment
// requests land at the usual segmentId/numDisks*segmentSize offset within
// the segment region; meta requests land in the separate meta region past
// the end of the segment region, indexed the same way so every disk's
// local segment index has exactly one meta slot.
func (w *worker) offsetFor(req *ioRequest) int64 {
	local := req.segmentId / w.numDisks
	if req.target == targetMeta {
		return int64(w.metaRegionStart + local*PrimaryMetaSize)
	}
	return int64(local * w.segmentSize)
}

func (w *worker) process(req *ioRequest) {
	offset := w.offsetFor(req)

	switch req.dir {
	case directionWrite:
		n, err := w.file.WriteAt(req.buf, offset)
		if err != nil || n != len(req.buf) {
			w.log.Errorw(
				"Short or failed disk write",
				"disk", w.diskIndex, "segmentId", req.segmentId, "wrote", n, "want", len(req.buf), "error", err,
			)
		}
	case directionRead:
		n, err := w.file.ReadAt(req.buf, offset)
		req.n = n
		if err != nil && n != len(req.buf) {
			req.err = errors.NewShortIOError(w.diskIndex, req.segmentId, len(req.buf), n)
			w.log.Errorw(
				"Short or failed disk read",
				"disk", w.diskIndex, "segmentId", req.segmentId, "read", n, "want", len(req.buf), "error", err,
			)
		}
		close(req.done)
	}
}

// Manager fans segment I/O out to N per-disk workers, one goroutine and
// one SPSC ring per backing file, per spec.md §4.3.
type Manager struct {
	workers     []*worker
	numDisks    uint64
	segmentSize uint64
	wg          sync.WaitGroup
	closed      atomic.Bool
	log         *zap.SugaredLogger
}

// Open creates (or opens) and pre-sizes every backing file, starts one
// worker goroutine per disk, and returns a ready Manager.
func Open(config *Config) (*Manager, error) {
	if config == nil || len(config.FilePaths) == 0 || config.SegmentSize == 0 || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "disk I/O configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	m := &Manager{
		numDisks:    uint64(len(config.FilePaths)),
		segmentSize: config.SegmentSize,
		log:         config.Logger,
	}

	segmentsPerDisk := config.BytesPerDisk / config.SegmentSize
	metaRegionBytes := segmentsPerDisk * PrimaryMetaSize
	totalBytes := config.BytesPerDisk + metaRegionBytes

	for i, path := range config.FilePaths {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			m.closeOpened()
			return nil, errors.NewEngineError(err, errors.ErrorCodeShortIO, "failed to open backing file").
				WithDiskIndex(i).
				WithOperation("Open").
				WithDetail("path", path)
		}
		if err := preSize(file, config.BytesPerDisk, totalBytes, config.SegmentSize); err != nil {
			file.Close()
			m.closeOpened()
			return nil, errors.NewEngineError(err, errors.ErrorCodeShortIO, "failed to pre-size backing file").
				WithDiskIndex(i).
				WithOperation("Open").
				WithDetail("path", path)
		}

		w := &worker{
			diskIndex:       i,
			file:            file,
			ring:            newSPSCRing(config.RingDepth),
			segmentSize:     config.SegmentSize,
			numDisks:        m.numDisks,
			metaRegionStart: config.BytesPerDisk,
			log:             config.Logger,
		}
		m.workers = append(m.workers, w)
		m.wg.Add(1)
		go w.run(&m.wg)
	}

	m.log.Infow("Disk I/O manager initialized", "numDisks", len(config.FilePaths), "bytesPerDisk", config.BytesPerDisk)
	return m, nil
}

// preSize grows file to totalBytes if it is smaller, then stamps every
// newly added segment within the segment region (bounded by
// segmentRegionBytes, which excludes the trailing meta region) with the
// tombstone/non-head sentinel. Without this, a freshly extended region
// reads back as all zero bytes — indistinguishable from a legitimate
// bundleSizeBytes of 0 — and Restore would mistake untouched space for
// live bundles. The meta region needs no such stamp: it is only ever
// consulted for a segment id Restore has already validated as a live
// chain head via its header.
func preSize(file *os.File, segmentRegionBytes, totalBytes, segmentSize uint64) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}
	oldSize := uint64(info.Size())
	if oldSize < totalBytes {
		if err := file.Truncate(int64(totalBytes)); err != nil {
			return err
		}
	}
	if oldSize >= segmentRegionBytes {
		return nil
	}
	return stampUnwrittenSegments(file, oldSize, segmentRegionBytes, segmentSize)
}

// stampUnwrittenSegments writes the all-ones sentinel into the
// bundleSizeBytes field of every segment boundary in [from, to).
func stampUnwrittenSegments(file *os.File, from, to, segmentSize uint64) error {
	marker := make([]byte, 8)
	for i := range marker {
		marker[i] = 0xFF
	}

	start := ((from + segmentSize - 1) / segmentSize) * segmentSize
	for offset := start; offset+8 <= to; offset += segmentSize {
		if _, err := file.WriteAt(marker, int64(offset)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) closeOpened() {
	for _, w := range m.workers {
		w.file.Close()
	}
}

// WriteSegment enqueues a fire-and-forget write of exactly one
// segmentSize buffer to the disk owning segmentId. It blocks only long
// enough to acquire a ring slot (backpressure), never for the write
// itself to complete, per spec.md §4.3's write path.
func (m *Manager) WriteSegment(segmentId uint64, buf []byte) error {
	return m.write(segmentId, targetSegment, buf)
}

// ReadSegment enqueues a read of exactly one segmentSize buffer and
// blocks until the owning disk's worker completes it, per spec.md §4.3's
// read path (one call per segment; TopSegment issues ReadCacheDepth of
// these concurrently for read-ahead).
func (m *Manager) ReadSegment(segmentId uint64, buf []byte) (int, error) {
	return m.read(segmentId, targetSegment, buf)
}

// WriteMeta enqueues a fire-and-forget write of a chain head's recovery
// record into the disk's meta region. Like WriteSegment, it flows through
// the same per-disk worker and ring so the backing file is still only
// ever touched by its owning worker goroutine.
func (m *Manager) WriteMeta(segmentId uint64, buf []byte) error {
	return m.write(segmentId, targetMeta, buf)
}

// ReadMeta blocks until the owning disk's worker has read back the
// recovery record for segmentId's meta slot.
func (m *Manager) ReadMeta(segmentId uint64, buf []byte) (int, error) {
	return m.read(segmentId, targetMeta, buf)
}

func (m *Manager) write(segmentId uint64, target ioTarget, buf []byte) error {
	if m.closed.Load() {
		return errors.NewEngineError(nil, errors.ErrorCodeShortIO, "disk I/O manager is shut down").
			WithSegmentID(segmentId).WithOperation("write")
	}

	w := m.workers[segmentId%m.numDisks]
	req := &ioRequest{segmentId: segmentId, dir: directionWrite, target: target, buf: buf}
	if !w.ring.push(req) {
		return errors.NewEngineError(nil, errors.ErrorCodeShortIO, "disk I/O manager is shut down").
			WithSegmentID(segmentId).WithOperation("write")
	}
	return nil
}

func (m *Manager) read(segmentId uint64, target ioTarget, buf []byte) (int, error) {
	if m.closed.Load() {
		return 0, errors.NewEngineError(nil, errors.ErrorCodeShortIO, "disk I/O manager is shut down").
			WithSegmentID(segmentId).WithOperation("read")
	}

	w := m.workers[segmentId%m.numDisks]
	req := &ioRequest{segmentId: segmentId, dir: directionRead, target: target, buf: buf, done: make(chan struct{})}
	if !w.ring.push(req) {
		return 0, errors.NewEngineError(nil, errors.ErrorCodeShortIO, "disk I/O manager is shut down").
			WithSegmentID(segmentId).WithOperation("read")
	}

	<-req.done
	return req.n, req.err
}

// NumDisks returns the number of backing disks this manager owns.
func (m *Manager) NumDisks() int {
	return int(m.numDisks)
}

// Close signals every disk worker to drain and stop, joins them, and
// closes every backing file. Calls after the first do nothing and return
// nil.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	for _, w := range m.workers {
		w.ring.close()
	}
	m.wg.Wait()

	var err error
	for _, w := range m.workers {
		err = multierr.Append(err, w.file.Close())
	}
	return err
}
