package r2s3

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Uploader stores one local file under an object key.
type Uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

// Segment is a closed event-log file and the object key it ships under.
type Segment struct {
	Path string
	Key  string
}

type MirrorOptions struct {
	Prefix  string
	Workers int
	Queue   int
	// Wait bounds how long SegmentClosed blocks on a full queue before dropping.
	Wait     time.Duration
	Attempts int
	Backoff  time.Duration
}

func (o *MirrorOptions) applyDefaults() {
	o.Prefix = strings.Trim(strings.ReplaceAll(o.Prefix, "\\", "/"), "/")
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.Queue <= 0 {
		o.Queue = 1024
	}
	if o.Wait <= 0 {
		o.Wait = 25 * time.Millisecond
	}
	if o.Attempts <= 0 {
		o.Attempts = 4
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
}

type Stats struct {
	Pending     int
	Capacity    int
	Shipped     uint64
	Failed      uint64
	Dropped     uint64
	Skipped     uint64
	LastShipped time.Time
	LastError   string
}

// Mirror ships closed event-log segments from the data dir to object storage.
type Mirror struct {
	up     Uploader
	root   string
	opts   MirrorOptions
	logger *log.Logger

	queue  chan Segment
	wg     sync.WaitGroup
	once   sync.Once
	closed atomic.Bool

	shipped atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
	skipped atomic.Uint64

	mu          sync.Mutex
	lastShipped time.Time
	lastErr     string
}

func NewMirror(up Uploader, root string, opts MirrorOptions, logger *log.Logger) *Mirror {
	opts.applyDefaults()
	m := &Mirror{
		up:     up,
		root:   root,
		opts:   opts,
		logger: logger,
		queue:  make(chan Segment, opts.Queue),
	}
	for i := 0; i < opts.Workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	return m
}

// SegmentClosed queues a finished segment. It matches the event log's closed-segment hook,
// which runs on the world loop, so a saturated queue drops after opts.Wait.
func (m *Mirror) SegmentClosed(localPath string) { m.enqueue(localPath) }

// Backfill queues every segment under dir matching pattern except the newest,
// which the event log may still be writing. It returns how many were queued.
func (m *Mirror) Backfill(dir, pattern string) int {
	if m == nil {
		return 0
	}
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil || len(files) < 2 {
		return 0
	}
	sort.Strings(files)
	n := 0
	for _, f := range files[:len(files)-1] {
		if m.enqueue(f) {
			n++
		}
	}
	return n
}

func (m *Mirror) enqueue(localPath string) bool {
	if m == nil || m.closed.Load() {
		return false
	}
	key, err := m.segmentKey(localPath)
	if err != nil {
		m.skipped.Add(1)
		m.printf("mirror skip local=%s err=%v", localPath, err)
		return false
	}
	seg := Segment{Path: localPath, Key: key}

	select {
	case m.queue <- seg:
		return true
	default:
	}
	timer := time.NewTimer(m.opts.Wait)
	defer timer.Stop()
	select {
	case m.queue <- seg:
		return true
	case <-timer.C:
		n := m.dropped.Add(1)
		m.printf("mirror drop key=%s reason=queue_full dropped_total=%d", key, n)
		return false
	}
}

// Close stops accepting segments and waits for queued uploads.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.queue)
	})
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	last, lastErr := m.lastShipped, m.lastErr
	m.mu.Unlock()
	return Stats{
		Pending:     len(m.queue),
		Capacity:    cap(m.queue),
		Shipped:     m.shipped.Load(),
		Failed:      m.failed.Load(),
		Dropped:     m.dropped.Load(),
		Skipped:     m.skipped.Load(),
		LastShipped: last,
		LastError:   lastErr,
	}
}

func (m *Mirror) worker() {
	defer m.wg.Done()
	for seg := range m.queue {
		m.ship(seg)
	}
}

func (m *Mirror) ship(seg Segment) {
	var err error
	for attempt := 1; attempt <= m.opts.Attempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = m.up.PutFile(ctx, seg.Key, seg.Path)
		cancel()
		if err == nil {
			break
		}
		if attempt < m.opts.Attempts {
			time.Sleep(m.opts.Backoff << (attempt - 1))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed.Add(1)
		m.lastErr = err.Error()
		m.printf("mirror failed key=%s attempts=%d err=%v", seg.Key, m.opts.Attempts, err)
		return
	}
	m.shipped.Add(1)
	m.lastShipped = time.Now().UTC()
	m.printf("mirror shipped key=%s", seg.Key)
}

// segmentKey maps a file under the data dir to its object key, keeping the
// relative layout (<world>/events/<segment>) under the configured prefix.
func (m *Mirror) segmentKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	root, err := filepath.Abs(m.root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", abs, root)
	}
	if m.opts.Prefix == "" {
		return rel, nil
	}
	return path.Join(m.opts.Prefix, rel), nil
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
