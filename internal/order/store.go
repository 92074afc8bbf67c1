package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotDurable flags a mutation that was applied to the in-memory set
// but could not be flushed to disk after retries. The returned record
// is still valid for the remainder of the process lifetime.
var ErrNotDurable = errors.New("order set not durably persisted")

type Health struct {
	Healthy     bool   `json:"healthy"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

type Repository interface {
	Save(ctx context.Context, o *Order) (*Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	ListAll(ctx context.Context) ([]Order, error)
	ListByStatus(ctx context.Context, st Status) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) (*Order, error)
	HealthCheck(ctx context.Context) Health
}

type StoreOptions struct {
	MaxRecords   int           // retention cap, oldest dropped beyond it
	CacheTTL     time.Duration // reads within the window skip the file
	WriteRetries int
	RetryDelay   time.Duration
}

// FileStore keeps the full order set as one pretty-printed JSON array on
// disk, with a sibling .bak holding the previous generation. A single
// mutex serializes all cache+file access so concurrent mutations cannot
// lose each other's writes.
type FileStore struct {
	path         string
	bakPath      string
	maxRecords   int
	cacheTTL     time.Duration
	writeRetries int
	retryDelay   time.Duration
	log          *zap.Logger

	mu           sync.Mutex
	cache        []Order
	cacheAt      time.Time
	lastWriteErr error
}

func NewFileStore(path string, opts StoreOptions, log *zap.Logger) *FileStore {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = 5000
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Second
	}
	if opts.WriteRetries <= 0 {
		opts.WriteRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 150 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		path:         path,
		bakPath:      path + ".bak",
		maxRecords:   opts.MaxRecords,
		cacheTTL:     opts.CacheTTL,
		writeRetries: opts.WriteRetries,
		retryDelay:   opts.RetryDelay,
		log:          log,
	}
}

func (s *FileStore) Save(ctx context.Context, o *Order) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	now := time.Now().UTC()

	stored := *o
	stored.UpdatedAt = now
	if stored.InternalID == "" {
		stored.InternalID = stored.OrderID
	}

	if i := indexOf(records, stored.OrderID); i >= 0 {
		// overwrite wins on every field except the original creation time
		stored.CreatedAt = records[i].CreatedAt
		records[i] = stored
	} else {
		if stored.CreatedAt.IsZero() {
			stored.CreatedAt = now
		}
		records = append(records, stored)
	}

	records = s.trim(records)
	s.setCache(records)

	if err := s.persist(records); err != nil {
		return &stored, fmt.Errorf("%w: %v", ErrNotDurable, err)
	}
	return &stored, nil
}

func (s *FileStore) GetByID(ctx context.Context, id string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	if i := indexOf(records, id); i >= 0 {
		cp := records[i]
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *FileStore) ListAll(ctx context.Context) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := append([]Order(nil), s.load()...)
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) ListByStatus(ctx context.Context, st Status) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Order
	for _, o := range s.load() {
		if o.Status == st {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// UpdateStatus is the only mutation path after creation; it rewrites the
// status field and updated_at, nothing else. Transition rules are the
// coordinator's job, not the store's.
func (s *FileStore) UpdateStatus(ctx context.Context, id string, st Status) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	i := indexOf(records, id)
	if i < 0 {
		return nil, ErrNotFound
	}

	cp := records[i]
	cp.Status = st
	cp.UpdatedAt = time.Now().UTC()
	records[i] = cp
	s.setCache(records)

	if err := s.persist(records); err != nil {
		return &cp, fmt.Errorf("%w: %v", ErrNotDurable, err)
	}
	return &cp, nil
}

func (s *FileStore) HealthCheck(ctx context.Context) Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.load()
	h := Health{Healthy: true, RecordCount: len(records)}
	if s.lastWriteErr != nil {
		h.Healthy = false
		h.Error = s.lastWriteErr.Error()
	}
	return h
}

// load returns the current record set, serving from the cache while it
// is fresh. Callers must hold the mutex. Reads never fail outward: a
// broken canonical file falls back to the backup (re-persisted as the
// new canonical when it recovers records), and a total failure degrades
// to whatever the cache last held.
func (s *FileStore) load() []Order {
	if !s.cacheAt.IsZero() && time.Since(s.cacheAt) < s.cacheTTL {
		return s.cache
	}

	records, err := readDocument(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("order file unreadable, trying backup",
				zap.String("path", s.path), zap.Error(err))
		}
		backup, berr := readDocument(s.bakPath)
		if berr == nil && len(backup) > 0 {
			s.log.Info("recovered order set from backup",
				zap.Int("records", len(backup)))
			if werr := atomicWrite(s.path, mustMarshal(backup)); werr != nil {
				s.log.Warn("failed to restore canonical order file", zap.Error(werr))
			}
			records = backup
		} else if errors.Is(err, os.ErrNotExist) {
			records = nil
		} else {
			// degrade to the last known set without refreshing the TTL
			return s.cache
		}
	}

	s.setCache(records)
	return records
}

func (s *FileStore) setCache(records []Order) {
	s.cache = records
	s.cacheAt = time.Now()
}

// persist writes the full set via write-temp-then-rename so a reader can
// never observe a half-written document. The previous canonical file is
// copied aside first, best effort.
func (s *FileStore) persist(records []Order) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		s.lastWriteErr = err
		return err
	}

	if prev, rerr := os.ReadFile(s.path); rerr == nil {
		if werr := os.WriteFile(s.bakPath, prev, 0o644); werr != nil {
			s.log.Warn("order backup write failed", zap.Error(werr))
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.writeRetries; attempt++ {
		if attempt > 1 {
			time.Sleep(s.retryDelay)
		}
		if lastErr = atomicWrite(s.path, data); lastErr == nil {
			s.lastWriteErr = nil
			return nil
		}
		s.log.Warn("order file write failed",
			zap.Int("attempt", attempt), zap.Error(lastErr))
	}
	s.lastWriteErr = lastErr
	return lastErr
}

// trim enforces the retention cap, dropping the oldest records by
// created_at. Lists hand out copies of a snapshot taken under the lock,
// so a record already visible to an in-flight read is never clawed back.
func (s *FileStore) trim(records []Order) []Order {
	if len(records) <= s.maxRecords {
		return records
	}
	sortNewestFirst(records)
	dropped := len(records) - s.maxRecords
	s.log.Info("retention cap reached, dropping oldest orders",
		zap.Int("dropped", dropped), zap.Int("cap", s.maxRecords))
	return records[:s.maxRecords]
}

func indexOf(records []Order, id string) int {
	for i, o := range records {
		if o.OrderID == id {
			return i
		}
	}
	for i, o := range records {
		if o.InternalID == id {
			return i
		}
	}
	return -1
}

func sortNewestFirst(records []Order) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

func readDocument(path string) ([]Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Order
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func mustMarshal(records []Order) []byte {
	data, _ := json.MarshalIndent(records, "", "  ")
	return data
}
