// Package queue implements the bounded, durable FIFO of event records
// awaiting delivery.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/storage"
)

const (
	// Capacity is the maximum number of queued records. Enqueue beyond
	// capacity is rejected; older entries are never evicted.
	Capacity = 100

	// StorageKey is the persisted document key.
	StorageKey = "linkforty.event_queue"
)

// Queue is an order-preserving list of pending EventRecords persisted as
// a single JSON document. The persisted form is loaded at most once per
// instance; a missing or corrupt document reads as empty.
type Queue struct {
	store  storage.Store
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	records []model.EventRecord
}

// New creates a Queue over the given store.
func New(store storage.Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		store:  store,
		logger: logger.With("component", "queue"),
	}
}

// Enqueue appends record and persists. Returns false without mutating
// state when the queue is full.
func (q *Queue) Enqueue(ctx context.Context, record model.EventRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)
	if len(q.records) >= Capacity {
		q.logger.Warn("offline queue full, dropping event", "event", record.EventName)
		return false
	}
	q.records = append(q.records, record)
	q.persist(ctx)
	return true
}

// Dequeue removes and returns the oldest record, or nil when empty.
func (q *Queue) Dequeue(ctx context.Context) *model.EventRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)
	if len(q.records) == 0 {
		return nil
	}
	record := q.records[0]
	q.records = q.records[1:]
	q.persist(ctx)
	return &record
}

// Peek returns a snapshot copy of the pending records.
func (q *Queue) Peek(ctx context.Context) []model.EventRecord {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)
	out := make([]model.EventRecord, len(q.records))
	copy(out, q.records)
	return out
}

// Clear drops all pending records and persists the empty state.
func (q *Queue) Clear(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loaded = true
	q.records = nil
	q.persist(ctx)
}

// Count returns the number of pending records.
func (q *Queue) Count(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.load(ctx)
	return len(q.records)
}

// IsEmpty reports whether no records are pending.
func (q *Queue) IsEmpty(ctx context.Context) bool {
	return q.Count(ctx) == 0
}

// load reads the persisted document once. Read or decode failures
// degrade to an empty queue, never an error. Callers hold q.mu.
func (q *Queue) load(ctx context.Context) {
	if q.loaded {
		return
	}
	q.loaded = true

	raw, ok, err := q.store.Get(ctx, StorageKey)
	if err != nil {
		q.logger.Warn("failed to load offline queue", "error", err)
		return
	}
	if !ok {
		return
	}
	var records []model.EventRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		q.logger.Warn("corrupt offline queue, starting empty", "error", err)
		return
	}
	q.records = records
}

// persist rewrites the document. Write failures are logged; the
// in-memory mutation stands for this instance. Callers hold q.mu.
func (q *Queue) persist(ctx context.Context) {
	data, err := json.Marshal(q.records)
	if err != nil {
		q.logger.Warn("failed to encode offline queue", "error", err)
		return
	}
	if err := q.store.Set(ctx, StorageKey, string(data)); err != nil {
		q.logger.Warn("failed to persist offline queue", "error", err)
	}
}
