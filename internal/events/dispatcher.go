// Package events builds and delivers tracking events, falling back to the
// offline queue when the network is unavailable.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/queue"
	"github.com/LinkForty/linkforty-go/internal/sdkerr"
	"github.com/LinkForty/linkforty-go/internal/transport"
)

// Sender is the transport capability the dispatcher delivers through.
type Sender interface {
	Request(ctx context.Context, method, path string, body, out any) error
}

// InstallSource yields the cached install identifier, empty when none
// has been reported yet.
type InstallSource interface {
	GetInstallID(ctx context.Context) string
}

// Dispatcher sends events immediately and drains the offline queue
// opportunistically after each successful send.
type Dispatcher struct {
	transport Sender
	queue     *queue.Queue
	installs  InstallSource
	logger    *slog.Logger

	// now is swapped out in tests for deterministic timestamps.
	now func() time.Time
}

// New creates a Dispatcher.
func New(sender Sender, q *queue.Queue, installs InstallSource, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		transport: sender,
		queue:     q,
		installs:  installs,
		logger:    logger.With("component", "events"),
		now:       time.Now,
	}
}

// TrackEvent reports a named event. On send failure the record is queued
// exactly once and the original failure is returned.
func (d *Dispatcher) TrackEvent(ctx context.Context, name string, properties map[string]any) error {
	if strings.TrimSpace(name) == "" {
		return sdkerr.New(sdkerr.CodeInvalidEventData, "event name must not be empty")
	}
	installID := d.installs.GetInstallID(ctx)
	if installID == "" {
		return sdkerr.New(sdkerr.CodeNotInitialized, "no install id: call Init first")
	}

	record := model.NewEventRecord(installID, name, properties, d.now())

	if err := d.transport.Request(ctx, http.MethodPost, transport.PathEvent, record, nil); err != nil {
		d.queue.Enqueue(ctx, record)
		return err
	}

	// Courtesy drain; its failures stay out of the caller's result.
	if err := d.FlushQueue(ctx); err != nil {
		d.logger.Debug("queue flush after send failed", "error", err)
	}
	return nil
}

// TrackRevenue reports a revenue event with amount and currency merged
// into the caller's properties.
func (d *Dispatcher) TrackRevenue(ctx context.Context, amount float64, currency string, properties map[string]any) error {
	if amount < 0 {
		return sdkerr.New(sdkerr.CodeInvalidEventData, "revenue amount must not be negative")
	}
	merged := make(map[string]any, len(properties)+2)
	for k, v := range properties {
		merged[k] = v
	}
	merged["revenue"] = amount
	merged["currency"] = currency
	return d.TrackEvent(ctx, "revenue", merged)
}

// FlushQueue sends queued records in FIFO order. The first failed record
// is re-enqueued at the tail and flushing stops for this call; records
// sent before the failure stay removed.
func (d *Dispatcher) FlushQueue(ctx context.Context) error {
	for {
		record := d.queue.Dequeue(ctx)
		if record == nil {
			return nil
		}
		if err := d.transport.Request(ctx, http.MethodPost, transport.PathEvent, record, nil); err != nil {
			d.queue.Enqueue(ctx, *record)
			return err
		}
	}
}

// ClearQueue drops all queued records.
func (d *Dispatcher) ClearQueue(ctx context.Context) {
	d.queue.Clear(ctx)
}

// QueuedEventCount returns the number of records awaiting delivery.
func (d *Dispatcher) QueuedEventCount(ctx context.Context) int {
	return d.queue.Count(ctx)
}
