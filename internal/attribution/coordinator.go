// Package attribution implements install reporting: first-launch
// detection, fingerprint submission and caching of the attribution
// outcome for later launches.
package attribution

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/LinkForty/linkforty-go/internal/fingerprint"
	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/storage"
	"github.com/LinkForty/linkforty-go/internal/transport"
)

// Persisted keys.
const (
	KeyInstallID   = "linkforty.install_id"
	KeyInstallData = "linkforty.install_data"
	KeyLaunched    = "linkforty.launched"
)

// Sender is the transport capability used for install reporting.
type Sender interface {
	Request(ctx context.Context, method, path string, body, out any) error
}

// Coordinator runs the install-attribution state machine. Storage read
// failures degrade to absence, so a broken store looks like a fresh,
// organic install rather than an error.
type Coordinator struct {
	transport Sender
	store     storage.Store
	collector *fingerprint.Collector
	logger    *slog.Logger
}

// New creates a Coordinator.
func New(sender Sender, store storage.Store, collector *fingerprint.Collector, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		transport: sender,
		store:     store,
		collector: collector,
		logger:    logger.With("component", "attribution"),
	}
}

// ReportInstall reports the install on first launch and synthesizes the
// cached result on repeat launches. Transport and fingerprint failures
// degrade to an organic result; the launch still counts as having
// happened.
func (c *Coordinator) ReportInstall(ctx context.Context, attributionWindowHours float64, deviceID string) *model.AttributionResult {
	if !c.IsFirstLaunch(ctx) {
		data := c.GetInstallData(ctx)
		result := &model.AttributionResult{
			InstallID:      c.GetInstallID(ctx),
			Attributed:     data != nil,
			MatchedFactors: []string{},
			LinkData:       data,
		}
		if result.Attributed {
			result.ConfidenceScore = 100
		}
		return result
	}

	fp, err := c.collector.Collect(ctx, attributionWindowHours, deviceID)
	if err != nil {
		c.logger.Warn("fingerprint collection failed, treating install as organic", "error", err)
		c.markLaunched(ctx)
		return organicResult()
	}

	var result model.AttributionResult
	if err := c.transport.Request(ctx, http.MethodPost, transport.PathInstall, fp, &result); err != nil {
		c.logger.Warn("install report failed, treating install as organic", "error", err)
		c.markLaunched(ctx)
		return organicResult()
	}

	if result.InstallID != "" {
		c.set(ctx, KeyInstallID, result.InstallID)
	}
	if result.MatchedFactors == nil {
		result.MatchedFactors = []string{}
	}
	if result.Attributed && result.LinkData != nil {
		normalized := result.LinkData.Normalize()
		result.LinkData = normalized
		if raw, err := json.Marshal(normalized); err == nil {
			c.set(ctx, KeyInstallData, string(raw))
		}
	}
	c.markLaunched(ctx)

	c.logger.Info("install reported",
		"install_id", result.InstallID,
		"attributed", result.Attributed,
		"confidence", result.ConfidenceScore,
	)
	return &result
}

// GetInstallID returns the cached install identifier, empty when absent.
func (c *Coordinator) GetInstallID(ctx context.Context) string {
	v, ok, err := c.store.Get(ctx, KeyInstallID)
	if err != nil || !ok {
		return ""
	}
	return v
}

// GetInstallData returns the cached link data, nil when absent or
// undecodable.
func (c *Coordinator) GetInstallData(ctx context.Context) *model.LinkData {
	raw, ok, err := c.store.Get(ctx, KeyInstallData)
	if err != nil || !ok {
		return nil
	}
	var data model.LinkData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		c.logger.Warn("corrupt cached link data", "error", err)
		return nil
	}
	return &data
}

// IsFirstLaunch reports whether no launch has been recorded yet. The
// flag is presence-based.
func (c *Coordinator) IsFirstLaunch(ctx context.Context) bool {
	_, ok, err := c.store.Get(ctx, KeyLaunched)
	if err != nil {
		return true
	}
	return !ok
}

// ClearData wipes all persisted attribution state. The offline event
// queue is a separate concern cleared by the enclosing SDK.
func (c *Coordinator) ClearData(ctx context.Context) {
	for _, key := range []string{KeyInstallID, KeyInstallData, KeyLaunched} {
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("failed to clear attribution key", "key", key, "error", err)
		}
	}
}

func (c *Coordinator) markLaunched(ctx context.Context) {
	c.set(ctx, KeyLaunched, "1")
}

func (c *Coordinator) set(ctx context.Context, key, value string) {
	if err := c.store.Set(ctx, key, value); err != nil {
		c.logger.Warn("failed to persist attribution state", "key", key, "error", err)
	}
}

func organicResult() *model.AttributionResult {
	return &model.AttributionResult{
		InstallID:      "",
		Attributed:     false,
		MatchedFactors: []string{},
		LinkData:       nil,
	}
}
