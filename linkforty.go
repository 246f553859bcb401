// Package linkforty is the client SDK for LinkForty attribution, event
// tracking and deep linking.
//
// The embedding application constructs one Client per process, injects
// its collaborators through Options, calls Init once at startup and
// passes the instance to call sites explicitly; there is no package
// singleton.
package linkforty

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/LinkForty/linkforty-go/internal/attribution"
	"github.com/LinkForty/linkforty-go/internal/deeplink"
	"github.com/LinkForty/linkforty-go/internal/events"
	"github.com/LinkForty/linkforty-go/internal/fingerprint"
	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/queue"
	"github.com/LinkForty/linkforty-go/internal/sdkerr"
	"github.com/LinkForty/linkforty-go/internal/storage"
	"github.com/LinkForty/linkforty-go/internal/transport"
)

// Domain types re-exported for the embedding application.
type (
	LinkData          = model.LinkData
	UTMParameters     = model.UTMParameters
	AttributionResult = model.AttributionResult
	EventRecord       = model.EventRecord
	FingerprintRecord = model.FingerprintRecord
	CreateLinkInput   = model.CreateLinkInput
	CreatedLink       = model.CreatedLink

	// DeepLinkCallback receives link data; nil means organic.
	DeepLinkCallback = deeplink.Callback
	// URLSource is the OS-level link-open delivery mechanism.
	URLSource = deeplink.URLSource
	// Store is the durable key/value capability.
	Store = storage.Store
	// DeviceInfo is the device introspection capability.
	DeviceInfo = fingerprint.DeviceInfo
)

// Options carries optional collaborator overrides. Zero values select
// defaults: a file store under the user cache directory, the tuned HTTP
// client, host-derived device info and slog's default logger.
type Options struct {
	Logger     *slog.Logger
	Store      storage.Store
	HTTPClient *http.Client
	Device     fingerprint.DeviceInfo
}

// Client is the SDK entry point. All operations are safe for concurrent
// use; callbacks fire synchronously on the calling goroutine in
// registration order.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	transport   *transport.Client
	store       storage.Store
	queue       *queue.Queue
	events      *events.Dispatcher
	attribution *attribution.Coordinator
	deeplinks   *deeplink.Dispatcher
}

// New validates cfg and wires the SDK components.
func New(cfg Config, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("sdk", "linkforty")

	store := opts.Store
	if store == nil {
		fileStore, err := storage.NewFile(defaultStatePath())
		if err != nil {
			logger.Warn("file store unavailable, state will not survive restarts", "error", err)
			store = storage.NewMemory()
		} else {
			store = fileStore
		}
	}

	device := opts.Device
	if device == nil {
		device = fingerprint.Host(cfg.AppVersion)
	}

	tr := transport.New(cfg.BaseURL, cfg.APIKey, opts.HTTPClient, logger)
	collector := fingerprint.NewCollector(device)
	q := queue.New(store, logger)
	coordinator := attribution.New(tr, store, collector, logger)

	return &Client{
		cfg:         cfg,
		logger:      logger,
		transport:   tr,
		store:       store,
		queue:       q,
		events:      events.New(tr, q, coordinator, logger),
		attribution: coordinator,
		deeplinks:   deeplink.New(tr, collector, cfg.BaseURL, logger),
	}, nil
}

// Init runs install attribution once and feeds the outcome's link data
// (nil for organic) into the deferred deep-link latch. A second call
// fails with ALREADY_INITIALIZED; a reset client with NOT_INITIALIZED.
func (c *Client) Init(ctx context.Context) (*AttributionResult, error) {
	c.mu.Lock()
	if c.attribution == nil {
		c.mu.Unlock()
		return nil, sdkerr.New(sdkerr.CodeNotInitialized, "client has been reset")
	}
	if c.initialized {
		c.mu.Unlock()
		return nil, sdkerr.New(sdkerr.CodeAlreadyInitialized, "Init already called")
	}
	c.initialized = true
	coordinator := c.attribution
	dispatcher := c.deeplinks
	c.mu.Unlock()

	result := coordinator.ReportInstall(ctx, c.cfg.windowHours(), c.cfg.DeviceID)
	dispatcher.DeliverDeferredDeepLink(result.LinkData)
	return result, nil
}

// TrackEvent reports a named event with optional properties.
func (c *Client) TrackEvent(ctx context.Context, name string, properties map[string]any) error {
	dispatcher, err := c.eventDispatcher()
	if err != nil {
		return err
	}
	return dispatcher.TrackEvent(ctx, name, properties)
}

// TrackRevenue reports a revenue event.
func (c *Client) TrackRevenue(ctx context.Context, amount float64, currency string, properties map[string]any) error {
	dispatcher, err := c.eventDispatcher()
	if err != nil {
		return err
	}
	return dispatcher.TrackRevenue(ctx, amount, currency, properties)
}

// FlushQueue attempts delivery of queued events in FIFO order, stopping
// at the first failure.
func (c *Client) FlushQueue(ctx context.Context) error {
	dispatcher, err := c.eventDispatcher()
	if err != nil {
		return err
	}
	return dispatcher.FlushQueue(ctx)
}

// ClearQueue drops all queued events.
func (c *Client) ClearQueue(ctx context.Context) error {
	dispatcher, err := c.eventDispatcher()
	if err != nil {
		return err
	}
	dispatcher.ClearQueue(ctx)
	return nil
}

// QueuedEventCount returns the number of events awaiting delivery; zero
// after Reset.
func (c *Client) QueuedEventCount(ctx context.Context) int {
	dispatcher, err := c.eventDispatcher()
	if err != nil {
		return 0
	}
	return dispatcher.QueuedEventCount(ctx)
}

// OnDeferredDeepLink registers cb for the install-click payload. When
// attribution already completed, cb fires immediately with the cached
// payload.
func (c *Client) OnDeferredDeepLink(cb DeepLinkCallback) {
	if dispatcher := c.deepLinkDispatcher(); dispatcher != nil {
		dispatcher.OnDeferredDeepLink(cb)
	}
}

// OnDeepLink registers cb for URLs opened while the app is running.
func (c *Client) OnDeepLink(cb DeepLinkCallback) {
	if dispatcher := c.deepLinkDispatcher(); dispatcher != nil {
		dispatcher.OnDeepLink(cb)
	}
}

// HandleDeepLink dispatches an incoming URL to the direct callbacks.
func (c *Client) HandleDeepLink(ctx context.Context, url string) {
	if dispatcher := c.deepLinkDispatcher(); dispatcher != nil {
		dispatcher.HandleDeepLink(ctx, url)
	}
}

// Listen subscribes the client to an external URL source; Reset detaches
// it.
func (c *Client) Listen(source URLSource) {
	if dispatcher := c.deepLinkDispatcher(); dispatcher != nil {
		dispatcher.Attach(source)
	}
}

// ParseDeepLink parses url locally against the configured base URL.
func (c *Client) ParseDeepLink(url string) (*LinkData, error) {
	data := deeplink.ParseDeepLinkURL(url, c.cfg.BaseURL)
	if data == nil {
		return nil, sdkerr.New(sdkerr.CodeInvalidDeepLinkURL, "url does not parse against the configured base URL")
	}
	return data, nil
}

// ClearCallbacks empties both deep-link registries and resets the
// deferred latch.
func (c *Client) ClearCallbacks() {
	if dispatcher := c.deepLinkDispatcher(); dispatcher != nil {
		dispatcher.ClearCallbacks()
	}
}

// CreateLink creates a tracked short link. Requires an API key. Links
// with a template id are created through the template endpoint.
func (c *Client) CreateLink(ctx context.Context, input CreateLinkInput) (*CreatedLink, error) {
	c.mu.Lock()
	tr := c.transport
	c.mu.Unlock()
	if tr == nil {
		return nil, sdkerr.New(sdkerr.CodeNotInitialized, "client has been reset")
	}
	if c.cfg.APIKey == "" {
		return nil, sdkerr.New(sdkerr.CodeMissingAPIKey, "link creation requires an API key")
	}
	if _, err := url.ParseRequestURI(input.TargetURL); err != nil {
		return nil, sdkerr.New(sdkerr.CodeInvalidDeepLinkURL, "targetUrl is not a valid URL")
	}

	path := transport.PathLinks
	if input.TemplateID != "" {
		path = transport.PathTemplateLinks
	}
	var created CreatedLink
	if err := tr.Request(ctx, http.MethodPost, path, input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetInstallID returns the cached install identifier, empty when absent.
func (c *Client) GetInstallID(ctx context.Context) string {
	coordinator := c.coordinator()
	if coordinator == nil {
		return ""
	}
	return coordinator.GetInstallID(ctx)
}

// GetInstallData returns the cached attribution link data, nil when
// absent.
func (c *Client) GetInstallData(ctx context.Context) *LinkData {
	coordinator := c.coordinator()
	if coordinator == nil {
		return nil
	}
	return coordinator.GetInstallData(ctx)
}

// IsFirstLaunch reports whether this process is the first recorded
// launch.
func (c *Client) IsFirstLaunch(ctx context.Context) bool {
	coordinator := c.coordinator()
	if coordinator == nil {
		return true
	}
	return coordinator.IsFirstLaunch(ctx)
}

// ClearData wipes persisted attribution state and the offline event
// queue.
func (c *Client) ClearData(ctx context.Context) {
	c.mu.Lock()
	coordinator := c.attribution
	q := c.queue
	c.mu.Unlock()
	if coordinator != nil {
		coordinator.ClearData(ctx)
	}
	if q != nil {
		q.Clear(ctx)
	}
}

// Reset tears the client down: the URL subscription is detached, both
// callback registries and the deferred latch are cleared and every
// sub-component reference is dropped. Subsequent operations fail with
// NOT_INITIALIZED until a new Client is constructed.
func (c *Client) Reset() {
	c.mu.Lock()
	dispatcher := c.deeplinks
	c.transport = nil
	c.store = nil
	c.queue = nil
	c.events = nil
	c.attribution = nil
	c.deeplinks = nil
	c.initialized = false
	c.mu.Unlock()

	if dispatcher != nil {
		dispatcher.Cleanup()
	}
}

func (c *Client) eventDispatcher() (*events.Dispatcher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.events == nil {
		return nil, sdkerr.New(sdkerr.CodeNotInitialized, "client has been reset")
	}
	return c.events, nil
}

func (c *Client) deepLinkDispatcher() *deeplink.Dispatcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deeplinks
}

func (c *Client) coordinator() *attribution.Coordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attribution
}

// defaultStatePath places the default file store under the user cache
// directory, falling back to the system temp directory.
func defaultStatePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "linkforty", "state.json")
}
