package deeplink

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/LinkForty/linkforty-go/internal/fingerprint"
	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/transport"
)

// resolveWindowHours is the fixed attribution window sent with click
// resolution, independent of the configured install window.
const resolveWindowHours = 168

// Callback receives link data; nil means organic / no match.
type Callback func(*model.LinkData)

// Resolver is the transport capability used for server-side resolution.
type Resolver interface {
	Request(ctx context.Context, method, path string, body, out any) error
}

// URLSource is the OS-level mechanism delivering incoming link URLs to
// the running application.
type URLSource interface {
	// Subscribe registers fn for every incoming URL and returns an
	// unsubscribe function.
	Subscribe(fn func(url string)) (unsubscribe func())
}

// deferredEntry tracks whether a callback has already received the
// deferred payload, so a re-armed delivery skips it.
type deferredEntry struct {
	cb    Callback
	fired bool
}

// Dispatcher owns the deferred and direct callback registries, the
// one-shot deferred latch and per-URL resolution.
type Dispatcher struct {
	resolver  Resolver
	collector *fingerprint.Collector
	baseURL   string
	logger    *slog.Logger

	mu           sync.Mutex
	deferred     []deferredEntry
	direct       []Callback
	deferredSet  bool
	deferredData *model.LinkData
	unsubscribe  func()
}

// New creates a Dispatcher bound to the given base URL.
func New(resolver Resolver, collector *fingerprint.Collector, baseURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		resolver:  resolver,
		collector: collector,
		baseURL:   strings.TrimRight(baseURL, "/"),
		logger:    logger.With("component", "deeplink"),
	}
}

// OnDeferredDeepLink registers cb for the deferred deep link. When the
// latch is already set, cb fires immediately and synchronously with the
// latched payload, which may be nil for an organic install.
func (d *Dispatcher) OnDeferredDeepLink(cb Callback) {
	d.mu.Lock()
	entry := deferredEntry{cb: cb}
	fire := d.deferredSet
	data := d.deferredData
	if fire {
		entry.fired = true
	}
	d.deferred = append(d.deferred, entry)
	d.mu.Unlock()

	if fire {
		cb(data)
	}
}

// DeliverDeferredDeepLink sets the latch and synchronously invokes every
// registered callback that has not yet received a deferred payload, in
// registration order. A repeated call overwrites the cached payload and
// reaches only callbacks registered since the previous delivery.
func (d *Dispatcher) DeliverDeferredDeepLink(data *model.LinkData) {
	d.mu.Lock()
	d.deferredSet = true
	d.deferredData = data
	var pending []Callback
	for i := range d.deferred {
		if !d.deferred[i].fired {
			d.deferred[i].fired = true
			pending = append(pending, d.deferred[i].cb)
		}
	}
	d.mu.Unlock()

	for _, cb := range pending {
		cb(data)
	}
}

// OnDeepLink registers cb for direct deep links. Order is preserved and
// duplicates are allowed; the same callback registered twice fires twice.
func (d *Dispatcher) OnDeepLink(cb Callback) {
	d.mu.Lock()
	d.direct = append(d.direct, cb)
	d.mu.Unlock()
}

// HandleDeepLink resolves a URL opened while the app is running and
// delivers the outcome to every direct callback. It is a no-op when no
// callbacks are registered or the URL is empty. Callbacks never receive
// an error, only data or nil; exactly one delivery round happens per URL.
func (d *Dispatcher) HandleDeepLink(ctx context.Context, rawURL string) {
	d.mu.Lock()
	callbacks := make([]Callback, len(d.direct))
	copy(callbacks, d.direct)
	d.mu.Unlock()

	if len(callbacks) == 0 || rawURL == "" {
		return
	}

	localData := ParseDeepLinkURL(rawURL, d.baseURL)

	payload := localData
	if localData != nil && strings.HasPrefix(rawURL, d.baseURL) {
		if resolved := d.resolve(ctx, rawURL); resolved != nil {
			payload = resolved
		}
	}

	for _, cb := range callbacks {
		cb(payload)
	}
}

// resolve asks the server for link data, preferring a two-segment
// template path when the URL carries one. Fingerprint collection is best
// effort; any failure yields nil rather than an error.
func (d *Dispatcher) resolve(ctx context.Context, rawURL string) *model.LinkData {
	parsed := Parse(rawURL)
	if parsed == nil {
		return nil
	}
	segments := parsed.PathSegments()
	if len(segments) == 0 {
		return nil
	}

	path := transport.PathResolve + "/" + segments[0]
	if len(segments) >= 2 {
		path += "/" + segments[1]
	}

	if fp, err := d.collector.Collect(ctx, resolveWindowHours, ""); err == nil {
		path += "?" + BuildQueryString(map[string]string{
			"fp_tz":       fp.Timezone,
			"fp_lang":     fp.Language,
			"fp_sw":       strconv.Itoa(fp.ScreenWidth),
			"fp_sh":       strconv.Itoa(fp.ScreenHeight),
			"fp_platform": fp.Platform,
			"fp_pv":       fp.PlatformVersion,
		})
	} else {
		d.logger.Debug("fingerprint unavailable, resolving without it", "error", err)
	}

	var data model.LinkData
	if err := d.resolver.Request(ctx, http.MethodGet, path, nil, &data); err != nil {
		d.logger.Warn("server resolution failed, using local parse", "url", rawURL, "error", err)
		return nil
	}
	return data.Normalize()
}

// Attach subscribes the dispatcher to an external URL source. The
// subscription is detached by Cleanup.
func (d *Dispatcher) Attach(src URLSource) {
	unsubscribe := src.Subscribe(func(u string) {
		d.HandleDeepLink(context.Background(), u)
	})
	d.mu.Lock()
	d.unsubscribe = unsubscribe
	d.mu.Unlock()
}

// ClearCallbacks empties both registries and resets the deferred latch,
// dropping the cached payload.
func (d *Dispatcher) ClearCallbacks() {
	d.mu.Lock()
	d.deferred = nil
	d.direct = nil
	d.deferredSet = false
	d.deferredData = nil
	d.mu.Unlock()
}

// Cleanup detaches from the URL source, then clears all callbacks.
func (d *Dispatcher) Cleanup() {
	d.mu.Lock()
	unsubscribe := d.unsubscribe
	d.unsubscribe = nil
	d.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	d.ClearCallbacks()
}
