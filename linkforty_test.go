package linkforty

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/LinkForty/linkforty-go/internal/fingerprint"
	"github.com/LinkForty/linkforty-go/internal/model"
	"github.com/LinkForty/linkforty-go/internal/storage"
	"github.com/LinkForty/linkforty-go/internal/stubapi"
)

func testDevice() fingerprint.DeviceInfo {
	return fingerprint.Static{
		UA: "test-agent", OS: "ios", OSVersion: "17.4",
		App: "1.0.0", Lang: "en-US", TZ: "Europe/Berlin",
		Width: 390, Height: 844,
	}
}

// newTestSetup spins up a stub API and a client bound to it.
func newTestSetup(t *testing.T, apiKey string, store storage.Store) (*stubapi.Server, *Client) {
	t.Helper()
	stub := stubapi.New(nil, apiKey, "https://go.example.com")
	ts := httptest.NewServer(stub.Router())
	t.Cleanup(ts.Close)

	if store == nil {
		store = storage.NewMemory()
	}
	client, err := New(Config{BaseURL: ts.URL, APIKey: apiKey}, Options{
		Store:  store,
		Device: testDevice(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return stub, client
}

func TestInitAttributedInstallFeedsDeferredLatch(t *testing.T) {
	ctx := context.Background()
	stub, client := newTestSetup(t, "", nil)
	stub.SetPendingClick(&model.LinkData{
		ShortCode:        "spring",
		LegacyCustomData: map[string]string{"promo": "legacy"},
	})

	// Registered before Init: fires during delivery.
	var early *LinkData
	client.OnDeferredDeepLink(func(data *LinkData) { early = data })

	result, err := client.Init(ctx)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !result.Attributed || result.InstallID == "" {
		t.Fatalf("result = %+v", result)
	}
	if early == nil || early.ShortCode != "spring" {
		t.Errorf("early callback got %+v", early)
	}
	if early.CustomParameters["promo"] != "legacy" || early.LegacyCustomData != nil {
		t.Errorf("payload should be normalized, got %+v", early)
	}

	// Registered after Init: replays the latched payload immediately.
	var late *LinkData
	client.OnDeferredDeepLink(func(data *LinkData) { late = data })
	if late == nil || late.ShortCode != "spring" {
		t.Errorf("late callback got %+v", late)
	}

	if client.GetInstallID(ctx) == "" || client.IsFirstLaunch(ctx) {
		t.Error("install id should be cached and the launch recorded")
	}
}

func TestInitOrganicDeliversNil(t *testing.T) {
	ctx := context.Background()
	_, client := newTestSetup(t, "", nil)

	fired := false
	client.OnDeferredDeepLink(func(data *LinkData) {
		fired = true
		if data != nil {
			t.Errorf("payload = %+v, want nil for organic", data)
		}
	})
	if _, err := client.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !fired {
		t.Error("deferred callback should fire for organic installs too")
	}
}

func TestInitTwiceFails(t *testing.T) {
	ctx := context.Background()
	_, client := newTestSetup(t, "", nil)

	if _, err := client.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := client.Init(ctx); !IsCode(err, CodeAlreadyInitialized) {
		t.Errorf("err = %v, want ALREADY_INITIALIZED", err)
	}
}

func TestTrackEventRoundTrip(t *testing.T) {
	ctx := context.Background()
	stub, client := newTestSetup(t, "", nil)
	if _, err := client.Init(ctx); err != nil {
		t.Fatal(err)
	}

	if err := client.TrackEvent(ctx, "signup", map[string]any{"plan": "pro"}); err != nil {
		t.Fatalf("TrackEvent: %v", err)
	}

	events := stub.Events()
	if len(events) != 1 || events[0].EventName != "signup" {
		t.Fatalf("events = %+v", events)
	}
	if events[0].InstallID != client.GetInstallID(ctx) {
		t.Error("event should carry the cached install id")
	}
	if client.QueuedEventCount(ctx) != 0 {
		t.Error("nothing should be queued on success")
	}
}

func TestTrackEventWithoutInstall(t *testing.T) {
	_, client := newTestSetup(t, "", nil)
	err := client.TrackEvent(context.Background(), "signup", nil)
	if !IsCode(err, CodeNotInitialized) {
		t.Errorf("err = %v, want NOT_INITIALIZED", err)
	}
}

func TestRepeatLaunchSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	stub, first := newTestSetup(t, "", store)
	stub.SetPendingClick(&model.LinkData{ShortCode: "spring"})
	firstResult, err := first.Init(ctx)
	if err != nil {
		t.Fatal(err)
	}

	// Fresh client over the same storage, pointing at a dead endpoint:
	// the cached state must be enough.
	second, err := New(Config{BaseURL: "https://127.0.0.1:1"}, Options{
		Store:  store,
		Device: testDevice(),
	})
	if err != nil {
		t.Fatal(err)
	}
	secondResult, err := second.Init(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !secondResult.Attributed || secondResult.InstallID != firstResult.InstallID {
		t.Errorf("second = %+v, want cache-equivalent of %+v", secondResult, firstResult)
	}
	if secondResult.ConfidenceScore != 100 {
		t.Errorf("ConfidenceScore = %v, want 100", secondResult.ConfidenceScore)
	}
}

func TestDirectDeepLinkResolution(t *testing.T) {
	ctx := context.Background()
	stub, client := newTestSetup(t, "", nil)
	stub.SeedLink("abc", &model.LinkData{
		ShortCode:   "abc",
		FallbackURL: "https://example.com/landing",
	})

	var got *LinkData
	client.OnDeepLink(func(data *LinkData) { got = data })

	// The stub's base URL differs from the transport URL, so hand the
	// client a URL under its configured base.
	client.HandleDeepLink(ctx, clientBaseURL(client)+"/abc?utm_source=qr")

	if got == nil || got.FallbackURL != "https://example.com/landing" {
		t.Errorf("payload = %+v, want server-resolved data", got)
	}
}

func TestCreateLinkRequiresAPIKey(t *testing.T) {
	_, client := newTestSetup(t, "", nil)
	_, err := client.CreateLink(context.Background(), CreateLinkInput{TargetURL: "https://example.com"})
	if !IsCode(err, CodeMissingAPIKey) {
		t.Errorf("err = %v, want MISSING_API_KEY", err)
	}
}

func TestCreateLinkAndResolve(t *testing.T) {
	ctx := context.Background()
	_, client := newTestSetup(t, "secret", nil)

	created, err := client.CreateLink(ctx, CreateLinkInput{
		TargetURL: "https://example.com/landing",
		Alias:     "abc",
	})
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if created.ShortCode != "abc" {
		t.Errorf("created = %+v", created)
	}

	var got *LinkData
	client.OnDeepLink(func(data *LinkData) { got = data })
	client.HandleDeepLink(ctx, clientBaseURL(client)+"/abc")
	if got == nil || got.FallbackURL != "https://example.com/landing" {
		t.Errorf("payload = %+v", got)
	}
}

func TestCreateLinkInvalidTarget(t *testing.T) {
	_, client := newTestSetup(t, "secret", nil)
	_, err := client.CreateLink(context.Background(), CreateLinkInput{TargetURL: "not a url"})
	if !IsCode(err, CodeInvalidDeepLinkURL) {
		t.Errorf("err = %v, want INVALID_DEEP_LINK_URL", err)
	}
}

func TestParseDeepLink(t *testing.T) {
	_, client := newTestSetup(t, "", nil)

	data, err := client.ParseDeepLink(clientBaseURL(client) + "/abc?utm_source=mail")
	if err != nil {
		t.Fatalf("ParseDeepLink: %v", err)
	}
	if data.ShortCode != "abc" || data.UTMParameters.Source != "mail" {
		t.Errorf("data = %+v", data)
	}

	if _, err := client.ParseDeepLink("https://elsewhere.example.com/abc"); !IsCode(err, CodeInvalidDeepLinkURL) {
		t.Errorf("err = %v, want INVALID_DEEP_LINK_URL", err)
	}
}

func TestClearDataWipesAttributionAndQueue(t *testing.T) {
	ctx := context.Background()
	stub, client := newTestSetup(t, "", nil)
	stub.SetPendingClick(&model.LinkData{ShortCode: "spring"})
	if _, err := client.Init(ctx); err != nil {
		t.Fatal(err)
	}

	client.ClearData(ctx)

	if client.GetInstallID(ctx) != "" || client.GetInstallData(ctx) != nil {
		t.Error("attribution state should be wiped")
	}
	if !client.IsFirstLaunch(ctx) {
		t.Error("launch flag should be cleared")
	}
	if client.QueuedEventCount(ctx) != 0 {
		t.Error("queue should be cleared")
	}
}

func TestResetTearsDownClient(t *testing.T) {
	ctx := context.Background()
	_, client := newTestSetup(t, "", nil)
	if _, err := client.Init(ctx); err != nil {
		t.Fatal(err)
	}

	client.Reset()

	if err := client.TrackEvent(ctx, "signup", nil); !IsCode(err, CodeNotInitialized) {
		t.Errorf("TrackEvent after Reset = %v, want NOT_INITIALIZED", err)
	}
	if _, err := client.Init(ctx); !IsCode(err, CodeNotInitialized) {
		t.Errorf("Init after Reset = %v, want NOT_INITIALIZED", err)
	}
	if client.QueuedEventCount(ctx) != 0 {
		t.Error("QueuedEventCount after Reset should be 0")
	}

	// Deep-link registration after Reset is inert, not a panic.
	client.OnDeepLink(func(*LinkData) {})
	client.HandleDeepLink(ctx, "https://go.example.com/abc")
}

func TestOfflineEventsSurviveForFlush(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()

	// First client reports the install so an id is cached.
	_, online := newTestSetup(t, "", store)
	if _, err := online.Init(ctx); err != nil {
		t.Fatal(err)
	}

	// A client over the same store pointed at a dead endpoint queues.
	offline, err := New(Config{BaseURL: "https://127.0.0.1:1"}, Options{
		Store:  store,
		Device: testDevice(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := offline.TrackEvent(ctx, "signup", nil); err == nil {
		t.Fatal("expected a network failure")
	}
	if offline.QueuedEventCount(ctx) != 1 {
		t.Fatalf("queued = %d, want 1", offline.QueuedEventCount(ctx))
	}

	// Back online: a flush drains the queue.
	stub2, recovered := newTestSetup(t, "", store)
	if err := recovered.FlushQueue(ctx); err != nil {
		t.Fatalf("FlushQueue: %v", err)
	}
	if recovered.QueuedEventCount(ctx) != 0 {
		t.Error("queue should drain once the network is back")
	}
	if events := stub2.Events(); len(events) != 1 || events[0].EventName != "signup" {
		t.Errorf("events = %+v", events)
	}
}

// clientBaseURL exposes the configured base URL for building test links.
func clientBaseURL(c *Client) string {
	return c.cfg.BaseURL
}
