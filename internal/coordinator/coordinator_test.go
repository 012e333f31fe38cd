package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phishguard/phishguard/internal/badge"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/store"
)

// float64Ptr is a test helper for building optional score fields.
func float64Ptr(v float64) *float64 {
	return &v
}

// fakeClassifier counts classifications and can block on a gate channel to
// let tests control interleavings.
type fakeClassifier struct {
	mu      sync.Mutex
	calls   int
	signals []model.PageSignals
	gate    chan struct{}
	res     model.ScoreResult
	err     error
}

func (f *fakeClassifier) Classify(_ context.Context, signals model.PageSignals) (model.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	f.signals = append(f.signals, signals)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return f.res, f.err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// manualTimer holds a fallback callback until the test fires it.
type manualTimer struct {
	f       func()
	mu      sync.Mutex
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	stopped := !t.stopped
	t.stopped = true
	return stopped
}

func (t *manualTimer) fire() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if !stopped {
		t.f()
	}
}

// timerRegistry collects every fallback timer the coordinator arms.
type timerRegistry struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (r *timerRegistry) timerFn(_ time.Duration, f func()) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &manualTimer{f: f}
	r.timers = append(r.timers, t)
	return t
}

func (r *timerRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

func (r *timerRegistry) fire(i int) {
	r.mu.Lock()
	t := r.timers[i]
	r.mu.Unlock()
	t.fire()
}

// recordingBadges records badge surface calls.
type recordingBadges struct {
	mu     sync.Mutex
	sets   []badge.Badge
	resets int
}

func (b *recordingBadges) Set(_ string, bdg badge.Badge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets = append(b.sets, bdg)
}

func (b *recordingBadges) Reset(string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets++
}

func (b *recordingBadges) setCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sets)
}

// recordingSink records verdict deliveries and signals each one.
type recordingSink struct {
	mu        sync.Mutex
	delivered []model.RiskVerdict
	ch        chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{ch: make(chan struct{}, 16)}
}

func (s *recordingSink) Deliver(_, _ string, v model.RiskVerdict) {
	s.mu.Lock()
	s.delivered = append(s.delivered, v)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *recordingSink) waitDelivery(t *testing.T) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for verdict delivery")
	}
}

func (s *recordingSink) verdicts() []model.RiskVerdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RiskVerdict(nil), s.delivered...)
}

// TestPushThenFallbackCallsOracleOnce tests the core dedup property: a push
// at t=0 followed by the fallback timer firing later yields one oracle call.
func TestPushThenFallbackCallsOracleOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{res: model.ScoreResult{URLScore: float64Ptr(0.93)}}
	timers := &timerRegistry{}
	sink := newRecordingSink()

	c := New(classifier,
		WithTimerFunc(timers.timerFn),
		WithAlertSink(sink),
	)

	c.NavigationCompleted(ctx, "tab1", "load1", "https://evil.example", 0)
	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://evil.example", PasswordFieldCount: 1})
	sink.waitDelivery(t)

	// The fallback fires well after the push resolved; it must observe the
	// claim and no-op.
	timers.fire(0)

	if got := classifier.callCount(); got != 1 {
		t.Errorf("oracle calls = %d, expected exactly 1", got)
	}
	if got := c.claimCount(); got != 0 {
		t.Errorf("claim set size = %d, expected resolved claims to be cleared", got)
	}
}

// TestFallbackRacesInFlightPush tests the interleaving where the fallback
// timer fires while the push-triggered oracle call is still in flight. The
// claim was made before the call went out, so the fallback must no-op.
func TestFallbackRacesInFlightPush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := make(chan struct{})
	classifier := &fakeClassifier{gate: gate, res: model.ScoreResult{URLScore: float64Ptr(0.5)}}
	timers := &timerRegistry{}
	sink := newRecordingSink()

	c := New(classifier,
		WithTimerFunc(timers.timerFn),
		WithAlertSink(sink),
	)

	c.NavigationCompleted(ctx, "tab1", "load1", "https://example.com", 0)
	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://example.com"})

	// Oracle call is blocked in flight; fire the fallback now.
	timers.fire(0)

	close(gate)
	sink.waitDelivery(t)

	if got := classifier.callCount(); got != 1 {
		t.Errorf("oracle calls = %d, expected exactly 1", got)
	}
	if got := len(sink.verdicts()); got != 1 {
		t.Errorf("deliveries = %d, expected exactly 1", got)
	}
}

// TestFallbackClassifiesWithoutPush tests the URL-only fallback path.
func TestFallbackClassifiesWithoutPush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{res: model.ScoreResult{URLScore: float64Ptr(0.2)}}
	timers := &timerRegistry{}
	sink := newRecordingSink()
	badges := &recordingBadges{}

	c := New(classifier,
		WithTimerFunc(timers.timerFn),
		WithAlertSink(sink),
		WithBadgeSurface(badges),
	)

	c.NavigationCompleted(ctx, "tab1", "load1", "https://example.com/path", 0)
	timers.fire(0)
	sink.waitDelivery(t)

	if got := classifier.callCount(); got != 1 {
		t.Fatalf("oracle calls = %d, expected 1", got)
	}

	classifier.mu.Lock()
	signals := classifier.signals[0]
	classifier.mu.Unlock()

	if signals.URL != "https://example.com/path" {
		t.Errorf("URL = %q, expected the navigation URL", signals.URL)
	}
	if signals.HasPageData() {
		t.Error("expected the fallback to synthesize URL-only signals")
	}
	if got := c.claimCount(); got != 0 {
		t.Errorf("claim set size = %d, expected 0 after resolution", got)
	}
	if badges.setCount() != 1 {
		t.Errorf("badge sets = %d, expected 1", badges.setCount())
	}
}

// TestOracleFailureRevertsToIdle tests scenario C: a failed oracle call
// resets the badge and records nothing.
func TestOracleFailureRevertsToIdle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{err: errors.New("connection refused")}
	sink := newRecordingSink()
	badges := &recordingBadges{}
	log := store.NewActivityLog(10)

	c := New(classifier,
		WithAlertSink(sink),
		WithBadgeSurface(badges),
		WithActivityLog(log),
	)

	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://example.com"})
	c.Close()

	if log.Len() != 0 {
		t.Errorf("log entries = %d, expected none", log.Len())
	}
	if len(sink.verdicts()) != 0 {
		t.Errorf("deliveries = %v, expected none", sink.verdicts())
	}
	if badges.setCount() != 0 {
		t.Errorf("badge sets = %d, expected none", badges.setCount())
	}

	badges.mu.Lock()
	resets := badges.resets
	badges.mu.Unlock()
	if resets == 0 {
		t.Error("expected the badge to be reset to idle")
	}
}

// TestStaleResultIsDropped tests that a verdict resolving after the tab
// moved to another load produces no side effects.
func TestStaleResultIsDropped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := make(chan struct{})
	classifier := &fakeClassifier{gate: gate, res: model.ScoreResult{URLScore: float64Ptr(0.95)}}
	timers := &timerRegistry{}
	sink := newRecordingSink()
	badges := &recordingBadges{}
	log := store.NewActivityLog(10)

	c := New(classifier,
		WithTimerFunc(timers.timerFn),
		WithAlertSink(sink),
		WithBadgeSurface(badges),
		WithActivityLog(log),
	)

	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://old.example"})

	// The user navigates away while the call is in flight.
	c.NavigationCompleted(ctx, "tab1", "load2", "https://new.example", 0)

	close(gate)
	c.Close()

	if log.Len() != 0 {
		t.Errorf("log entries = %d, expected the stale verdict to be dropped", log.Len())
	}
	if len(sink.verdicts()) != 0 {
		t.Errorf("deliveries = %v, expected none", sink.verdicts())
	}
	if badges.setCount() != 0 {
		t.Errorf("badge sets = %d, expected none", badges.setCount())
	}
}

// TestVerdictFanOut tests that a successful classification reaches the log,
// the cache, the badge, and the alert sink.
func TestVerdictFanOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{res: model.ScoreResult{
		URLScore: float64Ptr(0.93),
		Label:    "phishing",
		Reasons:  []string{"IP in URL"},
	}}
	sink := newRecordingSink()
	badges := &recordingBadges{}
	log := store.NewActivityLog(10)
	cache := store.NewVerdictCache(nil, nil)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	c := New(classifier,
		WithAlertSink(sink),
		WithBadgeSurface(badges),
		WithActivityLog(log),
		WithVerdictCache(cache),
		WithClock(func() time.Time { return fixed }),
	)

	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://evil.example"})
	sink.waitDelivery(t)

	verdicts := sink.verdicts()
	if len(verdicts) != 1 {
		t.Fatalf("deliveries = %d, expected 1", len(verdicts))
	}
	v := verdicts[0]
	if v.RiskPercent != 93 || v.Tier != model.TierPhishing {
		t.Errorf("verdict = %+v, expected 93%% phishing", v)
	}
	if !v.Timestamp.Equal(fixed) {
		t.Errorf("timestamp = %v, expected the injected clock", v.Timestamp)
	}

	entries := log.Entries()
	if len(entries) != 1 || entries[0].URL != "https://evil.example" {
		t.Errorf("log = %+v, expected one entry for the page", entries)
	}

	cached, ok := cache.Get(ctx, "https://evil.example")
	if !ok || cached.RiskPercent != 93 {
		t.Errorf("cache = (%+v, %v), expected the verdict", cached, ok)
	}

	badges.mu.Lock()
	defer badges.mu.Unlock()
	if len(badges.sets) != 1 || badges.sets[0] != badge.ForTier(model.TierPhishing) {
		t.Errorf("badge sets = %+v, expected the phishing badge", badges.sets)
	}
}

// TestNavigationFiltering tests frame and scheme filtering of the pull
// trigger.
func TestNavigationFiltering(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		url     string
		frameID int
	}{
		{"subframe navigation", "https://example.com", 3},
		{"extension scheme", "chrome://settings", 0},
		{"file scheme", "file:///etc/passwd", 0},
		{"about scheme", "about:blank", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			timers := &timerRegistry{}
			c := New(&fakeClassifier{}, WithTimerFunc(timers.timerFn))

			c.NavigationCompleted(context.Background(), "tab1", "load1", tc.url, tc.frameID)

			if timers.count() != 0 {
				t.Errorf("timers armed = %d, expected none", timers.count())
			}
		})
	}
}

// TestNavigationArmsSingleTimerPerLoad tests that repeated navigation events
// for the same load arm only one fallback timer.
func TestNavigationArmsSingleTimerPerLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	timers := &timerRegistry{}
	c := New(&fakeClassifier{}, WithTimerFunc(timers.timerFn))

	c.NavigationCompleted(ctx, "tab1", "load1", "https://example.com", 0)
	c.NavigationCompleted(ctx, "tab1", "load1", "https://example.com", 0)

	if timers.count() != 1 {
		t.Errorf("timers armed = %d, expected 1", timers.count())
	}
}

// TestTrustedSiteSkipsOracle tests the trusted-site override.
func TestTrustedSiteSkipsOracle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{}
	badges := &recordingBadges{}
	log := store.NewActivityLog(10)

	c := New(classifier,
		WithBadgeSurface(badges),
		WithActivityLog(log),
		WithTrustChecker(func(url string) bool { return url == "https://intranet.example/portal" }),
	)

	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://intranet.example/portal"})
	c.Close()

	if classifier.callCount() != 0 {
		t.Errorf("oracle calls = %d, expected none for a trusted site", classifier.callCount())
	}
	if log.Len() != 0 {
		t.Errorf("log entries = %d, expected none", log.Len())
	}

	badges.mu.Lock()
	defer badges.mu.Unlock()
	if len(badges.sets) != 1 || badges.sets[0] != badge.ForTier(model.TierSafe) {
		t.Errorf("badge sets = %+v, expected the safe badge", badges.sets)
	}
}

// TestLoadClosedReleasesState tests that closing a load clears its claim
// and pending timer.
func TestLoadClosedReleasesState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	gate := make(chan struct{})
	classifier := &fakeClassifier{gate: gate, res: model.ScoreResult{URLScore: float64Ptr(0.5)}}
	timers := &timerRegistry{}
	c := New(classifier, WithTimerFunc(timers.timerFn))

	c.NavigationCompleted(ctx, "tab1", "load1", "https://example.com", 0)
	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://example.com"})
	c.LoadClosed("tab1", "load1")

	if got := c.claimCount(); got != 0 {
		t.Errorf("claim set size = %d, expected 0 after LoadClosed", got)
	}

	close(gate)
	c.Close()
}

// TestCloseStopsTriggers tests that triggers after Close are ignored.
func TestCloseStopsTriggers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	classifier := &fakeClassifier{}
	c := New(classifier)

	c.Close()
	c.PushSignals(ctx, "tab1", "load1", model.PageSignals{URL: "https://example.com"})

	if classifier.callCount() != 0 {
		t.Errorf("oracle calls = %d, expected none after Close", classifier.callCount())
	}
}
