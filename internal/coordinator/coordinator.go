package coordinator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phishguard/phishguard/internal/aggregate"
	"github.com/phishguard/phishguard/internal/badge"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/oracle"
	"github.com/phishguard/phishguard/internal/store"
)

// DefaultFallbackDelay is how long the fallback trigger waits for a push
// before classifying on its own with URL-only data. The push usually arrives
// well within this window when the page runs scripts at all; pages that
// block the agent (or carry no script support) fall through to the URL-only
// path.
const DefaultFallbackDelay = 800 * time.Millisecond

// AlertSink receives completed verdicts for delivery to the page load's
// alert state machine.
type AlertSink interface {
	// Deliver hands the verdict to the machine for the given load.
	Deliver(tabID, loadID string, v model.RiskVerdict)
}

// Stopper abstracts a cancellable timer.
type Stopper interface {
	Stop() bool
}

// TimerFunc schedules f after d and returns a cancellation handle.
type TimerFunc func(d time.Duration, f func()) Stopper

// Coordinator owns the per-load claim state and the fan-out of verdicts.
// One instance lives for the whole browsing session.
type Coordinator struct {
	mu sync.Mutex

	// claims holds the load identifiers whose classification has been
	// issued. An entry present means a concurrently-firing trigger must
	// no-op. Entries are removed once both the fallback timer and the
	// oracle call have resolved, so the set stays bounded over a long
	// session.
	claims map[string]struct{}

	// current maps each tab to its current load identifier. Results for a
	// load that is no longer current are stale and dropped.
	current map[string]string

	// timers holds the pending fallback timer per load.
	timers map[string]Stopper

	// wg tracks in-flight oracle calls so Close can drain them.
	wg     sync.WaitGroup
	closed bool

	classifier    oracle.Classifier
	badges        badge.Surface
	log           *store.ActivityLog
	cache         *store.VerdictCache
	alerts        AlertSink
	trusted       func(url string) bool
	fallbackDelay time.Duration
	timerFn       TimerFunc
	nowFn         func() time.Time
	logger        *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithFallbackDelay overrides the fallback trigger delay.
func WithFallbackDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.fallbackDelay = d
		}
	}
}

// WithBadgeSurface sets the badge surface verdicts project onto.
func WithBadgeSurface(s badge.Surface) Option {
	return func(c *Coordinator) {
		c.badges = s
	}
}

// WithActivityLog sets the log completed classifications append to.
func WithActivityLog(l *store.ActivityLog) Option {
	return func(c *Coordinator) {
		c.log = l
	}
}

// WithVerdictCache sets the last-verdict-per-URL cache.
func WithVerdictCache(cache *store.VerdictCache) Option {
	return func(c *Coordinator) {
		c.cache = cache
	}
}

// WithAlertSink sets the sink verdicts are delivered to for alerting.
func WithAlertSink(sink AlertSink) Option {
	return func(c *Coordinator) {
		c.alerts = sink
	}
}

// WithTrustChecker installs a predicate for sites the user has explicitly
// trusted. Trusted loads are claimed but never sent to the oracle.
func WithTrustChecker(trusted func(url string) bool) Option {
	return func(c *Coordinator) {
		c.trusted = trusted
	}
}

// WithTimerFunc replaces the fallback timer implementation.
func WithTimerFunc(fn TimerFunc) Option {
	return func(c *Coordinator) {
		c.timerFn = fn
	}
}

// WithClock replaces the time source used for verdict timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.nowFn = now
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// noopBadges satisfies badge.Surface when no surface is wired.
type noopBadges struct{}

func (noopBadges) Set(string, badge.Badge) {}
func (noopBadges) Reset(string)            {}

// noopAlerts satisfies AlertSink when no sink is wired.
type noopAlerts struct{}

func (noopAlerts) Deliver(string, string, model.RiskVerdict) {}

// New creates a Coordinator around the given classifier.
func New(classifier oracle.Classifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		claims:        make(map[string]struct{}),
		current:       make(map[string]string),
		timers:        make(map[string]Stopper),
		classifier:    classifier,
		fallbackDelay: DefaultFallbackDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.badges == nil {
		c.badges = noopBadges{}
	}
	if c.alerts == nil {
		c.alerts = noopAlerts{}
	}
	if c.trusted == nil {
		c.trusted = func(string) bool { return false }
	}
	if c.timerFn == nil {
		c.timerFn = func(d time.Duration, f func()) Stopper {
			return time.AfterFunc(d, f)
		}
	}
	if c.nowFn == nil {
		c.nowFn = time.Now
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c
}

// PushSignals is the push trigger: the page's own extractor delivered a full
// signal record. The load is claimed before the oracle call is issued, so a
// concurrently-expiring fallback timer observes the claim and no-ops.
func (c *Coordinator) PushSignals(ctx context.Context, tabID, loadID string, signals model.PageSignals) {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	// A push may beat the navigation event; either way this load is what
	// the tab is showing now.
	c.supersedeLocked(tabID, loadID)
	c.current[tabID] = loadID

	if _, claimed := c.claims[loadID]; claimed {
		c.mu.Unlock()
		c.logger.Debug("duplicate push for claimed load", "tab", tabID, "load", loadID)
		return
	}
	c.claims[loadID] = struct{}{}

	c.classifyLocked(ctx, tabID, loadID, signals)
}

// NavigationCompleted is the pull trigger: the host reported a finished
// top-level navigation. It arms the fallback timer for the load. Subframe
// navigations and non-HTTP(S) schemes are ignored.
func (c *Coordinator) NavigationCompleted(ctx context.Context, tabID, loadID, url string, frameID int) {
	if frameID != 0 {
		return
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.supersedeLocked(tabID, loadID)
	c.current[tabID] = loadID

	// Fresh load, not yet scored.
	c.badges.Reset(tabID)

	if _, pending := c.timers[loadID]; pending {
		return
	}
	c.timers[loadID] = c.timerFn(c.fallbackDelay, func() {
		c.fallbackExpired(ctx, tabID, loadID, url)
	})
}

// LoadClosed drops all state for a load whose page went away.
func (c *Coordinator) LoadClosed(tabID, loadID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked(loadID)
	if c.current[tabID] == loadID {
		delete(c.current, tabID)
	}
}

// Close stops accepting triggers and waits for in-flight oracle calls to
// resolve.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	for loadID, t := range c.timers {
		t.Stop()
		delete(c.timers, loadID)
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// fallbackExpired runs when the fallback timer for a load elapses.
// Claim state is checked first: a claimed load means the push already won
// the race, and the claim entry is cleared here to bound memory.
func (c *Coordinator) fallbackExpired(ctx context.Context, tabID, loadID, url string) {
	c.mu.Lock()

	delete(c.timers, loadID)

	if c.closed {
		c.mu.Unlock()
		return
	}

	if _, claimed := c.claims[loadID]; claimed {
		delete(c.claims, loadID)
		c.mu.Unlock()
		c.logger.Debug("fallback superseded by push", "tab", tabID, "load", loadID)
		return
	}

	c.claims[loadID] = struct{}{}
	c.classifyLocked(ctx, tabID, loadID, model.URLOnlySignals(url))
}

// classifyLocked issues the oracle call for an already-claimed load.
// Called with c.mu held; it releases the lock before the call goes out.
func (c *Coordinator) classifyLocked(ctx context.Context, tabID, loadID string, signals model.PageSignals) {
	if c.trusted(signals.URL) {
		// Explicitly trusted by configuration: no oracle call, no verdict,
		// badge straight to safe.
		c.mu.Unlock()
		c.logger.Debug("skipping trusted site", "url", signals.URL)
		c.badges.Set(tabID, badge.ForTier(model.TierSafe))
		return
	}

	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		res, err := c.classifier.Classify(ctx, signals)
		c.resolve(ctx, tabID, loadID, signals.URL, res, err)
	}()
}

// resolve applies a finished classification. Stale results — the tab moved
// on to another load while the call was in flight — are dropped without any
// UI side effects.
func (c *Coordinator) resolve(ctx context.Context, tabID, loadID, url string, res model.ScoreResult, err error) {
	c.mu.Lock()

	// The claim has served its purpose once the fallback timer is no
	// longer pending; drop it so the set stays bounded.
	if _, pending := c.timers[loadID]; !pending {
		delete(c.claims, loadID)
	}

	if c.current[tabID] != loadID {
		c.mu.Unlock()
		c.logger.Debug("dropping stale verdict", "tab", tabID, "load", loadID, "url", url)
		return
	}
	c.mu.Unlock()

	if err != nil {
		// No retry: the load stays unscored and the badge reverts to idle.
		c.logger.Debug("classification failed", "url", url, "error", err)
		c.badges.Reset(tabID)
		return
	}

	verdict, aggErr := aggregate.Aggregate(url, res, c.nowFn())
	if aggErr != nil {
		c.logger.Warn("unusable oracle response", "url", url, "error", aggErr)
		c.badges.Reset(tabID)
		return
	}

	if c.log != nil {
		c.log.Append(ctx, model.NewLogEntry(verdict))
	}
	if c.cache != nil {
		c.cache.Put(ctx, verdict)
	}
	c.badges.Set(tabID, badge.ForTier(verdict.Tier))
	c.alerts.Deliver(tabID, loadID, verdict)
}

// supersedeLocked clears the previous load's pending state when a tab moves
// to a new load. Called with c.mu held.
func (c *Coordinator) supersedeLocked(tabID, loadID string) {
	if prev, ok := c.current[tabID]; ok && prev != loadID {
		c.releaseLocked(prev)
	}
}

// releaseLocked drops the claim and timer for a load. Called with c.mu held.
func (c *Coordinator) releaseLocked(loadID string) {
	if t, ok := c.timers[loadID]; ok {
		t.Stop()
		delete(c.timers, loadID)
	}
	delete(c.claims, loadID)
}

// claimCount reports the size of the claim set. Tests use it to check that
// resolved loads do not accumulate.
func (c *Coordinator) claimCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claims)
}
