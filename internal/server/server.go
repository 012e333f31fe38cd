package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/phishguard/phishguard/internal/alert"
	"github.com/phishguard/phishguard/internal/coordinator"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/oracle"
	"github.com/phishguard/phishguard/internal/store"
)

// maxEventBody bounds request bodies on the event endpoints. Page signal
// records carry up to 5000 runes of visible text; 1MB leaves generous room.
const maxEventBody = 1 << 20

// HealthChecker reports whether the scoring oracle is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server is the daemon's host API. It owns the classification coordinator,
// the per-load alert machines, and the directive bus the browser agent
// polls.
type Server struct {
	coord *coordinator.Coordinator
	bus   *Bus

	mu       sync.Mutex
	machines map[string]*alert.Machine

	passiveLog  *store.ActivityLog
	health      HealthChecker
	mute        func(url string) bool
	autoDismiss time.Duration
	logger      *slog.Logger

	// construction-time knobs handed to the coordinator
	cache         *store.VerdictCache
	trusted       func(url string) bool
	fallbackDelay time.Duration
	queueCapacity int
}

// Option configures a Server.
type Option func(*Server)

// WithActivityLog sets the passive activity log.
func WithActivityLog(l *store.ActivityLog) Option {
	return func(s *Server) { s.passiveLog = l }
}

// WithVerdictCache sets the last-verdict cache.
func WithVerdictCache(c *store.VerdictCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithHealthChecker sets the oracle health probe used by the healthz
// endpoint.
func WithHealthChecker(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// WithTrustChecker installs the trusted-site predicate.
func WithTrustChecker(trusted func(url string) bool) Option {
	return func(s *Server) { s.trusted = trusted }
}

// WithMuteChecker installs the banner-mute predicate. Muted pages are still
// classified, badged, and logged; only their banner directives are dropped.
func WithMuteChecker(mute func(url string) bool) Option {
	return func(s *Server) { s.mute = mute }
}

// WithFallbackDelay overrides the coordinator's fallback trigger delay.
func WithFallbackDelay(d time.Duration) Option {
	return func(s *Server) { s.fallbackDelay = d }
}

// WithAutoDismissAfter overrides the suspicious-banner timeout.
func WithAutoDismissAfter(d time.Duration) Option {
	return func(s *Server) { s.autoDismiss = d }
}

// WithQueueCapacity overrides the per-load directive queue bound.
func WithQueueCapacity(n int) Option {
	return func(s *Server) { s.queueCapacity = n }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server around the given classifier and wires the
// coordinator to the directive bus.
func New(classifier oracle.Classifier, opts ...Option) *Server {
	s := &Server{
		machines:    make(map[string]*alert.Machine),
		autoDismiss: alert.DefaultAutoDismissAfter,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.bus = NewBus(s.queueCapacity)

	coordOpts := []coordinator.Option{
		coordinator.WithBadgeSurface(s.bus),
		coordinator.WithAlertSink(s),
		coordinator.WithLogger(s.logger),
	}
	if s.passiveLog != nil {
		coordOpts = append(coordOpts, coordinator.WithActivityLog(s.passiveLog))
	}
	if s.cache != nil {
		coordOpts = append(coordOpts, coordinator.WithVerdictCache(s.cache))
	}
	if s.trusted != nil {
		coordOpts = append(coordOpts, coordinator.WithTrustChecker(s.trusted))
	}
	if s.fallbackDelay > 0 {
		coordOpts = append(coordOpts, coordinator.WithFallbackDelay(s.fallbackDelay))
	}
	s.coord = coordinator.New(classifier, coordOpts...)

	return s
}

// Close shuts down the coordinator and stops all alert machines.
func (s *Server) Close() {
	s.coord.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for loadID, m := range s.machines {
		m.Stop()
		delete(s.machines, loadID)
	}
}

// Deliver implements coordinator.AlertSink: it routes the verdict to the
// load's alert machine, creating the machine on first delivery.
func (s *Server) Deliver(_, loadID string, v model.RiskVerdict) {
	s.machineFor(loadID, v.PageURL).Deliver(v)
}

// machineFor returns the load's alert machine, creating it if needed.
func (s *Server) machineFor(loadID, pageURL string) *alert.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.machines[loadID]; ok {
		return m
	}

	surface := &loadSurface{
		bus:    s.bus,
		loadID: loadID,
		mute:   s.mute != nil && s.mute(pageURL),
	}
	m := alert.NewMachine(surface, alert.WithAutoDismissAfter(s.autoDismiss))
	s.machines[loadID] = m
	return m
}

// lookupMachine returns the load's machine without creating one.
func (s *Server) lookupMachine(loadID string) (*alert.Machine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[loadID]
	return m, ok
}

// releaseLoad drops all per-load state after the tab moved on.
func (s *Server) releaseLoad(tabID, loadID string) {
	s.mu.Lock()
	if m, ok := s.machines[loadID]; ok {
		m.Stop()
		delete(s.machines, loadID)
	}
	s.mu.Unlock()

	s.coord.LoadClosed(tabID, loadID)
}

// Handler returns the host API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/events/page", s.handlePageEvent)
	mux.HandleFunc("POST /v1/events/navigation", s.handleNavigationEvent)
	mux.HandleFunc("POST /v1/events/user", s.handleUserEvent)
	mux.HandleFunc("GET /v1/directives/{loadID}", s.handleDirectives)
	mux.HandleFunc("GET /v1/log", s.handleLog)
	mux.HandleFunc("POST /v1/log/clear", s.handleLogClear)
	mux.HandleFunc("GET /v1/healthz", s.handleHealthz)
	return mux
}

// pageEvent is the push-trigger payload: the page's extractor finished.
type pageEvent struct {
	TabID   string            `json:"tabId"`
	LoadID  string            `json:"loadId"`
	Signals model.PageSignals `json:"signals"`
}

func (s *Server) handlePageEvent(w http.ResponseWriter, r *http.Request) {
	var ev pageEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	if ev.TabID == "" || ev.LoadID == "" || ev.Signals.URL == "" {
		http.Error(w, "tabId, loadId, and signals.url are required", http.StatusBadRequest)
		return
	}

	if prev, changed := s.bus.BindTab(ev.TabID, ev.LoadID); changed {
		s.releaseLoad(ev.TabID, prev)
	}
	// Classification outlives this request; only the values survive.
	s.coord.PushSignals(context.WithoutCancel(r.Context()), ev.TabID, ev.LoadID, ev.Signals)
	w.WriteHeader(http.StatusNoContent)
}

// navigationEvent is the pull-trigger payload: the browser finished a
// navigation.
type navigationEvent struct {
	TabID   string `json:"tabId"`
	LoadID  string `json:"loadId"`
	URL     string `json:"url"`
	FrameID int    `json:"frameId"`
}

func (s *Server) handleNavigationEvent(w http.ResponseWriter, r *http.Request) {
	var ev navigationEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	if ev.TabID == "" || ev.LoadID == "" || ev.URL == "" {
		http.Error(w, "tabId, loadId, and url are required", http.StatusBadRequest)
		return
	}

	// Subframe navigations never rebind the tab; the top-level page is
	// still what the user sees.
	if ev.FrameID == 0 {
		if prev, changed := s.bus.BindTab(ev.TabID, ev.LoadID); changed {
			s.releaseLoad(ev.TabID, prev)
		}
	}
	s.coord.NavigationCompleted(context.WithoutCancel(r.Context()), ev.TabID, ev.LoadID, ev.URL, ev.FrameID)
	w.WriteHeader(http.StatusNoContent)
}

// User event actions.
const (
	actionDismiss = "dismiss"
	actionSubmit  = "submit"
	actionProceed = "proceed"
	actionCancel  = "cancel"
)

// userEvent is a user interaction with the alert surfaces.
type userEvent struct {
	TabID  string `json:"tabId"`
	LoadID string `json:"loadId"`
	Action string `json:"action"`
	FormID string `json:"formId,omitempty"`
}

func (s *Server) handleUserEvent(w http.ResponseWriter, r *http.Request) {
	var ev userEvent
	if !decodeJSON(w, r, &ev) {
		return
	}
	if ev.LoadID == "" {
		http.Error(w, "loadId is required", http.StatusBadRequest)
		return
	}

	m, ok := s.lookupMachine(ev.LoadID)

	switch ev.Action {
	case actionSubmit:
		// No machine means no verdict arrived, so nothing guards the form.
		allowed := true
		if ok {
			allowed = m.SubmitAttempt(ev.FormID)
		}
		writeJSON(w, map[string]bool{"allowed": allowed})
	case actionDismiss:
		if ok {
			m.Dismiss()
		}
		w.WriteHeader(http.StatusNoContent)
	case actionProceed:
		if ok {
			m.Proceed(ev.FormID)
		}
		w.WriteHeader(http.StatusNoContent)
	case actionCancel:
		if ok {
			m.Cancel(ev.FormID)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func (s *Server) handleDirectives(w http.ResponseWriter, r *http.Request) {
	loadID := r.PathValue("loadID")
	directives := s.bus.Drain(loadID)
	if directives == nil {
		directives = []Directive{}
	}
	writeJSON(w, map[string][]Directive{"directives": directives})
}

// logResponse is the payload of GET /v1/log.
type logResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Stats   store.Stats      `json:"stats"`
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if s.passiveLog == nil {
		writeJSON(w, logResponse{Entries: []model.LogEntry{}})
		return
	}

	var entries []model.LogEntry
	if tierParam := r.URL.Query().Get("tier"); tierParam != "" {
		var tier model.Tier
		if err := tier.UnmarshalText([]byte(tierParam)); err != nil {
			http.Error(w, "unknown tier", http.StatusBadRequest)
			return
		}
		entries = s.passiveLog.ByTier(tier)
	} else {
		entries = s.passiveLog.Entries()
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		if limit < len(entries) {
			entries = entries[:limit]
		}
	}

	if entries == nil {
		entries = []model.LogEntry{}
	}
	writeJSON(w, logResponse{Entries: entries, Stats: s.passiveLog.Stats()})
}

func (s *Server) handleLogClear(w http.ResponseWriter, r *http.Request) {
	if s.passiveLog != nil {
		s.passiveLog.Clear(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

// healthResponse is the payload of GET /v1/healthz.
type healthResponse struct {
	Status string `json:"status"`
	Oracle string `json:"oracle"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Oracle: "unknown"}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Health(ctx); err != nil {
			resp.Oracle = "unreachable"
		} else {
			resp.Oracle = "ok"
		}
	}

	writeJSON(w, resp)
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		slog.Default().Debug("failed to encode response", "error", err)
	}
}
