package server

import (
	"sync"

	"github.com/phishguard/phishguard/internal/badge"
	"github.com/phishguard/phishguard/internal/model"
)

// DefaultQueueCapacity bounds each load's directive queue. A page load
// accumulates at most a handful of directives between polls; a queue this
// deep only fills when the agent has stopped polling, at which point
// dropping is the correct behavior.
const DefaultQueueCapacity = 32

// Directive types understood by the browser agent.
const (
	DirectiveBannerShow   = "banner.show"
	DirectiveBannerHide   = "banner.hide"
	DirectiveGuardsArm    = "guards.arm"
	DirectiveOverlayShow  = "overlay.show"
	DirectiveOverlayHide  = "overlay.hide"
	DirectiveFormResume   = "form.resume"
	DirectiveNavigateBack = "nav.back"
	DirectiveBadgeSet     = "badge.set"
	DirectiveBadgeReset   = "badge.reset"
)

// Directive is one unit of UI work queued for the browser agent.
type Directive struct {
	// Type identifies the directive.
	Type string `json:"type"`

	// FormID targets overlay and form directives at a specific form.
	FormID string `json:"formId,omitempty"`

	// Badge carries the badge for badge.set directives.
	Badge *badge.Badge `json:"badge,omitempty"`

	// Verdict carries the verdict for banner.show, guards.arm, and
	// overlay.show directives.
	Verdict *model.RiskVerdict `json:"verdict,omitempty"`
}

// Bus owns the per-load directive queues and the tab-to-load binding the
// badge projection needs. Queues exist only for bound loads: a directive
// enqueued for an unknown or departed load is dropped silently, and a full
// queue drops new directives rather than blocking. Together with the
// one-time drain this gives at-most-once delivery.
type Bus struct {
	mu       sync.Mutex
	capacity int

	// queues holds pending directives per load.
	queues map[string][]Directive

	// current maps each tab to its bound load.
	current map[string]string
}

// NewBus creates a Bus. Non-positive capacities fall back to
// DefaultQueueCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Bus{
		capacity: capacity,
		queues:   make(map[string][]Directive),
		current:  make(map[string]string),
	}
}

// BindTab binds the tab to a load, creating the load's queue. If the tab
// was bound to a different load, that load's queue is dropped and its
// identifier returned so the caller can release related state.
func (b *Bus) BindTab(tabID, loadID string) (prev string, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev, bound := b.current[tabID]
	if bound && prev == loadID {
		return "", false
	}

	if bound {
		delete(b.queues, prev)
	}
	b.current[tabID] = loadID
	if _, ok := b.queues[loadID]; !ok {
		b.queues[loadID] = make([]Directive, 0, 4)
	}

	if !bound {
		return "", false
	}
	return prev, true
}

// CurrentLoad returns the load the tab is bound to.
func (b *Bus) CurrentLoad(tabID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loadID, ok := b.current[tabID]
	return loadID, ok
}

// Enqueue appends a directive to the load's queue. Unknown loads and full
// queues drop the directive silently.
func (b *Bus) Enqueue(loadID string, d Directive) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[loadID]
	if !ok || len(q) >= b.capacity {
		return
	}
	b.queues[loadID] = append(q, d)
}

// Drain returns all pending directives for the load and empties its queue.
// Each directive is handed out exactly once; draining an unknown load
// returns nothing.
func (b *Bus) Drain(loadID string) []Directive {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[loadID]
	if !ok || len(q) == 0 {
		return nil
	}
	b.queues[loadID] = make([]Directive, 0, 4)
	return q
}

// DropLoad removes the load's queue and any tab binding pointing at it.
func (b *Bus) DropLoad(loadID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.queues, loadID)
	for tabID, cur := range b.current {
		if cur == loadID {
			delete(b.current, tabID)
		}
	}
}

// Set implements badge.Surface by queueing a badge.set directive on the
// tab's current load.
func (b *Bus) Set(tabID string, bdg badge.Badge) {
	if loadID, ok := b.CurrentLoad(tabID); ok {
		b.Enqueue(loadID, Directive{Type: DirectiveBadgeSet, Badge: &bdg})
	}
}

// Reset implements badge.Surface by queueing a badge.reset directive on the
// tab's current load.
func (b *Bus) Reset(tabID string) {
	if loadID, ok := b.CurrentLoad(tabID); ok {
		b.Enqueue(loadID, Directive{Type: DirectiveBadgeReset})
	}
}

// loadSurface adapts one load's directive queue to the alert state
// machine's surface. When mute is set, banner directives are suppressed
// while guard and overlay directives still flow.
type loadSurface struct {
	bus    *Bus
	loadID string
	mute   bool
}

func (s *loadSurface) ShowBanner(v model.RiskVerdict) {
	if s.mute {
		return
	}
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveBannerShow, Verdict: &v})
}

func (s *loadSurface) HideBanner() {
	if s.mute {
		return
	}
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveBannerHide})
}

func (s *loadSurface) ArmGuards(v model.RiskVerdict) {
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveGuardsArm, Verdict: &v})
}

func (s *loadSurface) ShowOverlay(formID string, v model.RiskVerdict) {
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveOverlayShow, FormID: formID, Verdict: &v})
}

func (s *loadSurface) HideOverlay(formID string) {
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveOverlayHide, FormID: formID})
}

func (s *loadSurface) ResumeSubmit(formID string) {
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveFormResume, FormID: formID})
}

func (s *loadSurface) NavigateBack() {
	s.bus.Enqueue(s.loadID, Directive{Type: DirectiveNavigateBack})
}
