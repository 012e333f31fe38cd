package alert

import (
	"sync"
	"time"

	"github.com/phishguard/phishguard/internal/model"
)

// DefaultAutoDismissAfter is how long a suspicious-tier banner stays up
// before dismissing itself. Phishing-tier banners never auto-dismiss.
const DefaultAutoDismissAfter = 12 * time.Second

// Surface receives the machine's UI side effects. The daemon's host API
// implements it by queueing directives for the browser agent; tests
// implement it by recording calls.
type Surface interface {
	// ShowBanner displays the warning banner for the verdict.
	ShowBanner(v model.RiskVerdict)

	// HideBanner removes the banner.
	HideBanner()

	// ArmGuards instructs the page to intercept the first submission of
	// every credential-bearing form.
	ArmGuards(v model.RiskVerdict)

	// ShowOverlay displays the blocking confirmation overlay for a form
	// whose submission was intercepted.
	ShowOverlay(formID string, v model.RiskVerdict)

	// HideOverlay removes the overlay for the form.
	HideOverlay(formID string)

	// ResumeSubmit lets the form's original submission continue unmodified.
	ResumeSubmit(formID string)

	// NavigateBack returns the page to the previous history entry.
	NavigateBack()
}

// stopper abstracts a cancellable timer so tests can fire auto-dismissal
// deterministically.
type stopper interface {
	Stop() bool
}

// TimerFunc schedules f after d and returns a handle that can cancel it.
type TimerFunc func(d time.Duration, f func()) stopper

// Machine drives the banner and form-guard state for a single page load.
// Methods are safe for concurrent use; host events and the auto-dismiss
// timer may race.
type Machine struct {
	mu sync.Mutex

	state  State
	guards map[string]GuardState

	// verdict is the verdict that armed this machine, valid once state has
	// left StateIdle or a safe verdict was recorded.
	verdict    model.RiskVerdict
	hasVerdict bool

	surface          Surface
	autoDismissAfter time.Duration
	timerFn          TimerFunc
	dismissTimer     stopper
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithAutoDismissAfter overrides the suspicious-banner timeout.
func WithAutoDismissAfter(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.autoDismissAfter = d
		}
	}
}

// WithTimerFunc replaces the timer used for auto-dismissal.
func WithTimerFunc(fn TimerFunc) MachineOption {
	return func(m *Machine) {
		m.timerFn = fn
	}
}

// NewMachine creates a machine in StateIdle with no guarded forms.
func NewMachine(surface Surface, opts ...MachineOption) *Machine {
	m := &Machine{
		state:            StateIdle,
		guards:           make(map[string]GuardState),
		surface:          surface,
		autoDismissAfter: DefaultAutoDismissAfter,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.timerFn == nil {
		m.timerFn = func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		}
	}

	return m
}

// Deliver feeds a verdict to the machine.
//
// The first verdict with tier other than safe moves Idle to BannerShown and,
// at phishing tier, arms the form guards. Any verdict delivered after the
// machine has left Idle is a no-op: at most one banner per page load, and a
// dismissed banner stays dismissed. A safe verdict leaves the machine in
// Idle, so a later escalated verdict for the same load can still alert.
func (m *Machine) Deliver(v model.RiskVerdict) {
	m.mu.Lock()

	if m.state != StateIdle {
		m.mu.Unlock()
		return
	}

	m.verdict = v
	m.hasVerdict = true

	if v.Tier == model.TierSafe {
		m.mu.Unlock()
		return
	}

	m.state = StateBannerShown
	if v.Tier == model.TierSuspicious {
		// Phishing banners require explicit user action; only suspicious
		// banners time out.
		m.dismissTimer = m.timerFn(m.autoDismissAfter, m.autoDismiss)
	}
	m.mu.Unlock()

	m.surface.ShowBanner(v)
	if v.Tier == model.TierPhishing {
		m.surface.ArmGuards(v)
	}
}

// Dismiss handles explicit user dismissal. Valid from BannerShown at any
// tier; otherwise a no-op.
func (m *Machine) Dismiss() {
	m.dismiss()
}

// autoDismiss is the timer callback for suspicious banners.
func (m *Machine) autoDismiss() {
	m.dismiss()
}

func (m *Machine) dismiss() {
	m.mu.Lock()
	if m.state != StateBannerShown {
		m.mu.Unlock()
		return
	}
	m.state = StateBannerDismissed
	if m.dismissTimer != nil {
		m.dismissTimer.Stop()
		m.dismissTimer = nil
	}
	m.mu.Unlock()

	m.surface.HideBanner()
}

// SubmitAttempt handles a form submission attempt and reports whether the
// submission may continue.
//
// The guard is armed only at phishing tier. Each form is intercepted exactly
// once: the first attempt blocks and raises the overlay, an attempt while
// the overlay is up stays blocked without a second overlay, and any attempt
// after the guard resolved passes through. One-shot interception avoids an
// infinite confirmation loop when a form resubmits itself programmatically
// after the user proceeds.
func (m *Machine) SubmitAttempt(formID string) bool {
	m.mu.Lock()

	if !m.hasVerdict || m.verdict.Tier != model.TierPhishing {
		m.mu.Unlock()
		return true
	}

	switch m.guards[formID] {
	case GuardUnguarded:
		m.guards[formID] = GuardIntercepted
		v := m.verdict
		m.mu.Unlock()
		m.surface.ShowOverlay(formID, v)
		return false
	case GuardIntercepted:
		m.mu.Unlock()
		return false
	default: // GuardProceeded, GuardCancelled
		m.mu.Unlock()
		return true
	}
}

// Proceed handles the user's "proceed anyway" choice for an intercepted
// form: the overlay comes down and the original submission continues.
func (m *Machine) Proceed(formID string) {
	m.mu.Lock()
	if m.guards[formID] != GuardIntercepted {
		m.mu.Unlock()
		return
	}
	m.guards[formID] = GuardProceeded
	m.mu.Unlock()

	m.surface.HideOverlay(formID)
	m.surface.ResumeSubmit(formID)
}

// Cancel handles the user's "go back" choice for an intercepted form: the
// submission is discarded and the page navigates to the previous entry.
func (m *Machine) Cancel(formID string) {
	m.mu.Lock()
	if m.guards[formID] != GuardIntercepted {
		m.mu.Unlock()
		return
	}
	m.guards[formID] = GuardCancelled
	m.mu.Unlock()

	m.surface.HideOverlay(formID)
	m.surface.NavigateBack()
}

// State returns the banner state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Guard returns the guard state for a form.
func (m *Machine) Guard(formID string) GuardState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guards[formID]
}

// Stop cancels any pending auto-dismiss timer. Called when the page load
// goes away so a stale timer cannot fire into a dead surface.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dismissTimer != nil {
		m.dismissTimer.Stop()
		m.dismissTimer = nil
	}
}
