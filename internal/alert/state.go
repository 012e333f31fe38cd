package alert

// State is the banner state of one page load.
//
// Design decision: We use iota-based constants rather than string constants
// so transition checks are plain comparisons; String() provides the form
// used in logs and directives.
type State int

const (
	// StateIdle means no risk verdict has warranted a banner yet.
	StateIdle State = iota

	// StateBannerShown means the banner is visible. At most one banner is
	// ever shown per page load.
	StateBannerShown

	// StateBannerDismissed is terminal for the load: once dismissed, no
	// further verdict re-shows the banner.
	StateBannerDismissed
)

// String returns a human-readable representation of the banner state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBannerShown:
		return "banner_shown"
	case StateBannerDismissed:
		return "banner_dismissed"
	default:
		return "unknown"
	}
}

// GuardState is the interception state of one credential-bearing form.
type GuardState int

const (
	// GuardUnguarded means the form's next submission will be intercepted
	// (when the load is at phishing tier).
	GuardUnguarded GuardState = iota

	// GuardIntercepted means a submission was blocked and the confirmation
	// overlay is up, waiting for the user.
	GuardIntercepted

	// GuardProceeded means the user confirmed; the original submission was
	// allowed and the guard will not fire again for this form.
	GuardProceeded

	// GuardCancelled means the user backed out; the submission was
	// discarded and the guard will not fire again for this form.
	GuardCancelled
)

// String returns a human-readable representation of the guard state.
func (g GuardState) String() string {
	switch g {
	case GuardUnguarded:
		return "unguarded"
	case GuardIntercepted:
		return "intercepted"
	case GuardProceeded:
		return "proceeded"
	case GuardCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
