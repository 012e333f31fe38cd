package model

// MaxVisibleTextLen is the maximum length of the visible text sample in runes.
// The oracle's content model only needs a sample, and unbounded page text would
// bloat every message that carries a PageSignals record.
const MaxVisibleTextLen = 5000

// PageSignals is a flat record of observable signals for one page load.
// It is produced once per load by the signal extractor, is immutable after
// creation, and is owned by the classification request that carries it.
//
// Design decision: We keep this a plain value struct with no methods that
// mutate state. The record travels across the host messaging boundary as
// JSON, so every field has a stable wire name matching what the browser
// agent sends.
type PageSignals struct {
	// URL is the full URL of the loaded page. Required; every other field
	// may be zero when the fallback trigger synthesizes a URL-only record.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title,omitempty"`

	// VisibleText is a sample of the page's visible text, at most
	// MaxVisibleTextLen runes. Used by the oracle's content model.
	VisibleText string `json:"visibleText,omitempty"`

	// FormCount is the number of <form> elements on the page.
	FormCount int `json:"formCount"`

	// InputCount is the number of <input> elements on the page.
	InputCount int `json:"inputCount"`

	// PasswordFieldCount is the number of password-type inputs.
	// A non-zero value marks the page as credential-bearing, which is what
	// arms the form guard at phishing tier.
	PasswordFieldCount int `json:"passwordFieldCount"`

	// IframeCount is the number of <iframe> elements on the page.
	IframeCount int `json:"iframeCount"`

	// FormActions lists the non-empty action attributes of the page's forms,
	// in document order.
	FormActions []string `json:"formActions,omitempty"`
}

// URLOnlySignals returns a minimal PageSignals carrying only the URL.
// The fallback trigger uses this when no push from the page arrived in time,
// so the oracle answers in URL-only mode.
func URLOnlySignals(url string) PageSignals {
	return PageSignals{URL: url}
}

// HasPageData reports whether the record carries structural or content data
// beyond the URL. URL-only records make the oracle skip its structural and
// content models.
func (s PageSignals) HasPageData() bool {
	return s.Title != "" || s.VisibleText != "" || s.FormCount > 0 ||
		s.InputCount > 0 || s.PasswordFieldCount > 0 || s.IframeCount > 0 ||
		len(s.FormActions) > 0
}
