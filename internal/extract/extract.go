package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/phishguard/phishguard/internal/model"
)

// FromHTML extracts PageSignals from an HTML document.
//
// Design decision: We use goquery rather than walking the x/net/html node
// tree by hand because the signal record only needs selector counts and a
// text sample, and goquery correctly handles the malformed HTML that real
// (and especially phishing) pages are full of.
func FromHTML(pageURL string, r io.Reader) (model.PageSignals, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.PageSignals{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	signals := model.PageSignals{
		URL:                pageURL,
		Title:              strings.TrimSpace(doc.Find("title").First().Text()),
		FormCount:          doc.Find("form").Length(),
		InputCount:         doc.Find("input").Length(),
		PasswordFieldCount: doc.Find("input[type='password']").Length(),
		IframeCount:        doc.Find("iframe").Length(),
	}

	// Form actions in document order; empty actions carry no signal.
	doc.Find("form").Each(func(_ int, form *goquery.Selection) {
		if action, ok := form.Attr("action"); ok && action != "" {
			signals.FormActions = append(signals.FormActions, action)
		}
	})

	signals.VisibleText = visibleText(doc)

	return signals, nil
}

// visibleText returns a bounded sample of the page's human-visible text.
// Script, style, and noscript contents are not visible and would pollute the
// oracle's content model with code.
func visibleText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return ""
	}

	body.Find("script, style, noscript").Remove()

	// Collapse whitespace runs so the sample is stable regardless of source
	// indentation, then normalize to NFC. Phishing pages frequently abuse
	// decomposed Unicode forms to evade keyword matching.
	text := norm.NFC.String(strings.Join(strings.Fields(body.Text()), " "))

	runes := []rune(text)
	if len(runes) > model.MaxVisibleTextLen {
		runes = runes[:model.MaxVisibleTextLen]
	}
	return string(runes)
}
