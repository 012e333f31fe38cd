// Package extract builds PageSignals records from page content.
//
// The extractor is a pure function of the page: given a URL and an HTML body
// it produces the flat signal record the scoring oracle consumes. The package
// also provides a Fetcher used by the manual check path, which downloads a
// page so its signals can be extracted locally. In the daemon path the
// browser agent extracts signals itself and the extractor is not involved.
package extract
