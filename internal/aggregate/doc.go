// Package aggregate turns a scoring oracle response into exactly one
// canonical risk verdict. It owns the precedence rule for partial responses
// and the fixed tier thresholds; nothing else in the codebase derives a tier
// from raw scores.
package aggregate
