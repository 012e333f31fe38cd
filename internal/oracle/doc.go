// Package oracle provides the HTTP client for the external scoring service.
//
// The oracle is treated as a black-box numeric classifier: one request/response
// call carrying page signals, answered with a shape-polymorphic score payload.
// No retry, streaming, or pagination is assumed; callers degrade to the
// unscored state on any failure.
package oracle
