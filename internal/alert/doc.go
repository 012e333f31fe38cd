// Package alert owns the per-page-load warning state: the dismissible banner
// and the credential-form guard overlay.
//
// Transitions are modeled as explicit states on a Machine rather than ad-hoc
// callbacks so their legality can be unit-tested without simulating the host
// platform. All UI side effects go through the Surface interface; the machine
// itself renders nothing.
package alert
