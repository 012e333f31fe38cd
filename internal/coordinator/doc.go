// Package coordinator arbitrates classification requests across page loads.
//
// Two independent triggers race for every load: an eager push carrying full
// page signals from the page itself, and a delayed fallback keyed off the
// navigation-completed event. The coordinator owns the claim set that
// guarantees at most one oracle call per load, drops results that arrive for
// loads the user has already left, and fans completed verdicts out to the
// activity log, the verdict cache, the badge surface, and the load's alert
// machine.
//
// Design decision: Handlers are serialized by a single mutex rather than a
// dedicated event-loop goroutine. The correctness argument is the same —
// the claim-set mutation happens-before the asynchronous oracle call is
// issued, and is visible to the fallback timer's handler because both run
// under the lock — but a mutex keeps the triggers callable directly from
// HTTP handlers and makes the interleavings deterministic in tests.
package coordinator
