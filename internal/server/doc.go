// Package server implements the daemon's host API: the loopback HTTP
// surface the browser agent talks to.
//
// The agent pushes events (page signals, completed navigations, user
// actions) and polls per-load directive queues for UI work: banner and
// overlay changes, badge updates, form-guard arming. Directives are
// delivered at most once — the drain endpoint hands each directive out a
// single time, and a queue that is full or belongs to a departed load drops
// new directives silently. The agent treats missing directives as "nothing
// to do", which is the right failure mode for an advisory surface.
package server
