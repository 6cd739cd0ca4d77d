// Package reconcile keeps a client's local view of a session (token, user,
// favorite flags, ratings) consistent with the server.
//
// A Session is the per-tab state machine. It validates the stored token
// before every request, purges local state when the token is tampered with
// or rejected, and applies favorite and rating changes optimistically with
// rollback on failure. Tabs coordinate only through Storage change events
// and periodic checks driven by a Watcher.
package reconcile

// State is the session state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateExpired
	StateTampered
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	case StateTampered:
		return "tampered"
	default:
		return "unknown"
	}
}
