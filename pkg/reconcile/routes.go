package reconcile

import "strings"

// RoutePolicy classifies client routes.
type RoutePolicy struct {
	Public    []string
	Protected []string // segments in brackets, like [id], match any single segment
}

// DefaultRoutePolicy returns the movie site's route table.
func DefaultRoutePolicy() RoutePolicy {
	return RoutePolicy{
		Public:    []string{"/", "/login", "/register", "/search", "/hot-movies"},
		Protected: []string{"/favorites", "/favorite-history", "/movies/[id]"},
	}
}

// IsPublic reports whether path skips token checks.
func (p RoutePolicy) IsPublic(path string) bool {
	for _, r := range p.Public {
		if r == path {
			return true
		}
	}
	return false
}

// IsProtected reports whether path requires a session.
func (p RoutePolicy) IsProtected(path string) bool {
	for _, r := range p.Protected {
		if matchRoute(r, path) {
			return true
		}
	}
	return false
}

func matchRoute(pattern, path string) bool {
	if !strings.Contains(pattern, "[") {
		return pattern == path
	}
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], "[") && strings.HasSuffix(ps[i], "]") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}
