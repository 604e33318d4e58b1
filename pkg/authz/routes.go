package authz

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quizdesk/quizdesk/pkg/config"
)

// RouteTable maps navigation paths to resource classes.
//
// A pattern matches a path when its segments are a prefix of the path's
// segments; a segment written as {name} matches any single segment. The
// most specific matching pattern wins, and paths nothing matches are
// Public.
type RouteTable struct {
	routes []route
}

type route struct {
	pattern   string
	segments  []string
	wildcards int
	class     ResourceClass
}

// NewRouteTable builds a table from configured routes.
func NewRouteTable(routes []config.Route) (*RouteTable, error) {
	t := &RouteTable{}
	for _, r := range routes {
		class, err := ResourceClassString(r.Class)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Pattern, err)
		}
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route %s: pattern must start with /", r.Pattern)
		}

		rt := route{pattern: r.Pattern, segments: splitPath(r.Pattern), class: class}
		for _, s := range rt.segments {
			if isWildcard(s) {
				rt.wildcards++
			}
		}
		t.routes = append(t.routes, rt)
	}

	// Longest first, then fewer wildcards; the first match is the most
	// specific one.
	sort.SliceStable(t.routes, func(i, j int) bool {
		a, b := t.routes[i], t.routes[j]
		if len(a.segments) != len(b.segments) {
			return len(a.segments) > len(b.segments)
		}
		return a.wildcards < b.wildcards
	})
	return t, nil
}

// Classify returns the class of path and the pattern that matched it, or
// Public and "" when none did.
func (t *RouteTable) Classify(path string) (ResourceClass, string) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	segments := splitPath(path)
	for _, r := range t.routes {
		if r.matches(segments) {
			return r.class, r.pattern
		}
	}
	return Public, ""
}

func (r route) matches(segments []string) bool {
	if len(r.segments) > len(segments) {
		return false
	}
	for i, s := range r.segments {
		if isWildcard(s) {
			continue
		}
		if s != segments[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

func isWildcard(segment string) bool {
	return len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}")
}
