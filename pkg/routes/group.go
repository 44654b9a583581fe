package routes

import "net/http"

// Group organizes routes under a common prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux and returns the
// registered patterns in registration order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, group := range groups {
		patterns = registerGroup(mux, "", group, patterns)
	}
	return patterns
}

func registerGroup(mux *http.ServeMux, parentPrefix string, group Group, patterns []string) []string {
	fullPrefix := parentPrefix + group.Prefix
	for _, route := range group.Routes {
		pattern := route.pattern(fullPrefix)
		mux.HandleFunc(pattern, route.Handler)
		patterns = append(patterns, pattern)
	}
	for _, child := range group.Children {
		patterns = registerGroup(mux, fullPrefix, child, patterns)
	}
	return patterns
}
