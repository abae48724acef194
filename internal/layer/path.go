package layer

import (
	"sort"
	"strings"
)

// Separator joins path segments.
const Separator = "."

// Split breaks a dotted path into its segments. An empty path has no segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join builds a dotted path, skipping empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Separator)
}

// PathToEnvVar converts a dotted path to an environment variable name.
// e.g., "docus.title" -> "DOCUS_TITLE", "bugsnag.config.apiKey" -> "BUGSNAG_CONFIG_APIKEY"
func PathToEnvVar(path string) string {
	if path == "" {
		return ""
	}
	return strings.ToUpper(strings.ReplaceAll(path, Separator, "_"))
}

// Lookup walks doc along path and returns the value found there.
// The returned value is shared with doc; callers that hand it out must Clone it.
func Lookup(doc map[string]any, path string) (any, bool) {
	segments := Split(path)
	if len(segments) == 0 {
		return nil, false
	}

	var current any = doc
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Leaves returns the sorted dotted paths of every leaf in doc. Scalars, nil,
// arrays and empty maps are leaves.
func Leaves(doc map[string]any) []string {
	var out []string
	collectLeaves(doc, "", &out)
	sort.Strings(out)
	return out
}

func collectLeaves(m map[string]any, prefix string, out *[]string) {
	for key, value := range m {
		path := Join(prefix, key)
		if child, ok := value.(map[string]any); ok && len(child) > 0 {
			collectLeaves(child, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

// set stores value at path inside doc, creating or replacing intermediate maps.
func set(doc map[string]any, path string, value any) {
	segments := Split(path)
	if len(segments) == 0 {
		return
	}

	current := doc
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[seg] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}
