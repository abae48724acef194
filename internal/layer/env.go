package layer

import (
	"strings"
)

// LookupFunc reports the value of an environment variable and whether it is set.
// os.LookupEnv satisfies it.
type LookupFunc func(name string) (string, bool)

// FromEnv builds an override layer from environment variables, guided by the
// leaf paths of schema. For every leaf the variable prefix+PathToEnvVar(path)
// is consulted ("SITE_" + "docus.title" -> SITE_DOCUS_TITLE). String leaves
// take the raw value, array leaves accept either a flow list or a
// comma-separated list, and every other leaf goes through ParseValue.
func FromEnv(name, prefix string, schema Layer, lookup LookupFunc) (Layer, error) {
	doc := make(map[string]any)
	if lookup == nil {
		return New(name, doc)
	}

	for _, path := range schema.Paths() {
		raw, ok := lookup(prefix + PathToEnvVar(path))
		if !ok {
			continue
		}

		base, _ := Lookup(schema.doc, path)
		set(doc, path, coerce(base, raw))
	}
	return New(name, doc)
}

// EnvVarNames lists the variables FromEnv would consult for schema.
func EnvVarNames(prefix string, schema Layer) []string {
	paths := schema.Paths()
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, prefix+PathToEnvVar(path))
	}
	return names
}

func coerce(base any, raw string) any {
	switch base.(type) {
	case string:
		return raw
	case []any:
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "[") {
			return ParseValue(trimmed)
		}
		return splitList(trimmed)
	default:
		return ParseValue(raw)
	}
}

func splitList(raw string) []any {
	out := []any{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
