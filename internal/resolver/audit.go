package resolver

import (
	"strings"
	"unicode"

	"github.com/eugenenazirov/siteconfig/internal/layer"
	"github.com/eugenenazirov/siteconfig/internal/secret"
)

// sensitiveWords mark keys whose values are credentials. Keys are split into
// words at camelCase, snake_case and kebab-case boundaries and compared whole,
// so "authToken" and "api_key" match while "author" does not.
var sensitiveWords = map[string]struct{}{
	"password":    {},
	"passwd":      {},
	"secret":      {},
	"token":       {},
	"apikey":      {},
	"credential":  {},
	"credentials": {},
	"auth":        {},
}

func isSensitiveKey(key string) bool {
	words := keyWords(key)
	for i, w := range words {
		if _, ok := sensitiveWords[w]; ok {
			return true
		}
		if w == "api" && i+1 < len(words) && words[i+1] == "key" {
			return true
		}
	}
	return false
}

// keyWords lowercases key and splits it into words: "APIKey" -> [api key],
// "bugsnag_api-key" -> [bugsnag api key].
func keyWords(key string) []string {
	runes := []rune(key)
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = current[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		current = append(current, r)
	}
	flush()
	return words
}

// Finding is a literal value sitting where a secret reference belongs.
type Finding struct {
	Layer string
	Key   string
}

func (f Finding) String() string {
	return f.Layer + ": " + f.Key + " holds a literal secret"
}

// Audit reports literal strings stored at sensitive keys or at paths the base
// layer declares as secret references. Findings are ordered by layer, then path.
// Audit never fails; embedded literals are a migration problem to fix in the
// layer files, not a reason to stop.
func Audit(layers []layer.Layer, opts ...Option) []Finding {
	if len(layers) == 0 {
		return nil
	}
	o := newOptions(opts)

	declared := make(map[string]struct{})
	for _, path := range layers[0].Paths() {
		v, _ := layers[0].Get(path)
		if _, ok := secret.ParseRef(v, o.secretPrefix); ok {
			declared[path] = struct{}{}
		}
	}

	var findings []Finding
	for _, l := range layers {
		for _, path := range l.Paths() {
			v, _ := l.Get(path)
			s, ok := v.(string)
			if !ok || s == "" {
				continue
			}
			if _, isRef := secret.ParseRef(s, o.secretPrefix); isRef {
				continue
			}

			segments := layer.Split(path)
			_, isDeclared := declared[path]
			if isDeclared || isSensitiveKey(segments[len(segments)-1]) {
				findings = append(findings, Finding{Layer: l.Name(), Key: path})
			}
		}
	}
	return findings
}
