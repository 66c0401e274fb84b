// internal/engine/nav.go
package engine

import (
	"strings"
)

// navVerbs are the leading phrases recognized as pure navigation commands.
// Longer phrases come first so "navigate to" wins over "navigate".
var navVerbs = []string{
	"go to",
	"navigate to",
	"open",
	"visit",
	"load",
}

// parseNavigationCommand detects commands that only ask to reach a URL, like
// "go to example.com". Such commands are handled locally with a synthesized
// navigate action: there is nothing for the planning oracle to decide, and
// skipping the round-trip makes the most common command deterministic.
func parseNavigationCommand(command string) (string, bool) {
	trimmed := strings.TrimSpace(command)
	lower := strings.ToLower(trimmed)

	for _, verb := range navVerbs {
		if !strings.HasPrefix(lower, verb+" ") {
			continue
		}
		rest := strings.TrimSpace(trimmed[len(verb):])
		rest = strings.Trim(rest, `"'`)
		rest = strings.TrimSuffix(rest, ".")
		if looksLikeURL(rest) {
			return rest, true
		}
	}
	return "", false
}

// looksLikeURL accepts a single token that carries a scheme or at least one
// dot. Anything with spaces is a real command, not a destination.
func looksLikeURL(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	if strings.Contains(s, "://") {
		return true
	}
	host, _, _ := strings.Cut(s, "/")
	return strings.Contains(host, ".") || strings.HasPrefix(host, "localhost")
}
