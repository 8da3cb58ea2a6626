package sandbox

import "regexp"

// tokenPattern is the identifier grammar shared by extended-attribute names
// and search metadata attribute names.
var tokenPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsToken reports whether s is a well-formed attribute identifier.
func IsToken(s string) bool {
	return tokenPattern.MatchString(s)
}

// SanitizeTokens returns the identifiers from tokens that match the grammar,
// preserving order. Anything else is dropped silently; callers that want a
// diagnostic can compare lengths, but must not echo the dropped content.
func SanitizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if IsToken(tok) {
			out = append(out, tok)
		}
	}
	return out
}
