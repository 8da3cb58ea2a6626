package sandbox

import (
	"regexp"
	"strings"
)

const (
	// PathPlaceholder replaces every path-shaped substring.
	PathPlaceholder = "[path]"
	// GenericMessage is returned for messages with nothing usable in them.
	GenericMessage = "an internal error occurred"
)

// pathChar is one character of an unquoted path segment. A ':' is part of a
// segment only when another such character follows it.
const pathChar = `[^\s'"` + "`" + `,;:()\[\]<>]`

var (
	// Quoted spans holding a '/' are paths even when they contain spaces.
	quotedPathPattern = regexp.MustCompile(`(^|\W)(?:'[^'\n]*/[^'\n]*'|"[^"\n]*/[^"\n]*"|` + "`[^`\\n]*/[^`\\n]*`" + `)`)
	// Absolute, home, dot-relative and multi-segment relative Unix paths.
	unixPathPattern = regexp.MustCompile(`(?:~|\.{1,2}|[\w.\-]+)?(?:/(?:` + pathChar + `|:` + pathChar + `)+)+`)
	// C:\Users\file.txt
	winPathPattern = regexp.MustCompile(`[A-Za-z]:\\[^\s'"` + "`" + `,;()\[\]<>]*`)
	// "open '[path]'" or "file: [path]" collapse to the bare label.
	danglingLabelPattern = regexp.MustCompile(`(\w+):?\s*(['"` + "`" + `]?)\[path\]['"` + "`" + `]?`)
	quotedPlaceholder    = regexp.MustCompile(`['"` + "`" + `]\[path\]['"` + "`" + `]`)
	emptyQuotesPattern   = regexp.MustCompile(`(''|""|` + "``" + `)`)
	userInfoPattern      = regexp.MustCompile(`(user|host)\s+'[^']+'`)
	spacePattern         = regexp.MustCompile(`\s{2,}`)
)

// SanitizeMessage removes host paths and other local detail from msg so it
// can cross the trust boundary. It never fails.
func SanitizeMessage(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return GenericMessage
	}

	msg = stripNUL(msg)
	msg = sanitizeDockerErrors(msg)
	msg = winPathPattern.ReplaceAllString(msg, PathPlaceholder)
	msg = quotedPathPattern.ReplaceAllString(msg, "${1}"+PathPlaceholder)
	msg = unixPathPattern.ReplaceAllString(msg, PathPlaceholder)
	msg = userInfoPattern.ReplaceAllString(msg, "$1 [redacted]")
	msg = danglingLabelPattern.ReplaceAllString(msg, "$1")
	msg = quotedPlaceholder.ReplaceAllString(msg, PathPlaceholder)
	msg = emptyQuotesPattern.ReplaceAllString(msg, "")
	msg = spacePattern.ReplaceAllString(msg, " ")
	msg = strings.TrimRight(strings.TrimSpace(msg), ",;")

	if msg == "" {
		return GenericMessage
	}
	return msg
}

// SanitizeError returns an error whose text has passed through
// SanitizeMessage. The sandbox category survives, so errors.Is keeps working
// on the result.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	return &sanitizedError{
		category: Category(err),
		msg:      SanitizeMessage(err.Error()),
	}
}

type sanitizedError struct {
	category error
	msg      string
}

func (e *sanitizedError) Error() string {
	return e.msg
}

func (e *sanitizedError) Unwrap() error {
	return e.category
}

// sanitizeDockerErrors drops daemon framing that the container runner can
// leak into tool failures.
func sanitizeDockerErrors(msg string) string {
	replacements := []struct{ old, new string }{
		{"Error response from daemon:", ""},
		{"repository does not exist or may require 'docker login'", "image not available"},
		{"denied: requested access to the resource is denied", "access denied"},
	}
	for _, r := range replacements {
		msg = strings.ReplaceAll(msg, r.old, r.new)
	}
	return strings.TrimSpace(msg)
}
