package codec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

var numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// DecodeMetadataValue decodes one value from an mdls style dump:
//
//	(null)            -> null
//	( "a", "b" )      -> list of strings
//	"text"            -> string without quotes
//	42, -1.5, 2e3     -> number
//	anything else     -> the string unchanged
func DecodeMetadataValue(raw string) Value {
	s := strings.TrimSpace(raw)

	switch {
	case s == "(null)":
		return Null()
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return decodeList(s[1 : len(s)-1])
	case isQuoted(s):
		return String(s[1 : len(s)-1])
	case numberPattern.MatchString(s):
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			v := Number(n)
			v.Size = len(s)
			return v
		}
	}
	return String(s)
}

func decodeList(inner string) Value {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return List()
	}
	parts := strings.Split(inner, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if isQuoted(part) {
			part = part[1 : len(part)-1]
		}
		items = append(items, part)
	}
	v := List(items...)
	v.Size = len(inner)
	return v
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

// Field is one "name = value" entry of a metadata dump.
type Field struct {
	Name  string `json:"name" yaml:"name"`
	Value Value  `json:"value" yaml:"value"`
}

// ParseMetadataDump parses the full output of a metadata dump. Multi-line
// parenthesized lists are joined before decoding. Lines whose name is not a
// valid attribute identifier are skipped.
func ParseMetadataDump(out string) []Field {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	fields := make([]Field, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		name, value, ok := strings.Cut(lines[i], "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		if strings.HasPrefix(value, "(") && !strings.HasSuffix(value, ")") {
			var b strings.Builder
			b.WriteString(value)
			for i+1 < len(lines) {
				i++
				next := strings.TrimSpace(lines[i])
				b.WriteString(" ")
				b.WriteString(next)
				if strings.HasSuffix(next, ")") {
					break
				}
			}
			value = b.String()
		}

		if !sandbox.IsToken(name) {
			continue
		}
		fields = append(fields, Field{Name: name, Value: DecodeMetadataValue(value)})
	}
	return fields
}

// ParseLines splits line oriented tool output (attribute listings, search
// results) into its non-empty lines.
func ParseLines(out string) []string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			continue
		}
		result = append(result, line)
	}
	return result
}
