package codec

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DecodeAttributeValue decodes an extended attribute value dump. The dump is
// either printable text or whitespace separated hex byte pairs.
//
// Hex dumps whose bytes form clean UTF-8 are returned as text (tagged json
// when the text parses as JSON, utf8 otherwise). Hex dumps of binary data are
// returned as the dump itself, trimmed, tagged hex. An odd number of hex digits is not a
// byte dump and is decoded as text.
func DecodeAttributeValue(raw string) Value {
	if compact, ok := hexDigits(raw); ok && len(compact)%2 == 0 {
		data, err := hex.DecodeString(compact)
		if err == nil {
			if utf8.Valid(data) && !strings.ContainsRune(string(data), utf8.RuneError) {
				text := string(data)
				if parsed, ok := parseJSON(text); ok {
					return fromJSON(parsed, EncodingJSON, len(data))
				}
				return Value{Kind: KindString, Str: text, Encoding: EncodingUTF8, Size: len(data)}
			}
			return Value{Kind: KindString, Str: strings.TrimSpace(raw), Encoding: EncodingHex, Size: len(data)}
		}
	}

	if parsed, ok := parseJSON(raw); ok {
		return fromJSON(parsed, EncodingUTF8, len(raw))
	}
	return Value{Kind: KindString, Str: raw, Encoding: EncodingUTF8, Size: len(raw)}
}

// hexDigits strips whitespace from raw and reports whether what remains is a
// non-empty run of hex digits.
func hexDigits(raw string) (string, bool) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			continue
		case (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
			b.WriteRune(r)
		default:
			return "", false
		}
	}
	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}

func parseJSON(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return nil, false
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}
