// Package codec decodes the free-form text emitted by the metadata tools into
// typed values. All input handled here is untrusted.
package codec

import (
	"encoding/json"
	"fmt"
)

// Kind identifies which field of a Value is populated.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindNull
	KindList
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindNull:
		return "null"
	case KindList:
		return "list"
	case KindStructured:
		return "structured"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Encoding records how a value was recovered from tool output.
type Encoding string

const (
	EncodingUTF8 Encoding = "utf8"
	EncodingHex  Encoding = "hex"
	EncodingJSON Encoding = "json"
)

// Value is a decoded attribute or metadata value.
type Value struct {
	Kind       Kind
	Str        string
	Num        float64
	List       []string
	Structured any
	Encoding   Encoding
	// Size is the byte size of the underlying attribute data.
	Size int
}

// String builds a string value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s, Encoding: EncodingUTF8, Size: len(s)}
}

// Number builds a numeric value.
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n, Encoding: EncodingUTF8}
}

// Null builds the null value.
func Null() Value {
	return Value{Kind: KindNull, Encoding: EncodingUTF8}
}

// List builds a list-of-string value.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{Kind: KindList, List: items, Encoding: EncodingUTF8}
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Interface returns the Go representation of v: string, float64, nil,
// []string or the parsed structure.
func (v Value) Interface() any {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindList:
		return v.List
	case KindStructured:
		return v.Structured
	default:
		return nil
	}
}

// MarshalJSON renders the value together with its encoding and size.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value    any      `json:"value"`
		Kind     string   `json:"kind"`
		Encoding Encoding `json:"encoding"`
		Size     int      `json:"size"`
	}{
		Value:    v.Interface(),
		Kind:     v.Kind.String(),
		Encoding: v.Encoding,
		Size:     v.Size,
	})
}

// MarshalYAML renders the same shape as MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	return map[string]any{
		"value":    v.Interface(),
		"kind":     v.Kind.String(),
		"encoding": string(v.Encoding),
		"size":     v.Size,
	}, nil
}

// fromJSON maps a parsed JSON document onto a Value.
func fromJSON(parsed any, enc Encoding, size int) Value {
	v := Value{Encoding: enc, Size: size}
	switch x := parsed.(type) {
	case nil:
		v.Kind = KindNull
	case string:
		v.Kind = KindString
		v.Str = x
	case float64:
		v.Kind = KindNumber
		v.Num = x
	default:
		v.Kind = KindStructured
		v.Structured = x
	}
	return v
}
