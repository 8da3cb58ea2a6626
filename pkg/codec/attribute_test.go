package codec

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAttributeValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     Kind
		want     any
		encoding Encoding
		size     int
	}{
		{
			name:     "hex dump of text",
			raw:      "68 65 6C 6C 6F\n",
			kind:     KindString,
			want:     "hello",
			encoding: EncodingUTF8,
			size:     5,
		},
		{
			name:     "hex dump of json object",
			raw:      hex.EncodeToString([]byte(`{"a":1}`)),
			kind:     KindStructured,
			want:     map[string]any{"a": float64(1)},
			encoding: EncodingJSON,
			size:     7,
		},
		{
			name:     "hex dump of json number",
			raw:      "34 32",
			kind:     KindNumber,
			want:     float64(42),
			encoding: EncodingJSON,
			size:     2,
		},
		{
			name:     "hex dump of binary",
			raw:      "00 FF FE 01\n10 20\n",
			kind:     KindString,
			want:     "00 FF FE 01\n10 20",
			encoding: EncodingHex,
			size:     6,
		},
		{
			name:     "odd length hex treated as text",
			raw:      "abc",
			kind:     KindString,
			want:     "abc",
			encoding: EncodingUTF8,
			size:     3,
		},
		{
			name:     "plain text",
			raw:      "blue tag",
			kind:     KindString,
			want:     "blue tag",
			encoding: EncodingUTF8,
			size:     8,
		},
		{
			name:     "json text",
			raw:      `["x","y"]`,
			kind:     KindStructured,
			want:     []any{"x", "y"},
			encoding: EncodingUTF8,
			size:     9,
		},
		{
			name:     "multibyte text",
			raw:      "naïve",
			kind:     KindString,
			want:     "naïve",
			encoding: EncodingUTF8,
			size:     6,
		},
		{
			name:     "empty",
			raw:      "",
			kind:     KindString,
			want:     "",
			encoding: EncodingUTF8,
			size:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeAttributeValue(tt.raw)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.want, got.Interface())
			assert.Equal(t, tt.encoding, got.Encoding)
			assert.Equal(t, tt.size, got.Size)
		})
	}
}

func TestDecodeAttributeValue_ReplacementCharacterIsBinary(t *testing.T) {
	raw := hex.EncodeToString([]byte("ok\ufffd"))
	got := DecodeAttributeValue(raw)
	assert.Equal(t, EncodingHex, got.Encoding)
	assert.Equal(t, 5, got.Size)
}

func TestValueMarshalJSON(t *testing.T) {
	data, err := json.Marshal(List("a", "b"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":["a","b"],"kind":"list","encoding":"utf8","size":0}`, string(data))

	data, err = json.Marshal(Null())
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":null,"kind":"null","encoding":"utf8","size":0}`, string(data))
}
