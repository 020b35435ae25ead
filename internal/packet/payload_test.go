package packet

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_KnownKinds(t *testing.T) {
	tests := []struct {
		name string
		kind string
		raw  string
		want Payload
	}{
		{"text", KindText, `{"content":"hello"}`, TextPayload{Content: "hello"}},
		{"svg", KindSVG, `{"markup":"<svg/>"}`, SVGPayload{Markup: "<svg/>"}},
		{"html", KindHTML, `{"markup":"<b>x</b>"}`, HTMLPayload{Markup: "<b>x</b>"}},
		{"color", KindColor, `{"value":"#ff8800"}`, ColorPayload{Value: "#ff8800"}},
		{"url", KindURL, `{"href":"https://example.com","title":"Example"}`, URLPayload{Href: "https://example.com", Title: "Example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.kind, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, got.Kind())
		})
	}
}

func TestDecodePayload_BinaryKinds(t *testing.T) {
	got, err := DecodePayload(KindImage, json.RawMessage(`{"mime":"image/png","data":"aGk="}`))
	require.NoError(t, err)
	img, ok := got.(ImagePayload)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIME)
	assert.Equal(t, []byte("hi"), img.Data)

	got, err = DecodePayload(KindFile, json.RawMessage(`{"name":"notes.txt","mime":"text/plain","data":"aGk="}`))
	require.NoError(t, err)
	f, ok := got.(FilePayload)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, []byte("hi"), f.Data)
}

func TestDecodePayload_UnknownKindFallsBackToOpaque(t *testing.T) {
	raw := json.RawMessage(`{"frames":[1,2,3]}`)
	got, err := DecodePayload("animation", raw)
	require.NoError(t, err)

	op, ok := got.(OpaquePayload)
	require.True(t, ok, "unknown kind should decode as OpaquePayload")
	assert.Equal(t, "animation", op.Kind())
	assert.JSONEq(t, string(raw), string(op.Raw))
}

func TestDecodePayload_MalformedKnownKindFails(t *testing.T) {
	_, err := DecodePayload(KindText, json.RawMessage(`{"content":42`))
	assert.Error(t, err)
}

func TestEncodePayload_RoundTrip(t *testing.T) {
	payloads := []Payload{
		TextPayload{Content: "hello"},
		ImagePayload{MIME: "image/png", Data: []byte{0x89, 0x50}},
		SVGPayload{Markup: "<svg/>"},
		HTMLPayload{Markup: "<p>hi</p>"},
		FilePayload{Name: "a.bin", MIME: "application/octet-stream", Data: []byte{1, 2}},
		ColorPayload{Value: "#112233"},
		URLPayload{Href: "https://example.com"},
	}

	for _, p := range payloads {
		data, err := EncodePayload(p)
		require.NoError(t, err, p.Kind())

		back, err := DecodePayload(p.Kind(), data)
		require.NoError(t, err, p.Kind())
		assert.Equal(t, p, back, p.Kind())
	}
}

func TestEncodePayload_OpaquePreservesRawBytes(t *testing.T) {
	op := OpaquePayload{RawKind: "widget", Raw: json.RawMessage(`{"a":1,"b":"x"}`)}
	data, err := EncodePayload(op)
	require.NoError(t, err)
	assert.Equal(t, string(op.Raw), string(data))
}

func TestContentBytes(t *testing.T) {
	assert.Equal(t, []byte("hello"), ContentBytes(TextPayload{Content: "hello"}))
	assert.Equal(t, []byte("<svg/>"), ContentBytes(SVGPayload{Markup: "<svg/>"}))
	assert.Equal(t, []byte{1, 2, 3}, ContentBytes(ImagePayload{Data: []byte{1, 2, 3}}))
	assert.Equal(t, []byte{4}, ContentBytes(FilePayload{Data: []byte{4}}))
	assert.Equal(t, []byte("#fff"), ContentBytes(ColorPayload{Value: "#fff"}))
	assert.Equal(t, []byte("https://x"), ContentBytes(URLPayload{Href: "https://x"}))
}
