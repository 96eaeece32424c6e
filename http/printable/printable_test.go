package printable

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

const (
	limit    = 64 << 10
	testBody = `{"message":"Logement non trouvé"}`
)

func response(header http.Header, body []byte) *http.Response {
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func TestText_Plain(t *testing.T) {
	t.Parallel()

	text, mimeType, err := Text(response(http.Header{
		"Content-Type": {"application/json"},
	}, []byte(testBody)), limit)
	require.NoError(t, err)
	assert.Equal(t, testBody, text)
	assert.Equal(t, "application/json", mimeType)
}

func TestText_NilAndEmpty(t *testing.T) {
	t.Parallel()

	text, _, err := Text(nil, limit)
	require.NoError(t, err)
	assert.Empty(t, text)

	text, _, err = Text(&http.Response{}, limit)
	require.NoError(t, err)
	assert.Empty(t, text)

	text, _, err = Text(response(nil, nil), limit)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestText_Compressed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		encoding string
		compress func(t *testing.T, data []byte) []byte
	}{
		{name: "gzip", encoding: "gzip", compress: compressGzip},
		{name: "brotli", encoding: "br", compress: compressBrotli},
		{name: "zstd", encoding: "zstd", compress: compressZstd},
		{name: "lz4", encoding: "lz4", compress: compressLz4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			resp := response(http.Header{
				"Content-Type":     {"application/json; charset=utf-8"},
				"Content-Encoding": {tc.encoding},
			}, tc.compress(t, []byte(testBody)))

			text, _, err := Text(resp, limit)
			require.NoError(t, err)
			assert.Equal(t, testBody, text)
		})
	}
}

func TestText_DeclaredCharset(t *testing.T) {
	t.Parallel()

	latin1, err := charmap.ISO8859_1.NewEncoder().String("Réservation invalide")
	require.NoError(t, err)

	text, _, err := Text(response(http.Header{
		"Content-Type": {"text/plain; charset=ISO-8859-1"},
	}, []byte(latin1)), limit)
	require.NoError(t, err)
	assert.Equal(t, "Réservation invalide", text)
}

func TestText_Binary(t *testing.T) {
	t.Parallel()

	_, mimeType, err := Text(response(http.Header{
		"Content-Type": {"image/png"},
	}, []byte{0x89, 'P', 'N', 'G'}), limit)
	require.ErrorIs(t, err, ErrNotPrintable)
	assert.Equal(t, "image/png", mimeType)

	_, _, err = Text(response(nil, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05}), limit)
	require.ErrorIs(t, err, ErrNotPrintable)
}

func TestText_Limit(t *testing.T) {
	t.Parallel()

	text, _, err := Text(response(nil, []byte(strings.Repeat("a", 100))), 10)
	require.NoError(t, err)
	assert.Len(t, text, 10)
}

func TestText_LimitSplitsRune(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("a", 9) + "é"

	text, _, err := Text(response(nil, []byte(body)), 10)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 9), text)

	text, _, err = Text(response(http.Header{
		"Content-Type": {"text/plain; charset=utf-8"},
	}, []byte(body)), 10)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 9), text)
}

func TestTrimPartialRune(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte("abc"), trimPartialRune([]byte("abc")))
	assert.Equal(t, []byte("aé"), trimPartialRune([]byte("aé")))
	assert.Equal(t, []byte("a"), trimPartialRune([]byte("a\xe2\x82")))
	assert.Equal(t, []byte("a€"), trimPartialRune([]byte("a€")))
}

func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func compressBrotli(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := brotli.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)

	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func compressLz4(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := lz4.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}
