// Package printable turns HTTP response bodies into UTF-8 text suitable for
// error messages. Bodies are decompressed according to Content-Encoding
// (gzip, deflate, br, zstd, snappy, lz4) and transcoded from their declared
// or detected charset. Binary content is rejected.
package printable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fereidani/httpdecompressor"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// printabilityCheckLen bounds how much of the body the printability
// heuristic looks at.
const printabilityCheckLen = 1024

// ErrNotPrintable is returned for bodies that cannot be represented as text.
var ErrNotPrintable = errors.New("body is not printable")

// Text reads at most limit bytes of the decompressed response body and
// returns them as UTF-8 text along with the body's MIME type. The body is
// consumed but not closed. An empty body yields "" and no error.
func Text(resp *http.Response, limit int64) (string, string, error) {
	if resp == nil || resp.Body == nil {
		return "", "", nil
	}

	mimeType, charsetStr := contentType(resp.Header)

	data, err := readBody(resp, limit)
	if err != nil {
		return "", mimeType, err
	}

	if len(data) == 0 {
		return "", mimeType, nil
	}

	if mimeType != "" && !isPrintableMimeType(mimeType) {
		return "", mimeType, fmt.Errorf("%w: %s", ErrNotPrintable, mimeType)
	}

	if int64(len(data)) == limit && isUTF8Label(charsetStr) {
		data = trimPartialRune(data)
	}

	decoded, ok := toUTF8(data, charsetStr)
	if !ok || !looksPrintable(decoded) {
		return "", mimeType, ErrNotPrintable
	}

	return string(decoded), mimeType, nil
}

func readBody(resp *http.Response, limit int64) ([]byte, error) {
	origBody := resp.Body

	reader, err := httpdecompressor.Reader(resp)
	if err != nil {
		return nil, fmt.Errorf("error creating decompressor: %w", err)
	}

	if reader != origBody {
		defer reader.Close()
	}

	data, err := io.ReadAll(io.LimitReader(reader, limit))
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	return data, nil
}

func contentType(header http.Header) (string, string) {
	mimeType, params, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return "", ""
	}

	return mimeType, strings.ToLower(params["charset"])
}

// isPrintableMimeType checks if a MIME type represents text-based content.
func isPrintableMimeType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") ||
		strings.HasSuffix(mimeType, "+json") ||
		strings.HasSuffix(mimeType, "+xml") ||
		mimeType == "application/json" ||
		mimeType == "application/xml" ||
		mimeType == "application/javascript" ||
		mimeType == "application/x-www-form-urlencoded"
}

func isUTF8Label(charsetStr string) bool {
	return charsetStr == "" || charsetStr == "utf-8" || charsetStr == "utf8"
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of data
// by a truncated read.
func trimPartialRune(data []byte) []byte {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}

		if utf8.FullRune(data[i:]) {
			return data
		}

		return data[:i]
	}

	return data
}

// toUTF8 decodes data using the declared charset. Without one, valid UTF-8 is
// kept as is and anything else goes through charset detection.
func toUTF8(data []byte, charsetStr string) ([]byte, bool) {
	if charsetStr == "" && utf8.Valid(data) {
		return data, true
	}

	decoded, err := io.ReadAll(utf8Reader(data, charsetStr))
	if err != nil || !utf8.Valid(decoded) {
		return data, false
	}

	return decoded, true
}

func utf8Reader(data []byte, charsetStr string) io.Reader {
	if charsetStr != "" {
		if r, err := charset.NewReaderLabel(charsetStr, bytes.NewReader(data)); err == nil {
			return r
		}
	}

	best, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil {
		return bytes.NewReader(data)
	}

	r, err := charset.NewReaderLabel(best.Charset, bytes.NewReader(data))
	if err != nil {
		return bytes.NewReader(data)
	}

	return r
}

// looksPrintable reports whether more than 95% of the leading runes are
// printable or whitespace.
func looksPrintable(data []byte) bool {
	sample := data[:min(len(data), printabilityCheckLen)]

	printable, total := 0, 0

	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)

		sample = sample[size:]
		total++

		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}

	return total > 0 && float64(printable)/float64(total) > 0.95 //nolint:mnd
}
