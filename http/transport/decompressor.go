package transport

import (
	"errors"
	"io"
	"net/http"

	"github.com/fereidani/httpdecompressor"
)

// NewDecompressor wraps rt so that response bodies compressed with gzip,
// deflate, br, zstd, snappy or lz4 are decoded transparently. It panics if
// rt is nil.
func NewDecompressor(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		panic("transport: nil round tripper")
	}

	return &decompressor{next: rt}
}

type decompressor struct {
	next http.RoundTripper
}

func (d *decompressor) RoundTrip(req *http.Request) (*http.Response, error) {
	rsp, err := d.next.RoundTrip(req)
	if err != nil {
		return rsp, err
	}

	orig := rsp.Body

	decoded, err := httpdecompressor.Reader(rsp)
	if err != nil {
		_ = orig.Close()

		return nil, err
	}

	if decoded == orig {
		return rsp, nil
	}

	rsp.Body = &decodedBody{decoded: decoded, orig: orig}
	rsp.Header.Del("Content-Encoding")
	rsp.Header.Del("Content-Length")
	rsp.ContentLength = -1

	return rsp, nil
}

// decodedBody closes the decoder before the underlying connection body.
type decodedBody struct {
	decoded io.ReadCloser
	orig    io.ReadCloser
}

func (b *decodedBody) Read(p []byte) (int, error) {
	return b.decoded.Read(p)
}

func (b *decodedBody) Close() error {
	return errors.Join(b.decoded.Close(), b.orig.Close())
}

var _ http.RoundTripper = (*decompressor)(nil)
