//nolint:err113 // Test file uses errors.New() for creating test errors
package asyncop

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	moderrors "github.com/Aurel1407/Shu-no-sub002/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type statusErr struct {
	code int
}

func (s statusErr) Error() string   { return fmt.Sprintf("status %d", s.code) }
func (s statusErr) StatusCode() int { return s.code }

type stringer struct{}

func (stringer) String() string { return "from stringer" }

func TestNormalize(t *testing.T) {
	t.Parallel()

	plain := errors.New("Network error")
	typed := NewError(503, "Service Unavailable")

	tests := []struct {
		name    string
		input   any
		message string
		status  int
	}{
		{"nil", nil, "unknown error", 0},
		{"plain error", plain, "Network error", 0},
		{"typed error", typed, "Service Unavailable", 503},
		{"wrapped typed error", fmt.Errorf("booking: %w", typed), "booking: Service Unavailable", 503},
		{"status coder", statusErr{code: 409}, "status 409", 409},
		{"string", "raw failure", "raw failure", 0},
		{"stringer", stringer{}, "from stringer", 0},
		{"int", 42, "42", 0},
		{"nil typed error", (*Error)(nil), "unknown error", 0},
		{"wrapped nil typed error", fmt.Errorf("booking failed: %w", (*Error)(nil)), "booking failed: unknown error", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Normalize(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.status, got.StatusCode)
		})
	}
}

func TestNormalize_KeepsChain(t *testing.T) {
	t.Parallel()

	base := errors.New("Network error")
	got := Normalize(fmt.Errorf("wrap: %w", base))

	require.ErrorIs(t, got, base)
	assert.Same(t, Normalize(got), got)
}

func TestAbort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Abort(nil))

	base := errors.New("server refused")
	aborted := Abort(base)

	require.ErrorIs(t, aborted, base)
	assert.Equal(t, "server refused", aborted.Error())

	normalized := Normalize(fmt.Errorf("outer: %w", aborted))
	assert.True(t, normalized.permanent)
	assert.False(t, DefaultPolicy().Retryable(normalized))
}

func TestNormalizePanic(t *testing.T) {
	t.Parallel()

	got := normalizePanic("boom", []byte("stack"))

	assert.Equal(t, "boom", got.Message)
	require.ErrorIs(t, got, moderrors.ErrPanicRecovery)
	assert.Contains(t, got.Cause.Error(), "stack")
}

func TestNormalizePanic_NilTypedError(t *testing.T) {
	t.Parallel()

	var nilErr *Error

	got := normalizePanic(nilErr, nil)

	require.NotNil(t, got)
	assert.Equal(t, "unknown error", got.Message)
	require.ErrorIs(t, got, moderrors.ErrPanicRecovery)
}

func TestError_Status(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Error{Message: "x"}).HasStatus())
	assert.True(t, NewError(400, "x").IsClientError())
	assert.True(t, NewError(499, "x").IsClientError())
	assert.False(t, NewError(500, "x").IsClientError())
	assert.False(t, NewError(399, "x").IsClientError())
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestFromResponse(t *testing.T) {
	t.Parallel()

	t.Run("success is nil", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, FromResponse(response(http.StatusCreated, "")))
	})

	t.Run("json message", func(t *testing.T) {
		t.Parallel()

		err := FromResponse(response(http.StatusNotFound, `{"message":"Logement non trouvé"}`))

		var e *Error
		require.ErrorAs(t, err, &e)
		assert.Equal(t, 404, e.StatusCode)
		assert.Equal(t, "Logement non trouvé", e.Message)
	})

	t.Run("json error field", func(t *testing.T) {
		t.Parallel()

		err := FromResponse(response(http.StatusUnauthorized, `{"error":"Authentification requise"}`))
		assert.EqualError(t, err, "Authentification requise")
	})

	t.Run("plain text body", func(t *testing.T) {
		t.Parallel()

		err := FromResponse(response(http.StatusBadGateway, "upstream down\n"))
		assert.EqualError(t, err, "upstream down")
	})

	t.Run("html body falls back to status text", func(t *testing.T) {
		t.Parallel()

		err := FromResponse(response(http.StatusInternalServerError, "<html>oops</html>"))
		assert.EqualError(t, err, "Internal Server Error")
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()

		assert.EqualError(t, FromResponse(nil), "no response")
	})

	t.Run("latin-1 body is decoded", func(t *testing.T) {
		t.Parallel()

		latin1, err := charmap.ISO8859_1.NewEncoder().String("Créneau non trouvé")
		require.NoError(t, err)

		resp := response(http.StatusServiceUnavailable, latin1)
		resp.Header = http.Header{"Content-Type": {"text/plain; charset=iso-8859-1"}}

		var e *Error
		require.ErrorAs(t, FromResponse(resp), &e)
		assert.Equal(t, "Créneau non trouvé", e.Message)
		assert.False(t, DefaultPolicy().Retryable(e), "keyword matches after decoding")
	})

	t.Run("binary body falls back to status text", func(t *testing.T) {
		t.Parallel()

		resp := response(http.StatusBadGateway, "\x89PNG")
		resp.Header = http.Header{"Content-Type": {"image/png"}}

		assert.EqualError(t, FromResponse(resp), "Bad Gateway")
	})
}
