package asyncop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	moderrors "github.com/Aurel1407/Shu-no-sub002/errors"
	"github.com/Aurel1407/Shu-no-sub002/http/printable"
)

const maxResponseBody = 64 << 10

// Error is the normalized form of any failure raised by an action: a
// human-readable message and, when known, an HTTP-style status code.
// A zero StatusCode means the failure carried no status.
type Error struct {
	Message    string
	StatusCode int

	// Cause is the original failure, if there was one.
	Cause error

	permanent bool
}

// NewError builds an Error carrying a status code, typically from an API response.
func NewError(statusCode int, message string) *Error {
	return &Error{Message: message, StatusCode: statusCode}
}

func (e *Error) Error() string {
	if e == nil {
		return "unknown error"
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// HasStatus reports whether the error carries a status code.
func (e *Error) HasStatus() bool {
	return e.StatusCode != 0
}

// IsClientError reports whether the status code is in [400, 500).
func (e *Error) IsClientError() bool {
	return e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError
}

// StatusCoder is implemented by errors that know their HTTP status.
type StatusCoder interface {
	StatusCode() int
}

type permanentError struct {
	error
}

func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort marks err as permanent: a controller will not retry it whatever its
// message or status.
//
//	if err := validate(form); err != nil {
//	    return asyncop.Abort(err)
//	}
func Abort(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err}
}

// Normalize converts any failure value into an *Error. Errors keep their
// message and any status code found in their chain; nil becomes
// "unknown error", as does a nil *Error; every other value uses its fmt.Sprint form.
func Normalize(v any) *Error {
	switch val := v.(type) {
	case nil:
		return &Error{Message: "unknown error"}
	case *Error:
		if val == nil {
			return &Error{Message: "unknown error"}
		}

		return val
	case error:
		return normalizeError(val)
	case string:
		return &Error{Message: val}
	case fmt.Stringer:
		return &Error{Message: val.String()}
	default:
		return &Error{Message: fmt.Sprint(val)}
	}
}

func normalizeError(err error) *Error {
	out := &Error{Message: err.Error(), Cause: err}

	var inner *Error
	if errors.As(err, &inner) && inner != nil {
		out.StatusCode = inner.StatusCode
		out.permanent = inner.permanent
	}

	var sc StatusCoder
	if out.StatusCode == 0 && errors.As(err, &sc) {
		out.StatusCode = sc.StatusCode()
	}

	var pe *permanentError
	if errors.As(err, &pe) {
		out.permanent = true
	}

	return out
}

// normalizePanic keeps the panic value's message but records the stack in Cause.
func normalizePanic(recovered any, stack []byte) *Error {
	base := Normalize(recovered)

	return &Error{
		Message:    base.Message,
		StatusCode: base.StatusCode,
		Cause:      moderrors.PanicError(recovered, stack),
		permanent:  base.permanent,
	}
}

// FromResponse returns nil for responses below 400; otherwise it returns an
// *Error carrying the status and the API's message. JSON bodies of the form
// {"message": "..."} or {"error": "..."} supply the message, other text bodies
// are used verbatim, and HTML or binary bodies fall back to the status text.
// Compressed and non-UTF-8 bodies are decoded first. The body is read but not
// closed.
func FromResponse(resp *http.Response) error {
	if resp == nil {
		return &Error{Message: "no response"}
	}

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	out := &Error{
		Message:    http.StatusText(resp.StatusCode),
		StatusCode: resp.StatusCode,
	}

	text, mimeType, err := printable.Text(resp, maxResponseBody)
	if err != nil {
		return out
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return out
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}

	if json.Unmarshal([]byte(text), &payload) == nil {
		switch {
		case payload.Message != "":
			out.Message = payload.Message
		case payload.Error != "":
			out.Message = payload.Error
		}

		return out
	}

	if mimeType != "text/html" && !strings.HasPrefix(text, "<") {
		out.Message = text
	}

	return out
}
