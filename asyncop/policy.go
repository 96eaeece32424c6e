package asyncop

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultKeywords are the message fragments the booking API uses for
// permanent failures (authentication, authorization, not found, invalid or
// missing input).
var DefaultKeywords = []string{ //nolint:gochecknoglobals
	"authentification",
	"autorisation",
	"non trouvé",
	"invalide",
	"requise",
}

// Policy decides whether a failed attempt may be retried.
type Policy interface {
	Retryable(err *Error) bool
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(err *Error) bool

func (f PolicyFunc) Retryable(err *Error) bool {
	return f(err)
}

// KeywordPolicy treats client errors (status 4xx), errors marked with Abort
// and errors whose message contains one of its keywords as permanent.
// Everything else, including network failures, timeouts and 5xx, is retryable.
type KeywordPolicy struct {
	keywords []string
}

var _ Policy = (*KeywordPolicy)(nil)

// NewKeywordPolicy builds a policy matching the given keywords. Matching is
// case-insensitive and insensitive to Unicode normalization form.
func NewKeywordPolicy(keywords ...string) *KeywordPolicy {
	folded := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		if kw = fold(strings.TrimSpace(kw)); kw != "" {
			folded = append(folded, kw)
		}
	}

	return &KeywordPolicy{keywords: folded}
}

// DefaultPolicy returns a KeywordPolicy using DefaultKeywords.
func DefaultPolicy() *KeywordPolicy {
	return NewKeywordPolicy(DefaultKeywords...)
}

// Keywords returns the folded keywords in use.
func (p *KeywordPolicy) Keywords() []string {
	out := make([]string, len(p.keywords))
	copy(out, p.keywords)

	return out
}

func (p *KeywordPolicy) Retryable(err *Error) bool {
	if err == nil || err.permanent || err.IsClientError() {
		return false
	}

	msg := fold(err.Message)

	for _, kw := range p.keywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}

	return true
}

// fold case-folds s after composing it, so "NON TROUVÉ" in either NFC or NFD
// matches "non trouvé". A Caser is stateful, hence one per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
