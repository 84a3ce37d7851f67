package clients

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jsamuelsen/session-relay/internal/domain"
)

// Rate-limit hint header aliases, checked in order. Lookups go through
// http.Header.Get, which canonicalizes names.
var (
	retryAfterHeaders = []string{"Retry-After", "X-RateLimit-Retry-After", "X-Retry-After"}
	resetHeaders      = []string{"RateLimit-Reset", "X-RateLimit-Reset", "X-Rate-Limit-Reset"}
)

// Attempt describes the request a failure belongs to.
type Attempt struct {
	// Retried is set once the request has been re-issued after a renewal.
	Retried bool

	// Renewal marks the token renewal call itself.
	Renewal bool

	// Anonymous marks auth endpoints that carry no bearer token.
	Anonymous bool
}

// Hints holds the raw rate-limit header values of a 429 response.
type Hints struct {
	RetryAfter string
	Reset      string
}

// Empty reports whether no hint was found.
func (h Hints) Empty() bool {
	return h.RetryAfter == "" && h.Reset == ""
}

// Classification is the outcome of classifying a failed request.
type Classification struct {
	Kind   domain.Kind
	Status int
	Code   string
	Hints  Hints
}

// Error builds the caller-facing error for the classification.
func (c Classification) Error(cause error) *domain.ClassifiedError {
	ce := domain.NewClassifiedError(c.Kind, c.Status, cause)

	var re *ResponseError
	if errors.As(cause, &re) {
		ce.Header = re.Header
		ce.Body = re.Body
	}

	return ce
}

// Classifier routes failures between the rate-limit breaker and the refresh
// coordinator. It is stateless and safe for concurrent use.
type Classifier struct {
	terminalCodes     map[string]struct{}
	ambiguousTerminal bool
}

// NewClassifier creates a classifier. terminalCodes are the backend error
// codes that mean the session cannot be renewed (matched case-insensitively).
// When ambiguousTerminal is set, a 401 without a known code on a retried
// request or on the renewal call also ends the session.
func NewClassifier(terminalCodes []string, ambiguousTerminal bool) *Classifier {
	codes := make(map[string]struct{}, len(terminalCodes))
	for _, code := range terminalCodes {
		codes[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}

	return &Classifier{terminalCodes: codes, ambiguousTerminal: ambiguousTerminal}
}

// Classify labels err. breakerActive reports whether the rate-limit window
// was open when the request was dispatched or is open now.
func (c *Classifier) Classify(err error, attempt Attempt, breakerActive bool) Classification {
	var re *ResponseError
	if !errors.As(err, &re) {
		return Classification{Kind: classifyTransport(err)}
	}

	cls := Classification{Status: re.Status, Code: re.Code()}

	switch {
	case re.Status == http.StatusTooManyRequests:
		cls.Kind = domain.KindRateLimited
		cls.Hints = hintsFrom(re.Header)

	case re.Status == http.StatusUnauthorized:
		cls.Kind = c.classifyUnauthorized(cls.Code, attempt, breakerActive)

	case attempt.Renewal && c.isTerminal(cls.Code) &&
		(re.Status == http.StatusBadRequest || re.Status == http.StatusForbidden):
		// Some backends reject a dead refresh token with 400 or 403.
		cls.Kind = domain.KindTerminalAuth

	case re.Status >= http.StatusInternalServerError:
		cls.Kind = domain.KindServerError

	default:
		cls.Kind = domain.KindOther
	}

	return cls
}

func (c *Classifier) classifyUnauthorized(code string, attempt Attempt, breakerActive bool) domain.Kind {
	switch {
	case breakerActive:
		return domain.KindOther
	case attempt.Anonymous && !attempt.Renewal:
		// Sign-in style endpoints: wrong credentials, not a stale token.
		return domain.KindOther
	case !attempt.Retried && !attempt.Renewal:
		return domain.KindAuthExpired
	case c.isTerminal(code):
		return domain.KindTerminalAuth
	case c.ambiguousTerminal:
		return domain.KindTerminalAuth
	default:
		return domain.KindOther
	}
}

func (c *Classifier) isTerminal(code string) bool {
	if code == "" {
		return false
	}

	_, ok := c.terminalCodes[strings.ToUpper(code)]

	return ok
}

// classifyTransport labels a failure that carries no HTTP response.
func classifyTransport(err error) domain.Kind {
	switch {
	case err == nil:
		return domain.KindOther
	case errors.Is(err, context.Canceled):
		// The caller gave up; nothing is wrong with the network.
		return domain.KindOther
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrResponseTooLarge):
		return domain.KindOther
	default:
		return domain.KindNetworkError
	}
}

func hintsFrom(h http.Header) Hints {
	return Hints{
		RetryAfter: firstHeader(h, retryAfterHeaders),
		Reset:      firstHeader(h, resetHeaders),
	}
}

func firstHeader(h http.Header, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}

	return ""
}
