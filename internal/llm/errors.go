package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Kind is the failure category of a generation call.
type Kind int

const (
	KindNone Kind = iota
	KindMissingCredential
	KindInvalidCredential
	KindQuotaExhausted
	KindNetworkFailure
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindMissingCredential:
		return "missing_credential"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindNetworkFailure:
		return "network_failure"
	default:
		return "unknown_remote_error"
	}
}

// ErrMissingCredential is returned before any request is attempted when no
// API key is configured for the selected provider.
var ErrMissingCredential = errors.New("no API key configured")

// ErrInvalidCredential indicates the remote service rejected the API key.
type ErrInvalidCredential struct {
	Err error
}

func (e *ErrInvalidCredential) Error() string {
	return fmt.Sprintf("API key rejected: %v", e.Err)
}

func (e *ErrInvalidCredential) Unwrap() error { return e.Err }

// ErrQuotaExhausted indicates the provider returned a rate limit or quota
// error (429 / insufficient quota).
type ErrQuotaExhausted struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrQuotaExhausted) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("quota exhausted (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("quota exhausted: %v", e.Err)
}

func (e *ErrQuotaExhausted) Unwrap() error { return e.Err }

// ErrNetworkFailure indicates no usable response arrived, either because
// the connection failed or because the deadline expired.
type ErrNetworkFailure struct {
	Timeout bool
	Err     error
}

func (e *ErrNetworkFailure) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request timed out: %v", e.Err)
	}
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *ErrNetworkFailure) Unwrap() error { return e.Err }

// ErrRemote is any other provider failure. Error returns the provider's
// diagnostic unchanged.
type ErrRemote struct {
	Err error
}

func (e *ErrRemote) Error() string {
	if e.Err == nil {
		return "unknown remote error"
	}
	return e.Err.Error()
}

func (e *ErrRemote) Unwrap() error { return e.Err }

// KindOf reports the failure category of err.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrMissingCredential) {
		return KindMissingCredential
	}
	var inv *ErrInvalidCredential
	if errors.As(err, &inv) {
		return KindInvalidCredential
	}
	var quota *ErrQuotaExhausted
	if errors.As(err, &quota) {
		return KindQuotaExhausted
	}
	var nf *ErrNetworkFailure
	if errors.As(err, &nf) {
		return KindNetworkFailure
	}
	return KindUnknown
}

// Classify normalizes an arbitrary error into one of the typed errors above.
// Errors that are already typed are returned as-is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	var remote *ErrRemote
	if errors.As(err, &remote) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrNetworkFailure{Timeout: true, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &ErrNetworkFailure{Timeout: netErr.Timeout(), Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ErrNetworkFailure{Err: err}
	}
	return &ErrRemote{Err: err}
}

// classifyStatus maps an HTTP status code from a provider API error.
func classifyStatus(status int, message string, err error) error {
	switch {
	case status == 401 || status == 403:
		return &ErrInvalidCredential{Err: err}
	case status == 429:
		return &ErrQuotaExhausted{Err: err}
	case status == 400 && looksLikeBadKey(message):
		// Gemini answers an unknown key with 400 INVALID_ARGUMENT.
		return &ErrInvalidCredential{Err: err}
	case status == 408 || status == 504:
		return &ErrNetworkFailure{Timeout: true, Err: err}
	case looksLikeQuota(message):
		return &ErrQuotaExhausted{Err: err}
	}
	return Classify(err)
}

func looksLikeBadKey(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "api key not valid") ||
		strings.Contains(m, "api_key_invalid") ||
		strings.Contains(m, "invalid api key")
}

func looksLikeQuota(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "insufficient_quota") ||
		strings.Contains(m, "resource_exhausted") ||
		strings.Contains(m, "quota")
}
