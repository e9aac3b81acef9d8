package domain

import "errors"

var (
	// ErrParseDegraded marks malformed markup recovered as literal text.
	ErrParseDegraded = errors.New("parse degraded")
	// ErrRewriteSkipped marks a template that was left untouched.
	ErrRewriteSkipped = errors.New("rewrite skipped")
	// ErrNameResolutionExhausted is returned when no free destination name was found.
	ErrNameResolutionExhausted = errors.New("name resolution exhausted")
	// ErrNetwork wraps transport failures reported by collaborators.
	ErrNetwork = errors.New("network failure")
	// ErrUnauthorized aborts the whole run: no further writes can succeed.
	ErrUnauthorized = errors.New("authorization failure")
)

// ErrorClass is the taxonomy name used in logs, metrics and the transfer log.
type ErrorClass string

const (
	ClassNone          ErrorClass = ""
	ClassParseDegraded ErrorClass = "parse_degraded"
	ClassRewrite       ErrorClass = "rewrite_skipped"
	ClassNameExhausted ErrorClass = "name_resolution_exhausted"
	ClassNetwork       ErrorClass = "network_failure"
	ClassAuthorization ErrorClass = "authorization_failure"
	ClassUnknown       ErrorClass = "unknown"
)

// Classify maps an error onto the taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrUnauthorized):
		return ClassAuthorization
	case errors.Is(err, ErrNameResolutionExhausted):
		return ClassNameExhausted
	case errors.Is(err, ErrNetwork):
		return ClassNetwork
	case errors.Is(err, ErrParseDegraded):
		return ClassParseDegraded
	case errors.Is(err, ErrRewriteSkipped):
		return ClassRewrite
	default:
		return ClassUnknown
	}
}
