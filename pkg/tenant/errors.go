package tenant

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrOrgNotFound            = errors.New("organization not found")
	ErrDomainNotFound         = errors.New("domain not found")
	ErrDatabaseConfigNotFound = errors.New("tenant database config not found")

	// ErrNoScope is returned when code expecting a request scope runs outside one.
	ErrNoScope = errors.New("no tenant scope in context")

	ErrInvalidStaticRegistry = errors.New("invalid static registry")
	ErrCacheDecode           = errors.New("registry cache: decode failed")
	ErrInvalidDSN            = errors.New("invalid database connection url")
)

// Kind classifies an expected resolution failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindForbidden
	KindUnauthorized
	KindMismatch
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	case KindMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Error payload values that clients match on.
const (
	CodeSessionInvalid = "session_invalid"
	CodeTenantMismatch = "tenant_mismatch"

	MessageNotAuthorized   = "Not authorized"
	MessageUndetermined    = "Unable to determine tenant from URL"
	MessageInternalFailure = "Internal server error"
)

// ResolutionError is a definite, expected resolution failure. Any other
// error coming out of the resolver is an internal failure.
type ResolutionError struct {
	Kind       Kind
	Status     int
	Message    string
	RedirectTo string
	// ClearSession asks the transport to drop the session credential so the
	// client does not loop on a stale session.
	ClearSession bool
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("tenant resolution %s: %s", e.Kind, e.Message)
}

// AsResolutionError unwraps err into a *ResolutionError.
func AsResolutionError(err error) (*ResolutionError, bool) {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

func notFound(format string, args ...any) *ResolutionError {
	return &ResolutionError{Kind: KindNotFound, Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *ResolutionError {
	return &ResolutionError{Kind: KindForbidden, Status: http.StatusForbidden, Message: fmt.Sprintf(format, args...)}
}

func notAuthorized() *ResolutionError {
	return &ResolutionError{Kind: KindUnauthorized, Status: http.StatusUnauthorized, Message: MessageNotAuthorized}
}

func sessionInvalid() *ResolutionError {
	return &ResolutionError{
		Kind:         KindUnauthorized,
		Status:       http.StatusUnauthorized,
		Message:      CodeSessionInvalid,
		ClearSession: true,
	}
}

func mismatch(redirectTo string) *ResolutionError {
	return &ResolutionError{
		Kind:       KindMismatch,
		Status:     http.StatusForbidden,
		Message:    CodeTenantMismatch,
		RedirectTo: redirectTo,
	}
}

// ensureActive is the activation check shared by every strategy.
func ensureActive(t *Tenant, o *Org) error {
	if !t.IsActive() {
		return forbidden("Tenant '%s' is not active", t.Slug)
	}
	if !o.IsActive() {
		return forbidden("Organization '%s' is not active", o.Slug)
	}
	return nil
}
