package tenant

import (
	"net/http"
	"strings"
)

// SessionClaims are the tenant-related claims of a decoded session.
type SessionClaims struct {
	TenantID string
	OrgID    string
}

// Signals are the request inputs the resolver looks at.
type Signals struct {
	Host   string
	Path   string
	Header http.Header
	// Claims is nil when the request carries no decodable session.
	Claims *SessionClaims
	// HasCredential is set when the request presents any session cookie or
	// bearer header, valid or not.
	HasCredential bool
}

// ClaimsReader decodes session claims from a request. Missing or invalid
// sessions yield nil claims and a nil error.
type ClaimsReader interface {
	ReadClaims(r *http.Request) (*SessionClaims, error)
	HasCredential(r *http.Request) bool
}

// SessionClearer removes the session credential from the client.
type SessionClearer interface {
	ClearSession(w http.ResponseWriter, r *http.Request)
}

// SignalsFromRequest collects resolver inputs from r. reader may be nil, in
// which case only a bearer Authorization header counts as a credential.
func SignalsFromRequest(r *http.Request, reader ClaimsReader) (Signals, error) {
	sig := Signals{
		Host:   r.Host,
		Path:   r.URL.Path,
		Header: r.Header,
	}

	if reader == nil {
		sig.HasCredential = hasBearer(r)
		return sig, nil
	}

	claims, err := reader.ReadClaims(r)
	if err != nil {
		return sig, err
	}
	sig.Claims = claims
	sig.HasCredential = claims != nil || reader.HasCredential(r) || hasBearer(r)
	return sig, nil
}

func hasBearer(r *http.Request) bool {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	return len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ")
}
