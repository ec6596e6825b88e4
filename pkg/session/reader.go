package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantgate/pkg/jwt"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Tokens issues and verifies session tokens. *jwt.Service implements it.
type Tokens interface {
	Issue(subject string, tenantID, orgID uuid.UUID) (string, error)
	Parse(token string) (*jwt.Claims, error)
}

// Reader decodes tenant claims from session tokens. It implements
// tenant.ClaimsReader and tenant.SessionClearer.
type Reader struct {
	transport Transport
	tokens    Tokens
	ttl       time.Duration
	logger    *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithTTL sets the client-side lifetime of tokens written by Start.
func WithTTL(ttl time.Duration) Option {
	return func(r *Reader) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithLogger sets the reader logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewReader creates a Reader over transport.
func NewReader(transport Transport, tokens Tokens, opts ...Option) *Reader {
	r := &Reader{
		transport: transport,
		tokens:    tokens,
		ttl:       jwt.DefaultTTL,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadClaims returns nil claims for requests without a token and for tokens
// that fail verification.
func (rd *Reader) ReadClaims(r *http.Request) (*tenant.SessionClaims, error) {
	token, err := rd.transport.GetToken(r)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	claims, err := rd.tokens.Parse(token)
	if err != nil {
		rd.logger.DebugContext(r.Context(), "session token rejected",
			logger.Component("session"),
			logger.Error(err),
		)
		return nil, nil
	}
	return &tenant.SessionClaims{TenantID: claims.TenantID, OrgID: claims.OrgID}, nil
}

// HasCredential reports whether the request presents a token at all.
func (rd *Reader) HasCredential(r *http.Request) bool {
	token, err := rd.transport.GetToken(r)
	return err == nil && token != ""
}

// ClearSession removes the token from the client.
func (rd *Reader) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := rd.transport.ClearToken(w); err != nil {
		rd.logger.WarnContext(r.Context(), "failed to clear session",
			logger.Component("session"),
			logger.Error(err),
		)
	}
}

// Start issues a token for subject in the given tenant and org and writes it
// to the client.
func (rd *Reader) Start(w http.ResponseWriter, subject string, tenantID, orgID uuid.UUID) (string, error) {
	token, err := rd.tokens.Issue(subject, tenantID, orgID)
	if err != nil {
		return "", err
	}
	if err := rd.transport.SetToken(w, token, rd.ttl); err != nil {
		return "", err
	}
	return token, nil
}

var (
	_ tenant.ClaimsReader   = (*Reader)(nil)
	_ tenant.SessionClearer = (*Reader)(nil)
)
