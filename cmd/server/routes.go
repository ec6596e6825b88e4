package main

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantgate/pkg/clientip"
	"github.com/dmitrymomot/tenantgate/pkg/connpool"
	"github.com/dmitrymomot/tenantgate/pkg/httpserver"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/pg"
	"github.com/dmitrymomot/tenantgate/pkg/requestid"
	"github.com/dmitrymomot/tenantgate/pkg/session"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

type routerDeps struct {
	log        *slog.Logger
	clientIPs  clientip.Extractor
	resolver   *tenant.Resolver
	pool       *connpool.Pool
	registry   tenant.Registry
	sessions   *session.Reader
	checks     []httpserver.Check
	telemetry  *telemetry
	adminToken string
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(d.clientIPs.Middleware)

	r.Get("/healthz", httpserver.HealthHandler(d.log))
	r.Get("/readyz", httpserver.HealthHandler(d.log, d.checks...))

	if d.adminToken != "" {
		r.Route("/internal", func(r chi.Router) {
			r.Use(adminOnly(d.adminToken))
			r.Get("/pool", poolStats(d.pool))
			r.Get("/metrics", metricsHandler(d.telemetry))
			r.Post("/pool/sweep", sweepPool(d.pool, d.log))
			r.Post("/tenants/{tenantID}/orgs/{orgID}/evict", evictConnection(d.pool, d.log))
			r.Post("/tenants/{tenantID}/invalidate", invalidateTenant(d.registry, d.log))
			r.Post("/sessions", issueSession(d.sessions, d.registry))
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(tenant.Middleware(d.resolver, d.pool,
			tenant.WithClaimsReader(d.sessions),
			tenant.WithLogger(d.log),
		))
		r.Use(tenant.RequireScope(nil))

		r.Get("/api/tenant", currentTenant)
		r.Get("/api/db/ping", pingTenantDB(d.log))
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func adminOnly(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, tenant.MessageNotAuthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type tenantView struct {
	TenantID   uuid.UUID `json:"tenantId"`
	TenantSlug string    `json:"tenantSlug"`
	TenantName string    `json:"tenantName"`
	OrgID      uuid.UUID `json:"orgId"`
	OrgSlug    string    `json:"orgSlug"`
	Schema     string    `json:"schema"`
}

func currentTenant(w http.ResponseWriter, r *http.Request) {
	s := tenant.MustFromContext(r.Context())
	writeJSON(w, http.StatusOK, tenantView{
		TenantID:   s.Tenant.ID,
		TenantSlug: s.Tenant.Slug,
		TenantName: s.Tenant.Name,
		OrgID:      s.Org.ID,
		OrgSlug:    s.Org.Slug,
		Schema:     s.Schema,
	})
}

func pingTenantDB(log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		db, err := pg.DBFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, tenant.MessageInternalFailure)
			return
		}
		if err := db.Ping(r.Context()); err != nil {
			log.ErrorContext(r.Context(), "tenant database ping failed", logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "Tenant database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "schema": db.Schema})
	}
}

func poolStats(pool *connpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"size": pool.GetCacheSize()})
	}
}

func sweepPool(pool *connpool.Pool, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := pool.EvictExpired()
		log.InfoContext(r.Context(), "expired tenant handles evicted", logger.Event("pool.sweep"), slog.Int("count", n))
		writeJSON(w, http.StatusOK, map[string]int{"evicted": n})
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func evictConnection(pool *connpool.Pool, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid, err := pathUUID(r, "tenantID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}
		oid, err := pathUUID(r, "orgID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid org id")
			return
		}
		evicted := pool.EvictConnection(tid, oid)
		log.InfoContext(r.Context(), "tenant handle eviction requested",
			logger.TenantID(tid),
			logger.OrgID(oid),
			slog.Bool("evicted", evicted),
		)
		writeJSON(w, http.StatusOK, map[string]bool{"evicted": evicted})
	}
}

func invalidateTenant(registry tenant.Registry, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tid, err := pathUUID(r, "tenantID")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid tenant id")
			return
		}
		cached, ok := registry.(*tenant.CachedRegistry)
		if !ok {
			writeJSON(w, http.StatusOK, map[string]bool{"invalidated": false})
			return
		}
		if err := cached.InvalidateTenant(r.Context(), tid); err != nil {
			log.ErrorContext(r.Context(), "registry invalidation failed", logger.TenantID(tid), logger.Error(err))
			writeError(w, http.StatusInternalServerError, tenant.MessageInternalFailure)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"invalidated": true})
	}
}

type sessionRequest struct {
	Subject  string    `json:"subject"`
	TenantID uuid.UUID `json:"tenantId"`
	OrgID    uuid.UUID `json:"orgId"`
}

// issueSession mints a session for an existing pair, for operators and
// local development where no auth gateway runs.
func issueSession(sessions *session.Reader, registry tenant.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject == "" {
			writeError(w, http.StatusBadRequest, "subject, tenantId and orgId are required")
			return
		}
		o, err := registry.GetOrg(r.Context(), req.OrgID)
		if err != nil || o.TenantID != req.TenantID {
			writeError(w, http.StatusNotFound, "organization not found")
			return
		}
		token, err := sessions.Start(w, req.Subject, req.TenantID, req.OrgID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, tenant.MessageInternalFailure)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"token": token})
	}
}
