// Package tenant resolves which tenant and org an HTTP request belongs to
// and scopes the rest of the request to that pair's database handle.
//
// # Resolution
//
// A Resolver runs an ordered chain of strategies over the request Signals
// and stops at the first definite outcome:
//
//  1. session claims (tenant and org ids, looked up by id)
//  2. verified custom domain (hosts outside the base domain)
//  3. subdomain (<org>.<tenant>.<base> or <tenant>.<base>)
//  4. explicit slug headers
//
// Expected failures are *ResolutionError values carrying the HTTP status and
// client message. Any other error is internal. When no strategy produces a
// result the request gets 401 if it carries no credential and 404 otherwise.
//
// A session whose tenant differs from the tenant the URL addresses is
// rejected with tenant_mismatch and the session tenant's canonical origin,
// chosen by Redirector.CanonicalURL.
//
// # Scope
//
// Middleware resolves the request, asks a ConnectionProvider for the handle
// and runs the downstream handler inside RunInScope:
//
//	resolver := tenant.NewResolver(registry, tenant.WithBaseDomain("example.com"))
//	mw := tenant.Middleware(resolver, pool,
//		tenant.WithClaimsReader(sessions),
//		tenant.WithSkipPaths("/healthz"),
//	)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		scope, ok := tenant.FromContext(r.Context())
//		...
//	}
//
// The scope is invisible to contexts outside the request window, including
// contexts captured by goroutines that outlive the request.
//
// # Registries
//
// Registry is implemented by StaticRegistry (in memory, optionally loaded
// from YAML), by the postgres and mongo packages, and decorated by
// CachedRegistry.
package tenant
