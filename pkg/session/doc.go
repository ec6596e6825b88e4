// Package session connects session tokens to tenant resolution.
//
// A Transport moves the raw token: CookieTransport reads and writes a
// cookie, HeaderTransport an "Authorization: Bearer" style header, and
// CompositeTransport tries several in order. Reader verifies the token with
// package jwt and exposes its tenant and org claims as a
// tenant.ClaimsReader. When the resolver reports session_invalid the
// middleware calls Reader.ClearSession, which expires the cookie on the
// domain it was issued for.
//
//	cookies := cookie.New(cookie.WithDomain(cfg.BaseDomain), cookie.WithSecure(true))
//	reader := session.NewReader(
//		session.NewCompositeTransport(
//			session.NewCookieTransport(cookies, "sid"),
//			session.NewHeaderTransport("Authorization"),
//		),
//		tokens,
//	)
//	mw := tenant.Middleware(resolver, pool, tenant.WithClaimsReader(reader))
package session
