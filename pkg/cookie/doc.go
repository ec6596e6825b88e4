// Package cookie writes HTTP cookies with consistent attributes.
//
// Manager carries default attributes (path, domain, Secure, HttpOnly,
// SameSite) that every Set and Delete call starts from; per-call options
// override them. Setting the domain to the application's base domain makes
// a cookie visible to every tenant subdomain, which is how session cookies
// are shared and cleared.
//
//	m := cookie.New(cookie.WithDomain("example.com"), cookie.WithSecure(true))
//	m.Set(w, "session", token, cookie.WithMaxAge(3600))
//	m.Delete(w, "session")
package cookie
