// Package jwt issues and verifies HS256 session tokens carrying the tenant
// and org a session belongs to. It is a thin layer over golang-jwt/jwt/v5
// that pins the signing method, requires an expiry and maps parser failures
// onto ErrInvalidToken and ErrExpiredToken.
//
//	svc, err := jwt.New([]byte(key), jwt.WithIssuer("tenantgate"), jwt.WithTTL(time.Hour))
//	token, err := svc.Issue(userID, tenantID, orgID)
//	claims, err := svc.Parse(token)
//
// BearerToken and CookieToken pull raw tokens out of requests; package
// session builds tenant.ClaimsReader implementations on top of them.
package jwt
