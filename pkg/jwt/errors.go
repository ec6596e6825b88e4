package jwt

import "errors"

var (
	ErrInvalidToken      = errors.New("jwt: invalid token")
	ErrExpiredToken      = errors.New("jwt: token is expired")
	ErrMissingSigningKey = errors.New("jwt: missing signing key")
	ErrMissingClaims     = errors.New("jwt: missing tenant claims")
	ErrSigningFailed     = errors.New("jwt: failed to sign token")
	ErrTokenNotFound     = errors.New("jwt: token not found in request")
)
