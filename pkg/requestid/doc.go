// Package requestid attaches a correlation id to every request, exposes it
// through the context and feeds it to the structured logger.
//
//	handler = requestid.Middleware(handler)
//
// Client supplied ids are reused only when they are at most 128 characters of
// [a-zA-Z0-9_-]; anything else is replaced with a fresh UUID.
package requestid
