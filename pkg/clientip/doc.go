// Package clientip determines the address of the client behind a request
// and makes it available to handlers and log records.
//
// Proxy headers are only honoured when listed in Extractor.Headers; deploy
// with an empty list when the service is reachable without a proxy, since
// clients control those headers.
//
//	ips := clientip.Extractor{Headers: clientip.DefaultHeaders}
//	router.Use(ips.Middleware)
package clientip
