package tenant

import (
	"net"
	"strings"

	"golang.org/x/text/cases"
)

// normalizeLabel case-folds a slug or hostname label.
// Casers are stateful so one is built per call.
func normalizeLabel(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// normalizeHost strips the port and trailing dot and lower-cases the host.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.ToLower(host)
}

// hostLabels describes where a host sits relative to the base domain.
type hostLabels struct {
	// Bare is set for the base domain itself and its www alias.
	Bare bool
	// Tenant and Org are the last and second-to-last labels left of the base.
	Tenant string
	Org    string
}

// splitHost classifies host against base. ok is false when host is not the
// base domain or one of its subdomains.
func splitHost(host, base string) (hostLabels, bool) {
	if base == "" || host == "" {
		return hostLabels{}, false
	}
	if host == base || host == "www."+base {
		return hostLabels{Bare: true}, true
	}

	prefix, found := strings.CutSuffix(host, "."+base)
	if !found || prefix == "" {
		return hostLabels{}, false
	}

	labels := strings.Split(prefix, ".")
	out := hostLabels{Tenant: normalizeLabel(labels[len(labels)-1])}
	if len(labels) >= 2 {
		out.Org = normalizeLabel(labels[len(labels)-2])
	}
	if out.Tenant == "" {
		return hostLabels{}, false
	}
	return out, true
}

// isCustomDomain reports whether host lies outside the base domain.
func isCustomDomain(host, base string) bool {
	if base == "" || host == "" {
		return false
	}
	_, under := splitHost(host, base)
	return !under
}
