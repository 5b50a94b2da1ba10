package correlation

import (
	"net/url"
	"strings"

	"github.com/retailops/finops-correlator/internal/domain/entity"
)

// NormalizeResourceID canonicalizes a raw resource identifier to its
// short billable name. Hierarchical paths (ARNs, provider resource IDs)
// reduce to their last segment, URLs to the first label of their
// hostname, and anything else to the trimmed lower-cased input. Empty or
// sentinel inputs map to "unknown".
func NormalizeResourceID(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, entity.UnknownID) {
		return entity.UnknownID
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Hostname() == "" {
			// Malformed URL, fall back to the raw string.
			return strings.ToLower(s)
		}
		host := u.Hostname()
		if i := strings.IndexByte(host, '.'); i > 0 {
			host = host[:i]
		}
		return strings.ToLower(host)
	}

	if strings.Contains(s, "/") {
		trimmed := strings.TrimRight(s, "/")
		if trimmed == "" {
			return entity.UnknownID
		}
		parts := strings.Split(trimmed, "/")
		return strings.ToLower(parts[len(parts)-1])
	}

	return strings.ToLower(s)
}

// NormalizeAttributionID fills missing or null-like device/store
// identifiers with the "unknown" sentinel.
func NormalizeAttributionID(raw string) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "null", "none", "nil":
		return entity.UnknownID
	}
	return s
}
