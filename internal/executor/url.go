// internal/executor/url.go
package executor

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// NormalizeURL turns loosely specified destinations into canonical absolute
// URLs: a missing scheme becomes https, and a bare registrable domain gains a
// www prefix. Hosts that are already subdomains, localhost, or IP literals are
// left alone.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	host := u.Hostname()
	if shouldAddWWW(host) {
		port := u.Port()
		u.Host = "www." + host
		if port != "" {
			u.Host += ":" + port
		}
	}

	return u.String(), nil
}

// shouldAddWWW reports whether the host is a bare two-label domain like
// "example.com".
func shouldAddWWW(host string) bool {
	if host == "" || host == "localhost" {
		return false
	}
	if net.ParseIP(host) != nil {
		return false
	}
	return strings.Count(host, ".") == 1
}
