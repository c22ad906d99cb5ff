package oauth

import (
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a server URL the way every Storage key and
// every cache lookup in this package expects: scheme and host lowercased,
// the default port for that scheme elided, any trailing slash on the path
// stripped, and the fragment removed. Two URLs that the bytes disagree on
// but the HTTP spec treats as the same origin+path normalize to the same
// string (§3 invariant a, tested by TestNormalizeURL).
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	if host := u.Hostname(); host != "" {
		port := u.Port()
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String(), nil
}
