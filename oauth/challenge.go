package oauth

import "strings"

// challenge is one scheme of a WWW-Authenticate header, e.g.
// Bearer realm="example.com", error="invalid_token".
type challenge struct {
	Scheme string
	Params map[string]string
}

// resourceMetadataURL returns the resource_metadata param RFC 9728 servers
// attach to a 401's WWW-Authenticate challenge, if present.
func resourceMetadataURL(header string) string {
	for _, c := range splitChallenges(header) {
		if v, ok := c.Params["resource_metadata"]; ok {
			return v
		}
	}
	return ""
}

// splitChallenges splits a WWW-Authenticate header value into its
// individual challenges. RFC 7235 challenges are comma-separated, but
// param values may themselves contain commas inside quotes, so a naive
// strings.Split is wrong; this walks the string tracking quote state.
func splitChallenges(header string) []challenge {
	var out []challenge
	for _, raw := range splitTopLevel(header) {
		if c, ok := parseSingleChallenge(raw); ok {
			out = append(out, c)
		}
	}
	return out
}

// splitTopLevel splits on commas that separate distinct challenges (a
// comma followed by a scheme token, i.e. not inside a quoted param value
// and not merely separating two params of the same challenge). We detect
// a new challenge by the presence of a bare token (no '=') immediately
// after the comma.
func splitTopLevel(s string) []string {
	var parts []string
	var buf strings.Builder
	inQuotes := false
	escaped := false

	flush := func() {
		if trimmed := strings.TrimSpace(buf.String()); trimmed != "" {
			parts = append(parts, trimmed)
		}
		buf.Reset()
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			buf.WriteRune(r)
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case r == ',' && !inQuotes:
			if looksLikeNewScheme(runes[i+1:]) {
				flush()
			} else {
				buf.WriteRune(r)
			}
		default:
			buf.WriteRune(r)
		}
	}
	flush()
	return parts
}

// looksLikeNewScheme reports whether the text following a comma begins a
// new "Scheme ..." challenge rather than continuing a "key=value" param
// list: a bare token with no '=' before the next comma/quote/end.
func looksLikeNewScheme(rest []rune) bool {
	s := strings.TrimLeft(string(rest), " \t")
	if s == "" {
		return false
	}
	firstSpace := strings.IndexAny(s, " \t")
	firstEq := strings.IndexByte(s, '=')
	if firstEq == -1 {
		return true
	}
	return firstSpace != -1 && firstSpace < firstEq
}

func parseSingleChallenge(raw string) (challenge, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return challenge{}, false
	}
	sep := strings.IndexAny(raw, " \t")
	if sep == -1 {
		return challenge{Scheme: raw, Params: map[string]string{}}, true
	}
	scheme := raw[:sep]
	rest := strings.TrimSpace(raw[sep+1:])

	c := challenge{Scheme: scheme, Params: map[string]string{}}
	for _, kv := range splitParams(rest) {
		eq := strings.IndexByte(kv, '=')
		if eq == -1 {
			continue
		}
		key := strings.TrimSpace(kv[:eq])
		val := strings.TrimSpace(kv[eq+1:])
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		val = strings.ReplaceAll(val, `\"`, `"`)
		c.Params[key] = val
	}
	return c, true
}

// splitParams splits "key1=val1, key2=\"v,al2\"" on commas, respecting
// quotes so a comma embedded in a quoted value isn't treated as a
// separator.
func splitParams(s string) []string {
	var parts []string
	var buf strings.Builder
	inQuotes := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			buf.WriteRune(r)
			escaped = false
		case r == '\\' && inQuotes:
			buf.WriteRune(r)
			escaped = true
		case r == '"':
			inQuotes = !inQuotes
			buf.WriteRune(r)
		case r == ',' && !inQuotes:
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}
