package serviceclient

import "strings"

// Cookies is a minimal, purpose-built cookie pair: the Service only ever
// sets two cookies we care about. Per the design note this replaces, a
// generic jar (net/http/cookiejar or similar) can reorder or drop
// attributes across redirects; a two-field struct with an attribute-aware
// Set-Cookie parser is simpler and exactly as correct as this protocol
// needs.
type Cookies struct {
	Auth         string
	TwoFactorAuth string
}

// Header renders the cookie pair as a request Cookie header value. Either
// field may be empty at the pre-2FA stage.
func (c Cookies) Header() string {
	var parts []string
	if c.Auth != "" {
		parts = append(parts, "auth="+c.Auth)
	}
	if c.TwoFactorAuth != "" {
		parts = append(parts, "twoFactorAuth="+c.TwoFactorAuth)
	}
	return strings.Join(parts, "; ")
}

// ParseSetCookie extracts auth and twoFactorAuth values out of a response's
// Set-Cookie header values. Each entry in values is already one
// Set-Cookie header occurrence (net/http's Header.Values keeps multiple
// Set-Cookie lines separate), but a single occurrence can itself carry
// multiple cookies separated by commas outside of attribute quoting, which
// this parser splits correctly instead of naively splitting on every comma.
func ParseSetCookie(values []string) Cookies {
	var out Cookies
	for _, v := range values {
		for _, cookie := range splitSetCookie(v) {
			name, value, ok := firstPair(cookie)
			if !ok {
				continue
			}
			switch name {
			case "auth":
				out.Auth = value
			case "twoFactorAuth":
				out.TwoFactorAuth = value
			}
		}
	}
	return out
}

// splitSetCookie splits a raw Set-Cookie header value on commas that fall
// outside any quoted attribute value (e.g. Expires=Wed, 21 Oct...).
func splitSetCookie(raw string) []string {
	var parts []string
	var cur strings.Builder
	inQuotes := false

	for i, r := range raw {
		switch r {
		case '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case ',':
			if inQuotes {
				cur.WriteRune(r)
				continue
			}
			// A comma outside quotes only starts a new cookie if what
			// follows looks like "name=value" rather than a date
			// continuation (e.g. "Expires=Wed, 21 Oct 2030..."). The
			// Service never emits cookie attributes containing commas in
			// their values besides Expires, so heuristically require a
			// '=' before the next ';' to treat the comma as a separator.
			if looksLikeNewCookie(raw, i+1) {
				parts = append(parts, cur.String())
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func looksLikeNewCookie(raw string, from int) bool {
	rest := strings.TrimLeft(raw[from:], " ")
	semi := strings.IndexByte(rest, ';')
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return false
	}
	if semi >= 0 && eq > semi {
		return false
	}
	return true
}

func firstPair(cookie string) (name, value string, ok bool) {
	cookie = strings.TrimSpace(cookie)
	attr := cookie
	if idx := strings.IndexByte(cookie, ';'); idx >= 0 {
		attr = cookie[:idx]
	}
	eq := strings.IndexByte(attr, '=')
	if eq < 0 {
		return "", "", false
	}
	return strings.TrimSpace(attr[:eq]), strings.TrimSpace(attr[eq+1:]), true
}
