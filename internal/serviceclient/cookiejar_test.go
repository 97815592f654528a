package serviceclient

import "testing"

func TestParseSetCookieBasic(t *testing.T) {
	values := []string{
		`auth=authcookie_abc123; Path=/; HttpOnly; Expires=Wed, 21 Oct 2030 07:28:00 GMT`,
		`twoFactorAuth=twofactor_xyz789; Path=/; HttpOnly`,
	}
	got := ParseSetCookie(values)
	if got.Auth != "authcookie_abc123" {
		t.Fatalf("Auth = %q", got.Auth)
	}
	if got.TwoFactorAuth != "twofactor_xyz789" {
		t.Fatalf("TwoFactorAuth = %q", got.TwoFactorAuth)
	}
}

func TestParseSetCookieSingleHeaderMultipleCookies(t *testing.T) {
	values := []string{
		`auth=authcookie_abc123; Path=/, twoFactorAuth=twofactor_xyz789; Path=/`,
	}
	got := ParseSetCookie(values)
	if got.Auth != "authcookie_abc123" {
		t.Fatalf("Auth = %q", got.Auth)
	}
	if got.TwoFactorAuth != "twofactor_xyz789" {
		t.Fatalf("TwoFactorAuth = %q", got.TwoFactorAuth)
	}
}

func TestParseSetCookieExpiresWithCommaNotSplit(t *testing.T) {
	values := []string{
		`auth=authcookie_abc123; Expires=Wed, 21 Oct 2030 07:28:00 GMT; Path=/`,
	}
	got := ParseSetCookie(values)
	if got.Auth != "authcookie_abc123" {
		t.Fatalf("Auth = %q (Expires comma may have been mis-split)", got.Auth)
	}
}

func TestCookiesHeader(t *testing.T) {
	c := Cookies{Auth: "a", TwoFactorAuth: "b"}
	if got := c.Header(); got != "auth=a; twoFactorAuth=b" {
		t.Fatalf("Header() = %q", got)
	}

	c2 := Cookies{Auth: "a"}
	if got := c2.Header(); got != "auth=a" {
		t.Fatalf("Header() with only auth = %q", got)
	}
}
