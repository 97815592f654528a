package serviceclient

import (
	"context"
	"fmt"
	"net/http"
)

// TwoFactorKind names which second factor the Service is asking for.
type TwoFactorKind string

const (
	TwoFactorEmailOTP TwoFactorKind = "emailotp"
	TwoFactorTOTP     TwoFactorKind = "totp"
)

// AuthOutcome is a tagged sum type: exactly one of its fields is
// meaningful, selected by Kind. No runtime type assertions are needed at
// call sites; switch on Kind and every branch is exhaustive.
type AuthOutcome struct {
	Kind AuthOutcomeKind

	User         User
	TwoFactor    TwoFactorRequired
}

// AuthOutcomeKind discriminates AuthOutcome.
type AuthOutcomeKind int

const (
	AuthOutcomeUser AuthOutcomeKind = iota
	AuthOutcomeTwoFactorRequired
	AuthOutcomeInvalidCredentials
)

// User is the authenticated user payload.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TwoFactorRequired carries the state needed to complete a 2FA challenge.
type TwoFactorRequired struct {
	Kind       TwoFactorKind
	AuthCookie string
}

type getUserResponse struct {
	RequiresTwoFactorAuth []string `json:"requiresTwoFactorAuth"`
	ID                    string   `json:"id"`
	Username              string   `json:"username"`
}

// GetUser authenticates with either HTTP Basic credentials (first login)
// or an existing cookie pair (session continuation). A 401 is mapped to
// AuthOutcomeInvalidCredentials rather than surfaced as an error.
func (c *Client) GetUser(ctx context.Context, username, password string, cookies Cookies) (AuthOutcome, Cookies, error) {
	opts := requestOpts{method: http.MethodGet, path: "/auth/user", cookies: cookies}
	if username != "" {
		opts.useBasic = true
		opts.basicUser = username
		opts.basicPass = password
	}

	resp, data, err := c.do(ctx, opts)
	if err != nil {
		return AuthOutcome{}, cookies, err
	}

	newCookies := ParseSetCookie(resp.Header.Values("Set-Cookie"))
	merged := mergeCookies(cookies, newCookies)

	if resp.StatusCode == http.StatusUnauthorized {
		return AuthOutcome{Kind: AuthOutcomeInvalidCredentials}, merged, nil
	}
	if resp.StatusCode != http.StatusOK {
		return AuthOutcome{}, merged, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}

	var body getUserResponse
	if err := decodeJSON(data, &body); err != nil {
		return AuthOutcome{}, merged, fmt.Errorf("serviceclient: decode getUser response: %w", err)
	}

	if len(body.RequiresTwoFactorAuth) > 0 {
		kind := TwoFactorEmailOTP
		if body.RequiresTwoFactorAuth[0] == "totp" {
			kind = TwoFactorTOTP
		}
		return AuthOutcome{
			Kind: AuthOutcomeTwoFactorRequired,
			TwoFactor: TwoFactorRequired{
				Kind:       kind,
				AuthCookie: merged.Auth,
			},
		}, merged, nil
	}

	return AuthOutcome{
		Kind: AuthOutcomeUser,
		User: User{ID: body.ID, Username: body.Username},
	}, merged, nil
}

type verifyTwoFactorRequest struct {
	Code string `json:"code"`
}

// VerifyTwoFactor completes a 2FA challenge and returns the full cookie
// pair, including the new twoFactorAuth cookie.
func (c *Client) VerifyTwoFactor(ctx context.Context, authCookie string, kind TwoFactorKind, code string) (Cookies, error) {
	cookies := Cookies{Auth: authCookie}
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPost,
		path:    fmt.Sprintf("/auth/twofactorauth/%s/verify", kind),
		body:    verifyTwoFactorRequest{Code: code},
		cookies: cookies,
	})
	if err != nil {
		return cookies, err
	}
	if resp.StatusCode != http.StatusOK {
		return cookies, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}

	newCookies := ParseSetCookie(resp.Header.Values("Set-Cookie"))
	return mergeCookies(cookies, newCookies), nil
}

// Revalidate hits GET /auth to confirm the current cookie pair is still a
// valid session.
func (c *Client) Revalidate(ctx context.Context, cookies Cookies) error {
	resp, data, err := c.do(ctx, requestOpts{method: http.MethodGet, path: "/auth", cookies: cookies})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}

// Logout is best-effort: failures are returned to the caller to log,
// never wrapped as fatal.
func (c *Client) Logout(ctx context.Context, cookies Cookies) error {
	_, _, err := c.do(ctx, requestOpts{method: http.MethodPut, path: "/logout", cookies: cookies})
	return err
}

func mergeCookies(base, update Cookies) Cookies {
	merged := base
	if update.Auth != "" {
		merged.Auth = update.Auth
	}
	if update.TwoFactorAuth != "" {
		merged.TwoFactorAuth = update.TwoFactorAuth
	}
	return merged
}
