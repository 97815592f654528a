// Package serviceclient is a typed wrapper around the Service's REST
// endpoints: no HTTP framework, explicit status-code branching, and
// header-derived auth state instead of a generic error wrapper.
package serviceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ServiceError represents any non-2xx response from the control plane that
// isn't otherwise recovered into a semantic outcome.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("serviceclient: unexpected status %d: %s", e.Status, e.Body)
}

// BlueprintIDTakenError is the distinguished 500-on-create-avatar outcome.
type BlueprintIDTakenError struct{}

func (e *BlueprintIDTakenError) Error() string { return "serviceclient: blueprint id already in use" }

// Client is an immutable, shareable handle on the Service's REST API.
type Client struct {
	baseURL      string
	userAgent    string
	httpClient   *http.Client
	requestTimeout time.Duration
}

// Config constructs a Client.
type Config struct {
	BaseURL        string
	ContactEmail   string
	AppVersion     string
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// New builds a Client. The User-Agent is derived once from build
// metadata and held fixed for the process's lifetime.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		userAgent:      fmt.Sprintf("Third3D Uploader/%s %s", cfg.AppVersion, cfg.ContactEmail),
		httpClient:     httpClient,
		requestTimeout: timeout,
	}
}

type requestOpts struct {
	method  string
	path    string
	body    any
	cookies Cookies
	basicUser, basicPass string
	useBasic bool
}

// do issues one control-plane request and returns the raw response so
// callers can apply endpoint-specific status handling (404→not-found,
// 500→blueprint-taken, etc.) instead of a single generic error mapping.
func (c *Client) do(ctx context.Context, opts requestOpts) (*http.Response, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if opts.body != nil {
		encoded, err := json.Marshal(opts.body)
		if err != nil {
			return nil, nil, fmt.Errorf("serviceclient: encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, opts.method, c.baseURL+opts.path, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("serviceclient: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if opts.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if opts.useBasic {
		req.SetBasicAuth(url.QueryEscape(opts.basicUser), url.QueryEscape(opts.basicPass))
	} else if h := opts.cookies.Header(); h != "" {
		req.Header.Set("Cookie", h)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("serviceclient: %s %s: %w", opts.method, opts.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, fmt.Errorf("serviceclient: read response body: %w", err)
	}
	return resp, data, nil
}

func decodeJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
