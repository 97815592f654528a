// Package upload executes the actual PUT(s) of file bytes to pre-signed
// Service URLs: a single streamed PUT for "simple" category files, or a
// part-by-part streamed PUT sequence with etag collection for "multipart"
// category files. Neither path ever buffers a whole file in memory.
package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ProgressFunc is invoked at the start of each part and on completion, as
// (partIndex, totalParts) — 0-indexed, totalParts==1 for a simple upload.
type ProgressFunc func(part, totalParts int)

// FailureError wraps a non-2xx response from a pre-signed PUT.
type FailureError struct {
	Status int
	Body   string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("upload: PUT failed with status %d: %s", e.Status, e.Body)
}

// Driver issues PUTs against pre-signed URLs. It holds no state beyond an
// HTTP client, keeping "how to talk HTTP" separate from "what to
// upload" (decided by its callers).
type Driver struct {
	httpClient *http.Client
}

// NewDriver builds a Driver. A nil client falls back to http.DefaultClient.
func NewDriver(httpClient *http.Client) *Driver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Driver{httpClient: httpClient}
}

// UploadSimple PUTs the entire file at path to url in one request,
// setting Content-Type, Content-MD5 (base64), and User-Agent.
func (d *Driver) UploadSimple(ctx context.Context, url, path, mime, md5Base64, userAgent string, progress ProgressFunc) error {
	if progress != nil {
		progress(0, 1)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("upload: stat %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", mime)
	req.Header.Set("Content-MD5", md5Base64)
	req.Header.Set("User-Agent", userAgent)

	if err := d.put(req); err != nil {
		return err
	}
	if progress != nil {
		progress(1, 1)
	}
	return nil
}

func (d *Driver) put(req *http.Request) error {
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload: PUT %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &FailureError{Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
