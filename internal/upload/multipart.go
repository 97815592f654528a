package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// PartSize is the fixed 10 MiB part size multipart uploads use.
const PartSize = 10 * 1024 * 1024

// PartCount returns the number of parts a file of fileSize bytes splits
// into at the fixed PartSize.
func PartCount(fileSize int64) int {
	if fileSize <= 0 {
		return 0
	}
	count := fileSize / PartSize
	if fileSize%PartSize != 0 {
		count++
	}
	return int(count)
}

// PartURLFunc asks the Service for a pre-signed URL for 1-indexed part
// number partNumber, mirroring StartFileUpload(..., partNumber=N).
type PartURLFunc func(ctx context.Context, partNumber int) (string, error)

// UploadMultipart uploads path in PartCount(fileSize) parts of PartSize
// bytes each, calling urlFor to obtain each part's pre-signed URL. Parts
// upload concurrently (bounded by maxConcurrency); on the first failure,
// the remaining parts are cancelled and the error is returned, via
// golang.org/x/sync/errgroup's bounded-concurrency and first-error
// cancellation.
func (d *Driver) UploadMultipart(ctx context.Context, path string, fileSize int64, maxConcurrency int, mime, userAgent string, urlFor PartURLFunc, progress ProgressFunc) ([]string, error) {
	totalParts := PartCount(fileSize)
	if totalParts == 0 {
		return nil, fmt.Errorf("upload: multipart upload requires a non-empty file")
	}

	etags := make([]string, totalParts)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i := 0; i < totalParts; i++ {
		partIndex := i
		g.Go(func() error {
			if progress != nil {
				progress(partIndex, totalParts)
			}

			partNumber := partIndex + 1
			url, err := urlFor(ctx, partNumber)
			if err != nil {
				return fmt.Errorf("upload: start part %d: %w", partNumber, err)
			}

			etag, err := d.uploadPart(ctx, path, partIndex, fileSize, url, mime, userAgent)
			if err != nil {
				return fmt.Errorf("upload: part %d: %w", partNumber, err)
			}
			etags[partIndex] = etag

			if progress != nil {
				progress(partIndex+1, totalParts)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, tag := range etags {
		if tag == "" {
			return nil, fmt.Errorf("%w: part %d has no etag", ErrEtagMissing, i+1)
		}
	}
	return etags, nil
}

func (d *Driver) uploadPart(ctx context.Context, path string, partIndex int, fileSize int64, url, mime, userAgent string) (string, error) {
	start := int64(partIndex) * PartSize
	end := start + PartSize
	if end > fileSize {
		end = fileSize
	}
	length := end - start

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(start, 0); err != nil {
		return "", fmt.Errorf("seek %s to %d: %w", path, start, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, io.NewSectionReader(f, start, length))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.ContentLength = length
	req.Header.Set("Content-Type", mime)
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("PUT %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FailureError{Status: resp.StatusCode}
	}

	return strings.Trim(resp.Header.Get("ETag"), `"'`), nil
}
