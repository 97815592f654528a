package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kavex/Third3D-uploader/internal/bundlearchive"
	"github.com/Kavex/Third3D-uploader/internal/model"
	"github.com/Kavex/Third3D-uploader/internal/transcode"
)

// readyBundle is one transcoded (or already-canonical) platform payload,
// pushed onto the completion queue as soon as it is ready.
type readyBundle struct {
	Platform model.Platform
	Path     string
	Err      error
}

// transcodeAll runs a promise race: each platform's transcode (or
// pass-through, for already-canonical payloads) runs as its own task
// pushing onto a shared completion channel, so a fast platform is yielded
// to the caller without waiting on a slow one. The orchestrator drains
// the channel, returning the first error and letting the caller's
// context cancellation stop the rest.
func transcodeAll(ctx context.Context, cancel context.CancelFunc, unpacked *bundlearchive.Unpacked) <-chan readyBundle {
	payloads := unpacked.PlatformPayloads
	out := make(chan readyBundle, len(payloads))

	for platform, payload := range payloads {
		platform, payload := platform, payload
		go func() {
			path, err := prepareBundle(ctx, platform, payload)
			if err != nil {
				select {
				case out <- readyBundle{Platform: platform, Err: err}:
				case <-ctx.Done():
				}
				cancel()
				return
			}
			select {
			case out <- readyBundle{Platform: platform, Path: path}:
			case <-ctx.Done():
			}
		}()
	}

	return out
}

func prepareBundle(ctx context.Context, platform model.Platform, payload bundlearchive.PlatformPayload) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !payload.Compressed {
		return payload.Path, nil
	}

	dst := canonicalPathFor(payload.Path)
	if err := transcode.Transcode(payload.Path, dst); err != nil {
		return "", fmt.Errorf("orchestrator: transcode %s: %w", platform, err)
	}
	return dst, nil
}

// canonicalPathFor derives the decompressed .vrca path from a .vrcaz
// envelope path: "{platform}.vrcaz" decodes to a "{platform}.vrca" the
// Service accepts.
func canonicalPathFor(envelopePath string) string {
	if strings.HasSuffix(envelopePath, ".vrcaz") {
		return strings.TrimSuffix(envelopePath, "z")
	}
	return envelopePath + ".vrca"
}

// drainReady collects total readyBundle values from ch, returning the
// first error encountered (if any) and otherwise every bundle in
// completion order.
func drainReady(ctx context.Context, ch <-chan readyBundle, total int) ([]readyBundle, error) {
	results := make([]readyBundle, 0, total)
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			for {
				select {
				case rb := <-ch:
					if rb.Err != nil {
						return nil, rb.Err
					}
				default:
					return nil, ErrCancelled
				}
			}
		case rb := <-ch:
			if rb.Err != nil {
				return nil, rb.Err
			}
			results = append(results, rb)
		}
	}
	return results, nil
}
