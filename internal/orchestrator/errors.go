package orchestrator

import "errors"

var (
	// ErrCancelled is returned (and never wrapped further) when a
	// publication's context is cancelled while Publish waits for a
	// platform payload to become ready. Cancellation during any other step
	// surfaces as that step's wrapped context error.
	ErrCancelled = errors.New("orchestrator: publication cancelled")

	// ErrSignatureExpired is reported as fatal when a part PUT comes back
	// 403, meaning the pre-signed URL expired mid-upload.
	ErrSignatureExpired = errors.New("orchestrator: pre-signed URL expired")
)
