package bundlearchive

import "errors"

var (
	ErrArchiveCorrupt        = errors.New("bundlearchive: archive is corrupt or not a zip file")
	ErrManifestMissing       = errors.New("bundlearchive: archive does not contain exactly one metadata.json")
	ErrThumbnailMissing      = errors.New("bundlearchive: archive does not contain thumbnail.png")
	ErrMissingPlatformPayload = errors.New("bundlearchive: declared platform has neither a .vrca nor a .vrcaz payload")
)

// ManifestInvalidError wraps a metadata.json schema violation.
type ManifestInvalidError struct {
	Err error
}

func (e *ManifestInvalidError) Error() string {
	return "bundlearchive: invalid manifest: " + e.Err.Error()
}

func (e *ManifestInvalidError) Unwrap() error { return e.Err }
