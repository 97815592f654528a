// Package bundlearchive opens a .3b avatar bundle archive (a ZIP container),
// validates its manifest and per-platform payloads, and extracts it into a
// fresh temporary directory.
package bundlearchive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Kavex/Third3D-uploader/internal/model"
)

const (
	manifestName   = "metadata.json"
	thumbnailName  = "thumbnail.png"
)

// PlatformPayload locates a declared platform's payload file after
// extraction, and whether it still needs transcoding.
type PlatformPayload struct {
	Platform   model.Platform
	Path       string
	Compressed bool
}

// Unpacked is the result of opening and extracting a .3b archive. It owns
// unpackDir for its lifetime: call Release to remove it.
type Unpacked struct {
	UnpackDir      string
	Manifest       model.Manifest
	ThumbnailPath  string
	PlatformPayloads map[model.Platform]PlatformPayload
}

// Release removes the unpack directory. It is safe to call more than once.
func (u *Unpacked) Release() error {
	if u.UnpackDir == "" {
		return nil
	}
	err := os.RemoveAll(u.UnpackDir)
	u.UnpackDir = ""
	return err
}

// Open reads archivePath (a ZIP file) and extracts every entry into a fresh
// temporary directory, then validates the manifest and per-platform
// payloads it describes.
func Open(archivePath string) (*Unpacked, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, ErrArchiveCorrupt
	}
	defer r.Close()

	unpackDir, err := os.MkdirTemp("", "third3d-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("bundlearchive: create unpack dir: %w", err)
	}

	extracted, err := extractFlat(r, unpackDir)
	if err != nil {
		os.RemoveAll(unpackDir)
		return nil, err
	}

	manifestPath, ok := extracted[manifestName]
	if !ok {
		os.RemoveAll(unpackDir)
		return nil, ErrManifestMissing
	}

	manifest, err := parseManifest(manifestPath)
	if err != nil {
		os.RemoveAll(unpackDir)
		return nil, err
	}

	thumbnailPath, ok := extracted[thumbnailName]
	if !ok {
		os.RemoveAll(unpackDir)
		return nil, ErrThumbnailMissing
	}
	if err := verifyPNG(thumbnailPath); err != nil {
		os.RemoveAll(unpackDir)
		return nil, err
	}

	payloads := make(map[model.Platform]PlatformPayload, len(manifest.AssetBundles))
	for platform := range manifest.AssetBundles {
		canonicalPath, hasCanonical := extracted[string(platform)+".vrca"]
		envelopePath, hasEnvelope := extracted[string(platform)+".vrcaz"]

		switch {
		case hasEnvelope:
			payloads[platform] = PlatformPayload{Platform: platform, Path: envelopePath, Compressed: true}
		case hasCanonical:
			payloads[platform] = PlatformPayload{Platform: platform, Path: canonicalPath, Compressed: false}
		default:
			os.RemoveAll(unpackDir)
			return nil, ErrMissingPlatformPayload
		}
	}

	return &Unpacked{
		UnpackDir:        unpackDir,
		Manifest:         manifest,
		ThumbnailPath:    thumbnailPath,
		PlatformPayloads: payloads,
	}, nil
}

// extractFlat extracts every entry in r into dir, rejecting any entry whose
// name contains a directory component, and returns a name→extracted-path
// map. A flat archive is a deliberate invariant: nothing in the manifest
// schema ever nests a payload in a subdirectory, so any entry that does is
// treated as malformed rather than silently accepted.
func extractFlat(r *zip.ReadCloser, dir string) (map[string]string, error) {
	extracted := make(map[string]string, len(r.File))
	seenManifest := false

	for _, entry := range r.File {
		name := entry.Name
		if filepath.Dir(name) != "." || name == ".." || name == "" {
			return nil, ErrArchiveCorrupt
		}
		if name == manifestName {
			if seenManifest {
				return nil, ErrManifestMissing
			}
			seenManifest = true
		}

		dstPath := filepath.Join(dir, name)
		if err := extractEntry(entry, dstPath); err != nil {
			return nil, fmt.Errorf("bundlearchive: extract %s: %w", name, err)
		}
		extracted[name] = dstPath
	}
	return extracted, nil
}

func extractEntry(entry *zip.File, dstPath string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, rc)
	return err
}

func parseManifest(path string) (model.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Manifest{}, fmt.Errorf("bundlearchive: read manifest: %w", err)
	}

	var manifest model.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return model.Manifest{}, &ManifestInvalidError{Err: err}
	}
	if err := manifest.Validate(); err != nil {
		return model.Manifest{}, &ManifestInvalidError{Err: err}
	}
	return manifest, nil
}

// verifyPNG sniffs the thumbnail's content type so a mislabeled or
// corrupt file is caught before it is ever staged for upload.
func verifyPNG(path string) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("bundlearchive: sniff thumbnail: %w", err)
	}
	if mtype.String() != "image/png" {
		return fmt.Errorf("%w: thumbnail.png has content type %s", ErrThumbnailMissing, mtype.String())
	}
	return nil
}
