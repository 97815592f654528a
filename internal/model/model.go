// Package model holds the domain types shared across the publication
// pipeline: the bundle manifest schema, platform/performance enums, and the
// Service's wire-level avatar and file records.
package model

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Platform is one of the three avatar platforms a bundle may target.
type Platform string

const (
	PlatformWindows Platform = "windows"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ServiceToken returns the Service's platform identifier for p.
func (p Platform) ServiceToken() string {
	switch p {
	case PlatformWindows:
		return "standalonewindows"
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	default:
		return string(p)
	}
}

// Performance is the declared performance rank of an asset bundle entry.
type Performance string

const (
	PerformanceExcellent Performance = "excellent"
	PerformanceGood      Performance = "good"
	PerformanceMedium    Performance = "medium"
	PerformancePoor      Performance = "poor"
	PerformanceVeryPoor  Performance = "verypoor"
)

// Valid reports whether p is one of the five literal performance ranks.
func (p Performance) Valid() bool {
	switch p {
	case PerformanceExcellent, PerformanceGood, PerformanceMedium, PerformancePoor, PerformanceVeryPoor:
		return true
	default:
		return false
	}
}

// AssetBundleEntry describes one platform's entry inside metadata.json's
// assetBundles object.
type AssetBundleEntry struct {
	Performance  Performance `json:"performance" validate:"oneof=excellent good medium poor verypoor"`
	UnityVersion string      `json:"unityVersion" validate:"required"`
}

// Manifest is the parsed and validated metadata.json schema.
type Manifest struct {
	Name         string                         `json:"name" validate:"required"`
	BlueprintID  string                         `json:"blueprintId" validate:"required"`
	AssetBundles map[Platform]AssetBundleEntry  `json:"assetBundles" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// Validate checks the manifest invariants from the bundle schema: a
// non-empty name and blueprint id, at least one declared platform, each
// with a recognised performance literal and a non-empty engine version.
func (m Manifest) Validate() error {
	if err := getValidator().Struct(m); err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	return nil
}

// UploadCategory is the Service's chosen upload mode for a file version.
type UploadCategory string

const (
	CategorySimple    UploadCategory = "simple"
	CategoryMultipart UploadCategory = "multipart"
	CategoryQueued    UploadCategory = "queued"
)

// Subresource names one of the three byte streams attached to a file
// version.
type Subresource string

const (
	SubresourceFile      Subresource = "file"
	SubresourceSignature Subresource = "signature"
	SubresourceDelta     Subresource = "delta"
)

// FileVersionStatus is the lifecycle status of a single file version.
type FileVersionStatus string

const (
	VersionStatusWaiting  FileVersionStatus = "waiting"
	VersionStatusNone     FileVersionStatus = "none"
	VersionStatusComplete FileVersionStatus = "complete"
)

// FileVersion is one version slot on a Service file.
type FileVersion struct {
	ID       string            `json:"id"`
	Status   FileVersionStatus `json:"status"`
	Category UploadCategory    `json:"category"`
}

// File is the Service's file record: an id plus its version history.
type File struct {
	ID       string        `json:"id"`
	MimeType string        `json:"mimeType"`
	Versions []FileVersion `json:"versions"`
}

// LatestVersion returns the most recently created version, or the zero
// value with ok=false if the file has none.
func (f File) LatestVersion() (FileVersion, bool) {
	if len(f.Versions) == 0 {
		return FileVersion{}, false
	}
	return f.Versions[len(f.Versions)-1], true
}

// UnityPackage describes one platform's published asset on an avatar
// record.
type UnityPackage struct {
	Platform     string `json:"platform"`
	Variant      string `json:"variant"`
	AssetURL     string `json:"assetUrl"`
	UnityVersion string `json:"unityVersion"`
	AssetVersion int    `json:"assetVersion"`
}

// Avatar is the Service's avatar record.
type Avatar struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ImageURL         string         `json:"imageUrl"`
	ThumbnailImageURL string        `json:"thumbnailImageUrl"`
	ReleaseStatus    string         `json:"releaseStatus"`
	UnityPackages    []UnityPackage `json:"unityPackages"`
}

// UnityPackageForPlatform returns the standard-variant unity package for
// the given Service platform token, if one exists.
func (a Avatar) UnityPackageForPlatform(token string) (UnityPackage, bool) {
	for _, pkg := range a.UnityPackages {
		if pkg.Platform == token && pkg.Variant == "standard" {
			return pkg, true
		}
	}
	return UnityPackage{}, false
}
