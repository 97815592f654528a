// Package orchestrator drives a single avatar publication from an
// unpacked bundle through the Service's file and avatar APIs, emitting
// totally-ordered progress events on a caller-owned sink. It works inside
// the caller's unpack directory and fans out concurrent uploads through a
// shared driver, reporting state transitions through events rather than
// callbacks or return values.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/Kavex/Third3D-uploader/internal/bundlearchive"
	"github.com/Kavex/Third3D-uploader/internal/model"
	"github.com/Kavex/Third3D-uploader/internal/serviceclient"
	"github.com/Kavex/Third3D-uploader/internal/upload"
)

const (
	defaultReleaseStatus = "private"
	defaultUnityVersion  = "2022.3.6f1"
)

// Orchestrator holds the shared, read-only collaborators for a
// publication: the Service client and the upload driver. It is immutable
// after construction and safe to reuse across publications.
type Orchestrator struct {
	client          *serviceclient.Client
	driver          *upload.Driver
	userAgent       string
	partConcurrency int
}

// Config constructs an Orchestrator.
type Config struct {
	Client          *serviceclient.Client
	Driver          *upload.Driver
	UserAgent       string
	PartConcurrency int
}

// New builds an Orchestrator from its shared collaborators.
func New(cfg Config) *Orchestrator {
	concurrency := cfg.PartConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		client:          cfg.Client,
		driver:          cfg.Driver,
		userAgent:       cfg.UserAgent,
		partConcurrency: concurrency,
	}
}

// Publish drives the full publication state machine:
// init → thumbnail → waiting → bundle(i of N)* → completed, with an error
// branch at any step. It owns unpacked for the duration of the call but
// never releases it — the caller (which also created it) is responsible
// for Unpacked.Release.
func (o *Orchestrator) Publish(ctx context.Context, unpacked *bundlearchive.Unpacked, cookies serviceclient.Cookies, sink Sink) error {
	emit(sink, Event{Kind: EventInit})

	manifest := unpacked.Manifest
	existingAvatar, existingErr := o.client.GetAvatar(ctx, cookies, manifest.BlueprintID)
	hasExisting := existingErr == nil
	if existingErr != nil {
		if _, ok := existingErr.(*serviceclient.AvatarNotFoundError); !ok {
			return o.fail(sink, fmt.Errorf("orchestrator: getAvatar %s: %w", manifest.BlueprintID, existingErr))
		}
	}

	emit(sink, Event{Kind: EventThumbnail})
	avatar, err := o.publishThumbnailAndAvatar(ctx, cookies, manifest, unpacked.ThumbnailPath, hasExisting, existingAvatar)
	if err != nil {
		return o.fail(sink, err)
	}

	emit(sink, Event{Kind: EventWaiting})

	total := len(unpacked.PlatformPayloads)
	tctx, cancel := context.WithCancel(ctx)
	defer cancel()
	readyCh := transcodeAll(tctx, cancel, unpacked)
	for i := 0; i < total; i++ {
		next, err := drainReady(tctx, readyCh, 1)
		if err != nil {
			return o.fail(sink, err)
		}
		if err := o.publishPlatformBundle(ctx, cookies, manifest, avatar, next[0], i, total, sink); err != nil {
			return o.fail(sink, err)
		}
	}

	emit(sink, Event{Kind: EventCompleted})
	return nil
}

func (o *Orchestrator) fail(sink Sink, err error) error {
	emit(sink, Event{Kind: EventError, Err: err})
	return err
}

// publishThumbnailAndAvatar uploads thumbnail.png, reusing the existing
// avatar's thumbnail file id when one exists, then upserts the avatar
// record.
func (o *Orchestrator) publishThumbnailAndAvatar(ctx context.Context, cookies serviceclient.Cookies, manifest model.Manifest, thumbnailPath string, hasExisting bool, existing model.Avatar) (model.Avatar, error) {
	reuseFileID := ""
	if hasExisting && existing.ThumbnailImageURL != "" {
		if id, err := serviceclient.ParseFileURL(existing.ThumbnailImageURL); err == nil {
			reuseFileID = id
		}
	}

	uploaded, err := o.uploadFileToVRChat(ctx, cookies, "thumbnail.png", thumbnailPath, "image/png", reuseFileID, nil)
	if err != nil {
		return model.Avatar{}, err
	}
	imageURL := assetURLFrom(uploaded.File)

	if hasExisting {
		return o.client.UpdateAvatar(ctx, cookies, manifest.BlueprintID, serviceclient.UpdateAvatarRequest{
			Name:     manifest.Name,
			ImageURL: imageURL,
		})
	}

	return o.client.CreateAvatar(ctx, cookies, serviceclient.CreateAvatarRequest{
		ID:            manifest.BlueprintID,
		Name:          manifest.Name,
		ImageURL:      imageURL,
		ReleaseStatus: defaultReleaseStatus,
		UnityVersion:  defaultUnityVersion,
	})
}

// publishPlatformBundle uploads one ready platform's bundle and updates
// the avatar's asset URL for that platform.
func (o *Orchestrator) publishPlatformBundle(ctx context.Context, cookies serviceclient.Cookies, manifest model.Manifest, avatar model.Avatar, rb readyBundle, platformIndex, totalPlatforms int, sink Sink) error {
	token := rb.Platform.ServiceToken()

	reuseFileID := ""
	if pkg, ok := avatar.UnityPackageForPlatform(token); ok {
		if id, err := serviceclient.ParseFileURL(pkg.AssetURL); err == nil {
			reuseFileID = id
		}
	}

	progress := func(part, totalParts int) {
		emit(sink, Event{
			Kind:           EventBundle,
			Platform:       string(rb.Platform),
			Part:           part,
			TotalParts:     totalParts,
			PlatformIndex:  platformIndex,
			TotalPlatforms: totalPlatforms,
		})
	}

	name := string(rb.Platform) + ".vrca"
	uploaded, err := o.uploadFileToVRChat(ctx, cookies, name, rb.Path, "application/x-avatar", reuseFileID, progress)
	if err != nil {
		return err
	}

	entry := manifest.AssetBundles[rb.Platform]
	_, err = o.client.UpdateAvatar(ctx, cookies, manifest.BlueprintID, serviceclient.UpdateAvatarRequest{
		AssetURL:     assetURLFrom(uploaded.File),
		Platform:     token,
		UnityVersion: entry.UnityVersion,
		AssetVersion: 1,
	})
	if err != nil {
		return fmt.Errorf("orchestrator: updateAvatar %s (%s): %w", manifest.BlueprintID, token, err)
	}
	return nil
}

// assetURLFrom resolves the durable URL for the file's latest version,
// the value a subsequent UpdateAvatar patch or reuse lookup depends on.
func assetURLFrom(file model.File) string {
	if latest, ok := file.LatestVersion(); ok {
		return fmt.Sprintf("https://api.vrchat.cloud/api/1/file/%s/%s/file", file.ID, latest.ID)
	}
	return fmt.Sprintf("https://api.vrchat.cloud/api/1/file/%s", file.ID)
}
