package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/Kavex/Third3D-uploader/internal/digest"
	"github.com/Kavex/Third3D-uploader/internal/model"
	"github.com/Kavex/Third3D-uploader/internal/serviceclient"
	"github.com/Kavex/Third3D-uploader/internal/upload"
)

// uploadedFile is the settled result of uploadFileToVRChat: the file's id
// (for reuse by a later call) and its current Service record.
type uploadedFile struct {
	FileID string
	File   model.File
}

// uploadFileToVRChat runs the seven-step file-version protocol: digest,
// signature, file-id acquisition, version-reuse reconciliation, version
// creation, concurrent file+signature upload, and a final showFile to
// resolve the durable URL.
func (o *Orchestrator) uploadFileToVRChat(ctx context.Context, cookies serviceclient.Cookies, name, path, mime string, reuseFileID string, onProgress upload.ProgressFunc) (uploadedFile, error) {
	fileDigest, err := digest.MD5File(path)
	if err != nil {
		return uploadedFile{}, fmt.Errorf("orchestrator: digest %s: %w", path, err)
	}

	sigPath := digest.SignaturePath(path)
	if err := digest.GenerateSignature(path, sigPath); err != nil {
		return uploadedFile{}, fmt.Errorf("orchestrator: signature %s: %w", path, err)
	}
	sigDigest, err := digest.MD5File(sigPath)
	if err != nil {
		return uploadedFile{}, fmt.Errorf("orchestrator: digest %s: %w", sigPath, err)
	}

	fileID := reuseFileID
	if fileID == "" {
		ext := extensionOf(name)
		created, err := o.client.CreateFile(ctx, cookies, name, mime, ext)
		if err != nil {
			return uploadedFile{}, fmt.Errorf("orchestrator: createFile %s: %w", name, err)
		}
		fileID = created.ID
	} else {
		if err := o.reconcileLatestVersion(ctx, cookies, fileID); err != nil {
			return uploadedFile{}, err
		}
	}

	versioned, err := o.client.CreateFileVersion(ctx, cookies, fileID, serviceclient.CreateFileVersionRequest{
		FileMd5:              fileDigest.Hex,
		FileSizeInBytes:      fileDigest.Size,
		SignatureMd5:         sigDigest.Hex,
		SignatureSizeInBytes: sigDigest.Size,
	})
	if err != nil {
		return uploadedFile{}, fmt.Errorf("orchestrator: createFileVersion %s: %w", fileID, err)
	}

	latest, ok := versioned.LatestVersion()
	if !ok {
		return uploadedFile{}, fmt.Errorf("orchestrator: createFileVersion %s returned no version", fileID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.uploadSubresource(gctx, cookies, fileID, latest.ID, model.SubresourceFile, latest.Category, path, mime, fileDigest, onProgress)
	})
	g.Go(func() error {
		return o.uploadSubresource(gctx, cookies, fileID, latest.ID, model.SubresourceSignature, model.CategorySimple, sigPath, "application/octet-stream", sigDigest, nil)
	})
	if err := g.Wait(); err != nil {
		var fe *upload.FailureError
		if errors.As(err, &fe) && fe.Status == http.StatusForbidden {
			return uploadedFile{}, fmt.Errorf("%w: %v", ErrSignatureExpired, err)
		}
		return uploadedFile{}, err
	}

	final, err := o.client.ShowFile(ctx, cookies, fileID)
	if err != nil {
		return uploadedFile{}, fmt.Errorf("orchestrator: showFile %s: %w", fileID, err)
	}
	return uploadedFile{FileID: fileID, File: final}, nil
}

// reconcileLatestVersion implements the file-version reuse rule: a
// non-complete trailing version on a reused file must be deleted before a
// new one can be created, else the Service rejects the create.
func (o *Orchestrator) reconcileLatestVersion(ctx context.Context, cookies serviceclient.Cookies, fileID string) error {
	current, err := o.client.ShowFile(ctx, cookies, fileID)
	if err != nil {
		return fmt.Errorf("orchestrator: showFile %s: %w", fileID, err)
	}
	latest, ok := current.LatestVersion()
	if !ok {
		return nil
	}
	if latest.Status == model.VersionStatusComplete {
		return nil
	}
	if err := o.client.DeleteFileVersion(ctx, cookies, fileID, len(current.Versions)-1); err != nil {
		return fmt.Errorf("orchestrator: deleteFileVersion %s: %w", fileID, err)
	}
	return nil
}

// uploadSubresource drives one of the file/signature subresources through
// start → PUT(s) → finish, branching on category exactly as the Service's
// createFileVersion response dictates.
func (o *Orchestrator) uploadSubresource(ctx context.Context, cookies serviceclient.Cookies, fileID, versionID string, sub model.Subresource, category model.UploadCategory, path, mime string, d digest.Result, onProgress upload.ProgressFunc) error {
	switch category {
	case model.CategoryMultipart:
		urlFor := func(ctx context.Context, partNumber int) (string, error) {
			return o.client.StartFileUpload(ctx, cookies, fileID, versionID, sub, partNumber)
		}
		etags, err := o.driver.UploadMultipart(ctx, path, d.Size, o.partConcurrency, mime, o.userAgent, urlFor, onProgress)
		if err != nil {
			return fmt.Errorf("orchestrator: multipart upload %s: %w", sub, err)
		}
		if _, err := o.client.FinishFileUpload(ctx, cookies, fileID, versionID, sub, etags); err != nil {
			return fmt.Errorf("orchestrator: finishFileUpload %s: %w", sub, err)
		}
		return nil

	default:
		url, err := o.client.StartFileUpload(ctx, cookies, fileID, versionID, sub, 0)
		if err != nil {
			return fmt.Errorf("orchestrator: startFileUpload %s: %w", sub, err)
		}
		if err := o.driver.UploadSimple(ctx, url, path, mime, d.Base64, o.userAgent, onProgress); err != nil {
			return fmt.Errorf("orchestrator: simple upload %s: %w", sub, err)
		}
		if _, err := o.client.FinishFileUpload(ctx, cookies, fileID, versionID, sub, nil); err != nil {
			return fmt.Errorf("orchestrator: finishFileUpload %s: %w", sub, err)
		}
		return nil
	}
}

func extensionOf(name string) string {
	for i := len(name) - 1; i >= 0 && name[i] != '/'; i-- {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return ""
}
