package serviceclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Kavex/Third3D-uploader/internal/model"
)

type createFileRequest struct {
	Name      string `json:"name"`
	MimeType  string `json:"mimeType"`
	Extension string `json:"extension"`
}

// CreateFile creates a new, versionless file record.
func (c *Client) CreateFile(ctx context.Context, cookies Cookies, name, mimeType, extension string) (model.File, error) {
	var file model.File
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPost,
		path:    "/file",
		body:    createFileRequest{Name: name, MimeType: mimeType, Extension: extension},
		cookies: cookies,
	})
	if err != nil {
		return file, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return file, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &file); err != nil {
		return file, fmt.Errorf("serviceclient: decode CreateFile response: %w", err)
	}
	return file, nil
}

// CreateFileVersionRequest is the body of POST /file/{id}.
type CreateFileVersionRequest struct {
	FileMd5               string `json:"fileMd5"`
	FileSizeInBytes       int64  `json:"fileSizeInBytes"`
	SignatureMd5          string `json:"signatureMd5"`
	SignatureSizeInBytes  int64  `json:"signatureSizeInBytes"`
}

// CreateFileVersion creates a new version on fileID.
func (c *Client) CreateFileVersion(ctx context.Context, cookies Cookies, fileID string, req CreateFileVersionRequest) (model.File, error) {
	var file model.File
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPost,
		path:    "/file/" + fileID,
		body:    req,
		cookies: cookies,
	})
	if err != nil {
		return file, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return file, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &file); err != nil {
		return file, fmt.Errorf("serviceclient: decode CreateFileVersion response: %w", err)
	}
	return file, nil
}

type startUploadResponse struct {
	URL string `json:"url"`
}

// StartFileUpload requests a pre-signed URL for one subresource of one
// version. partNumber is only meaningful (and only sent) for multipart
// file uploads; pass 0 otherwise.
func (c *Client) StartFileUpload(ctx context.Context, cookies Cookies, fileID, versionID string, sub model.Subresource, partNumber int) (string, error) {
	path := fmt.Sprintf("/file/%s/%s/%s/start", fileID, versionID, sub)
	if partNumber > 0 {
		path += "?" + url.Values{"partNumber": {fmt.Sprint(partNumber)}}.Encode()
	}

	resp, data, err := c.do(ctx, requestOpts{method: http.MethodPut, path: path, cookies: cookies})
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}

	var body startUploadResponse
	if err := decodeJSON(data, &body); err != nil {
		return "", fmt.Errorf("serviceclient: decode StartFileUpload response: %w", err)
	}
	return body.URL, nil
}

type finishUploadRequest struct {
	Etags []string `json:"etags,omitempty"`
}

// FinishFileUpload completes one subresource's upload. etags is required
// (and must be non-empty) iff the subresource was uploaded as multipart.
func (c *Client) FinishFileUpload(ctx context.Context, cookies Cookies, fileID, versionID string, sub model.Subresource, etags []string) (model.File, error) {
	var file model.File
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPut,
		path:    fmt.Sprintf("/file/%s/%s/%s/finish", fileID, versionID, sub),
		body:    finishUploadRequest{Etags: etags},
		cookies: cookies,
	})
	if err != nil {
		return file, err
	}
	if resp.StatusCode != http.StatusOK {
		return file, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &file); err != nil {
		return file, fmt.Errorf("serviceclient: decode FinishFileUpload response: %w", err)
	}
	return file, nil
}

// ShowFile fetches the current state of a file record.
func (c *Client) ShowFile(ctx context.Context, cookies Cookies, fileID string) (model.File, error) {
	var file model.File
	resp, data, err := c.do(ctx, requestOpts{method: http.MethodGet, path: "/file/" + fileID, cookies: cookies})
	if err != nil {
		return file, err
	}
	if resp.StatusCode != http.StatusOK {
		return file, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &file); err != nil {
		return file, fmt.Errorf("serviceclient: decode ShowFile response: %w", err)
	}
	return file, nil
}

// DeleteFileVersion removes a non-complete trailing version so a new one
// can be created on the same file.
func (c *Client) DeleteFileVersion(ctx context.Context, cookies Cookies, fileID string, versionIndex int) error {
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodDelete,
		path:    fmt.Sprintf("/file/%s/%d", fileID, versionIndex),
		cookies: cookies,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	return nil
}
