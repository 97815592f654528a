package serviceclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Kavex/Third3D-uploader/internal/model"
)

// AvatarNotFoundError is the recovered outcome of a 404 on GetAvatar; the
// orchestrator treats this as "create a new avatar", not as an error.
type AvatarNotFoundError struct{ ID string }

func (e *AvatarNotFoundError) Error() string {
	return fmt.Sprintf("serviceclient: avatar %s not found", e.ID)
}

// GetAvatar fetches an avatar record. A 404 returns *AvatarNotFoundError.
func (c *Client) GetAvatar(ctx context.Context, cookies Cookies, id string) (model.Avatar, error) {
	var avatar model.Avatar
	resp, data, err := c.do(ctx, requestOpts{method: http.MethodGet, path: "/avatars/" + id, cookies: cookies})
	if err != nil {
		return avatar, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return avatar, &AvatarNotFoundError{ID: id}
	}
	if resp.StatusCode != http.StatusOK {
		return avatar, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &avatar); err != nil {
		return avatar, fmt.Errorf("serviceclient: decode GetAvatar response: %w", err)
	}
	return avatar, nil
}

// CreateAvatarRequest is the body of POST /avatars.
type CreateAvatarRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ImageURL      string `json:"imageUrl"`
	ReleaseStatus string `json:"releaseStatus"`
	UnityVersion  string `json:"unityVersion"`
}

// CreateAvatar creates a new avatar record. A 500 response is translated
// to *BlueprintIDTakenError rather than a generic ServiceError, since the
// Service uses 500 to mean "this blueprint id is already in use".
func (c *Client) CreateAvatar(ctx context.Context, cookies Cookies, req CreateAvatarRequest) (model.Avatar, error) {
	var avatar model.Avatar
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPost,
		path:    "/avatars",
		body:    req,
		cookies: cookies,
	})
	if err != nil {
		return avatar, err
	}
	if resp.StatusCode == http.StatusInternalServerError {
		return avatar, &BlueprintIDTakenError{}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return avatar, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &avatar); err != nil {
		return avatar, fmt.Errorf("serviceclient: decode CreateAvatar response: %w", err)
	}
	return avatar, nil
}

// UpdateAvatarRequest is a partial patch body for PUT /avatars/{id}.
type UpdateAvatarRequest struct {
	Name         string `json:"name,omitempty"`
	ImageURL     string `json:"imageUrl,omitempty"`
	AssetURL     string `json:"assetUrl,omitempty"`
	Platform     string `json:"platform,omitempty"`
	UnityVersion string `json:"unityVersion,omitempty"`
	AssetVersion int    `json:"assetVersion,omitempty"`
}

// UpdateAvatar applies a partial patch to an existing avatar record.
func (c *Client) UpdateAvatar(ctx context.Context, cookies Cookies, id string, req UpdateAvatarRequest) (model.Avatar, error) {
	var avatar model.Avatar
	resp, data, err := c.do(ctx, requestOpts{
		method:  http.MethodPut,
		path:    "/avatars/" + id,
		body:    req,
		cookies: cookies,
	})
	if err != nil {
		return avatar, err
	}
	if resp.StatusCode != http.StatusOK {
		return avatar, &ServiceError{Status: resp.StatusCode, Body: string(data)}
	}
	if err := decodeJSON(data, &avatar); err != nil {
		return avatar, fmt.Errorf("serviceclient: decode UpdateAvatar response: %w", err)
	}
	return avatar, nil
}
