package cfimages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// UploadImage uploads a new image. The image keeps the caller-supplied
// ID; metadata and the signed-URL flag travel as multipart form fields
// alongside the file.
func (c *Client) UploadImage(ctx context.Context, req UploadImageRequest) (*Response[Image], error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: image id is required", ErrInvalidRequest)
	}
	if len(req.ID) > MaxIDLength {
		return nil, fmt.Errorf("%w: image id exceeds %d characters", ErrInvalidRequest, MaxIDLength)
	}
	if req.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidRequest)
	}
	if len(req.FileName) > MaxIDLength {
		return nil, fmt.Errorf("%w: file name exceeds %d characters", ErrInvalidRequest, MaxIDLength)
	}
	if len(req.FileData) == 0 {
		return nil, fmt.Errorf("%w: file data is required", ErrInvalidRequest)
	}
	if len(req.FileData) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: file data exceeds %d bytes", ErrInvalidRequest, MaxUploadBytes)
	}

	body, contentType, err := encodeUploadForm(req)
	if err != nil {
		return nil, err
	}

	return do[Image](ctx, c, http.MethodPost, "/v1", contentType, body)
}

// encodeUploadForm builds the multipart body for an upload request.
func encodeUploadForm(req UploadImageRequest) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, "", fmt.Errorf("encode upload form: %w", err)
	}
	if _, err := fw.Write(req.FileData); err != nil {
		return nil, "", fmt.Errorf("encode upload form: %w", err)
	}

	if err := w.WriteField("id", req.ID); err != nil {
		return nil, "", fmt.Errorf("encode upload form: %w", err)
	}
	if req.Metadata != nil {
		metaJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, "", fmt.Errorf("%w: metadata is not serializable: %v", ErrInvalidRequest, err)
		}
		if err := w.WriteField("metadata", string(metaJSON)); err != nil {
			return nil, "", fmt.Errorf("encode upload form: %w", err)
		}
	}
	if req.RequireSignedURLs {
		if err := w.WriteField("requireSignedURLs", "true"); err != nil {
			return nil, "", fmt.Errorf("encode upload form: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("encode upload form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// ListImages fetches one page of images. Zero fields in req take the
// remote defaults; out-of-range values are rejected without a network
// exchange.
func (c *Client) ListImages(ctx context.Context, req ListImagesRequest) (*Response[ImageList], error) {
	page := req.Page
	if page == 0 {
		page = DefaultPage
	}
	perPage := req.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidRequest, page)
	}
	if perPage < MinPerPage || perPage > MaxPerPage {
		return nil, fmt.Errorf("%w: per_page must be in [%d,%d], got %d",
			ErrInvalidRequest, MinPerPage, MaxPerPage, perPage)
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	return do[ImageList](ctx, c, http.MethodGet, "/v1?"+q.Encode(), "", nil)
}

// GetImage fetches a single image by ID.
func (c *Client) GetImage(ctx context.Context, imageID string) (*Response[Image], error) {
	if imageID == "" {
		return nil, fmt.Errorf("%w: image id is required", ErrInvalidRequest)
	}
	return do[Image](ctx, c, http.MethodGet, "/v1/"+url.PathEscape(imageID), "", nil)
}

// UpdateImage mutates an image's metadata and/or signed-URL flag. These
// are the only image fields the remote allows to change after upload.
func (c *Client) UpdateImage(ctx context.Context, imageID string, req UpdateImageRequest) (*Response[Image], error) {
	if imageID == "" {
		return nil, fmt.Errorf("%w: image id is required", ErrInvalidRequest)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request is not serializable: %v", ErrInvalidRequest, err)
	}
	return do[Image](ctx, c, http.MethodPatch, "/v1/"+url.PathEscape(imageID), "application/json", bytes.NewReader(body))
}

// DeleteImage deletes an image. The remote purges all cached copies as
// a side effect. Deleting an unknown ID yields a not-found envelope,
// not a transport error.
func (c *Client) DeleteImage(ctx context.Context, imageID string) (*Response[any], error) {
	if imageID == "" {
		return nil, fmt.Errorf("%w: image id is required", ErrInvalidRequest)
	}
	return do[any](ctx, c, http.MethodDelete, "/v1/"+url.PathEscape(imageID), "", nil)
}
