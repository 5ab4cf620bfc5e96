// Package cfimages is a typed client for the Cloudflare Images v1 API.
//
// A Client maps one method onto each remote endpoint: image upload,
// listing, fetch, update and delete; variant CRUD; and usage
// statistics. Every call is a single stateless HTTP exchange that
// yields the standard Cloudflare response envelope. The client keeps
// no local state beyond its credentials and performs no retries.
package cfimages

import "time"

// Response is the standard Cloudflare API response envelope, shared by
// every endpoint regardless of the result type.
//
// Success=false always comes with at least one entry in Errors; callers
// must branch on Success, not on the HTTP status alone.
type Response[T any] struct {
	Result     T            `json:"result"`
	ResultInfo *ResultInfo  `json:"result_info,omitempty"`
	Success    bool         `json:"success"`
	Errors     []APIError   `json:"errors"`
	Messages   []APIMessage `json:"messages"`
}

// FirstError returns the first error in the envelope, or the zero
// APIError when the call succeeded.
func (r *Response[T]) FirstError() APIError {
	if len(r.Errors) == 0 {
		return APIError{}
	}
	return r.Errors[0]
}

// APIError represents a single error in the response envelope.
type APIError struct {
	Code             int             `json:"code"`
	Message          string          `json:"message"`
	DocumentationURL string          `json:"documentation_url,omitempty"`
	Source           *APIErrorSource `json:"source,omitempty"`
}

// APIErrorSource identifies the field that caused the error.
type APIErrorSource struct {
	Pointer string `json:"pointer"`
}

// APIMessage represents a single informational message in the envelope.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ResultInfo carries pagination metadata on list responses.
type ResultInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Count      int `json:"count"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages,omitempty"`
}

// Image represents a stored image resource.
//
// Variants is a read-only projection of the delivery URLs for the
// account's variants; the account's variant set, not the image, is the
// source of truth.
type Image struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	Meta              map[string]any `json:"meta,omitempty"`
	RequireSignedURLs bool           `json:"requireSignedURLs"`
	Uploaded          time.Time      `json:"uploaded"`
	Variants          []string       `json:"variants"`
}

// ImageList is the result of listing images.
type ImageList struct {
	Images []Image `json:"images"`
}

// Fit controls how a variant's width and height constrain resizing.
type Fit string

const (
	FitScaleDown Fit = "scale-down"
	FitContain   Fit = "contain"
	FitCover     Fit = "cover"
	FitCrop      Fit = "crop"
	FitPad       Fit = "pad"
)

// MetadataPolicy controls EXIF retention on variant renderings.
type MetadataPolicy string

const (
	MetadataKeep      MetadataPolicy = "keep"
	MetadataCopyright MetadataPolicy = "copyright"
	MetadataNone      MetadataPolicy = "none"
)

// Variant represents a named image transformation preset, scoped to the
// account rather than to any single image.
type Variant struct {
	ID                     string         `json:"id"`
	Options                VariantOptions `json:"options"`
	NeverRequireSignedURLs bool           `json:"neverRequireSignedURLs"`
}

// VariantOptions holds the transformation parameters for a variant.
type VariantOptions struct {
	Fit      Fit            `json:"fit"`
	Width    int            `json:"width"`
	Height   int            `json:"height"`
	Metadata MetadataPolicy `json:"metadata"`
}

// VariantList is the result of listing variants, keyed by variant ID as
// the remote API returns it.
type VariantList struct {
	Variants map[string]Variant `json:"variants"`
}

// UsageStats is a read-only snapshot of the account's image usage.
type UsageStats struct {
	Count UsageCount `json:"count"`
}

// UsageCount holds the current image count against the plan allowance.
type UsageCount struct {
	Current int64 `json:"current"`
	Allowed int64 `json:"allowed"`
}
