package cfimages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// validFits lists the accepted variant fit modes.
var validFits = map[Fit]bool{
	FitScaleDown: true,
	FitContain:   true,
	FitCover:     true,
	FitCrop:      true,
	FitPad:       true,
}

// validMetadataPolicies lists the accepted EXIF retention policies.
var validMetadataPolicies = map[MetadataPolicy]bool{
	MetadataKeep:      true,
	MetadataCopyright: true,
	MetadataNone:      true,
}

// validateVariantOptions applies the client-side checks shared by
// create and update.
func validateVariantOptions(opts VariantOptions) error {
	if !validFits[opts.Fit] {
		return fmt.Errorf("%w: fit must be one of scale-down, contain, cover, crop, pad; got %q",
			ErrInvalidRequest, opts.Fit)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive, got %dx%d",
			ErrInvalidRequest, opts.Width, opts.Height)
	}
	if opts.Metadata != "" && !validMetadataPolicies[opts.Metadata] {
		return fmt.Errorf("%w: metadata policy must be one of keep, copyright, none; got %q",
			ErrInvalidRequest, opts.Metadata)
	}
	return nil
}

// CreateVariant creates a named transformation preset. Variants are
// account-scoped: every image can be delivered through every variant.
func (c *Client) CreateVariant(ctx context.Context, req CreateVariantRequest) (*Response[Variant], error) {
	if req.ID == "" {
		return nil, fmt.Errorf("%w: variant id is required", ErrInvalidRequest)
	}
	if err := validateVariantOptions(req.Options); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request is not serializable: %v", ErrInvalidRequest, err)
	}
	return do[Variant](ctx, c, http.MethodPost, "/v1/variants", "application/json", bytes.NewReader(body))
}

// ListVariants fetches all variants for the account, keyed by ID.
func (c *Client) ListVariants(ctx context.Context) (*Response[VariantList], error) {
	return do[VariantList](ctx, c, http.MethodGet, "/v1/variants", "", nil)
}

// GetVariant fetches a single variant by ID.
func (c *Client) GetVariant(ctx context.Context, variantID string) (*Response[Variant], error) {
	if variantID == "" {
		return nil, fmt.Errorf("%w: variant id is required", ErrInvalidRequest)
	}
	return do[Variant](ctx, c, http.MethodGet, "/v1/variants/"+url.PathEscape(variantID), "", nil)
}

// UpdateVariant replaces a variant's options. The remote purges cached
// renderings of every image using the variant.
func (c *Client) UpdateVariant(ctx context.Context, variantID string, req UpdateVariantRequest) (*Response[Variant], error) {
	if variantID == "" {
		return nil, fmt.Errorf("%w: variant id is required", ErrInvalidRequest)
	}
	if err := validateVariantOptions(req.Options); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request is not serializable: %v", ErrInvalidRequest, err)
	}
	return do[Variant](ctx, c, http.MethodPatch, "/v1/variants/"+url.PathEscape(variantID), "application/json", bytes.NewReader(body))
}

// DeleteVariant deletes a variant, with the same rendering purge side
// effect as an update.
func (c *Client) DeleteVariant(ctx context.Context, variantID string) (*Response[any], error) {
	if variantID == "" {
		return nil, fmt.Errorf("%w: variant id is required", ErrInvalidRequest)
	}
	return do[any](ctx, c, http.MethodDelete, "/v1/variants/"+url.PathEscape(variantID), "", nil)
}
