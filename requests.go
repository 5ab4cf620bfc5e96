package cfimages

// Limits enforced before dispatch. The remote service applies the same
// bounds; validating locally avoids a doomed network exchange.
const (
	// MaxUploadBytes is the largest accepted image payload.
	MaxUploadBytes = 10 << 20
	// MaxIDLength bounds image IDs and filenames.
	MaxIDLength = 32

	MinPerPage     = 10
	MaxPerPage     = 100
	DefaultPerPage = 100
	DefaultPage    = 1
)

// UploadImageRequest describes a new image upload. ID, FileName and
// FileData are required; the payload must not exceed MaxUploadBytes.
type UploadImageRequest struct {
	ID                string
	FileName          string
	FileData          []byte
	Metadata          map[string]any
	RequireSignedURLs bool
}

// ListImagesRequest selects a page of images. Zero values take the
// remote defaults (page 1, 100 per page); explicit values outside
// page ≥ 1 and 10 ≤ per_page ≤ 100 are rejected before dispatch.
type ListImagesRequest struct {
	Page    int
	PerPage int
}

// UpdateImageRequest mutates an image's user-owned fields. Nil fields
// are left untouched by the remote.
type UpdateImageRequest struct {
	Metadata          map[string]any `json:"metadata,omitempty"`
	RequireSignedURLs *bool          `json:"requireSignedURLs,omitempty"`
}

// CreateVariantRequest describes a new variant.
type CreateVariantRequest struct {
	ID                     string         `json:"id"`
	Options                VariantOptions `json:"options"`
	NeverRequireSignedURLs bool           `json:"neverRequireSignedURLs,omitempty"`
}

// UpdateVariantRequest replaces a variant's options. The remote treats
// this as a full-shape update and purges cached renderings of every
// image that uses the variant.
type UpdateVariantRequest struct {
	Options                VariantOptions `json:"options"`
	NeverRequireSignedURLs *bool          `json:"neverRequireSignedURLs,omitempty"`
}

// DefaultUploadImageRequest returns an upload request populated with
// harness-friendly defaults. Callers replace FileData with real bytes.
func DefaultUploadImageRequest() UploadImageRequest {
	return UploadImageRequest{
		ID:       "test-image",
		FileName: "test.png",
		FileData: []byte{},
	}
}

// DefaultListImagesRequest returns a list request with the remote's
// default pagination.
func DefaultListImagesRequest() ListImagesRequest {
	return ListImagesRequest{Page: DefaultPage, PerPage: DefaultPerPage}
}

// DefaultCreateVariantRequest returns a create-variant request with a
// conservative scale-down profile.
func DefaultCreateVariantRequest() CreateVariantRequest {
	return CreateVariantRequest{
		ID: "test-variant",
		Options: VariantOptions{
			Fit:      FitScaleDown,
			Width:    100,
			Height:   100,
			Metadata: MetadataNone,
		},
	}
}
