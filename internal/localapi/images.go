package localapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leca/cfimages/internal/localapi/store"
)

const (
	maxUploadBytes = 10 << 20
	maxIDLength    = 32
	minPerPage     = 10
	maxPerPage     = 100
	defaultPerPage = 100
)

// imageView is the wire form of an image record.
type imageView struct {
	ID                string         `json:"id"`
	Filename          string         `json:"filename"`
	Meta              map[string]any `json:"meta,omitempty"`
	RequireSignedURLs bool           `json:"requireSignedURLs"`
	Uploaded          time.Time      `json:"uploaded"`
	Variants          []string       `json:"variants"`
}

// imageView projects a record onto the wire shape, attaching the
// account's variant delivery URLs.
func (s *Server) imageView(rec *store.ImageRecord) imageView {
	return imageView{
		ID:                rec.ID,
		Filename:          rec.Filename,
		Meta:              rec.Meta,
		RequireSignedURLs: rec.RequireSignedURLs,
		Uploaded:          rec.Uploaded,
		Variants:          s.variantURLs(rec.AccountID, rec.ID),
	}
}

// variantURLs builds the delivery URL list for an image from the
// account's variant set.
func (s *Server) variantURLs(accountID, imageID string) []string {
	variants, err := s.store.ListVariants(accountID)
	if err != nil || len(variants) == 0 {
		return []string{}
	}
	base := strings.TrimRight(s.cfg.BaseURL, "/")
	urls := make([]string, 0, len(variants))
	for _, v := range variants {
		urls = append(urls, fmt.Sprintf("%s/cdn/%s/%s/%s", base, accountID, imageID, v.ID))
	}
	return urls
}

// uploadImage handles POST /v1 -- multipart file upload.
func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())

	// Slack over the payload cap for multipart framing.
	const maxBodyBytes = maxUploadBytes + 64<<10

	if r.ContentLength > maxBodyBytes {
		tooLarge(w, "image payload exceeds 10 MB")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			tooLarge(w, "image payload exceeds 10 MB")
			return
		}
		badRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "missing required field: file")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		tooLarge(w, "image payload exceeds 10 MB")
		return
	}

	imageID := r.FormValue("id")
	if imageID == "" {
		imageID = uuid.New().String()
	}
	if len(imageID) > maxIDLength {
		badRequest(w, fmt.Sprintf("image id exceeds %d characters", maxIDLength))
		return
	}

	var meta map[string]any
	if metaStr := r.FormValue("metadata"); metaStr != "" {
		if err := json.Unmarshal([]byte(metaStr), &meta); err != nil {
			badRequest(w, "invalid metadata JSON: "+err.Error())
			return
		}
	}

	current, err := s.store.CountImages(account)
	if err != nil {
		internalError(w, "failed to count images")
		return
	}
	if current >= s.cfg.ImageAllowance {
		quotaExceeded(w)
		return
	}

	rec := &store.ImageRecord{
		AccountID:         account,
		ID:                imageID,
		Filename:          header.Filename,
		Meta:              meta,
		RequireSignedURLs: r.FormValue("requireSignedURLs") == "true",
		Uploaded:          time.Now().UTC(),
	}

	// The record goes in first so a duplicate ID is rejected before the
	// existing image's blob can be touched.
	if err := s.store.CreateImage(rec); err != nil {
		if errors.Is(err, store.ErrExists) {
			conflict(w, "image already exists")
			return
		}
		internalError(w, "failed to create image record: "+err.Error())
		return
	}

	if _, err := s.blobs.Put(account, imageID, file); err != nil {
		// Roll the record back so a failed upload leaves no partial state.
		_ = s.store.DeleteImage(account, imageID)
		internalError(w, "failed to store image: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, success(s.imageView(rec)))
}

// listImages handles GET /v1.
func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())

	page := 1
	perPage := defaultPerPage

	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			badRequest(w, "page must be a positive integer")
			return
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < minPerPage || pp > maxPerPage {
			badRequest(w, fmt.Sprintf("per_page must be between %d and %d", minPerPage, maxPerPage))
			return
		}
		perPage = pp
	}

	records, total, err := s.store.ListImages(account, page, perPage)
	if err != nil {
		internalError(w, "failed to list images")
		return
	}

	images := make([]imageView, 0, len(records))
	for _, rec := range records {
		images = append(images, s.imageView(rec))
	}

	info := resultInfo{
		Page:       page,
		PerPage:    perPage,
		Count:      len(images),
		TotalCount: total,
		TotalPages: (total + perPage - 1) / perPage,
	}

	writeJSON(w, http.StatusOK, paginated(map[string]any{"images": images}, info))
}

// getImage handles GET /v1/{image_id}.
func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	imageID := chi.URLParam(r, "image_id")

	rec, err := s.store.GetImage(account, imageID)
	if err != nil {
		notFound(w, "image not found")
		return
	}
	writeJSON(w, http.StatusOK, success(s.imageView(rec)))
}

// updateImage handles PATCH /v1/{image_id}. Only metadata and the
// signed-URL flag are mutable after upload.
func (s *Server) updateImage(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	imageID := chi.URLParam(r, "image_id")

	rec, err := s.store.GetImage(account, imageID)
	if err != nil {
		notFound(w, "image not found")
		return
	}

	var body struct {
		Metadata          *map[string]any `json:"metadata"`
		RequireSignedURLs *bool           `json:"requireSignedURLs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return
	}

	if body.Metadata != nil {
		rec.Meta = *body.Metadata
	}
	if body.RequireSignedURLs != nil {
		rec.RequireSignedURLs = *body.RequireSignedURLs
	}

	if err := s.store.UpdateImage(rec); err != nil {
		internalError(w, "failed to update image")
		return
	}
	writeJSON(w, http.StatusOK, success(s.imageView(rec)))
}

// deleteImage handles DELETE /v1/{image_id}. Cached renderings are
// purged along with the record and blob.
func (s *Server) deleteImage(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	imageID := chi.URLParam(r, "image_id")

	if err := s.store.DeleteImage(account, imageID); err != nil {
		notFound(w, "image not found")
		return
	}

	// Blob and cache cleanup are best-effort.
	_ = s.blobs.Delete(account, imageID)
	s.cache.purgeImage(account, imageID)

	writeJSON(w, http.StatusOK, success(struct{}{}))
}

// getStats handles GET /v1/stats.
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())

	current, err := s.store.CountImages(account)
	if err != nil {
		internalError(w, "failed to count images")
		return
	}

	result := map[string]any{
		"count": map[string]any{
			"current": current,
			"allowed": s.cfg.ImageAllowance,
		},
	}
	writeJSON(w, http.StatusOK, success(result))
}
