package localapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leca/cfimages/internal/localapi/store"
)

// validFits lists the allowed values for the variant "fit" option.
var validFits = map[string]bool{
	"scale-down": true,
	"contain":    true,
	"cover":      true,
	"crop":       true,
	"pad":        true,
}

// maxVariantsPerAccount matches the Cloudflare Images variant limit.
const maxVariantsPerAccount = 100

// variantView is the wire form of a variant record.
type variantView struct {
	ID                     string         `json:"id"`
	Options                variantOptions `json:"options"`
	NeverRequireSignedURLs bool           `json:"neverRequireSignedURLs"`
}

type variantOptions struct {
	Fit      string `json:"fit"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Metadata string `json:"metadata"`
}

func viewVariant(rec *store.VariantRecord) variantView {
	return variantView{
		ID: rec.ID,
		Options: variantOptions{
			Fit:      rec.Fit,
			Width:    rec.Width,
			Height:   rec.Height,
			Metadata: rec.Metadata,
		},
		NeverRequireSignedURLs: rec.NeverRequireSignedURLs,
	}
}

// createVariant handles POST /v1/variants.
func (s *Server) createVariant(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())

	var req variantView
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.ID == "" {
		badRequest(w, "variant id is required")
		return
	}
	if !validFits[req.Options.Fit] {
		badRequest(w, "invalid fit mode: must be one of scale-down, contain, cover, crop, pad")
		return
	}
	if req.Options.Width <= 0 || req.Options.Height <= 0 {
		badRequest(w, "width and height must be positive")
		return
	}

	count, err := s.store.CountVariants(account)
	if err != nil {
		internalError(w, "failed to count variants")
		return
	}
	if count >= maxVariantsPerAccount {
		badRequest(w, "maximum number of variants reached")
		return
	}

	rec := &store.VariantRecord{
		AccountID:              account,
		ID:                     req.ID,
		Fit:                    req.Options.Fit,
		Width:                  req.Options.Width,
		Height:                 req.Options.Height,
		Metadata:               req.Options.Metadata,
		NeverRequireSignedURLs: req.NeverRequireSignedURLs,
	}
	if rec.Metadata == "" {
		rec.Metadata = "none"
	}

	if err := s.store.CreateVariant(rec); err != nil {
		if errors.Is(err, store.ErrExists) {
			conflict(w, "variant already exists")
			return
		}
		internalError(w, "failed to create variant")
		return
	}

	writeJSON(w, http.StatusOK, success(viewVariant(rec)))
}

// listVariants handles GET /v1/variants. The result is a map keyed by
// variant ID, as the remote API returns.
func (s *Server) listVariants(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())

	records, err := s.store.ListVariants(account)
	if err != nil {
		internalError(w, "failed to list variants")
		return
	}

	variants := make(map[string]variantView, len(records))
	for _, rec := range records {
		variants[rec.ID] = viewVariant(rec)
	}

	writeJSON(w, http.StatusOK, success(map[string]any{"variants": variants}))
}

// getVariant handles GET /v1/variants/{variant_id}.
func (s *Server) getVariant(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	variantID := chi.URLParam(r, "variant_id")

	rec, err := s.store.GetVariant(account, variantID)
	if err != nil {
		notFound(w, "variant not found")
		return
	}
	writeJSON(w, http.StatusOK, success(viewVariant(rec)))
}

// updateVariant handles PATCH /v1/variants/{variant_id}. All cached
// renderings through this variant are purged.
func (s *Server) updateVariant(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	variantID := chi.URLParam(r, "variant_id")

	rec, err := s.store.GetVariant(account, variantID)
	if err != nil {
		notFound(w, "variant not found")
		return
	}

	var req struct {
		Options                *variantOptions `json:"options"`
		NeverRequireSignedURLs *bool           `json:"neverRequireSignedURLs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.Options != nil {
		if req.Options.Fit != "" {
			if !validFits[req.Options.Fit] {
				badRequest(w, "invalid fit mode: must be one of scale-down, contain, cover, crop, pad")
				return
			}
			rec.Fit = req.Options.Fit
		}
		if req.Options.Width != 0 {
			rec.Width = req.Options.Width
		}
		if req.Options.Height != 0 {
			rec.Height = req.Options.Height
		}
		if req.Options.Metadata != "" {
			rec.Metadata = req.Options.Metadata
		}
	}
	if req.NeverRequireSignedURLs != nil {
		rec.NeverRequireSignedURLs = *req.NeverRequireSignedURLs
	}

	if err := s.store.UpdateVariant(rec); err != nil {
		internalError(w, "failed to update variant")
		return
	}

	s.cache.purgeVariant(account, variantID)

	writeJSON(w, http.StatusOK, success(viewVariant(rec)))
}

// deleteVariant handles DELETE /v1/variants/{variant_id}, with the
// same rendering purge as an update.
func (s *Server) deleteVariant(w http.ResponseWriter, r *http.Request) {
	account := accountID(r.Context())
	variantID := chi.URLParam(r, "variant_id")

	if err := s.store.DeleteVariant(account, variantID); err != nil {
		notFound(w, "variant not found")
		return
	}

	s.cache.purgeVariant(account, variantID)

	writeJSON(w, http.StatusOK, success(struct{}{}))
}
