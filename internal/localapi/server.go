// Package localapi serves the Cloudflare Images v1 surface locally: it
// backs the client's test suite and runs standalone for offline
// development. It mirrors the remote contract the client codes
// against, including the response envelope, error codes, pagination
// bounds, and the rendering-purge side effects of variant changes.
package localapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/leca/cfimages/internal/localapi/store"
)

// Config holds the stand-in server's settings.
type Config struct {
	// AuthToken is the expected bearer token. Empty accepts any
	// non-empty token.
	AuthToken string
	// BaseURL is used to build variant delivery URLs on image
	// responses.
	BaseURL string
	// ImageAllowance caps the number of stored images per account;
	// uploads beyond it are rejected with a quota error. Zero or
	// negative falls back to DefaultImageAllowance.
	ImageAllowance int64
}

// DefaultImageAllowance is the per-account image cap applied when the
// config does not set one. It matches the base Cloudflare Images plan.
const DefaultImageAllowance = 100000

// Server is the local stand-in. It owns the record store, the blob
// store, and an in-memory cache of rendered variants that is purged
// when a variant changes or an image is deleted.
type Server struct {
	store  store.Store
	blobs  store.BlobStore
	cfg    Config
	cache  *renderCache
	Router chi.Router
}

// New wires a Server with a fully configured chi router.
func New(st store.Store, blobs store.BlobStore, cfg Config) *Server {
	if cfg.ImageAllowance <= 0 {
		cfg.ImageAllowance = DefaultImageAllowance
	}
	s := &Server{
		store: st,
		blobs: blobs,
		cfg:   cfg,
		cache: newRenderCache(),
	}

	r := chi.NewRouter()

	// CORS before other middleware to handle preflight OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Route("/accounts/{account_id}/images/v1", func(r chi.Router) {
		r.Use(authMiddleware(cfg.AuthToken))
		r.Use(accountIDMiddleware)

		r.Post("/", s.uploadImage)
		r.Get("/", s.listImages)

		// Stats and variants are registered before the {image_id}
		// wildcard so their paths are not taken for image IDs.
		r.Get("/stats", s.getStats)

		r.Post("/variants", s.createVariant)
		r.Get("/variants", s.listVariants)
		r.Get("/variants/{variant_id}", s.getVariant)
		r.Patch("/variants/{variant_id}", s.updateVariant)
		r.Delete("/variants/{variant_id}", s.deleteVariant)

		r.Get("/{image_id}", s.getImage)
		r.Patch("/{image_id}", s.updateImage)
		r.Delete("/{image_id}", s.deleteImage)
	})

	// Variant delivery (no auth, as on the real CDN).
	r.Get("/cdn/{account_id}/{image_id}/{variant_id}", s.deliverImage)

	s.Router = r
	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
