package localapi

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/leca/cfimages/internal/localapi/render"
)

// renderCache memoizes transformed images per account/image/variant.
// Entries are dropped when the variant changes or the image goes away,
// which is the purge side effect the API documents for variant updates
// and deletes.
type renderCache struct {
	mu      sync.Mutex
	entries map[renderKey]renderEntry
}

type renderKey struct {
	accountID string
	imageID   string
	variantID string
}

type renderEntry struct {
	data   []byte
	format string
}

func newRenderCache() *renderCache {
	return &renderCache{entries: make(map[renderKey]renderEntry)}
}

func (c *renderCache) get(k renderKey) (renderEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	return e, ok
}

func (c *renderCache) put(k renderKey, e renderEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = e
}

func (c *renderCache) purgeVariant(accountID, variantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.accountID == accountID && k.variantID == variantID {
			delete(c.entries, k)
		}
	}
}

func (c *renderCache) purgeImage(accountID, imageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.accountID == accountID && k.imageID == imageID {
			delete(c.entries, k)
		}
	}
}

// deliverImage handles GET /cdn/{account_id}/{image_id}/{variant_id} --
// serves the stored blob rendered through the variant's options.
func (s *Server) deliverImage(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account_id")
	imageID := chi.URLParam(r, "image_id")
	variantID := chi.URLParam(r, "variant_id")

	if _, err := s.store.GetImage(account, imageID); err != nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	variant, err := s.store.GetVariant(account, variantID)
	if err != nil {
		http.Error(w, "variant not found", http.StatusNotFound)
		return
	}

	key := renderKey{accountID: account, imageID: imageID, variantID: variantID}
	if e, ok := s.cache.get(key); ok {
		serveRendered(w, e)
		return
	}

	rc, err := s.blobs.Get(account, imageID)
	if err != nil {
		http.Error(w, "image not found", http.StatusNotFound)
		return
	}
	defer rc.Close()

	data, format, err := render.Transform(rc, render.Options{
		Fit:    variant.Fit,
		Width:  variant.Width,
		Height: variant.Height,
	})
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	e := renderEntry{data: data, format: format}
	s.cache.put(key, e)
	serveRendered(w, e)
}

func serveRendered(w http.ResponseWriter, e renderEntry) {
	w.Header().Set("Content-Type", render.ContentType(e.format))
	w.Header().Set("Content-Length", strconv.Itoa(len(e.data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.data)
}
