// Command images-local runs the local Cloudflare Images stand-in used
// for offline development against the cfimages client.
package main

import (
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/leca/cfimages/internal/localapi"
	"github.com/leca/cfimages/internal/localapi/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	listenAddr := getEnv("IMAGES_LISTEN_ADDR", ":8080")
	dbPath := getEnv("IMAGES_DB_PATH", "images.db")
	storagePath := getEnv("IMAGES_STORAGE_PATH", "images-data")
	cfg := localapi.Config{
		AuthToken:      os.Getenv("IMAGES_AUTH_TOKEN"),
		BaseURL:        getEnv("IMAGES_BASE_URL", "http://localhost:8080"),
		ImageAllowance: getEnvInt64("IMAGES_ALLOWANCE", localapi.DefaultImageAllowance),
	}

	st, err := store.NewSQLite(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	blobs := store.NewFileBlobs(storagePath)

	srv := localapi.New(st, blobs, cfg)

	slog.Info("starting local images api", "addr", listenAddr)
	if err := http.ListenAndServe(listenAddr, srv.Router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
