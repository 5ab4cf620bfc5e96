package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
    account_id TEXT NOT NULL,
    id TEXT NOT NULL,
    filename TEXT NOT NULL DEFAULT '',
    meta TEXT DEFAULT '{}',
    require_signed_urls INTEGER NOT NULL DEFAULT 0,
    uploaded DATETIME NOT NULL,
    PRIMARY KEY (account_id, id)
);

CREATE TABLE IF NOT EXISTS variants (
    account_id TEXT NOT NULL,
    id TEXT NOT NULL,
    fit TEXT NOT NULL DEFAULT 'scale-down',
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    metadata TEXT NOT NULL DEFAULT 'none',
    never_require_signed_urls INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (account_id, id)
);

CREATE INDEX IF NOT EXISTS idx_images_uploaded ON images (account_id, uploaded);
`

// Compile-time check that SQLite implements Store.
var _ Store = (*SQLite)(nil)

// SQLite implements Store backed by SQLite.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) an SQLite database at dsn and applies
// the schema. For in-memory use pass "file::memory:?cache=shared".
func NewSQLite(dsn string) (*SQLite, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?_journal_mode=WAL&_busy_timeout=5000"
	} else if !strings.Contains(dsn, "_journal_mode") {
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) CreateImage(img *ImageRecord) error {
	metaJSON, err := json.Marshal(img.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO images (account_id, id, filename, meta, require_signed_urls, uploaded)
		VALUES (?, ?, ?, ?, ?, ?)`,
		img.AccountID, img.ID, img.Filename, string(metaJSON),
		boolToInt(img.RequireSignedURLs), img.Uploaded.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

func (s *SQLite) GetImage(accountID, imageID string) (*ImageRecord, error) {
	row := s.db.QueryRow(`
		SELECT account_id, id, filename, meta, require_signed_urls, uploaded
		FROM images WHERE account_id = ? AND id = ?`,
		accountID, imageID,
	)
	return scanImage(row)
}

func (s *SQLite) ListImages(accountID string, page, perPage int) ([]*ImageRecord, int, error) {
	var total int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM images WHERE account_id = ?`, accountID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count images: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := s.db.Query(`
		SELECT account_id, id, filename, meta, require_signed_urls, uploaded
		FROM images WHERE account_id = ?
		ORDER BY uploaded ASC, id ASC
		LIMIT ? OFFSET ?`,
		accountID, perPage, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	var images []*ImageRecord
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, 0, err
		}
		images = append(images, img)
	}
	return images, total, rows.Err()
}

func (s *SQLite) UpdateImage(img *ImageRecord) error {
	metaJSON, err := json.Marshal(img.Meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	res, err := s.db.Exec(`
		UPDATE images SET filename = ?, meta = ?, require_signed_urls = ?
		WHERE account_id = ? AND id = ?`,
		img.Filename, string(metaJSON), boolToInt(img.RequireSignedURLs),
		img.AccountID, img.ID,
	)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLite) DeleteImage(accountID, imageID string) error {
	res, err := s.db.Exec(`DELETE FROM images WHERE account_id = ? AND id = ?`, accountID, imageID)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLite) CountImages(accountID string) (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM images WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}

func (s *SQLite) CreateVariant(v *VariantRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO variants (account_id, id, fit, width, height, metadata, never_require_signed_urls)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.AccountID, v.ID, v.Fit, v.Width, v.Height, v.Metadata,
		boolToInt(v.NeverRequireSignedURLs),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func (s *SQLite) GetVariant(accountID, variantID string) (*VariantRecord, error) {
	row := s.db.QueryRow(`
		SELECT account_id, id, fit, width, height, metadata, never_require_signed_urls
		FROM variants WHERE account_id = ? AND id = ?`,
		accountID, variantID,
	)
	return scanVariant(row)
}

func (s *SQLite) ListVariants(accountID string) ([]*VariantRecord, error) {
	rows, err := s.db.Query(`
		SELECT account_id, id, fit, width, height, metadata, never_require_signed_urls
		FROM variants WHERE account_id = ?
		ORDER BY id ASC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []*VariantRecord
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (s *SQLite) UpdateVariant(v *VariantRecord) error {
	res, err := s.db.Exec(`
		UPDATE variants SET fit = ?, width = ?, height = ?, metadata = ?, never_require_signed_urls = ?
		WHERE account_id = ? AND id = ?`,
		v.Fit, v.Width, v.Height, v.Metadata, boolToInt(v.NeverRequireSignedURLs),
		v.AccountID, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update variant: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLite) DeleteVariant(accountID, variantID string) error {
	res, err := s.db.Exec(`DELETE FROM variants WHERE account_id = ? AND id = ?`, accountID, variantID)
	if err != nil {
		return fmt.Errorf("delete variant: %w", err)
	}
	return checkRowsAffected(res)
}

func (s *SQLite) CountVariants(accountID string) (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM variants WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanImage(row scannable) (*ImageRecord, error) {
	img := &ImageRecord{}
	var metaStr, uploadedStr string
	var requireSigned int
	err := row.Scan(&img.AccountID, &img.ID, &img.Filename, &metaStr, &requireSigned, &uploadedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan image: %w", err)
	}
	img.RequireSignedURLs = requireSigned != 0
	if img.Uploaded, err = time.Parse(time.RFC3339, uploadedStr); err != nil {
		return nil, fmt.Errorf("parse uploaded timestamp: %w", err)
	}
	if metaStr != "" && metaStr != "null" {
		if err := json.Unmarshal([]byte(metaStr), &img.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta: %w", err)
		}
	}
	return img, nil
}

func scanVariant(row scannable) (*VariantRecord, error) {
	v := &VariantRecord{}
	var neverSigned int
	err := row.Scan(&v.AccountID, &v.ID, &v.Fit, &v.Width, &v.Height, &v.Metadata, &neverSigned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	v.NeverRequireSignedURLs = neverSigned != 0
	return v, nil
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
