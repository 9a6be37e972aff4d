// Package store persists OAuth token records keyed by user email.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jmail/domaincheck/internal/config"
	"github.com/jmail/domaincheck/internal/core"
)

const (
	driverLibsql = config.DriverLibSQL
	driverRedis  = config.DriverRedis
)

// ErrNotFound is returned when no token record exists for an email.
var ErrNotFound = errors.New("token record not found")

// TokenStore is the keyed record store behind the OAuth callback.
type TokenStore interface {
	// UpsertToken writes rec under rec.UserEmail. An existing record keeps its
	// created_at and, when rec carries none, its refresh token.
	UpsertToken(ctx context.Context, rec core.TokenRecord) (core.TokenRecord, error)
	GetToken(ctx context.Context, email string) (core.TokenRecord, error)
	ListTokens(ctx context.Context) ([]core.TokenRecord, error)
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// Open connects to the configured driver and prepares its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (TokenStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" {
		driver = driverLibsql
	}

	switch driver {
	case driverLibsql:
		s, err := OpenSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case driverRedis:
		return OpenRedis(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}

// Store is the libsql-backed TokenStore.
type Store struct {
	DB     *sql.DB
	driver string
	now    func() time.Time
}

var _ TokenStore = (*Store)(nil)

// OpenSQL opens a libsql database without running migrations.
func OpenSQL(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	dsn, err := buildLibsqlDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverLibsql, dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping libsql store: %w", err)
	}

	return &Store{DB: db, driver: driverLibsql, now: time.Now}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Driver returns the configured store driver.
func (s *Store) Driver() string {
	if s == nil {
		return ""
	}
	return s.driver
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	return s.DB.PingContext(ctx)
}

func buildLibsqlDSN(cfg config.StoreConfig) (string, error) {
	if dsn := strings.TrimSpace(cfg.URL); dsn != "" {
		return addAuthToken(dsn, cfg.AuthToken)
	}

	path := strings.TrimSpace(cfg.Path)
	switch {
	case path == "":
		return "", errors.New("store path or url is required")
	case path == ":memory:", strings.HasPrefix(path, "libsql:"):
		return path, nil
	case strings.HasPrefix(path, "file:"):
		localPath, err := extractFilePath(path)
		if err != nil {
			return "", err
		}
		if err := ensureStoreDir(localPath); err != nil {
			return "", err
		}
		return path, nil
	}

	if err := ensureStoreDir(path); err != nil {
		return "", err
	}
	return "file:" + filepath.Clean(path), nil
}

func addAuthToken(dsn string, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return dsn, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store url: %w", err)
	}

	query := parsed.Query()
	if query.Get("authToken") == "" {
		query.Set("authToken", token)
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}

func extractFilePath(dsn string) (string, error) {
	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid store path: %w", err)
	}
	if parsed.Path != "" {
		return strings.TrimPrefix(parsed.Path, "//"), nil
	}
	return strings.TrimPrefix(parsed.Opaque, "//"), nil
}

func ensureStoreDir(path string) error {
	if strings.TrimSpace(path) == "" || path == ":memory:" {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}

	// Token records are secrets; keep the directory private.
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("user email is required")
	}
	return email, nil
}
