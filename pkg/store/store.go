// Package store is a SQLite index over a directory-backed photo library.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"k8s.io/klog/v2"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/store/migrations"
)

// Confirmer approves or declines creation of a new asset.
type Confirmer func(ctx context.Context, req camroll.CreationRequest) (bool, error)

// AutoApprove confirms every asset creation.
func AutoApprove(context.Context, camroll.CreationRequest) (bool, error) {
	return true, nil
}

// Store indexes assets and creates new ones under a library directory.
type Store struct {
	db          *sql.DB
	path        string
	libDir      string
	importAlbum string
	confirm     Confirmer
}

var (
	_ camroll.MediaStore   = (*Store)(nil)
	_ camroll.AssetCreator = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithConfirmer sets how asset creation is approved. The default approves everything.
func WithConfirmer(c Confirmer) Option {
	return func(s *Store) {
		s.confirm = c
	}
}

// WithImportAlbum marks the album saved assets land in by default.
func WithImportAlbum(name string) Option {
	return func(s *Store) {
		s.importAlbum = name
	}
}

// New opens (creating if needed) the index in dataDir for the library at libDir.
func New(dataDir string, libDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		return nil, errors.New("data dir is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	abs, err := filepath.Abs(libDir)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}

	dbPath := filepath.Join(dataDir, "library.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		libDir:  abs,
		confirm: AutoApprove,
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	klog.V(1).Infof("opened index %s for %s", dbPath, abs)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// LibraryDir returns the absolute library root.
func (s *Store) LibraryDir() string {
	return s.libDir
}

func (s *Store) migrate(fsys embed.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var ups []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			ups = append(ups, e.Name())
		}
	}
	sort.Strings(ups)

	for _, name := range ups {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}

		bs, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(bs)); err != nil {
			return fmt.Errorf("exec %s: %w", name, err)
		}
		klog.V(1).Infof("applied migration %s", name)
	}
	return nil
}
