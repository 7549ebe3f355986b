package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// CreateAsset implements camroll.AssetCreator. The asset stays pending, and
// invisible to queries, until CommitAsset.
func (s *Store) CreateAsset(ctx context.Context, req camroll.CreationRequest) (*camroll.Destination, error) {
	ok, err := s.confirm(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		klog.Infof("creation of %q declined", req.Title)
		return nil, camroll.ErrUserCancelled
	}

	dir, err := s.albumDir(req.Album)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	album, err := filepath.Rel(s.libDir, dir)
	if err != nil {
		return nil, fmt.Errorf("rel: %w", err)
	}

	now := time.Now().Unix()
	for n := 0; n < 1000; n++ {
		path := filepath.Join(dir, fileName(req, n))
		d := &camroll.Destination{ID: uuid.NewString(), URI: camroll.FileURI(path), Path: path}

		// The row goes in first so a concurrent rescan sees a pending asset, not a new file.
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO assets (id, uri, path, display_name, photo_type, album, date_added, date_modified, pending)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
			ON CONFLICT(path) DO NOTHING
		`, d.ID, d.URI, d.Path, filepath.Base(path), req.PhotoType, album, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert: %w", err)
		}

		var id string
		if err := s.db.QueryRowContext(ctx, "SELECT id FROM assets WHERE path = ?", path).Scan(&id); err != nil {
			return nil, fmt.Errorf("lookup: %w", err)
		}
		if id != d.ID {
			continue
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			s.forget(ctx, d.ID)
			continue
		}
		if err != nil {
			s.forget(ctx, d.ID)
			return nil, fmt.Errorf("create: %w", err)
		}
		f.Close()

		klog.V(1).Infof("created pending asset %s at %s", d.ID, path)
		return d, nil
	}
	return nil, fmt.Errorf("no free name for %q in %s", req.Title, dir)
}

// CommitAsset implements camroll.AssetCreator.
func (s *Store) CommitAsset(ctx context.Context, d *camroll.Destination, m camroll.AssetMeta) (*camroll.Record, error) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE assets SET size = ?, media_type = ?, width = ?, height = ?, date_modified = ?, pending = 0
		WHERE id = ?
	`, m.Size, m.MimeType, m.Width, m.Height, time.Now().Unix(), d.ID)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	rs, err := s.Find(ctx, camroll.Query{Key: d.ID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rs) == 0 {
		return nil, fmt.Errorf("%s: %w", d.ID, camroll.ErrNotFound)
	}
	return &rs[0], nil
}

// DiscardAsset implements camroll.AssetCreator.
func (s *Store) DiscardAsset(ctx context.Context, d *camroll.Destination) error {
	s.forget(ctx, d.ID)
	if err := os.Remove(d.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func (s *Store) forget(ctx context.Context, id string) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id); err != nil {
		klog.Warningf("unable to drop asset %s: %v", id, err)
	}
}

// albumDir resolves an album name to a directory inside the library.
func (s *Store) albumDir(album string) (string, error) {
	dir := filepath.Join(s.libDir, filepath.FromSlash(album))
	rel, err := filepath.Rel(s.libDir, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.HasPrefix(filepath.Base(rel), ".") {
		return "", fmt.Errorf("invalid album %q", album)
	}
	return dir, nil
}

func fileName(req camroll.CreationRequest, n int) string {
	title := req.Title
	if title == "" {
		title = "asset"
	}
	if n > 0 {
		title = fmt.Sprintf("%s-%d", title, n)
	}
	if req.Extension == "" {
		return title
	}
	return title + "." + req.Extension
}
