package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// Sink receives scanned records.
type Sink interface {
	Upsert(ctx context.Context, r camroll.Record) error
	Prune(ctx context.Context, keep map[string]bool) (int, error)
}

// Scanner walks a library directory and indexes every photo and video in it.
// Scans are serialized.
type Scanner struct {
	mu     sync.Mutex
	root   string
	sink   Sink
	reader Reader
}

var _ camroll.Refresher = (*Scanner)(nil)

// NewScanner returns a scanner over root.
func NewScanner(root string, sink Sink, reader Reader) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	if reader == nil {
		reader = BasicReader{}
	}
	return &Scanner{root: abs, sink: sink, reader: reader}, nil
}

// Root returns the absolute library root.
func (s *Scanner) Root() string {
	return s.root
}

// Refresh implements camroll.Refresher.
func (s *Scanner) Refresh(ctx context.Context) error {
	_, err := s.Scan(ctx)
	return err
}

// Scan indexes the library and drops rows for files that are gone. It returns
// the number of media files found.
func (s *Scanner) Scan(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	klog.Infof("scanning %s ...", s.root)
	seen := map[string]bool{}

	err := godirwalk.Walk(s.root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if path != s.root && filepath.Base(path)[0] == '.' {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if !de.IsRegular() {
				return nil
			}

			r, ok, err := s.read(path)
			if err != nil {
				klog.Warningf("skipping %s: %v", path, err)
				return nil
			}
			if !ok {
				return nil
			}
			if err := s.sink.Upsert(ctx, r); err != nil {
				return err
			}
			seen[path] = true
			return nil
		},
	})
	if err != nil {
		return len(seen), fmt.Errorf("walk: %w", err)
	}

	n, err := s.sink.Prune(ctx, seen)
	if err != nil {
		return len(seen), fmt.Errorf("prune: %w", err)
	}
	klog.Infof("indexed %d files in %s (%d removed)", len(seen), s.root, n)
	return len(seen), nil
}

// read builds a record for path; ok is false for files that are not photos or videos.
func (s *Scanner) read(path string) (camroll.Record, bool, error) {
	r := camroll.Record{}

	fi, err := os.Stat(path)
	if err != nil {
		return r, false, fmt.Errorf("stat: %w", err)
	}
	if fi.Size() == 0 {
		return r, false, nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return r, false, fmt.Errorf("detect: %w", err)
	}
	switch {
	case strings.HasPrefix(mt.String(), "image/"):
		r.PhotoType = camroll.PhotoTypeImage
	case strings.HasPrefix(mt.String(), "video/"):
		r.PhotoType = camroll.PhotoTypeVideo
	default:
		return r, false, nil
	}
	klog.V(1).Infof("found %s (%s)", path, mt)

	m, err := s.reader.Read(path)
	if err != nil {
		klog.Warningf("no metadata for %s: %v", path, err)
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return r, false, err
	}
	album := filepath.ToSlash(filepath.Dir(rel))
	if album == "." {
		album = ""
	}

	size := fi.Size()
	r.ID = uuid.NewString()
	r.URI = camroll.FileURI(path)
	r.Path = path
	r.DisplayName = filepath.Base(path)
	r.MimeType = mt.String()
	r.Album = album
	r.Size = &size
	r.Width = m.Width
	r.Height = m.Height
	r.Duration = m.Duration
	r.Orientation = m.Orientation
	r.Latitude = m.Latitude
	r.Longitude = m.Longitude
	r.Altitude = m.Altitude
	r.DateAdded = fi.ModTime().Unix()
	r.DateModified = fi.ModTime().Unix()
	if m.Taken != nil {
		t := m.Taken.Unix()
		r.DateTaken = &t
	}
	return r, true, nil
}
