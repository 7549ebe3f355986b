package camroll

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"
)

// fakeStore holds records in memory and honors filters, ordering and windows.
type fakeStore struct {
	mu      sync.Mutex
	records []Record
	queries []Query
	err     error
	deleted []string
}

func (f *fakeStore) Find(_ context.Context, q Query) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}

	var rs []Record
	for _, r := range f.records {
		if q.Key != "" && r.ID != q.Key && r.URI != q.Key {
			continue
		}
		if len(q.MimeTypes) > 0 && !slices.Contains(q.MimeTypes, r.MimeType) {
			continue
		}
		if len(q.PhotoTypes) > 0 && !slices.Contains(q.PhotoTypes, r.PhotoType) {
			continue
		}
		if q.Album != "" && r.Album != q.Album {
			continue
		}
		rs = append(rs, r)
	}

	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].DateAdded != rs[j].DateAdded {
			return rs[i].DateAdded > rs[j].DateAdded
		}
		return rs[i].DateModified > rs[j].DateModified
	})

	if q.Offset >= len(rs) {
		return []Record{}, nil
	}
	rs = rs[q.Offset:]
	if q.Limit > 0 && len(rs) > q.Limit {
		rs = rs[:q.Limit]
	}
	return rs, nil
}

func (f *fakeStore) Albums(_ context.Context, photoTypes []int) ([]Album, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := map[string]int{}
	for _, r := range f.records {
		if len(photoTypes) > 0 && !slices.Contains(photoTypes, r.PhotoType) {
			continue
		}
		counts[r.Album]++
	}
	var as []Album
	for k, v := range counts {
		as = append(as, Album{Title: k, Count: v, Subtype: AlbumRegular})
	}
	sort.Slice(as, func(i, j int) bool { return as[i].Title < as[j].Title })
	return as, nil
}

func (f *fakeStore) Delete(_ context.Context, uris []string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, uris...)
	return nil
}

// fakeCreator creates assets as files in dir.
type fakeCreator struct {
	dir       string
	cancel    bool
	createErr error
	commitErr error

	requests  []CreationRequest
	committed []AssetMeta
	discarded []string
}

func (f *fakeCreator) CreateAsset(_ context.Context, req CreationRequest) (*Destination, error) {
	f.requests = append(f.requests, req)
	if f.cancel {
		return nil, ErrUserCancelled
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	p := filepath.Join(f.dir, req.Title+"."+req.Extension)
	if err := os.WriteFile(p, nil, 0o644); err != nil {
		return nil, err
	}
	return &Destination{ID: "new-1", URI: FileURI(p), Path: p}, nil
}

func (f *fakeCreator) CommitAsset(_ context.Context, d *Destination, m AssetMeta) (*Record, error) {
	if f.commitErr != nil {
		return nil, f.commitErr
	}
	f.committed = append(f.committed, m)
	size := m.Size
	return &Record{
		ID:          d.ID,
		URI:         d.URI,
		Path:        d.Path,
		DisplayName: filepath.Base(d.Path),
		MimeType:    m.MimeType,
		PhotoType:   PhotoTypeImage,
		Size:        &size,
		Width:       m.Width,
		Height:      m.Height,
		DateAdded:   time.Now().Unix(),
	}, nil
}

func (f *fakeCreator) DiscardAsset(_ context.Context, d *Destination) error {
	f.discarded = append(f.discarded, d.ID)
	return os.Remove(d.Path)
}

// failingCopier always fails.
type failingCopier struct{}

func (failingCopier) Copy(string, string) (int64, error) {
	return 0, errors.New("disk full")
}

// images returns n JPEG records added one second apart, newest last.
func images(n int) []Record {
	rs := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		rs = append(rs, Record{
			ID:           string(rune('a' + i)),
			URI:          "file:///lib/" + string(rune('a'+i)) + ".jpg",
			DisplayName:  string(rune('a'+i)) + ".jpg",
			MimeType:     "image/jpeg",
			PhotoType:    PhotoTypeImage,
			DateAdded:    int64(1000 + i),
			DateModified: int64(1000 + i),
		})
	}
	return rs
}

func newTestLibrary(t *testing.T, s MediaStore, c AssetCreator, opts ...Option) *Library {
	t.Helper()
	cfg := &Config{
		LibraryDir: t.TempDir(),
		SandboxDir: filepath.Join(t.TempDir(), "sandbox"),
	}
	return New(cfg, s, c, opts...)
}
