package camroll

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"k8s.io/klog/v2"
)

// staged is the working copy of a save source. A downloaded copy is owned by
// one Save call and removed exactly once.
type staged struct {
	path   string
	temp   bool
	once   sync.Once
	remove func(string) error
}

func (s *staged) release() {
	if !s.temp {
		return
	}
	s.once.Do(func() {
		if err := s.remove(s.path); err != nil && !os.IsNotExist(err) {
			klog.Warningf("unable to remove %s: %v", s.path, err)
			return
		}
		klog.V(1).Infof("removed staged download %s", s.path)
	})
}

// Save copies a local file or remote resource into the library as a new asset.
// Every call creates a new asset; retries create duplicates.
func (l *Library) Save(ctx context.Context, uri string, o SaveOptions) (*PhotoIdentifier, error) {
	const op = "save"
	if strings.TrimSpace(uri) == "" {
		return nil, opError(op, uri, ErrInvalidSource, errors.New("empty uri"))
	}

	src, err := l.stage(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer src.release()

	req, err := creationRequest(src.path, o, l.c.DefaultAlbum)
	if err != nil {
		return nil, opError(op, uri, ErrInvalidSource, err)
	}

	klog.Infof("creating %s asset %q in album %q", kindName(req.PhotoType), req.Title, req.Album)
	dest, err := l.creator.CreateAsset(ctx, req)
	if err != nil {
		if errors.Is(err, ErrUserCancelled) {
			return nil, opError(op, uri, ErrUserCancelled, nil)
		}
		klog.Errorf("create asset for %s failed: %v", uri, err)
		return nil, opError(op, uri, ErrAssetCreationFailed, err)
	}

	n, err := l.copyInto(src.path, dest.Path)
	if err != nil {
		klog.Errorf("copy %s -> %s failed: %v", src.path, dest.Path, err)
		l.discard(ctx, dest)
		return nil, opError(op, uri, ErrAssetCreationFailed, err)
	}

	rec, err := l.creator.CommitAsset(ctx, dest, describe(dest.Path, n, req.PhotoType))
	if err != nil {
		klog.Errorf("commit %s failed: %v", dest.URI, err)
		l.discard(ctx, dest)
		return nil, opError(op, uri, ErrAssetCreationFailed, fmt.Errorf("commit: %w", err))
	}

	klog.Infof("saved %s as %s (%s)", uri, rec.URI, humanize.Bytes(uint64(n)))
	id := identify(*rec, nil)
	return &id, nil
}

// discard drops an asset that was created but never committed.
func (l *Library) discard(ctx context.Context, dest *Destination) {
	if err := l.creator.DiscardAsset(ctx, dest); err != nil {
		klog.Warningf("discard %s: %v", dest.URI, err)
	}
}

// stage resolves uri to a readable local file, downloading remote sources into the sandbox.
func (l *Library) stage(ctx context.Context, uri string) (*staged, error) {
	const op = "save"

	u, err := url.Parse(uri)
	if err == nil {
		if f, ok := l.fetchers[strings.ToLower(u.Scheme)]; ok {
			return l.download(ctx, f, u)
		}
	}

	path := uri
	if err == nil && u.Scheme == "file" {
		path = u.Path
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, opError(op, uri, ErrInvalidSource, err)
	}
	if st.IsDir() {
		return nil, opError(op, uri, ErrInvalidSource, errors.New("is a directory"))
	}
	return &staged{path: path}, nil
}

func (l *Library) download(ctx context.Context, f Fetcher, u *url.URL) (*staged, error) {
	const op = "save"
	uri := u.String()

	ctx, cancel := context.WithTimeout(ctx, l.c.DownloadTimeout.Duration)
	defer cancel()

	if err := os.MkdirAll(l.c.SandboxDir, 0o700); err != nil {
		return nil, opError(op, uri, ErrDownloadFailed, fmt.Errorf("mkdir: %w", err))
	}

	ext := filepath.Ext(u.Path)
	tf, err := os.CreateTemp(l.c.SandboxDir, "download-*"+ext)
	if err != nil {
		return nil, opError(op, uri, ErrDownloadFailed, fmt.Errorf("create temp: %w", err))
	}
	s := &staged{path: tf.Name(), temp: true, remove: l.removeFile}

	klog.Infof("downloading %s to %s", uri, s.path)
	n, err := f.Fetch(ctx, u, tf)
	if cerr := tf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		s.release()
		klog.Errorf("download %s failed: %v", uri, err)
		return nil, opError(op, uri, ErrDownloadFailed, err)
	}
	klog.V(1).Infof("downloaded %s (%s)", uri, humanize.Bytes(uint64(n)))

	if ext == "" {
		if err := s.addExtension(); err != nil {
			s.release()
			return nil, opError(op, uri, ErrDownloadFailed, err)
		}
	}
	return s, nil
}

// addExtension renames an extensionless download after its detected MIME type.
func (s *staged) addExtension() error {
	mt, err := mimetype.DetectFile(s.path)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	if mt.Extension() == "" {
		return nil
	}
	np := s.path + mt.Extension()
	if err := os.Rename(s.path, np); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	s.path = np
	return nil
}

func creationRequest(path string, o SaveOptions, defaultAlbum string) (CreationRequest, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	req := CreationRequest{
		Title:      strings.TrimSuffix(base, ext),
		Extension:  strings.TrimPrefix(ext, "."),
		Album:      o.Album,
		SourcePath: path,
	}
	if req.Album == "" {
		req.Album = defaultAlbum
	}

	switch o.Kind {
	case KindPhoto:
		req.PhotoType = PhotoTypeImage
	case KindVideo:
		req.PhotoType = PhotoTypeVideo
	case "":
		mt, err := mimetype.DetectFile(path)
		if err != nil {
			return req, fmt.Errorf("detect: %w", err)
		}
		req.PhotoType = PhotoTypeImage
		if strings.HasPrefix(mt.String(), "video/") {
			req.PhotoType = PhotoTypeVideo
		}
	default:
		return req, fmt.Errorf("unknown media kind %q", o.Kind)
	}
	return req, nil
}

func (l *Library) copyInto(src string, dst string) (int64, error) {
	st, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	if st.Size() > l.c.StreamThreshold {
		klog.V(1).Infof("streaming %s (%s)", src, humanize.Bytes(uint64(st.Size())))
		return l.stream.Copy(src, dst)
	}
	return l.whole.Copy(src, dst)
}

// describe re-reads a written asset for the metadata the store keeps.
func describe(path string, size int64, photoType int) AssetMeta {
	m := AssetMeta{Size: size}
	if mt, err := mimetype.DetectFile(path); err == nil {
		m.MimeType = mt.String()
	}
	if photoType != PhotoTypeImage {
		return m
	}

	f, err := os.Open(path)
	if err != nil {
		return m
	}
	defer f.Close()

	ic, _, err := image.DecodeConfig(f)
	if err != nil {
		klog.V(1).Infof("no dimensions for %s: %v", path, err)
		return m
	}
	w, h := int64(ic.Width), int64(ic.Height)
	m.Width, m.Height = &w, &h
	return m
}

func kindName(photoType int) string {
	if photoType == PhotoTypeImage {
		return string(KindPhoto)
	}
	return string(KindVideo)
}
