package camroll

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"k8s.io/klog/v2"
)

// newestFirst orders by add time, then modification time, both descending.
var newestFirst = []Order{
	{Column: ColDateAdded, Desc: true},
	{Column: ColDateModified, Desc: true},
}

// FetchPage returns one page of assets, newest first.
func (l *Library) FetchPage(ctx context.Context, req PageRequest) (*Page, error) {
	const op = "fetchPage"
	if req.First <= 0 {
		return nil, opError(op, "", ErrInvalidRequest, fmt.Errorf("first must be positive, got %d", req.First))
	}

	offset, err := ParseCursor(req.After)
	if err != nil {
		return nil, opError(op, "", ErrInvalidRequest, err)
	}

	q := Query{
		MimeTypes:  req.MimeTypes,
		PhotoTypes: photoTypes(req.AssetType),
		Order:      newestFirst,
		// One extra row tells us whether another page follows.
		Limit:  req.First + 1,
		Offset: offset,
	}
	if req.GroupName != "" && req.GroupTypes != "All" {
		q.Album = req.GroupName
	}
	if req.FromTime > 0 {
		q.From = time.UnixMilli(req.FromTime)
	}
	if req.ToTime > 0 {
		q.To = time.UnixMilli(req.ToTime)
	}

	klog.V(1).Infof("fetch page: first=%d offset=%d mime=%v type=%q", req.First, offset, req.MimeTypes, req.AssetType)
	rs, err := l.store.Find(ctx, q)
	if err != nil {
		klog.Errorf("fetch page failed: %v", err)
		return nil, opError(op, "", ErrQueryFailed, err)
	}

	return paginate(rs, req.First, offset, includes(req.Include)), nil
}

// paginate turns an oversampled result set into a page of at most first rows.
func paginate(rs []Record, first int, offset int, inc includeSet) *Page {
	p := &Page{
		Edges:    []PhotoIdentifier{},
		PageInfo: PageInfo{StartCursor: FormatCursor(offset)},
	}

	if len(rs) > first {
		p.PageInfo.HasNextPage = true
		p.PageInfo.EndCursor = FormatCursor(offset + first)
		rs = rs[:first]
	}

	for _, r := range rs {
		p.Edges = append(p.Edges, identify(r, inc))
	}
	return p
}

// GetAsset returns the asset with the given id or uri.
func (l *Library) GetAsset(ctx context.Context, key string, _ ConversionOptions) (*PhotoIdentifier, error) {
	r, err := l.record(ctx, "getAssetById", key)
	if err != nil {
		return nil, err
	}
	id := identify(*r, nil)
	return &id, nil
}

func (l *Library) record(ctx context.Context, op string, key string) (*Record, error) {
	if strings.TrimSpace(key) == "" {
		return nil, opError(op, key, ErrInvalidRequest, errors.New("empty id"))
	}

	rs, err := l.store.Find(ctx, Query{Key: key, Limit: 1})
	if err != nil {
		return nil, opError(op, key, ErrQueryFailed, err)
	}
	if len(rs) == 0 {
		return nil, opError(op, key, ErrNotFound, nil)
	}
	return &rs[0], nil
}

// ListAlbums returns the library's albums with counts of matching assets.
func (l *Library) ListAlbums(ctx context.Context, t AssetType) ([]Album, error) {
	as, err := l.store.Albums(ctx, photoTypes(t))
	if err != nil {
		klog.Errorf("list albums failed: %v", err)
		return nil, opError("listAlbums", "", ErrQueryFailed, err)
	}
	if as == nil {
		as = []Album{}
	}
	return as, nil
}

// DeleteAssets removes assets by uri (or id) from the library.
func (l *Library) DeleteAssets(ctx context.Context, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	klog.Infof("deleting %d assets", len(uris))
	if err := l.store.Delete(ctx, uris); err != nil {
		return opError("deleteAssets", strings.Join(uris, ","), ErrQueryFailed, err)
	}
	return nil
}

func photoTypes(t AssetType) []int {
	switch t {
	case AssetPhotos:
		return []int{PhotoTypeImage}
	case AssetVideos:
		return []int{PhotoTypeVideo}
	default:
		return nil
	}
}

// includeSet is nil when every field is wanted.
type includeSet map[Include]bool

func includes(is []Include) includeSet {
	if len(is) == 0 {
		return nil
	}
	s := includeSet{}
	for _, i := range is {
		s[i] = true
	}
	return s
}

func (s includeSet) has(i Include) bool {
	return s == nil || s[i]
}

// identify maps a store row to a PhotoIdentifier.
func identify(r Record, inc includeSet) PhotoIdentifier {
	n := Node{
		ID:         r.ID,
		Type:       TypeVideo,
		SourceType: SourceUserLibrary,
		GroupName:  r.Album,
		Image:      ImageInfo{URI: r.URI},

		Timestamp:             r.DateAdded,
		ModificationTimestamp: r.DateModified,
	}
	if r.PhotoType == PhotoTypeImage {
		n.Type = TypeImage
	}
	if r.Subtype != "" {
		n.SubTypes = []string{r.Subtype}
	}
	if r.DateTaken != nil {
		n.Timestamp = *r.DateTaken
	}

	if inc.has(IncludeFilename) {
		n.Image.Filename = strPtr(r.DisplayName)
		n.Image.Filepath = strPtr(r.Path)
	}
	if inc.has(IncludeFileExtension) {
		n.Image.Extension = strPtr(strings.TrimPrefix(filepath.Ext(r.DisplayName), "."))
	}
	if inc.has(IncludeFileSize) {
		n.Image.FileSize = r.Size
	}
	if inc.has(IncludeImageSize) {
		n.Image.Width = r.Width
		n.Image.Height = r.Height
	}
	if inc.has(IncludePlayableDuration) {
		n.Image.PlayableDuration = r.Duration
	}
	if inc.has(IncludeOrientation) {
		n.Image.Orientation = r.Orientation
	}
	if inc.has(IncludeLocation) && r.Latitude != nil && r.Longitude != nil {
		n.Location = &Location{Latitude: *r.Latitude, Longitude: *r.Longitude, Altitude: r.Altitude}
	}

	return PhotoIdentifier{Node: n}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
