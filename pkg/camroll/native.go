package camroll

import (
	"context"
	"io"
	"net/url"
	"path/filepath"
	"time"
)

// FileURI returns the uri of a library file.
func FileURI(path string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Record is one row of the media store. Nil numeric fields are unknown.
type Record struct {
	ID          string
	URI         string
	Path        string
	DisplayName string
	MimeType    string
	PhotoType   int
	Subtype     string
	Album       string

	Size        *int64
	Width       *int64
	Height      *int64
	Duration    *float64
	Orientation *int64

	// Unix seconds.
	DateAdded    int64
	DateModified int64
	DateTaken    *int64

	Latitude  *float64
	Longitude *float64
	Altitude  *float64
}

// Sortable store columns.
const (
	ColDateAdded    = "date_added"
	ColDateModified = "date_modified"
	ColDateTaken    = "date_taken"
	ColDisplayName  = "display_name"
)

// Order is one sort key.
type Order struct {
	Column string
	Desc   bool
}

// Query is a media store predicate with ordering and a row window.
type Query struct {
	// Key matches either an asset id or uri.
	Key        string
	MimeTypes  []string
	PhotoTypes []int
	Album      string
	// From is inclusive, To exclusive. Zero is unbounded.
	From time.Time
	To   time.Time

	Order  []Order
	Limit  int
	Offset int
}

// MediaStore answers queries against the photo library.
type MediaStore interface {
	Find(ctx context.Context, q Query) ([]Record, error)
	Albums(ctx context.Context, photoTypes []int) ([]Album, error)
	Delete(ctx context.Context, uris []string) error
}

// CreationRequest asks the library for a new, empty asset.
type CreationRequest struct {
	Title     string
	Extension string
	PhotoType int
	Album     string
	// SourcePath is the staged file that will be copied in.
	SourcePath string
}

// Destination is a newly created asset awaiting its bytes.
type Destination struct {
	ID   string
	URI  string
	Path string
}

// AssetMeta is what is known about an asset once its bytes are written.
type AssetMeta struct {
	Size     int64
	MimeType string
	Width    *int64
	Height   *int64
}

// AssetCreator creates library assets. CreateAsset returns ErrUserCancelled
// when creation is declined.
type AssetCreator interface {
	CreateAsset(ctx context.Context, req CreationRequest) (*Destination, error)
	CommitAsset(ctx context.Context, d *Destination, m AssetMeta) (*Record, error)
	DiscardAsset(ctx context.Context, d *Destination) error
}

// Fetcher downloads a remote source into w.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL, w io.Writer) (int64, error)
}

// Refresher rescans the library.
type Refresher interface {
	Refresh(ctx context.Context) error
}
