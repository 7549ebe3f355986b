package camroll

// MediaKind is the kind of asset a save creates.
type MediaKind string

const (
	KindPhoto MediaKind = "photo"
	KindVideo MediaKind = "video"
)

// AssetType filters queries and album listings by kind.
type AssetType string

const (
	AssetAll    AssetType = "All"
	AssetPhotos AssetType = "Photos"
	AssetVideos AssetType = "Videos"
)

// Photo type codes as stored by the media store.
const (
	PhotoTypeImage = 1
	PhotoTypeVideo = 2
)

// Node types reported to callers.
const (
	TypeImage = "IMAGE"
	TypeVideo = "VIDEO"
)

// SourceUserLibrary is the source classification for every asset in a local library.
const SourceUserLibrary = "UserLibrary"

// Include names an optional PhotoIdentifier field.
type Include string

const (
	IncludeFilename         Include = "filename"
	IncludeFileSize         Include = "fileSize"
	IncludeFileExtension    Include = "fileExtension"
	IncludeLocation         Include = "location"
	IncludeImageSize        Include = "imageSize"
	IncludePlayableDuration Include = "playableDuration"
	IncludeOrientation      Include = "orientation"
)

// PageRequest describes one page of a photo query.
type PageRequest struct {
	// First is the page size. Required, must be positive.
	First int `json:"first"`
	// After is the end cursor of the previous page. Blank starts at the newest asset.
	After string `json:"after,omitempty"`
	// GroupTypes is accepted for compatibility; "All" disables the GroupName filter.
	GroupTypes string `json:"groupTypes,omitempty"`
	// GroupName restricts results to one album.
	GroupName string `json:"groupName,omitempty"`
	// IncludeSharedAlbums is accepted for compatibility. Local libraries have no shared albums.
	IncludeSharedAlbums bool `json:"includeSharedAlbums,omitempty"`
	// AssetType defaults to AssetAll.
	AssetType AssetType `json:"assetType,omitempty"`
	// FromTime and ToTime bound the capture time in ms since the epoch; 0 is unbounded.
	FromTime int64 `json:"fromTime,omitempty"`
	ToTime   int64 `json:"toTime,omitempty"`
	// MimeTypes restricts results to these MIME types. Empty matches all.
	MimeTypes []string `json:"mimeTypes,omitempty"`
	// Include selects optional fields. Empty populates every available field.
	Include []Include `json:"include,omitempty"`
}

// ImageInfo describes the file behind an asset. Nil fields are unknown or not requested.
type ImageInfo struct {
	Filename         *string  `json:"filename"`
	Filepath         *string  `json:"filepath"`
	Extension        *string  `json:"extension"`
	URI              string   `json:"uri"`
	Height           *int64   `json:"height"`
	Width            *int64   `json:"width"`
	FileSize         *int64   `json:"fileSize"`
	PlayableDuration *float64 `json:"playableDuration"`
	Orientation      *int64   `json:"orientation"`
}

// Location is where an asset was captured.
type Location struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// Node is the body of a PhotoIdentifier.
type Node struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	SubTypes   []string `json:"subTypes,omitempty"`
	SourceType string   `json:"sourceType,omitempty"`
	GroupName  string   `json:"group_name,omitempty"`

	Image ImageInfo `json:"image"`

	// Timestamp is the capture time, ModificationTimestamp the last write; both in seconds.
	Timestamp             int64 `json:"timestamp"`
	ModificationTimestamp int64 `json:"modificationTimestamp"`

	Location *Location `json:"location"`
}

// PhotoIdentifier is an immutable snapshot of one asset.
type PhotoIdentifier struct {
	Node Node `json:"node"`
}

// PageInfo tells the caller whether and where to continue.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	StartCursor string `json:"start_cursor,omitempty"`
	EndCursor   string `json:"end_cursor,omitempty"`
}

// Page is one page of query results.
type Page struct {
	Edges    []PhotoIdentifier `json:"edges"`
	PageInfo PageInfo          `json:"page_info"`
}

// AlbumSubtype classifies an album.
type AlbumSubtype string

const (
	AlbumRegular  AlbumSubtype = "AlbumRegular"
	AlbumImported AlbumSubtype = "AlbumImported"
	AlbumUnknown  AlbumSubtype = "Unknown"
)

// Album represents a collection of assets.
type Album struct {
	Title   string       `json:"title"`
	Count   int          `json:"count"`
	Subtype AlbumSubtype `json:"subtype,omitempty"`
}

// SaveOptions control how a source becomes an asset.
type SaveOptions struct {
	// Kind defaults to the kind implied by the source's MIME type.
	Kind MediaKind `json:"type,omitempty"`
	// Album defaults to Config.DefaultAlbum.
	Album string `json:"album,omitempty"`
}

// ConversionOptions are accepted by GetAsset. Assets are served as stored, so
// neither field changes the result.
type ConversionOptions struct {
	ConvertHeicImages bool    `json:"convertHeicImages,omitempty"`
	Quality           float64 `json:"quality,omitempty"`
}

// Size is a pixel size.
type Size struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// ThumbnailOptions describe a thumbnail.
type ThumbnailOptions struct {
	// TargetSize is a bounding box. A zero dimension follows the aspect ratio;
	// both zero keeps the original size.
	TargetSize Size `json:"targetSize"`
	// Quality is the JPEG quality in 0..1. Zero means 1.
	Quality float64 `json:"quality"`
	// AllowNetworkAccess is accepted for compatibility; local assets never need it.
	AllowNetworkAccess bool `json:"allowNetworkAccess,omitempty"`
}

// Thumbnail is a base64-encoded JPEG.
type Thumbnail struct {
	Base64 string `json:"thumbnailBase64"`
}
