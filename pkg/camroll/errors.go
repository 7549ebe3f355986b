package camroll

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSource is returned for an empty or unusable save source.
	ErrInvalidSource = errors.New("invalid source")
	// ErrDownloadFailed is returned when a remote source cannot be fetched.
	ErrDownloadFailed = errors.New("download failed")
	// ErrUserCancelled is returned when asset creation is declined.
	ErrUserCancelled = errors.New("user cancelled")
	// ErrAssetCreationFailed is returned when the library cannot create or fill an asset.
	ErrAssetCreationFailed = errors.New("asset creation failed")
	// ErrQueryFailed is returned when the media store query fails.
	ErrQueryFailed = errors.New("query failed")
	// ErrNotFound is returned when no asset matches an id or uri.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned for malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCursor is returned when a cursor is not a non-negative integer.
	ErrInvalidCursor = errors.New("invalid cursor")
)

// Error records a failed library operation along with the uri it concerned.
type Error struct {
	Op   string
	URI  string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.URI != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.URI)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func opError(op string, uri string, kind error, err error) *Error {
	return &Error{Op: op, URI: uri, Kind: kind, Err: err}
}
