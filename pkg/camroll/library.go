package camroll

import (
	"os"
	"strings"
)

// Library is the photo library API. Each method is a self-contained unit of work;
// a Library is safe for concurrent use when its collaborators are.
type Library struct {
	c         *Config
	store     MediaStore
	creator   AssetCreator
	fetchers  map[string]Fetcher
	access    AccessManager
	refresher Refresher
	whole     Copier
	stream    Copier

	removeFile func(string) error
}

// Option configures a Library.
type Option func(*Library)

// WithFetcher handles sources with the given URL scheme.
func WithFetcher(scheme string, f Fetcher) Option {
	return func(l *Library) {
		l.fetchers[strings.ToLower(scheme)] = f
	}
}

// WithAccessManager enables permission checks.
func WithAccessManager(a AccessManager) Option {
	return func(l *Library) {
		l.access = a
	}
}

// WithRefresher enables RefreshSelection.
func WithRefresher(r Refresher) Option {
	return func(l *Library) {
		l.refresher = r
	}
}

// WithCopiers replaces the whole-file and streamed copy strategies.
func WithCopiers(whole, stream Copier) Option {
	return func(l *Library) {
		l.whole = whole
		l.stream = stream
	}
}

// New returns a Library over a media store and asset creator.
func New(c *Config, store MediaStore, creator AssetCreator, opts ...Option) *Library {
	if c == nil {
		c = &Config{}
	}
	c.SetDefaults()

	l := &Library{
		c:          c,
		store:      store,
		creator:    creator,
		fetchers:   map[string]Fetcher{},
		whole:      WholeFileCopier{},
		stream:     StreamCopier{},
		removeFile: os.Remove,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}
