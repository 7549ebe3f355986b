// Package camroll exposes a photo library through a paged query, save and thumbnail API.
package camroll

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds configuration for camroll.
type Config struct {
	// LibraryDir is the root of the photo library. Albums are its subdirectories.
	LibraryDir string `toml:"library_dir"`
	// DataDir holds the SQLite index. Defaults to LibraryDir/.camroll.
	DataDir string `toml:"data_dir"`
	// SandboxDir stages downloaded files. Defaults to os.TempDir()/camroll.
	SandboxDir string `toml:"sandbox_dir"`
	// GrantsFile records permission decisions. Defaults to DataDir/grants.toml.
	GrantsFile string `toml:"grants_file"`
	// DefaultAlbum receives saved assets that name no album.
	DefaultAlbum string `toml:"default_album"`
	// Rescan is a cron spec for periodic library rescans, e.g. "@every 1h".
	Rescan string `toml:"rescan"`
	// Addr is the host:port the bridge listens on.
	Addr string `toml:"addr"`

	// DownloadTimeout bounds a single remote fetch.
	DownloadTimeout Duration `toml:"download_timeout"`
	// StreamThreshold is the source size above which saves stream instead of buffering.
	StreamThreshold int64 `toml:"stream_threshold"`
	// GCSCredentials is a service account key for gs:// sources. Empty uses
	// application default credentials.
	GCSCredentials string `toml:"gcs_credentials"`
	// AutoApprove confirms asset creation without asking.
	AutoApprove bool `toml:"auto_approve"`
}

const (
	defaultAlbum           = "Camera"
	defaultAddr            = "localhost:12800"
	defaultDownloadTimeout = 5 * time.Minute
	defaultStreamThreshold = 64 << 20
)

// LoadConfig reads a TOML config file; a missing file yields an empty Config.
// Call SetDefaults once flags have been applied.
func LoadConfig(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		bs, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(bs, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return c, nil
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.DataDir == "" && c.LibraryDir != "" {
		c.DataDir = filepath.Join(c.LibraryDir, ".camroll")
	}
	if c.SandboxDir == "" {
		c.SandboxDir = filepath.Join(os.TempDir(), "camroll")
	}
	if c.GrantsFile == "" && c.DataDir != "" {
		c.GrantsFile = filepath.Join(c.DataDir, "grants.toml")
	}
	if c.DefaultAlbum == "" {
		c.DefaultAlbum = defaultAlbum
	}
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.DownloadTimeout.Duration <= 0 {
		c.DownloadTimeout.Duration = defaultDownloadTimeout
	}
	if c.StreamThreshold <= 0 {
		c.StreamThreshold = defaultStreamThreshold
	}
}

// Duration is a time.Duration written as a string ("90s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
