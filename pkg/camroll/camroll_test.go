package camroll

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "camroll.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
library_dir = "/photos"
default_album = "Inbox"
download_timeout = "90s"
stream_threshold = 1024
rescan = "@every 1h"
`), 0o644))

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, "/photos", c.LibraryDir)
	assert.Equal(t, "Inbox", c.DefaultAlbum)
	assert.Equal(t, 90*time.Second, c.DownloadTimeout.Duration)
	assert.Equal(t, int64(1024), c.StreamThreshold)
	assert.Equal(t, "@every 1h", c.Rescan)

	// Defaults are applied by the caller, after flag overrides.
	assert.Empty(t, c.DataDir)
	c.SetDefaults()
	assert.Equal(t, filepath.Join("/photos", ".camroll"), c.DataDir)
	assert.Equal(t, filepath.Join("/photos", ".camroll", "grants.toml"), c.GrantsFile)
	assert.Equal(t, "Inbox", c.DefaultAlbum)
	assert.Equal(t, 90*time.Second, c.DownloadTimeout.Duration)
}

func TestLoadConfigMissing(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	c.SetDefaults()
	assert.Equal(t, "Camera", c.DefaultAlbum)
	assert.Equal(t, "localhost:12800", c.Addr)
	assert.Equal(t, 5*time.Minute, c.DownloadTimeout.Duration)
	assert.Equal(t, int64(64<<20), c.StreamThreshold)
	assert.Empty(t, c.DataDir)
}

func TestLoadConfigInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(p, []byte(`download_timeout = "soon"`), 0o644))

	_, err := LoadConfig(p)
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	err := opError("save", "http://x/y.jpg", ErrDownloadFailed, os.ErrDeadlineExceeded)
	assert.Equal(t, "save: download failed (http://x/y.jpg): i/o timeout", err.Error())
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)

	assert.Equal(t, "getAssetById: not found", opError("getAssetById", "", ErrNotFound, nil).Error())
}
