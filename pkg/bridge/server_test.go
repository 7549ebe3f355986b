package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/grants"
	"github.com/tstromberg/camroll/pkg/index"
	"github.com/tstromberg/camroll/pkg/store"
)

type fixture struct {
	srv *httptest.Server
	lib string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib := t.TempDir()
	for _, p := range []string{"Trips/a.png", "Trips/b.png", "Home/c.png"} {
		writePNG(t, filepath.Join(lib, p))
	}

	c := &camroll.Config{LibraryDir: lib}
	c.SetDefaults()

	st, err := store.New(c.DataDir, lib, store.WithImportAlbum(c.DefaultAlbum))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sc, err := index.NewScanner(lib, st, index.BasicReader{})
	require.NoError(t, err)
	_, err = sc.Scan(context.Background())
	require.NoError(t, err)

	g, err := grants.Open(c.GrantsFile, grants.Policy(grants.Limited))
	require.NoError(t, err)

	l := camroll.New(c, st, st, camroll.WithRefresher(sc), camroll.WithAccessManager(g))
	srv := httptest.NewServer(New(l).Router())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, lib: lib}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 6, 4))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var rd *bytes.Reader
	if s, ok := body.(string); ok {
		rd = bytes.NewReader([]byte(s))
	} else {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, nil))
}

func TestPhotosPaging(t *testing.T) {
	f := newFixture(t)

	var p camroll.Page
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/photos", camroll.PageRequest{First: 2}, &p))
	assert.Len(t, p.Edges, 2)
	assert.True(t, p.PageInfo.HasNextPage)
	assert.Equal(t, "2", p.PageInfo.EndCursor)

	var p2 camroll.Page
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/photos", camroll.PageRequest{First: 2, After: p.PageInfo.EndCursor}, &p2))
	assert.Len(t, p2.Edges, 1)
	assert.False(t, p2.PageInfo.HasNextPage)

	seen := map[string]bool{}
	for _, e := range append(p.Edges, p2.Edges...) {
		assert.False(t, seen[e.Node.ID], "duplicate %s", e.Node.ID)
		seen[e.Node.ID] = true
	}
	assert.Len(t, seen, 3)

	var trips camroll.Page
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/photos", camroll.PageRequest{First: 10, GroupName: "Trips"}, &trips))
	assert.Len(t, trips.Edges, 2)

	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/photos", camroll.PageRequest{First: 0}, &e))
	assert.NotEmpty(t, e["error"])
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/photos", "{not json", nil))
}

func TestAlbums(t *testing.T) {
	f := newFixture(t)

	var as []camroll.Album
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/albums", nil, &as))
	assert.Equal(t, []camroll.Album{
		{Title: "Home", Count: 1, Subtype: camroll.AlbumRegular},
		{Title: "Trips", Count: 2, Subtype: camroll.AlbumRegular},
	}, as)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/albums?assetType=Videos", nil, &as))
	assert.Empty(t, as)
}

func TestSaveAssetThumbnailDelete(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(t.TempDir(), "import.png")
	writePNG(t, src)

	var saved camroll.PhotoIdentifier
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/save", map[string]any{"uri": src}, &saved))
	assert.Equal(t, "Camera", saved.Node.GroupName)
	assert.Equal(t, camroll.TypeImage, saved.Node.Type)
	assert.FileExists(t, filepath.Join(f.lib, "Camera", "import.png"))

	var got camroll.PhotoIdentifier
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/assets/"+saved.Node.ID, nil, &got))
	assert.Equal(t, saved.Node.Image.URI, got.Node.Image.URI)
	assert.Equal(t, int64(6), *got.Node.Image.Width)

	var th camroll.Thumbnail
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/assets/"+saved.Node.ID+"/thumbnail",
		camroll.ThumbnailOptions{TargetSize: camroll.Size{Width: 3}, Quality: 0.5}, &th))
	assert.NotEmpty(t, th.Base64)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/delete", map[string]any{"uris": []string{saved.Node.Image.URI}}, nil))
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/assets/"+saved.Node.ID, nil, nil))
	assert.NoFileExists(t, filepath.Join(f.lib, "Camera", "import.png"))
}

func TestSaveErrors(t *testing.T) {
	f := newFixture(t)
	var e map[string]string
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/save", map[string]any{"uri": ""}, &e))
	assert.True(t, strings.Contains(e["error"], "invalid source"), e["error"])
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)

	var st map[string]camroll.Status
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/permissions/addOnly", nil, &st))
	assert.Equal(t, camroll.StatusDenied, st["status"])

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/permissions/addOnly", nil, &st))
	assert.Equal(t, camroll.StatusLimited, st["status"])

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/permissions/addOnly", nil, &st))
	assert.Equal(t, camroll.StatusLimited, st["status"])

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/permissions/root", nil, nil))
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.lib, "Home", "d.png"))

	var out map[string]bool
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/permissions/refresh", nil, &out))
	assert.True(t, out["refreshed"])

	var p camroll.Page
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/photos", camroll.PageRequest{First: 10}, &p))
	assert.Len(t, p.Edges, 4)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&camroll.Error{Op: "save", Kind: camroll.ErrInvalidSource}, http.StatusBadRequest},
		{&camroll.Error{Op: "fetchPage", Kind: camroll.ErrInvalidRequest}, http.StatusBadRequest},
		{&camroll.Error{Op: "getAssetById", Kind: camroll.ErrNotFound}, http.StatusNotFound},
		{&camroll.Error{Op: "save", Kind: camroll.ErrUserCancelled}, http.StatusConflict},
		{&camroll.Error{Op: "save", Kind: camroll.ErrDownloadFailed}, http.StatusBadGateway},
		{&camroll.Error{Op: "fetchPage", Kind: camroll.ErrQueryFailed}, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusCode(tt.err), tt.err.Error())
	}
}

func TestAssetByURI(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(t.TempDir(), "x.png")
	writePNG(t, src)

	var saved camroll.PhotoIdentifier
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/save", map[string]any{"uri": src}, &saved))
	uri := saved.Node.Image.URI
	require.True(t, strings.HasPrefix(uri, "file:///"), uri)

	var got camroll.PhotoIdentifier
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/assets/"+url.PathEscape(uri), nil, &got))
	assert.Equal(t, saved.Node.ID, got.Node.ID)

	var th camroll.Thumbnail
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/assets/"+url.PathEscape(uri)+"/thumbnail",
		camroll.ThumbnailOptions{TargetSize: camroll.Size{Width: 2}}, &th))
	assert.NotEmpty(t, th.Base64)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/assets/"+url.PathEscape("file:///nowhere.png"), nil, nil))
}
