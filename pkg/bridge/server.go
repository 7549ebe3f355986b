// Package bridge serves the photo library API as JSON over HTTP.
package bridge

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// Server is the HTTP bridge to a Library.
type Server struct {
	lib *camroll.Library
}

// New creates a new server.
func New(lib *camroll.Library) *Server {
	return &Server{lib: lib}
}

// Router returns the bridge's routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.HealthzHandler())
	r.Post("/photos", s.PhotosHandler())
	r.Get("/albums", s.AlbumsHandler())
	r.Post("/save", s.SaveHandler())
	r.Post("/delete", s.DeleteHandler())
	r.Get("/assets/{id}", s.AssetHandler())
	r.Post("/assets/{id}/thumbnail", s.ThumbnailHandler())
	r.Post("/permissions/refresh", s.RefreshHandler())
	r.Get("/permissions/{level}", s.CheckPermissionHandler())
	r.Post("/permissions/{level}", s.RequestPermissionHandler())
	return r
}

// HealthzHandler responds to health checks.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// PhotosHandler returns a page of photos.
func (s *Server) PhotosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req camroll.PageRequest
		if !decode(w, r, &req) {
			return
		}
		p, err := s.lib.FetchPage(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// AlbumsHandler lists albums.
func (s *Server) AlbumsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		as, err := s.lib.ListAlbums(r.Context(), camroll.AssetType(r.URL.Query().Get("assetType")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, as)
	}
}

type saveRequest struct {
	URI     string              `json:"uri"`
	Options camroll.SaveOptions `json:"options"`
}

// SaveHandler saves a local or remote file into the library.
func (s *Server) SaveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req saveRequest
		if !decode(w, r, &req) {
			return
		}
		id, err := s.lib.Save(r.Context(), req.URI, req.Options)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, id)
	}
}

type deleteRequest struct {
	URIs []string `json:"uris"`
}

// DeleteHandler deletes assets.
func (s *Server) DeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteRequest
		if !decode(w, r, &req) {
			return
		}
		if err := s.lib.DeleteAssets(r.Context(), req.URIs); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AssetHandler returns one asset by id or uri.
func (s *Server) AssetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.lib.GetAsset(r.Context(), assetKey(r), camroll.ConversionOptions{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, id)
	}
}

// ThumbnailHandler renders a thumbnail.
func (s *Server) ThumbnailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var o camroll.ThumbnailOptions
		if !decode(w, r, &o) {
			return
		}
		t, err := s.lib.Thumbnail(r.Context(), assetKey(r), o)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// CheckPermissionHandler reports a permission status.
func (s *Server) CheckPermissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.lib.CheckPermission(r.Context(), camroll.AccessLevel(chi.URLParam(r, "level")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]camroll.Status{"status": st})
	}
}

// RequestPermissionHandler requests a permission.
func (s *Server) RequestPermissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.lib.RequestPermission(r.Context(), camroll.AccessLevel(chi.URLParam(r, "level")))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]camroll.Status{"status": st})
	}
}

// RefreshHandler rescans the library.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, err := s.lib.RefreshSelection(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"refreshed": ok})
	}
}

// assetKey returns the {id} path parameter, which may be an escaped uri.
func assetKey(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if k, err := url.PathUnescape(id); err == nil {
		return k
	}
	return id
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		klog.V(1).Infof("%s %s: bad body: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		klog.Errorf("request failed: %v", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, camroll.ErrInvalidSource), errors.Is(err, camroll.ErrInvalidRequest), errors.Is(err, camroll.ErrInvalidCursor):
		return http.StatusBadRequest
	case errors.Is(err, camroll.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, camroll.ErrUserCancelled):
		return http.StatusConflict
	case errors.Is(err, camroll.ErrDownloadFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
