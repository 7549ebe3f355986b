package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
)

const assetColumns = `id, uri, path, display_name, media_type, photo_type, subtype, album,
	size, width, height, duration, orientation,
	date_added, date_modified, date_taken, latitude, longitude, altitude`

// sortable guards ORDER BY against arbitrary column names.
var sortable = map[string]bool{
	camroll.ColDateAdded:    true,
	camroll.ColDateModified: true,
	camroll.ColDateTaken:    true,
	camroll.ColDisplayName:  true,
}

// Find implements camroll.MediaStore.
func (s *Store) Find(ctx context.Context, q camroll.Query) ([]camroll.Record, error) {
	query, args, err := buildFind(q)
	if err != nil {
		return nil, err
	}
	klog.V(2).Infof("find: %s %v", query, args)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	rs := []camroll.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

func buildFind(q camroll.Query) (string, []any, error) {
	where := []string{"pending = 0"}
	var args []any

	if q.Key != "" {
		where = append(where, "(id = ? OR uri = ?)")
		args = append(args, q.Key, q.Key)
	}
	if len(q.MimeTypes) > 0 {
		where = append(where, "media_type IN ("+placeholders(len(q.MimeTypes))+")")
		for _, m := range q.MimeTypes {
			args = append(args, m)
		}
	}
	if len(q.PhotoTypes) > 0 {
		where = append(where, "photo_type IN ("+placeholders(len(q.PhotoTypes))+")")
		for _, t := range q.PhotoTypes {
			args = append(args, t)
		}
	}
	if q.Album != "" {
		where = append(where, "album = ?")
		args = append(args, q.Album)
	}
	if !q.From.IsZero() {
		where = append(where, "COALESCE(date_taken, date_added) >= ?")
		args = append(args, q.From.Unix())
	}
	if !q.To.IsZero() {
		where = append(where, "COALESCE(date_taken, date_added) < ?")
		args = append(args, q.To.Unix())
	}

	var order []string
	for _, o := range q.Order {
		if !sortable[o.Column] {
			return "", nil, fmt.Errorf("unsortable column %q", o.Column)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		order = append(order, o.Column+" "+dir)
	}
	// id keeps ties in a stable order across pages.
	order = append(order, "id ASC")

	query := "SELECT " + assetColumns + " FROM assets WHERE " + strings.Join(where, " AND ") +
		" ORDER BY " + strings.Join(order, ", ")

	switch {
	case q.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}
	return query, args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (camroll.Record, error) {
	var r camroll.Record
	var size, width, height, orientation, taken sql.NullInt64
	var duration, lat, lon, alt sql.NullFloat64

	if err := sc.Scan(&r.ID, &r.URI, &r.Path, &r.DisplayName, &r.MimeType, &r.PhotoType, &r.Subtype, &r.Album,
		&size, &width, &height, &duration, &orientation,
		&r.DateAdded, &r.DateModified, &taken, &lat, &lon, &alt); err != nil {
		return r, fmt.Errorf("scan asset: %w", err)
	}

	r.Size = intPtr(size)
	r.Width = intPtr(width)
	r.Height = intPtr(height)
	r.Orientation = intPtr(orientation)
	r.DateTaken = intPtr(taken)
	r.Duration = floatPtr(duration)
	r.Latitude = floatPtr(lat)
	r.Longitude = floatPtr(lon)
	r.Altitude = floatPtr(alt)
	return r, nil
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

// Albums implements camroll.MediaStore.
func (s *Store) Albums(ctx context.Context, photoTypes []int) ([]camroll.Album, error) {
	query := "SELECT album, COUNT(*) FROM assets WHERE pending = 0 AND album != ''"
	var args []any
	if len(photoTypes) > 0 {
		query += " AND photo_type IN (" + placeholders(len(photoTypes)) + ")"
		for _, t := range photoTypes {
			args = append(args, t)
		}
	}
	query += " GROUP BY album ORDER BY album"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query albums: %w", err)
	}
	defer rows.Close()

	as := []camroll.Album{}
	for rows.Next() {
		a := camroll.Album{Subtype: camroll.AlbumRegular}
		if err := rows.Scan(&a.Title, &a.Count); err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		if s.importAlbum != "" && a.Title == s.importAlbum {
			a.Subtype = camroll.AlbumImported
		}
		as = append(as, a)
	}
	return as, rows.Err()
}

// Delete implements camroll.MediaStore. Keys may be uris or ids; unknown keys are ignored.
func (s *Store) Delete(ctx context.Context, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var paths []string
	for _, k := range keys {
		var p string
		err := tx.QueryRowContext(ctx, "SELECT path FROM assets WHERE id = ? OR uri = ?", k, k).Scan(&p)
		if err == sql.ErrNoRows {
			klog.Warningf("delete: no asset for %s", k)
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup %s: %w", k, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE path = ?", p); err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
		paths = append(paths, p)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove: %w", err)
		}
		klog.Infof("deleted %s", p)
	}
	return nil
}

// Upsert indexes a scanned file. An existing row keeps its id, uri, add time and pending state.
func (s *Store) Upsert(ctx context.Context, r camroll.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			display_name = excluded.display_name,
			media_type = excluded.media_type,
			photo_type = excluded.photo_type,
			subtype = excluded.subtype,
			album = excluded.album,
			size = excluded.size,
			width = excluded.width,
			height = excluded.height,
			duration = excluded.duration,
			orientation = excluded.orientation,
			date_modified = excluded.date_modified,
			date_taken = excluded.date_taken,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			altitude = excluded.altitude
	`, r.ID, r.URI, r.Path, r.DisplayName, r.MimeType, r.PhotoType, r.Subtype, r.Album,
		r.Size, r.Width, r.Height, r.Duration, r.Orientation,
		r.DateAdded, r.DateModified, r.DateTaken, r.Latitude, r.Longitude, r.Altitude)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", r.Path, err)
	}
	return nil
}

// Prune drops committed rows whose path is not in keep, returning how many were dropped.
func (s *Store) Prune(ctx context.Context, keep map[string]bool) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM assets WHERE pending = 0")
	if err != nil {
		return 0, fmt.Errorf("query paths: %w", err)
	}
	var gone []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan path: %w", err)
		}
		if !keep[p] {
			gone = append(gone, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range gone {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM assets WHERE path = ? AND pending = 0", p); err != nil {
			return 0, fmt.Errorf("prune %s: %w", p, err)
		}
		klog.V(1).Infof("pruned %s", p)
	}
	return len(gone), nil
}
