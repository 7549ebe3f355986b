// Package index scans a photo library directory into the media store.
package index

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

var exifDate = "2006:01:02 15:04:05"

// Meta is the embedded metadata of a media file. Nil fields are unknown.
type Meta struct {
	Width       *int64
	Height      *int64
	Duration    *float64
	Orientation *int64
	Taken       *time.Time
	Latitude    *float64
	Longitude   *float64
	Altitude    *float64
}

// Reader extracts metadata from a media file.
type Reader interface {
	Read(path string) (Meta, error)
}

// ExifReader reads metadata with exiftool.
type ExifReader struct {
	et *exiftool.Exiftool
}

// NewExifReader starts an exiftool process.
func NewExifReader() (*ExifReader, error) {
	et, err := exiftool.NewExiftool(exiftool.CoordFormant("%+.6f"))
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	return &ExifReader{et: et}, nil
}

// Close stops exiftool.
func (r *ExifReader) Close() error {
	return r.et.Close()
}

// Read implements Reader.
func (r *ExifReader) Read(path string) (Meta, error) {
	fis := r.et.ExtractMetadata(path)
	fi := fis[0]
	m := Meta{}

	if fi.Err != nil {
		return m, fmt.Errorf("extract fail for %q: %w", path, fi.Err)
	}

	for k, v := range fi.Fields {
		klog.V(3).Infof("%q=%v\n", k, v)
	}

	if v, err := fi.GetInt("ImageWidth"); err == nil {
		m.Width = &v
	}
	if v, err := fi.GetInt("ImageHeight"); err == nil {
		m.Height = &v
	}
	if v, err := fi.GetInt("Orientation"); err == nil {
		m.Orientation = &v
	}
	if v, err := fi.GetFloat("Duration"); err == nil {
		m.Duration = &v
	}
	if v, err := fi.GetFloat("GPSLatitude"); err == nil {
		m.Latitude = &v
	}
	if v, err := fi.GetFloat("GPSLongitude"); err == nil {
		m.Longitude = &v
	}
	if s, err := fi.GetString("GPSAltitude"); err == nil {
		if v, ok := altitude(s); ok {
			m.Altitude = &v
		}
	}

	for _, k := range []string{"DateTimeOriginal", "CreateDate"} {
		ds, err := fi.GetString(k)
		if err != nil {
			continue
		}
		t, err := time.ParseInLocation(exifDate, ds, time.Local)
		if err != nil {
			klog.V(1).Infof("unable to parse %s %q for %s: %v", k, ds, path, err)
			continue
		}
		m.Taken = &t
		break
	}

	return m, nil
}

// altitude parses exiftool's "123.4 m Above Sea Level" form.
func altitude(s string) (float64, bool) {
	fs := strings.Fields(s)
	if len(fs) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fs[0], 64)
	if err != nil {
		return 0, false
	}
	if strings.Contains(s, "Below") {
		v = -v
	}
	return v, true
}

// BasicReader reads image dimensions only. It needs no external tools.
type BasicReader struct{}

// Read implements Reader.
func (BasicReader) Read(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	ic, _, err := image.DecodeConfig(f)
	if err != nil {
		// Videos and exotic formats decode to nothing; that is not an error.
		return Meta{}, nil
	}
	w, h := int64(ic.Width), int64(ic.Height)
	return Meta{Width: &w, Height: &h}, nil
}
