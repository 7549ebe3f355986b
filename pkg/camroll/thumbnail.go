package camroll

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"k8s.io/klog/v2"
)

// Thumbnail renders a JPEG thumbnail of a photo asset.
func (l *Library) Thumbnail(ctx context.Context, key string, o ThumbnailOptions) (*Thumbnail, error) {
	const op = "getThumbnail"
	r, err := l.record(ctx, op, key)
	if err != nil {
		return nil, err
	}
	if r.PhotoType != PhotoTypeImage {
		return nil, opError(op, key, ErrInvalidRequest, errors.New("thumbnails are only available for photos"))
	}

	img, err := imgio.Open(r.Path)
	if err != nil {
		return nil, opError(op, key, ErrQueryFailed, fmt.Errorf("imgio.Open: %w", err))
	}

	bs, err := createThumb(img, o)
	if err != nil {
		return nil, opError(op, key, ErrQueryFailed, err)
	}
	return &Thumbnail{Base64: base64.StdEncoding.EncodeToString(bs)}, nil
}

func createThumb(i image.Image, o ThumbnailOptions) ([]byte, error) {
	if i.Bounds().Dx() == 0 || i.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("empty image: %+v", i.Bounds())
	}

	x, y := thumbSize(i.Bounds(), o.TargetSize)
	q := jpegQuality(o.Quality)
	klog.V(1).Infof("creating %dx%d thumb (q=%d) from %+v", x, y, q, i.Bounds())

	rimg := i
	if x != i.Bounds().Dx() || y != i.Bounds().Dy() {
		rimg = transform.Resize(i, x, y, transform.Lanczos)
	}

	var buf bytes.Buffer
	if err := imgio.JPEGEncoder(q)(&buf, rimg); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbSize fits b within t, keeping the aspect ratio and never upscaling.
func thumbSize(b image.Rectangle, t Size) (int, int) {
	dx, dy := float64(b.Dx()), float64(b.Dy())

	scale := 1.0
	switch {
	case t.Width > 0 && t.Height > 0:
		scale = math.Min(float64(t.Width)/dx, float64(t.Height)/dy)
	case t.Width > 0:
		scale = float64(t.Width) / dx
	case t.Height > 0:
		scale = float64(t.Height) / dy
	}
	if scale >= 1 {
		return b.Dx(), b.Dy()
	}

	x := int(math.Max(1, math.Round(dx*scale)))
	y := int(math.Max(1, math.Round(dy*scale)))
	return x, y
}

// jpegQuality scales a 0..1 quality to the encoder's 0..100.
func jpegQuality(q float64) int {
	if q <= 0 || q > 1 {
		q = 1
	}
	return int(math.Round(q * 100))
}
