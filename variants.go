package itemgate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"mime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

// VariantRenderer derives additional presentations from an item's original
// bytes. Render returns nil for content it does not handle.
type VariantRenderer interface {
	Render(ctx context.Context, contentType string, content []byte) (map[PresentationType][]byte, error)
}

const (
	DefaultPreviewSize   = 200
	DefaultPreferredSize = 1024
)

// ImageRenderer produces a PREVIEW thumbnail and a PREFERRED rendition for
// decodable images, encoded in the source format. Images already smaller than
// the target box are not enlarged.
type ImageRenderer struct {
	previewSize   int
	preferredSize int
}

// NewImageRenderer creates an ImageRenderer. Sizes are the bounding box edge
// in pixels; non-positive values select the defaults.
func NewImageRenderer(previewSize, preferredSize int) *ImageRenderer {
	if previewSize <= 0 {
		previewSize = DefaultPreviewSize
	}
	if preferredSize <= 0 {
		preferredSize = DefaultPreferredSize
	}
	return &ImageRenderer{previewSize: previewSize, preferredSize: preferredSize}
}

func (r *ImageRenderer) Render(ctx context.Context, contentType string, content []byte) (map[PresentationType][]byte, error) {
	format, ok := imageFormat(contentType)
	if !ok {
		return nil, nil
	}

	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("render variants: decode: %w", err)
	}

	var preview, preferred []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := encodeFit(gctx, img, r.previewSize, format)
		preview = b
		return err
	})
	g.Go(func() error {
		b, err := encodeFit(gctx, img, r.preferredSize, format)
		preferred = b
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("render variants: %w", err)
	}

	return map[PresentationType][]byte{
		PresentationPreview:   preview,
		PresentationPreferred: preferred,
	}, nil
}

func encodeFit(ctx context.Context, img image.Image, size int, format imaging.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fitted := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, format); err != nil {
		return nil, fmt.Errorf("encode %dpx: %w", size, err)
	}
	return buf.Bytes(), nil
}

func imageFormat(contentType string) (imaging.Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return 0, false
	}

	switch mediaType {
	case "image/jpeg":
		return imaging.JPEG, true
	case "image/png":
		return imaging.PNG, true
	case "image/gif":
		return imaging.GIF, true
	case "image/bmp":
		return imaging.BMP, true
	case "image/tiff":
		return imaging.TIFF, true
	default:
		return 0, false
	}
}
