// Package render rasterizes an avatar draw list into a single image.
package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/vbonduro/wardrobe/internal/artstore"
	"github.com/vbonduro/wardrobe/internal/avatar"
)

type Format string

const (
	FormatWebP Format = "webp"
	FormatPNG  Format = "png"
)

// MaxArtworkSide bounds the width and height of artwork that will be decoded.
const MaxArtworkSide = 4096

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrUnsupportedImage  = errors.New("unsupported artwork type")
	ErrImageTooLarge     = errors.New("artwork dimensions too large")
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatWebP:
		return FormatWebP, nil
	case FormatPNG:
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/webp"
}

// Renderer paints layers using artwork fetched from an ArtworkStore.
// Decoded artwork is kept in an LRU keyed by storage key; keys are never
// reused, so entries do not go stale.
type Renderer struct {
	store  artstore.ArtworkStore
	cache  *lru.Cache[string, image.Image]
	logger *slog.Logger
}

func NewRenderer(store artstore.ArtworkStore, cacheSize int, logger *slog.Logger) (*Renderer, error) {
	cache, err := lru.New[string, image.Image](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create artwork cache: %w", err)
	}
	return &Renderer{store: store, cache: cache, logger: logger}, nil
}

// Render draws layers in order onto a transparent canvas. Parts of a layer
// outside the canvas are clipped.
func (r *Renderer) Render(ctx context.Context, layers []avatar.Layer, canvas avatar.Canvas) (*image.NRGBA, error) {
	canvas = canvas.Normalize()
	dst := image.NewNRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))

	for _, l := range layers {
		if l.Rect.Width <= 0 || l.Rect.Height <= 0 {
			continue
		}
		src, err := r.artwork(ctx, l.Item.Filepath)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", l.Item.ID, err)
		}
		dr := image.Rect(l.Rect.Left, l.Rect.Top, l.Rect.Left+l.Rect.Width, l.Rect.Top+l.Rect.Height)
		draw.CatmullRom.Scale(dst, dr, src, src.Bounds(), draw.Over, nil)
	}
	return dst, nil
}

// Forget drops any cached artwork for key.
func (r *Renderer) Forget(key string) {
	r.cache.Remove(key)
}

func (r *Renderer) artwork(ctx context.Context, key string) (image.Image, error) {
	if img, ok := r.cache.Get(key); ok {
		return img, nil
	}

	rc, mimeType, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load artwork %s: %w", key, err)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			r.logger.Error("failed to close artwork reader", "key", key, "error", err)
		}
	}()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read artwork %s: %w", key, err)
	}
	img, err := DecodeBounded(data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork %s: %w", key, err)
	}
	r.cache.Add(key, img)
	r.logger.Debug("artwork cached", "key", key, "bounds", img.Bounds().String())
	return img, nil
}

// Decode picks the decoder from mimeType rather than sniffing: TGA has no
// magic number.
func Decode(rd io.Reader, mimeType string) (image.Image, error) {
	switch mimeType {
	case "image/png":
		return png.Decode(rd)
	case "image/jpeg":
		return jpeg.Decode(rd)
	case "image/gif":
		return gif.Decode(rd)
	case "image/webp":
		return webp.Decode(rd)
	case "image/x-tga":
		return tga.Decode(rd)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType)
}

// DecodeConfig reads only the image header, picking the decoder the same way
// Decode does.
func DecodeConfig(rd io.Reader, mimeType string) (image.Config, error) {
	switch mimeType {
	case "image/png":
		return png.DecodeConfig(rd)
	case "image/jpeg":
		return jpeg.DecodeConfig(rd)
	case "image/gif":
		return gif.DecodeConfig(rd)
	case "image/webp":
		return webp.DecodeConfig(rd)
	case "image/x-tga":
		return tgaConfig(rd)
	}
	return image.Config{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType)
}

// tgaConfig reads the 18 byte TGA header. Width and height are little-endian
// uint16s at offsets 12 and 14.
func tgaConfig(rd io.Reader) (image.Config, error) {
	var hdr [18]byte
	if _, err := io.ReadFull(rd, hdr[:]); err != nil {
		return image.Config{}, fmt.Errorf("tga header: %w", err)
	}
	return image.Config{
		Width:  int(binary.LittleEndian.Uint16(hdr[12:14])),
		Height: int(binary.LittleEndian.Uint16(hdr[14:16])),
	}, nil
}

// DecodeBounded checks the header dimensions against MaxArtworkSide before
// decoding, so a tiny file declaring a huge canvas is refused without
// allocating its pixels.
func DecodeBounded(data []byte, mimeType string) (image.Image, error) {
	cfg, err := DecodeConfig(bytes.NewReader(data), mimeType)
	if err != nil {
		return nil, err
	}
	if cfg.Width > MaxArtworkSide || cfg.Height > MaxArtworkSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return Decode(bytes.NewReader(data), mimeType)
}

func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case FormatWebP:
		return nativewebp.Encode(w, img, nil)
	case FormatPNG:
		return png.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
