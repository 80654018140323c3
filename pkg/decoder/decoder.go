// Package decoder turns raw upload bytes into an in-memory pixel buffer and
// reports the facts a caller needs to pre-fill its requirements.
package decoder

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Skt329/Image-Resizer/pkg/density"
	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

const stage = "decode"

// DefaultMaxPixels bounds width*height of accepted inputs (100 megapixels)
const DefaultMaxPixels = 100_000_000

// Decoder loads images. It holds no per-request state.
type Decoder struct {
	config Config
	log    zerolog.Logger
}

// Config holds configuration for the decoder
type Config struct {
	MaxPixels int
}

// SourceImage is a decoded upload. It is never modified after Decode returns.
type SourceImage struct {
	Image    image.Image
	Width    int
	Height   int
	Layout   string
	Format   types.Format
	Density  float64
	ByteSize int
}

// AspectRatio returns width / height of the source
func (s *SourceImage) AspectRatio() float64 {
	return float64(s.Width) / float64(s.Height)
}

// New creates a Decoder with default configuration
func New() *Decoder {
	return NewWithConfig(Config{MaxPixels: DefaultMaxPixels})
}

// NewWithConfig creates a Decoder with custom configuration
func NewWithConfig(config Config) *Decoder {
	if config.MaxPixels <= 0 {
		config.MaxPixels = DefaultMaxPixels
	}
	return &Decoder{config: config, log: zerolog.Nop()}
}

// SetLogger replaces the decoder's logger
func (d *Decoder) SetLogger(l zerolog.Logger) {
	d.log = l.With().Str("component", "decoder").Logger()
}

// Decode sniffs, validates and fully decodes data.
// Fails with UnsupportedFormat, CorruptData or InvalidDimensions.
func (d *Decoder) Decode(data []byte) (*SourceImage, error) {
	format, _, err := d.header(data)
	if err != nil {
		return nil, err
	}

	img, err := decodePixels(format, data)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.ErrCorruptData, stage, format.String()+" pixel data", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, imgerr.Wrapf(imgerr.ErrCorruptData, stage, "decoded image is %dx%d", bounds.Dx(), bounds.Dy())
	}

	src := &SourceImage{
		Image:    img,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Layout:   Layout(img),
		Format:   format,
		Density:  density.Read(format, data),
		ByteSize: len(data),
	}

	d.log.Debug().
		Str("format", format.String()).
		Int("width", src.Width).
		Int("height", src.Height).
		Str("layout", src.Layout).
		Float64("density", src.Density).
		Int("bytes", src.ByteSize).
		Msg("image decoded")

	return src, nil
}

// Inspect reads only the header and returns the raw facts about data
func (d *Decoder) Inspect(data []byte) (types.ImageInfo, error) {
	format, cfg, err := d.header(data)
	if err != nil {
		return types.ImageInfo{}, err
	}

	return types.ImageInfo{
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		ByteSize:    len(data),
		SizeKB:      float64(len(data)) / 1024,
		Density:     density.Read(format, data),
		AspectRatio: float64(cfg.Width) / float64(cfg.Height),
	}, nil
}

// header sniffs the codec and decodes the image config, enforcing the
// dimension and pixel count limits.
func (d *Decoder) header(data []byte) (types.Format, image.Config, error) {
	if len(data) == 0 {
		return types.FormatUnknown, image.Config{}, imgerr.Wrapf(imgerr.ErrUnsupportedFormat, stage, "empty input")
	}

	format := Sniff(data)
	if !Supported(format) {
		return format, image.Config{}, imgerr.Wrapf(imgerr.ErrUnsupportedFormat, stage, "%s input is not a supported raster format", format)
	}

	cfg, err := decodeConfig(format, data)
	if err != nil {
		return format, image.Config{}, imgerr.Wrap(imgerr.ErrCorruptData, stage, format.String()+" header", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return format, image.Config{}, imgerr.Wrapf(imgerr.ErrCorruptData, stage, "image reports %dx%d pixels", cfg.Width, cfg.Height)
	}
	if types.ExceedsPixels(cfg.Width, cfg.Height, d.config.MaxPixels) {
		return format, image.Config{}, imgerr.Wrapf(imgerr.ErrInvalidDimensions, stage,
			"%dx%d exceeds the %d pixel limit", cfg.Width, cfg.Height, d.config.MaxPixels)
	}
	return format, cfg, nil
}

func decodeConfig(format types.Format, data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil && format == types.FormatWebP {
		return webp.DecodeConfig(bytes.NewReader(data))
	}
	return cfg, err
}

// decodePixels tries the registered decoders first and falls back to
// libwebp for WebP variants x/image cannot read.
func decodePixels(format types.Format, data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil && format == types.FormatWebP {
		return webp.Decode(bytes.NewReader(data))
	}
	return img, err
}

// Layout names the channel layout of img
func Layout(img image.Image) string {
	switch m := img.(type) {
	case *image.Gray, *image.Gray16:
		return "gray"
	case *image.YCbCr:
		return "ycbcr"
	case *image.CMYK:
		return "cmyk"
	case *image.Paletted:
		return "paletted"
	case interface{ Opaque() bool }:
		if m.Opaque() {
			return "rgb"
		}
		return "rgba"
	default:
		return "rgba"
	}
}
