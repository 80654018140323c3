// Package resampler resizes pixel buffers to exact target dimensions with
// weighted filters. Aspect ratio handling is the caller's concern.
package resampler

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"golang.org/x/image/draw"

	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

const stage = "resample"

// DefaultMaxPixels bounds width*height of a resample target
const DefaultMaxPixels = 100_000_000

// Filter selects the resampling kernel
type Filter string

const (
	// Lanczos is a sharp 3-lobe windowed sinc, good for both directions
	Lanczos Filter = "lanczos"
	// Box averages the source area covered by each target pixel
	Box Filter = "box"
	// CatmullRom is a bicubic spline from x/image/draw
	CatmullRom Filter = "catmullrom"
)

// Filters lists the accepted filter names
func Filters() []Filter {
	return []Filter{Lanczos, Box, CatmullRom}
}

// ParseFilter maps a configuration value onto a Filter
func ParseFilter(name string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return Lanczos, nil
	}
	for _, known := range Filters() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown resample filter %q", name)
}

// Resampler resizes images. It holds no per-request state.
type Resampler struct {
	config Config
	log    zerolog.Logger
}

// Config holds configuration for the resampler
type Config struct {
	Filter    Filter
	MaxPixels int
}

// New creates a Resampler using Lanczos
func New() *Resampler {
	return NewWithConfig(Config{Filter: Lanczos, MaxPixels: DefaultMaxPixels})
}

// NewWithConfig creates a Resampler with custom configuration
func NewWithConfig(config Config) *Resampler {
	if config.Filter == "" {
		config.Filter = Lanczos
	}
	if config.MaxPixels <= 0 {
		config.MaxPixels = DefaultMaxPixels
	}
	return &Resampler{config: config, log: zerolog.Nop()}
}

// SetLogger replaces the resampler's logger
func (r *Resampler) SetLogger(l zerolog.Logger) {
	r.log = l.With().Str("component", "resampler").Logger()
}

// Filter returns the configured filter
func (r *Resampler) Filter() Filter {
	return r.config.Filter
}

// Resample produces a new NRGBA buffer of exactly width x height. A request
// for the source's own size returns an unmodified copy.
func (r *Resampler) Resample(img image.Image, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, imgerr.Wrapf(imgerr.ErrInvalidDimensions, stage, "target %dx%d is not positive", width, height)
	}
	if types.ExceedsPixels(width, height, r.config.MaxPixels) {
		return nil, imgerr.Wrapf(imgerr.ErrInvalidDimensions, stage,
			"target %dx%d exceeds the %d pixel limit", width, height, r.config.MaxPixels)
	}

	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return imaging.Clone(img), nil
	}

	var out *image.NRGBA
	switch r.config.Filter {
	case Box:
		out = imaging.Resize(img, width, height, imaging.Box)
	case CatmullRom:
		out = image.NewNRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(out, out.Bounds(), img, bounds, draw.Src, nil)
	case Lanczos:
		out = imaging.Resize(img, width, height, imaging.Lanczos)
	default:
		return nil, imgerr.Wrapf(imgerr.ErrInternalEncoding, stage, "unknown filter %q", string(r.config.Filter))
	}

	r.log.Debug().
		Str("filter", string(r.config.Filter)).
		Int("src-width", bounds.Dx()).
		Int("src-height", bounds.Dy()).
		Int("width", width).
		Int("height", height).
		Msg("image resampled")

	return out, nil
}
