package types

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Format identifies an image codec, either detected on input or requested for output
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatGIF     Format = "gif"
)

// ParseFormat maps a user supplied name or extension onto a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported output format: %q", s)
	}
}

// Encodable reports whether the format can be produced by the encoder
func (f Format) Encodable() bool {
	return f == FormatJPEG || f == FormatPNG || f == FormatWebP
}

// Extension returns the conventional file extension without the dot
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// MIMEType returns the media type of the format
func (f Format) MIMEType() string {
	if f == FormatUnknown {
		return "application/octet-stream"
	}
	return "image/" + string(f)
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

// Anchor names the dimension the caller edited when the aspect ratio is locked
type Anchor string

const (
	AnchorWidth  Anchor = "width"
	AnchorHeight Anchor = "height"
)

// Density bounds accepted in Requirements, in dots per inch
const (
	MinDensity = 72
	MaxDensity = 600
)

// MaxDimension is the largest target side, the limit of a JPEG frame header
const MaxDimension = 65535

// ExceedsPixels reports whether width*height is above limit without
// computing the product. Non-positive sides never exceed.
func ExceedsPixels(width, height, limit int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	return height > limit/width
}

// DefaultDensity is reported to callers when an image carries no density
const DefaultDensity = 72

// Requirements describes the variant a caller wants for one request
type Requirements struct {
	MinSizeKB         float64 `json:"min_size_kb" toml:"min_size_kb"`
	MaxSizeKB         float64 `json:"max_size_kb" toml:"max_size_kb"`
	Width             int     `json:"width" toml:"width"`
	Height            int     `json:"height" toml:"height"`
	Density           float64 `json:"density" toml:"density"`
	Format            Format  `json:"format" toml:"format"`
	AspectRatioLocked bool    `json:"aspect_ratio_locked" toml:"aspect_ratio_locked"`
	Anchor            Anchor  `json:"anchor,omitempty" toml:"anchor"`
}

// SizeBounds converts the KB window into inclusive byte bounds
func (r Requirements) SizeBounds() (minBytes, maxBytes int) {
	return int(math.Ceil(r.MinSizeKB * 1024)), int(math.Floor(r.MaxSizeKB * 1024))
}

// PixelBuffer is a decoded raster plus the density it will be tagged with
type PixelBuffer struct {
	Image   *image.NRGBA
	Density float64
}

// Width of the buffer in pixels
func (p PixelBuffer) Width() int {
	return p.Image.Bounds().Dx()
}

// Height of the buffer in pixels
func (p PixelBuffer) Height() int {
	return p.Image.Bounds().Dy()
}

// Output is a successfully transcoded image
type Output struct {
	Bytes    []byte  `json:"-"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Density  float64 `json:"density"`
	ByteSize int     `json:"byte_size"`
	Format   Format  `json:"format"`
	Quality  int     `json:"quality"`
	Attempts int     `json:"attempts"`
}

// SizeKB returns the encoded size in kilobytes
func (o *Output) SizeKB() float64 {
	return float64(o.ByteSize) / 1024
}

// ImageInfo holds the raw facts about an input image
type ImageInfo struct {
	Format      Format  `json:"format"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	ByteSize    int     `json:"byte_size"`
	SizeKB      float64 `json:"size_kb"`
	Density     float64 `json:"density"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// DefaultRequirements derives form defaults from an inspected image: a size
// window of 80%-120% of the original, the original dimensions and density
// (72 when absent), locked aspect ratio and JPEG output.
func DefaultRequirements(info ImageInfo) Requirements {
	density := math.Round(info.Density)
	if density < MinDensity || density > MaxDensity {
		density = DefaultDensity
	}

	minKB := math.Floor(info.SizeKB * 0.8)
	maxKB := math.Ceil(info.SizeKB * 1.2)
	if minKB < 1 {
		minKB = 1
	}
	if maxKB < minKB {
		maxKB = minKB
	}

	return Requirements{
		MinSizeKB:         minKB,
		MaxSizeKB:         maxKB,
		Width:             info.Width,
		Height:            info.Height,
		Density:           density,
		Format:            FormatJPEG,
		AspectRatioLocked: true,
		Anchor:            AnchorWidth,
	}
}
