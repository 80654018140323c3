package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"

	"github.com/Skt329/Image-Resizer/pkg/types"
)

// Codec is the interface that wraps a format's quality ladder.
//
// Levels returns the number of settings; level 0 gives the smallest output
// and Levels()-1 the largest.
//
// DefaultLevel is the high-quality setting probed first.
//
// Setting maps a level onto the codec's own knob (quality factor or
// compression ladder position) for reporting.
//
// Encode serializes img at level. It must be deterministic.
type Codec interface {
	Format() types.Format
	Levels() int
	DefaultLevel() int
	Setting(level int) int
	Encode(img image.Image, level int) ([]byte, error)
}

// QualityRange bounds a lossy codec's quality factor
type QualityRange struct {
	Min     int `toml:"min"`
	Max     int `toml:"max"`
	Default int `toml:"default"`
}

// Validate checks 1 <= Min <= Default <= Max <= 100
func (q QualityRange) Validate() error {
	if q.Min < 1 || q.Max > 100 || q.Min > q.Max {
		return fmt.Errorf("quality range [%d, %d] must lie within [1, 100]", q.Min, q.Max)
	}
	if q.Default < q.Min || q.Default > q.Max {
		return fmt.Errorf("default quality %d outside [%d, %d]", q.Default, q.Min, q.Max)
	}
	return nil
}

func (q QualityRange) levels() int { return q.Max - q.Min + 1 }
func (q QualityRange) defaultLevel() int { return q.Default - q.Min }
func (q QualityRange) quality(level int) int { return q.Min + level }

// JPEGCodec encodes baseline JPEG with the standard library encoder
type JPEGCodec struct {
	Range QualityRange
}

func (c *JPEGCodec) Format() types.Format { return types.FormatJPEG }
func (c *JPEGCodec) Levels() int { return c.Range.levels() }
func (c *JPEGCodec) DefaultLevel() int { return c.Range.defaultLevel() }
func (c *JPEGCodec) Setting(level int) int { return c.Range.quality(level) }

func (c *JPEGCodec) Encode(img image.Image, level int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.Range.quality(level)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WebPCodec encodes lossy WebP through libwebp
type WebPCodec struct {
	Range QualityRange
}

func (c *WebPCodec) Format() types.Format { return types.FormatWebP }
func (c *WebPCodec) Levels() int { return c.Range.levels() }
func (c *WebPCodec) DefaultLevel() int { return c.Range.defaultLevel() }
func (c *WebPCodec) Setting(level int) int { return c.Range.quality(level) }

func (c *WebPCodec) Encode(img image.Image, level int) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: false, Quality: float32(c.Range.quality(level))}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pngLadder orders the zlib settings from smallest to largest output. PNG is
// lossless, so only the compression effort varies and nothing can inflate
// the stream beyond stored blocks.
var pngLadder = []png.CompressionLevel{
	png.BestCompression,
	png.DefaultCompression,
	png.BestSpeed,
	png.NoCompression,
}

// PNGCodec encodes PNG at one of the compression ladder levels
type PNGCodec struct{}

func (c *PNGCodec) Format() types.Format { return types.FormatPNG }
func (c *PNGCodec) Levels() int { return len(pngLadder) }
func (c *PNGCodec) DefaultLevel() int { return 1 }
func (c *PNGCodec) Setting(level int) int { return level }

func (c *PNGCodec) Encode(img image.Image, level int) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: pngLadder[level]}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
