// Package density handles resolution metadata. Stamping a buffer only records
// the requested DPI; the encoders serialize it into each container's native
// field (JFIF APP0 for JPEG, pHYs for PNG, EXIF for WebP). Pixels are never
// resampled here.
package density

import (
	"fmt"
	"image"
	"math"

	"github.com/Skt329/Image-Resizer/pkg/types"
)

const inchesPerMeter = 1 / 0.0254

// Stamp tags img with dpi. The pixel buffer is shared, not copied.
func Stamp(img *image.NRGBA, dpi float64) types.PixelBuffer {
	return types.PixelBuffer{Image: img, Density: dpi}
}

// Apply writes dpi into an already encoded image of the given format
func Apply(format types.Format, data []byte, dpi float64) ([]byte, error) {
	if dpi <= 0 {
		return data, nil
	}
	switch format {
	case types.FormatJPEG:
		return SetJFIF(data, dpi)
	case types.FormatPNG:
		return SetPHYs(data, dpi)
	case types.FormatWebP:
		return SetWebPEXIF(data, dpi)
	default:
		return nil, fmt.Errorf("density: cannot tag %s output", format)
	}
}

// Read returns the density embedded in data, or 0 when none is present
func Read(format types.Format, data []byte) float64 {
	var dpi float64
	switch format {
	case types.FormatJPEG:
		if v, ok := ReadJFIF(data); ok {
			dpi = v
		} else if v, ok := readEXIF(data); ok {
			dpi = v
		}
	case types.FormatPNG:
		if v, ok := ReadPHYs(data); ok {
			dpi = v
		}
	case types.FormatWebP:
		if v, ok := ReadWebPEXIF(data); ok {
			dpi = v
		}
	case types.FormatTIFF:
		if v, ok := readEXIF(data); ok {
			dpi = v
		}
	}
	return dpi
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
