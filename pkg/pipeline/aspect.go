package pipeline

import (
	"math"

	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

// DeriveDimensions resolves the target size of a request against the source
// dimensions. With a locked aspect ratio the anchor dimension is kept and the
// other one is derived from srcW/srcH, rounded to the nearest pixel. A side
// above types.MaxDimension is InvalidDimensions.
func DeriveDimensions(srcW, srcH int, req types.Requirements) (width, height int, err error) {
	width, height = req.Width, req.Height

	if req.AspectRatioLocked {
		if srcW <= 0 || srcH <= 0 {
			return 0, 0, imgerr.Wrapf(imgerr.ErrInvalidDimensions, "aspect", "source %dx%d has no aspect ratio", srcW, srcH)
		}
		ratio := float64(srcW) / float64(srcH)
		var derived float64
		if req.EffectiveAnchor() == types.AnchorHeight {
			derived = math.Round(float64(height) * ratio)
		} else {
			derived = math.Round(float64(width) / ratio)
		}
		if derived > types.MaxDimension {
			return 0, 0, imgerr.Wrapf(imgerr.ErrInvalidDimensions, "aspect",
				"derived side %.0f exceeds %d", derived, types.MaxDimension)
		}
		if req.EffectiveAnchor() == types.AnchorHeight {
			width = int(derived)
		} else {
			height = int(derived)
		}
	}

	if width <= 0 || height <= 0 {
		return 0, 0, imgerr.Wrapf(imgerr.ErrInvalidDimensions, "aspect", "target %dx%d is not positive", width, height)
	}
	if width > types.MaxDimension || height > types.MaxDimension {
		return 0, 0, imgerr.Wrapf(imgerr.ErrInvalidDimensions, "aspect",
			"target %dx%d exceeds %d per side", width, height, types.MaxDimension)
	}
	return width, height, nil
}
