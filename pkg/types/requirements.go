package types

import (
	"math"

	"github.com/Skt329/Image-Resizer/pkg/imgerr"
)

// Validate checks the requirement invariants. Size window, density and format
// problems are InvalidRequirements; a non-positive edited dimension is
// InvalidDimensions. When the aspect ratio is locked only the anchor
// dimension has to be set, the other one is derived later. Sides above
// MaxDimension are InvalidDimensions.
func (r Requirements) Validate() error {
	if !finite(r.MinSizeKB) || !finite(r.MaxSizeKB) {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"size bounds must be finite, got [%g, %g] KB", r.MinSizeKB, r.MaxSizeKB)
	}
	if !finite(r.Density) {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate", "density must be finite, got %g", r.Density)
	}
	if r.MinSizeKB <= 0 || r.MaxSizeKB <= 0 {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"size bounds must be positive, got [%g, %g] KB", r.MinSizeKB, r.MaxSizeKB)
	}
	if r.MinSizeKB > r.MaxSizeKB {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"min size %g KB exceeds max size %g KB", r.MinSizeKB, r.MaxSizeKB)
	}
	if minBytes, maxBytes := r.SizeBounds(); minBytes > maxBytes {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"size window [%g, %g] KB holds no whole byte count", r.MinSizeKB, r.MaxSizeKB)
	}
	if r.Density < MinDensity || r.Density > MaxDensity {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"density %g outside [%d, %d]", r.Density, MinDensity, MaxDensity)
	}
	if !r.Format.Encodable() {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate",
			"output format %q is not one of jpeg, png, webp", string(r.Format))
	}
	if r.Anchor != "" && r.Anchor != AnchorWidth && r.Anchor != AnchorHeight {
		return imgerr.Wrapf(imgerr.ErrInvalidRequirements, "validate", "unknown anchor %q", string(r.Anchor))
	}

	if r.AspectRatioLocked {
		if r.EffectiveAnchor() == AnchorHeight && r.Height <= 0 {
			return imgerr.Wrapf(imgerr.ErrInvalidDimensions, "validate", "height must be positive, got %d", r.Height)
		}
		if r.EffectiveAnchor() == AnchorWidth && r.Width <= 0 {
			return imgerr.Wrapf(imgerr.ErrInvalidDimensions, "validate", "width must be positive, got %d", r.Width)
		}
		anchor := r.Width
		if r.EffectiveAnchor() == AnchorHeight {
			anchor = r.Height
		}
		if anchor > MaxDimension {
			return imgerr.Wrapf(imgerr.ErrInvalidDimensions, "validate",
				"%s %d exceeds %d", r.EffectiveAnchor(), anchor, MaxDimension)
		}
		return nil
	}

	if r.Width <= 0 || r.Height <= 0 {
		return imgerr.Wrapf(imgerr.ErrInvalidDimensions, "validate",
			"target dimensions must be positive, got %dx%d", r.Width, r.Height)
	}
	if r.Width > MaxDimension || r.Height > MaxDimension {
		return imgerr.Wrapf(imgerr.ErrInvalidDimensions, "validate",
			"target %dx%d exceeds %d per side", r.Width, r.Height, MaxDimension)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EffectiveAnchor returns the anchor, defaulting to width
func (r Requirements) EffectiveAnchor() Anchor {
	if r.Anchor == AnchorHeight {
		return AnchorHeight
	}
	return AnchorWidth
}
