// Package imageresizer converts a raster image into a variant that satisfies
// explicit constraints: pixel dimensions, DPI metadata, output codec and a
// closed file size window in kilobytes (1 KB = 1024 bytes).
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		imageresizer "github.com/Skt329/Image-Resizer"
//		"github.com/Skt329/Image-Resizer/pkg/types"
//	)
//
//	func main() {
//		resizer := imageresizer.New()
//
//		data, err := os.ReadFile("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		// Pre-fill requirements the way a form would
//		info, err := resizer.Inspect(data)
//		if err != nil {
//			log.Fatal(err)
//		}
//		req := types.DefaultRequirements(info)
//		req.MinSizeKB, req.MaxSizeKB = 40, 60
//		req.Density = 300
//
//		out, err := resizer.Process(context.Background(), data, req)
//		if err != nil {
//			log.Fatal(err)
//		}
//		os.WriteFile("photo_form.jpg", out.Bytes, 0644)
//	}
//
// The package consists of five stages run by pkg/pipeline:
//
// 1. Decoder (pkg/decoder): sniffs the codec from content and decodes pixels
// 2. Resampler (pkg/resampler): resizes to exact dimensions with Lanczos
// 3. Density (pkg/density): tags the DPI without touching pixels
// 4. Encoder (pkg/encoder): bounded binary search over codec quality
// 5. Errors (pkg/imgerr): one failure taxonomy for every stage
//
// A request either yields bytes whose length lies inside the requested window
// or fails; a SizeUnattainable failure reports the closest size that was
// reached so the caller can widen the window and retry.
package imageresizer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Skt329/Image-Resizer/internal/source"
	"github.com/Skt329/Image-Resizer/internal/utils"
	"github.com/Skt329/Image-Resizer/pkg/pipeline"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

// Version of the image resizer library
const Version = "1.0.0"

// ImageResizer provides a high-level interface over the transcoding pipeline
type ImageResizer struct {
	pipeline *pipeline.Pipeline
	loader   *source.Loader
}

// New creates a new ImageResizer with default configuration
func New() *ImageResizer {
	return NewWithConfig(pipeline.DefaultConfig())
}

// NewWithConfig creates a new ImageResizer with custom configuration
func NewWithConfig(config pipeline.Config) *ImageResizer {
	return &ImageResizer{
		pipeline: pipeline.NewWithConfig(config),
		loader:   source.New(0),
	}
}

// SetLogger routes pipeline logs to l
func (r *ImageResizer) SetLogger(l zerolog.Logger) {
	r.pipeline.SetLogger(l)
}

// SetObserver registers a callback for pipeline state transitions
func (r *ImageResizer) SetObserver(o pipeline.Observer) {
	r.pipeline.SetObserver(o)
}

// SetMaxInputBytes bounds how much ProcessFile and InspectFile read
func (r *ImageResizer) SetMaxInputBytes(n int64) {
	r.loader = source.New(n)
}

// Process transcodes data to satisfy req
func (r *ImageResizer) Process(ctx context.Context, data []byte, req types.Requirements) (*types.Output, error) {
	return r.pipeline.Process(ctx, data, req)
}

// Submit runs Process in the background
func (r *ImageResizer) Submit(ctx context.Context, data []byte, req types.Requirements) <-chan pipeline.Outcome {
	return r.pipeline.Submit(ctx, data, req)
}

// Inspect reports format, dimensions, size and density of data
func (r *ImageResizer) Inspect(data []byte) (types.ImageInfo, error) {
	return r.pipeline.Inspect(data)
}

// InspectFile is Inspect for a file path or http(s) URL
func (r *ImageResizer) InspectFile(ctx context.Context, src string) (types.ImageInfo, error) {
	data, err := r.loader.Load(ctx, src)
	if err != nil {
		return types.ImageInfo{}, err
	}
	return r.Inspect(data)
}

// ProcessFile is a convenience function that loads src, transcodes it and
// writes <outputDir>/<base>_resized.<ext>. It returns the output and the
// path written.
func (r *ImageResizer) ProcessFile(ctx context.Context, src, outputDir string, req types.Requirements) (*types.Output, string, error) {
	data, err := r.loader.Load(ctx, src)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load image: %w", err)
	}

	out, err := r.Process(ctx, data, req)
	if err != nil {
		return nil, "", err
	}

	outputPath := filepath.Join(outputDir, fmt.Sprintf("%s_resized.%s", getBaseName(src), out.Format.Extension()))
	if err := utils.WriteFile(outputPath, out.Bytes); err != nil {
		return nil, "", fmt.Errorf("failed to save image: %w", err)
	}

	return out, outputPath, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}

// getBaseName extracts the base filename without extension
func getBaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
