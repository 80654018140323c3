// Package pipeline sequences decode, resample, density stamping and the
// size-constrained encode for one request at a time. A Pipeline keeps only
// configuration and collaborators without per-request state, so one value can
// serve concurrent requests.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Skt329/Image-Resizer/pkg/decoder"
	"github.com/Skt329/Image-Resizer/pkg/density"
	"github.com/Skt329/Image-Resizer/pkg/encoder"
	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/resampler"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

// Config holds configuration for the pipeline
type Config struct {
	Filter    resampler.Filter
	Encoder   encoder.Config
	MaxPixels int
	// Timeout bounds the wall time of one request. Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns Lanczos resampling, the default quality ladders and
// no timeout
func DefaultConfig() Config {
	return Config{
		Filter:    resampler.Lanczos,
		Encoder:   encoder.DefaultConfig(),
		MaxPixels: decoder.DefaultMaxPixels,
	}
}

// Pipeline runs requests
type Pipeline struct {
	config    Config
	decoder   *decoder.Decoder
	resampler *resampler.Resampler
	encoder   *encoder.Encoder
	observer  Observer
	log       zerolog.Logger
}

// Outcome is the result of a request submitted with Submit
type Outcome struct {
	Output *types.Output
	Err    error
}

// New creates a Pipeline with DefaultConfig
func New() *Pipeline {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Pipeline with custom configuration
func NewWithConfig(config Config) *Pipeline {
	return &Pipeline{
		config:    config,
		decoder:   decoder.NewWithConfig(decoder.Config{MaxPixels: config.MaxPixels}),
		resampler: resampler.NewWithConfig(resampler.Config{Filter: config.Filter, MaxPixels: config.MaxPixels}),
		encoder:   encoder.NewWithConfig(config.Encoder),
		log:       zerolog.Nop(),
	}
}

// SetLogger sets the logger for the pipeline and its stages
func (p *Pipeline) SetLogger(l zerolog.Logger) {
	p.log = l.With().Str("component", "pipeline").Logger()
	p.decoder.SetLogger(l)
	p.resampler.SetLogger(l)
	p.encoder.SetLogger(l)
}

// SetObserver registers a callback for state transitions
func (p *Pipeline) SetObserver(o Observer) {
	p.observer = o
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Inspect reports the facts a caller needs to pre-fill requirements
func (p *Pipeline) Inspect(data []byte) (types.ImageInfo, error) {
	return p.decoder.Inspect(data)
}

// Process transcodes data to satisfy req. Requirements are validated before
// anything is decoded. On failure no output is returned and the error keeps
// the kind of the stage that failed; see imgerr.KindOf.
func (p *Pipeline) Process(ctx context.Context, data []byte, req types.Requirements) (*types.Output, error) {
	log := p.log.With().Str("request", uuid.NewString()).Logger()
	start := time.Now()

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	p.enter(Idle, nil)
	out, err := p.run(ctx, log, data, req)
	p.enter(Done, err)

	if err != nil {
		log.Warn().
			Err(err).
			Str("kind", imgerr.KindOf(err).String()).
			Dur("elapsed", time.Since(start)).
			Msg("request failed")
		return nil, err
	}

	log.Info().
		Str("format", out.Format.String()).
		Int("width", out.Width).
		Int("height", out.Height).
		Float64("density", out.Density).
		Int("bytes", out.ByteSize).
		Int("quality", out.Quality).
		Int("attempts", out.Attempts).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	return out, nil
}

// Submit runs Process on its own goroutine. The channel yields exactly one
// Outcome and is then closed.
func (p *Pipeline) Submit(ctx context.Context, data []byte, req types.Requirements) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		out, err := p.Process(ctx, data, req)
		ch <- Outcome{Output: out, Err: err}
	}()
	return ch
}

func (p *Pipeline) run(ctx context.Context, log zerolog.Logger, data []byte, req types.Requirements) (*types.Output, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	minBytes, maxBytes := req.SizeBounds()

	if err := p.checkpoint(ctx, Decoding); err != nil {
		return nil, err
	}
	src, err := p.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	width, height, err := DeriveDimensions(src.Width, src.Height, req)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("source-format", src.Format.String()).
		Int("source-width", src.Width).
		Int("source-height", src.Height).
		Int("width", width).
		Int("height", height).
		Int("min-bytes", minBytes).
		Int("max-bytes", maxBytes).
		Msg("requirements resolved")

	if err := p.checkpoint(ctx, Resampling); err != nil {
		return nil, err
	}
	pixels, err := p.resampler.Resample(src.Image, width, height)
	if err != nil {
		return nil, err
	}

	if err := p.checkpoint(ctx, Stamping); err != nil {
		return nil, err
	}
	buf := density.Stamp(pixels, req.Density)

	if err := p.checkpoint(ctx, Encoding); err != nil {
		return nil, err
	}
	res, err := p.encoder.Encode(buf, req.Format, minBytes, maxBytes)
	if err != nil {
		return nil, err
	}

	return &types.Output{
		Bytes:    res.Bytes,
		Width:    buf.Width(),
		Height:   buf.Height(),
		Density:  buf.Density,
		ByteSize: len(res.Bytes),
		Format:   res.Format,
		Quality:  res.Quality,
		Attempts: res.Attempts,
	}, nil
}

// checkpoint fails with Canceled when ctx is done, otherwise it enters next
func (p *Pipeline) checkpoint(ctx context.Context, next State) error {
	if err := ctx.Err(); err != nil {
		return imgerr.Wrap(imgerr.ErrCanceled, "before "+next.String(), "", err)
	}
	p.enter(next, nil)
	return nil
}

func (p *Pipeline) enter(s State, err error) {
	if p.observer != nil {
		p.observer(s, err)
	}
}
