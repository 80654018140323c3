// Package encoder finds an encoding of a pixel buffer whose byte length lies
// inside a closed size window. The search is a bounded binary search over a
// codec's quality ladder; it uses no randomness and no clocks, so identical
// inputs always produce identical bytes.
package encoder

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Skt329/Image-Resizer/pkg/density"
	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

const stage = "encode"

// DefaultMaxIterations bounds the probes made after the initial default probe
const DefaultMaxIterations = 10

// Encoder runs size-constrained searches. It holds no per-request state.
type Encoder struct {
	config Config
	log    zerolog.Logger
}

// Config holds configuration for the encoder
type Config struct {
	MaxIterations int
	JPEG          QualityRange
	WebP          QualityRange
}

// DefaultConfig returns q in [1, 100] starting at 92 for the lossy codecs
func DefaultConfig() Config {
	return Config{
		MaxIterations: DefaultMaxIterations,
		JPEG:          QualityRange{Min: 1, Max: 100, Default: 92},
		WebP:          QualityRange{Min: 1, Max: 100, Default: 92},
	}
}

// Validate checks the search configuration
func (c Config) Validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if err := c.JPEG.Validate(); err != nil {
		return fmt.Errorf("jpeg: %w", err)
	}
	if err := c.WebP.Validate(); err != nil {
		return fmt.Errorf("webp: %w", err)
	}
	return nil
}

// Candidate is one probe of the search
type Candidate struct {
	Level   int
	Quality int
	Bytes   []byte
}

// Size returns the encoded length
func (c *Candidate) Size() int {
	return len(c.Bytes)
}

// Result is the accepted candidate plus search statistics
type Result struct {
	Format   types.Format
	Bytes    []byte
	Quality  int
	Attempts int
}

// New creates an Encoder with DefaultConfig
func New() *Encoder {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Encoder with custom configuration
func NewWithConfig(config Config) *Encoder {
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	return &Encoder{config: config, log: zerolog.Nop()}
}

// SetLogger replaces the encoder's logger
func (e *Encoder) SetLogger(l zerolog.Logger) {
	e.log = l.With().Str("component", "encoder").Logger()
}

// CodecFor returns the codec used for format
func (e *Encoder) CodecFor(format types.Format) (Codec, error) {
	switch format {
	case types.FormatJPEG:
		return &JPEGCodec{Range: e.config.JPEG}, nil
	case types.FormatPNG:
		return &PNGCodec{}, nil
	case types.FormatWebP:
		return &WebPCodec{Range: e.config.WebP}, nil
	default:
		return nil, imgerr.Wrapf(imgerr.ErrInvalidRequirements, stage, "cannot encode %s", format)
	}
}

// Encode returns an encoding of buf in format whose length lies in
// [minBytes, maxBytes], tagged with buf.Density. When no probe lands in the
// window it fails with *imgerr.UnattainableError and never returns the
// out-of-range bytes.
func (e *Encoder) Encode(buf types.PixelBuffer, format types.Format, minBytes, maxBytes int) (*Result, error) {
	if minBytes <= 0 || minBytes > maxBytes {
		return nil, imgerr.Wrapf(imgerr.ErrInvalidRequirements, stage, "size window [%d, %d] is empty", minBytes, maxBytes)
	}
	if buf.Image == nil {
		return nil, imgerr.Wrapf(imgerr.ErrInternalEncoding, stage, "no pixel buffer")
	}
	codec, err := e.CodecFor(format)
	if err != nil {
		return nil, err
	}

	s := &search{
		codec:    codec,
		buf:      buf,
		minBytes: minBytes,
		maxBytes: maxBytes,
		tried:    make(map[int]*Candidate),
		log:      e.log,
	}
	best, err := s.run(e.config.MaxIterations)
	if err != nil {
		return nil, err
	}

	if best == nil {
		closest := s.closest()
		return nil, &imgerr.UnattainableError{
			Format:    format.String(),
			BestBytes: closest.Size(),
			MinBytes:  minBytes,
			MaxBytes:  maxBytes,
			Attempts:  len(s.tried),
		}
	}

	e.log.Debug().
		Str("format", format.String()).
		Int("quality", best.Quality).
		Int("bytes", best.Size()).
		Int("attempts", len(s.tried)).
		Msg("size window satisfied")

	return &Result{
		Format:   format,
		Bytes:    best.Bytes,
		Quality:  best.Quality,
		Attempts: len(s.tried),
	}, nil
}

// search is the state of one Encode call. It is never shared.
type search struct {
	codec    Codec
	buf      types.PixelBuffer
	minBytes int
	maxBytes int
	tried    map[int]*Candidate
	log      zerolog.Logger
}

// run probes the default level, then halves the interval on the side of the
// window the probe missed. In-window hits keep moving upward so the largest
// acceptable candidate wins.
func (s *search) run(maxIterations int) (*Candidate, error) {
	def := s.codec.DefaultLevel()
	first, err := s.probe(def)
	if err != nil {
		return nil, err
	}
	if s.inWindow(first) {
		return first, nil
	}

	lo, hi := def+1, s.codec.Levels()-1
	if first.Size() > s.maxBytes {
		lo, hi = 0, def-1
	}

	for i := 0; i < maxIterations && lo <= hi; i++ {
		mid := lo + (hi-lo)/2
		c, err := s.probe(mid)
		if err != nil {
			return nil, err
		}
		switch {
		case c.Size() > s.maxBytes:
			hi = mid - 1
		default:
			lo = mid + 1
		}
	}

	return s.bestInWindow(), nil
}

func (s *search) probe(level int) (*Candidate, error) {
	if c, ok := s.tried[level]; ok {
		return c, nil
	}

	data, err := s.codec.Encode(s.buf.Image, level)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.ErrInternalEncoding, stage, s.codec.Format().String(), err)
	}
	data, err = density.Apply(s.codec.Format(), data, s.buf.Density)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.ErrInternalEncoding, stage, "density tag", err)
	}

	c := &Candidate{Level: level, Quality: s.codec.Setting(level), Bytes: data}
	s.tried[level] = c

	s.log.Debug().
		Str("format", s.codec.Format().String()).
		Int("level", level).
		Int("quality", c.Quality).
		Int("bytes", c.Size()).
		Bool("in-window", s.inWindow(c)).
		Msg("probe")

	return c, nil
}

func (s *search) inWindow(c *Candidate) bool {
	return c.Size() >= s.minBytes && c.Size() <= s.maxBytes
}

// candidates returns the probes ordered by level
func (s *search) candidates() []*Candidate {
	out := make([]*Candidate, 0, len(s.tried))
	for _, c := range s.tried {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out
}

// bestInWindow prefers the largest in-window candidate, the one nearest to
// maxBytes from below. Ties go to the higher level.
func (s *search) bestInWindow() *Candidate {
	var best *Candidate
	for _, c := range s.candidates() {
		if !s.inWindow(c) {
			continue
		}
		if best == nil || c.Size() >= best.Size() {
			best = c
		}
	}
	return best
}

// closest picks the reference candidate for a failed search: the largest one
// not above maxBytes, or the smallest one overall when every probe was too big.
func (s *search) closest() *Candidate {
	var under, smallest *Candidate
	for _, c := range s.candidates() {
		if c.Size() <= s.maxBytes && (under == nil || c.Size() >= under.Size()) {
			under = c
		}
		if smallest == nil || c.Size() < smallest.Size() {
			smallest = c
		}
	}
	if under != nil {
		return under
	}
	return smallest
}
