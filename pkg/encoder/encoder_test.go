package encoder

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog"

	"github.com/Skt329/Image-Resizer/pkg/density"
	"github.com/Skt329/Image-Resizer/pkg/imgerr"
	"github.com/Skt329/Image-Resizer/pkg/types"
)

// createTestImage creates a gradient with low amplitude deterministic noise so
// JPEG sizes respond smoothly to quality
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	seed := uint32(12345)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			seed = seed*1664525 + 1013904223
			n := int(seed>>24)%17 - 8
			img.Set(x, y, color.NRGBA{
				R: clamp(x*255/width + n),
				G: clamp(y*255/height + n),
				B: clamp(128 + n),
				A: 255,
			})
		}
	}
	return img
}

func clamp(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// stubCodec returns buffers of a fixed length per level
type stubCodec struct {
	sizes []int
	def   int
	calls map[int]int
	fail  bool
}

func (c *stubCodec) Format() types.Format { return types.FormatJPEG }
func (c *stubCodec) Levels() int { return len(c.sizes) }
func (c *stubCodec) DefaultLevel() int { return c.def }
func (c *stubCodec) Setting(level int) int { return level + 1 }

func (c *stubCodec) Encode(img image.Image, level int) ([]byte, error) {
	if c.fail {
		return nil, errors.New("codec exploded")
	}
	c.calls[level]++
	return make([]byte, c.sizes[level]), nil
}

func newStubSearch(sizes []int, def, minBytes, maxBytes int) (*search, *stubCodec) {
	codec := &stubCodec{sizes: sizes, def: def, calls: make(map[int]int)}
	return &search{
		codec:    codec,
		buf:      types.PixelBuffer{Image: solidImage(1, 1, color.NRGBA{A: 255})},
		minBytes: minBytes,
		maxBytes: maxBytes,
		tried:    make(map[int]*Candidate),
		log:      zerolog.Nop(),
	}, codec
}

func linearSizes(n, step int) []int {
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = (i + 1) * step
	}
	return sizes
}

func TestSearchDefaultInWindow(t *testing.T) {
	s, codec := newStubSearch(linearSizes(100, 10), 91, 900, 950)

	best, err := s.run(DefaultMaxIterations)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if best == nil || best.Level != 91 {
		t.Fatalf("Expected the default level to be accepted, got %+v", best)
	}
	if len(codec.calls) != 1 {
		t.Errorf("Expected a single probe, got %d", len(codec.calls))
	}
}

func TestSearchDownward(t *testing.T) {
	// window holds levels 39..44 (400..450 bytes)
	s, _ := newStubSearch(linearSizes(100, 10), 91, 400, 450)

	best, err := s.run(DefaultMaxIterations)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if best == nil {
		t.Fatal("Expected an in-window candidate")
	}
	if best.Size() < 400 || best.Size() > 450 {
		t.Errorf("candidate of %d bytes outside window", best.Size())
	}
}

func TestSearchPrefersLargestInWindow(t *testing.T) {
	s, _ := newStubSearch(linearSizes(16, 100), 15, 100, 1000)

	best, err := s.run(DefaultMaxIterations)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	// levels 0..9 fit; the search keeps climbing after each hit
	if best == nil || best.Size() != 1000 {
		t.Errorf("Expected the 1000 byte candidate, got %+v", best)
	}
}

func TestSearchUpward(t *testing.T) {
	s, _ := newStubSearch(linearSizes(100, 10), 49, 800, 820)

	best, err := s.run(DefaultMaxIterations)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if best == nil || best.Size() < 800 || best.Size() > 820 {
		t.Errorf("Expected a candidate in [800, 820], got %+v", best)
	}
}

func TestSearchNeverEncodesLevelTwice(t *testing.T) {
	s, codec := newStubSearch(linearSizes(100, 10), 91, 5, 6)

	best, err := s.run(DefaultMaxIterations)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if best != nil {
		t.Fatalf("no level fits, got %+v", best)
	}
	for level, n := range codec.calls {
		if n != 1 {
			t.Errorf("level %d encoded %d times", level, n)
		}
	}
	if len(codec.calls) > DefaultMaxIterations+1 {
		t.Errorf("Expected at most %d probes, got %d", DefaultMaxIterations+1, len(codec.calls))
	}
}

func TestSearchIterationBound(t *testing.T) {
	s, codec := newStubSearch(linearSizes(1000, 1), 999, 1, 1)

	if _, err := s.run(3); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(codec.calls) > 4 {
		t.Errorf("Expected at most 4 probes, got %d", len(codec.calls))
	}
}

func TestClosestCandidate(t *testing.T) {
	// everything below the window: the largest one wins
	s, _ := newStubSearch([]int{10, 20, 30, 40}, 1, 500, 600)
	if best, _ := s.run(DefaultMaxIterations); best != nil {
		t.Fatalf("Expected no in-window candidate, got %+v", best)
	}
	if got := s.closest().Size(); got != 40 {
		t.Errorf("Expected 40 bytes, got %d", got)
	}

	// everything above the window: the smallest one wins
	s, _ = newStubSearch([]int{700, 800, 900, 1000}, 2, 500, 600)
	if best, _ := s.run(DefaultMaxIterations); best != nil {
		t.Fatalf("Expected no in-window candidate, got %+v", best)
	}
	if got := s.closest().Size(); got != 700 {
		t.Errorf("Expected 700 bytes, got %d", got)
	}
}

func TestSearchCodecFailure(t *testing.T) {
	s, codec := newStubSearch(linearSizes(10, 10), 5, 1, 2)
	codec.fail = true

	_, err := s.run(DefaultMaxIterations)
	if imgerr.KindOf(err) != imgerr.KindInternalEncoding {
		t.Errorf("Expected InternalEncodingFailure, got %v", err)
	}
}

func TestEncodeJPEGWindow(t *testing.T) {
	img := createTestImage(600, 450)
	codec := &JPEGCodec{Range: DefaultConfig().JPEG}

	low, err := codec.Encode(img, 39)
	if err != nil {
		t.Fatalf("encode q40: %v", err)
	}
	high, err := codec.Encode(img, 59)
	if err != nil {
		t.Fatalf("encode q60: %v", err)
	}
	if len(low) >= len(high) {
		t.Fatalf("test image does not grow with quality: %d >= %d", len(low), len(high))
	}

	buf := density.Stamp(img, 300)
	res, err := New().Encode(buf, types.FormatJPEG, len(low), len(high))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(res.Bytes) < len(low) || len(res.Bytes) > len(high) {
		t.Errorf("output %d outside [%d, %d]", len(res.Bytes), len(low), len(high))
	}
	if res.Format != types.FormatJPEG || res.Attempts < 2 {
		t.Errorf("unexpected result %s after %d attempts", res.Format, res.Attempts)
	}
	if got := density.Read(types.FormatJPEG, res.Bytes); got != 300 {
		t.Errorf("Expected 300 dpi in output, got %g", got)
	}
}

func TestEncodeWebPWindow(t *testing.T) {
	img := createTestImage(400, 300)
	codec := &WebPCodec{Range: DefaultConfig().WebP}

	taggedSize := func(level int) int {
		data, err := codec.Encode(img, level)
		if err != nil {
			t.Fatalf("encode level %d: %v", level, err)
		}
		data, err = density.Apply(types.FormatWebP, data, 200)
		if err != nil {
			t.Fatalf("tag level %d: %v", level, err)
		}
		return len(data)
	}
	low, high := taggedSize(29), taggedSize(69)
	if low >= high {
		t.Fatalf("test image does not grow with quality: %d >= %d", low, high)
	}

	res, err := New().Encode(density.Stamp(img, 200), types.FormatWebP, low, high)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(res.Bytes) < low || len(res.Bytes) > high {
		t.Errorf("output %d outside [%d, %d]", len(res.Bytes), low, high)
	}
	if res.Format != types.FormatWebP || res.Quality < 1 || res.Quality > 100 {
		t.Errorf("unexpected result %s at quality %d", res.Format, res.Quality)
	}
	if got := density.Read(types.FormatWebP, res.Bytes); got != 200 {
		t.Errorf("Expected 200 dpi in output, got %g", got)
	}

	decoded, err := webp.Decode(bytes.NewReader(res.Bytes))
	if err != nil {
		t.Fatalf("output does not decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("decoded %dx%d, expected 400x300", b.Dx(), b.Dy())
	}
}

func TestEncodeDeterministic(t *testing.T) {
	buf := density.Stamp(createTestImage(320, 240), 150)
	enc := New()

	for _, format := range []types.Format{types.FormatJPEG, types.FormatPNG, types.FormatWebP} {
		first, err1 := enc.Encode(buf, format, 1, 1<<30)
		second, err2 := enc.Encode(buf, format, 1, 1<<30)
		if err1 != nil || err2 != nil {
			t.Fatalf("%s: %v / %v", format, err1, err2)
		}
		if !bytes.Equal(first.Bytes, second.Bytes) {
			t.Errorf("%s: repeated encodes differ", format)
		}
	}
}

func TestEncodeSolidPNGUnattainable(t *testing.T) {
	buf := density.Stamp(solidImage(10, 10, color.NRGBA{30, 120, 200, 255}), 300)

	_, err := New().Encode(buf, types.FormatPNG, 500*1024, 600*1024)
	if !errors.Is(err, imgerr.ErrSizeUnattainable) {
		t.Fatalf("Expected SizeUnattainable, got %v", err)
	}

	var ue *imgerr.UnattainableError
	if !errors.As(err, &ue) {
		t.Fatalf("Expected *UnattainableError, got %T", err)
	}
	if ue.BestBytes <= 0 || ue.BestBytes >= 2048 {
		t.Errorf("Expected a few hundred best bytes, got %d", ue.BestBytes)
	}
	if ue.Attempts < 1 || ue.Attempts > len(pngLadder) {
		t.Errorf("unexpected attempt count %d", ue.Attempts)
	}
}

func TestEncodeTooSmallWindow(t *testing.T) {
	buf := density.Stamp(createTestImage(400, 300), 72)

	_, err := New().Encode(buf, types.FormatJPEG, 10, 20)
	best, ok := imgerr.BestBytes(err)
	if !ok {
		t.Fatalf("Expected SizeUnattainable, got %v", err)
	}
	if best <= 20 {
		t.Errorf("best effort %d should be the smallest oversize candidate", best)
	}
}

func TestEncodeWindowOrUnattainable(t *testing.T) {
	buf := density.Stamp(createTestImage(200, 150), 96)
	enc := New()

	windows := [][2]int{{1, 100}, {2000, 4000}, {5000, 9000}, {12000, 12100}, {100000, 200000}}
	for _, format := range []types.Format{types.FormatJPEG, types.FormatPNG, types.FormatWebP} {
		for _, w := range windows {
			res, err := enc.Encode(buf, format, w[0], w[1])
			if err != nil {
				if !errors.Is(err, imgerr.ErrSizeUnattainable) {
					t.Errorf("%s %v: unexpected error %v", format, w, err)
				}
				continue
			}
			if len(res.Bytes) < w[0] || len(res.Bytes) > w[1] {
				t.Errorf("%s %v: returned %d bytes", format, w, len(res.Bytes))
			}
		}
	}
}

func TestEncodeInvalidInput(t *testing.T) {
	buf := density.Stamp(createTestImage(8, 8), 72)
	enc := New()

	tests := []struct {
		name     string
		format   types.Format
		min, max int
		kind     imgerr.Kind
	}{
		{"inverted window", types.FormatJPEG, 100, 10, imgerr.KindInvalidRequirements},
		{"zero min", types.FormatJPEG, 0, 10, imgerr.KindInvalidRequirements},
		{"bmp output", types.FormatBMP, 1, 10, imgerr.KindInvalidRequirements},
	}
	for _, test := range tests {
		_, err := enc.Encode(buf, test.format, test.min, test.max)
		if got := imgerr.KindOf(err); got != test.kind {
			t.Errorf("%s: expected %s, got %s", test.name, test.kind, got)
		}
	}

	if _, err := enc.Encode(types.PixelBuffer{}, types.FormatJPEG, 1, 10); imgerr.KindOf(err) != imgerr.KindInternalEncoding {
		t.Errorf("nil buffer: expected InternalEncodingFailure, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	bad := DefaultConfig()
	bad.JPEG.Default = 101
	if err := bad.Validate(); err == nil {
		t.Error("Expected an error for default quality 101")
	}

	bad = DefaultConfig()
	bad.MaxIterations = 0
	if err := bad.Validate(); err == nil {
		t.Error("Expected an error for zero iterations")
	}
}

func BenchmarkEncodeJPEG(b *testing.B) {
	buf := density.Stamp(createTestImage(1200, 900), 300)
	enc := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		enc.Encode(buf, types.FormatJPEG, 40*1024, 60*1024)
	}
}
