package density

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"testing"

	"github.com/chai2010/webp"

	"github.com/Skt329/Image-Resizer/pkg/types"
)

// createTestImage creates a small gradient image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 96, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 0.05
}

func TestStampKeepsPixels(t *testing.T) {
	img := createTestImage(40, 30)
	before := append([]byte(nil), img.Pix...)

	buf := Stamp(img, 300)

	if buf.Width() != 40 || buf.Height() != 30 {
		t.Errorf("stamping changed dimensions to %dx%d", buf.Width(), buf.Height())
	}
	if buf.Density != 300 {
		t.Errorf("expected density 300, got %g", buf.Density)
	}
	if !bytes.Equal(before, buf.Image.Pix) {
		t.Error("stamping must not modify pixel data")
	}
}

func TestJFIFRoundTrip(t *testing.T) {
	data := encodeJPEG(t, createTestImage(32, 32))
	if _, ok := ReadJFIF(data); ok {
		t.Fatal("stdlib JPEG output should carry no JFIF density")
	}

	tagged, err := SetJFIF(data, 300)
	if err != nil {
		t.Fatalf("SetJFIF: %v", err)
	}
	dpi, ok := ReadJFIF(tagged)
	if !ok || dpi != 300 {
		t.Fatalf("ReadJFIF = %g, %v; expected 300, true", dpi, ok)
	}
	if len(tagged) != len(data)+18 {
		t.Errorf("expected an 18 byte APP0 segment, size grew by %d", len(tagged)-len(data))
	}

	// Replacing keeps a single APP0.
	retagged, err := SetJFIF(tagged, 150)
	if err != nil {
		t.Fatalf("SetJFIF again: %v", err)
	}
	if len(retagged) != len(tagged) {
		t.Errorf("re-tagging should replace the segment, size %d vs %d", len(retagged), len(tagged))
	}
	if dpi, _ := ReadJFIF(retagged); dpi != 150 {
		t.Errorf("expected 150 after re-tag, got %g", dpi)
	}

	img, err := jpeg.Decode(bytes.NewReader(retagged))
	if err != nil {
		t.Fatalf("tagged JPEG no longer decodes: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Errorf("unexpected decoded size %v", img.Bounds())
	}
}

func TestSetJFIFRejectsNonJPEG(t *testing.T) {
	if _, err := SetJFIF([]byte("not a jpeg"), 72); err == nil {
		t.Error("expected error for non-JPEG input")
	}
}

func TestPHYsRoundTrip(t *testing.T) {
	data := encodePNG(t, createTestImage(16, 8))

	tagged, err := SetPHYs(data, 300)
	if err != nil {
		t.Fatalf("SetPHYs: %v", err)
	}
	dpi, ok := ReadPHYs(tagged)
	if !ok || !closeTo(dpi, 300) {
		t.Fatalf("ReadPHYs = %g, %v; expected ~300", dpi, ok)
	}

	retagged, err := SetPHYs(tagged, 72)
	if err != nil {
		t.Fatalf("SetPHYs again: %v", err)
	}
	if len(retagged) != len(tagged) {
		t.Errorf("expected pHYs replacement, size %d vs %d", len(retagged), len(tagged))
	}
	if dpi, _ := ReadPHYs(retagged); !closeTo(dpi, 72) {
		t.Errorf("expected ~72, got %g", dpi)
	}

	// The png decoder verifies every CRC.
	img, err := png.Decode(bytes.NewReader(retagged))
	if err != nil {
		t.Fatalf("tagged PNG no longer decodes: %v", err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected decoded size %v", img.Bounds())
	}
}

func TestSetPHYsRejectsTruncated(t *testing.T) {
	data := encodePNG(t, createTestImage(4, 4))
	if _, err := SetPHYs(data[:20], 72); err == nil {
		t.Error("expected error for truncated PNG")
	}
	if _, err := SetPHYs([]byte("GIF89a"), 72); err == nil {
		t.Error("expected error for non-PNG input")
	}
}

func TestBuildEXIF(t *testing.T) {
	blob, err := BuildEXIF(300)
	if err != nil {
		t.Fatalf("BuildEXIF: %v", err)
	}
	if !bytes.HasPrefix(blob, []byte{'I', 'I', 0x2a, 0x00}) {
		t.Fatal("missing little-endian TIFF header")
	}
	if dpi, ok := readEXIF(blob); !ok || !closeTo(dpi, 300) {
		t.Errorf("expected 300 dpi back, got %g (found %v)", dpi, ok)
	}

	blob, err = BuildEXIF(72.5)
	if err != nil {
		t.Fatalf("BuildEXIF: %v", err)
	}
	if dpi, ok := readEXIF(blob); !ok || !closeTo(dpi, 72.5) {
		t.Errorf("expected 72.5 dpi back, got %g", dpi)
	}
}

func TestReadEXIFFromJPEG(t *testing.T) {
	data := encodeJPEG(t, createTestImage(16, 16))
	blob, err := BuildEXIF(240)
	if err != nil {
		t.Fatalf("BuildEXIF: %v", err)
	}
	payload := append([]byte("Exif\x00\x00"), blob...)

	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(payload)+2))
	buf.Write(payload)
	buf.Write(data[2:])

	if dpi := Read(types.FormatJPEG, buf.Bytes()); !closeTo(dpi, 240) {
		t.Errorf("expected 240 from EXIF, got %g", dpi)
	}
}

func TestWebPRoundTrip(t *testing.T) {
	img := createTestImage(32, 24)
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: 80}); err != nil {
		t.Fatalf("encode webp: %v", err)
	}
	data := buf.Bytes()

	if dpi := Read(types.FormatWebP, data); dpi != 0 {
		t.Errorf("expected 0 for untagged WebP, got %g", dpi)
	}

	for _, want := range []float64{72, 300, 600} {
		tagged, err := Apply(types.FormatWebP, data, want)
		if err != nil {
			t.Fatalf("Apply webp %g: %v", want, err)
		}
		if dpi := Read(types.FormatWebP, tagged); !closeTo(dpi, want) {
			t.Errorf("expected %g dpi, got %g", want, dpi)
		}

		decoded, err := webp.Decode(bytes.NewReader(tagged))
		if err != nil {
			t.Fatalf("tagged WebP no longer decodes: %v", err)
		}
		if b := decoded.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
			t.Errorf("tagging changed dimensions to %dx%d", b.Dx(), b.Dy())
		}
	}
}

func TestReadPrefersJFIF(t *testing.T) {
	data := encodeJPEG(t, createTestImage(16, 16))
	tagged, err := Apply(types.FormatJPEG, data, 96)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if dpi := Read(types.FormatJPEG, tagged); dpi != 96 {
		t.Errorf("expected 96, got %g", dpi)
	}
}

func TestApply(t *testing.T) {
	data := encodePNG(t, createTestImage(4, 4))

	same, err := Apply(types.FormatPNG, data, 0)
	if err != nil || !bytes.Equal(same, data) {
		t.Error("zero density should leave data untouched")
	}

	if _, err := Apply(types.FormatGIF, data, 72); err == nil {
		t.Error("expected error for unsupported format")
	}

	tagged, err := Apply(types.FormatPNG, data, 600)
	if err != nil {
		t.Fatalf("Apply png: %v", err)
	}
	if dpi := Read(types.FormatPNG, tagged); !closeTo(dpi, 600) {
		t.Errorf("expected ~600, got %g", dpi)
	}
}

func TestReadWithoutDensity(t *testing.T) {
	if dpi := Read(types.FormatPNG, encodePNG(t, createTestImage(4, 4))); dpi != 0 {
		t.Errorf("expected 0 for untagged PNG, got %g", dpi)
	}
	if dpi := Read(types.FormatBMP, []byte("BM")); dpi != 0 {
		t.Errorf("expected 0 for BMP, got %g", dpi)
	}
}
