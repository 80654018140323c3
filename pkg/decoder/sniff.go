package decoder

import (
	"bytes"

	"github.com/Skt329/Image-Resizer/pkg/types"
)

var (
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	gifSig    = []byte("GIF8")
	bmpSig    = []byte("BM")
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
)

// Sniff identifies the codec from the leading bytes of data. File names and
// declared content types are never consulted.
func Sniff(data []byte) types.Format {
	switch {
	case bytes.HasPrefix(data, jpegSig):
		return types.FormatJPEG
	case bytes.HasPrefix(data, pngSig):
		return types.FormatPNG
	case len(data) >= 12 && bytes.HasPrefix(data, riffSig) && bytes.Equal(data[8:12], webpSig):
		return types.FormatWebP
	case bytes.HasPrefix(data, gifSig):
		return types.FormatGIF
	case bytes.HasPrefix(data, tiffSigLE), bytes.HasPrefix(data, tiffSigBE):
		return types.FormatTIFF
	case len(data) >= 26 && bytes.HasPrefix(data, bmpSig):
		return types.FormatBMP
	default:
		return types.FormatUnknown
	}
}

// Supported reports whether the decoder accepts the format as input.
// GIF is recognized but rejected since it belongs to the animated family.
func Supported(f types.Format) bool {
	switch f {
	case types.FormatJPEG, types.FormatPNG, types.FormatWebP, types.FormatBMP, types.FormatTIFF:
		return true
	default:
		return false
	}
}
