package density

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/chai2010/webp"
	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

const (
	tagXResolution    = 0x011a
	tagResolutionUnit = 0x0128

	resolutionUnitInch = 2
	resolutionUnitCM   = 3

	rationalScale = 100

	rootIfdPath = "IFD"
)

// exifIndex is the standard IFD mapping and tag index, loaded once. Both are
// read-only after loading.
var exifIndex = sync.OnceValues(func() (*exifcommon.IfdMapping, *exif.TagIndex) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		panic(fmt.Sprintf("density: load standard IFDs: %v", err))
	}
	ti := exif.NewTagIndex()
	if err := exif.LoadStandardTags(ti); err != nil {
		panic(fmt.Sprintf("density: load standard tags: %v", err))
	}
	return im, ti
})

// BuildEXIF returns a little-endian TIFF/EXIF block whose IFD0 holds
// XResolution, YResolution and ResolutionUnit (inch).
func BuildEXIF(dpi float64) ([]byte, error) {
	im, ti := exifIndex()
	ib := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, binary.LittleEndian)

	res := []exifcommon.Rational{{
		Numerator:   uint32(math.Round(dpi * rationalScale)),
		Denominator: rationalScale,
	}}
	if err := ib.AddStandardWithName("XResolution", res); err != nil {
		return nil, fmt.Errorf("exif XResolution: %w", err)
	}
	if err := ib.AddStandardWithName("YResolution", res); err != nil {
		return nil, fmt.Errorf("exif YResolution: %w", err)
	}
	if err := ib.AddStandardWithName("ResolutionUnit", []uint16{resolutionUnitInch}); err != nil {
		return nil, fmt.Errorf("exif ResolutionUnit: %w", err)
	}

	return exif.NewIfdByteEncoder().EncodeToExif(ib)
}

// SetWebPEXIF attaches an EXIF chunk carrying dpi to an encoded WebP image
func SetWebPEXIF(data []byte, dpi float64) ([]byte, error) {
	blob, err := BuildEXIF(dpi)
	if err != nil {
		return nil, err
	}
	return webp.SetMetadata(data, blob, "EXIF")
}

// ReadWebPEXIF reads the density from a WebP EXIF chunk
func ReadWebPEXIF(data []byte) (float64, bool) {
	raw, err := webp.GetMetadata(data, "EXIF")
	if err != nil || len(raw) == 0 {
		return 0, false
	}
	return readEXIF(raw)
}

// readEXIF searches data for an EXIF block and converts IFD0 XResolution to
// dots per inch. Thumbnail IFDs are ignored.
func readEXIF(data []byte) (float64, bool) {
	tags, _, err := exif.GetFlatExifDataUniversalSearch(data, nil, true)
	if err != nil {
		return 0, false
	}

	var (
		xres     float64
		unit     uint16 = resolutionUnitInch
		seenUnit bool
	)
	// IFD0 and the thumbnail IFD share a path; the first occurrence wins.
	for _, tag := range tags {
		if tag.IfdPath != rootIfdPath {
			continue
		}
		switch tag.TagId {
		case tagXResolution:
			if xres > 0 {
				continue
			}
			if rats, ok := tag.Value.([]exifcommon.Rational); ok && len(rats) > 0 && rats[0].Denominator != 0 {
				xres = float64(rats[0].Numerator) / float64(rats[0].Denominator)
			}
		case tagResolutionUnit:
			if units, ok := tag.Value.([]uint16); ok && len(units) > 0 && !seenUnit {
				unit = units[0]
				seenUnit = true
			}
		}
	}

	if xres <= 0 {
		return 0, false
	}
	switch unit {
	case resolutionUnitCM:
		return round2(xres * 2.54), true
	case resolutionUnitInch:
		return round2(xres), true
	default:
		return 0, false
	}
}

