package density

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

const (
	markerAPP0 = 0xe0
	markerSOS  = 0xda
	markerEOI  = 0xd9

	jfifUnitsNone = 0
	jfifUnitsDPI  = 1
	jfifUnitsDPCM = 2
)

var jfifIdentifier = []byte("JFIF\x00")

// SetJFIF inserts a JFIF APP0 segment directly after SOI, replacing one that
// is already there, with the density expressed in dots per inch.
func SetJFIF(data []byte, dpi float64) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return nil, errors.New("density: invalid JPEG SOI")
	}

	d := uint16(math.Min(math.Round(dpi), math.MaxUint16))
	seg := make([]byte, 0, 18)
	seg = append(seg, 0xff, markerAPP0, 0x00, 0x10)
	seg = append(seg, jfifIdentifier...)
	seg = append(seg, 0x01, 0x02, jfifUnitsDPI)
	seg = binary.BigEndian.AppendUint16(seg, d)
	seg = binary.BigEndian.AppendUint16(seg, d)
	seg = append(seg, 0x00, 0x00)

	rest := data[2:]
	if len(rest) >= 4 && rest[0] == 0xff && rest[1] == markerAPP0 {
		segLen := int(binary.BigEndian.Uint16(rest[2:4]))
		if segLen >= 2 && len(rest) >= 2+segLen && bytes.HasPrefix(rest[4:], jfifIdentifier) {
			rest = rest[2+segLen:]
		}
	}

	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, 0xff, 0xd8)
	out = append(out, seg...)
	out = append(out, rest...)
	return out, nil
}

// ReadJFIF walks the JPEG header segments up to SOS looking for a JFIF APP0
// with absolute density units.
func ReadJFIF(data []byte) (float64, bool) {
	if len(data) < 4 || data[0] != 0xff || data[1] != 0xd8 {
		return 0, false
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xff {
			return 0, false
		}
		marker := data[pos+1]
		if marker == 0xff {
			pos++
			continue
		}
		if marker == markerSOS || marker == markerEOI {
			return 0, false
		}
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			pos += 2
			continue
		}

		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if segLen < 2 || pos+2+segLen > len(data) {
			return 0, false
		}
		payload := data[pos+4 : pos+2+segLen]

		if marker == markerAPP0 && bytes.HasPrefix(payload, jfifIdentifier) && len(payload) >= 12 {
			units := payload[7]
			x := float64(binary.BigEndian.Uint16(payload[8:10]))
			switch units {
			case jfifUnitsDPI:
				return x, x > 0
			case jfifUnitsDPCM:
				return round2(x * 2.54), x > 0
			case jfifUnitsNone:
				return 0, false
			}
		}
		pos += 2 + segLen
	}
	return 0, false
}
