package density

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

const physUnitMeter = 1

// SetPHYs places a pHYs chunk right after IHDR and drops any existing one.
func SetPHYs(data []byte, dpi float64) ([]byte, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("density: invalid PNG signature")
	}

	ppm := uint32(math.Round(dpi * inchesPerMeter))
	payload := make([]byte, 0, 9)
	payload = binary.BigEndian.AppendUint32(payload, ppm)
	payload = binary.BigEndian.AppendUint32(payload, ppm)
	payload = append(payload, physUnitMeter)
	phys := buildChunk("pHYs", payload)

	out := make([]byte, 0, len(data)+len(phys))
	out = append(out, pngSignature...)

	pos := len(pngSignature)
	inserted := false
	for pos < len(data) {
		name, chunk, err := nextChunk(data, pos)
		if err != nil {
			return nil, err
		}
		pos += len(chunk)

		if name == "pHYs" {
			continue
		}
		out = append(out, chunk...)
		if name == "IHDR" && !inserted {
			out = append(out, phys...)
			inserted = true
		}
		if name == "IEND" {
			break
		}
	}
	if !inserted {
		return nil, errors.New("density: PNG has no IHDR chunk")
	}
	return out, nil
}

// ReadPHYs returns the pHYs density in dots per inch when the unit is meters
func ReadPHYs(data []byte) (float64, bool) {
	if !bytes.HasPrefix(data, pngSignature) {
		return 0, false
	}

	pos := len(pngSignature)
	for pos < len(data) {
		name, chunk, err := nextChunk(data, pos)
		if err != nil {
			return 0, false
		}
		pos += len(chunk)

		switch name {
		case "pHYs":
			body := chunk[8 : len(chunk)-4]
			if len(body) != 9 || body[8] != physUnitMeter {
				return 0, false
			}
			ppm := float64(binary.BigEndian.Uint32(body[0:4]))
			return round2(ppm / inchesPerMeter), ppm > 0
		case "IDAT", "IEND":
			return 0, false
		}
	}
	return 0, false
}

// nextChunk returns the chunk type and the full chunk bytes (length, type,
// data and CRC) starting at pos.
func nextChunk(data []byte, pos int) (string, []byte, error) {
	if pos+8 > len(data) {
		return "", nil, errors.New("density: truncated PNG chunk header")
	}
	length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	end := pos + 12 + length
	if length < 0 || end > len(data) {
		return "", nil, errors.New("density: truncated PNG chunk")
	}
	return string(data[pos+4 : pos+8]), data[pos:end], nil
}

func buildChunk(chunkType string, payload []byte) []byte {
	chunk := make([]byte, 0, 12+len(payload))
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, chunkType...)
	chunk = append(chunk, payload...)
	crc := crc32.ChecksumIEEE(chunk[4:])
	return binary.BigEndian.AppendUint32(chunk, crc)
}
