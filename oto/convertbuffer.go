package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferTo16BitLE appends buff to out as 16-bit little-endian integers,
// clipping samples outside [-1,1].
func FloatBufferTo16BitLE(buff []float32, out []byte) []byte {
	for _, v := range buff {
		var uv int16
		if v < -1.0 {
			uv = -math.MaxInt16
		} else if v > 1.0 {
			uv = math.MaxInt16
		} else {
			uv = int16(v * math.MaxInt16)
		}
		out = binary.LittleEndian.AppendUint16(out, uint16(uv))
	}
	return out
}
