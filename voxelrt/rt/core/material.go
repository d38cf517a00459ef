package core

import (
	"encoding/binary"
	"math"
)

// MaterialSize is the bit-exact, 16-byte-aligned GPU layout: 16 bytes
// color + 16 bytes (emissive rgb + one f32) + 4 bytes metallic + 4
// bytes roughness + 8 bytes padding.
const MaterialSize = 48

// Material is a PBR record. Identity is bit-equality of the whole
// record, so Material is deliberately a plain comparable struct —
// callers intern it by value, never by pointer.
type Material struct {
	Color     [4]float32 // rgba
	Emissive  [3]float32 // rgb
	Opaque    float32
	Metallic  float32
	Roughness float32
	_pad      [2]float32
}

// ToBytes packs the material into its bit-exact on-device layout.
func (m Material) ToBytes() []byte {
	buf := make([]byte, MaterialSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	put(0, m.Color[0])
	put(4, m.Color[1])
	put(8, m.Color[2])
	put(12, m.Color[3])
	put(16, m.Emissive[0])
	put(20, m.Emissive[1])
	put(24, m.Emissive[2])
	put(28, m.Opaque)
	put(32, m.Metallic)
	put(36, m.Roughness)
	// bytes 40..48 stay zero padding.
	return buf
}
