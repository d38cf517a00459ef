// Package storage implements C2, brick storage: a single growable
// arena of palette-indexed voxel payloads at 1/2/4/8 bits per voxel,
// plus the TraceBrick occupancy bitmap that is the ray kernel's
// fast-path "is there anything here at all" test.
package storage

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
)

// BrickSize is fixed: 8x8x8 = 512 voxels. Many addressing and
// bit-layout decisions below depend on this exact value.
const (
	BrickSize       = 8
	VoxelsPerBrick  = BrickSize * BrickSize * BrickSize // 512
	OccupancyWords  = VoxelsPerBrick / 32                // 16
	DefaultMaxWords = 1 << 24                            // 64 MiB of u32s
)

// bpvCode/bpvFromCode implement the bit-exact TraceBrick.brick field:
// top 3 bits = format code, 0 -> 1 bpv, 1 -> 2 bpv, 3 -> 4 bpv, any
// other value -> 8 bpv. We canonicalize "other" to 7.
func bpvCode(bitsPerVoxel uint8) uint32 {
	switch bitsPerVoxel {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 3
	case 8:
		return 7
	default:
		panic(fmt.Sprintf("storage: invalid bits-per-voxel %d", bitsPerVoxel))
	}
}

func bpvFromCode(code uint32) uint8 {
	switch code {
	case 0:
		return 1
	case 1:
		return 2
	case 3:
		return 4
	default:
		return 8
	}
}

// BitsPerVoxel picks the smallest power-of-two b in {1,2,4,8} with
// 2^b >= paletteLen.
func BitsPerVoxel(paletteLen int) uint8 {
	switch {
	case paletteLen <= 2:
		return 1
	case paletteLen <= 4:
		return 2
	case paletteLen <= 16:
		return 4
	default:
		return 8
	}
}

// TraceBrick is the fast-path occupancy bitmap co-located with the
// byte offset of the brick's packed payload, its bits-per-voxel
// format code, and the palette offset this brick indexes into.
//
// Bit-exact layout: u32 raw[16] (occupancy) + u32 brick (top 3 bits
// format code, bottom 29 bits byte offset) + u32 palette.
type TraceBrick struct {
	Raw     [OccupancyWords]uint32
	Brick   uint32
	Palette uint32
}

const brickOffsetMask = (1 << 29) - 1

// TraceBrickSize is the bit-exact on-device size: 16 occupancy words +
// the brick word + the palette word, 72 bytes total.
const TraceBrickSize = (OccupancyWords + 2) * 4

// ToBytes packs tb into its bit-exact on-device layout (u32 raw[16] +
// u32 brick + u32 palette), ready for a storage-buffer upload.
func (tb TraceBrick) ToBytes() []byte {
	buf := make([]byte, TraceBrickSize)
	for i, w := range tb.Raw {
		binary.LittleEndian.PutUint32(buf[i*4:], w)
	}
	binary.LittleEndian.PutUint32(buf[OccupancyWords*4:], tb.Brick)
	binary.LittleEndian.PutUint32(buf[(OccupancyWords+1)*4:], tb.Palette)
	return buf
}

// ByteOffset is the byte offset into the arena where this brick's
// packed payload begins.
func (tb TraceBrick) ByteOffset() uint32 { return tb.Brick & brickOffsetMask }

// BitsPerVoxel decodes the stored format code.
func (tb TraceBrick) BitsPerVoxel() uint8 { return bpvFromCode(tb.Brick >> 29) }

// Occupied reports whether local (x,y,z) has a non-air voxel,
// answered purely from the 512-bit occupancy mask without touching
// the variable-width payload.
func (tb TraceBrick) Occupied(x, y, z int) bool {
	linear := x + BrickSize*y + BrickSize*BrickSize*z
	word := linear / 32
	bit := uint(linear % 32)
	return tb.Raw[word]&(1<<bit) != 0
}

func setOccupied(raw *[OccupancyWords]uint32, linear int) {
	word := linear / 32
	bit := uint(linear % 32)
	raw[word] |= 1 << bit
}

// Arena is C2's single growable store of u32 elements. Every brick's
// payload starts at a 4-byte-aligned offset (trivially true since the
// arena is itself []uint32).
type Arena struct {
	mu sync.Mutex

	words    []uint32
	maxWords uint32

	bricks []TraceBrick

	log core.Logger
}

type Option func(*Arena)

func WithMaxWords(max uint32) Option {
	return func(a *Arena) { a.maxWords = max }
}

func WithLogger(l core.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.log = l
		}
	}
}

func NewArena(opts ...Option) *Arena {
	a := &Arena{
		maxWords: DefaultMaxWords,
		log:      core.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// wordCount is the u32 count occupied by a brick payload at the given
// bits-per-voxel: bitsPerVoxel * 512 / 32 (invariant 6).
func wordCount(bitsPerVoxel uint8) int {
	return int(bitsPerVoxel) * VoxelsPerBrick / 32
}

// WriteBrick packs voxels at bitsPerVoxel, appends the payload to the
// arena, and records a TraceBrick (occupancy bitmap + byte offset +
// palette offset). Returns the new TraceBrick's index and the byte
// offset of its payload. Fails with ErrOutOfSpace on arena overflow,
// leaving the arena exactly as it was before the call.
func (a *Arena) WriteBrick(paletteOffset uint32, bitsPerVoxel uint8, voxels *[VoxelsPerBrick]uint8) (traceBrickID int, brickOffset uint32, err error) {
	nWords := wordCount(bitsPerVoxel)
	vpu32 := 32 / int(bitsPerVoxel)
	mask := uint32((1 << bitsPerVoxel) - 1)

	a.mu.Lock()
	defer a.mu.Unlock()

	if uint32(len(a.words)+nWords) > a.maxWords {
		a.log.Errorf("brick arena full: need %d words, have %d/%d", nWords, len(a.words), a.maxWords)
		return 0, 0, core.ErrOutOfSpace
	}

	byteOffset := uint32(len(a.words)) * 4
	payload := make([]uint32, nWords)

	var raw [OccupancyWords]uint32
	for linear := 0; linear < VoxelsPerBrick; linear++ {
		v := voxels[linear]
		if v != 0 {
			setOccupied(&raw, linear)
		}
		wordIdx := linear / vpu32
		bitOff := uint((linear % vpu32)) * uint(bitsPerVoxel)
		payload[wordIdx] |= (uint32(v) & mask) << bitOff
	}

	a.words = append(a.words, payload...)

	tb := TraceBrick{
		Raw:     raw,
		Brick:   (bpvCode(bitsPerVoxel) << 29) | (byteOffset & brickOffsetMask),
		Palette: paletteOffset,
	}
	a.bricks = append(a.bricks, tb)
	return len(a.bricks) - 1, byteOffset, nil
}

// TraceBrickAt is a random-access read of a previously written
// TraceBrick by id.
func (a *Arena) TraceBrickAt(id int) TraceBrick {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bricks[id]
}

// ReadVoxel returns the palette index (0 = air) stored at local
// (x,y,z) within tb, by the addressing formula in the data model:
// linear = x + 8y + 64z; vpu32 = 32/b; word_index = B/4 + linear/vpu32;
// bit_offset = (linear mod vpu32) * b.
func (a *Arena) ReadVoxel(tb TraceBrick, x, y, z int) uint8 {
	b := tb.BitsPerVoxel()
	vpu32 := 32 / int(b)
	mask := uint32((1 << b) - 1)

	linear := x + BrickSize*y + BrickSize*BrickSize*z
	wordIndex := tb.ByteOffset()/4 + uint32(linear/vpu32)
	bitOffset := uint((linear % vpu32)) * uint(b)

	a.mu.Lock()
	defer a.mu.Unlock()
	return uint8((a.words[wordIndex] >> bitOffset) & mask)
}

// Len is the current element count of the payload arena.
func (a *Arena) Len() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.words))
}

// Snapshot returns read-only copies of the payload words and the
// TraceBrick table, ready for GPU upload (the shapes the teacher's
// gpu.GpuBufferManager calls BrickPoolPayloadBuf and BrickTableBuf).
func (a *Arena) Snapshot() (words []uint32, bricks []TraceBrick) {
	a.mu.Lock()
	defer a.mu.Unlock()
	words = append([]uint32(nil), a.words...)
	bricks = append([]TraceBrick(nil), a.bricks...)
	return words, bricks
}
