package palette

import (
	"testing"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternMaterialDedup(t *testing.T) {
	tbl := NewTable()

	red := core.Material{Color: [4]float32{1, 0, 0, 1}}
	id1, err := tbl.InternMaterial(red)
	require.NoError(t, err)

	id2, err := tbl.InternMaterial(red)
	require.NoError(t, err)
	assert.Equal(t, id1, id2, "bit-equal materials must share an id")

	blue := core.Material{Color: [4]float32{0, 0, 1, 1}}
	id3, err := tbl.InternMaterial(blue)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	assert.Equal(t, red, tbl.Material(id1))
}

func TestInternMaterialOutOfSpace(t *testing.T) {
	tbl := NewTable(WithCapacity(1, DefaultMaxPaletteWords))

	_, err := tbl.InternMaterial(core.Material{Color: [4]float32{1, 0, 0, 1}})
	require.NoError(t, err)

	_, err = tbl.InternMaterial(core.Material{Color: [4]float32{0, 1, 0, 1}})
	assert.ErrorIs(t, err, core.ErrOutOfSpace)
}

func TestInternPaletteCanonicalization(t *testing.T) {
	tbl := NewTable()

	offA, err := tbl.InternPalette([]uint32{5, 3, 3, 1})
	require.NoError(t, err)

	offB, err := tbl.InternPalette([]uint32{1, 3, 5})
	require.NoError(t, err)

	assert.Equal(t, offA, offB, "logically equal palettes must share an offset")
	assert.Equal(t, uint32(1), tbl.PaletteEntry(offA, 0))
	assert.Equal(t, uint32(3), tbl.PaletteEntry(offA, 1))
	assert.Equal(t, uint32(5), tbl.PaletteEntry(offA, 2))
}

func TestInternPaletteIdempotentUnderPermutation(t *testing.T) {
	tbl := NewTable()

	base := []uint32{9, 4, 7, 4, 9}
	perm := []uint32{7, 9, 4}

	offBase, err := tbl.InternPalette(base)
	require.NoError(t, err)
	offPerm, err := tbl.InternPalette(perm)
	require.NoError(t, err)

	assert.Equal(t, offBase, offPerm)
}

func TestPaletteArenaOutOfSpace(t *testing.T) {
	tbl := NewTable(WithCapacity(DefaultMaxMaterials, 2))

	_, err := tbl.InternPalette([]uint32{1, 2})
	require.NoError(t, err)

	_, err = tbl.InternPalette([]uint32{3, 4, 5})
	assert.ErrorIs(t, err, core.ErrOutOfSpace)
}

func TestCanonicalizeStrictlyAscending(t *testing.T) {
	got := canonicalize([]uint32{4, 4, 1, 9, 1, 2})
	want := []uint32{1, 2, 4, 9}
	assert.Equal(t, want, got)
}
