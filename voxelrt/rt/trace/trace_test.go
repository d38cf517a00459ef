package trace

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
	"github.com/TriedAngle/Cuber/voxelrt/rt/palette"
	"github.com/TriedAngle/Cuber/voxelrt/rt/storage"
)

func newScene(dimsX, dimsY, dimsZ int) *Scene {
	return &Scene{
		Grid:    grid.NewGrid(dimsX, dimsY, dimsZ),
		Arena:   storage.NewArena(),
		Palette: palette.NewTable(),
	}
}

func TestTraceRayMissesWhenAABBNotIntersected(t *testing.T) {
	scene := newScene(2, 2, 2)
	// Ray starts past the grid's far corner, heading further away.
	res := TraceRay(scene, mgl32.Vec3{100, 100, 100}, mgl32.Vec3{1, 1, 1})

	assert.False(t, res.Hit)
	assert.Equal(t, float32(1), res.Depth)
}

func TestTraceRayMissesOnAllEmptyGrid(t *testing.T) {
	scene := newScene(2, 2, 2)
	res := TraceRay(scene, mgl32.Vec3{-1, 4, 4}, mgl32.Vec3{1, 0, 0})

	assert.False(t, res.Hit)
	assert.Equal(t, float32(1), res.Depth)
}

func TestTraceRayHitsDataBrickVoxel(t *testing.T) {
	scene := newScene(1, 1, 1)

	matAir := core.Material{Color: [4]float32{0, 0, 0, 0}}
	matSolid := core.Material{Color: [4]float32{0.2, 0.6, 0.9, 1}}
	idAir, err := scene.Palette.InternMaterial(matAir)
	require.NoError(t, err)
	idSolid, err := scene.Palette.InternMaterial(matSolid)
	require.NoError(t, err)

	paletteOffset, err := scene.Palette.InternPalette([]uint32{idAir, idSolid})
	require.NoError(t, err)

	var voxels [storage.VoxelsPerBrick]uint8
	voxels[0] = 1 // local (0,0,0); palette local index 1 resolves to idSolid

	traceBrickID, _, err := scene.Arena.WriteBrick(paletteOffset, storage.BitsPerVoxel(2), &voxels)
	require.NoError(t, err)

	scene.Grid.Set(0, 0, 0, grid.EncodeData(uint32(traceBrickID)))

	res := TraceRay(scene, mgl32.Vec3{-1, 0.5, 0.5}, mgl32.Vec3{1, 0, 0})

	require.True(t, res.Hit)
	assert.InDeltaSlice(t, []float32{0.2, 0.6, 0.9}, []float32{res.Albedo.X(), res.Albedo.Y(), res.Albedo.Z()}, 1e-6)
	assert.Greater(t, res.Depth, float32(0))
	assert.Less(t, res.Depth, float32(1))
}

func TestTraceRayHitsLodCellDirectly(t *testing.T) {
	scene := newScene(2, 1, 1)

	matLod := core.Material{Color: [4]float32{1, 0.5, 0, 1}}
	idLod, err := scene.Palette.InternMaterial(matLod)
	require.NoError(t, err)

	scene.Grid.Set(1, 0, 0, grid.EncodeLod(idLod))

	res := TraceRay(scene, mgl32.Vec3{-1, 4, 4}, mgl32.Vec3{1, 0, 0})

	require.True(t, res.Hit)
	assert.InDeltaSlice(t, []float32{1, 0.5, 0}, []float32{res.Albedo.X(), res.Albedo.Y(), res.Albedo.Z()}, 1e-6)
	assert.InDelta(t, float32(-1), res.Normal.X(), 1e-4)
	assert.InDelta(t, float32(0), res.Normal.Y(), 1e-4)
	assert.InDelta(t, float32(0), res.Normal.Z(), 1e-4)
}

func TestTraceRaySkipsEmptyRunUsingSDFHint(t *testing.T) {
	// A single Data brick far along +x with every intervening cell
	// pre-populated with a (hand-set, not computed by the sdf package)
	// SDF distance hint 7-x; the hint in cell 0 fast-skips the ray to
	// cell 6 in one jump, and TraceRay must still land on the data brick
	// and resolve its material.
	scene := newScene(8, 1, 1)

	matAir := core.Material{Color: [4]float32{0, 0, 0, 0}}
	idAir, err := scene.Palette.InternMaterial(matAir)
	require.NoError(t, err)
	matSolid := core.Material{Color: [4]float32{1, 1, 1, 1}}
	idSolid, err := scene.Palette.InternMaterial(matSolid)
	require.NoError(t, err)
	paletteOffset, err := scene.Palette.InternPalette([]uint32{idAir, idSolid})
	require.NoError(t, err)

	var voxels [storage.VoxelsPerBrick]uint8
	voxels[0] = 1
	traceBrickID, _, err := scene.Arena.WriteBrick(paletteOffset, storage.BitsPerVoxel(2), &voxels)
	require.NoError(t, err)

	scene.Grid.Set(7, 0, 0, grid.EncodeData(uint32(traceBrickID)))
	for x := 0; x < 7; x++ {
		scene.Grid.Set(x, 0, 0, grid.EncodeEmpty(uint32(7-x)))
	}

	res := TraceRay(scene, mgl32.Vec3{-1, 0.5, 0.5}, mgl32.Vec3{1, 0, 0})

	require.True(t, res.Hit)
	assert.InDeltaSlice(t, []float32{1, 1, 1}, []float32{res.Albedo.X(), res.Albedo.Y(), res.Albedo.Z()}, 1e-6)
}
