package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
	"github.com/TriedAngle/Cuber/voxelrt/rt/palette"
	"github.com/TriedAngle/Cuber/voxelrt/rt/storage"
)

// MaxRaySteps bounds both DDA levels combined: on exhaustion TraceRay
// returns a no-hit rather than looping forever.
const MaxRaySteps = 256

// Scene bundles the three data-plane components a ray needs: the
// brick grid (handles plus SDF hints), the payload arena, and the
// material/palette table.
type Scene struct {
	Grid    *grid.Grid
	Arena   *storage.Arena
	Palette *palette.Table
}

// Result is the four-channel output of one ray.
type Result struct {
	Hit       bool
	Albedo    mgl32.Vec3
	Depth     float32
	Normal    mgl32.Vec3
	Intensity float32
}

func saturate(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func stepIntensity(steps int) float32 {
	return saturate(float32(math.Sqrt(float64(steps) / float64(6*MaxRaySteps))))
}

func miss(steps int) Result {
	return Result{Depth: 1, Intensity: stepIntensity(steps)}
}

func albedoOf(m core.Material) mgl32.Vec3 {
	return mgl32.Vec3{m.Color[0], m.Color[1], m.Color[2]}
}

// TraceRay walks origin+t*dir through scene: an outer DDA over the
// brick grid that fast-skips through empty space using the SDF hint,
// entering a brick's inner 8x8x8 voxel lattice on a DATA hit.
func TraceRay(scene *Scene, origin, dir mgl32.Vec3) Result {
	dir = safeDir(dir)
	dimX, dimY, dimZ := scene.Grid.Dims()
	gridDims := mgl32.Vec3{
		float32(dimX * storage.BrickSize),
		float32(dimY * storage.BrickSize),
		float32(dimZ * storage.BrickSize),
	}

	tEntry, tExit, ok := clipAABB(origin, dir, mgl32.Vec3{}, gridDims)
	if !ok {
		return miss(0)
	}
	if tEntry < 0 {
		tEntry = 0
	}

	raySign := mgl32.Vec3{signOf(dir.X()), signOf(dir.Y()), signOf(dir.Z())}
	outer := newWalker(origin, dir, float32(storage.BrickSize), tEntry)

	steps := 0
	for steps < MaxRaySteps {
		if outer.t > tExit {
			return miss(steps)
		}
		bx, by, bz := outer.cell()
		if bx < 0 || by < 0 || bz < 0 || bx >= dimX || by >= dimY || bz >= dimZ {
			return miss(steps)
		}
		steps++

		state, payload := scene.Grid.Classify(scene.Grid.Get(bx, by, bz))
		switch state {
		case grid.StateData:
			tb := scene.Arena.TraceBrickAt(int(payload))
			if res, hit := traceInner(scene, tb, origin, dir, bx, by, bz, outer.t, gridDims, raySign, &steps); hit {
				return res
			}
			outer.step()

		case grid.StateLod:
			hitPos := origin.Add(dir.Mul(outer.t))
			return Result{
				Hit:       true,
				Albedo:    albedoOf(scene.Palette.Material(payload)),
				Depth:     saturate(hitPos.Sub(origin).Len() / gridDims.Len()),
				Normal:    faceNormal(outer.axis, raySign),
				Intensity: stepIntensity(steps),
			}

		case grid.StateLoading:
			// "treat as empty, distance 1 (step one cell)": no fast-skip.
			outer.step()

		default: // StateEmpty
			if payload > 1 && payload < grid.MaxDistance {
				// Nothing solid lies within payload cells: jump there
				// directly and re-classify from the new cell, rather
				// than stepping past it one cell at a time.
				outer.skipWorld(payload)
				continue
			}
			outer.step()
		}
	}
	return miss(steps)
}

// traceInner walks a hit brick's 8x8x8 voxel lattice, entering at the
// outer DDA's crossing point into (bx,by,bz) at world parameter
// tEnter. Entry position is clamped into [eps, 8-eps] so the lattice
// origin is always well-defined even when the ray enters exactly on a
// brick face.
func traceInner(scene *Scene, tb storage.TraceBrick, origin, dir mgl32.Vec3, bx, by, bz int, tEnter float32, gridDims, raySign mgl32.Vec3, steps *int) (Result, bool) {
	brickOrigin := mgl32.Vec3{
		float32(bx * storage.BrickSize),
		float32(by * storage.BrickSize),
		float32(bz * storage.BrickSize),
	}
	entryWorld := origin.Add(dir.Mul(tEnter))
	local := entryWorld.Sub(brickOrigin)
	local = mgl32.Vec3{clampLocal(local.X()), clampLocal(local.Y()), clampLocal(local.Z())}

	inner := newWalker(local, dir, 1, 0)

	for *steps < MaxRaySteps {
		lx, ly, lz := inner.cell()
		if lx < 0 || ly < 0 || lz < 0 || lx >= storage.BrickSize || ly >= storage.BrickSize || lz >= storage.BrickSize {
			return Result{}, false
		}
		*steps++

		if tb.Occupied(lx, ly, lz) {
			paletteIdx := scene.Arena.ReadVoxel(tb, lx, ly, lz)
			materialID := scene.Palette.PaletteEntry(tb.Palette, uint32(paletteIdx))
			mat := scene.Palette.Material(materialID)

			hitT := tEnter + inner.t
			hitPos := origin.Add(dir.Mul(hitT))
			return Result{
				Hit:       true,
				Albedo:    albedoOf(mat),
				Depth:     saturate(hitPos.Sub(origin).Len() / gridDims.Len()),
				Normal:    faceNormal(inner.axis, raySign),
				Intensity: stepIntensity(*steps),
			}, true
		}
		inner.step()
	}
	return Result{}, false
}

func clampLocal(v float32) float32 {
	if v < epsilon {
		return epsilon
	}
	if v > float32(storage.BrickSize)-epsilon {
		return float32(storage.BrickSize) - epsilon
	}
	return v
}
