// Package trace implements C5, the two-level ray traversal kernel: an
// outer Amanatides-Woo walk over the brick grid with SDF fast-skip,
// and an inner walk over a hit brick's 8x8x8 voxel lattice.
package trace

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	axisX = 0
	axisY = 1
	axisZ = 2
)

// epsilon guards ray-direction components that land on exactly zero,
// mirrored from the teacher's RayMarch guard in volume/xbrickmap.go.
const epsilon = 1e-7

func safeDir(d mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{safeComponent(d.X()), safeComponent(d.Y()), safeComponent(d.Z())}
}

func safeComponent(v float32) float32 {
	if float32(math.Abs(float64(v))) < epsilon {
		if v >= 0 {
			return epsilon
		}
		return -epsilon
	}
	return v
}

func signOf(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}

// walker is one Amanatides-Woo DDA walk over a lattice whose cells are
// cellSize world units wide. It keeps its own originWorld/dirWorld so
// a fast-skip can reseek to an arbitrary world-space ray parameter
// without losing precision by re-deriving position from map/side.
type walker struct {
	originWorld mgl32.Vec3
	dirWorld    mgl32.Vec3
	cellSize    float32

	raySign mgl32.Vec3
	delta   mgl32.Vec3 // world distance crossed per one cell step, per axis

	mapX, mapY, mapZ int
	side             mgl32.Vec3
	t                float32 // world-space ray parameter at which the current cell was entered
	axis             int     // axis last stepped across to enter the current cell, -1 if none yet
}

func newWalker(originWorld, dirWorld mgl32.Vec3, cellSize, t0 float32) *walker {
	w := &walker{
		originWorld: originWorld,
		dirWorld:    dirWorld,
		cellSize:    cellSize,
		axis:        -1,
	}
	w.raySign = mgl32.Vec3{signOf(dirWorld.X()), signOf(dirWorld.Y()), signOf(dirWorld.Z())}
	w.delta = mgl32.Vec3{cellSize / dirWorld.X(), cellSize / dirWorld.Y(), cellSize / dirWorld.Z()}
	w.seek(t0)
	return w
}

// seek recomputes map and side from scratch at world-space ray
// parameter t, the "advance pos by dir*(d-1), recompute map and side"
// step the fast-skip branch performs.
func (w *walker) seek(t float32) {
	w.t = t
	p := w.originWorld.Add(w.dirWorld.Mul(t))
	p = p.Mul(1 / w.cellSize)

	w.mapX = int(math.Floor(float64(p.X())))
	w.mapY = int(math.Floor(float64(p.Y())))
	w.mapZ = int(math.Floor(float64(p.Z())))

	// side holds the absolute ray parameter of each axis' next boundary,
	// so step can assign it straight to w.t.
	w.side = mgl32.Vec3{
		t + (float32(w.mapX)-p.X()+0.5+w.raySign.X()*0.5)*w.delta.X(),
		t + (float32(w.mapY)-p.Y()+0.5+w.raySign.Y()*0.5)*w.delta.Y(),
		t + (float32(w.mapZ)-p.Z()+0.5+w.raySign.Z()*0.5)*w.delta.Z(),
	}
}

func (w *walker) cell() (int, int, int) { return w.mapX, w.mapY, w.mapZ }

// skipWorld re-seeks the walker (d-1) of its own cells further along
// the ray, the SDF fast-skip: Empty(d) with 1 < d < MaxDistance means
// nothing solid lies within d cells, so d-1 cells can be crossed in
// one jump.
func (w *walker) skipWorld(d uint32) {
	w.seek(w.t + float32(d-1)*w.cellSize)
}

// step advances to the next cell across the nearest side, breaking
// ties z first, then x, then y (so an exact three-way tie picks z).
func (w *walker) step() int {
	axis := axisZ
	best := w.side.Z()
	if w.side.X() < best {
		axis, best = axisX, w.side.X()
	}
	if w.side.Y() < best {
		axis = axisY
	}

	switch axis {
	case axisX:
		w.mapX += int(w.raySign.X())
		w.t = w.side.X()
		w.side[0] += w.delta.X()
	case axisY:
		w.mapY += int(w.raySign.Y())
		w.t = w.side.Y()
		w.side[1] += w.delta.Y()
	default:
		w.mapZ += int(w.raySign.Z())
		w.t = w.side.Z()
		w.side[2] += w.delta.Z()
	}
	w.axis = axis
	return axis
}

// faceNormal derives the six-way face normal from the axis last
// stepped across and the ray's sign: the normal always opposes the
// incoming ray direction on that axis.
func faceNormal(axis int, raySign mgl32.Vec3) mgl32.Vec3 {
	var n mgl32.Vec3
	if axis < 0 {
		return n
	}
	n[axis] = -raySign[axis]
	return n
}

// clipAABB is a standard slab test against the grid's world bounds.
// Returns ok=false on a miss (tMin > tMax or the box is entirely
// behind the origin).
func clipAABB(origin, dir, lo, hi mgl32.Vec3) (tEntry, tExit float32, ok bool) {
	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))

	o := [3]float32{origin.X(), origin.Y(), origin.Z()}
	d := [3]float32{dir.X(), dir.Y(), dir.Z()}
	l := [3]float32{lo.X(), lo.Y(), lo.Z()}
	h := [3]float32{hi.X(), hi.Y(), hi.Z()}

	for i := 0; i < 3; i++ {
		inv := 1 / d[i]
		t0 := (l[i] - o[i]) * inv
		t1 := (h[i] - o[i]) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
	}
	if tMin > tMax || tMax < 0 {
		return 0, 0, false
	}
	return tMin, tMax, true
}
