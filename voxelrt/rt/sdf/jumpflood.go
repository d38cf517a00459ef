// Package sdf implements C4, the jump-flood SDF propagation kernel
// that fills EMPTY handles in the brick grid with a distance-to-
// nearest-solid hint the ray kernel can fast-skip by.
package sdf

import (
	"math"

	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
)

// Steps returns K = ceil(log2(maxDim)) + 1, the number of numbered
// steps (0..K-1) a full pass runs for a grid whose largest dimension
// is maxDim.
func Steps(maxDim int) int {
	if maxDim <= 1 {
		return 1
	}
	return int(math.Ceil(math.Log2(float64(maxDim)))) + 1
}

// Run propagates distance-to-nearest-solid into every EMPTY handle of
// g, to fixed point for g's current topology. DATA and LOD cells are
// never written. Re-running with unchanged topology reproduces the
// same result (idempotent).
func Run(g *grid.Grid) {
	x, y, z := g.Dims()
	maxDim := x
	if y > maxDim {
		maxDim = y
	}
	if z > maxDim {
		maxDim = z
	}
	K := Steps(maxDim)

	step0(g)

	for s := 1; s < K; s++ {
		r := maxDim >> uint(s-1)
		if r == 0 {
			return
		}
		step(g, r)
	}
}

// step0 initializes every EMPTY cell to MaxDistance.
func step0(g *grid.Grid) {
	x, y, z := g.Dims()
	for zz := 0; zz < z; zz++ {
		for yy := 0; yy < y; yy++ {
			for xx := 0; xx < x; xx++ {
				st, _ := g.Classify(g.Get(xx, yy, zz))
				if st == grid.StateEmpty {
					g.Set(xx, yy, zz, grid.EncodeEmpty(grid.MaxDistance))
				}
			}
		}
	}
}

type update struct {
	x, y, z int
	d       uint32
}

// step runs one jump-flood pass at radius r. All reads observe the
// state from before this step (buffered updates applied at the end),
// so a cell never reads its own write from the current step — the
// ping-pong is by dispatch, not by thread, matching the GPU kernel's
// memory-barrier separation between steps.
func step(g *grid.Grid, r int) {
	x, y, z := g.Dims()
	var updates []update

	for zz := 0; zz < z; zz++ {
		for yy := 0; yy < y; yy++ {
			for xx := 0; xx < x; xx++ {
				st, cur := g.Classify(g.Get(xx, yy, zz))
				if st != grid.StateEmpty {
					continue
				}
				best := candidateFor(g, xx, yy, zz, r, cur)
				if best != cur {
					updates = append(updates, update{xx, yy, zz, best})
				}
			}
		}
	}

	for _, u := range updates {
		g.Set(u.x, u.y, u.z, grid.EncodeEmpty(u.d))
	}
}

func candidateFor(g *grid.Grid, x, y, z, r int, cur uint32) uint32 {
	best := cur
	X, Y, Z := g.Dims()

	for ox := -1; ox <= 1; ox++ {
		for oy := -1; oy <= 1; oy++ {
			for oz := -1; oz <= 1; oz++ {
				if ox == 0 && oy == 0 && oz == 0 {
					continue // the origin neighbor is the cell's own pre-step value, a no-op candidate
				}
				nx, ny, nz := x+ox*r, y+oy*r, z+oz*r
				if nx < 0 || ny < 0 || nz < 0 || nx >= X || ny >= Y || nz >= Z {
					continue
				}
				nst, npayload := g.Classify(g.Get(nx, ny, nz))

				var candidate uint32
				switch nst {
				case grid.StateData, grid.StateLod:
					candidate = uint32(r)
				case grid.StateEmpty:
					if npayload >= grid.MaxDistance {
						continue
					}
					candidate = uint32(r) + npayload
				default: // Loading: not a usable distance source
					continue
				}
				if candidate < best {
					best = candidate
				}
			}
		}
	}
	return best
}
