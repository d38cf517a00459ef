package grid

import (
	"sync"
	"sync/atomic"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
)

// Grid is a dense X*Y*Z array of BrickHandles in row-major order
// (index = x + y*X + z*X*Y). Dimensions are fixed at construction;
// out-of-bounds coordinates read as the zero handle and writes are
// dropped with a logged warning, matching the ErrOutOfBounds "handled
// locally" policy.
type Grid struct {
	X, Y, Z int

	mu      sync.RWMutex
	handles []Handle

	// seen is the one cross-domain bitwise-OR write: set through
	// MarkSeen and drained by host ingest scheduling. Neither
	// trace.TraceRay nor the WGSL ray kernel calls MarkSeen. It is racy
	// by design and only ever used as a hint, so it is backed by plain
	// atomics rather than the handles mutex.
	seen []uint32

	log core.Logger
}

// Option configures a Grid at construction.
type Option func(*Grid)

func WithLogger(l core.Logger) Option {
	return func(g *Grid) {
		if l != nil {
			g.log = l
		}
	}
}

func NewGrid(x, y, z int, opts ...Option) *Grid {
	g := &Grid{
		X: x, Y: y, Z: z,
		handles: make([]Handle, x*y*z),
		seen:    make([]uint32, (x*y*z+31)/32),
		log:     core.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Grid) inBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.X && y < g.Y && z < g.Z
}

func (g *Grid) index(x, y, z int) int {
	return x + y*g.X + z*g.X*g.Y
}

// Get is bounds-checked; out of bounds yields the zero handle.
func (g *Grid) Get(x, y, z int) Handle {
	if !g.inBounds(x, y, z) {
		return Zero
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.handles[g.index(x, y, z)]
}

// Set is an in-bounds, atomic (whole-word) write. Out-of-bounds writes
// are no-ops, per the OutOfBounds error-handling policy.
func (g *Grid) Set(x, y, z int, h Handle) {
	if !g.inBounds(x, y, z) {
		g.log.Warnf("grid: Set out of bounds at (%d,%d,%d)", x, y, z)
		return
	}
	g.mu.Lock()
	g.handles[g.index(x, y, z)] = h
	g.mu.Unlock()
}

// Classify decodes h. This just forwards to the package-level decoder
// so callers holding a *Grid don't need a separate import.
func (g *Grid) Classify(h Handle) (State, uint32) { return Classify(h) }

// MarkSeen atomically sets the seen bit for (x,y,z). Out of bounds is
// a no-op.
func (g *Grid) MarkSeen(x, y, z int) {
	if !g.inBounds(x, y, z) {
		return
	}
	idx := g.index(x, y, z)
	word, bit := idx/32, uint32(idx%32)
	for {
		old := atomic.LoadUint32(&g.seen[word])
		next := old | (1 << bit)
		if next == old || atomic.CompareAndSwapUint32(&g.seen[word], old, next) {
			return
		}
	}
}

// DrainSeen calls fn for every cell whose seen bit is set, then clears
// the mask. Intended for host-side feedback-driven loading scheduling.
func (g *Grid) DrainSeen(fn func(x, y, z int)) {
	for idx := range g.seen {
		w := atomic.SwapUint32(&g.seen[idx], 0)
		for bit := 0; bit < 32; bit++ {
			if w&(1<<uint(bit)) == 0 {
				continue
			}
			flat := idx*32 + bit
			if flat >= g.X*g.Y*g.Z {
				continue
			}
			z := flat / (g.X * g.Y)
			rem := flat % (g.X * g.Y)
			y := rem / g.X
			x := rem % g.X
			fn(x, y, z)
		}
	}
}

// Snapshot returns the handles as raw uint32s, ready for GPU upload.
func (g *Grid) Snapshot() []uint32 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]uint32, len(g.handles))
	for i, h := range g.handles {
		out[i] = uint32(h)
	}
	return out
}

// Dims reports the fixed grid dimensions.
func (g *Grid) Dims() (int, int, int) { return g.X, g.Y, g.Z }
