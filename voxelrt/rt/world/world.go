// Package world binds C1-C5 into the single façade host/ingest and
// renderer code actually imports, mirroring how the teacher's
// core.VoxelObject binds a Transform + XBrickMap + material table into
// one handle. World implements exactly the host ingest interface and
// renderer consumption interface of spec.md §6.
package world

import (
	"github.com/google/uuid"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
	"github.com/TriedAngle/Cuber/voxelrt/rt/palette"
	"github.com/TriedAngle/Cuber/voxelrt/rt/sdf"
	"github.com/TriedAngle/Cuber/voxelrt/rt/storage"
	"github.com/TriedAngle/Cuber/voxelrt/rt/trace"
)

// Config fixes the grid dimensions and arena capacities a World is
// built with. The teacher has no config-file layer for the renderer
// core, so this is a hand-built struct passed explicitly to New,
// exactly as the teacher's GpuBufferManager takes explicit headroom
// constants rather than reading them from a file.
type Config struct {
	GridX, GridY, GridZ int

	MaxMaterials    uint32
	MaxPaletteWords uint32
	MaxArenaWords   uint32

	MaxRaySteps int
}

// DefaultConfig fills in the headroom defaults C1/C2 already use,
// fixing only the grid dimensions and the C5 step budget from spec.md.
func DefaultConfig(x, y, z int) Config {
	return Config{
		GridX: x, GridY: y, GridZ: z,
		MaxMaterials:    palette.DefaultMaxMaterials,
		MaxPaletteWords: palette.DefaultMaxPaletteWords,
		MaxArenaWords:   storage.DefaultMaxWords,
		MaxRaySteps:     trace.MaxRaySteps,
	}
}

// World owns C1 (Palette), C2 (Arena), and C3 (Grid) for one session,
// and is the CPU-reference surface for C4 (DispatchSDF) and C5
// (RenderFrame). Mutations are expected to come from a single host
// goroutine (spec.md §5's host domain); concurrent device-side reads
// of the snapshots are safe once handed off.
type World struct {
	// ID is a session id minted with uuid, used purely for log-line
	// correlation across ingest and dispatch calls — never for
	// addressing (every offset inside the core stays integer-based).
	ID string

	Logger core.Logger

	Grid    *grid.Grid
	Arena   *storage.Arena
	Palette *palette.Table

	cfg   Config
	dirty bool // topology mutated since the last DispatchSDF
}

// Option configures a World at construction time.
type Option func(*World)

// WithLogger attaches a logger; nil is replaced by a no-op sink.
func WithLogger(l core.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.Logger = l
		}
	}
}

// New constructs a World with a fresh C1/C2/C3 for the given config.
func New(cfg Config, opts ...Option) *World {
	w := &World{
		ID:     uuid.NewString(),
		Logger: core.NewNopLogger(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.Grid = grid.NewGrid(cfg.GridX, cfg.GridY, cfg.GridZ, grid.WithLogger(w.Logger))
	w.Arena = storage.NewArena(storage.WithMaxWords(cfg.MaxArenaWords), storage.WithLogger(w.Logger))
	w.Palette = palette.NewTable(palette.WithCapacity(cfg.MaxMaterials, cfg.MaxPaletteWords), palette.WithLogger(w.Logger))
	return w
}

// Dims reports the fixed grid dimensions this World was built with.
func (w *World) Dims() (int, int, int) { return w.cfg.GridX, w.cfg.GridY, w.cfg.GridZ }

// --- Host ingest interface (spec.md §6) ---

// AddMaterial interns m into the material table, returning a stable id.
func (w *World) AddMaterial(m core.Material) (uint32, error) {
	return w.Palette.InternMaterial(m)
}

// InternPalette canonicalizes and interns a brick's material-id
// sequence, returning its arena offset.
func (w *World) InternPalette(ids []uint32) (uint32, error) {
	return w.Palette.InternPalette(ids)
}

// UploadBrick packs voxels at the bits-per-voxel the canonicalized
// palette requires, writes the payload and TraceBrick into C2, and
// returns a DATA handle ready to be written into C3 via SetHandle.
// voxels holds one palette-local index per of the brick's 512 cells
// (0 = air); paletteIDs are the brick's material ids before
// canonicalization.
func (w *World) UploadBrick(voxels [storage.VoxelsPerBrick]uint32, paletteIDs []uint32) (grid.Handle, error) {
	canon := palette.Canonicalize(paletteIDs)
	paletteOffset, err := w.Palette.InternPalette(paletteIDs)
	if err != nil {
		return grid.Zero, err
	}
	bpv := storage.BitsPerVoxel(len(canon))

	var packed [storage.VoxelsPerBrick]uint8
	for i, v := range voxels {
		packed[i] = uint8(v)
	}

	traceBrickID, _, err := w.Arena.WriteBrick(paletteOffset, bpv, &packed)
	if err != nil {
		return grid.Zero, err
	}
	return grid.EncodeData(uint32(traceBrickID)), nil
}

// SetHandle writes h into C3 at (x,y,z). Per the state-transition
// rules, any handle mutation invalidates the grid's SDF distances
// until the next DispatchSDF.
func (w *World) SetHandle(x, y, z int, h grid.Handle) {
	w.Grid.Set(x, y, z, h)
	w.dirty = true
	w.Logger.Debugf("world %s: set handle (%d,%d,%d)=%#x", w.ID, x, y, z, uint32(h))
}

// GetHandle reads C3 at (x,y,z); out of bounds yields the zero handle.
func (w *World) GetHandle(x, y, z int) grid.Handle { return w.Grid.Get(x, y, z) }

// DispatchSDF runs C4 (the jump-flood propagation kernel) on the CPU
// reference path to fixed point for the grid's current topology.
func (w *World) DispatchSDF() {
	sdf.Run(w.Grid)
	w.dirty = false
	w.Logger.Infof("world %s: SDF dispatched over %dx%dx%d grid", w.ID, w.cfg.GridX, w.cfg.GridY, w.cfg.GridZ)
}

// Dirty reports whether C3's topology has changed since the last
// DispatchSDF — host ingest code can use this to decide whether a
// re-run is due before the next RenderFrame.
func (w *World) Dirty() bool { return w.dirty }

// --- Renderer consumption interface (spec.md §6) ---

// RenderFrame runs C5 (the ray traversal kernel) on the CPU reference
// path over cam's viewport, returning all four output images.
func (w *World) RenderFrame(cam trace.CameraFrame) *trace.Frame {
	scene := &trace.Scene{Grid: w.Grid, Arena: w.Arena, Palette: w.Palette}
	return trace.Render(scene, cam)
}

// Stats is cheap host-side telemetry: arena occupancy, material
// count, and palette-arena size, grounded in the teacher's Profiler
// (voxelrt/rt/app/profiler.go) adapted to report brickmap occupancy
// instead of frame timings.
type Stats struct {
	MaterialCount int
	PaletteWords  int
	ArenaWords    uint32
	TraceBricks   int
}

// Stats snapshots the three tables' current sizes.
func (w *World) Stats() Stats {
	materials, paletteArena := w.Palette.Snapshot()
	words, bricks := w.Arena.Snapshot()
	return Stats{
		MaterialCount: len(materials),
		PaletteWords:  len(paletteArena),
		ArenaWords:    uint32(len(words)),
		TraceBricks:   len(bricks),
	}
}
