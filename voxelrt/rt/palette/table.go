// Package palette implements C1, the material and palette table: a
// deduplicated list of Material records and a flat arena of
// canonicalized per-brick palettes.
package palette

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
)

// Headroom mirrors the teacher's HeadroomPayload/HeadroomTables
// constants in gpu/manager.go: default capacities sized generously so
// OutOfSpace is reachable only under deliberately tight budgets (as
// the tests do) rather than in everyday ingest.
const (
	DefaultMaxMaterials    = 1 << 16
	DefaultMaxPaletteWords = 1 << 20
)

// Table holds C1's state: the material table and the palette arena.
// A zero-value Table is not usable; construct with NewTable.
type Table struct {
	mu sync.Mutex

	materials     []core.Material
	materialIndex map[core.Material]uint32
	maxMaterials  uint32

	paletteArena []uint32
	paletteIndex map[string]uint32 // canonical byte key -> offset
	maxPalette   uint32

	log core.Logger
}

// Option configures a Table at construction time.
type Option func(*Table)

// WithCapacity overrides the default material/palette-word budgets.
func WithCapacity(maxMaterials, maxPaletteWords uint32) Option {
	return func(t *Table) {
		t.maxMaterials = maxMaterials
		t.maxPalette = maxPaletteWords
	}
}

// WithLogger attaches a logger; nil is replaced by a no-op sink.
func WithLogger(l core.Logger) Option {
	return func(t *Table) {
		if l != nil {
			t.log = l
		}
	}
}

func NewTable(opts ...Option) *Table {
	t := &Table{
		materialIndex: make(map[core.Material]uint32),
		paletteIndex:  make(map[string]uint32),
		maxMaterials:  DefaultMaxMaterials,
		maxPalette:    DefaultMaxPaletteWords,
		log:           core.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// InternMaterial returns the id of an existing bit-equal record, or
// appends m and returns the new id. Fails only on arena exhaustion.
func (t *Table) InternMaterial(m core.Material) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.materialIndex[m]; ok {
		return id, nil
	}
	if uint32(len(t.materials)) >= t.maxMaterials {
		t.log.Errorf("material table full at %d entries", t.maxMaterials)
		return 0, core.ErrOutOfSpace
	}
	id := uint32(len(t.materials))
	t.materials = append(t.materials, m)
	t.materialIndex[m] = id
	return id, nil
}

// Material is a random-access read of an interned material.
func (t *Table) Material(id uint32) core.Material {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.materials[id]
}

// MaterialCount reports how many distinct materials are interned.
func (t *Table) MaterialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.materials)
}

// Canonicalize sorts ascending and removes duplicates, matching
// invariant 5: a palette's material_ids are unique and sorted. Exposed
// so callers (e.g. host ingest) can derive a brick's bits-per-voxel
// from the same canonical length InternPalette will store under.
func Canonicalize(ids []uint32) []uint32 {
	return canonicalize(ids)
}

func canonicalize(ids []uint32) []uint32 {
	sorted := append([]uint32(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := sorted[:0:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			out = append(out, id)
		}
	}
	return out
}

func paletteKey(ids []uint32) string {
	buf := make([]byte, len(ids)*4)
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[i*4:], id)
	}
	return string(buf)
}

// InternPalette canonicalizes ids (sort ascending, dedupe), then looks
// up or appends the resulting sequence in the palette arena,
// structurally sharing the offset for any two logically equal
// palettes. Returns the u32-element offset into the arena.
func (t *Table) InternPalette(ids []uint32) (uint32, error) {
	canon := canonicalize(ids)
	key := paletteKey(canon)

	t.mu.Lock()
	defer t.mu.Unlock()

	if offset, ok := t.paletteIndex[key]; ok {
		return offset, nil
	}

	offset := uint32(len(t.paletteArena))
	if offset+uint32(len(canon)) > t.maxPalette {
		t.log.Errorf("palette arena full: need %d words, have %d/%d", len(canon), offset, t.maxPalette)
		return 0, core.ErrOutOfSpace
	}

	t.paletteArena = append(t.paletteArena, canon...)
	t.paletteIndex[key] = offset
	return offset, nil
}

// PaletteEntry is a random-access read: the material id stored at
// localIndex within the palette starting at paletteOffset.
func (t *Table) PaletteEntry(paletteOffset, localIndex uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paletteArena[paletteOffset+localIndex]
}

// Snapshot returns read-only views of the material table and palette
// arena, ready for a GPU upload (the storage-buffer shape the gpu
// package's UpdateScene-equivalent expects).
func (t *Table) Snapshot() (materials []core.Material, paletteArena []uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	materials = append([]core.Material(nil), t.materials...)
	paletteArena = append([]uint32(nil), t.paletteArena...)
	return materials, paletteArena
}
