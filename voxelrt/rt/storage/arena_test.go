package storage

import "testing"

func TestBitsPerVoxelChoice(t *testing.T) {
	cases := []struct {
		paletteLen int
		want       uint8
	}{
		{1, 1}, {2, 1}, {3, 2}, {4, 2}, {5, 4}, {16, 4}, {17, 8}, {256, 8},
	}
	for _, c := range cases {
		if got := BitsPerVoxel(c.paletteLen); got != c.want {
			t.Errorf("BitsPerVoxel(%d) = %d, want %d", c.paletteLen, got, c.want)
		}
	}
}

func TestWriteReadVoxelRoundTrip(t *testing.T) {
	for _, b := range []uint8{1, 2, 4, 8} {
		b := b
		t.Run("", func(t *testing.T) {
			a := NewArena()
			var voxels [VoxelsPerBrick]uint8
			period := 1 << b
			if period > 256 {
				period = 256
			}
			for i := range voxels {
				voxels[i] = uint8(i % period)
			}

			id, _, err := a.WriteBrick(0, b, &voxels)
			if err != nil {
				t.Fatalf("WriteBrick: %v", err)
			}
			tb := a.TraceBrickAt(id)

			for z := 0; z < BrickSize; z++ {
				for y := 0; y < BrickSize; y++ {
					for x := 0; x < BrickSize; x++ {
						linear := x + BrickSize*y + BrickSize*BrickSize*z
						got := a.ReadVoxel(tb, x, y, z)
						if got != voxels[linear] {
							t.Fatalf("bpv=%d (%d,%d,%d): got %d want %d", b, x, y, z, got, voxels[linear])
						}
					}
				}
			}
		})
	}
}

func TestWriteBrickPeriod4ChoosesTwoBits(t *testing.T) {
	var voxels [VoxelsPerBrick]uint8
	for i := range voxels {
		voxels[i] = uint8(i % 4)
	}
	b := BitsPerVoxel(4)
	if b != 2 {
		t.Fatalf("expected 2 bits per voxel for a 4-entry palette, got %d", b)
	}

	a := NewArena()
	id, _, err := a.WriteBrick(0, b, &voxels)
	if err != nil {
		t.Fatalf("WriteBrick: %v", err)
	}
	tb := a.TraceBrickAt(id)
	for i := 0; i < VoxelsPerBrick; i++ {
		x, y, z := i%BrickSize, (i/BrickSize)%BrickSize, i/(BrickSize*BrickSize)
		if got := a.ReadVoxel(tb, x, y, z); got != voxels[i] {
			t.Fatalf("index %d: got %d want %d", i, got, voxels[i])
		}
	}
}

func TestOccupancyBitmap(t *testing.T) {
	a := NewArena()
	var voxels [VoxelsPerBrick]uint8
	voxels[0] = 0  // air
	voxels[1] = 5  // solid, local (1,0,0)

	id, _, err := a.WriteBrick(0, BitsPerVoxel(6), &voxels)
	if err != nil {
		t.Fatalf("WriteBrick: %v", err)
	}
	tb := a.TraceBrickAt(id)

	if tb.Occupied(0, 0, 0) {
		t.Error("voxel 0 is air, should not be occupied")
	}
	if !tb.Occupied(1, 0, 0) {
		t.Error("voxel 1 is solid, should be occupied")
	}
}

func TestArenaOutOfSpace(t *testing.T) {
	a := NewArena(WithMaxWords(4)) // one 1-bpv brick needs 16 words
	var voxels [VoxelsPerBrick]uint8
	_, _, err := a.WriteBrick(0, 1, &voxels)
	if err == nil {
		t.Fatal("expected ErrOutOfSpace")
	}
	if a.Len() != 0 {
		t.Fatalf("arena must stay consistent after a failed write, got len=%d", a.Len())
	}
}

func TestAdjacentBricksDoNotOverlap(t *testing.T) {
	a := NewArena()
	var voxels [VoxelsPerBrick]uint8
	_, off1, _ := a.WriteBrick(0, 8, &voxels)
	_, off2, _ := a.WriteBrick(0, 8, &voxels)

	span := uint32(wordCount(8)) * 4
	if off2 < off1+span {
		t.Fatalf("second brick at %d overlaps first brick span [%d,%d)", off2, off1, off1+span)
	}
}
