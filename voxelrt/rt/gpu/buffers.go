// Package gpu owns the device-side storage buffers C4 and C5 read
// from: the material table, palette arena, brick payload arena,
// TraceBrick table, and the brick-grid handle array. It is the host
// domain's upload path — C1/C2/C3 stay the source of truth on the CPU
// side; this package only mirrors their Snapshot() output into WebGPU
// buffers the compute dispatchers bind.
//
// Buffer growth follows the teacher's geometric-growth ensureBuffer
// pattern (gpu/manager.go in the teacher repo): buffers are recreated
// only when they need to grow, sized to the larger of the requirement
// plus headroom and 1.5x the previous size, so repeated small appends
// don't thrash allocation every frame.
package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/TriedAngle/Cuber/voxelrt/rt/core"
	"github.com/TriedAngle/Cuber/voxelrt/rt/storage"
)

// Headroom constants mirror the teacher's HeadroomPayload/HeadroomTables
// in gpu/manager.go: extra bytes reserved on growth so back-to-back
// ingest calls within a frame don't each force a reallocation.
const (
	HeadroomTables = 64 * 1024
	HeadroomPayload = 4 * 1024 * 1024
)

// Buffers holds the device-side mirror of C1/C2/C3. GridA/GridB are
// the jump-flood kernel's ping-pong pair (see sdf.Dispatcher); Albedo
// through Intensity belong to the ray kernel's outputs (see
// trace.Dispatcher) and are sized by Resize.
type Buffers struct {
	Device *wgpu.Device

	MaterialBuf     *wgpu.Buffer
	PaletteBuf      *wgpu.Buffer
	BrickPayloadBuf *wgpu.Buffer
	TraceBrickBuf   *wgpu.Buffer

	GridA *wgpu.Buffer
	GridB *wgpu.Buffer

	AlbedoTex    *wgpu.Texture
	DepthTex     *wgpu.Texture
	NormalTex    *wgpu.Texture
	IntensityTex *wgpu.Texture

	AlbedoView    *wgpu.TextureView
	DepthView     *wgpu.TextureView
	NormalView    *wgpu.TextureView
	IntensityView *wgpu.TextureView

	width, height uint32
}

// NewBuffers wraps a device; no GPU resources are allocated until the
// first Upload*/Resize call.
func NewBuffers(device *wgpu.Device) *Buffers {
	return &Buffers{Device: device}
}

// ensureBuffer grows *buf to fit data (plus headroom) if needed,
// always rewriting data afterward. Mirrors the teacher's
// GpuBufferManager.ensureBuffer.
func ensureBuffer(device *wgpu.Device, label string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) error {
	needed := uint64(len(data) + headroom)
	if rem := needed % 4; rem != 0 {
		needed += 4 - rem
	}
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc

	current := *buf
	if current == nil || current.GetSize() < needed {
		size := needed
		if current != nil {
			if grown := uint64(float64(current.GetSize()) * 1.5); grown > size {
				size = grown
			}
			current.Release()
		}
		newBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  size,
			Usage: usage,
		})
		if err != nil {
			return fmt.Errorf("gpu: create buffer %s: %w", label, err)
		}
		*buf = newBuf
	}
	if len(data) > 0 {
		device.GetQueue().WriteBuffer(*buf, 0, data)
	}
	return nil
}

// UploadMaterials mirrors palette.Table.Snapshot's material slice into
// MaterialBuf, bit-exact per core.Material.ToBytes.
func (b *Buffers) UploadMaterials(materials []core.Material) error {
	data := make([]byte, len(materials)*core.MaterialSize)
	for i, m := range materials {
		copy(data[i*core.MaterialSize:], m.ToBytes())
	}
	return ensureBuffer(b.Device, "MaterialBuf", &b.MaterialBuf, data, wgpu.BufferUsageStorage, HeadroomTables)
}

// UploadPalette mirrors palette.Table.Snapshot's arena into PaletteBuf.
func (b *Buffers) UploadPalette(arena []uint32) error {
	data := u32ToBytes(arena)
	return ensureBuffer(b.Device, "PaletteBuf", &b.PaletteBuf, data, wgpu.BufferUsageStorage, HeadroomTables)
}

// UploadBrickStorage mirrors storage.Arena.Snapshot's payload words and
// TraceBrick table into BrickPayloadBuf/TraceBrickBuf.
func (b *Buffers) UploadBrickStorage(words []uint32, bricks []storage.TraceBrick) error {
	if err := ensureBuffer(b.Device, "BrickPayloadBuf", &b.BrickPayloadBuf, u32ToBytes(words), wgpu.BufferUsageStorage, HeadroomPayload); err != nil {
		return err
	}
	data := make([]byte, len(bricks)*storage.TraceBrickSize)
	for i, tb := range bricks {
		copy(data[i*storage.TraceBrickSize:], tb.ToBytes())
	}
	return ensureBuffer(b.Device, "TraceBrickBuf", &b.TraceBrickBuf, data, wgpu.BufferUsageStorage, HeadroomTables)
}

// UploadGrid mirrors grid.Grid.Snapshot into the ping-pong handle
// buffers the SDF kernel reads/writes across steps. Both buffers
// start holding the same topology; the kernel alternates which one is
// "in" and which is "out" per dispatch.
func (b *Buffers) UploadGrid(handles []uint32) error {
	data := u32ToBytes(handles)
	if err := ensureBuffer(b.Device, "GridHandlesA", &b.GridA, data, wgpu.BufferUsageStorage, 0); err != nil {
		return err
	}
	return ensureBuffer(b.Device, "GridHandlesB", &b.GridB, data, wgpu.BufferUsageStorage, 0)
}

// Resize (re)creates the four per-pixel output textures the ray
// kernel writes into, releasing the previous generation if any.
func (b *Buffers) Resize(width, height uint32) error {
	if width == b.width && height == b.height && b.AlbedoTex != nil {
		return nil
	}
	b.width, b.height = width, height

	setup := func(tex **wgpu.Texture, view **wgpu.TextureView, label string, format wgpu.TextureFormat) error {
		if *tex != nil {
			(*tex).Release()
		}
		var err error
		*tex, err = b.Device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         label,
			Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        format,
			Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
		})
		if err != nil {
			return fmt.Errorf("gpu: create texture %s: %w", label, err)
		}
		*view, err = (*tex).CreateView(nil)
		if err != nil {
			return fmt.Errorf("gpu: create view %s: %w", label, err)
		}
		return nil
	}

	if err := setup(&b.AlbedoTex, &b.AlbedoView, "Albedo", wgpu.TextureFormatRGBA32Float); err != nil {
		return err
	}
	if err := setup(&b.DepthTex, &b.DepthView, "Depth", wgpu.TextureFormatR32Float); err != nil {
		return err
	}
	if err := setup(&b.NormalTex, &b.NormalView, "Normal", wgpu.TextureFormatRGBA32Float); err != nil {
		return err
	}
	return setup(&b.IntensityTex, &b.IntensityView, "Intensity", wgpu.TextureFormatR32Float)
}

func u32ToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4+0] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}
