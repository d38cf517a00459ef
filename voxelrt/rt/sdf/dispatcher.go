package sdf

import (
	"encoding/binary"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/TriedAngle/Cuber/voxelrt/rt/gpu"
	"github.com/TriedAngle/Cuber/voxelrt/rt/grid"
	"github.com/TriedAngle/Cuber/voxelrt/rt/shaders"
)

// Dispatcher runs the jump-flood propagation pass on the device,
// double-buffering the grid's handle storage buffer across steps
// (read A, write B, swap) so a step never observes its own write —
// the concrete mechanism behind the "ping-pong by dispatch" guarantee
// Run's CPU twin gives by buffering updates until the step ends.
type Dispatcher struct {
	device   *wgpu.Device
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout

	paramsBuf *wgpu.Buffer
}

const paramsSize = 48 // vec3<u32> dims + u32 radius + u32 max_distance, then vec3<u32> pad at its 16-byte-aligned offset 32

// NewDispatcher compiles the WGSL propagation kernel and allocates its
// uniform params buffer. Workgroup size is fixed at (8,8,4) per the
// spec.
func NewDispatcher(device *wgpu.Device) (*Dispatcher, error) {
	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "SDFPropagate",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: shaders.SDFPropagateWGSL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sdf: compile shader: %w", err)
	}
	defer mod.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "SDFPropagatePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: "propagate",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sdf: create pipeline: %w", err)
	}

	paramsBuf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SDFParams",
		Size:  paramsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("sdf: create params buffer: %w", err)
	}

	return &Dispatcher{
		device:    device,
		pipeline:  pipeline,
		layout:    pipeline.GetBindGroupLayout(0),
		paramsBuf: paramsBuf,
	}, nil
}

func (d *Dispatcher) writeParams(x, y, z int, radius uint32) {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], uint32(x))
	binary.LittleEndian.PutUint32(buf[4:], uint32(y))
	binary.LittleEndian.PutUint32(buf[8:], uint32(z))
	binary.LittleEndian.PutUint32(buf[12:], radius)
	binary.LittleEndian.PutUint32(buf[16:], grid.MaxDistance)
	d.device.GetQueue().WriteBuffer(d.paramsBuf, 0, buf)
}

func workgroups(dim, size int) uint32 {
	return uint32((dim + size - 1) / size)
}

// Run dispatches the full K-step jump-flood pass over buf's ping-pong
// handle buffers, starting from the topology currently in GridA.
// GridA holds the final, converged result on return (an even number
// of steps leaves it there; an odd count is corrected by a final
// buffer-to-buffer copy).
func (d *Dispatcher) Run(buf *gpu.Buffers, x, y, z int) error {
	maxDim := x
	if y > maxDim {
		maxDim = y
	}
	if z > maxDim {
		maxDim = z
	}
	k := Steps(maxDim)

	in, out := buf.GridA, buf.GridB
	for s := 0; s < k; s++ {
		radius := uint32(0)
		if s > 0 {
			r := maxDim >> uint(s-1)
			if r == 0 {
				break
			}
			radius = uint32(r)
		}
		d.writeParams(x, y, z, radius)

		bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: d.layout,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: d.paramsBuf, Size: wgpu.WholeSize},
				{Binding: 1, Buffer: in, Size: wgpu.WholeSize},
				{Binding: 2, Buffer: out, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("sdf: bind group step %d: %w", s, err)
		}

		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			return fmt.Errorf("sdf: command encoder step %d: %w", s, err)
		}
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(d.pipeline)
		pass.SetBindGroup(0, bg, nil)
		pass.DispatchWorkgroups(workgroups(x, 8), workgroups(y, 8), workgroups(z, 4))
		pass.End()

		cmd, err := encoder.Finish(nil)
		if err != nil {
			return fmt.Errorf("sdf: encoder finish step %d: %w", s, err)
		}
		d.device.GetQueue().Submit(cmd)

		in, out = out, in
	}

	if in != buf.GridA {
		encoder, err := d.device.CreateCommandEncoder(nil)
		if err != nil {
			return fmt.Errorf("sdf: final copy encoder: %w", err)
		}
		encoder.CopyBufferToBuffer(in, 0, buf.GridA, 0, in.GetSize())
		cmd, err := encoder.Finish(nil)
		if err != nil {
			return fmt.Errorf("sdf: final copy finish: %w", err)
		}
		d.device.GetQueue().Submit(cmd)
	}
	return nil
}
