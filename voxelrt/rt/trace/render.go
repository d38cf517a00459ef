package trace

import (
	"github.com/go-gl/mathgl/mgl32"
)

// CameraFrame is the per-frame renderer-consumption input from
// spec.md §6: the inverse view-projection matrix, camera world
// position, and the viewport to fill.
type CameraFrame struct {
	InvViewProj mgl32.Mat4
	CameraPos   mgl32.Vec3
	Width       int
	Height      int
}

// Frame holds the four output images Render fills, row-major with
// (0,0) at the top-left pixel.
type Frame struct {
	Width, Height int
	Albedo        []mgl32.Vec4
	Depth         []float32
	Normal        []mgl32.Vec3
	Intensity     []float32
}

func newFrame(w, h int) *Frame {
	n := w * h
	return &Frame{
		Width: w, Height: h,
		Albedo:    make([]mgl32.Vec4, n),
		Depth:     make([]float32, n),
		Normal:    make([]mgl32.Vec3, n),
		Intensity: make([]float32, n),
	}
}

// pixelRay reconstructs the world-space ray direction through pixel
// (px,py)'s center, mirroring the WGSL kernel's ndc_ray exactly: NDC
// from pixel center, unproject near/far clip points, normalize.
func pixelRay(cam CameraFrame, px, py int) mgl32.Vec3 {
	ndcX := (float32(px)+0.5)/float32(cam.Width)*2 - 1
	ndcY := 1 - (float32(py)+0.5)/float32(cam.Height)*2

	near := cam.InvViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, -1, 1})
	far := cam.InvViewProj.Mul4x1(mgl32.Vec4{ndcX, ndcY, 1, 1})
	pNear := mgl32.Vec3{near[0] / near[3], near[1] / near[3], near[2] / near[3]}
	pFar := mgl32.Vec3{far[0] / far[3], far[1] / far[3], far[2] / far[3]}
	return pFar.Sub(pNear).Normalize()
}

// Render is the CPU reference implementation of the ray traversal
// kernel over an entire viewport: the golden-scenario oracle (spec.md
// §8) and the software fallback path when no device is available.
func Render(scene *Scene, cam CameraFrame) *Frame {
	frame := newFrame(cam.Width, cam.Height)
	for py := 0; py < cam.Height; py++ {
		for px := 0; px < cam.Width; px++ {
			dir := pixelRay(cam, px, py)
			res := TraceRay(scene, cam.CameraPos, dir)

			idx := py*cam.Width + px
			alpha := float32(0)
			if res.Hit {
				alpha = 1
			}
			frame.Albedo[idx] = mgl32.Vec4{res.Albedo.X(), res.Albedo.Y(), res.Albedo.Z(), alpha}
			frame.Depth[idx] = res.Depth
			frame.Normal[idx] = res.Normal
			frame.Intensity[idx] = res.Intensity
		}
	}
	return frame
}
