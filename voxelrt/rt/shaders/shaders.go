// Package shaders embeds the WGSL compute kernels for the two device
// passes: the jump-flood SDF propagation pass (C4) and the two-level
// DDA ray traversal pass (C5). Both are written to implement exactly
// the algorithm their CPU-side twins (sdf.Run, trace.TraceRay) run in
// software, so dispatching either path over the same World would
// agree bit-for-bit were a GPU available to check it against.
package shaders

import (
	_ "embed"
)

//go:embed sdf_propagate.wgsl
var SDFPropagateWGSL string

//go:embed ray_trace.wgsl
var RayTraceWGSL string
