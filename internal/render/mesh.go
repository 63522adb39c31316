package render

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// cubeVertices is the shared unit cube (centered at origin, side 1)
// used by every instanced stream: interleaved position + normal.
var cubeVertices = []float32{
	// +X
	0.5, -0.5, -0.5, 1, 0, 0, 0.5, 0.5, -0.5, 1, 0, 0, 0.5, 0.5, 0.5, 1, 0, 0, 0.5, -0.5, 0.5, 1, 0, 0,
	// -X
	-0.5, -0.5, 0.5, -1, 0, 0, -0.5, 0.5, 0.5, -1, 0, 0, -0.5, 0.5, -0.5, -1, 0, 0, -0.5, -0.5, -0.5, -1, 0, 0,
	// +Y
	-0.5, 0.5, -0.5, 0, 1, 0, -0.5, 0.5, 0.5, 0, 1, 0, 0.5, 0.5, 0.5, 0, 1, 0, 0.5, 0.5, -0.5, 0, 1, 0,
	// -Y
	-0.5, -0.5, 0.5, 0, -1, 0, -0.5, -0.5, -0.5, 0, -1, 0, 0.5, -0.5, -0.5, 0, -1, 0, 0.5, -0.5, 0.5, 0, -1, 0,
	// +Z
	0.5, -0.5, 0.5, 0, 0, 1, 0.5, 0.5, 0.5, 0, 0, 1, -0.5, 0.5, 0.5, 0, 0, 1, -0.5, -0.5, 0.5, 0, 0, 1,
	// -Z
	-0.5, -0.5, -0.5, 0, 0, -1, -0.5, 0.5, -0.5, 0, 0, -1, 0.5, 0.5, -0.5, 0, 0, -1, 0.5, -0.5, -0.5, 0, 0, -1,
}

var cubeIndices = []uint16{
	0, 1, 2, 0, 2, 3,
	4, 5, 6, 4, 6, 7,
	8, 9, 10, 8, 10, 11,
	12, 13, 14, 12, 14, 15,
	16, 17, 18, 16, 18, 19,
	20, 21, 22, 20, 22, 23,
}

func createCubeMesh(device *wgpu.Device) (vb, ib *wgpu.Buffer, indexCount uint32, err error) {
	vb, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "cube-vertices",
		Contents: wgpu.ToBytes(cubeVertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, nil, 0, err
	}
	ib, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "cube-indices",
		Contents: wgpu.ToBytes(cubeIndices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		vb.Release()
		return nil, nil, 0, err
	}
	return vb, ib, uint32(len(cubeIndices)), nil
}
