// Package upload implements the Chunk Upload Path: it
// concatenates every chunk's mesh into one global vertex/index buffer
// pair, sized exactly to the current contents, and schedules the
// previous allocation's release once in-flight work can no longer
// reference it. Buffers are reallocated at exact size per rebuild
// rather than grown geometrically, since the mesh's byte size is
// already known up front.
package upload

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/rerr"
	"github.com/voxelsprout/renderer/internal/voxel"
)

// GlobalBuffers is the concatenated vertex/index allocation the
// orchestrator binds for the main pass's indirect draw.
type GlobalBuffers struct {
	Vertex     gpu.BufferHandle
	Index      gpu.BufferHandle
	DrawRanges []voxel.ChunkDrawRange
}

// GrassList is one chunk's billboard instance data, rebuilt only for
// dirty chunks.
type GrassList struct {
	ChunkIndex int
	Instances  []GrassInstance
}

// GrassInstance is one billboard's placement and tint, gathered
// alongside the chunk mesh rather than computed by a separate pass.
type GrassInstance struct {
	Position [3]float32
	Rotation float32
	ColorIndex uint8
}

// Path owns the global vertex/index buffers and the per-chunk grass
// instance lists, both rebuilt together each upload.
type Path struct {
	alloc    *gpu.Allocator
	timeline *gpu.Timeline

	vertex gpu.BufferHandle
	index  gpu.BufferHandle

	grass       map[int][]GrassInstance
	grassDirty  map[int]bool
}

func NewPath(alloc *gpu.Allocator, timeline *gpu.Timeline) *Path {
	return &Path{
		alloc:      alloc,
		timeline:   timeline,
		vertex:     gpu.InvalidBuffer,
		index:      gpu.InvalidBuffer,
		grass:      make(map[int][]GrassInstance),
		grassDirty: make(map[int]bool),
	}
}

// MarkGrassDirty flags a chunk's grass list for regeneration on the
// next Rebuild.
func (p *Path) MarkGrassDirty(chunkIndex int) {
	p.grassDirty[chunkIndex] = true
}

// GrassSource is the callback Rebuild uses to regenerate a dirty
// chunk's grass instances; kept as a function rather than a concrete
// generator type so world-side density/placement rules stay outside
// this package.
type GrassSource func(chunkIndex int) []GrassInstance

// Rebuild concatenates the mesh cache at the given LOD, regenerates any
// dirty chunk's grass list, and uploads both into freshly allocated,
// exactly-sized device buffers. The previous VB/IB (if any) is
// scheduled for release at releaseAt rather than destroyed immediately,
// since prior-frame draws may still be in flight against it
//.
func (p *Path) Rebuild(cache *voxel.MeshCache, grid *voxel.ChunkGrid, lod int, grassOf GrassSource, queue *wgpu.Queue, releaseAt uint64) (GlobalBuffers, error) {
	vertices, indices, ranges := voxel.BuildDrawRanges(cache, grid, lod)

	for idx, dirty := range p.grassDirty {
		if !dirty || grassOf == nil {
			continue
		}
		p.grass[idx] = grassOf(idx)
		p.grassDirty[idx] = false
	}

	prevVertex, prevIndex := p.vertex, p.index

	vertexHandle, err := p.allocateExact(fmt.Sprintf("chunk-vertex-buffer(%d)", len(vertices)), uint64(len(vertices))*8, wgpu.BufferUsageVertex)
	if err != nil {
		return GlobalBuffers{}, err
	}
	indexHandle, err := p.allocateExact(fmt.Sprintf("chunk-index-buffer(%d)", len(indices)), uint64(len(indices))*4, wgpu.BufferUsageIndex)
	if err != nil {
		if vertexHandle != gpu.InvalidBuffer {
			p.alloc.DestroyBuffer(vertexHandle)
		}
		return GlobalBuffers{}, err
	}

	if len(vertices) > 0 {
		if buf, ok := p.alloc.GetBuffer(vertexHandle); ok {
			if err := queue.WriteBuffer(buf, 0, packedVertexBytes(vertices)); err != nil {
				return GlobalBuffers{}, rerr.Wrap(rerr.AllocationFailed, "upload.Path", "writeBuffer(vertex)", err)
			}
		}
	}
	if len(indices) > 0 {
		if buf, ok := p.alloc.GetBuffer(indexHandle); ok {
			if err := queue.WriteBuffer(buf, 0, indexBytesOf(indices)); err != nil {
				return GlobalBuffers{}, rerr.Wrap(rerr.AllocationFailed, "upload.Path", "writeBuffer(index)", err)
			}
		}
	}

	if prevVertex != gpu.InvalidBuffer {
		p.timeline.ScheduleReleaseBuffer(prevVertex, releaseAt)
	}
	if prevIndex != gpu.InvalidBuffer {
		p.timeline.ScheduleReleaseBuffer(prevIndex, releaseAt)
	}
	p.vertex, p.index = vertexHandle, indexHandle

	return GlobalBuffers{Vertex: vertexHandle, Index: indexHandle, DrawRanges: ranges}, nil
}

func (p *Path) allocateExact(label string, size uint64, usage wgpu.BufferUsage) (gpu.BufferHandle, error) {
	if size == 0 {
		return gpu.InvalidBuffer, nil
	}
	return p.alloc.CreateBuffer(gpu.BufferDesc{
		Label:       label,
		Size:        size,
		Usage:       usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		HostVisible: true,
	})
}

// GrassInstances returns the current grass list for a chunk, or nil if
// the chunk has none.
func (p *Path) GrassInstances(chunkIndex int) []GrassInstance {
	return p.grass[chunkIndex]
}

func packedVertexBytes(vertices []voxel.PackedVoxelVertex) []byte {
	out := make([]byte, len(vertices)*8)
	for i, v := range vertices {
		putUint64LE(out[i*8:], uint64(v))
	}
	return out
}

func indexBytesOf(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, v := range indices {
		putUint32LE(out[i*4:], v)
	}
	return out
}

func putUint64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func putUint32LE(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}
