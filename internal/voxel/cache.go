package voxel

// MeshCache holds every chunk's per-LOD meshes and rebuilds only the
// chunks marked dirty. A mode change invalidates the whole cache, since
// naive and greedy meshes are not index-compatible.
type MeshCache struct {
	grid    *ChunkGrid
	mode    MeshingMode
	entries []ChunkLodMeshes
	dirty   []bool
	valid   bool

	// chunksRemeshed counts chunks rebuilt by the most recent Update
	// call, surfaced for the "exactly one chunk rebuilt" test scenario.
	chunksRemeshed int
}

func NewMeshCache(grid *ChunkGrid, mode MeshingMode) *MeshCache {
	c := &MeshCache{grid: grid, mode: mode}
	c.reset()
	return c
}

func (c *MeshCache) reset() {
	n := c.grid.Len()
	c.entries = make([]ChunkLodMeshes, n)
	c.dirty = make([]bool, n)
	for i := range c.dirty {
		c.dirty[i] = true
	}
	c.valid = false
}

// SetMode switches the mesher's merge strategy, invalidating every
// cached entry.
func (c *MeshCache) SetMode(mode MeshingMode) {
	if mode == c.mode && c.valid {
		return
	}
	c.mode = mode
	c.reset()
}

// MarkDirty flags a chunk index for rebuild on the next Update.
func (c *MeshCache) MarkDirty(chunkIndex int) {
	if chunkIndex < 0 || chunkIndex >= len(c.dirty) {
		return
	}
	c.dirty[chunkIndex] = true
}

// AddChunk grows the cache to cover a newly added grid chunk, marking
// it dirty for first build.
func (c *MeshCache) AddChunk() {
	c.entries = append(c.entries, ChunkLodMeshes{})
	c.dirty = append(c.dirty, true)
}

// Update rebuilds every dirty chunk's full LOD set and clears their
// dirty flags, returning the number of chunks rebuilt.
func (c *MeshCache) Update() int {
	c.chunksRemeshed = 0
	for i, dirty := range c.dirty {
		if !dirty {
			continue
		}
		chunk := c.grid.Chunk(i)
		var lods ChunkLodMeshes
		for lod := 0; lod < ChunkMeshLodCount; lod++ {
			lods.LODs[lod] = MeshChunkAtLOD(c.grid, chunk, lod, c.mode)
		}
		c.entries[i] = lods
		c.dirty[i] = false
		c.chunksRemeshed++
	}
	c.valid = true
	return c.chunksRemeshed
}

func (c *MeshCache) Entry(chunkIndex int) ChunkLodMeshes { return c.entries[chunkIndex] }

func (c *MeshCache) ChunksRemeshed() int { return c.chunksRemeshed }

func (c *MeshCache) Valid() bool { return c.valid }

// ChunkDrawRange locates one chunk/LOD's slice within the global,
// concatenated vertex/index buffers the Chunk Upload Path builds
//: indices are only rebased to global vertex offsets at
// concatenation time, never inside the per-chunk mesh itself.
type ChunkDrawRange struct {
	ChunkIndex  int
	LOD         int
	FirstIndex  uint32
	IndexCount  uint32
	BaseVertex  int32
	ChunkOffset [3]float32
}

// BuildDrawRanges concatenates every chunk's mesh at the requested LOD
// into one global vertex/index pair, rebasing each chunk's local
// indices by its running vertex-count offset.
func BuildDrawRanges(cache *MeshCache, grid *ChunkGrid, lod int) ([]PackedVoxelVertex, []uint32, []ChunkDrawRange) {
	var vertices []PackedVoxelVertex
	var indices []uint32
	ranges := make([]ChunkDrawRange, 0, grid.Len())

	for i := 0; i < grid.Len(); i++ {
		mesh := cache.Entry(i).LODs[lod]
		baseVertex := int32(len(vertices))
		firstIndex := uint32(len(indices))

		vertices = append(vertices, mesh.Vertices...)
		for _, idx := range mesh.Indices {
			indices = append(indices, idx+uint32(baseVertex))
		}

		ranges = append(ranges, ChunkDrawRange{
			ChunkIndex:  i,
			LOD:         lod,
			FirstIndex:  firstIndex,
			IndexCount:  uint32(len(mesh.Indices)),
			BaseVertex:  0, // indices already rebased above
			ChunkOffset: grid.Chunk(i).WorldOffset(),
		})
	}
	return vertices, indices, ranges
}
