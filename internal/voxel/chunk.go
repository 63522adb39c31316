// Package voxel implements chunk storage, the greedy quad-merging
// mesher, and per-chunk multi-LOD mesh caching.
package voxel

// VoxelType is a palette-independent block/material tag. Empty (zero
// value) marks an unoccupied cell.
type VoxelType uint8

const Empty VoxelType = 0

// Voxel is one cell's payload: a type tag plus a 4-bit palette-color
// index.
type Voxel struct {
	Type       VoxelType
	ColorIndex uint8 // low 4 bits significant
}

func (v Voxel) IsSolid() bool { return v.Type != Empty }

// Chunk sizes are fixed per axis. 32 keeps local coordinates well
// inside the packed vertex's 6-bit position fields.
const (
	ChunkSizeX = 32
	ChunkSizeY = 32
	ChunkSizeZ = 32

	// ChunkMeshLodCount is how many LOD meshes each chunk caches.
	ChunkMeshLodCount = 4
)

// ChunkCoord is a chunk's integer grid coordinate.
type ChunkCoord struct {
	X, Y, Z int32
}

// Chunk is a fixed-size 3D block of voxels at an integer chunk
// coordinate.
type Chunk struct {
	Coord  ChunkCoord
	voxels [ChunkSizeX * ChunkSizeY * ChunkSizeZ]Voxel
}

func NewChunk(coord ChunkCoord) *Chunk {
	return &Chunk{Coord: coord}
}

func voxelIndex(x, y, z int) int {
	return x + y*ChunkSizeX + z*ChunkSizeX*ChunkSizeY
}

func inBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSizeX && y >= 0 && y < ChunkSizeY && z >= 0 && z < ChunkSizeZ
}

// VoxelAt returns the voxel at local coordinates; out-of-bounds reads
// return Empty, matching "edge of chunk" treatment used by the mesher.
func (c *Chunk) VoxelAt(x, y, z int) Voxel {
	if !inBounds(x, y, z) {
		return Voxel{}
	}
	return c.voxels[voxelIndex(x, y, z)]
}

// IsSolid reports whether the local cell is occupied.
func (c *Chunk) IsSolid(x, y, z int) bool {
	return c.VoxelAt(x, y, z).IsSolid()
}

// SetVoxel writes a voxel and reports whether it changed the chunk
//.
func (c *Chunk) SetVoxel(x, y, z int, v Voxel) bool {
	if !inBounds(x, y, z) {
		return false
	}
	idx := voxelIndex(x, y, z)
	if c.voxels[idx] == v {
		return false
	}
	c.voxels[idx] = v
	return true
}

// WorldOffset returns the chunk's world-space origin, used to populate
// ChunkDrawRange.ChunkOffset.
func (c *Chunk) WorldOffset() [3]float32 {
	return [3]float32{
		float32(c.Coord.X) * ChunkSizeX,
		float32(c.Coord.Y) * ChunkSizeY,
		float32(c.Coord.Z) * ChunkSizeZ,
	}
}

// ChunkGrid is an indexed collection of chunks, with neighbor lookup by
// coordinate for cross-chunk face culling during meshing.
type ChunkGrid struct {
	chunks []*Chunk
	byCoord map[ChunkCoord]int
}

func NewChunkGrid() *ChunkGrid {
	return &ChunkGrid{byCoord: make(map[ChunkCoord]int)}
}

// AddChunk appends a chunk and indexes it by coordinate. Returns the
// chunk's index within the grid.
func (g *ChunkGrid) AddChunk(c *Chunk) int {
	idx := len(g.chunks)
	g.chunks = append(g.chunks, c)
	g.byCoord[c.Coord] = idx
	return idx
}

func (g *ChunkGrid) Len() int { return len(g.chunks) }

func (g *ChunkGrid) Chunk(index int) *Chunk { return g.chunks[index] }

// ChunkAt resolves a chunk by coordinate; ok is false if unloaded.
func (g *ChunkGrid) ChunkAt(coord ChunkCoord) (*Chunk, bool) {
	idx, ok := g.byCoord[coord]
	if !ok {
		return nil, false
	}
	return g.chunks[idx], true
}

// IsSolidWorld reports whether the voxel at a coordinate local to
// `origin` plus (dx,dy,dz) is solid, resolving across chunk boundaries
// via neighbor lookup. An unloaded neighbor chunk is treated as empty
// (exposed face), matching the World collaborator's read-only contract
//.
func (g *ChunkGrid) IsSolidWorld(origin ChunkCoord, x, y, z int) bool {
	coord := origin
	if x < 0 {
		coord.X--
		x += ChunkSizeX
	} else if x >= ChunkSizeX {
		coord.X++
		x -= ChunkSizeX
	}
	if y < 0 {
		coord.Y--
		y += ChunkSizeY
	} else if y >= ChunkSizeY {
		coord.Y++
		y -= ChunkSizeY
	}
	if z < 0 {
		coord.Z--
		z += ChunkSizeZ
	} else if z >= ChunkSizeZ {
		coord.Z++
		z -= ChunkSizeZ
	}
	nb, ok := g.ChunkAt(coord)
	if !ok {
		return false
	}
	return nb.IsSolid(x, y, z)
}
