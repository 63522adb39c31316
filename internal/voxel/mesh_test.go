package voxel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fillChunk(c *Chunk, vt VoxelType, color uint8) {
	for x := 0; x < ChunkSizeX; x++ {
		for y := 0; y < ChunkSizeY; y++ {
			for z := 0; z < ChunkSizeZ; z++ {
				c.SetVoxel(x, y, z, Voxel{Type: vt, ColorIndex: color})
			}
		}
	}
}

func TestMeshChunk_FullyFilledChunkEmitsSixQuads(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	fillChunk(chunk, VoxelType(1), 2)
	grid.AddChunk(chunk)

	mesh := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	require.Equal(t, 6, mesh.QuadCount())
	require.Equal(t, 6*6, len(mesh.Indices))
	require.Equal(t, 6*4, len(mesh.Vertices))
}

func TestMeshChunk_ChessboardPatternHasZeroReduction(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	for x := 0; x < ChunkSizeX; x++ {
		for y := 0; y < ChunkSizeY; y++ {
			for z := 0; z < ChunkSizeZ; z++ {
				if (x+y+z)%2 == 0 {
					chunk.SetVoxel(x, y, z, Voxel{Type: VoxelType(1), ColorIndex: 1})
				}
			}
		}
	}
	grid.AddChunk(chunk)

	greedy := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	naive := MeshChunkAtLOD(grid, chunk, 0, ModeNaive)

	require.Equal(t, len(naive.Indices), len(greedy.Indices))
	require.InDelta(t, 0, ReductionPercent(greedy, naive), 1e-9)
}

func TestMeshChunk_EmptyChunkEmitsNothing(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	grid.AddChunk(chunk)

	mesh := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	require.Empty(t, mesh.Indices)
	require.Empty(t, mesh.Vertices)
}

func TestMeshChunk_IndexCountAlwaysMultipleOfSix(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	chunk.SetVoxel(3, 3, 3, Voxel{Type: VoxelType(1), ColorIndex: 1})
	chunk.SetVoxel(3, 4, 3, Voxel{Type: VoxelType(2), ColorIndex: 2})
	chunk.SetVoxel(10, 0, 0, Voxel{Type: VoxelType(1), ColorIndex: 3})
	grid.AddChunk(chunk)

	for lod := 0; lod < ChunkMeshLodCount; lod++ {
		mesh := MeshChunkAtLOD(grid, chunk, lod, ModeGreedy)
		require.Zero(t, len(mesh.Indices)%6)
		for _, v := range mesh.Vertices {
			require.Less(t, v.X(), ChunkSizeX)
			require.Less(t, v.Y(), ChunkSizeY)
			require.Less(t, v.Z(), ChunkSizeZ)
		}
	}
}

func TestMeshChunk_InteriorVoxelProducesNoQuads(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	fillChunk(chunk, VoxelType(1), 1)
	grid.AddChunk(chunk)

	// The center voxel has solid neighbors on every face: it must not
	// contribute any exposed quad even though it's part of a filled chunk.
	mesh := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	for _, v := range mesh.Vertices {
		onBoundary := v.X() == 0 || v.X() == ChunkSizeX || v.Y() == 0 || v.Y() == ChunkSizeY || v.Z() == 0 || v.Z() == ChunkSizeZ
		require.True(t, onBoundary)
	}
}

func TestMeshCache_SingleVoxelChangeRebuildsOneChunk(t *testing.T) {
	grid := NewChunkGrid()
	c0 := NewChunk(ChunkCoord{X: 0})
	c1 := NewChunk(ChunkCoord{X: 1})
	fillChunk(c0, VoxelType(1), 1)
	fillChunk(c1, VoxelType(1), 1)
	grid.AddChunk(c0)
	grid.AddChunk(c1)

	cache := NewMeshCache(grid, ModeGreedy)
	require.Equal(t, 2, cache.Update())

	c1.SetVoxel(5, 5, 5, Voxel{Type: VoxelType(2), ColorIndex: 2})
	cache.MarkDirty(1)

	require.Equal(t, 1, cache.Update())
	require.Equal(t, 1, cache.ChunksRemeshed())
}

func TestMeshCache_NoOpVoxelWriteStaysClean(t *testing.T) {
	grid := NewChunkGrid()
	c0 := NewChunk(ChunkCoord{})
	grid.AddChunk(c0)

	cache := NewMeshCache(grid, ModeGreedy)
	cache.Update()

	changed := c0.SetVoxel(1, 1, 1, Voxel{})
	require.False(t, changed)

	require.Zero(t, cache.Update())
}

func TestMeshCache_ModeSwitchInvalidatesAll(t *testing.T) {
	grid := NewChunkGrid()
	c0 := NewChunk(ChunkCoord{})
	fillChunk(c0, VoxelType(1), 1)
	grid.AddChunk(c0)

	cache := NewMeshCache(grid, ModeGreedy)
	cache.Update()

	cache.SetMode(ModeNaive)
	require.Equal(t, 1, cache.Update())
}

func TestMeshChunk_DeterministicOnUnchangedWorld(t *testing.T) {
	grid := NewChunkGrid()
	chunk := NewChunk(ChunkCoord{})
	chunk.SetVoxel(1, 2, 3, Voxel{Type: VoxelType(1), ColorIndex: 4})
	chunk.SetVoxel(2, 2, 3, Voxel{Type: VoxelType(1), ColorIndex: 4})
	chunk.SetVoxel(9, 9, 9, Voxel{Type: VoxelType(3), ColorIndex: 7})
	grid.AddChunk(chunk)

	first := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	second := MeshChunkAtLOD(grid, chunk, 0, ModeGreedy)
	require.Equal(t, first.Vertices, second.Vertices)
	require.Equal(t, first.Indices, second.Indices)
}

func TestPackVertex_RoundTrips(t *testing.T) {
	v := PackVertex(5, 17, 31, FaceUp, 2, 3, 9, 12, 1)
	require.Equal(t, 5, v.X())
	require.Equal(t, 17, v.Y())
	require.Equal(t, 31, v.Z())
	require.Equal(t, FaceUp, v.Face())
	require.Equal(t, uint8(2), v.Corner())
	require.Equal(t, uint8(3), v.AO())
	require.Equal(t, uint8(9), v.Material())
	require.Equal(t, uint8(12), v.ColorIndex())
	require.Equal(t, uint8(1), v.LOD())
}

func TestBuildDrawRanges_ConcatenatesAndRebasesIndices(t *testing.T) {
	grid := NewChunkGrid()
	c0 := NewChunk(ChunkCoord{X: 0})
	c1 := NewChunk(ChunkCoord{X: 1})
	fillChunk(c0, VoxelType(1), 1)
	fillChunk(c1, VoxelType(1), 1)
	grid.AddChunk(c0)
	grid.AddChunk(c1)

	cache := NewMeshCache(grid, ModeGreedy)
	cache.Update()

	vertices, indices, ranges := BuildDrawRanges(cache, grid, 0)
	require.Len(t, ranges, 2)
	require.Equal(t, uint32(0), ranges[0].FirstIndex)
	require.Equal(t, uint32(len(cache.Entry(0).LODs[0].Indices)), ranges[1].FirstIndex)

	for _, idx := range indices {
		require.Less(t, int(idx), len(vertices))
	}
}
