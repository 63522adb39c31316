package world

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/voxel"
)

func TestSetVoxel_CreatesOwningChunkOnDemand(t *testing.T) {
	w := New()
	changed := w.SetVoxel(40, 1, 2, voxel.Voxel{Type: 3, ColorIndex: 1})
	require.True(t, changed)
	require.True(t, w.IsSolid(40, 1, 2))
	require.Equal(t, 1, w.Chunks().Len())
}

func TestSetVoxel_SameValueIsNoOp(t *testing.T) {
	w := New()
	require.True(t, w.SetVoxel(0, 0, 0, voxel.Voxel{Type: 1, ColorIndex: 1}))
	require.False(t, w.SetVoxel(0, 0, 0, voxel.Voxel{Type: 1, ColorIndex: 1}))
}

func TestVoxelAt_UnloadedChunkIsEmpty(t *testing.T) {
	w := New()
	require.False(t, w.IsSolid(1000, 1000, 1000))
}

func TestWorldToChunkLocal_HandlesNegativeCoordinates(t *testing.T) {
	coord, lx, ly, lz := worldToChunkLocal(-1, -1, -1)
	require.Equal(t, voxel.ChunkCoord{X: -1, Y: -1, Z: -1}, coord)
	require.Equal(t, voxel.ChunkSizeX-1, lx)
	require.Equal(t, voxel.ChunkSizeY-1, ly)
	require.Equal(t, voxel.ChunkSizeZ-1, lz)
}

func TestRegenerateFlatWorld_FillsGroundLayer(t *testing.T) {
	w := New()
	w.RegenerateFlatWorld()
	require.True(t, w.IsSolid(5, 0, 5))
	require.False(t, w.IsSolid(5, 1, 5))
}

func TestSaveAndLoad_RoundTripsVoxels(t *testing.T) {
	w := New()
	w.SetVoxel(1, 1, 1, voxel.Voxel{Type: 7, ColorIndex: 9})
	w.SetVoxel(33, 1, 1, voxel.Voxel{Type: 2, ColorIndex: 5})

	var buf bytes.Buffer
	require.NoError(t, w.saveToBinaryFile(&buf))

	loaded := New()
	require.NoError(t, loaded.loadFromBinaryFile(&buf))
	require.True(t, loaded.IsSolid(1, 1, 1))
	require.Equal(t, uint8(9), loaded.VoxelAt(1, 1, 1).ColorIndex)
	require.True(t, loaded.IsSolid(33, 1, 1))
}

func TestLoadFromBinaryFile_RejectsBadMagic(t *testing.T) {
	w := New()
	err := w.loadFromBinaryFile(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.Error(t, err)
}

func TestLoadOrInitialize_FallsBackWhenFileMissing(t *testing.T) {
	w := New()
	result, err := w.LoadOrInitialize("/nonexistent/path/does-not-exist.bin")
	require.NoError(t, err)
	require.True(t, result.InitializedFallback)
	require.False(t, result.LoadedFromFile)
}
