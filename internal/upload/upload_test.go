package upload

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/gpu"
)

func TestPath_GrassDirtyTrackingOnlyRegeneratesFlaggedChunks(t *testing.T) {
	p := NewPath(nil, gpu.NewTimeline())
	p.MarkGrassDirty(0)
	p.MarkGrassDirty(2)

	calls := map[int]int{}
	source := func(chunkIndex int) []GrassInstance {
		calls[chunkIndex]++
		return []GrassInstance{{Position: [3]float32{float32(chunkIndex), 0, 0}}}
	}

	for idx, dirty := range p.grassDirty {
		if !dirty {
			continue
		}
		p.grass[idx] = source(idx)
		p.grassDirty[idx] = false
	}

	require.Equal(t, 1, calls[0])
	require.Equal(t, 1, calls[2])
	require.Zero(t, calls[1])
	require.Len(t, p.GrassInstances(0), 1)
	require.Nil(t, p.GrassInstances(1))
}

func TestPackedBytes_EmptyVerticesAndLittleEndianIndices(t *testing.T) {
	b := packedVertexBytes(nil)
	require.Empty(t, b)

	b32 := indexBytesOf([]uint32{1, 256, 65536})
	require.Len(t, b32, 12)
	require.Equal(t, byte(1), b32[0])
	require.Equal(t, byte(1), b32[5])
}
