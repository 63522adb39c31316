package world

import (
	stdcolor "image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStampMagicaResources_SkipsZeroVoxelStamps(t *testing.T) {
	specs := []MagicaStampSpec{{RelativePath: "a.vox"}, {RelativePath: "b.vox"}}
	counts := map[string]uint64{"a.vox": 0, "b.vox": 50}

	result := (&World{}).StampMagicaResources(specs, func(s MagicaStampSpec) uint64 {
		return counts[s.RelativePath]
	})

	require.Equal(t, uint32(1), result.StampedResourceCount)
	require.Equal(t, uint64(50), result.StampedVoxelCount)
}

func TestStampMagicaResources_BelowFloorIsClipped(t *testing.T) {
	specs := []MagicaStampSpec{{RelativePath: "a.vox", PlacementY: -5}}
	result := (&World{}).StampMagicaResources(specs, func(s MagicaStampSpec) uint64 { return 20 })

	require.Equal(t, uint64(20), result.ClippedVoxelCount)
}

func TestStampMagicaResources_ClipsAnchorsOutsideLoadedChunks(t *testing.T) {
	w := New()
	w.RegenerateFlatWorld() // one chunk at the origin

	specs := []MagicaStampSpec{
		{RelativePath: "in.vox", PlacementX: 5, PlacementY: 0, PlacementZ: 5},
		{RelativePath: "out.vox", PlacementX: 200, PlacementY: 0, PlacementZ: 200},
	}
	result := w.StampMagicaResources(specs, func(s MagicaStampSpec) uint64 { return 30 })

	require.Equal(t, uint32(2), result.StampedResourceCount)
	require.Equal(t, uint64(60), result.StampedVoxelCount)
	require.Equal(t, uint64(30), result.ClippedVoxelCount)
}

func TestDecodePalette_FillsRemainderFromDefaults(t *testing.T) {
	var out [16]stdcolor.RGBA
	count := decodePalette(nil, &out)
	require.Equal(t, uint8(0), count)
	require.NotZero(t, out[0].A)
}

func TestDecodePalette_UsesRawBytesWhenPresentAndCapsAtSixteen(t *testing.T) {
	raw := make([]byte, 4*20) // 20 entries worth, should cap at 16
	raw[0], raw[1], raw[2], raw[3] = 10, 20, 30, 255

	var out [16]stdcolor.RGBA
	count := decodePalette(raw, &out)
	require.Equal(t, uint8(16), count)
	require.Equal(t, stdcolor.RGBA{R: 10, G: 20, B: 30, A: 255}, out[0])
}
