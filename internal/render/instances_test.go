package render

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/sim"
	"github.com/voxelsprout/renderer/internal/voxel"
)

func TestPackMeshInstances_StrideMatchesShaderStruct(t *testing.T) {
	b := PackMeshInstances([]MeshInstance{
		{Model: mgl32.Ident4(), Tint: mgl32.Vec4{1, 0, 0, 1}},
		{Model: mgl32.Ident4(), Tint: mgl32.Vec4{0, 1, 0, 1}},
	})
	require.Len(t, b, 2*MeshInstanceSize)

	// The identity's first column starts each instance record.
	require.Equal(t, uint32(0x3f800000), binary.LittleEndian.Uint32(b[0:4]))
	require.Equal(t, uint32(0x3f800000), binary.LittleEndian.Uint32(b[MeshInstanceSize:MeshInstanceSize+4]))
}

func TestBuildPipeInstances_TintAndCountCarryThrough(t *testing.T) {
	pipes := []sim.Pipe{
		sim.NewPipe(1, 2, 3, mgl32.Vec3{0, 0, 1}, 2, 0.5, mgl32.Vec3{0.9, 0.8, 0.7}),
	}
	out := BuildPipeInstances(pipes)
	require.Len(t, out, 1)
	require.Equal(t, float32(0.9), out[0].Tint.X())
}

func TestBuildTrackInstances_TwoRailsPerSegment(t *testing.T) {
	tracks := []sim.Track{{X: 0, Y: 0, Z: 0, Direction: sim.TrackEast}}
	require.Len(t, BuildTrackInstances(tracks), 2)
}

func TestBuildCargoInstances_SkipsDanglingBeltIndex(t *testing.T) {
	belts := []sim.Belt{{X: 0, Y: 1, Z: 0, Direction: sim.BeltEast}}
	cargoes := []sim.BeltCargo{
		{BeltIndex: 0, Progress: 0.5},
		{BeltIndex: 7, Progress: 0.5},
	}
	require.Len(t, BuildCargoInstances(cargoes, belts), 1)
}

func TestBuildChunkIndirectCommands_SkipsEmptyRangesKeepsParamIndex(t *testing.T) {
	ranges := []voxel.ChunkDrawRange{
		{FirstIndex: 0, IndexCount: 36},
		{FirstIndex: 36, IndexCount: 0},
		{FirstIndex: 36, IndexCount: 12},
	}
	cmds := BuildChunkIndirectCommands(ranges)
	require.Len(t, cmds, 2)
	require.Equal(t, uint32(0), cmds[0].FirstInstance)
	require.Equal(t, uint32(2), cmds[1].FirstInstance)
}

func TestBuildChunkIndirectCommandsWithBase_OffsetsFirstInstance(t *testing.T) {
	ranges := []voxel.ChunkDrawRange{{IndexCount: 6}}
	cmds := BuildChunkIndirectCommandsWithBase(ranges, 8)
	require.Equal(t, uint32(8), cmds[0].FirstInstance)
}

func TestPackIndirectCommands_TwentyBytesPerDraw(t *testing.T) {
	b := PackIndirectCommands([]DrawIndexedIndirectArgs{
		{IndexCount: 36, InstanceCount: 1, FirstIndex: 6, BaseVertex: 0, FirstInstance: 2},
	})
	require.Len(t, b, DrawIndexedIndirectSize)
	require.Equal(t, uint32(36), binary.LittleEndian.Uint32(b[0:4]))
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(b[4:8]))
	require.Equal(t, uint32(6), binary.LittleEndian.Uint32(b[8:12]))
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(b[16:20]))
}

func TestPackChunkParams_CascadeRidesInW(t *testing.T) {
	ranges := []voxel.ChunkDrawRange{{ChunkOffset: [3]float32{32, 0, -32}}}
	b := PackChunkParams(ranges, 3)
	require.Len(t, b, 16)
	require.Equal(t, float32(3), floatAt(b, 12))
	require.Equal(t, float32(32), floatAt(b, 0))
}

func floatAt(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}
