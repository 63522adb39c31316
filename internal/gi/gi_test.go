package gi

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/gpu"
)

func TestGrid_OriginSnapsOnXZEveryFrame(t *testing.T) {
	g := NewGrid(32)
	g.UpdateOrigin(mgl32.Vec3{10.3, 5, 10.7})
	mod := func(v float32) float32 {
		q := v / CellSize
		return q - float32(int(q))
	}
	require.InDelta(t, 0, mod(g.Origin.X()), 1e-4)
	require.InDelta(t, 0, mod(g.Origin.Z()), 1e-4)
}

func TestGrid_YOnlyMovesPastThreshold(t *testing.T) {
	g := NewGrid(32)
	g.UpdateOrigin(mgl32.Vec3{0, 10, 0})
	before := g.Origin.Y()

	moved := g.UpdateOrigin(mgl32.Vec3{0, 10 + yOriginSnapThreshold - 0.01, 0})
	require.Equal(t, before, g.Origin.Y())
	require.False(t, moved)

	moved = g.UpdateOrigin(mgl32.Vec3{0, 10 + yOriginSnapThreshold + CellSize + 0.01, 0})
	require.NotEqual(t, before, g.Origin.Y())
	require.True(t, moved)
}

func TestVolume_NeedsOccupancyUpload_FirstFrame(t *testing.T) {
	v := NewVolume(32)
	require.True(t, v.NeedsOccupancyUpload(false))
	v.ConsumeOccupancyUpload()
	require.False(t, v.NeedsOccupancyUpload(false))
	require.True(t, v.NeedsOccupancyUpload(true))
}

func TestVolume_ShouldDispatch_SkipsWhenNothingChanged(t *testing.T) {
	v := NewVolume(16)
	sun := mgl32.Vec3{0, -1, 0}
	color := mgl32.Vec3{1, 1, 1}
	var sh [9]mgl32.Vec3

	require.True(t, v.ShouldDispatch(false, sun, color, sh, 1, 0.2))
	require.False(t, v.ShouldDispatch(false, sun, color, sh, 1, 0.2))
	require.True(t, v.ShouldDispatch(false, sun, color, sh, 1.5, 0.2))
}

func TestVolume_RunInjectAndPropagate_InjectThenPropagatePasses(t *testing.T) {
	v := NewVolume(8)
	v.PingA, v.PingB = 1, 2

	var passes []string
	v.RunInjectAndPropagate(func(pass string, src, dst gpu.ImageHandle, decay float32) {
		passes = append(passes, pass)
	})
	require.Len(t, passes, 1+PropagationIterations)
	require.Equal(t, "gi_inject", passes[0])
	for _, p := range passes[1:] {
		require.Equal(t, "gi_propagate", p)
	}
}

func TestPerIterationDecay_CompoundsToFrameDecay(t *testing.T) {
	total := float32(1.0)
	for i := 0; i < PropagationIterations; i++ {
		total *= perIterationDecay
	}
	require.InDelta(t, FrameDecay, total, 1e-4)
}
