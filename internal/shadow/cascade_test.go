package shadow

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestUpdateSplits_StrictlyIncreasing(t *testing.T) {
	co := NewCoordinator()
	splits := co.UpdateSplits(0.1, 500)
	for i := 1; i <= CascadeCount; i++ {
		require.Greater(t, splits[i], splits[i-1])
	}
	require.Equal(t, float32(0.1), splits[0])
	require.Equal(t, float32(500), splits[CascadeCount])
}

func TestUpdateSplits_SmallDriftDamped(t *testing.T) {
	co := NewCoordinator()
	first := co.UpdateSplits(0.1, 500)

	second := co.UpdateSplits(0.1, 500.01)
	require.Equal(t, first[1], second[1])
	require.Equal(t, first[2], second[2])
	require.Equal(t, first[3], second[3])
}

func TestAtlasRects_PartitionsIntoFourQuadrants(t *testing.T) {
	rects := AtlasRects(2048)
	for _, r := range rects {
		require.Equal(t, uint32(1024), r.W)
		require.Equal(t, uint32(1024), r.H)
	}
	require.Equal(t, uint32(0), rects[0].X)
	require.Equal(t, uint32(1024), rects[1].X)
	require.Equal(t, uint32(1024), rects[2].Y)
}

func TestCompute_RadiusNeverShrinks(t *testing.T) {
	co := NewCoordinator()
	camPos := mgl32.Vec3{0, 0, 0}
	camForward := mgl32.Vec3{0, 1, 0}
	sunDir := mgl32.Vec3{0.3, 0.3, -0.9}

	c1 := co.Compute(0, 0.1, 20, mgl32.DegToRad(70), 1.77, camPos, camForward, sunDir, 2048)
	c2 := co.Compute(0, 0.1, 5, mgl32.DegToRad(70), 1.77, camPos, camForward, sunDir, 2048)
	require.GreaterOrEqual(t, c2.Radius, c1.Radius)
}

func TestCompute_UpHintSwitchesWhenNearSunDirection(t *testing.T) {
	straightDown := mgl32.Vec3{0, 0, -1}
	right, up, forward := lightBasis(straightDown)
	require.InDelta(t, float64(forward.Len()), 1, 1e-4)
	require.InDelta(t, float64(right.Dot(up)), 0, 1e-4)
	require.InDelta(t, float64(right.Dot(forward)), 0, 1e-4)
}

func TestSnapCenterToTexels_ProjectionsAreTexelMultiples(t *testing.T) {
	right, up, forward := lightBasis(mgl32.Vec3{0.4, -0.7, 0.2})
	texel := float32(0.125)

	snapped := snapCenterToTexels(mgl32.Vec3{3.37, -1.21, 8.06}, right, up, forward, texel)

	offGrid := func(v float32) float64 {
		q := float64(v / texel)
		return math.Abs(q - math.Round(q))
	}
	require.InDelta(t, 0, offGrid(snapped.Dot(right)), 1e-3)
	require.InDelta(t, 0, offGrid(snapped.Dot(up)), 1e-3)
}

func TestReverseZOrtho_FarMapsToZeroNearMapsToOne(t *testing.T) {
	proj := reverseZOrtho(-10, 10, -10, 10, 1, 100)
	nearPoint := proj.Mul4x1(mgl32.Vec4{0, 0, -1, 1})
	farPoint := proj.Mul4x1(mgl32.Vec4{0, 0, -100, 1})
	require.InDelta(t, 1, nearPoint.Z(), 1e-4)
	require.InDelta(t, 0, farPoint.Z(), 1e-4)
}
