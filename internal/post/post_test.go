package post

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestMipCount_SingleMipAtOnePixel(t *testing.T) {
	require.Equal(t, uint32(1), MipCount(1, 1))
	require.Equal(t, uint32(1), MipCount(0, 0))
}

func TestMipCount_MatchesPowerOfTwoChain(t *testing.T) {
	require.Equal(t, uint32(11), MipCount(1920, 1080))
}

func TestBuildMipChainPlan_OneStepPerMipPastBase(t *testing.T) {
	steps := BuildMipChainPlan(256, 256, MipCount(256, 256))
	require.Len(t, steps, int(MipCount(256, 256))-1)
	require.Equal(t, uint32(0), steps[0].SrcMip)
	require.Equal(t, uint32(1), steps[0].DstMip)
	require.Equal(t, uint32(128), steps[0].DstWidth)
}

func TestBuildMipChainPlan_NoStepsForSingleMip(t *testing.T) {
	require.Empty(t, BuildMipChainPlan(1, 1, 1))
}

func TestSourceMip_ClampsToThreeButNeverExceedsChain(t *testing.T) {
	require.Equal(t, uint32(3), SourceMip(11))
	require.Equal(t, uint32(0), SourceMip(1))
	require.Equal(t, uint32(1), SourceMip(2))
}

func TestLuminanceBin_ClampsToValidRange(t *testing.T) {
	require.Equal(t, 0, LuminanceBin(0))
	require.GreaterOrEqual(t, LuminanceBin(1e9), 0)
	require.Less(t, LuminanceBin(1e9), HistogramBins)
}

func TestReduceHistogram_EmptyIsZero(t *testing.T) {
	var counts [HistogramBins]uint32
	require.Zero(t, ReduceHistogram(counts))
}

func TestState_FirstUpdateSnapsToMeasured(t *testing.T) {
	var s State
	s.Update(0.4, 1.0/60)
	require.Equal(t, float32(0.4), s.EMA)
}

func TestState_SubsequentUpdatesEaseTowardMeasured(t *testing.T) {
	var s State
	s.Update(0.2, 1.0/60)
	s.Update(0.8, 1.0/60)
	require.Greater(t, s.EMA, float32(0.2))
	require.Less(t, s.EMA, float32(0.8))
}

func TestACESFilmic_ClampsToUnitRange(t *testing.T) {
	out := ACESFilmic(mgl32.Vec3{100, 100, 100})
	require.LessOrEqual(t, out.X(), float32(1))
	require.GreaterOrEqual(t, out.X(), float32(0))
}

func TestAccumulateShaft_FullVisibilityBoundedByUndecayedAverage(t *testing.T) {
	var vis [ShaftSteps]float32
	for i := range vis {
		vis[i] = 1
	}
	// Decayed accumulation is bounded above by the undecayed average.
	require.LessOrEqual(t, AccumulateShaft(vis), float32(1))
	require.Greater(t, AccumulateShaft(vis), float32(0))
}

func TestSunScreenPosition_BehindCameraFlagsDegenerate(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(70), 16.0/9.0, 0.1, 1000)
	// Camera looks down -Z; a sun direction with +Z projects behind it.
	_, behind := SunScreenPosition(proj, mgl32.Vec3{0, 0, 1})
	require.True(t, behind)

	_, inFront := SunScreenPosition(proj, mgl32.Vec3{0, 0, -1})
	require.False(t, inFront)
}
