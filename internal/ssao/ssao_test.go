package ssao

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestBuildKernel_ClustersCloserSamplesTowardOrigin(t *testing.T) {
	kernel := BuildKernel(7)
	require.Len(t, kernel, KernelSize)
	require.Less(t, kernel[0].Len(), kernel[KernelSize-1].Len()+0.2)
}

func TestBuildKernel_Deterministic(t *testing.T) {
	a := BuildKernel(42)
	b := BuildKernel(42)
	require.Equal(t, a, b)
}

func TestEncodeDecodeNormalDepth_RoundTrips(t *testing.T) {
	n := mgl32.Vec3{0.2, 0.6, -0.77}.Normalize()
	packed := EncodeNormalDepth(n, 12.5)
	decoded, depth := DecodeNormalDepth(packed)
	require.InDelta(t, n.X(), decoded.X(), 1e-4)
	require.InDelta(t, n.Y(), decoded.Y(), 1e-4)
	require.InDelta(t, n.Z(), decoded.Z(), 1e-4)
	require.Equal(t, float32(12.5), depth)
}

func TestOcclusionFactor_OccludedWhenSceneDepthCloserThanSample(t *testing.T) {
	require.Greater(t, OcclusionFactor(10, 9.5, 9.3), float32(0))
	require.Zero(t, OcclusionFactor(10, 9.5, 20))
}

func TestEnabled_GatesMainPassConsumption(t *testing.T) {
	var e Enabled
	require.False(t, e.Get())
	e.Set(true)
	require.True(t, e.Get())
}
