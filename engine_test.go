package voxelsprout

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestInit_FailsWithoutDeviceOrSwapchain(t *testing.T) {
	e := New()
	require.False(t, e.Init(InitParams{}))
}

func TestRenderFrame_FailsBeforeInit(t *testing.T) {
	e := New()
	require.False(t, e.RenderFrame(RenderParameters{}))
}

func TestFrameIndex_ZeroBeforeInit(t *testing.T) {
	e := New()
	require.Zero(t, e.FrameIndex())
}

func TestDebugUIVisibility_DefaultsFalseAndToggles(t *testing.T) {
	e := New()
	require.False(t, e.IsDebugUIVisible())
	e.SetDebugUIVisible(true)
	require.True(t, e.IsDebugUIVisible())
}

func TestFrameStatsVisibility_DefaultsFalseAndToggles(t *testing.T) {
	e := New()
	require.False(t, e.IsFrameStatsVisible())
	e.SetFrameStatsVisible(true)
	require.True(t, e.IsFrameStatsVisible())
}

func TestCameraFovDegrees_DefaultsAndUpdates(t *testing.T) {
	e := New()
	require.Equal(t, float32(60), e.CameraFovDegrees())
	e.SetCameraFovDegrees(90)
	require.Equal(t, float32(90), e.CameraFovDegrees())
}

func TestSunDirectionFromAngles_ZeroElevationIsHorizontal(t *testing.T) {
	dir := sunDirectionFromAngles(0, 0)
	require.InDelta(t, 0, dir.Y(), 1e-5)
	require.InDelta(t, 1, dir.Len(), 1e-5)
}

func TestSunDirectionFromAngles_NinetyElevationPointsStraightDown(t *testing.T) {
	// The vector is the direction light travels, so a sun directly
	// overhead shines straight down.
	dir := sunDirectionFromAngles(0, 90)
	require.InDelta(t, -1, dir.Y(), 1e-4)
	require.InDelta(t, 0, mgl32.Vec2{dir.X(), dir.Z()}.Len(), 1e-4)
}
