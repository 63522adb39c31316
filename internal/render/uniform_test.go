package render

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/gi"
	"github.com/voxelsprout/renderer/internal/orchestrator"
	"github.com/voxelsprout/renderer/internal/ssao"
)

func TestPackCameraData_SizeAndSplitPlacement(t *testing.T) {
	u := orchestrator.CameraUniform{
		View:             mgl32.Ident4(),
		ProjectionVulkan: mgl32.Ident4(),
		MVP:              mgl32.Ident4(),
		CascadeSplits:    [5]float32{0.1, 4, 16, 64, 256},
	}
	b := PackCameraData(u, 1, 1920, 1080, 0.3, 0.5)
	require.Len(t, b, CameraDataSize)

	// Splits start right after the three camera matrices and four
	// cascade matrices (7 * 64 bytes).
	splitOff := 7 * 64
	require.Equal(t, float32(0.1), unpackF32(b, splitOff))
	require.Equal(t, float32(256), unpackF32(b, splitOff+16))

	// The screen vector closes the block.
	require.Equal(t, float32(1920), unpackF32(b, 608))
	require.Equal(t, float32(0.3), unpackF32(b, 616))
}

func TestPackGiParams_Layout(t *testing.T) {
	ubo := gi.UBO{
		Origin:   mgl32.Vec3{1, 2, 3},
		CellSize: gi.CellSize,
		Extent:   64,
	}
	b := PackGiParams(ubo, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{0.3, 0.4, 0.6}, gi.PerIterationDecay())
	require.Len(t, b, GiParamsSize)
	require.Equal(t, uint32(64), binary.LittleEndian.Uint32(b[16:20]))
	require.Equal(t, gi.PerIterationDecay(), unpackF32(b, 80))
}

func TestPackShaftParams_BehindCameraFlag(t *testing.T) {
	b := PackShaftParams(mgl32.Vec2{0.5, 0.5}, true, 0.7, mgl32.Ident4(), mgl32.Ident4())
	require.Len(t, b, ShaftParamsSize)
	require.Equal(t, float32(1), unpackF32(b, 8))
	require.Equal(t, float32(0.7), unpackF32(b, 12))
}

func TestPackSsaoParams_KernelThenTuning(t *testing.T) {
	kernel := ssao.BuildKernel(1)
	b := PackSsaoParams(kernel, mgl32.Ident4())
	require.Len(t, b, SsaoParamsSize)
	require.Equal(t, kernel[0].X(), unpackF32(b, 0))
	require.Equal(t, float32(ssao.KernelSize), unpackF32(b, ssao.KernelSize*16+12))
}

func TestPackExposureState_DtOffset(t *testing.T) {
	b := PackExposureState(0.18, 0.2, 0.016, 1.5)
	require.Len(t, b, ExposureStateSize)
	require.Equal(t, float32(0.016), unpackF32(b, ExposureDtOffset))
}

func TestNoiseTextureBytes_FourBytesPerTexel(t *testing.T) {
	noise := ssao.BuildNoise(3)
	b := NoiseTextureBytes(noise)
	require.Len(t, b, len(noise)*4)
	for i := 0; i < len(noise); i++ {
		require.Equal(t, byte(255), b[i*4+3])
	}
}

func unpackF32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}
