package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedShaders_PresentAndWellFormed(t *testing.T) {
	sources := map[string]string{
		"shadow":             ShadowWGSL,
		"prepass":            PrepassWGSL,
		"ssao":               SsaoWGSL,
		"ssao_blur":          SsaoBlurWGSL,
		"gi_sky_exposure":    GiSkyExposureWGSL,
		"gi_surface":         GiSurfaceWGSL,
		"gi_inject":          GiInjectWGSL,
		"gi_propagate":       GiPropagateWGSL,
		"voxel_main":         VoxelMainWGSL,
		"instanced":          InstancedWGSL,
		"grass":              GrassWGSL,
		"sky":                SkyWGSL,
		"bloom_downsample":   BloomDownsampleWGSL,
		"exposure_histogram": ExposureHistogramWGSL,
		"exposure_reduce":    ExposureReduceWGSL,
		"sun_shafts":         SunShaftsWGSL,
		"tonemap":            TonemapWGSL,
	}
	for name, src := range sources {
		require.NotEmptyf(t, src, "%s shader is empty", name)
		require.Truef(t, strings.Contains(src, "fn "), "%s shader has no entry point", name)
	}
}

func TestComputeShaders_DeclareComputeEntry(t *testing.T) {
	for _, src := range []string{
		GiSkyExposureWGSL, GiSurfaceWGSL, GiInjectWGSL, GiPropagateWGSL,
		BloomDownsampleWGSL, ExposureHistogramWGSL, ExposureReduceWGSL, SunShaftsWGSL,
	} {
		require.Contains(t, src, "@compute")
	}
}
