package shaders

import (
	_ "embed"
)

//go:embed shadow.wgsl
var ShadowWGSL string

//go:embed prepass.wgsl
var PrepassWGSL string

//go:embed ssao.wgsl
var SsaoWGSL string

//go:embed ssao_blur.wgsl
var SsaoBlurWGSL string

//go:embed gi_sky_exposure.wgsl
var GiSkyExposureWGSL string

//go:embed gi_surface.wgsl
var GiSurfaceWGSL string

//go:embed gi_inject.wgsl
var GiInjectWGSL string

//go:embed gi_propagate.wgsl
var GiPropagateWGSL string

//go:embed voxel_main.wgsl
var VoxelMainWGSL string

//go:embed instanced.wgsl
var InstancedWGSL string

//go:embed grass.wgsl
var GrassWGSL string

//go:embed sky.wgsl
var SkyWGSL string

//go:embed bloom_downsample.wgsl
var BloomDownsampleWGSL string

//go:embed exposure_histogram.wgsl
var ExposureHistogramWGSL string

//go:embed exposure_reduce.wgsl
var ExposureReduceWGSL string

//go:embed sun_shafts.wgsl
var SunShaftsWGSL string

//go:embed tonemap.wgsl
var TonemapWGSL string
