package render

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/rerr"
	"github.com/voxelsprout/renderer/internal/render/shaders"
	"github.com/voxelsprout/renderer/internal/shadow"
)

// Pipelines holds every render/compute pipeline plus the two samplers
// shared across passes. Pipelines are created once at init and retained
// across swapchain recreation; only the tonemap pipeline depends on the
// surface format, so a format change would require a full reinit.
type Pipelines struct {
	ShadowCascades [shadow.CascadeCount]*wgpu.RenderPipeline
	ShadowInstanced *wgpu.RenderPipeline
	ShadowGrass     *wgpu.RenderPipeline

	Prepass  *wgpu.RenderPipeline
	SSAO     *wgpu.RenderPipeline
	SSAOBlur *wgpu.RenderPipeline

	VoxelMain *wgpu.RenderPipeline
	Instanced *wgpu.RenderPipeline
	Grass     *wgpu.RenderPipeline
	Sky       *wgpu.RenderPipeline

	Tonemap *wgpu.RenderPipeline

	GISkyExposure *wgpu.ComputePipeline
	GISurface     *wgpu.ComputePipeline
	GIInject      *wgpu.ComputePipeline
	GIPropagate   *wgpu.ComputePipeline

	BloomDownsample   *wgpu.ComputePipeline
	ExposureHistogram *wgpu.ComputePipeline
	ExposureReduce    *wgpu.ComputePipeline
	SunShafts         *wgpu.ComputePipeline

	LinearSampler *wgpu.Sampler
	ShadowSampler *wgpu.Sampler
}

var packedVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: 8,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatUint32x2, Offset: 0, ShaderLocation: 0},
	},
}

var cubeVertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: 24,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
	},
}

func shaderModule(device *wgpu.Device, label, code string) (*wgpu.ShaderModule, error) {
	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: code},
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.ShaderLoadFailed, "render.Pipelines", label, err)
	}
	return mod, nil
}

func computePipeline(device *wgpu.Device, label string, mod *wgpu.ShaderModule) (*wgpu.ComputePipeline, error) {
	p, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: label,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", label, err)
	}
	return p, nil
}

// reverse-Z: geometry depth-tests with Greater against a 0.0 clear.
func reverseZDepth(bias int32, slope float32) *wgpu.DepthStencilState {
	return &wgpu.DepthStencilState{
		Format:              DepthFormat,
		DepthWriteEnabled:   true,
		DepthCompare:        wgpu.CompareFunctionGreater,
		DepthBias:           bias,
		DepthBiasSlopeScale: slope,
		StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
	}
}

// NewPipelines compiles every shader module and builds the full
// pipeline set. surfaceFormat is the swapchain's color format.
func NewPipelines(device *wgpu.Device, surfaceFormat wgpu.TextureFormat) (*Pipelines, error) {
	p := &Pipelines{}

	singleSample := wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
	multiSample := wgpu.MultisampleState{Count: MSAASampleCount, Mask: 0xFFFFFFFF}

	shadowMod, err := shaderModule(device, "shadow.wgsl", shaders.ShadowWGSL)
	if err != nil {
		return nil, err
	}
	defer shadowMod.Release()

	// One pipeline per cascade so each gets its own depth bias; the
	// signs flip because reverse-Z inverts the depth axis.
	for i := range p.ShadowCascades {
		bias := shadow.PolygonDepthBiasBase + shadow.PolygonDepthBiasSlope*float32(i)
		p.ShadowCascades[i], err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: fmt.Sprintf("shadow-cascade-%d", i),
			Vertex: wgpu.VertexState{
				Module:     shadowMod,
				EntryPoint: "vs_main",
				Buffers:    []wgpu.VertexBufferLayout{packedVertexLayout},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleList,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeBack,
			},
			DepthStencil: reverseZDepth(int32(-bias), -bias),
			Multisample:  singleSample,
		})
		if err != nil {
			return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "shadow-cascade", err)
		}
	}

	instancedMod, err := shaderModule(device, "instanced.wgsl", shaders.InstancedWGSL)
	if err != nil {
		return nil, err
	}
	defer instancedMod.Release()

	p.ShadowInstanced, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "shadow-instanced",
		Vertex: wgpu.VertexState{
			Module:     instancedMod,
			EntryPoint: "vs_shadow",
			Buffers:    []wgpu.VertexBufferLayout{cubeVertexLayout},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: reverseZDepth(int32(-shadow.PolygonDepthBiasBase), -shadow.PolygonDepthBiasBase),
		Multisample:  singleSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "shadow-instanced", err)
	}

	grassMod, err := shaderModule(device, "grass.wgsl", shaders.GrassWGSL)
	if err != nil {
		return nil, err
	}
	defer grassMod.Release()

	p.ShadowGrass, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "shadow-grass",
		Vertex: wgpu.VertexState{
			Module:     grassMod,
			EntryPoint: "vs_shadow",
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			CullMode: wgpu.CullModeNone,
		},
		DepthStencil: reverseZDepth(int32(-shadow.PolygonDepthBiasBase), -shadow.PolygonDepthBiasBase),
		Multisample:  singleSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "shadow-grass", err)
	}

	prepassMod, err := shaderModule(device, "prepass.wgsl", shaders.PrepassWGSL)
	if err != nil {
		return nil, err
	}
	defer prepassMod.Release()

	p.Prepass, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "prepass",
		Vertex: wgpu.VertexState{
			Module:     prepassMod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{packedVertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     prepassMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: reverseZDepth(0, 0),
		Multisample:  singleSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "prepass", err)
	}

	fullscreen := func(label string, mod *wgpu.ShaderModule, format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
		pipe, perr := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: label,
			Vertex: wgpu.VertexState{
				Module:     mod,
				EntryPoint: "vs_main",
			},
			Fragment: &wgpu.FragmentState{
				Module:     mod,
				EntryPoint: "fs_main",
				Targets: []wgpu.ColorTargetState{
					{Format: format, WriteMask: wgpu.ColorWriteMaskAll},
				},
			},
			Primitive: wgpu.PrimitiveState{
				Topology: wgpu.PrimitiveTopologyTriangleList,
			},
			Multisample: singleSample,
		})
		if perr != nil {
			return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", label, perr)
		}
		return pipe, nil
	}

	ssaoMod, err := shaderModule(device, "ssao.wgsl", shaders.SsaoWGSL)
	if err != nil {
		return nil, err
	}
	defer ssaoMod.Release()
	if p.SSAO, err = fullscreen("ssao", ssaoMod, wgpu.TextureFormatR8Unorm); err != nil {
		return nil, err
	}

	blurMod, err := shaderModule(device, "ssao_blur.wgsl", shaders.SsaoBlurWGSL)
	if err != nil {
		return nil, err
	}
	defer blurMod.Release()
	if p.SSAOBlur, err = fullscreen("ssao-blur", blurMod, wgpu.TextureFormatR8Unorm); err != nil {
		return nil, err
	}

	mainMod, err := shaderModule(device, "voxel_main.wgsl", shaders.VoxelMainWGSL)
	if err != nil {
		return nil, err
	}
	defer mainMod.Release()

	p.VoxelMain, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "voxel-main",
		Vertex: wgpu.VertexState{
			Module:     mainMod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{packedVertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     mainMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: reverseZDepth(0, 0),
		Multisample:  multiSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "voxel-main", err)
	}

	p.Instanced, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "instanced",
		Vertex: wgpu.VertexState{
			Module:     instancedMod,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{cubeVertexLayout},
		},
		Fragment: &wgpu.FragmentState{
			Module:     instancedMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		DepthStencil: reverseZDepth(0, 0),
		Multisample:  multiSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "instanced", err)
	}

	p.Grass, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "grass",
		Vertex: wgpu.VertexState{
			Module:     grassMod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     grassMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
			CullMode: wgpu.CullModeNone,
		},
		DepthStencil: reverseZDepth(0, 0),
		Multisample:  multiSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "grass", err)
	}

	skyMod, err := shaderModule(device, "sky.wgsl", shaders.SkyWGSL)
	if err != nil {
		return nil, err
	}
	defer skyMod.Release()

	skyDepth := reverseZDepth(0, 0)
	skyDepth.DepthWriteEnabled = false
	skyDepth.DepthCompare = wgpu.CompareFunctionGreaterEqual
	p.Sky, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "sky",
		Vertex: wgpu.VertexState{
			Module:     skyMod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     skyMod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: HDRFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		DepthStencil: skyDepth,
		Multisample:  multiSample,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "sky", err)
	}

	tonemapMod, err := shaderModule(device, "tonemap.wgsl", shaders.TonemapWGSL)
	if err != nil {
		return nil, err
	}
	defer tonemapMod.Release()
	if p.Tonemap, err = fullscreen("tonemap", tonemapMod, surfaceFormat); err != nil {
		return nil, err
	}

	for _, c := range []struct {
		label string
		code  string
		dst   **wgpu.ComputePipeline
	}{
		{"gi_sky_exposure", shaders.GiSkyExposureWGSL, &p.GISkyExposure},
		{"gi_surface", shaders.GiSurfaceWGSL, &p.GISurface},
		{"gi_inject", shaders.GiInjectWGSL, &p.GIInject},
		{"gi_propagate", shaders.GiPropagateWGSL, &p.GIPropagate},
		{"bloom_downsample", shaders.BloomDownsampleWGSL, &p.BloomDownsample},
		{"exposure_histogram", shaders.ExposureHistogramWGSL, &p.ExposureHistogram},
		{"exposure_reduce", shaders.ExposureReduceWGSL, &p.ExposureReduce},
		{"sun_shafts", shaders.SunShaftsWGSL, &p.SunShafts},
	} {
		mod, merr := shaderModule(device, c.label+".wgsl", c.code)
		if merr != nil {
			return nil, merr
		}
		pipe, perr := computePipeline(device, c.label, mod)
		mod.Release()
		if perr != nil {
			return nil, perr
		}
		*c.dst = pipe
	}

	p.LinearSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "linear",
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "linear sampler", err)
	}

	// Reverse-Z shadow comparison: the fragment is lit when its depth is
	// >= the stored occluder depth.
	p.ShadowSampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "shadow-compare",
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		Compare:       wgpu.CompareFunctionGreaterEqual,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, rerr.Wrap(rerr.PipelineCreateFailed, "render.Pipelines", "shadow sampler", err)
	}
	return p, nil
}
