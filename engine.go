// Package voxelsprout is the renderer's host-facing surface: an opaque
// Engine owning every subsystem, with exported methods standing in for
// the operation table a host embeds. All GPU work happens inside
// RenderFrame; the host owns the window, the input loop, and the world
// and simulation state it hands in each frame.
package voxelsprout

import (
	"math"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/gi"
	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/graph"
	"github.com/voxelsprout/renderer/internal/logging"
	"github.com/voxelsprout/renderer/internal/orchestrator"
	"github.com/voxelsprout/renderer/internal/post"
	"github.com/voxelsprout/renderer/internal/render"
	"github.com/voxelsprout/renderer/internal/shadow"
	"github.com/voxelsprout/renderer/internal/sim"
	"github.com/voxelsprout/renderer/internal/ssao"
	"github.com/voxelsprout/renderer/internal/upload"
	"github.com/voxelsprout/renderer/internal/voxel"
	"github.com/voxelsprout/renderer/internal/world"
)

const framesInFlight = 2

const (
	giGridSide       = 64
	shadowResolution = 4096
	uploadRingBytes  = 64 << 20

	// grassShadowCascadeCount bounds how many cascades receive grass
	// casters; the far cascades would only waste fill on sub-texel
	// billboards.
	grassShadowCascadeCount = 2
)

// uiState holds the host-toggleable overlay flags.
type uiState struct {
	debugVisible      bool
	frameStatsVisible bool
	uiFrameOpen       bool
}

// cameraState is the host-tunable camera/sun configuration.
type cameraState struct {
	fovDegrees   float32
	sunAzimuth   float32
	sunElevation float32
	sunColor     mgl32.Vec3
}

// tuning collects the GI/post knobs the debug panels adjust.
type tuning struct {
	giStrength        float32
	giAmbientRebalance float32
	giAmbientFloor    float32
	giVisualization   gi.VisualizationMode
	bloomStrength     float32
	shaftStrength     float32
}

// Engine is the opaque renderer instance. The zero value is not ready
// to use; construct with New and call Init once a GPU device and
// surface exist.
type Engine struct {
	logger logging.Logger

	device *wgpu.Device
	queue  *wgpu.Queue

	timeline *gpu.Timeline
	alloc    *gpu.Allocator
	arena    *gpu.Arena
	graph    *graph.Graph

	shadows  *shadow.Coordinator
	giVolume *gi.Volume
	renderer *render.Renderer

	uploadPath *upload.Path
	meshCache  *voxel.MeshCache
	meshWorld  *world.World
	globals    upload.GlobalBuffers

	orch  *orchestrator.Orchestrator
	stats orchestrator.FrameStats

	ui     uiState
	camera cameraState
	tune   tuning

	ssaoEnabled   ssao.Enabled
	indirectDraws bool

	remeshRequested bool
	worldDirty      bool

	initialized bool
}

// New constructs an Engine in its pre-Init state. Subsystems that need
// a GPU device are created inside Init.
func New() *Engine {
	e := &Engine{
		logger: logging.Default(),
		camera: cameraState{
			fovDegrees:   60,
			sunAzimuth:   -45,
			sunElevation: 70,
			sunColor:     mgl32.Vec3{1.0, 0.96, 0.9},
		},
		tune: tuning{
			giStrength:         1.0,
			giAmbientRebalance: 0.5,
			giAmbientFloor:     0.05,
			bloomStrength:      0.35,
			shaftStrength:      0.6,
		},
	}
	e.ssaoEnabled.Set(true)
	return e
}

// InitParams bundles what Init needs from the host: the GPU objects the
// host created during window setup plus the swapchain adapter.
type InitParams struct {
	Device        *wgpu.Device
	Swap          orchestrator.Swapchain
	SurfaceFormat wgpu.TextureFormat

	// IndirectDraws enables indexed-indirect chunk draws; hosts on
	// devices without first-instance indirect support leave it false
	// and the recorder falls back to per-range direct draws.
	IndirectDraws bool
}

// Init wires the subsystems together and reports success. Any failure
// here is fatal to startup; the host should terminate.
func (e *Engine) Init(params InitParams) bool {
	if params.Device == nil || params.Swap == nil {
		e.logger.Errorf("engine: Init called with nil device or swapchain")
		return false
	}

	e.device = params.Device
	e.queue = params.Device.GetQueue()
	e.indirectDraws = params.IndirectDraws

	e.timeline = gpu.NewTimeline()
	e.alloc = gpu.NewAllocator(params.Device)

	arena, err := gpu.NewArena(e.alloc, e.timeline, framesInFlight, uploadRingBytes)
	if err != nil {
		e.logger.Errorf("engine: arena init failed: %v", err)
		return false
	}
	e.arena = arena

	g, err := graph.New()
	if err != nil {
		e.logger.Errorf("engine: frame graph validation failed: %v", err)
		return false
	}
	e.graph = g

	w, h := params.Swap.FramebufferSize()
	if w == 0 || h == 0 {
		w, h = 1, 1
	}
	renderer, err := render.NewRenderer(params.Device, e.alloc, params.SurfaceFormat, w, h, shadowResolution, giGridSide)
	if err != nil {
		e.logger.Errorf("engine: renderer init failed: %v", err)
		return false
	}
	e.renderer = renderer

	e.shadows = shadow.NewCoordinator()
	e.giVolume = gi.NewVolume(giGridSide)
	e.giVolume.Occupancy = renderer.Targets.GIOccupancy
	e.giVolume.Faces = renderer.Targets.GIFaces
	e.giVolume.PingA = renderer.Targets.GIPingA
	e.giVolume.PingB = renderer.Targets.GIPingB
	e.uploadPath = upload.NewPath(e.alloc, e.timeline)

	e.orch = orchestrator.New(e.timeline, e.alloc, e.arena, e.graph, params.Swap, framesInFlight, false)

	e.initialized = true
	return true
}

// BeginUIFrame opens the overlay state machine for this frame; the
// widget tree itself is a host concern.
func (e *Engine) BeginUIFrame() {
	if !e.initialized {
		return
	}
	e.ui.uiFrameOpen = true
}

// PreviewPlacement is the optional hovered-cell placement preview.
type PreviewPlacement struct {
	X, Y, Z int
	Tint    mgl32.Vec3
}

// RenderParameters is the per-frame input the host supplies: the world
// and simulation snapshots to draw plus the camera pose.
type RenderParameters struct {
	World *world.World
	Sim   *sim.Simulation

	CameraPos     mgl32.Vec3
	CameraForward mgl32.Vec3
	CameraUp      mgl32.Vec3
	AspectRatio   float32
	NearClip      float32
	FarClip       float32

	MeshLOD      int
	GrassEnabled bool
	Preview      *PreviewPlacement
}

// InvalidateChunk flags one chunk for incremental remesh on the next
// frame's upload.
func (e *Engine) InvalidateChunk(chunkIndex int) {
	if e.meshCache != nil {
		e.meshCache.MarkDirty(chunkIndex)
	}
	if e.uploadPath != nil {
		e.uploadPath.MarkGrassDirty(chunkIndex)
	}
	e.remeshRequested = true
	e.worldDirty = true
}

// InvalidateWorld forces a full remesh and occupancy re-upload, used
// after bulk edits or a world load.
func (e *Engine) InvalidateWorld() {
	e.meshCache = nil
	e.remeshRequested = true
	e.worldDirty = true
}

// RenderFrame drives one full frame and reports whether the engine can
// keep running. Recoverable hiccups (stalled slot, zero framebuffer,
// out-of-date swapchain) return true after skipping the frame's work.
func (e *Engine) RenderFrame(params RenderParameters) bool {
	if !e.initialized {
		return false
	}

	e.stats.Tick(float64(time.Now().UnixNano()) / 1e9)

	if step := e.orch.BeginFrame(); step == orchestrator.StepSlotStalled {
		time.Sleep(time.Millisecond)
		return true
	}

	if !e.matchTargetsToSwapchain() {
		return true
	}

	img, step := e.orch.AcquireSwapchain()
	switch step {
	case orchestrator.StepSwapchainSkippedZeroFramebuffer,
		orchestrator.StepAcquireOutOfDate,
		orchestrator.StepAcquireTimeout:
		return true
	}

	surfaceView, err := img.CreateView()
	if err != nil {
		e.logger.Warnf("engine: swapchain view creation failed: %v", err)
		e.orch.CompleteFrame(img, e.timeline.NextValue())
		return true
	}
	defer surfaceView.Release()

	sunDir := sunDirectionFromAngles(e.camera.sunAzimuth, e.camera.sunElevation)
	splits := e.shadows.UpdateSplits(params.NearClip, params.FarClip)
	var cascades [shadow.CascadeCount]shadow.Cascade
	for i := range cascades {
		cascades[i] = e.shadows.Compute(i, splits[i], splits[i+1],
			mgl32.DegToRad(e.camera.fovDegrees), params.AspectRatio,
			params.CameraPos, params.CameraForward, sunDir, shadowResolution)
	}

	e.syncMeshCache(params.World)
	if params.World != nil && e.remeshRequested && e.orch.BeginChunkUpload(true) {
		e.runChunkUpload(params)
	}

	giSteps := e.updateGI(params, sunDir)

	uniform := orchestrator.BuildCameraUniform(
		params.CameraPos, params.CameraForward, params.CameraUp,
		mgl32.DegToRad(e.camera.fovDegrees), params.AspectRatio, params.NearClip, params.FarClip,
		cascades, splits, sunDir, e.camera.sunColor,
		e.giVolume.BuildUBO(e.tune.giStrength, e.tune.giAmbientRebalance, e.tune.giAmbientFloor, e.tune.giVisualization, e.ssaoEnabled.Get()),
		e.ssaoEnabled.Get(),
	)

	inputs, ok := e.stageFrameData(params, uniform, giSteps)
	if !ok {
		// Upload staging failed wholesale; present a frame with only
		// sky and post so the loop keeps going.
		inputs = &render.FrameInputs{GISide: giGridSide}
	}
	inputs.SurfaceView = surfaceView
	inputs.IndirectSupported = e.indirectDraws
	inputs.SSAOEnabled = e.ssaoEnabled.Get()

	if err := e.arena.Flush(e.queue, e.orch.CurrentSlot()); err != nil {
		e.logger.Warnf("engine: arena flush failed: %v", err)
	}

	e.renderer.ResetHistogram()
	e.renderer.UpdateExposureDt(e.stats.DeltaSeconds())
	e.updateShaftParams(uniform, sunDir)

	value := e.recordAndSubmit(inputs)
	e.orch.CompleteFrame(img, value)
	e.ui.uiFrameOpen = false
	return true
}

// matchTargetsToSwapchain rebuilds the sized render targets after a
// swapchain recreation changed the framebuffer extent. Waits for the
// GPU to drain first so no in-flight frame still references the old
// targets.
func (e *Engine) matchTargetsToSwapchain() bool {
	w, h := e.orch.FramebufferSize()
	if w == 0 || h == 0 {
		return false
	}
	if w == e.renderer.Targets.Width && h == e.renderer.Targets.Height {
		return true
	}
	e.timeline.Poll(e.device, true)
	if err := e.renderer.Resize(w, h); err != nil {
		e.logger.Errorf("engine: target resize failed: %v", err)
		return false
	}
	return true
}

// syncMeshCache keeps the LOD cache bound to the world's grid,
// creating it on the first frame a world is supplied.
func (e *Engine) syncMeshCache(w *world.World) {
	if w == nil {
		return
	}
	if e.meshCache == nil || e.meshWorld != w {
		e.meshCache = voxel.NewMeshCache(w.Chunks(), voxel.ModeGreedy)
		e.meshWorld = w
		e.remeshRequested = true
		e.worldDirty = true
	}
}

// runChunkUpload remeshes dirty chunks and rebuilds the global VB/IB,
// recording the transfer's timeline value as the next frame's wait.
func (e *Engine) runChunkUpload(params RenderParameters) {
	remeshed := e.meshCache.Update()
	if remeshed > 0 {
		e.logger.Debugf("engine: remeshed %d chunks", remeshed)
	}

	// The previous VB/IB must survive every submission already issued
	// against it; the last graphics value upper-bounds those.
	releaseAt := e.orch.LastGraphicsValue()
	if v, ok := e.orch.PendingTransferValue(); ok && v > releaseAt {
		releaseAt = v
	}
	grassSource := e.grassSourceFor(params.World)
	globals, err := e.uploadPath.Rebuild(e.meshCache, params.World.Chunks(), params.MeshLOD, grassSource, e.queue, releaseAt)
	if err != nil {
		e.logger.Warnf("engine: chunk upload failed, keeping previous draw state: %v", err)
		return
	}
	e.globals = globals
	e.remeshRequested = false

	// Give the staged copies their own submission boundary so the
	// transfer completion is observable independently of the frame.
	enc, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		return
	}
	cmd, err := enc.Finish(nil)
	if err != nil {
		return
	}
	e.queue.Submit(cmd)
	value := e.timeline.NextValue()
	e.timeline.TrackSubmission(e.queue, value)
	e.orch.RecordPendingTransfer(value)
}

// grassSourceFor deterministically scatters billboards over a chunk's
// exposed top faces.
func (e *Engine) grassSourceFor(w *world.World) upload.GrassSource {
	if w == nil {
		return nil
	}
	grid := w.Chunks()
	return func(chunkIndex int) []upload.GrassInstance {
		if chunkIndex < 0 || chunkIndex >= grid.Len() {
			return nil
		}
		c := grid.Chunk(chunkIndex)
		offset := c.WorldOffset()
		var out []upload.GrassInstance
		for x := 0; x < voxel.ChunkSizeX; x++ {
			for z := 0; z < voxel.ChunkSizeZ; z++ {
				for y := voxel.ChunkSizeY - 1; y >= 0; y-- {
					v := c.VoxelAt(x, y, z)
					if !v.IsSolid() {
						continue
					}
					if c.IsSolid(x, y+1, z) {
						break
					}
					h := uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791 ^ uint32(chunkIndex)*99999989
					if h%5 == 0 {
						out = append(out, upload.GrassInstance{
							Position: [3]float32{
								offset[0] + float32(x) + 0.5,
								offset[1] + float32(y) + 1,
								offset[2] + float32(z) + 0.5,
							},
							Rotation:   float32(h%628) / 100,
							ColorIndex: uint8(h >> 8),
						})
					}
					break
				}
			}
		}
		return out
	}
}

// updateGI snaps the clipmap, re-uploads occupancy when required, and
// returns the dispatch steps for this frame (empty when the skip
// policy holds the previous volume).
func (e *Engine) updateGI(params RenderParameters, sunDir mgl32.Vec3) []render.GiStep {
	moved := e.giVolume.Grid.UpdateOrigin(params.CameraPos)

	occupancyUploaded := false
	if params.World != nil && e.giVolume.NeedsOccupancyUpload(moved || e.worldDirty) {
		origin := e.giVolume.Grid.Origin
		w := params.World
		data := gi.PackOccupancy(giGridSide, func(x, y, z int) (bool, uint8, uint8, uint8) {
			wx := int(math.Floor(float64(origin.X()) + (float64(x)+0.5)*gi.CellSize))
			wy := int(math.Floor(float64(origin.Y()) + (float64(y)+0.5)*gi.CellSize))
			wz := int(math.Floor(float64(origin.Z()) + (float64(z)+0.5)*gi.CellSize))
			v := w.VoxelAt(wx, wy, wz)
			if !v.IsSolid() {
				return false, 0, 0, 0
			}
			r, g, b := paletteAlbedo(v.ColorIndex)
			return true, r, g, b
		})
		e.renderer.UploadOccupancy(data, giGridSide)
		e.giVolume.ConsumeOccupancyUpload()
		e.worldDirty = false
		occupancyUploaded = true
	}

	sh := skySH(sunDir)
	if !e.giVolume.ShouldDispatch(occupancyUploaded, sunDir, e.camera.sunColor, sh, e.tune.giStrength, e.tune.giAmbientRebalance) {
		return nil
	}

	ubo := e.giVolume.BuildUBO(e.tune.giStrength, e.tune.giAmbientRebalance, e.tune.giAmbientFloor, e.tune.giVisualization, e.ssaoEnabled.Get())
	e.renderer.UpdateGiParams(render.PackGiParams(ubo, sunDir, e.camera.sunColor, skyRadiance(sunDir), gi.PerIterationDecay()))

	var steps []render.GiStep
	first := true
	e.giVolume.RunInjectAndPropagate(func(pass string, src, dst gpu.ImageHandle, decay float32) {
		srcIsA := src == e.giVolume.PingA
		if first {
			// The sky seed and surface pass precede the first inject and
			// write the image it reads.
			steps = append(steps,
				render.GiStep{Kind: render.GiStepSky, SrcIsA: srcIsA},
				render.GiStep{Kind: render.GiStepSurface, SrcIsA: srcIsA},
			)
			first = false
		}
		kind := render.GiStepInject
		if pass == "gi_propagate" {
			kind = render.GiStepPropagate
		}
		steps = append(steps, render.GiStep{Kind: kind, SrcIsA: srcIsA})
	})
	return steps
}

// paletteAlbedo mirrors the shader's 16-entry base-color palette.
func paletteAlbedo(colorIndex uint8) (uint8, uint8, uint8) {
	palette := [16][3]uint8{
		{105, 105, 105}, {139, 69, 19}, {34, 139, 34}, {70, 130, 180},
		{255, 215, 0}, {178, 34, 34}, {112, 128, 144}, {160, 82, 45},
		{85, 107, 47}, {65, 105, 225}, {210, 105, 30}, {47, 79, 79},
		{205, 92, 92}, {95, 158, 160}, {205, 133, 63}, {128, 128, 128},
	}
	c := palette[colorIndex&0xF]
	return c[0], c[1], c[2]
}

// skySH is the 9-coefficient ambient snapshot the GI skip policy
// tracks; only the DC term is populated from the sky color.
func skySH(sunDir mgl32.Vec3) [9]mgl32.Vec3 {
	var sh [9]mgl32.Vec3
	sh[0] = skyRadiance(sunDir)
	return sh
}

func skyRadiance(sunDir mgl32.Vec3) mgl32.Vec3 {
	day := float32(math.Max(float64(-sunDir.Y()), 0.05))
	return mgl32.Vec3{0.35 * day, 0.45 * day, 0.65 * day}
}

// stageFrameData allocates and fills every frame-arena slice this
// frame's recording reads: the camera UBO, chunk params, indirect
// commands, and the instance streams.
func (e *Engine) stageFrameData(params RenderParameters, uniform orchestrator.CameraUniform, giSteps []render.GiStep) (*render.FrameInputs, bool) {
	slot := e.orch.CurrentSlot()
	in := &render.FrameInputs{
		GISteps: giSteps,
		GISide:  giGridSide,
	}

	alloc := func(data []byte, kind gpu.UploadKind) (gpu.Slice, bool) {
		if len(data) == 0 {
			return gpu.Slice{}, false
		}
		s, err := e.arena.AllocateUpload(slot, uint64(len(data)), 256, kind)
		if err != nil {
			e.logger.Warnf("engine: upload slice failed (%d bytes): %v", len(data), err)
			return gpu.Slice{}, false
		}
		copy(s.Mapped, data)
		return s, true
	}

	cameraBytes := render.PackCameraData(uniform, 1.0,
		float32(e.renderer.Targets.Width), float32(e.renderer.Targets.Height),
		e.tune.bloomStrength, e.tune.shaftStrength)
	cam, ok := alloc(cameraBytes, gpu.KindCameraUniform)
	if !ok {
		return nil, false
	}
	in.Camera = cam

	ranges := e.globals.DrawRanges
	if len(ranges) > 0 && e.globals.Vertex.Valid() {
		commands := render.BuildChunkIndirectCommands(ranges)
		in.Commands = commands
		in.RangeCount = uint32(len(ranges))
		in.DrawCount = uint32(len(commands))

		if s, ok := alloc(render.PackChunkParams(ranges, 0), gpu.KindInstanceData); ok {
			in.ChunkParams = s
		} else {
			in.DrawCount = 0
		}

		var shadowParams []byte
		for cascade := 0; cascade < shadow.CascadeCount; cascade++ {
			shadowParams = append(shadowParams, render.PackChunkParams(ranges, float32(cascade))...)
		}
		if s, ok := alloc(shadowParams, gpu.KindInstanceData); ok {
			in.ShadowParams = s
		} else {
			in.DrawCount = 0
		}

		if in.DrawCount > 0 {
			if s, ok := alloc(render.PackIndirectCommands(commands), gpu.KindInstanceData); ok {
				in.Indirect = s
			} else {
				in.DrawCount = 0
			}
			for cascade := range in.ShadowIndirect {
				shadowCmds := render.BuildChunkIndirectCommandsWithBase(ranges, uint32(cascade)*in.RangeCount)
				if s, ok := alloc(render.PackIndirectCommands(shadowCmds), gpu.KindInstanceData); ok {
					in.ShadowIndirect[cascade] = s
				} else {
					in.DrawCount = 0
				}
			}
		}

		if in.DrawCount > 0 {
			vb, vok := e.alloc.GetBuffer(e.globals.Vertex)
			ib, iok := e.alloc.GetBuffer(e.globals.Index)
			if vok && iok {
				in.VertexBuf, in.IndexBuf = vb, ib
			} else {
				in.DrawCount = 0
			}
		}
	}

	if params.Sim != nil {
		streams := [][]render.MeshInstance{
			render.BuildPipeInstances(params.Sim.Pipes()),
			render.BuildBeltInstances(params.Sim.Belts()),
			render.BuildTrackInstances(params.Sim.Tracks()),
			render.BuildCargoInstances(params.Sim.BeltCargoes(), params.Sim.Belts()),
		}
		var casters []render.MeshInstance
		for _, instances := range streams {
			if len(instances) == 0 {
				continue
			}
			if s, ok := alloc(render.PackMeshInstances(instances), gpu.KindInstanceData); ok {
				in.Streams = append(in.Streams, render.InstanceStream{Slice: s, Count: uint32(len(instances))})
			}
			casters = append(casters, instances...)
		}
		for cascade := 0; cascade < shadow.CascadeCount; cascade++ {
			if len(casters) == 0 {
				break
			}
			tagged := make([]render.MeshInstance, len(casters))
			copy(tagged, casters)
			for i := range tagged {
				tagged[i].Tint[3] = float32(cascade)
			}
			if s, ok := alloc(render.PackMeshInstances(tagged), gpu.KindInstanceData); ok {
				in.ShadowCasters[cascade] = render.InstanceStream{Slice: s, Count: uint32(len(tagged))}
			}
		}
	}

	if params.Preview != nil {
		preview := []render.MeshInstance{render.BuildPreviewInstance(params.Preview.X, params.Preview.Y, params.Preview.Z, params.Preview.Tint)}
		if s, ok := alloc(render.PackMeshInstances(preview), gpu.KindPreviewData); ok {
			in.Streams = append(in.Streams, render.InstanceStream{Slice: s, Count: 1})
		}
	}

	if params.GrassEnabled && params.World != nil {
		grid := params.World.Chunks()
		var grass []upload.GrassInstance
		for i := 0; i < grid.Len(); i++ {
			grass = append(grass, e.uploadPath.GrassInstances(i)...)
		}
		if len(grass) > 0 {
			if s, ok := alloc(render.PackGrassInstances(grass), gpu.KindInstanceData); ok {
				in.Grass = render.InstanceStream{Slice: s, Count: uint32(len(grass))}
			}
			for cascade := 0; cascade < grassShadowCascadeCount; cascade++ {
				if s, ok := alloc(render.PackGrassShadowInstances(grass, cascade), gpu.KindInstanceData); ok {
					in.GrassShadow = append(in.GrassShadow, render.InstanceStream{Slice: s, Count: uint32(len(grass))})
				}
			}
		}
	}

	return in, true
}

// updateShaftParams projects the sun into screen space and refreshes
// the ray-march uniform.
func (e *Engine) updateShaftParams(uniform orchestrator.CameraUniform, sunDir mgl32.Vec3) {
	uv, behind := post.SunScreenPosition(uniform.MVP, sunDir.Mul(-1))
	invVP := uniform.MVP.Inv()
	e.renderer.UpdateShaftParams(render.PackShaftParams(uv, behind, e.tune.shaftStrength, uniform.CascadeViewProj[0], invVP))
}

// recordAndSubmit walks the frame graph's pass order, records each
// pass, and submits with per-pass CPU timings recorded for the stats
// overlay (GPU timestamp queries are unavailable on this backend, so
// GPUTimings reports them as unsupported).
func (e *Engine) recordAndSubmit(in *render.FrameInputs) uint64 {
	encoder, err := e.device.CreateCommandEncoder(nil)
	if err != nil {
		e.logger.Errorf("engine: command encoder creation failed: %v", err)
		return e.timeline.NextValue()
	}

	slotBuf, _ := e.arena.SlotBuffer(e.orch.CurrentSlot())
	ctx := e.renderer.NewFrameCtx(encoder, in, slotBuf)

	timing := orchestrator.FrameTiming{PassNanos: make(map[graph.PassName]int64)}
	radianceIsA := e.giVolume.CurrentRadiance() == e.giVolume.PingA

	for _, pass := range e.orch.PassOrder() {
		start := time.Now()
		switch pass {
		case graph.PassShadow:
			render.RecordShadowPass(ctx)
		case graph.PassGISurface:
			render.RecordGIPasses(ctx)
		case graph.PassGIInject, graph.PassGIPropagate:
			// Folded into the gi_surface dispatch block; the graph still
			// sequences and labels them.
		case graph.PassPrepass:
			render.RecordPrepass(ctx)
		case graph.PassSSAO:
			render.RecordSSAOPasses(ctx)
		case graph.PassSSAOBlur:
			// Folded into the ssao block.
		case graph.PassMain:
			render.RecordMainPass(ctx, radianceIsA)
		case graph.PassAutoExposure:
			render.RecordAutoExposure(ctx)
		case graph.PassSunShafts:
			render.RecordSunShafts(ctx)
		case graph.PassPost:
			render.RecordTonemap(ctx)
		case graph.PassImgui, graph.PassPresent:
			// Nothing is recorded for UI; present happens after
			// submit.
		}
		timing.PassNanos[pass] = time.Since(start).Nanoseconds()
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		e.logger.Errorf("engine: command encoding failed: %v", err)
		ctx.ReleaseTransients()
		return e.timeline.NextValue()
	}
	e.queue.Submit(cmd)

	value := e.timeline.NextValue()
	e.timeline.TrackSubmission(e.queue, value)
	ctx.ReleaseTransients()
	e.orch.RecordTiming(timing)
	return value
}

// Shutdown drains the GPU and releases resources in reverse dependency
// order.
func (e *Engine) Shutdown() {
	if !e.initialized {
		return
	}
	e.timeline.Poll(e.device, true)
	e.timeline.CollectCompletedReleases(e.alloc)
	e.renderer.Targets.Release()
	e.initialized = false
}

// FrameIndex reports frames begun so far.
func (e *Engine) FrameIndex() uint32 {
	if e.orch == nil {
		return 0
	}
	return e.orch.FrameIndex()
}

// GPUTimings reports the most recent per-pass timings.
func (e *Engine) GPUTimings() orchestrator.GpuTimingInfo {
	if e.orch == nil {
		return orchestrator.GpuTimingInfo{}
	}
	return e.orch.GPUTimings()
}

// FrameStatsEWMA reports the smoothed frame time in milliseconds.
func (e *Engine) FrameStatsEWMA() float64 { return e.stats.EWMAMs }

func (e *Engine) SetDebugUIVisible(v bool)    { e.ui.debugVisible = v }
func (e *Engine) IsDebugUIVisible() bool      { return e.ui.debugVisible }
func (e *Engine) SetFrameStatsVisible(v bool) { e.ui.frameStatsVisible = v }
func (e *Engine) IsFrameStatsVisible() bool   { return e.ui.frameStatsVisible }

// SetAOEnabled toggles the SSAO contribution.
func (e *Engine) SetAOEnabled(v bool) { e.ssaoEnabled.Set(v) }

// SetGIVisualization selects a GI debug view.
func (e *Engine) SetGIVisualization(mode gi.VisualizationMode) {
	if mode.Valid() {
		e.tune.giVisualization = mode
	}
}

// SetSunAngles sets the directional light's azimuth/elevation in
// degrees.
func (e *Engine) SetSunAngles(azimuthDegrees, elevationDegrees float32) {
	e.camera.sunAzimuth = azimuthDegrees
	e.camera.sunElevation = elevationDegrees
}

// CameraFovDegrees returns the current vertical field of view in
// degrees.
func (e *Engine) CameraFovDegrees() float32 { return e.camera.fovDegrees }

// SetCameraFovDegrees updates the vertical field of view.
func (e *Engine) SetCameraFovDegrees(fov float32) { e.camera.fovDegrees = fov }

// sunDirectionFromAngles converts azimuth/elevation to the direction
// light travels (pointing down for positive elevation).
func sunDirectionFromAngles(azimuthDegrees, elevationDegrees float32) mgl32.Vec3 {
	az := float64(mgl32.DegToRad(azimuthDegrees))
	el := float64(mgl32.DegToRad(elevationDegrees))
	return mgl32.Vec3{
		float32(-math.Cos(el) * math.Cos(az)),
		float32(-math.Sin(el)),
		float32(-math.Cos(el) * math.Sin(az)),
	}.Normalize()
}
