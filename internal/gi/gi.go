// Package gi implements the voxel GI volume: a clipmap-style cubic
// occupancy/radiance grid updated by compute with an injection pass and
// N propagation iterations over two full-size ping-pong radiance
// images.
package gi

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/gpu"
)

const (
	// CellSize is the grid's cell edge length in world units.
	CellSize = 0.5

	// PropagationIterations is kVoxelGiPropagationIterations.
	PropagationIterations = 4

	// FrameDecay is kVoxelGiPropagateFrameDecay: the total retention
	// across all propagation iterations combined.
	FrameDecay = 0.93

	InjectSunScale = 1.0
	InjectShScale  = 0.6

	// yOriginSnapThreshold is the displacement past which the grid's Y
	// origin is allowed to move.
	yOriginSnapThreshold = 4 * CellSize
)

// perIterationDecay is the per-propagate-pass retention factor such
// that PropagationIterations compounded equal FrameDecay.
var perIterationDecay = float32(math.Pow(FrameDecay, 1.0/float64(PropagationIterations)))

// PerIterationDecay exposes the per-pass retention factor to the
// dispatch uniform.
func PerIterationDecay() float32 { return perIterationDecay }

// VisualizationMode selects the debug view the main pass samples
// instead of the composited GI result.
type VisualizationMode uint32

const (
	VisOff VisualizationMode = iota
	VisRadiance
	VisOccupancy
	VisAOOnly
	VisFaceContribution
	visModeCount
)

func (m VisualizationMode) Valid() bool { return m < visModeCount }

// Grid tracks the clipmap's world-space placement: a cubic box of side
// Side*CellSize, snapped on X/Z every frame and on Y only past
// yOriginSnapThreshold.
type Grid struct {
	Side   int
	Origin mgl32.Vec3
	inited bool
}

func NewGrid(side int) *Grid {
	return &Grid{Side: side}
}

// halfSpan is half the grid's world-space extent along one axis.
func (g *Grid) halfSpan() float32 {
	return float32(g.Side) * CellSize / 2
}

func snapAxis(v, cell float32) float32 {
	return float32(math.Floor(float64(v/cell))) * cell
}

// UpdateOrigin recomputes the clipmap origin for the given camera
// position, applying the Y hysteresis threshold, and reports whether
// the origin moved.
func (g *Grid) UpdateOrigin(camera mgl32.Vec3) (moved bool) {
	half := g.halfSpan()
	desiredX := snapAxis(camera.X()-half, CellSize)
	desiredZ := snapAxis(camera.Z()-half, CellSize)
	desiredY := snapAxis(camera.Y()-half, CellSize)

	if !g.inited {
		g.Origin = mgl32.Vec3{desiredX, desiredY, desiredZ}
		g.inited = true
		return true
	}

	next := g.Origin
	if desiredX != g.Origin.X() {
		next[0] = desiredX
		moved = true
	}
	if desiredZ != g.Origin.Z() {
		next[2] = desiredZ
		moved = true
	}
	if float32(math.Abs(float64(desiredY-g.Origin.Y()))) > yOriginSnapThreshold {
		next[1] = desiredY
		moved = true
	}
	g.Origin = next
	return moved
}

// Dirty tracks the inputs that force a GI recompute even when the
// occupancy volume itself is unchanged.
type Dirty struct {
	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3
	SHCoeffs     [9]mgl32.Vec3
	Strength     float32
	AmbientScale float32
	have         bool
}

// Changed reports whether any tracked input differs from the last call,
// updating its snapshot regardless of the result.
func (d *Dirty) Changed(sunDir, sunColor mgl32.Vec3, sh [9]mgl32.Vec3, strength, ambient float32) bool {
	changed := !d.have ||
		d.SunDirection != sunDir ||
		d.SunColor != sunColor ||
		d.SHCoeffs != sh ||
		d.Strength != strength ||
		d.AmbientScale != ambient

	d.SunDirection, d.SunColor, d.SHCoeffs = sunDir, sunColor, sh
	d.Strength, d.AmbientScale = strength, ambient
	d.have = true
	return changed
}

// Volume owns the GI subsystem's GPU resources: one occupancy image and
// six face-storage images, plus two ping-pong radiance images.
type Volume struct {
	Grid *Grid

	Occupancy gpu.ImageHandle
	Faces     [6]gpu.ImageHandle // per-axis surface contribution
	PingA     gpu.ImageHandle
	PingB     gpu.ImageHandle

	pingAIsCurrent bool

	dirty      Dirty
	worldDirty bool
	firstFrame bool
}

func NewVolume(side int) *Volume {
	return &Volume{Grid: NewGrid(side), firstFrame: true}
}

// MarkWorldDirty flags that chunk data changed and the occupancy volume
// must be re-uploaded next frame.
func (v *Volume) MarkWorldDirty() { v.worldDirty = true }

// NeedsOccupancyUpload reports whether the occupancy buffer must be
// re-copied this frame: world dirty, grid moved, or first frame
//.
func (v *Volume) NeedsOccupancyUpload(gridMoved bool) bool {
	return v.worldDirty || gridMoved || v.firstFrame
}

// ConsumeOccupancyUpload clears the dirty flags after the copy-buffer-
// to-image has been recorded.
func (v *Volume) ConsumeOccupancyUpload() {
	v.worldDirty = false
	v.firstFrame = false
}

// ShouldDispatch is the skip policy: the compute chain runs only if
// occupancy was (re)uploaded this frame or a tracked input changed;
// otherwise the previous frame's ping image is kept and sampled as-is.
func (v *Volume) ShouldDispatch(occupancyUploaded bool, sunDir, sunColor mgl32.Vec3, sh [9]mgl32.Vec3, strength, ambient float32) bool {
	inputsChanged := v.dirty.Changed(sunDir, sunColor, sh, strength, ambient)
	return occupancyUploaded || inputsChanged
}

// CurrentRadiance returns the ping-pong image currently holding valid
// composited radiance (the last Inject/Propagate wrote here).
func (v *Volume) CurrentRadiance() gpu.ImageHandle {
	if v.pingAIsCurrent {
		return v.PingA
	}
	return v.PingB
}

// RunInjectAndPropagate records the compute dispatch sequence for one
// frame's gi_inject + PropagationIterations*gi_propagate passes,
// ping-ponging source/destination and applying perIterationDecay at
// each step so the whole chain's combined retention equals FrameDecay
//. dispatch is supplied by the caller (the root engine), which
// owns the actual command encoder and compute pipelines; this function
// only decides which images are source/destination each iteration.
func (v *Volume) RunInjectAndPropagate(dispatch func(pass string, src, dst gpu.ImageHandle, decay float32)) {
	src, dst := v.PingB, v.PingA
	if v.pingAIsCurrent {
		src, dst = v.PingA, v.PingB
	}
	dispatch("gi_inject", src, dst, 1.0)
	v.pingAIsCurrent = dst == v.PingA

	for i := 0; i < PropagationIterations; i++ {
		src, dst = dst, src
		dispatch("gi_propagate", src, dst, perIterationDecay)
		v.pingAIsCurrent = dst == v.PingA
	}
}

// UBO is the GI uniform payload: grid origin, cell size, grid extent,
// global strength, ambient-rebalance strength, ambient floor,
// visualization mode, and AO enable - each its own named field rather
// than a channel smuggled through an unrelated vector.
type UBO struct {
	Origin                 mgl32.Vec3
	CellSize               float32
	Extent                 uint32
	Strength               float32
	AmbientRebalanceStrength float32
	AmbientFloor           float32
	Visualization          VisualizationMode
	AOEnabled              uint32
}

func (v *Volume) BuildUBO(strength, ambientRebalance, ambientFloor float32, vis VisualizationMode, aoEnabled bool) UBO {
	ao := uint32(0)
	if aoEnabled {
		ao = 1
	}
	return UBO{
		Origin:                   v.Grid.Origin,
		CellSize:                 CellSize,
		Extent:                   uint32(v.Grid.Side),
		Strength:                 strength,
		AmbientRebalanceStrength: ambientRebalance,
		AmbientFloor:             ambientFloor,
		Visualization:            vis,
		AOEnabled:                ao,
	}
}
