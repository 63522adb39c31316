// Package shadow implements the cascaded shadow subsystem: split
// selection, per-cascade bounding-sphere fitting, and the texel-snapped
// light-space orthographic projection each cascade renders with.
package shadow

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	CascadeCount = 4

	// SplitLambda blends logarithmic and uniform split schemes.
	SplitLambda = 0.70
	// SplitQuantization is the step splits are rounded to, and the
	// minimum separation enforced between consecutive splits.
	SplitQuantization = 0.5
	// SplitUpdateThreshold: a newly computed split only replaces the
	// cached one once it has moved by more than this much, damping
	// single-frame jitter from small camera movement.
	SplitUpdateThreshold = 0.25

	RadiusPadFactor     = 1.04
	RadiusQuantization  = 1.0 / 16.0
	LightBackDistanceScale = 1.9
	LightBackDistanceBase  = 48.0
	UpHintSwitchThreshold  = 0.95

	DepthPadMin = 24.0
	DepthPadSlopeFactor = 0.35

	PolygonDepthBiasBase  = 1.25
	PolygonDepthBiasSlope = 1.75
)

// AtlasRect is one cascade's rectangle within the shared depth atlas.
type AtlasRect struct {
	X, Y, W, H uint32
}

// AtlasRects divides a square atlas of the given resolution into a
// 2x2 grid, one quadrant per cascade.
func AtlasRects(resolution uint32) [CascadeCount]AtlasRect {
	half := resolution / 2
	return [CascadeCount]AtlasRect{
		{X: 0, Y: 0, W: half, H: half},
		{X: half, Y: 0, W: half, H: half},
		{X: 0, Y: half, W: half, H: half},
		{X: half, Y: half, W: half, H: half},
	}
}

func quantize(v, step float32) float32 {
	return float32(math.Round(float64(v/step))) * step
}

func quantizeCeil(v, step float32) float32 {
	return float32(math.Ceil(float64(v/step))) * step
}

// Coordinator tracks split and radius history across frames so splits
// only move when they've drifted enough to matter, and a cascade's
// bounding radius never shrinks mid-session.
type Coordinator struct {
	splits      [CascadeCount + 1]float32
	haveSplits  bool
	maxRadius   [CascadeCount]float32
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// UpdateSplits recomputes the cascade near/far boundaries for the
// current near/far clip range, applying quantization and the
// hysteresis threshold.
func (co *Coordinator) UpdateSplits(nearClip, farClip float32) [CascadeCount + 1]float32 {
	var raw [CascadeCount + 1]float32
	raw[0] = nearClip
	raw[CascadeCount] = farClip

	ratio := farClip / nearClip
	for i := 1; i < CascadeCount; i++ {
		p := float32(i) / float32(CascadeCount)
		logSplit := nearClip * float32(math.Pow(float64(ratio), float64(p)))
		uniformSplit := nearClip + (farClip-nearClip)*p
		raw[i] = quantize(SplitLambda*logSplit+(1-SplitLambda)*uniformSplit, SplitQuantization)
	}

	if !co.haveSplits {
		co.splits = raw
		co.haveSplits = true
	} else {
		for i := 1; i < CascadeCount; i++ {
			if float32(math.Abs(float64(raw[i]-co.splits[i]))) > SplitUpdateThreshold {
				co.splits[i] = raw[i]
			}
		}
		co.splits[0] = nearClip
		co.splits[CascadeCount] = farClip
	}

	// Enforce strict monotonic separation after both quantization and
	// hysteresis, in case a damped split now sits too close to a
	// neighbor.
	for i := 1; i <= CascadeCount; i++ {
		if co.splits[i] < co.splits[i-1]+SplitQuantization {
			co.splits[i] = co.splits[i-1] + SplitQuantization
		}
	}
	return co.splits
}

// Cascade is one cascade's computed light-space transform and atlas
// placement for the current frame.
type Cascade struct {
	Index      int
	View       mgl32.Mat4
	Proj       mgl32.Mat4
	Radius     float32
	Atlas      AtlasRect
	DepthBias  float32
	SlopeBias  float32
}

// sliceRadius computes the bounding-sphere radius of the view
// sub-frustum spanning [near,far] with the given vertical FoV and
// aspect ratio.
func sliceRadius(near, far, fovY, aspect float32) float32 {
	tanHalfFov := float32(math.Tan(float64(fovY) / 2))
	farHeight := 2 * far * tanHalfFov
	farWidth := farHeight * aspect
	nearHeight := 2 * near * tanHalfFov
	nearWidth := nearHeight * aspect

	sphereZ := (near + far) / 2
	farCornerDist := far - sphereZ
	nearCornerDist := sphereZ - near

	farRadius := float32(math.Sqrt(float64(farCornerDist*farCornerDist + (farWidth/2)*(farWidth/2) + (farHeight/2)*(farHeight/2))))
	nearRadius := float32(math.Sqrt(float64(nearCornerDist*nearCornerDist + (nearWidth/2)*(nearWidth/2) + (nearHeight/2)*(nearHeight/2))))

	if nearRadius > farRadius {
		return nearRadius
	}
	return farRadius
}

// lightBasis builds an orthonormal right/up/forward frame for the
// light, forward = sunDir. The up hint swaps to world-right when the
// default hint is nearly parallel to the sun direction, avoiding a degenerate cross product.
func lightBasis(sunDir mgl32.Vec3) (right, up, forward mgl32.Vec3) {
	forward = sunDir.Normalize()
	hint := mgl32.Vec3{0, 0, 1} // fixed +Z hint; the world itself is Y-up
	if float32(math.Abs(float64(forward.Dot(hint)))) > UpHintSwitchThreshold {
		hint = mgl32.Vec3{1, 0, 0}
	}
	right = hint.Cross(forward).Normalize()
	up = forward.Cross(right).Normalize()
	return
}

// Compute builds the light-space view/projection for one cascade
//. camPos/camForward describe the viewer;
// splitNear/splitFar bound this cascade's slice of the view frustum.
func (co *Coordinator) Compute(index int, splitNear, splitFar, fovY, aspect float32, camPos, camForward mgl32.Vec3, sunDir mgl32.Vec3, resolution uint32) Cascade {
	radius := sliceRadius(splitNear, splitFar, fovY, aspect)
	radius = quantizeCeil(radius*RadiusPadFactor, RadiusQuantization)
	if radius < co.maxRadius[index] {
		radius = co.maxRadius[index]
	}
	co.maxRadius[index] = radius

	sliceCenter := camPos.Add(camForward.Mul((splitNear + splitFar) / 2))

	right, up, forward := lightBasis(sunDir)

	orthoWidth := radius * 2
	texelSize := orthoWidth / float32(resolution/2) // per-cascade atlas quadrant is resolution/2 square
	snappedCenter := snapCenterToTexels(sliceCenter, right, up, forward, texelSize)

	lightDistance := radius*LightBackDistanceScale + LightBackDistanceBase
	lightPos := snappedCenter.Sub(forward.Mul(lightDistance))

	depthPad := DepthPadMin
	if radius*DepthPadSlopeFactor > depthPad {
		depthPad = radius * DepthPadSlopeFactor
	}
	near := float32(0.01)
	far := lightDistance + radius + depthPad

	view := mgl32.LookAtV(lightPos, lightPos.Add(forward), up)
	// Reverse-Z: far maps to 0, near maps to 1.
	proj := reverseZOrtho(-radius, radius, -radius, radius, near, far)

	atlas := AtlasRects(resolution)[index]
	return Cascade{
		Index:     index,
		View:      view,
		Proj:      proj,
		Radius:    radius,
		Atlas:     atlas,
		DepthBias: PolygonDepthBiasBase + PolygonDepthBiasSlope*float32(index),
		SlopeBias: -(PolygonDepthBiasBase + PolygonDepthBiasSlope*float32(index)), // sign flipped for reverse-Z
	}
}

// snapCenterToTexels moves the cascade center to whole shadow-texel
// multiples along the light's right/up axes, so a translating camera
// never shifts the rasterized occluders by a sub-texel amount.
func snapCenterToTexels(center, right, up, forward mgl32.Vec3, texelSize float32) mgl32.Vec3 {
	snappedRight := quantize(center.Dot(right), texelSize)
	snappedUp := quantize(center.Dot(up), texelSize)
	return right.Mul(snappedRight).
		Add(up.Mul(snappedUp)).
		Add(forward.Mul(center.Dot(forward)))
}

// reverseZOrtho builds an orthographic projection where far maps to
// depth 0 and near maps to depth 1, matching the rest of the pipeline's
// reverse-Z convention.
func reverseZOrtho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	sx := 2 / (right - left)
	sy := 2 / (top - bottom)
	// View space follows the LookAtV convention (camera looks down -Z),
	// so points in front of the light have negative z; this maps
	// z=-near -> depth 1 and z=-far -> depth 0 (reverse-Z).
	sz := 1 / (far - near)
	tx := -(right + left) / (right - left)
	ty := -(top + bottom) / (top - bottom)
	oz := far / (far - near)

	return mgl32.Mat4{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, sz, 0,
		tx, ty, oz, 1,
	}
}
