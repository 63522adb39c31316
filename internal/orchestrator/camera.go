package orchestrator

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/gi"
	"github.com/voxelsprout/renderer/internal/shadow"
)

// CameraUniform is the per-frame UBO the orchestrator builds and the
// Frame Arena uploads. Debug/visualization fields
// are explicit members rather than reused channels of an unrelated
// vector.
type CameraUniform struct {
	View             mgl32.Mat4
	ProjectionVulkan mgl32.Mat4 // reverse-Z projection
	MVP              mgl32.Mat4

	CascadeViewProj [shadow.CascadeCount]mgl32.Mat4
	CascadeSplits   [shadow.CascadeCount + 1]float32

	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3

	GI gi.UBO

	AOEnabled       uint32
	ColorGradeLift  mgl32.Vec3
	ColorGradeGamma mgl32.Vec3
	ColorGradeGain  mgl32.Vec3

	ExposureEMA float32
}

// PushConstants is the small per-draw payload set at record time
// (model matrix + material/LOD tags), kept separate from the UBO since
// it changes every draw call rather than once per frame.
type PushConstants struct {
	Model     mgl32.Mat4
	MaterialID uint32
	LOD       uint32
}

// BuildCameraUniform assembles the frame's CameraUniform from the
// camera pose, a reverse-Z perspective projection, the current shadow
// cascades, and the GI volume's UBO payload.
func BuildCameraUniform(camPos, camForward, camUp mgl32.Vec3, fovYRadians, aspect, nearClip, farClip float32, cascades [shadow.CascadeCount]shadow.Cascade, splits [shadow.CascadeCount + 1]float32, sunDir, sunColor mgl32.Vec3, giVol gi.UBO, aoEnabled bool) CameraUniform {
	view := mgl32.LookAtV(camPos, camPos.Add(camForward), camUp)
	proj := reverseZPerspective(fovYRadians, aspect, nearClip, farClip)
	mvp := proj.Mul4(view)

	var cascadeVP [shadow.CascadeCount]mgl32.Mat4
	for i, c := range cascades {
		cascadeVP[i] = c.Proj.Mul4(c.View)
	}

	ao := uint32(0)
	if aoEnabled {
		ao = 1
	}

	return CameraUniform{
		View:             view,
		ProjectionVulkan: proj,
		MVP:              mvp,
		CascadeViewProj:  cascadeVP,
		CascadeSplits:    splits,
		SunDirection:     sunDir,
		SunColor:         sunColor,
		GI:               giVol,
		AOEnabled:        ao,
		ColorGradeLift:   mgl32.Vec3{0, 0, 0},
		ColorGradeGamma:  mgl32.Vec3{1, 1, 1},
		ColorGradeGain:   mgl32.Vec3{1, 1, 1},
	}
}

// reverseZPerspective builds a right-handed perspective projection
// mapping near to depth 1 and far to depth 0, the convention used
// throughout this renderer.
func reverseZPerspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1) / tanHalf(fovY)
	m := mgl32.Mat4{}
	m[0] = f / aspect
	m[5] = f
	m[10] = near / (far - near)
	m[11] = -1
	m[14] = (near * far) / (far - near)
	return m
}

func tanHalf(fovY float32) float32 {
	return float32(math.Tan(float64(fovY) / 2))
}
