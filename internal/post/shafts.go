package post

import "github.com/go-gl/mathgl/mgl32"

// ShaftSteps is the fixed ray-march sample count per pixel.
const ShaftSteps = 32

// ShaftDecay attenuates each successive sample's contribution along the
// ray, the standard radial-blur falloff used for screen-space god rays.
const ShaftDecay = 0.96

// ShaftSampleUV returns the screen-space UV of ray-march step i out of
// ShaftSteps, walking from uv toward sunScreenUV. Steps past step 0
// move progressively closer to the sun's screen position.
func ShaftSampleUV(uv, sunScreenUV mgl32.Vec2, step int) mgl32.Vec2 {
	t := float32(step) / float32(ShaftSteps)
	return uv.Add(sunScreenUV.Sub(uv).Mul(t))
}

// AccumulateShaft sums decayed per-step visibility samples into the
// final per-pixel shaft intensity, a CPU reference for the compute
// shader's accumulation loop.
func AccumulateShaft(visibility [ShaftSteps]float32) float32 {
	var sum, weight float32 = 0, 1
	for _, v := range visibility {
		sum += v * weight
		weight *= ShaftDecay
	}
	return sum / float32(ShaftSteps)
}

// SunScreenPosition projects the sun direction through the camera's
// view-projection matrix into [0,1] screen UV space. A direction behind
// the camera returns the screen center (0.5, 0.5) with behindCamera set,
// so the ray march degenerates gracefully instead of producing a
// garbage UV.
func SunScreenPosition(viewProj mgl32.Mat4, sunDirWorld mgl32.Vec3) (uv mgl32.Vec2, behindCamera bool) {
	// Sun is directional; project a point far along its direction.
	farPoint := sunDirWorld.Mul(100000)
	clip := viewProj.Mul4x1(mgl32.Vec4{farPoint.X(), farPoint.Y(), farPoint.Z(), 1})
	if clip.W() <= 0 {
		return mgl32.Vec2{0.5, 0.5}, true
	}
	ndcX := clip.X() / clip.W()
	ndcY := clip.Y() / clip.W()
	return mgl32.Vec2{ndcX*0.5 + 0.5, 1 - (ndcY*0.5 + 0.5)}, false
}
