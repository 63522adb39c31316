package render

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/gi"
	"github.com/voxelsprout/renderer/internal/orchestrator"
	"github.com/voxelsprout/renderer/internal/ssao"
)

// CameraDataSize is the byte size of the CameraData uniform block shared
// by every WGSL stage; the Go-side packing below must stay in lockstep
// with that struct's field order.
const CameraDataSize = 624

// GiParamsSize is the byte size of the GiParams uniform block.
const GiParamsSize = 96

// ShaftParamsSize is the byte size of the ShaftParams uniform block.
const ShaftParamsSize = 16 + 64 + 64

// SsaoParamsSize is the byte size of the SsaoParams uniform block:
// 24 kernel vectors, the radius/bias/power vector, and the projection.
const SsaoParamsSize = ssao.KernelSize*16 + 16 + 64

// ExposureStateSize is the byte size of the ExposureState buffer.
const ExposureStateSize = 16

type byteWriter struct {
	buf []byte
	off int
}

func newByteWriter(size int) *byteWriter {
	return &byteWriter{buf: make([]byte, size)}
}

func (w *byteWriter) f32(v float32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], math.Float32bits(v))
	w.off += 4
}

func (w *byteWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *byteWriter) vec4(v mgl32.Vec4) {
	w.f32(v.X())
	w.f32(v.Y())
	w.f32(v.Z())
	w.f32(v.W())
}

func (w *byteWriter) vec3w(v mgl32.Vec3, ww float32) {
	w.f32(v.X())
	w.f32(v.Y())
	w.f32(v.Z())
	w.f32(ww)
}

func (w *byteWriter) mat4(m mgl32.Mat4) {
	for _, v := range m {
		w.f32(v)
	}
}

// PackCameraData serializes the orchestrator's CameraUniform into the
// CameraData layout. screenW/screenH are the swapchain extent; bloom
// and shaft strengths ride in the screen vector's zw channels.
func PackCameraData(u orchestrator.CameraUniform, exposure float32, screenW, screenH, bloomStrength, shaftStrength float32) []byte {
	w := newByteWriter(CameraDataSize)
	w.mat4(u.View)
	w.mat4(u.ProjectionVulkan)
	w.mat4(u.MVP)
	for _, m := range u.CascadeViewProj {
		w.mat4(m)
	}
	w.vec4(mgl32.Vec4{u.CascadeSplits[0], u.CascadeSplits[1], u.CascadeSplits[2], u.CascadeSplits[3]})
	w.vec4(mgl32.Vec4{u.CascadeSplits[4], 0, 0, 0})
	w.vec3w(u.SunDirection, 0)
	w.vec3w(u.SunColor, exposure)
	w.vec3w(u.GI.Origin, u.GI.CellSize)
	w.vec4(mgl32.Vec4{u.GI.Strength, u.GI.AmbientRebalanceStrength, u.GI.AmbientFloor, float32(u.GI.Extent)})
	w.u32(uint32(u.GI.Visualization))
	w.u32(u.AOEnabled)
	w.u32(0)
	w.u32(0)
	w.vec3w(u.ColorGradeLift, 0)
	w.vec3w(u.ColorGradeGamma, 0)
	w.vec3w(u.ColorGradeGain, 0)
	w.vec4(mgl32.Vec4{screenW, screenH, bloomStrength, shaftStrength})
	return w.buf
}

// PackGiParams serializes the GiParams block read by all four GI compute
// stages. skyRadiance is the zenith color the sky-exposure pass seeds.
func PackGiParams(u gi.UBO, sunDir, sunColor, skyRadiance mgl32.Vec3, perIterationDecay float32) []byte {
	w := newByteWriter(GiParamsSize)
	w.vec3w(u.Origin, u.CellSize)
	w.u32(u.Extent)
	w.u32(uint32(u.Visualization))
	w.u32(u.AOEnabled)
	w.u32(0)
	w.vec3w(sunDir, 0)
	w.vec3w(sunColor, gi.InjectSunScale)
	w.vec3w(skyRadiance, gi.InjectShScale)
	w.vec4(mgl32.Vec4{perIterationDecay, 0, 0, 0})
	return w.buf
}

// PackShaftParams serializes the ShaftParams block for the sun-shaft
// ray march.
func PackShaftParams(sunScreenUV mgl32.Vec2, behindCamera bool, intensity float32, cascade0VP, invViewProj mgl32.Mat4) []byte {
	w := newByteWriter(ShaftParamsSize)
	behind := float32(0)
	if behindCamera {
		behind = 1
	}
	w.vec4(mgl32.Vec4{sunScreenUV.X(), sunScreenUV.Y(), behind, intensity})
	w.mat4(cascade0VP)
	w.mat4(invViewProj)
	return w.buf
}

// PackSsaoParams serializes the fixed SSAO kernel and tuning constants;
// built once at pipeline creation since the kernel never changes.
func PackSsaoParams(kernel [ssao.KernelSize]mgl32.Vec3, proj mgl32.Mat4) []byte {
	w := newByteWriter(SsaoParamsSize)
	for _, k := range kernel {
		w.vec3w(k, 0)
	}
	w.vec4(mgl32.Vec4{ssao.Radius, ssao.Bias, ssao.Power, float32(ssao.KernelSize)})
	w.mat4(proj)
	return w.buf
}

// PackExposureState serializes the initial exposure state; the reduce
// pass rewrites average/ema on the GPU, so after the first frame only
// dt is refreshed via a 4-byte write at its offset.
func PackExposureState(average, ema, dt, speed float32) []byte {
	w := newByteWriter(ExposureStateSize)
	w.f32(average)
	w.f32(ema)
	w.f32(dt)
	w.f32(speed)
	return w.buf
}

// ExposureDtOffset is the byte offset of the dt field inside
// ExposureState, used for the per-frame partial write.
const ExposureDtOffset = 8

// NoiseTextureBytes expands the SSAO rotation noise into RGBA8 texels
// for the 4x4 noise tile upload.
func NoiseTextureBytes(noise [ssao.NoiseTileSize * ssao.NoiseTileSize]mgl32.Vec3) []byte {
	out := make([]byte, len(noise)*4)
	for i, n := range noise {
		out[i*4+0] = floatToUnorm(n.X()*0.5 + 0.5)
		out[i*4+1] = floatToUnorm(n.Y()*0.5 + 0.5)
		out[i*4+2] = floatToUnorm(n.Z()*0.5 + 0.5)
		out[i*4+3] = 255
	}
	return out
}

func mgl32Ident() mgl32.Mat4 { return mgl32.Ident4() }

func floatToUnorm(v float32) byte {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return byte(v*255 + 0.5)
}
