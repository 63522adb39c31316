// Package ssao implements the CPU side of the normal-depth prepass and
// the SSAO raw/blur pair: kernel and noise generation, the
// normal-depth encoding, and the occlusion falloff reference.
package ssao

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/gpu"
)

const (
	// KernelSize is the fixed SSAO sample-kernel length.
	KernelSize = 24
	// NoiseTileSize is the edge length of the tiled rotation-noise
	// texture sampled alongside the kernel.
	NoiseTileSize = 4

	Radius = 0.5
	Bias   = 0.025
	Power  = 1.5
)

// Targets owns the Prepass's normal-depth color attachment, its AO-
// resolution depth attachment, and the SSAO raw/blurred single-channel
// images. Resolution may differ from the swapchain.
type Targets struct {
	Width, Height uint32

	NormalDepth gpu.ImageHandle
	Depth       gpu.ImageHandle
	Raw         gpu.ImageHandle
	Blurred     gpu.ImageHandle
}

// BuildKernel generates KernelSize hemisphere sample vectors, scaled so
// samples cluster closer to the origin (classic SSAO kernel
// distribution), seeded deterministically so two runs of the same
// process produce the same kernel.
func BuildKernel(seed int64) [KernelSize]mgl32.Vec3 {
	r := rand.New(rand.NewSource(seed))
	var kernel [KernelSize]mgl32.Vec3
	for i := range kernel {
		v := mgl32.Vec3{
			float32(r.Float64()*2 - 1),
			float32(r.Float64()*2 - 1),
			float32(r.Float64()),
		}.Normalize()
		v = v.Mul(float32(r.Float64()))

		scale := float32(i) / float32(KernelSize)
		scale = lerp(0.1, 1.0, scale*scale)
		kernel[i] = v.Mul(scale)
	}
	return kernel
}

// BuildNoise generates the NoiseTileSize x NoiseTileSize tangent-space
// rotation vectors tiled across the screen to de-bank the kernel.
func BuildNoise(seed int64) [NoiseTileSize * NoiseTileSize]mgl32.Vec3 {
	r := rand.New(rand.NewSource(seed))
	var noise [NoiseTileSize * NoiseTileSize]mgl32.Vec3
	for i := range noise {
		noise[i] = mgl32.Vec3{
			float32(r.Float64()*2 - 1),
			float32(r.Float64()*2 - 1),
			0,
		}
	}
	return noise
}

func lerp(a, b, t float32) float32 { return a + (b-a)*t }

// EncodeNormalDepth packs a view-space normal and linear depth into the
// Prepass's RGBA color attachment payload.
func EncodeNormalDepth(normal mgl32.Vec3, linearDepth float32) [4]float32 {
	n := normal.Normalize()
	return [4]float32{n.X()*0.5 + 0.5, n.Y()*0.5 + 0.5, n.Z()*0.5 + 0.5, linearDepth}
}

// DecodeNormalDepth is EncodeNormalDepth's inverse.
func DecodeNormalDepth(packed [4]float32) (normal mgl32.Vec3, linearDepth float32) {
	return mgl32.Vec3{packed[0]*2 - 1, packed[1]*2 - 1, packed[2]*2 - 1}, packed[3]
}

// Enabled gates both passes' visual contribution: when false the main
// pass ignores the blurred AO image's content entirely.
type Enabled struct {
	value bool
}

func (e *Enabled) Set(v bool)  { e.value = v }
func (e *Enabled) Get() bool   { return e.value }

// OcclusionFactor evaluates one kernel sample's contribution, a CPU
// reference for the SSAO shader's per-sample test so the falloff
// behavior is exercised without a GPU. fragDepth is the shaded
// fragment's linear depth, sampleDepth is the kernel sample's expected
// depth, and sceneDepth is what the depth buffer actually stores at the
// sample's screen position.
func OcclusionFactor(fragDepth, sampleDepth, sceneDepth float32) float32 {
	if sceneDepth >= sampleDepth-Bias {
		return 0
	}
	d := math.Max(math.Abs(float64(fragDepth-sceneDepth)), 1e-4)
	x := math.Min(float64(Radius)/d, 1)
	return float32(x * x * (3 - 2*x))
}
