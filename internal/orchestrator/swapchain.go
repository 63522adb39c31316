// Package orchestrator is the per-frame driver: it polls timeline
// completion, begins the frame arena slot, builds the camera uniform,
// triggers chunk upload when needed, acquires the swapchain image,
// sequences command recording per the frame graph's order, and
// submits/presents. The Swapchain interface keeps the acquire/present
// state machine testable without a real GPU device.
package orchestrator

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceStatus enumerates swapchain acquisition and presentation
// outcomes.
type SurfaceStatus int

const (
	StatusOK SurfaceStatus = iota
	StatusSuboptimal
	StatusOutOfDate
	StatusTimeout
	StatusLost
)

// Swapchain is the orchestrator's view of the presentable surface.
// The wgpu-backed implementation wraps wgpu.Surface.GetCurrentTexture/
// Present; a fake implementation drives the state-machine tests.
type Swapchain interface {
	AcquireNextImage() (AcquiredImage, SurfaceStatus)
	Present(AcquiredImage) SurfaceStatus
	Recreate(width, height uint32) error
	FramebufferSize() (uint32, uint32)
}

// AcquiredImage is the swapchain image for one frame plus whatever
// native handle Present needs back.
type AcquiredImage struct {
	ImageIndex uint32
	native     any
}

// CreateView makes a render-attachment view over the acquired surface
// texture; the caller releases it once the frame's commands are
// submitted. Fails when the image came from a skipped acquire.
func (img AcquiredImage) CreateView() (*wgpu.TextureView, error) {
	tex, ok := img.native.(*wgpu.Texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("swapchain: no acquired texture to view")
	}
	return tex.CreateView(nil)
}

// WGPUSwapchain is the concrete Swapchain backed by a wgpu.Surface.
type WGPUSwapchain struct {
	surface *wgpu.Surface
	adapter *wgpu.Adapter
	device  *wgpu.Device
	config  *wgpu.SurfaceConfiguration

	width, height uint32
}

func NewWGPUSwapchain(surface *wgpu.Surface, adapter *wgpu.Adapter, device *wgpu.Device, config *wgpu.SurfaceConfiguration) *WGPUSwapchain {
	return &WGPUSwapchain{surface: surface, adapter: adapter, device: device, config: config, width: config.Width, height: config.Height}
}

// AcquireNextImageTimeoutNs is a nominal bound on how long an acquire
// may take. wgpu-native's GetCurrentTexture has no explicit timeout
// parameter, and no code in this package reads this constant.
const AcquireNextImageTimeoutNs = 1_000_000_000 // 1s

func (s *WGPUSwapchain) AcquireNextImage() (AcquiredImage, SurfaceStatus) {
	if s.width == 0 || s.height == 0 {
		// A zero-size framebuffer does no swapchain work.
		return AcquiredImage{}, StatusOutOfDate
	}
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return AcquiredImage{}, classifyAcquireError(err)
	}
	return AcquiredImage{native: tex}, StatusOK
}

func classifyAcquireError(err error) SurfaceStatus {
	// wgpu-native surfaces out-of-date/lost as plain errors rather than
	// a typed status enum; string-matching its message is the closest
	// parity available without vendoring the binding's internal codes.
	msg := err.Error()
	switch {
	case contains(msg, "Outdated") || contains(msg, "OutOfDate"):
		return StatusOutOfDate
	case contains(msg, "Lost"):
		return StatusLost
	case contains(msg, "Timeout"):
		return StatusTimeout
	default:
		return StatusOutOfDate
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func (s *WGPUSwapchain) Present(img AcquiredImage) SurfaceStatus {
	tex, ok := img.native.(*wgpu.Texture)
	if !ok || tex == nil {
		return StatusOutOfDate
	}
	defer tex.Release()
	s.surface.Present()
	return StatusOK
}

// Recreate reconfigures the surface at a new size.
func (s *WGPUSwapchain) Recreate(width, height uint32) error {
	if width == 0 || height == 0 {
		s.width, s.height = width, height
		return nil
	}
	s.config.Width, s.config.Height = width, height
	s.surface.Configure(s.adapter, s.device, s.config)
	s.width, s.height = width, height
	return nil
}

func (s *WGPUSwapchain) FramebufferSize() (uint32, uint32) { return s.width, s.height }
