// Command voxelsprout is the host executable: it creates the window,
// the wgpu device and surface, the world and simulation, and drives the
// engine's per-frame loop with a simple fly camera.
package main

import (
	"math"
	"os"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	voxelsprout "github.com/voxelsprout/renderer"
	"github.com/voxelsprout/renderer/internal/input"
	"github.com/voxelsprout/renderer/internal/logging"
	"github.com/voxelsprout/renderer/internal/orchestrator"
	"github.com/voxelsprout/renderer/internal/sim"
	"github.com/voxelsprout/renderer/internal/world"
)

const worldSavePath = "world.bin"

type flyCamera struct {
	position   mgl32.Vec3
	yaw, pitch float32
}

func (c *flyCamera) forward() mgl32.Vec3 {
	cy, sy := float32(math.Cos(float64(c.yaw))), float32(math.Sin(float64(c.yaw)))
	cp, sp := float32(math.Cos(float64(c.pitch))), float32(math.Sin(float64(c.pitch)))
	return mgl32.Vec3{cy * cp, sp, sy * cp}.Normalize()
}

func (c *flyCamera) update(win *input.Window, dt float32) {
	if win.JustPressed(glfw.KeyEscape) {
		win.SetMouseCaptured(!win.MouseCaptured())
	}
	if win.MouseCaptured() {
		_, _, dx, dy := win.MousePosition()
		c.yaw += float32(dx) * 0.002
		c.pitch -= float32(dy) * 0.002
		if c.pitch > 1.5 {
			c.pitch = 1.5
		}
		if c.pitch < -1.5 {
			c.pitch = -1.5
		}
	}

	speed := float32(12) * dt
	if win.IsPressed(glfw.KeyLeftShift) {
		speed *= 4
	}
	fwd := c.forward()
	right := fwd.Cross(mgl32.Vec3{0, 1, 0}).Normalize()
	if win.IsPressed(glfw.KeyW) {
		c.position = c.position.Add(fwd.Mul(speed))
	}
	if win.IsPressed(glfw.KeyS) {
		c.position = c.position.Sub(fwd.Mul(speed))
	}
	if win.IsPressed(glfw.KeyD) {
		c.position = c.position.Add(right.Mul(speed))
	}
	if win.IsPressed(glfw.KeyA) {
		c.position = c.position.Sub(right.Mul(speed))
	}
	if win.IsPressed(glfw.KeySpace) {
		c.position[1] += speed
	}
	if win.IsPressed(glfw.KeyLeftControl) {
		c.position[1] -= speed
	}
}

func main() {
	runtime.LockOSThread()
	logger := logging.Default()

	win, err := input.NewWindow(1600, 900, "voxelsprout")
	if err != nil {
		logger.Errorf("main: window creation failed: %v", err)
		os.Exit(1)
	}
	defer win.Destroy()

	instance := wgpu.CreateInstance(nil)
	defer instance.Release()

	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(win.Handle()))

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		logger.Errorf("main: adapter request failed: %v", err)
		os.Exit(1)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		logger.Errorf("main: device request failed: %v", err)
		os.Exit(1)
	}

	width, height := win.FramebufferSize()
	caps := surface.GetCapabilities(adapter)
	config := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, config)

	swap := orchestrator.NewWGPUSwapchain(surface, adapter, device, config)

	engine := voxelsprout.New()
	if !engine.Init(voxelsprout.InitParams{
		Device:        device,
		Swap:          swap,
		SurfaceFormat: config.Format,
		IndirectDraws: true,
	}) {
		logger.Errorf("main: engine init failed")
		os.Exit(1)
	}
	defer engine.Shutdown()

	gameWorld := world.New()
	if result, err := gameWorld.LoadOrInitialize(worldSavePath); err != nil {
		logger.Errorf("main: world load failed: %v", err)
		os.Exit(1)
	} else if result.InitializedFallback {
		logger.Infof("main: no save at %s, generated flat world", worldSavePath)
	}

	simulation := &sim.Simulation{}
	simulation.InitializeSingleBelt()

	cam := flyCamera{position: mgl32.Vec3{16, 12, 40}, yaw: -1.57, pitch: -0.3}
	lastTime := glfw.GetTime()

	for !win.ShouldClose() {
		win.BeginFrame()
		now := glfw.GetTime()
		dt := float32(now - lastTime)
		lastTime = now

		cam.update(win, dt)
		simulation.Update(dt)
		engine.BeginUIFrame()

		if win.JustPressed(glfw.KeyF1) {
			engine.SetDebugUIVisible(!engine.IsDebugUIVisible())
		}
		if win.JustPressed(glfw.KeyF2) {
			engine.SetFrameStatsVisible(!engine.IsFrameStatsVisible())
		}
		if win.JustPressed(glfw.KeyF5) {
			if err := gameWorld.Save(worldSavePath); err != nil {
				logger.Warnf("main: world save failed: %v", err)
			}
		}

		w, h := win.FramebufferSize()
		if w == 0 || h == 0 {
			continue
		}

		if !engine.RenderFrame(voxelsprout.RenderParameters{
			World:         gameWorld,
			Sim:           simulation,
			CameraPos:     cam.position,
			CameraForward: cam.forward(),
			CameraUp:      mgl32.Vec3{0, 1, 0},
			AspectRatio:   float32(w) / float32(h),
			NearClip:      0.1,
			FarClip:       1000,
			GrassEnabled:  true,
		}) {
			logger.Errorf("main: render frame reported failure, exiting")
			break
		}
	}
}
