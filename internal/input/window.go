// Package input is the window/input adapter: window creation,
// framebuffer size, and key/mouse polling. The renderer core never
// touches it directly; cmd/voxelsprout owns the loop.
package input

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window owns the glfw window and the input state polled from it once
// per frame.
type Window struct {
	handle *glfw.Window
	title  string

	pressed      map[glfw.Key]bool
	justPressed  map[glfw.Key]bool
	justReleased map[glfw.Key]bool

	mouseX, mouseY             float64
	mouseDeltaX, mouseDeltaY   float64
	mouseCaptured              bool
	charBuffer                 []rune
}

// NewWindow creates a GLFW window with no client API, as wgpu drives
// the surface itself.
func NewWindow(width, height int, title string) (*Window, error) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "voxelsprout"
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("input: glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	handle, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("input: create window: %w", err)
	}

	w := &Window{
		handle:       handle,
		title:        title,
		pressed:      make(map[glfw.Key]bool),
		justPressed:  make(map[glfw.Key]bool),
		justReleased: make(map[glfw.Key]bool),
	}
	w.installCallbacks()
	return w, nil
}

// Handle exposes the raw glfw window for surface creation;
// cmd/voxelsprout wraps it with wgpuglfw.GetSurfaceDescriptor.
func (w *Window) Handle() *glfw.Window { return w.handle }

// FramebufferSize reports the current drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.handle.GetFramebufferSize()
}

// ShouldClose reports whether the OS asked the window to close.
func (w *Window) ShouldClose() bool { return w.handle.ShouldClose() }

// Destroy releases glfw resources.
func (w *Window) Destroy() {
	w.handle.Destroy()
	glfw.Terminate()
}

func (w *Window) installCallbacks() {
	w.handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		switch action {
		case glfw.Press:
			w.pressed[key] = true
			w.justPressed[key] = true
		case glfw.Release:
			w.pressed[key] = false
			w.justReleased[key] = true
		}
	})
	w.handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		w.mouseDeltaX = x - w.mouseX
		w.mouseDeltaY = y - w.mouseY
		w.mouseX, w.mouseY = x, y
	})
	w.handle.SetCharCallback(func(_ *glfw.Window, char rune) {
		w.charBuffer = append(w.charBuffer, char)
	})
}

// BeginFrame clears the per-frame edge-triggered state and pumps glfw
// events.
func (w *Window) BeginFrame() {
	w.clearFrameState()
	glfw.PollEvents()
}

func (w *Window) clearFrameState() {
	w.charBuffer = nil
	for k := range w.justPressed {
		delete(w.justPressed, k)
	}
	for k := range w.justReleased {
		delete(w.justReleased, k)
	}
	w.mouseDeltaX, w.mouseDeltaY = 0, 0
}

// IsPressed reports whether key is currently held.
func (w *Window) IsPressed(key glfw.Key) bool { return w.pressed[key] }

// JustPressed reports whether key transitioned to pressed this frame.
func (w *Window) JustPressed(key glfw.Key) bool { return w.justPressed[key] }

// MousePosition returns the cursor position and per-frame delta.
func (w *Window) MousePosition() (x, y, dx, dy float64) {
	return w.mouseX, w.mouseY, w.mouseDeltaX, w.mouseDeltaY
}

// SetMouseCaptured toggles cursor capture for fly-camera style look
// controls.
func (w *Window) SetMouseCaptured(captured bool) {
	w.mouseCaptured = captured
	if captured {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	} else {
		w.handle.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	}
}

// MouseCaptured reports the current cursor-capture state.
func (w *Window) MouseCaptured() bool { return w.mouseCaptured }

// CharBuffer returns runes typed this frame (for debug-UI text entry).
func (w *Window) CharBuffer() []rune { return w.charBuffer }
