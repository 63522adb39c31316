package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/require"
)

func newTestWindow() *Window {
	return &Window{
		pressed:      make(map[glfw.Key]bool),
		justPressed:  make(map[glfw.Key]bool),
		justReleased: make(map[glfw.Key]bool),
	}
}

func TestBeginFrame_ClearsEdgeTriggeredStateButKeepsHeld(t *testing.T) {
	w := newTestWindow()
	w.pressed[glfw.KeyW] = true
	w.justPressed[glfw.KeyW] = true
	w.charBuffer = []rune{'a'}

	w.mouseDeltaX, w.mouseDeltaY = 3, 4
	w.clearFrameState()

	require.True(t, w.IsPressed(glfw.KeyW))
	require.False(t, w.JustPressed(glfw.KeyW))
	require.Empty(t, w.CharBuffer())
	_, _, dx, dy := w.MousePosition()
	require.Zero(t, dx)
	require.Zero(t, dy)
}

func TestIsPressed_DefaultsFalseForUnknownKey(t *testing.T) {
	w := newTestWindow()
	require.False(t, w.IsPressed(glfw.KeyEscape))
}

func TestMouseCaptured_DefaultsFalse(t *testing.T) {
	w := newTestWindow()
	require.False(t, w.MouseCaptured())
}
