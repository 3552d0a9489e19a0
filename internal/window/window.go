// Package window wraps GLFW for WebGPU surface creation and input.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window owns the GLFW window and hands out the wgpu surface descriptor.
// Must be created and polled from the main goroutine.
type Window struct {
	win    *glfw.Window
	width  int
	height int

	onResize func(width, height int)
}

// New opens a window sized in screen coordinates. The stored size is the
// framebuffer size, which differs on high-DPI displays.
func New(title string, width, height int) (*Window, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: glfw init: %w", err)
	}

	// WebGPU brings its own graphics API; no GL context wanted.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: create: %w", err)
	}

	w := &Window{win: win}
	w.width, w.height = win.GetFramebufferSize()

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, fbWidth, fbHeight int) {
		w.width = fbWidth
		w.height = fbHeight
		if w.onResize != nil {
			w.onResize(fbWidth, fbHeight)
		}
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
		}
	})

	return w, nil
}

// SurfaceDescriptor returns the platform surface for device creation.
func (w *Window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

// Size returns the framebuffer size in pixels.
func (w *Window) Size() (width, height int) { return w.width, w.height }

// SetResizeCallback registers the framebuffer resize handler.
func (w *Window) SetResizeCallback(fn func(width, height int)) { w.onResize = fn }

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// Poll processes pending window events.
func (w *Window) Poll() { glfw.PollEvents() }

// Destroy closes the window and shuts GLFW down.
func (w *Window) Destroy() {
	w.win.Destroy()
	glfw.Terminate()
}
