package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/rerr"
)

// Allocator owns every native wgpu.Buffer/wgpu.Texture and resolves
// the opaque handles the rest of the renderer passes around. Every
// create call names the object with a stable debug label.
type Allocator struct {
	device *wgpu.Device

	buffers map[BufferHandle]*bufferRecord
	images  map[ImageHandle]*imageRecord

	nextBuffer uint32
	nextImage  uint32
}

func NewAllocator(device *wgpu.Device) *Allocator {
	return &Allocator{
		device:  device,
		buffers: make(map[BufferHandle]*bufferRecord),
		images:  make(map[ImageHandle]*imageRecord),
	}
}

// CreateBuffer allocates a named buffer. Initial data is copied
// synchronously via Queue.WriteBuffer, the closest wgpu-native
// equivalent of a mapped-copy.
func (a *Allocator) CreateBuffer(desc BufferDesc) (BufferHandle, error) {
	usage := desc.Usage
	if desc.HostVisible {
		usage |= wgpu.BufferUsageCopyDst
	}
	buf, err := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: usage,
	})
	if err != nil {
		return InvalidBuffer, rerr.Wrap(rerr.AllocationFailed, "gpu.Allocator", fmt.Sprintf("createBuffer(%s)", desc.Label), err)
	}

	a.nextBuffer++
	handle := BufferHandle(a.nextBuffer)
	a.buffers[handle] = &bufferRecord{label: desc.Label, buffer: buf, size: desc.Size, usage: usage}

	if len(desc.InitialData) > 0 {
		if err := a.device.GetQueue().WriteBuffer(buf, 0, desc.InitialData); err != nil {
			return handle, rerr.Wrap(rerr.AllocationFailed, "gpu.Allocator", fmt.Sprintf("writeBuffer(%s)", desc.Label), err)
		}
	}
	return handle, nil
}

// CreateImage allocates a named texture plus its default view. Images
// declared Aliasable are eligible for the frame arena's alias pool;
// standard images are owned solely by their creator.
func (a *Allocator) CreateImage(desc ImageDesc) (ImageHandle, error) {
	mips := desc.MipLevels
	if mips == 0 {
		mips = 1
	}
	depth := desc.Depth
	if depth == 0 {
		depth = 1
	}
	samples := desc.SampleCount
	if samples == 0 {
		samples = 1
	}
	tex, err := a.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: depth},
		MipLevelCount: mips,
		SampleCount:   samples,
		Dimension:     desc.Dimension,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return InvalidImage, rerr.Wrap(rerr.AllocationFailed, "gpu.Allocator", fmt.Sprintf("createImage(%s)", desc.Label), err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		return InvalidImage, rerr.Wrap(rerr.AllocationFailed, "gpu.Allocator", fmt.Sprintf("createImageView(%s)", desc.Label), err)
	}

	a.nextImage++
	handle := ImageHandle(a.nextImage)
	a.images[handle] = &imageRecord{
		label:     desc.Label,
		texture:   tex,
		view:      view,
		desc:      desc,
		aliasable: desc.Aliasable,
		aliasKey:  desc.aliasKey(),
		mipLevels: mips,
	}
	return handle, nil
}

// DestroyBuffer immediately destroys the native object. Callers must
// guarantee no unreached timeline value referenced it; deferred
// destruction is the Timeline's job, not the Allocator's.
func (a *Allocator) DestroyBuffer(h BufferHandle) {
	rec, ok := a.buffers[h]
	if !ok {
		return
	}
	if rec.buffer != nil {
		rec.buffer.Release()
	}
	delete(a.buffers, h)
}

func (a *Allocator) DestroyImage(h ImageHandle) {
	rec, ok := a.images[h]
	if !ok {
		return
	}
	rec.view.Release()
	rec.texture.Release()
	delete(a.images, h)
}

func (a *Allocator) GetBuffer(h BufferHandle) (*wgpu.Buffer, bool) {
	rec, ok := a.buffers[h]
	if !ok {
		return nil, false
	}
	return rec.buffer, true
}

func (a *Allocator) GetImage(h ImageHandle) (*wgpu.Texture, *wgpu.TextureView, bool) {
	rec, ok := a.images[h]
	if !ok {
		return nil, nil, false
	}
	return rec.texture, rec.view, true
}

func (a *Allocator) GetSize(h BufferHandle) uint64 {
	rec, ok := a.buffers[h]
	if !ok {
		return 0
	}
	return rec.size
}

// liveBufferCount and liveImageCount back Frame Arena observability
// counters.
func (a *Allocator) liveBufferCount() int { return len(a.buffers) }
func (a *Allocator) liveImageCount() int  { return len(a.images) }

// handleCounter is a process-wide debug counter for handle churn.
var handleCounter atomic.Uint64

func nextDebugID() uint64 { return handleCounter.Add(1) }
