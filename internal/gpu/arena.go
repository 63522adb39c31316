package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/voxelsprout/renderer/internal/rerr"
)

// UploadKind buckets upload bytes for per-kind accounting; it carries
// no behavior beyond observability.
type UploadKind int

const (
	KindCameraUniform UploadKind = iota
	KindInstanceData
	KindPreviewData
	KindUnknown
	kindCount
)

func (k UploadKind) String() string {
	switch k {
	case KindCameraUniform:
		return "CameraUniform"
	case KindInstanceData:
		return "InstanceData"
	case KindPreviewData:
		return "PreviewData"
	default:
		return "Unknown"
	}
}

// Slice is the result of a successful allocateUpload call.
type Slice struct {
	Buffer BufferHandle
	Offset uint64
	Size   uint64
	Mapped []byte // CPU-side staging bytes; flushed to Buffer via WriteBuffer on Flush.
}

// frameSlot is one of the Frame Arena's F ring-buffer slots.
type frameSlot struct {
	uploadBuffer BufferHandle
	uploadBytes  []byte
	head         uint64
	capacity     uint64

	transientBuffers []BufferHandle
	transientImages  []ImageHandle

	// signaled is the timeline value this slot's main submission will
	// produce; beginFrame(slot) may only proceed once the coordinator
	// reports this value reached.
	signaled uint64

	perKindBytes [kindCount]uint64
	inUse        bool
}

// aliasEntry is one transient image sitting in the alias pool, available
// for reuse by any request whose descriptor matches its key.
type aliasEntry struct {
	handle ImageHandle
	key    ImageAliasKey
}

// Arena is the frame arena: a per-in-flight-frame upload ring plus
// transient image aliasing. Scheduling is single-threaded per frame -
// at most one concurrent user per slot, no locking required.
type Arena struct {
	alloc     *Allocator
	timeline  *Timeline
	slots     []frameSlot
	aliasPool []aliasEntry

	imageAliasReuses uint64
}

// NewArena creates an F-slot Frame Arena, each slot with a ringCapacity
// byte upload region.
func NewArena(alloc *Allocator, timeline *Timeline, framesInFlight int, ringCapacity uint64) (*Arena, error) {
	a := &Arena{alloc: alloc, timeline: timeline, slots: make([]frameSlot, framesInFlight)}
	for i := range a.slots {
		handle, err := alloc.CreateBuffer(BufferDesc{
			Label:       fmt.Sprintf("FrameArena.Upload[%d]", i),
			Size:        ringCapacity,
			Usage:       wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageIndirect | wgpu.BufferUsageCopySrc,
			HostVisible: true,
		})
		if err != nil {
			return nil, err
		}
		a.slots[i] = frameSlot{
			uploadBuffer: handle,
			uploadBytes:  make([]byte, ringCapacity),
			capacity:     ringCapacity,
		}
	}
	return a, nil
}

// BeginFrame is called after the timeline confirms slot completion; it
// resets the upload ring head, releases transient buffer handles, and
// moves transient-image allocations into the alias pool keyed on their
// descriptor.
func (a *Arena) BeginFrame(slot int) error {
	s := &a.slots[slot]
	if s.signaled != 0 && !a.timeline.Signaled(s.signaled) {
		return rerr.New(rerr.TimelineStall, "gpu.Arena", fmt.Sprintf("slot %d not yet complete (want %d, have %d)", slot, s.signaled, a.timeline.Completed()))
	}

	s.head = 0
	for _, b := range s.transientBuffers {
		a.alloc.DestroyBuffer(b)
	}
	s.transientBuffers = s.transientBuffers[:0]

	for _, img := range s.transientImages {
		rec, ok := a.alloc.images[img]
		if !ok {
			continue
		}
		a.aliasPool = append(a.aliasPool, aliasEntry{handle: img, key: rec.aliasKey})
	}
	s.transientImages = s.transientImages[:0]

	for i := range s.perKindBytes {
		s.perKindBytes[i] = 0
	}
	s.inUse = true
	return nil
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// AllocateUpload returns a staging slice and offset within the slot's
// ring. Requests larger than the remaining tail fail with
// AllocationFailed; callers surface a non-fatal warning and skip the
// dependent work.
func (a *Arena) AllocateUpload(slot int, size, alignment uint64, kind UploadKind) (Slice, error) {
	s := &a.slots[slot]
	offset := alignUp(s.head, alignment)
	if offset+size > s.capacity {
		return Slice{}, rerr.New(rerr.AllocationFailed, "gpu.Arena", fmt.Sprintf("AllocationTooLarge: slot %d wants %d bytes at offset %d, capacity %d", slot, size, offset, s.capacity))
	}
	s.head = offset + size
	s.perKindBytes[kind] += size

	return Slice{
		Buffer: s.uploadBuffer,
		Offset: offset,
		Size:   size,
		Mapped: s.uploadBytes[offset : offset+size],
	}, nil
}

// Flush writes every slice mutated this frame back to the GPU-visible
// buffer. wgpu-native has no persistently mapped pointer outside
// explicit MapAsync, so the Arena stages into CPU bytes and flushes with
// one WriteBuffer covering the written prefix of the ring per slot.
func (a *Arena) Flush(queue *wgpu.Queue, slot int) error {
	s := &a.slots[slot]
	if s.head == 0 {
		return nil
	}
	buf, ok := a.alloc.GetBuffer(s.uploadBuffer)
	if !ok {
		return rerr.New(rerr.AllocationFailed, "gpu.Arena", "flush: upload buffer handle invalid")
	}
	return queue.WriteBuffer(buf, 0, s.uploadBytes[:s.head])
}

// AcquireTransientImage returns an ImageHandle whose lifetime ends at the
// next BeginFrame(slot) for this slot. Reused from the alias pool when a
// matching descriptor is free.
func (a *Arena) AcquireTransientImage(slot int, desc ImageDesc) (ImageHandle, error) {
	desc.Aliasable = true
	key := desc.aliasKey()

	for i, entry := range a.aliasPool {
		if entry.key == key {
			a.aliasPool = append(a.aliasPool[:i], a.aliasPool[i+1:]...)
			a.imageAliasReuses++
			a.slots[slot].transientImages = append(a.slots[slot].transientImages, entry.handle)
			return entry.handle, nil
		}
	}

	handle, err := a.alloc.CreateImage(desc)
	if err != nil {
		return InvalidImage, err
	}
	a.slots[slot].transientImages = append(a.slots[slot].transientImages, handle)
	return handle, nil
}

// AddTransientBuffer registers a buffer to be destroyed at the next
// BeginFrame(slot) for this slot (e.g. a one-shot indirect-draw buffer
// built from arena data but requiring its own wgpu.Buffer).
func (a *Arena) AddTransientBuffer(slot int, handle BufferHandle) {
	a.slots[slot].transientBuffers = append(a.slots[slot].transientBuffers, handle)
}

// SlotBuffer resolves a slot's upload buffer for bind-group creation
// against slice offsets.
func (a *Arena) SlotBuffer(slot int) (*wgpu.Buffer, bool) {
	return a.alloc.GetBuffer(a.slots[slot].uploadBuffer)
}

// SetSignaled records the timeline value this slot's main submission
// produced, consulted by the next BeginFrame(slot).
func (a *Arena) SetSignaled(slot int, value uint64) {
	a.slots[slot].signaled = value
	a.slots[slot].inUse = false
}

// ActiveStats reports per-kind bytes allocated in the given slot this
// frame, for UI observability.
func (a *Arena) ActiveStats(slot int) map[string]uint64 {
	s := &a.slots[slot]
	out := make(map[string]uint64, kindCount)
	for k := UploadKind(0); k < kindCount; k++ {
		out[k.String()] = s.perKindBytes[k]
	}
	return out
}

// ResidentStats reports counters stable across frames: live buffer/image
// counts and alias-pool reuse count.
func (a *Arena) ResidentStats() (liveBuffers, liveImages int, aliasReuses uint64, pooled int) {
	return a.alloc.liveBufferCount(), a.alloc.liveImageCount(), a.imageAliasReuses, len(a.aliasPool)
}
