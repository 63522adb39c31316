package orchestrator

import (
	"time"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/graph"
	"github.com/voxelsprout/renderer/internal/logging"
)

// TransferState is the explicit state-enum replacement for the
// "coroutine-like resume next frame" transfer/stall flow: {Idle, InFlight(value), Ready}, polled once
// per frame instead of captured in a resumable closure.
type TransferState int

const (
	TransferIdle TransferState = iota
	TransferInFlight
	TransferReady
)

// PendingTransfer tracks one in-flight chunk upload.
type PendingTransfer struct {
	State TransferState
	Value uint64
}

// Poll advances the transfer state once the timeline confirms Value is
// reached, returning the state after polling.
func (p *PendingTransfer) Poll(timeline *gpu.Timeline) TransferState {
	if p.State != TransferInFlight {
		return p.State
	}
	if timeline.Signaled(p.Value) {
		p.State = TransferReady
	}
	return p.State
}

// StallCooldownSeconds bounds how often a repeated TimelineStall
// warning may fire.
const StallCooldownSeconds = 1.0

// FrameTiming carries per-labeled-pass timings. When the backend lacks
// timestamp-query support the entries hold CPU record times instead and
// GpuTimingInfo flags them as unsupported.
type FrameTiming struct {
	PassNanos map[graph.PassName]int64
}

// GpuTimingInfo is the surface exposed by GPUTimings().
type GpuTimingInfo struct {
	FrameIndex  uint32
	TotalNanos  int64
	PerPass     map[graph.PassName]int64
	TimestampsSupported bool
}

// SlotArena is the subset of *gpu.Arena the orchestrator drives,
// narrowed to an interface so the frame state machine is exercised by tests without a real GPU-backed Arena.
type SlotArena interface {
	BeginFrame(slot int) error
	SetSignaled(slot int, value uint64)
}

// Orchestrator drives one frame at a time. It owns no rendering
// resources itself beyond what it needs to sequence the passes (graph)
// and the shared GPU plumbing (timeline/arena); actual pass recording
// stays with the caller, so this package is testable without a GPU
// device.
type Orchestrator struct {
	timeline *gpu.Timeline
	alloc    *gpu.Allocator
	arena    SlotArena
	graph    *graph.Graph
	swap     Swapchain
	logger   logging.Logger
	cooldown *logging.Cooldown

	framesInFlight int
	currentSlot    int
	frameIndex     uint32

	pendingTransfer PendingTransfer
	lastGraphicsValue uint64

	timestampsSupported bool
	lastTiming           FrameTiming

	nowSeconds func() float64
}

// New builds an Orchestrator. Its nowSeconds clock, used to gate stall
// warnings, is a wrapper over time.Now.
func New(timeline *gpu.Timeline, alloc *gpu.Allocator, arena SlotArena, g *graph.Graph, swap Swapchain, framesInFlight int, timestampsSupported bool) *Orchestrator {
	return &Orchestrator{
		timeline:             timeline,
		alloc:                alloc,
		arena:                arena,
		graph:                g,
		swap:                 swap,
		logger:               logging.Default(),
		cooldown:             logging.NewCooldown(StallCooldownSeconds),
		framesInFlight:       framesInFlight,
		timestampsSupported:  timestampsSupported,
		nowSeconds:           func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// FrameIndex returns the count of frames begun so far.
func (o *Orchestrator) FrameIndex() uint32 { return o.frameIndex }

// GPUTimings returns the most recently recorded per-pass timings.
func (o *Orchestrator) GPUTimings() GpuTimingInfo {
	total := int64(0)
	per := make(map[graph.PassName]int64, len(o.lastTiming.PassNanos))
	for name, ns := range o.lastTiming.PassNanos {
		per[name] = ns
		if ns > 0 {
			total += ns
		}
	}
	return GpuTimingInfo{FrameIndex: o.frameIndex, TotalNanos: total, PerPass: per, TimestampsSupported: o.timestampsSupported}
}

// StepResult reports what the frame's begin/acquire steps decided, so
// the caller (or a test) can observe the early-return paths without a
// real GPU.
type StepResult int

const (
	StepProceed StepResult = iota
	StepSlotStalled
	StepSwapchainSkippedZeroFramebuffer
	StepAcquireOutOfDate
	StepAcquireTimeout
)

// BeginFrame polls timeline completion, advances the frame slot only
// once its last signaled value is reached, and calls Arena.BeginFrame.
// A stalled slot logs a cooldown-gated warning and asks the caller to
// retry next iteration without advancing frameIndex.
func (o *Orchestrator) BeginFrame() StepResult {
	o.timeline.CollectCompletedReleases(o.alloc)

	slot := (o.currentSlot + 1) % o.framesInFlight
	if err := o.arena.BeginFrame(slot); err != nil {
		if o.cooldown.Allow("frame-slot-stall", o.nowSeconds()) {
			o.logger.Warnf("frame slot %d stalled: %v", slot, err)
		}
		return StepSlotStalled
	}

	o.currentSlot = slot
	o.pendingTransfer.Poll(o.timeline)
	return StepProceed
}

// AcquireSwapchain grabs the next surface image. Zero-size
// framebuffers do no swapchain work and the caller's render call still
// reports success; an out-of-date surface recreates and returns early;
// a timeout just returns.
func (o *Orchestrator) AcquireSwapchain() (AcquiredImage, StepResult) {
	w, h := o.swap.FramebufferSize()
	if w == 0 || h == 0 {
		return AcquiredImage{}, StepSwapchainSkippedZeroFramebuffer
	}

	img, status := o.swap.AcquireNextImage()
	switch status {
	case StatusOK, StatusSuboptimal:
		return img, StepProceed
	case StatusOutOfDate:
		_ = o.swap.Recreate(w, h)
		return AcquiredImage{}, StepAcquireOutOfDate
	case StatusTimeout:
		return AcquiredImage{}, StepAcquireTimeout
	default:
		return AcquiredImage{}, StepAcquireOutOfDate
	}
}

// CompleteFrame records the just-submitted graphics timeline value,
// advances the arena slot's signaled value, presents, and reacts to an
// out-of-date or suboptimal surface by recreating the swapchain without
// discarding the chunk VB/IB.
func (o *Orchestrator) CompleteFrame(img AcquiredImage, graphicsValue uint64) {
	o.lastGraphicsValue = graphicsValue
	o.arena.SetSignaled(o.currentSlot, graphicsValue)
	o.frameIndex++

	status := o.swap.Present(img)
	if status == StatusOutOfDate || status == StatusSuboptimal {
		w, h := o.swap.FramebufferSize()
		_ = o.swap.Recreate(w, h)
	}
}

// BeginChunkUpload reports whether a requested remesh upload may start
// this frame: only when no transfer is currently in flight.
func (o *Orchestrator) BeginChunkUpload(remeshRequested bool) bool {
	return remeshRequested && o.pendingTransfer.State != TransferInFlight
}

// RecordPendingTransfer stores the transfer-queue timeline value a just-
// submitted chunk upload produced, to be waited on by the next
// graphics submission.
func (o *Orchestrator) RecordPendingTransfer(value uint64) {
	o.pendingTransfer = PendingTransfer{State: TransferInFlight, Value: value}
}

// PendingTransferValue returns the transfer timeline value the next
// graphics submission must wait on, and whether one is outstanding
//. Once the transfer has completed there is nothing
// left to wait on.
func (o *Orchestrator) PendingTransferValue() (uint64, bool) {
	if o.pendingTransfer.State == TransferInFlight {
		return o.pendingTransfer.Value, true
	}
	return 0, false
}

// RecordTiming stores the per-pass timings for GPUTimings().
func (o *Orchestrator) RecordTiming(t FrameTiming) {
	o.lastTiming = t
}

// CurrentSlot returns the frame-arena slot this frame is using.
func (o *Orchestrator) CurrentSlot() int { return o.currentSlot }

// LastGraphicsValue reports the most recent graphics submission's
// timeline value, the upper bound on work that may still reference the
// previous frame's buffers.
func (o *Orchestrator) LastGraphicsValue() uint64 { return o.lastGraphicsValue }

// FramebufferSize reports the swapchain's current framebuffer extent.
func (o *Orchestrator) FramebufferSize() (uint32, uint32) {
	return o.swap.FramebufferSize()
}

// PassOrder exposes the Frame Graph's validated execution order, used
// by the caller to drive command recording.
func (o *Orchestrator) PassOrder() []graph.PassName { return o.graph.Order() }
