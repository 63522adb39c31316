package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voxelsprout/renderer/internal/gpu"
	"github.com/voxelsprout/renderer/internal/graph"
)

type fakeSwapchain struct {
	width, height uint32
	nextStatus    SurfaceStatus
	presentStatus SurfaceStatus
	recreated     bool
}

func (f *fakeSwapchain) AcquireNextImage() (AcquiredImage, SurfaceStatus) {
	return AcquiredImage{ImageIndex: 0}, f.nextStatus
}
func (f *fakeSwapchain) Present(AcquiredImage) SurfaceStatus { return f.presentStatus }
func (f *fakeSwapchain) Recreate(w, h uint32) error {
	f.recreated = true
	f.width, f.height = w, h
	return nil
}
func (f *fakeSwapchain) FramebufferSize() (uint32, uint32) { return f.width, f.height }

type fakeArena struct {
	signaled map[int]uint64
}

func newFakeArena() *fakeArena { return &fakeArena{signaled: map[int]uint64{}} }

func (f *fakeArena) BeginFrame(slot int) error { return nil }
func (f *fakeArena) SetSignaled(slot int, value uint64) {
	f.signaled[slot] = value
}

func newTestOrchestrator(t *testing.T, swap Swapchain) (*Orchestrator, *gpu.Timeline) {
	t.Helper()
	timeline := gpu.NewTimeline()
	g, err := graph.New()
	require.NoError(t, err)
	o := New(timeline, nil, newFakeArena(), g, swap, 2, true)
	return o, timeline
}

func TestAcquireSwapchain_ZeroFramebufferSkipsWork(t *testing.T) {
	swap := &fakeSwapchain{width: 0, height: 0}
	o, _ := newTestOrchestrator(t, swap)

	_, result := o.AcquireSwapchain()
	require.Equal(t, StepSwapchainSkippedZeroFramebuffer, result)
}

func TestAcquireSwapchain_OutOfDateTriggersRecreate(t *testing.T) {
	swap := &fakeSwapchain{width: 800, height: 600, nextStatus: StatusOutOfDate}
	o, _ := newTestOrchestrator(t, swap)

	_, result := o.AcquireSwapchain()
	require.Equal(t, StepAcquireOutOfDate, result)
	require.True(t, swap.recreated)
}

func TestAcquireSwapchain_TimeoutDoesNotRecreate(t *testing.T) {
	swap := &fakeSwapchain{width: 800, height: 600, nextStatus: StatusTimeout}
	o, _ := newTestOrchestrator(t, swap)

	_, result := o.AcquireSwapchain()
	require.Equal(t, StepAcquireTimeout, result)
	require.False(t, swap.recreated)
}

func TestCompleteFrame_PresentOutOfDateRecreatesWithoutLosingState(t *testing.T) {
	swap := &fakeSwapchain{width: 800, height: 600, presentStatus: StatusOutOfDate}
	o, timeline := newTestOrchestrator(t, swap)
	_ = timeline

	o.CompleteFrame(AcquiredImage{}, 5)
	require.True(t, swap.recreated)
	require.Equal(t, uint32(1), o.FrameIndex())
}

func TestBeginChunkUpload_DeferredWhileTransferInFlight(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSwapchain{width: 1, height: 1})
	require.True(t, o.BeginChunkUpload(true))

	o.RecordPendingTransfer(7)
	require.False(t, o.BeginChunkUpload(true))
	require.False(t, o.BeginChunkUpload(false))
}

func TestPendingTransferValue_NoneWhenIdle(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSwapchain{width: 1, height: 1})
	_, ok := o.PendingTransferValue()
	require.False(t, ok)

	o.RecordPendingTransfer(3)
	v, ok := o.PendingTransferValue()
	require.True(t, ok)
	require.Equal(t, uint64(3), v)
}

func TestPendingTransfer_PollBecomesReadyOnceSignaled(t *testing.T) {
	timeline := gpu.NewTimeline()
	p := PendingTransfer{State: TransferInFlight, Value: 10}
	require.Equal(t, TransferInFlight, p.Poll(timeline))

	timeline.MarkCompleted(9)
	require.Equal(t, TransferInFlight, p.Poll(timeline))

	timeline.MarkCompleted(10)
	require.Equal(t, TransferReady, p.Poll(timeline))
}

func TestGPUTimings_ReportsUnsupportedWhenTimestampsMissing(t *testing.T) {
	swap := &fakeSwapchain{width: 1, height: 1}
	timeline := gpu.NewTimeline()
	g, err := graph.New()
	require.NoError(t, err)
	o := New(timeline, nil, nil, g, swap, 2, false)

	timings := o.GPUTimings()
	require.False(t, timings.TimestampsSupported)
}

func TestPassOrder_RespectsGraphDependencies(t *testing.T) {
	o, _ := newTestOrchestrator(t, &fakeSwapchain{width: 1, height: 1})
	order := o.PassOrder()
	require.NotEmpty(t, order)

	index := make(map[graph.PassName]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	require.Less(t, index[graph.PassShadow], index[graph.PassPrepass])
	require.Less(t, index[graph.PassMain], index[graph.PassPost])
}
