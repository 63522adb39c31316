package gpu

import (
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// Timeline is the single process-wide monotonic 64-bit counter used
// for cross-queue and cross-frame ordering, plus a deferred-destruction
// queue.
//
// wgpu exposes no raw timeline-semaphore primitive, so `signaled` is
// backed by an atomic counter advanced from Queue.OnSubmittedWorkDone
// callbacks registered at submit time. Submission order on a single
// wgpu.Queue is FIFO, so completions always arrive in the order their
// values were issued - the monotonic-counter invariant holds without
// extra bookkeeping.
type Timeline struct {
	next      atomic.Uint64
	completed atomic.Uint64

	mu       sync.Mutex
	releases []releaseRecord
}

type releaseRecord struct {
	value  uint64
	kind   string // "buffer" or "image"
	buffer BufferHandle
	image  ImageHandle
}

func NewTimeline() *Timeline {
	return &Timeline{}
}

// NextValue returns the next unused timeline value. Callers pass it to
// Queue.Submit's completion bookkeeping via TrackSubmission.
func (t *Timeline) NextValue() uint64 {
	return t.next.Add(1)
}

// TrackSubmission registers value to advance `completed` once queue
// reports the just-submitted work as done. Because a single wgpu.Queue
// processes submissions in FIFO order, values are guaranteed to report
// in increasing order, so it is always safe to simply store the value.
func (t *Timeline) TrackSubmission(queue *wgpu.Queue, value uint64) {
	queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		t.MarkCompleted(value)
	})
}

// MarkCompleted records that the GPU has reached value. Normally driven
// by TrackSubmission's completion callback; fakes drive it directly.
func (t *Timeline) MarkCompleted(value uint64) {
	for {
		cur := t.completed.Load()
		if value <= cur {
			return
		}
		if t.completed.CompareAndSwap(cur, value) {
			return
		}
	}
}

// Signaled reports whether the GPU has completed at least `value`,
// non-blocking.
func (t *Timeline) Signaled(value uint64) bool {
	return t.completed.Load() >= value
}

// Completed returns the last value known to be reached by the GPU.
func (t *Timeline) Completed() uint64 {
	return t.completed.Load()
}

// ScheduleReleaseBuffer enqueues a destroy-on-completion record for a buffer.
func (t *Timeline) ScheduleReleaseBuffer(handle BufferHandle, value uint64) {
	t.mu.Lock()
	t.releases = append(t.releases, releaseRecord{value: value, kind: "buffer", buffer: handle})
	t.mu.Unlock()
}

// ScheduleReleaseImage enqueues a destroy-on-completion record for an image.
func (t *Timeline) ScheduleReleaseImage(handle ImageHandle, value uint64) {
	t.mu.Lock()
	t.releases = append(t.releases, releaseRecord{value: value, kind: "image", image: handle})
	t.mu.Unlock()
}

// CollectCompletedReleases polls and destroys records whose value has
// been reached. Called at the top of every frame and before any
// allocation that must reuse memory.
func (t *Timeline) CollectCompletedReleases(alloc *Allocator) int {
	completed := t.completed.Load()

	t.mu.Lock()
	remaining := t.releases[:0]
	var due []releaseRecord
	for _, r := range t.releases {
		if r.value <= completed {
			due = append(due, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	t.releases = remaining
	t.mu.Unlock()

	for _, r := range due {
		switch r.kind {
		case "buffer":
			alloc.DestroyBuffer(r.buffer)
		case "image":
			alloc.DestroyImage(r.image)
		}
	}
	return len(due)
}

// Poll pumps the wgpu event loop so queued OnSubmittedWorkDone
// callbacks fire. wait=true blocks until the GPU catches up - used only
// at startup/shutdown drains and around target resizes; the frame loop
// itself never blocks here.
func (t *Timeline) Poll(device *wgpu.Device, wait bool) {
	device.Poll(wait, nil)
}
