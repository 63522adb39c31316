package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeline_NextValueMonotonic(t *testing.T) {
	tl := NewTimeline()
	var prev uint64
	for i := 0; i < 100; i++ {
		v := tl.NextValue()
		require.Greater(t, v, prev)
		prev = v
	}
}

func TestTimeline_SignaledNonBlocking(t *testing.T) {
	tl := NewTimeline()
	v := tl.NextValue()
	require.False(t, tl.Signaled(v))

	tl.MarkCompleted(v)
	require.True(t, tl.Signaled(v))
	require.Equal(t, v, tl.Completed())
}

func TestTimeline_MarkCompletedNeverRegresses(t *testing.T) {
	tl := NewTimeline()
	tl.MarkCompleted(10)
	tl.MarkCompleted(3)
	require.Equal(t, uint64(10), tl.Completed())
}

func TestTimeline_CollectCompletedReleases(t *testing.T) {
	tl := NewTimeline()
	alloc := &Allocator{buffers: make(map[BufferHandle]*bufferRecord), images: make(map[ImageHandle]*imageRecord)}

	alloc.buffers[BufferHandle(1)] = &bufferRecord{label: "a"}
	alloc.buffers[BufferHandle(2)] = &bufferRecord{label: "b"}

	tl.ScheduleReleaseBuffer(BufferHandle(1), 5)
	tl.ScheduleReleaseBuffer(BufferHandle(2), 10)

	// Nothing due yet.
	require.Equal(t, 0, tl.CollectCompletedReleases(alloc))
	require.Len(t, alloc.buffers, 2)

	tl.MarkCompleted(5)
	require.Equal(t, 1, tl.CollectCompletedReleases(alloc))
	require.Len(t, alloc.buffers, 1)
	_, stillThere := alloc.buffers[BufferHandle(2)]
	require.True(t, stillThere)

	tl.MarkCompleted(10)
	require.Equal(t, 1, tl.CollectCompletedReleases(alloc))
	require.Empty(t, alloc.buffers)
}
