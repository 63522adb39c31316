package gpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestArena(capacity uint64) *Arena {
	return &Arena{
		timeline: NewTimeline(),
		slots: []frameSlot{
			{uploadBytes: make([]byte, capacity), capacity: capacity},
		},
	}
}

func TestArena_AllocateUploadPacksSequentially(t *testing.T) {
	a := newTestArena(256)

	s1, err := a.AllocateUpload(0, 16, 4, KindCameraUniform)
	require.NoError(t, err)
	require.Equal(t, uint64(0), s1.Offset)

	s2, err := a.AllocateUpload(0, 16, 4, KindInstanceData)
	require.NoError(t, err)
	require.Equal(t, uint64(16), s2.Offset)
}

func TestArena_AllocateUploadRespectsAlignment(t *testing.T) {
	a := newTestArena(256)

	_, err := a.AllocateUpload(0, 3, 1, KindUnknown)
	require.NoError(t, err)

	s2, err := a.AllocateUpload(0, 16, 16, KindUnknown)
	require.NoError(t, err)
	require.Equal(t, uint64(0), s2.Offset%16)
}

func TestArena_AllocateUploadTooLargeFails(t *testing.T) {
	a := newTestArena(64)

	_, err := a.AllocateUpload(0, 32, 4, KindUnknown)
	require.NoError(t, err)

	_, err = a.AllocateUpload(0, 64, 4, KindUnknown)
	require.Error(t, err)
}

func TestArena_BeginFrameResetsHeadWhenSignaledReached(t *testing.T) {
	a := newTestArena(256)

	_, err := a.AllocateUpload(0, 100, 4, KindUnknown)
	require.NoError(t, err)
	require.NotZero(t, a.slots[0].head)

	val := a.timeline.NextValue()
	a.SetSignaled(0, val)
	a.timeline.MarkCompleted(val)

	require.NoError(t, a.BeginFrame(0))
	require.Zero(t, a.slots[0].head)
}

func TestArena_BeginFrameStallsWhenNotSignaled(t *testing.T) {
	a := newTestArena(256)
	val := a.timeline.NextValue()
	a.SetSignaled(0, val)

	err := a.BeginFrame(0)
	require.Error(t, err)
}

func TestArena_PerKindByteAccounting(t *testing.T) {
	a := newTestArena(256)

	_, err := a.AllocateUpload(0, 32, 4, KindCameraUniform)
	require.NoError(t, err)
	_, err = a.AllocateUpload(0, 64, 4, KindInstanceData)
	require.NoError(t, err)

	stats := a.ActiveStats(0)
	require.Equal(t, uint64(32), stats[KindCameraUniform.String()])
	require.Equal(t, uint64(64), stats[KindInstanceData.String()])
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, uint64(0), alignUp(0, 16))
	require.Equal(t, uint64(16), alignUp(1, 16))
	require.Equal(t, uint64(16), alignUp(16, 16))
	require.Equal(t, uint64(5), alignUp(5, 1))
	require.Equal(t, uint64(5), alignUp(5, 0))
}
