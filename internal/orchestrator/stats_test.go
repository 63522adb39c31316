package orchestrator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameStats_FirstTickOnlySeeds(t *testing.T) {
	var s FrameStats
	s.Tick(10)
	require.Zero(t, s.Frames())
	require.Zero(t, s.EWMAMs)
}

func TestFrameStats_EWMADefinedAndFinite(t *testing.T) {
	var s FrameStats
	now := 100.0
	for i := 0; i < 120; i++ {
		s.Tick(now)
		now += 1.0 / 60
	}
	require.Equal(t, uint64(119), s.Frames())
	require.False(t, math.IsNaN(s.EWMAMs))
	require.False(t, math.IsInf(s.EWMAMs, 0))
	require.InDelta(t, 1000.0/60, s.EWMAMs, 1.0)
}

func TestFrameStats_IgnoresBackwardClock(t *testing.T) {
	var s FrameStats
	s.Tick(10)
	s.Tick(11)
	before := s.EWMAMs
	s.Tick(5)
	require.Equal(t, before, s.EWMAMs)
}

func TestFrameStats_DeltaSecondsClamped(t *testing.T) {
	var s FrameStats
	require.Equal(t, float32(1.0/60), s.DeltaSeconds())

	s.Tick(0)
	s.Tick(10) // a 10s hitch clamps
	require.Equal(t, float32(0.25), s.DeltaSeconds())
}
