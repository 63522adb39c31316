package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeSingleBelt_SeedsToyScene(t *testing.T) {
	var s Simulation
	s.InitializeSingleBelt()

	require.Equal(t, 1, s.BeltCount())
	require.Equal(t, 2, s.PipeCount())
	require.Equal(t, 2, s.TrackCount())
	require.Equal(t, BeltEast, s.Belts()[0].Direction)
}

func TestNewPipe_NormalizesAxis(t *testing.T) {
	p := NewPipe(0, 0, 0, [3]float32{2, 0, 0}, 1, 0.5, [3]float32{1, 1, 1})
	require.InDelta(t, 1.0, p.Axis.Len(), 1e-6)
}

func TestAddCargo_ClampsProgressToUnitRange(t *testing.T) {
	var s Simulation
	s.AddCargo(0, 1.5, 3)
	s.AddCargo(0, -0.5, 3)

	require.Len(t, s.BeltCargoes(), 2)
	require.Equal(t, float32(1), s.BeltCargoes()[0].Progress)
	require.Equal(t, float32(0), s.BeltCargoes()[1].Progress)
}

func TestUpdate_IsANoOp(t *testing.T) {
	var s Simulation
	s.InitializeSingleBelt()
	before := s.Belts()[0]
	s.Update(1.0 / 60)
	require.Equal(t, before, s.Belts()[0])
}
