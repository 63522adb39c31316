// Package sim holds the simulation's plain read-only data shapes:
// Belt, Pipe, Track, BeltCargo, and the Simulation container that owns
// them. Nothing here ticks physics, resolves collisions, or touches
// rendering; the frame's instance-stream builder is the sole consumer,
// reading these once per frame.
package sim

import "github.com/go-gl/mathgl/mgl32"

// BeltDirection is a belt's cardinal transport direction.
type BeltDirection int

const (
	BeltNorth BeltDirection = iota
	BeltEast
	BeltSouth
	BeltWest
)

// Belt is a transport-machine placeholder at an integer cell.
type Belt struct {
	X, Y, Z   int
	Direction BeltDirection
}

// TrackDirection is a track segment's cardinal orientation.
type TrackDirection int

const (
	TrackNorth TrackDirection = iota
	TrackEast
	TrackSouth
	TrackWest
)

// Track is a rail segment placeholder at an integer cell.
type Track struct {
	X, Y, Z   int
	Direction TrackDirection
}

// Pipe is a straight pipe segment; Axis is normalized on
// construction.
type Pipe struct {
	X, Y, Z int
	Axis    mgl32.Vec3
	Length  float32
	Radius  float32
	Tint    mgl32.Vec3
}

// NewPipe constructs a Pipe with a normalized axis.
func NewPipe(x, y, z int, axis mgl32.Vec3, length, radius float32, tint mgl32.Vec3) Pipe {
	if axis.Len() > 0 {
		axis = axis.Normalize()
	}
	return Pipe{X: x, Y: y, Z: z, Axis: axis, Length: length, Radius: radius, Tint: tint}
}

// BeltCargo is one item riding a belt segment: which belt it rides,
// how far along, and a color tag.
type BeltCargo struct {
	BeltIndex  int
	Progress   float32 // 0 at the belt's start, 1 at its end
	ColorIndex uint8
}

// Simulation owns the belt/pipe/track collections and provides the
// single high-level update entry point (sim::Simulation). It never owns
// world storage or touches rendering directly.
type Simulation struct {
	belts   []Belt
	pipes   []Pipe
	tracks  []Track
	cargoes []BeltCargo
}

// InitializeSingleBelt seeds a minimal scene: one belt, two pipes, two
// track segments.
func (s *Simulation) InitializeSingleBelt() {
	s.belts = []Belt{{X: 0, Y: 1, Z: 0, Direction: BeltEast}}
	s.pipes = []Pipe{
		NewPipe(2, 1, 2, mgl32.Vec3{1, 0, 0}, 1.0, 0.45, mgl32.Vec3{0.95, 0.95, 0.95}),
		NewPipe(3, 1, 2, mgl32.Vec3{1, 0, 0}, 1.0, 0.45, mgl32.Vec3{0.95, 0.95, 0.95}),
	}
	s.tracks = []Track{
		{X: 0, Y: 1, Z: 2, Direction: TrackEast},
		{X: 1, Y: 1, Z: 2, Direction: TrackEast},
	}
	s.cargoes = nil
}

// Update is a no-op placeholder; the factory-simulation tick itself is
// out of scope for this renderer-focused module.
func (s *Simulation) Update(dt float32) { _ = dt }

func (s *Simulation) Belts() []Belt   { return s.belts }
func (s *Simulation) BeltCount() int  { return len(s.belts) }
func (s *Simulation) Pipes() []Pipe   { return s.pipes }
func (s *Simulation) PipeCount() int  { return len(s.pipes) }
func (s *Simulation) Tracks() []Track { return s.tracks }
func (s *Simulation) TrackCount() int { return len(s.tracks) }

// BeltCargoes returns the read-only cargo stream.
func (s *Simulation) BeltCargoes() []BeltCargo { return s.cargoes }

// AddCargo places a cargo item on a belt, clamping Progress to [0,1].
func (s *Simulation) AddCargo(beltIndex int, progress float32, colorIndex uint8) {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	s.cargoes = append(s.cargoes, BeltCargo{BeltIndex: beltIndex, Progress: progress, ColorIndex: colorIndex})
}
