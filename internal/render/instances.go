package render

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsprout/renderer/internal/sim"
	"github.com/voxelsprout/renderer/internal/upload"
	"github.com/voxelsprout/renderer/internal/voxel"
)

// MeshInstance is one entry of the instanced-cube stream: a model
// matrix plus an RGBA tint. The tint's alpha doubles as the cascade
// index for shadow-pass instance streams.
type MeshInstance struct {
	Model mgl32.Mat4
	Tint  mgl32.Vec4
}

// MeshInstanceSize is MeshInstance's GPU byte size.
const MeshInstanceSize = 64 + 16

// GrassInstanceSize is the GPU byte size of one grass billboard entry.
const GrassInstanceSize = 32

// PackMeshInstances serializes a MeshInstance stream.
func PackMeshInstances(instances []MeshInstance) []byte {
	out := make([]byte, len(instances)*MeshInstanceSize)
	off := 0
	for _, inst := range instances {
		for _, v := range inst.Model {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
			off += 4
		}
		for i := 0; i < 4; i++ {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(inst.Tint[i]))
			off += 4
		}
	}
	return out
}

// PackGrassInstances serializes the grass billboard stream rebuilt by
// the chunk upload path.
func PackGrassInstances(instances []upload.GrassInstance) []byte {
	out := make([]byte, len(instances)*GrassInstanceSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
		off += 4
	}
	for _, g := range instances {
		put(g.Position[0])
		put(g.Position[1])
		put(g.Position[2])
		put(g.Rotation)
		tint := grassTint(g.ColorIndex)
		put(tint.X())
		put(tint.Y())
		put(tint.Z())
		put(1)
	}
	return out
}

// PackGrassShadowInstances serializes a grass caster stream for one
// cascade; the tint alpha carries the cascade index the shadow vertex
// stage selects its transform with.
func PackGrassShadowInstances(instances []upload.GrassInstance, cascade int) []byte {
	out := make([]byte, len(instances)*GrassInstanceSize)
	off := 0
	put := func(v float32) {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
		off += 4
	}
	for _, g := range instances {
		put(g.Position[0])
		put(g.Position[1])
		put(g.Position[2])
		put(g.Rotation)
		put(0)
		put(0)
		put(0)
		put(float32(cascade))
	}
	return out
}

func grassTint(colorIndex uint8) mgl32.Vec3 {
	base := mgl32.Vec3{0.25, 0.55, 0.18}
	shift := float32(colorIndex&0x3) * 0.04
	return mgl32.Vec3{base.X() + shift, base.Y() + shift, base.Z()}
}

func cellTranslate(x, y, z int) mgl32.Mat4 {
	return mgl32.Translate3D(float32(x)+0.5, float32(y)+0.5, float32(z)+0.5)
}

// BuildBeltInstances expands the simulation's belt array into flattened
// cube instances: one low slab per belt cell.
func BuildBeltInstances(belts []sim.Belt) []MeshInstance {
	out := make([]MeshInstance, 0, len(belts))
	for _, b := range belts {
		m := cellTranslate(b.X, b.Y, b.Z).Mul4(mgl32.Scale3D(1.0, 0.2, 1.0))
		out = append(out, MeshInstance{Model: m, Tint: mgl32.Vec4{0.25, 0.25, 0.28, 1}})
	}
	return out
}

// BuildPipeInstances expands pipes into elongated cubes along each
// pipe's axis, tinted per pipe.
func BuildPipeInstances(pipes []sim.Pipe) []MeshInstance {
	out := make([]MeshInstance, 0, len(pipes))
	for _, p := range pipes {
		m := cellTranslate(p.X, p.Y, p.Z).
			Mul4(orientAlong(p.Axis)).
			Mul4(mgl32.Scale3D(p.Length, p.Radius*2, p.Radius*2))
		out = append(out, MeshInstance{Model: m, Tint: p.Tint.Vec4(1)})
	}
	return out
}

// BuildTrackInstances expands track segments into two thin rails per
// cell, oriented along the segment's direction.
func BuildTrackInstances(tracks []sim.Track) []MeshInstance {
	out := make([]MeshInstance, 0, len(tracks)*2)
	for _, t := range tracks {
		along := mgl32.Vec3{1, 0, 0}
		across := mgl32.Vec3{0, 0, 1}
		if t.Direction == sim.TrackNorth || t.Direction == sim.TrackSouth {
			along, across = across, along
		}
		for _, side := range []float32{-0.3, 0.3} {
			offset := across.Mul(side)
			m := cellTranslate(t.X, t.Y, t.Z).
				Mul4(mgl32.Translate3D(offset.X(), -0.4, offset.Z())).
				Mul4(orientAlong(along)).
				Mul4(mgl32.Scale3D(1.0, 0.1, 0.1))
			out = append(out, MeshInstance{Model: m, Tint: mgl32.Vec4{0.45, 0.42, 0.40, 1}})
		}
	}
	return out
}

// BuildCargoInstances places each cargo cube at its fractional position
// along the owning belt.
func BuildCargoInstances(cargoes []sim.BeltCargo, belts []sim.Belt) []MeshInstance {
	out := make([]MeshInstance, 0, len(cargoes))
	for _, c := range cargoes {
		if c.BeltIndex < 0 || c.BeltIndex >= len(belts) {
			continue
		}
		b := belts[c.BeltIndex]
		dir := beltDirection(b.Direction)
		pos := mgl32.Vec3{float32(b.X) + 0.5, float32(b.Y) + 0.35, float32(b.Z) + 0.5}.
			Add(dir.Mul(c.Progress - 0.5))
		m := mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()).Mul4(mgl32.Scale3D(0.3, 0.3, 0.3))
		tint := cargoTint(c.ColorIndex)
		out = append(out, MeshInstance{Model: m, Tint: tint.Vec4(1)})
	}
	return out
}

func cargoTint(colorIndex uint8) mgl32.Vec3 {
	palette := [4]mgl32.Vec3{
		{0.85, 0.30, 0.20},
		{0.95, 0.75, 0.20},
		{0.30, 0.60, 0.85},
		{0.60, 0.85, 0.35},
	}
	return palette[colorIndex&0x3]
}

func beltDirection(d sim.BeltDirection) mgl32.Vec3 {
	switch d {
	case sim.BeltNorth:
		return mgl32.Vec3{0, 0, -1}
	case sim.BeltSouth:
		return mgl32.Vec3{0, 0, 1}
	case sim.BeltWest:
		return mgl32.Vec3{-1, 0, 0}
	default:
		return mgl32.Vec3{1, 0, 0}
	}
}

// BuildPreviewInstance is the single translucent placement-preview cube
// the UI requests at a hovered cell.
func BuildPreviewInstance(x, y, z int, tint mgl32.Vec3) MeshInstance {
	return MeshInstance{
		Model: cellTranslate(x, y, z).Mul4(mgl32.Scale3D(1.02, 1.02, 1.02)),
		Tint:  tint.Vec4(0.5),
	}
}

// orientAlong maps the unit cube's +X axis onto dir, preserving scale.
func orientAlong(dir mgl32.Vec3) mgl32.Mat4 {
	if dir.Len() == 0 {
		return mgl32.Ident4()
	}
	x := dir.Normalize()
	up := mgl32.Vec3{0, 1, 0}
	if abs32(x.Dot(up)) > 0.99 {
		up = mgl32.Vec3{0, 0, 1}
	}
	z := x.Cross(up).Normalize()
	y := z.Cross(x).Normalize()
	return mgl32.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl32.Vec4{0, 0, 0, 1})
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// DrawIndexedIndirectArgs mirrors the GPU's indexed-indirect command
// layout: five 32-bit fields per draw.
type DrawIndexedIndirectArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// DrawIndexedIndirectSize is one indirect command's byte size.
const DrawIndexedIndirectSize = 20

// BuildChunkIndirectCommands produces one indirect command per chunk
// draw range; FirstInstance carries the range's index so the shader can
// fetch its per-chunk params entry.
func BuildChunkIndirectCommands(ranges []voxel.ChunkDrawRange) []DrawIndexedIndirectArgs {
	return BuildChunkIndirectCommandsWithBase(ranges, 0)
}

// BuildChunkIndirectCommandsWithBase offsets every command's
// FirstInstance by base, used by the per-cascade shadow lists whose
// params entries are stacked behind the main pass's.
func BuildChunkIndirectCommandsWithBase(ranges []voxel.ChunkDrawRange, base uint32) []DrawIndexedIndirectArgs {
	out := make([]DrawIndexedIndirectArgs, 0, len(ranges))
	for i, r := range ranges {
		if r.IndexCount == 0 {
			continue
		}
		out = append(out, DrawIndexedIndirectArgs{
			IndexCount:    r.IndexCount,
			InstanceCount: 1,
			FirstIndex:    r.FirstIndex,
			BaseVertex:    r.BaseVertex,
			FirstInstance: base + uint32(i),
		})
	}
	return out
}

// PackIndirectCommands serializes indirect commands for the indirect
// buffer upload.
func PackIndirectCommands(cmds []DrawIndexedIndirectArgs) []byte {
	out := make([]byte, len(cmds)*DrawIndexedIndirectSize)
	off := 0
	for _, c := range cmds {
		binary.LittleEndian.PutUint32(out[off:], c.IndexCount)
		binary.LittleEndian.PutUint32(out[off+4:], c.InstanceCount)
		binary.LittleEndian.PutUint32(out[off+8:], c.FirstIndex)
		binary.LittleEndian.PutUint32(out[off+12:], uint32(c.BaseVertex))
		binary.LittleEndian.PutUint32(out[off+16:], c.FirstInstance)
		off += DrawIndexedIndirectSize
	}
	return out
}

// PackChunkParams serializes per-range chunk offsets; w carries the
// cascade index for shadow streams (or zero for the main pass).
func PackChunkParams(ranges []voxel.ChunkDrawRange, cascade float32) []byte {
	out := make([]byte, len(ranges)*16)
	off := 0
	for _, r := range ranges {
		binary.LittleEndian.PutUint32(out[off:], math.Float32bits(r.ChunkOffset[0]))
		binary.LittleEndian.PutUint32(out[off+4:], math.Float32bits(r.ChunkOffset[1]))
		binary.LittleEndian.PutUint32(out[off+8:], math.Float32bits(r.ChunkOffset[2]))
		binary.LittleEndian.PutUint32(out[off+12:], math.Float32bits(cascade))
		off += 16
	}
	return out
}
