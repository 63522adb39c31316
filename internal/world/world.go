// Package world owns voxel world state and its binary persistence.
//
// World does not mesh, upload, or render anything; it is the data the
// chunk-upload step (internal/upload) and mesher (internal/voxel) read
// from once per frame.
package world

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/voxelsprout/renderer/internal/voxel"
)

// LoadResult reports which path LoadOrInitialize took.
type LoadResult struct {
	LoadedFromFile    bool
	InitializedFallback bool
}

// World owns the chunk grid plus a uuid debug identifier (see ID); the
// identifier is not written to save files.
type World struct {
	id    uuid.UUID
	grid  *voxel.ChunkGrid
}

// New creates an empty World, ready for LoadOrInitialize or
// RegenerateFlatWorld.
func New() *World {
	return &World{id: uuid.New(), grid: voxel.NewChunkGrid()}
}

// ID returns the world's debug identifier.
func (w *World) ID() uuid.UUID { return w.id }

// Chunks returns the read-only chunk collection.
func (w *World) Chunks() *voxel.ChunkGrid { return w.grid }

// VoxelAt resolves a world-space voxel, returning the zero voxel for
// unloaded chunks.
func (w *World) VoxelAt(wx, wy, wz int) voxel.Voxel {
	coord, lx, ly, lz := worldToChunkLocal(wx, wy, wz)
	c, ok := w.grid.ChunkAt(coord)
	if !ok {
		return voxel.Voxel{}
	}
	return c.VoxelAt(lx, ly, lz)
}

// IsSolid reports occupancy at world-space coordinates.
func (w *World) IsSolid(wx, wy, wz int) bool {
	return w.VoxelAt(wx, wy, wz).IsSolid()
}

// SetVoxel writes a voxel at world-space coordinates, creating the
// owning chunk on demand, and reports whether anything changed.
func (w *World) SetVoxel(wx, wy, wz int, v voxel.Voxel) bool {
	coord, lx, ly, lz := worldToChunkLocal(wx, wy, wz)
	c, ok := w.grid.ChunkAt(coord)
	if !ok {
		c = voxel.NewChunk(coord)
		w.grid.AddChunk(c)
	}
	return c.SetVoxel(lx, ly, lz, v)
}

func worldToChunkLocal(wx, wy, wz int) (voxel.ChunkCoord, int, int, int) {
	cx, lx := floorDiv(wx, voxel.ChunkSizeX)
	cy, ly := floorDiv(wy, voxel.ChunkSizeY)
	cz, lz := floorDiv(wz, voxel.ChunkSizeZ)
	return voxel.ChunkCoord{X: int32(cx), Y: int32(cy), Z: int32(cz)}, lx, ly, lz
}

func floorDiv(a, b int) (q, r int) {
	q = a / b
	r = a % b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}

// RegenerateFlatWorld replaces the grid with a single flat ground
// layer, the fallback when no save file exists.
func (w *World) RegenerateFlatWorld() {
	w.grid = voxel.NewChunkGrid()
	ground := voxel.NewChunk(voxel.ChunkCoord{})
	for x := 0; x < voxel.ChunkSizeX; x++ {
		for z := 0; z < voxel.ChunkSizeZ; z++ {
			ground.SetVoxel(x, 0, z, voxel.Voxel{Type: 1, ColorIndex: 2})
		}
	}
	w.grid.AddChunk(ground)
}

const binaryMagic uint32 = 0x56585753 // "VXWS"

// LoadOrInitialize loads a world save file if present, otherwise falls
// back to RegenerateFlatWorld.
func (w *World) LoadOrInitialize(path string) (LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			w.RegenerateFlatWorld()
			return LoadResult{InitializedFallback: true}, nil
		}
		return LoadResult{}, fmt.Errorf("world: open %s: %w", path, err)
	}
	defer f.Close()
	if err := w.loadFromBinaryFile(f); err != nil {
		return LoadResult{}, err
	}
	return LoadResult{LoadedFromFile: true}, nil
}

// Save writes the world to a binary file.
func (w *World) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("world: create %s: %w", path, err)
	}
	defer f.Close()
	return w.saveToBinaryFile(f)
}

// Load reads a world from a binary file.
func (w *World) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("world: open %s: %w", path, err)
	}
	defer f.Close()
	return w.loadFromBinaryFile(f)
}

func (w *World) saveToBinaryFile(wtr io.Writer) error {
	bw := bufio.NewWriter(wtr)
	if err := binary.Write(bw, binary.LittleEndian, binaryMagic); err != nil {
		return err
	}
	count := uint32(w.grid.Len())
	if err := binary.Write(bw, binary.LittleEndian, count); err != nil {
		return err
	}
	for i := 0; i < w.grid.Len(); i++ {
		c := w.grid.Chunk(i)
		if err := binary.Write(bw, binary.LittleEndian, c.Coord); err != nil {
			return err
		}
		for z := 0; z < voxel.ChunkSizeZ; z++ {
			for y := 0; y < voxel.ChunkSizeY; y++ {
				for x := 0; x < voxel.ChunkSizeX; x++ {
					v := c.VoxelAt(x, y, z)
					if err := bw.WriteByte(byte(v.Type)); err != nil {
						return err
					}
					if err := bw.WriteByte(v.ColorIndex); err != nil {
						return err
					}
				}
			}
		}
	}
	return bw.Flush()
}

func (w *World) loadFromBinaryFile(rdr io.Reader) error {
	br := bufio.NewReader(rdr)
	var magic uint32
	if err := binary.Read(br, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("world: read magic: %w", err)
	}
	if magic != binaryMagic {
		return fmt.Errorf("world: bad magic %x", magic)
	}
	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("world: read chunk count: %w", err)
	}
	grid := voxel.NewChunkGrid()
	for i := uint32(0); i < count; i++ {
		var coord voxel.ChunkCoord
		if err := binary.Read(br, binary.LittleEndian, &coord); err != nil {
			return fmt.Errorf("world: read chunk coord: %w", err)
		}
		c := voxel.NewChunk(coord)
		for z := 0; z < voxel.ChunkSizeZ; z++ {
			for y := 0; y < voxel.ChunkSizeY; y++ {
				for x := 0; x < voxel.ChunkSizeX; x++ {
					typ, err := br.ReadByte()
					if err != nil {
						return fmt.Errorf("world: read voxel type: %w", err)
					}
					color, err := br.ReadByte()
					if err != nil {
						return fmt.Errorf("world: read voxel color: %w", err)
					}
					if typ != 0 {
						c.SetVoxel(x, y, z, voxel.Voxel{Type: voxel.VoxelType(typ), ColorIndex: color})
					}
				}
			}
		}
		grid.AddChunk(c)
	}
	w.grid = grid
	return nil
}
