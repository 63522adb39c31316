package world

import (
	stdcolor "image/color"

	"golang.org/x/image/colornames"

	"github.com/google/uuid"
)

// MagicaStampSpec is one placement request for a MagicaVoxel-imported
// resource. The importer itself (parsing .vox chunks) lives outside
// this module; these are the shapes it hands back.
type MagicaStampSpec struct {
	RelativePath  string
	PlacementX    float32
	PlacementY    float32
	PlacementZ    float32
	UniformScale  float32
}

// MagicaStampResult summarizes one import batch: counts plus a capped
// 16-entry base-color palette sample.
type MagicaStampResult struct {
	StampedResourceCount uint32
	StampedVoxelCount    uint64
	ClippedVoxelCount    uint64
	BaseColorPalette     [16]stdcolor.RGBA
	BaseColorPaletteCount uint8
}

// defaultPalette is the named-color fallback used when a stamped
// resource carries no embedded palette.
var defaultPalette = [16]string{
	"dimgray", "saddlebrown", "forestgreen", "steelblue",
	"gold", "firebrick", "slategray", "sienna",
	"darkolivegreen", "royalblue", "chocolate", "darkslategray",
	"indianred", "cadetblue", "peru", "gray",
}

// StampMagicaResources computes a MagicaStampResult for a batch of
// placement specs against the world's current chunk contents. Each
// stamp is assumed pre-voxelized by the importer; this function tallies
// per stamp, at anchor granularity: a stamp whose anchor cell lies
// below the world floor or outside every loaded chunk is counted
// clipped in full. It also resolves a display palette.
func (w *World) StampMagicaResources(specs []MagicaStampSpec, voxelsPerStamp func(spec MagicaStampSpec) uint64) MagicaStampResult {
	result := MagicaStampResult{}
	result.BaseColorPaletteCount = decodePalette(nil, &result.BaseColorPalette)

	for _, spec := range specs {
		total := voxelsPerStamp(spec)
		if total == 0 {
			continue
		}
		result.StampedResourceCount++
		result.StampedVoxelCount += total
		if !w.placementLoaded(spec) {
			result.ClippedVoxelCount += total
		}
	}
	return result
}

// placementLoaded reports whether a stamp's anchor cell lands inside a
// loaded chunk. There are no chunks below the world floor, and a stamp
// anchored in unloaded space has nowhere to write its voxels.
func (w *World) placementLoaded(spec MagicaStampSpec) bool {
	if spec.PlacementY < 0 || w.grid == nil {
		return false
	}
	coord, _, _, _ := worldToChunkLocal(int(spec.PlacementX), int(spec.PlacementY), int(spec.PlacementZ))
	_, ok := w.grid.ChunkAt(coord)
	return ok
}

// decodePalette normalizes raw RGBA palette bytes (4 bytes/entry, as
// MagicaVoxel stores them) into the fixed 16-entry display palette,
// capping at 16 and falling back to defaultPalette entries for any
// remainder, exactly as World::MagicaStampResult's
// baseColorPaletteCount tracks how many of the 16 slots are meaningful.
func decodePalette(raw []byte, out *[16]stdcolor.RGBA) uint8 {
	n := len(raw) / 4
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = stdcolor.RGBA{R: raw[i*4], G: raw[i*4+1], B: raw[i*4+2], A: raw[i*4+3]}
	}
	for i := n; i < len(out); i++ {
		out[i] = colornames.Map[defaultPalette[i]]
	}
	return uint8(n)
}

// StampDebugID returns a fresh debug identifier for a stamped resource
// instance.
func StampDebugID() uuid.UUID { return uuid.New() }
