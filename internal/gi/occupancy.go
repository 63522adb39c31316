package gi

import "github.com/voxelsprout/renderer/internal/voxel"

// PackOccupancy builds the RGBA8 occupancy upload:
// R=255 marks a solid cell, GBA carries the voxel's albedo. side is the
// grid's cell count per axis; sampleAt resolves a grid-local cell to a
// world voxel lookup (supplied by the caller, since the grid's origin
// and the world's chunk layout are independent concerns).
func PackOccupancy(side int, sampleAt func(x, y, z int) (solid bool, r, g, b uint8)) []byte {
	out := make([]byte, side*side*side*4)
	i := 0
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				solid, r, g, b := sampleAt(x, y, z)
				if solid {
					out[i] = 255
				}
				out[i+1] = r
				out[i+2] = g
				out[i+3] = b
				i += 4
			}
		}
	}
	return out
}

// PaletteAlbedo resolves a voxel's GBA occupancy payload from its
// palette color index, used when sampleAt wraps a voxel.Chunk lookup.
func PaletteAlbedo(palette [][3]uint8, colorIndex uint8) (r, g, b uint8) {
	if int(colorIndex) >= len(palette) {
		return 0, 0, 0
	}
	c := palette[colorIndex]
	return c[0], c[1], c[2]
}

// VoxelSampler adapts a voxel.Chunk cell lookup with a 16-entry
// base-color palette into the sampleAt callback PackOccupancy expects.
func VoxelSampler(chunk *voxel.Chunk, palette [][3]uint8) func(x, y, z int) (bool, uint8, uint8, uint8) {
	return func(x, y, z int) (bool, uint8, uint8, uint8) {
		v := chunk.VoxelAt(x, y, z)
		if !v.IsSolid() {
			return false, 0, 0, 0
		}
		r, g, b := PaletteAlbedo(palette, v.ColorIndex)
		return true, r, g, b
	}
}
