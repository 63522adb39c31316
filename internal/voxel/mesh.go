package voxel

// MeshingMode selects the mesher's merge strategy. ModeNaive emits one
// quad per exposed voxel face (used only as the measurement baseline
// for the greedy reduction statistic); ModeGreedy is the mesher
// actually uploaded to the GPU.
type MeshingMode int

const (
	ModeGreedy MeshingMode = iota
	ModeNaive
)

// ChunkMesh is one chunk's vertex/index pair at a single LOD.
type ChunkMesh struct {
	Vertices []PackedVoxelVertex
	Indices  []uint32
}

// QuadCount reports the number of quads encoded in the mesh.
func (m ChunkMesh) QuadCount() int { return len(m.Indices) / 6 }

// ChunkLodMeshes holds every LOD's mesh for one chunk.
type ChunkLodMeshes struct {
	LODs [ChunkMeshLodCount]ChunkMesh
}

// maskCell is the greedy mesher's per-cell key: two cells merge only
// when every field matches. AO is folded in so a merge never hides a
// lighting discontinuity.
type maskCell struct {
	present    bool
	material   uint8
	colorIndex uint8
	ao         aoSignature
}

func (a maskCell) mergeKeyEqual(b maskCell) bool {
	return a.present && b.present && a.material == b.material && a.colorIndex == b.colorIndex && a.ao == b.ao
}

// lodSource is a read-only voxel source the mesher samples: either a
// chunk directly (LOD 0) or a downsampled proxy (LOD > 0).
type lodSource interface {
	solid(x, y, z int) (material, colorIndex uint8, ok bool)
	exposed(x, y, z, axis, sign int) bool
	size() [3]int
}

// chunkSource meshes a chunk at full resolution, resolving cross-chunk
// neighbor faces through the owning grid.
type chunkSource struct {
	grid  *ChunkGrid
	chunk *Chunk
}

func (s chunkSource) solid(x, y, z int) (uint8, uint8, bool) {
	v := s.chunk.VoxelAt(x, y, z)
	if !v.IsSolid() {
		return 0, 0, false
	}
	return uint8(v.Type), v.ColorIndex & 0xF, true
}

func (s chunkSource) exposed(x, y, z, axis, sign int) bool {
	d := [3]int{x, y, z}
	d[axis] += sign
	if inBounds(d[0], d[1], d[2]) {
		return !s.chunk.IsSolid(d[0], d[1], d[2])
	}
	if s.grid == nil {
		return true
	}
	return !s.grid.IsSolidWorld(s.chunk.Coord, d[0], d[1], d[2])
}

func (s chunkSource) size() [3]int { return [3]int{ChunkSizeX, ChunkSizeY, ChunkSizeZ} }

// neighborSolid reports whether a cell offset from (x,y,z) is solid,
// clamped to the source's own footprint: used for AO sampling, where an
// out-of-range probe is treated as empty (no occlusion contribution),
// matching the exposed-face default.
func neighborSolid(s lodSource, x, y, z int) bool {
	dims := s.size()
	if x < 0 || y < 0 || z < 0 || x >= dims[0] || y >= dims[1] || z >= dims[2] {
		return false
	}
	_, _, ok := s.solid(x, y, z)
	return ok
}

// downsampledSource is a LOD>0 proxy built by taking the (0,0,0)-corner
// voxel of each stride^3 block as that block's representative cell.
// Faces at the coarse grid's own edges always read exposed: LOD meshes
// are a silhouette approximation, not used for exact occlusion (the
// "fall back to per-voxel emission" edge case in the coarse grid is
// handled by stride 1, i.e. LOD 0, since any stride>1 block whose
// representative corner lands outside the chunk cannot be sampled
// validly and is skipped).
type downsampledSource struct {
	chunk  *Chunk
	stride int
	dims   [3]int
}

func newDownsampledSource(c *Chunk, stride int) downsampledSource {
	return downsampledSource{
		chunk:  c,
		stride: stride,
		dims:   [3]int{ChunkSizeX / stride, ChunkSizeY / stride, ChunkSizeZ / stride},
	}
}

func (s downsampledSource) corner(x, y, z int) (int, int, int) {
	return x * s.stride, y * s.stride, z * s.stride
}

func (s downsampledSource) solid(x, y, z int) (uint8, uint8, bool) {
	cx, cy, cz := s.corner(x, y, z)
	if !inBounds(cx, cy, cz) {
		return 0, 0, false
	}
	v := s.chunk.VoxelAt(cx, cy, cz)
	if !v.IsSolid() {
		return 0, 0, false
	}
	return uint8(v.Type), v.ColorIndex & 0xF, true
}

func (s downsampledSource) exposed(x, y, z, axis, sign int) bool {
	d := [3]int{x, y, z}
	d[axis] += sign
	if d[0] < 0 || d[1] < 0 || d[2] < 0 || d[0] >= s.dims[0] || d[1] >= s.dims[1] || d[2] >= s.dims[2] {
		return true
	}
	_, _, ok := s.solid(d[0], d[1], d[2])
	return !ok
}

func (s downsampledSource) size() [3]int { return s.dims }

func lodStride(lod int) int { return 1 << uint(lod) }

// MeshChunkAtLOD runs the mesher for one chunk at one LOD level: slice
// the volume into 2D layers along each face's axis, build a per-layer
// mask keyed by (material, colorIndex, AO signature), then grow maximal
// equal-key rectangles and emit one quad per rectangle.
func MeshChunkAtLOD(grid *ChunkGrid, chunk *Chunk, lod int, mode MeshingMode) ChunkMesh {
	var src lodSource
	stride := lodStride(lod)
	if lod == 0 {
		src = chunkSource{grid: grid, chunk: chunk}
	} else {
		src = newDownsampledSource(chunk, stride)
	}

	mesh := ChunkMesh{}
	for face := Face(0); face < faceCount; face++ {
		meshFace(src, face, stride, lod, mode, &mesh)
	}
	return mesh
}

func meshFace(src lodSource, face Face, stride, lod int, mode MeshingMode, mesh *ChunkMesh) {
	axis := faceAxis[face]
	sign := faceSign[face]
	u := (axis + 1) % 3
	v := (axis + 2) % 3
	dims := src.size()

	mask := make([]maskCell, dims[u]*dims[v])
	idxOf := func(uc, vc int) int { return uc + vc*dims[u] }

	for w := 0; w < dims[axis]; w++ {
		for i := range mask {
			mask[i] = maskCell{}
		}
		for uc := 0; uc < dims[u]; uc++ {
			for vc := 0; vc < dims[v]; vc++ {
				pos := [3]int{}
				pos[axis] = w
				pos[u] = uc
				pos[v] = vc

				material, colorIndex, ok := src.solid(pos[0], pos[1], pos[2])
				if !ok || !src.exposed(pos[0], pos[1], pos[2], axis, sign) {
					continue
				}
				mask[idxOf(uc, vc)] = maskCell{
					present:    true,
					material:   material,
					colorIndex: colorIndex,
					ao:         faceAOSignature(src, pos, axis, u, v, sign),
				}
			}
		}

		if mode == ModeNaive {
			emitNaive(mask, dims[u], dims[v], w, axis, u, v, sign, stride, lod, face, mesh)
		} else {
			emitGreedy(mask, dims[u], dims[v], w, axis, u, v, sign, stride, lod, face, mesh)
		}
	}
}

// faceAOSignature computes the 4-corner AO signature for the unit face
// at `pos`, sampling the two edge-adjacent cells and the diagonal cell
// across the exposed side for each corner. This is the standard
// vertex-AO scheme (side1 && side2 fully occludes; otherwise 3 minus
// the occluder count).
func faceAOSignature(src lodSource, pos [3]int, axis, u, v, sign int) aoSignature {
	outer := pos
	outer[axis] += sign

	corner := func(du, dv int) uint8 {
		a := outer
		a[u] += du
		b := outer
		b[v] += dv
		diag := outer
		diag[u] += du
		diag[v] += dv

		side1 := neighborSolid(src, a[0], a[1], a[2])
		side2 := neighborSolid(src, b[0], b[1], b[2])
		if side1 && side2 {
			return 0
		}
		cnt := 0
		if side1 {
			cnt++
		}
		if side2 {
			cnt++
		}
		if neighborSolid(src, diag[0], diag[1], diag[2]) {
			cnt++
		}
		return uint8(3 - cnt)
	}

	return makeAOSignature(corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1))
}

// emitGreedy grows maximal rectangles of equal mask key across one 2D
// layer, emitting one quad per rectangle.
func emitGreedy(mask []maskCell, du, dv, w, axis, uAxis, vAxis, sign, stride, lod int, face Face, mesh *ChunkMesh) {
	visited := make([]bool, len(mask))
	idxOf := func(uc, vc int) int { return uc + vc*du }

	for vc := 0; vc < dv; vc++ {
		for uc := 0; uc < du; uc++ {
			i := idxOf(uc, vc)
			if visited[i] || !mask[i].present {
				continue
			}
			cell := mask[i]

			width := 1
			for uc+width < du {
				j := idxOf(uc+width, vc)
				if visited[j] || !mask[j].mergeKeyEqual(cell) {
					break
				}
				width++
			}

			height := 1
		rowScan:
			for vc+height < dv {
				for k := 0; k < width; k++ {
					j := idxOf(uc+k, vc+height)
					if visited[j] || !mask[j].mergeKeyEqual(cell) {
						break rowScan
					}
				}
				height++
			}

			for hy := 0; hy < height; hy++ {
				for wx := 0; wx < width; wx++ {
					visited[idxOf(uc+wx, vc+hy)] = true
				}
			}

			emitQuad(mesh, axis, uAxis, vAxis, w, uc, vc, width, height, sign, stride, lod, face, cell)
		}
	}
}

// emitNaive emits one quad per exposed cell, used only to compute the
// reduction percentage the greedy mesher achieves over the baseline.
func emitNaive(mask []maskCell, du, dv, w, axis, uAxis, vAxis, sign, stride, lod int, face Face, mesh *ChunkMesh) {
	idxOf := func(uc, vc int) int { return uc + vc*du }
	for vc := 0; vc < dv; vc++ {
		for uc := 0; uc < du; uc++ {
			cell := mask[idxOf(uc, vc)]
			if !cell.present {
				continue
			}
			emitQuad(mesh, axis, uAxis, vAxis, w, uc, vc, 1, 1, sign, stride, lod, face, cell)
		}
	}
}

// emitQuad appends one rectangle's 4 vertices and 6 indices to mesh.
// Local coordinates are scaled back up by `stride` so LOD>0 meshes
// still occupy the chunk's full-resolution coordinate space.
func emitQuad(mesh *ChunkMesh, axis, uAxis, vAxis, w, uc, vc, width, height, sign, stride, lod int, face Face, cell maskCell) {
	base := [3]int{}
	base[axis] = w
	base[uAxis] = uc
	base[vAxis] = vc
	if sign > 0 {
		base[axis]++
	}

	corners := [4][3]int{}
	offsets := [4][2]int{{0, 0}, {width, 0}, {width, height}, {0, height}}
	for i, off := range offsets {
		p := base
		p[uAxis] += off[0]
		p[vAxis] += off[1]
		corners[i] = p
	}
	if sign < 0 {
		corners[1], corners[3] = corners[3], corners[1]
	}

	first := uint32(len(mesh.Vertices))
	for i, c := range corners {
		mesh.Vertices = append(mesh.Vertices, PackVertex(
			c[0]*stride, c[1]*stride, c[2]*stride,
			face, uint8(i), cell.ao.corner(i), cell.material, cell.colorIndex, uint8(lod),
		))
	}
	mesh.Indices = append(mesh.Indices,
		first, first+1, first+2,
		first, first+2, first+3,
	)
}

// ReductionPercent compares a greedy mesh's index count against the
// naive baseline for the same chunk/LOD.
func ReductionPercent(greedy, naive ChunkMesh) float64 {
	if len(naive.Indices) == 0 {
		return 0
	}
	return 100 * (1 - float64(len(greedy.Indices))/float64(len(naive.Indices)))
}
