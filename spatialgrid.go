package bounce

import (
	"math"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// cellKey addresses a cell in the infinite 3D grid.
type cellKey struct {
	X, Y, Z int
}

// SpatialGrid is a uniform hashed grid used as a broad phase partition. Each
// broad phase layer gets its own grid, so the static partition is built once
// and never revisited while the moving partition is rebuilt every substep.
type SpatialGrid struct {
	cellSize float64
	cells    [][]uint32
	cellMask int
}

// NewSpatialGrid creates a grid; numCells is rounded up to a power of two so
// cell hashing stays a mask.
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([][]uint32, numCells)
	for i := range cells {
		cells[i] = make([]uint32, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Clear empties every cell, keeping the backing storage.
func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i] = sg.cells[i][:0]
	}
}

// Insert registers a body index in every cell its AABB touches.
func (sg *SpatialGrid) Insert(index uint32, box actor.AABB) {
	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				idx := sg.hashCell(cellKey{x, y, z})
				sg.cells[idx] = append(sg.cells[idx], index)
			}
		}
	}
}

// QueryAABB visits every body index registered in cells overlapping the box.
// Indices spanning several cells are visited more than once; callers dedupe.
func (sg *SpatialGrid) QueryAABB(box actor.AABB, visit func(index uint32)) {
	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				for _, index := range sg.cells[sg.hashCell(cellKey{x, y, z})] {
					visit(index)
				}
			}
		}
	}
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) cellKey {
	return cellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key cellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
