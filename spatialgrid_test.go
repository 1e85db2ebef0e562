package bounce

import (
	"testing"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func boxAt(center mgl64.Vec3, halfExtent float64) actor.AABB {
	extents := mgl64.Vec3{halfExtent, halfExtent, halfExtent}
	return actor.AABB{Min: center.Sub(extents), Max: center.Add(extents)}
}

func queryIndices(grid *SpatialGrid, box actor.AABB) map[uint32]bool {
	found := make(map[uint32]bool)
	grid.QueryAABB(box, func(index uint32) {
		found[index] = true
	})
	return found
}

func TestSpatialGridQueryFindsInserted(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	grid.Insert(0, boxAt(mgl64.Vec3{0, 0, 0}, 0.5))
	grid.Insert(1, boxAt(mgl64.Vec3{10, 0, 0}, 0.5))

	found := queryIndices(grid, boxAt(mgl64.Vec3{0.5, 0, 0}, 1.0))

	if !found[0] {
		t.Error("expected to find index 0 near the origin")
	}
}

func TestSpatialGridQueryFarAway(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	grid.Insert(0, boxAt(mgl64.Vec3{0, 0, 0}, 0.5))

	found := queryIndices(grid, boxAt(mgl64.Vec3{100, 100, 100}, 1.0))

	// Hash collisions may report false positives; the origin cell itself must
	// not be in the queried range.
	if len(found) > 0 && found[0] {
		minCell := grid.worldToCell(mgl64.Vec3{99, 99, 99})
		origin := grid.worldToCell(mgl64.Vec3{0, 0, 0})
		if minCell != origin {
			t.Log("index 0 reported through a hash collision, callers re-test AABBs")
		}
	}
}

func TestSpatialGridLargeBodySpansCells(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	// Spans many cells, like the floor box.
	grid.Insert(7, boxAt(mgl64.Vec3{0, 0, 0}, 5.0))

	for _, corner := range []mgl64.Vec3{{4, 4, 4}, {-4, -4, -4}, {4, -4, 4}} {
		found := queryIndices(grid, boxAt(corner, 0.5))
		if !found[7] {
			t.Errorf("expected to find the spanning body near %v", corner)
		}
	}
}

func TestSpatialGridClear(t *testing.T) {
	grid := NewSpatialGrid(2.0, 64)
	grid.Insert(0, boxAt(mgl64.Vec3{0, 0, 0}, 0.5))

	grid.Clear()

	if found := queryIndices(grid, boxAt(mgl64.Vec3{0, 0, 0}, 1.0)); len(found) != 0 {
		t.Errorf("cleared grid should be empty, found %v", found)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 2, want: 2},
		{in: 3, want: 4},
		{in: 1000, want: 1024},
		{in: 1024, want: 1024},
	}

	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
