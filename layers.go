package bounce

import "fmt"

// ObjectLayer classifies a body for collision filtering purposes.
type ObjectLayer uint16

// BroadPhaseLayer groups object layers into separate spatial partitions, so
// static geometry does not have to be revisited every step.
type BroadPhaseLayer uint8

// Two tiers are enough for this system: bodies either never move or they do.
// Extending to more tiers only requires growing the table.
const (
	LayerNonMoving ObjectLayer = 0
	LayerMoving    ObjectLayer = 1
	NumObjectLayers            = 2
)

const (
	BroadPhaseNonMoving BroadPhaseLayer = 0
	BroadPhaseMoving    BroadPhaseLayer = 1
	NumBroadPhaseLayers                 = 2
)

// BroadPhaseLayerTable maps every object layer to its broad phase layer. It is
// built once at configuration time and immutable afterwards; the World keeps a
// reference to it for its entire lifetime, so the table must outlive the World.
type BroadPhaseLayerTable struct {
	mapping [NumObjectLayers]BroadPhaseLayer
}

// NewBroadPhaseLayerTable returns the default two tier mapping.
func NewBroadPhaseLayerTable() *BroadPhaseLayerTable {
	t := &BroadPhaseLayerTable{}
	t.mapping[LayerNonMoving] = BroadPhaseNonMoving
	t.mapping[LayerMoving] = BroadPhaseMoving
	return t
}

// GetBroadPhaseLayer is a direct table lookup. An out of range layer is a
// programmer error, not a recoverable condition.
func (t *BroadPhaseLayerTable) GetBroadPhaseLayer(layer ObjectLayer) BroadPhaseLayer {
	if layer >= NumObjectLayers {
		panic(fmt.Sprintf("bounce: object layer %d out of range", layer))
	}
	return t.mapping[layer]
}

// NumLayers returns the number of broad phase layers in the table.
func (t *BroadPhaseLayerTable) NumLayers() int {
	return NumBroadPhaseLayers
}

// ObjectLayerPairFilter decides whether two object layers may collide.
// ShouldCollide is called on the simulation's internal workers during the
// broad and narrow phase; it must be pure, O(1) and must not allocate or
// block.
type ObjectLayerPairFilter struct {
	ShouldCollide func(a, b ObjectLayer) bool
}

// ObjectVsBroadPhaseLayerFilter decides whether an object layer needs to be
// tested against a broad phase partition at all. Same purity contract as
// ObjectLayerPairFilter.
type ObjectVsBroadPhaseLayerFilter struct {
	ShouldCollide func(layer ObjectLayer, broadPhase BroadPhaseLayer) bool
}

// DefaultObjectLayerPairFilter implements the fixed policy of this system:
// non moving bodies never collide with each other, everything else collides.
// The switch is one sided but the resulting relation is symmetric.
func DefaultObjectLayerPairFilter() ObjectLayerPairFilter {
	return ObjectLayerPairFilter{
		ShouldCollide: func(a, b ObjectLayer) bool {
			switch a {
			case LayerNonMoving:
				return b == LayerMoving
			case LayerMoving:
				return true
			default:
				panic(fmt.Sprintf("bounce: object layer %d out of range", a))
			}
		},
	}
}

// DefaultObjectVsBroadPhaseLayerFilter mirrors DefaultObjectLayerPairFilter
// against the broad phase partitions.
func DefaultObjectVsBroadPhaseLayerFilter() ObjectVsBroadPhaseLayerFilter {
	return ObjectVsBroadPhaseLayerFilter{
		ShouldCollide: func(layer ObjectLayer, broadPhase BroadPhaseLayer) bool {
			switch layer {
			case LayerNonMoving:
				return broadPhase == BroadPhaseMoving
			case LayerMoving:
				return true
			default:
				panic(fmt.Sprintf("bounce: object layer %d out of range", layer))
			}
		},
	}
}
