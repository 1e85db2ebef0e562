package bounce

import (
	"fmt"
	"math"
	"sort"

	"github.com/akmonengine/bounce/actor"
	"github.com/akmonengine/bounce/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// bodyPair references two overlapping bodies by slot index, indexA < indexB.
type bodyPair struct {
	indexA uint32
	indexB uint32
}

// contact is one accepted narrow phase result, ready for the solver.
type contact struct {
	constraint constraint.ContactConstraint
	pair       bodyPair
}

// findPairs rebuilds the moving partition and collects every potentially
// colliding pair. Sequential and index-ordered so identical inputs always
// yield identical pair lists.
func (w *World) findPairs(temp *TempAllocator) ([]bodyPair, error) {
	moving := w.grids[BroadPhaseMoving]
	moving.Clear()
	for index := range w.slots {
		slot := &w.slots[index]
		if slot.state != slotLive {
			continue
		}
		if w.table.GetBroadPhaseLayer(slot.layer) != BroadPhaseMoving {
			continue
		}
		moving.Insert(uint32(index), slot.body.BoundingBox)
	}

	pairs, err := TempAlloc[bodyPair](temp, w.settings.MaxBodyPairs)
	if err != nil {
		return nil, err
	}
	pairs = pairs[:0]

	// Per-query visit stamps; the grid reports an index once per touched cell.
	stamps, err := TempAlloc[uint32](temp, len(w.slots))
	if err != nil {
		return nil, err
	}

	var overflow error
	for index := range w.slots {
		slot := &w.slots[index]
		if slot.state != slotLive || slot.body.Motion != actor.MotionTypeDynamic {
			continue
		}

		queryIndex := uint32(index)
		stamp := queryIndex + 1

		for bp := BroadPhaseLayer(0); bp < NumBroadPhaseLayers; bp++ {
			if !w.broadPhaseFilter.ShouldCollide(slot.layer, bp) {
				continue
			}

			w.grids[bp].QueryAABB(slot.body.BoundingBox, func(otherIndex uint32) {
				if overflow != nil || otherIndex == queryIndex || stamps[otherIndex] == stamp {
					return
				}
				stamps[otherIndex] = stamp

				other := &w.slots[otherIndex]
				if other.state != slotLive {
					return
				}
				// Dynamic pairs are found from both sides; keep one.
				if other.body.Motion == actor.MotionTypeDynamic && otherIndex < queryIndex {
					return
				}
				if !w.objectFilter.ShouldCollide(slot.layer, other.layer) {
					return
				}
				if slot.body.IsSleeping && (other.body.Motion == actor.MotionTypeStatic || other.body.IsSleeping) {
					return
				}
				if !slot.body.BoundingBox.Overlaps(other.body.BoundingBox) {
					return
				}

				if len(pairs) >= w.settings.MaxBodyPairs {
					overflow = fmt.Errorf("%w: body pair limit %d reached",
						ErrCapacityExceeded, w.settings.MaxBodyPairs)
					return
				}
				indexA, indexB := queryIndex, otherIndex
				if indexB < indexA {
					indexA, indexB = indexB, indexA
				}
				pairs = append(pairs, bodyPair{indexA: indexA, indexB: indexB})
			})
		}
	}
	if overflow != nil {
		return nil, overflow
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].indexA != pairs[j].indexA {
			return pairs[i].indexA < pairs[j].indexA
		}
		return pairs[i].indexB < pairs[j].indexB
	})

	return pairs, nil
}

// generateContacts runs the narrow phase over the pair list and builds the
// constraint buffer. Shape math fans out to the workers; validation results
// are compacted sequentially so constraint order stays deterministic.
func (w *World) generateContacts(pairs []bodyPair, temp *TempAllocator, jobs *JobSystem) ([]contact, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	candidates, err := TempAlloc[contact](temp, len(pairs))
	if err != nil {
		return nil, err
	}
	accepted, err := TempAlloc[bool](temp, len(pairs))
	if err != nil {
		return nil, err
	}

	listener := w.contactListener
	jobs.ParallelFor(len(pairs), func(i int) {
		pair := pairs[i]
		bodyA := w.slots[pair.indexA].body
		bodyB := w.slots[pair.indexB].body

		result, hit := makeContact(bodyA, bodyB)
		if !hit {
			return
		}

		if listener != nil && listener.OnValidate != nil {
			verdict := listener.OnValidate(w.slots[pair.indexA].id, w.slots[pair.indexB].id,
				mgl64.Vec3{}, result)
			if verdict == ValidateReject {
				return
			}
		}

		candidates[i] = contact{
			pair: pair,
			constraint: constraint.ContactConstraint{
				BodyA:  bodyA,
				BodyB:  bodyB,
				Normal: result.Normal,
				Point:  constraint.ContactPoint{Position: result.Point, Penetration: result.Penetration},
			},
		}
		accepted[i] = true
	})

	contacts := candidates[:0]
	for i := range candidates {
		if !accepted[i] {
			continue
		}
		if len(contacts) >= w.settings.MaxContactConstraints {
			return nil, fmt.Errorf("%w: contact constraint limit %d reached",
				ErrCapacityExceeded, w.settings.MaxContactConstraints)
		}
		contacts = append(contacts, candidates[i])

		pair := candidates[i].pair
		w.events.record(w.slots[pair.indexA].id, w.slots[pair.indexB].id)
	}

	return contacts, nil
}

// makeContact dispatches to the analytic shape pair tests. The returned
// normal points from bodyA towards bodyB.
func makeContact(bodyA, bodyB *actor.RigidBody) (ContactResult, bool) {
	typeA := bodyA.Shape.Type()
	typeB := bodyB.Shape.Type()

	switch {
	case typeA == actor.ShapeTypeSphere && typeB == actor.ShapeTypeSphere:
		return collideSphereSphere(bodyA, bodyB)
	case typeA == actor.ShapeTypeSphere && typeB == actor.ShapeTypeBox:
		return collideSphereBox(bodyA, bodyB, false)
	case typeA == actor.ShapeTypeBox && typeB == actor.ShapeTypeSphere:
		return collideSphereBox(bodyB, bodyA, true)
	case typeA == actor.ShapeTypeBox && typeB == actor.ShapeTypeBox:
		return collideBoxBox(bodyA, bodyB)
	default:
		return ContactResult{}, false
	}
}

func collideSphereSphere(bodyA, bodyB *actor.RigidBody) (ContactResult, bool) {
	sphereA := bodyA.Shape.(*actor.Sphere)
	sphereB := bodyB.Shape.(*actor.Sphere)

	delta := bodyB.Transform.Position.Sub(bodyA.Transform.Position)
	distance := delta.Len()
	radiusSum := sphereA.Radius + sphereB.Radius
	if distance >= radiusSum {
		return ContactResult{}, false
	}

	normal := mgl64.Vec3{0, 1, 0}
	if distance > 1e-9 {
		normal = delta.Mul(1.0 / distance)
	}

	point := bodyA.Transform.Position.Add(normal.Mul(sphereA.Radius - (radiusSum-distance)*0.5))
	return ContactResult{
		Normal:      normal,
		Point:       point,
		Penetration: radiusSum - distance,
	}, true
}

// collideSphereBox tests the sphere body against the box body in the box's
// local frame. flip is set when the box is bodyA, so the reported normal stays
// A towards B.
func collideSphereBox(sphereBody, boxBody *actor.RigidBody, flip bool) (ContactResult, bool) {
	sphere := sphereBody.Shape.(*actor.Sphere)
	box := boxBody.Shape.(*actor.Box)

	localCenter := boxBody.Transform.Rotation.Inverse().
		Rotate(sphereBody.Transform.Position.Sub(boxBody.Transform.Position))

	closest := localCenter
	for axis := 0; axis < 3; axis++ {
		closest[axis] = math.Max(-box.HalfExtents[axis], math.Min(box.HalfExtents[axis], closest[axis]))
	}

	var localNormal mgl64.Vec3
	var penetration float64

	delta := localCenter.Sub(closest)
	distance := delta.Len()
	if distance > 1e-9 {
		// Sphere center outside the box
		if distance >= sphere.Radius {
			return ContactResult{}, false
		}
		localNormal = delta.Mul(1.0 / distance)
		penetration = sphere.Radius - distance
	} else {
		// Center inside the box; push out through the nearest face.
		minDepth := math.Inf(1)
		for axis := 0; axis < 3; axis++ {
			depth := box.HalfExtents[axis] - math.Abs(localCenter[axis])
			if depth < minDepth {
				minDepth = depth
				localNormal = mgl64.Vec3{}
				if localCenter[axis] < 0 {
					localNormal[axis] = -1
				} else {
					localNormal[axis] = 1
				}
			}
		}
		penetration = minDepth + sphere.Radius
	}

	// localNormal points box towards sphere.
	worldNormal := boxBody.Transform.Rotation.Rotate(localNormal)
	point := boxBody.Transform.Rotation.Rotate(closest).Add(boxBody.Transform.Position)

	normal := worldNormal.Mul(-1) // sphere towards box
	if flip {
		normal = worldNormal
	}
	return ContactResult{Normal: normal, Point: point, Penetration: penetration}, true
}

// collideBoxBox resolves along the minimum penetration axis of the world
// bounding boxes. Exact for the axis-aligned boxes this engine simulates;
// rotated boxes get a conservative approximation.
func collideBoxBox(bodyA, bodyB *actor.RigidBody) (ContactResult, bool) {
	boxA := bodyA.BoundingBox
	boxB := bodyB.BoundingBox
	if !boxA.Overlaps(boxB) {
		return ContactResult{}, false
	}

	var normal mgl64.Vec3
	penetration := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		overlapPos := boxA.Max[axis] - boxB.Min[axis] // push B towards +axis
		overlapNeg := boxB.Max[axis] - boxA.Min[axis] // push B towards -axis

		depth := overlapPos
		direction := 1.0
		if overlapNeg < overlapPos {
			depth = overlapNeg
			direction = -1.0
		}
		if depth < penetration {
			penetration = depth
			normal = mgl64.Vec3{}
			normal[axis] = direction
		}
	}

	overlapMin := mgl64.Vec3{
		math.Max(boxA.Min.X(), boxB.Min.X()),
		math.Max(boxA.Min.Y(), boxB.Min.Y()),
		math.Max(boxA.Min.Z(), boxB.Min.Z()),
	}
	overlapMax := mgl64.Vec3{
		math.Min(boxA.Max.X(), boxB.Max.X()),
		math.Min(boxA.Max.Y(), boxB.Max.Y()),
		math.Min(boxA.Max.Z(), boxB.Max.Z()),
	}
	point := overlapMin.Add(overlapMax).Mul(0.5)

	return ContactResult{Normal: normal, Point: point, Penetration: penetration}, true
}
