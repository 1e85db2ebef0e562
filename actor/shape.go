package actor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType identifies the kind of collision shape.
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	default:
		return fmt.Sprintf("shape(%d)", int(t))
	}
}

// ErrShapeConstruction reports invalid geometry parameters. The shape is not
// created; the caller decides whether to abort or retry with fixed values.
var ErrShapeConstruction = errors.New("actor: shape construction failed")

// Shape is the interface all collision shapes implement.
type Shape interface {
	Type() ShapeType
	// ComputeAABB calculates the axis-aligned bounding box for the shape at
	// the given transform.
	ComputeAABB(transform Transform) AABB
	// ComputeMass calculates the mass of the shape given a density.
	ComputeMass(density float64) float64
}

// ShapeSettings describes a shape before it exists. Create validates the
// parameters and instantiates the shape, failing with ErrShapeConstruction on
// degenerate geometry.
type ShapeSettings interface {
	Create() (Shape, error)
}

// SphereSettings describes a sphere by its radius.
type SphereSettings struct {
	Radius float64
}

func (s SphereSettings) Create() (Shape, error) {
	if !(s.Radius > 0) || math.IsInf(s.Radius, 1) {
		return nil, fmt.Errorf("%w: sphere radius %v must be positive and finite", ErrShapeConstruction, s.Radius)
	}
	return &Sphere{Radius: s.Radius}, nil
}

// BoxSettings describes a box by its half extents.
type BoxSettings struct {
	HalfExtents mgl64.Vec3
}

func (s BoxSettings) Create() (Shape, error) {
	for i := 0; i < 3; i++ {
		if !(s.HalfExtents[i] > 0) || math.IsInf(s.HalfExtents[i], 1) {
			return nil, fmt.Errorf("%w: box half extents %v must be positive and finite", ErrShapeConstruction, s.HalfExtents)
		}
	}
	return &Box{HalfExtents: s.HalfExtents}, nil
}

// Sphere is a spherical collision shape.
type Sphere struct {
	Radius float64
}

func (s *Sphere) Type() ShapeType { return ShapeTypeSphere }

// ComputeAABB is unaffected by rotation, only by position.
func (s *Sphere) ComputeAABB(transform Transform) AABB {
	radiusVec := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{
		Min: transform.Position.Sub(radiusVec),
		Max: transform.Position.Add(radiusVec),
	}
}

// ComputeMass uses the sphere volume (4/3)*pi*r^3.
func (s *Sphere) ComputeMass(density float64) float64 {
	volume := (4.0 / 3.0) * math.Pi * math.Pow(s.Radius, 3)
	return density * volume
}

// Box is a box collision shape defined by its half extents.
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Type() ShapeType { return ShapeTypeBox }

// ComputeAABB transforms the eight corners and takes the extremes, so rotated
// boxes stay fully enclosed.
func (b *Box) ComputeAABB(transform Transform) AABB {
	hx, hy, hz := b.HalfExtents.X(), b.HalfExtents.Y(), b.HalfExtents.Z()
	corners := [8]mgl64.Vec3{
		{-hx, -hy, -hz}, {+hx, -hy, -hz}, {-hx, +hy, -hz}, {+hx, +hy, -hz},
		{-hx, -hy, +hz}, {+hx, -hy, +hz}, {-hx, +hy, +hz}, {+hx, +hy, +hz},
	}

	world := transform.Rotation.Rotate(corners[0]).Add(transform.Position)
	box := AABB{Min: world, Max: world}
	for i := 1; i < 8; i++ {
		world = transform.Rotation.Rotate(corners[i]).Add(transform.Position)
		for axis := 0; axis < 3; axis++ {
			box.Min[axis] = math.Min(box.Min[axis], world[axis])
			box.Max[axis] = math.Max(box.Max[axis], world[axis])
		}
	}
	return box
}

// ComputeMass uses the full box volume 8*hx*hy*hz.
func (b *Box) ComputeMass(density float64) float64 {
	volume := 8.0 * b.HalfExtents.X() * b.HalfExtents.Y() * b.HalfExtents.Z()
	return density * volume
}
