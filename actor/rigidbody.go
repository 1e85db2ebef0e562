package actor

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// MotionType represents how a rigid body participates in the simulation.
type MotionType int

const (
	// MotionTypeDynamic bodies integrate under gravity and collision impulses.
	MotionTypeDynamic MotionType = iota

	// MotionTypeStatic bodies never move and have infinite mass
	// (e.g., ground, walls). They are excluded from integration.
	MotionTypeStatic
)

// Material holds the physical surface properties of a body.
type Material struct {
	Density     float64
	mass        float64
	Restitution float64 // 0 = no rebound, 1 = perfect restitution
	Friction    float64 // Coulomb friction coefficient
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody is a simulated rigid entity with linear motion. Orientation is
// carried in the pose but not integrated; the consumers of this engine only
// read positions.
type RigidBody struct {
	// Mutex serializes solver access when constraints touching the same body
	// are resolved on different workers.
	Mutex sync.Mutex

	PreviousTransform Transform
	Transform         Transform

	// PresolveVelocity is the velocity right after integration, before any
	// contact impulse. Restitution targets are computed against it.
	PresolveVelocity mgl64.Vec3
	Velocity         mgl64.Vec3 // linear velocity (m/s)

	IsSleeping bool
	SleepTimer float64

	Material Material
	Motion   MotionType

	Shape Shape
	// BoundingBox is the cached world-space AABB, refreshed on integration
	// and whenever the body is moved explicitly.
	BoundingBox AABB
}

// NewRigidBody creates a rigid body with the given pose and shape. Density is
// used to compute mass for dynamic bodies and ignored for static ones.
func NewRigidBody(transform Transform, shape Shape, motion MotionType, density float64) *RigidBody {
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		Motion:            motion,
	}

	if motion == MotionTypeStatic {
		rb.Material = Material{
			Density:  0,
			mass:     math.Inf(1),
			Friction: 0.5,
		}
	} else {
		rb.Material = Material{
			Density:     density,
			mass:        shape.ComputeMass(density),
			Restitution: 0.0,
			Friction:    0.2,
		}
	}

	rb.BoundingBox = shape.ComputeAABB(transform)
	return rb
}

// InverseMass is zero for static bodies so they never move under impulses.
func (rb *RigidBody) InverseMass() float64 {
	if rb.Motion == MotionTypeStatic {
		return 0
	}
	return 1.0 / rb.Material.mass
}

// Integrate advances velocity and position by dt under gravity and refreshes
// the bounding box. Static and sleeping bodies are skipped.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	if rb.Motion == MotionTypeStatic || rb.IsSleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	rb.Velocity = rb.Velocity.Add(gravity.Mul(dt))
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))
	rb.PresolveVelocity = rb.Velocity

	rb.BoundingBox = rb.Shape.ComputeAABB(rb.Transform)
}

// TrySleep deactivates the body once its speed stays below velocityThreshold
// for timeThreshold seconds. Any faster motion resets the timer.
func (rb *RigidBody) TrySleep(dt float64, timeThreshold float64, velocityThreshold float64) {
	if rb.Motion == MotionTypeStatic || rb.IsSleeping {
		return
	}

	if rb.Velocity.Len() < velocityThreshold {
		rb.SleepTimer += dt
		if rb.SleepTimer >= timeThreshold {
			rb.Sleep()
		}
	} else {
		rb.SleepTimer = 0.0
	}
}

// Sleep deactivates the body: velocity is zeroed and integration skips it
// until Awake is called.
func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0
	rb.Velocity = mgl64.Vec3{}
	rb.PresolveVelocity = mgl64.Vec3{}
	rb.BoundingBox = rb.Shape.ComputeAABB(rb.Transform)
}

// Awake reactivates the body.
func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}
