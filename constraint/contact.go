package constraint

import (
	"math"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// RestitutionVelocityThreshold is the minimum approach speed for a bounce.
	// Slower impacts are treated as resting contact, otherwise gravity alone
	// keeps re-launching a settled body every substep.
	RestitutionVelocityThreshold = 0.5

	// PenetrationSlop is the penetration depth the position solver tolerates.
	// Correcting all the way to the surface makes resting contacts oscillate.
	PenetrationSlop = 0.002

	// PositionCorrectionFactor is the fraction of the remaining penetration
	// resolved per solve.
	PositionCorrectionFactor = 0.9

	// WakeImpulseThreshold is the velocity change above which a sleeping body
	// involved in a contact is woken up.
	WakeImpulseThreshold = 0.05
)

// Constraint is anything the solver phases can resolve.
type Constraint interface {
	SolveVelocity(dt float64)
	SolvePosition(dt float64)
}

// ComputeRestitution combines the restitution of the two materials.
func ComputeRestitution(matA, matB actor.Material) float64 {
	return math.Max(matA.Restitution, matB.Restitution)
}

// ComputeFriction combines friction coefficients by geometric mean.
func ComputeFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.Friction * matB.Friction)
}

// ContactPoint is a single contact location with its penetration depth.
type ContactPoint struct {
	Position    mgl64.Vec3
	Penetration float64
}

// ContactConstraint resolves one contact between two bodies. Normal points
// from BodyA towards BodyB. BodyA/BodyB ordering is normalized by the caller,
// so locking A then B never deadlocks across constraints.
type ContactConstraint struct {
	BodyA  *actor.RigidBody
	BodyB  *actor.RigidBody
	Normal mgl64.Vec3
	Point  ContactPoint
}

// SolveVelocity applies a restitution impulse along the contact normal and a
// Coulomb-clamped friction impulse against the tangential velocity.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	bodyA := c.BodyA
	bodyB := c.BodyB

	bodyA.Mutex.Lock()
	bodyB.Mutex.Lock()
	defer bodyA.Mutex.Unlock()
	defer bodyB.Mutex.Unlock()

	invMassA := bodyA.InverseMass()
	invMassB := bodyB.InverseMass()
	invMassSum := invMassA + invMassB
	if invMassSum < 1e-12 {
		return
	}

	relativeVel := bodyB.Velocity.Sub(bodyA.Velocity)
	normalVel := relativeVel.Dot(c.Normal)
	if normalVel > 0 {
		// Already separating
		return
	}

	restitution := ComputeRestitution(bodyA.Material, bodyB.Material)
	if -normalVel < RestitutionVelocityThreshold {
		restitution = 0
	}

	lambdaNormal := -(1.0 + restitution) * normalVel / invMassSum
	normalImpulse := c.Normal.Mul(lambdaNormal)

	bodyA.Velocity = bodyA.Velocity.Sub(normalImpulse.Mul(invMassA))
	bodyB.Velocity = bodyB.Velocity.Add(normalImpulse.Mul(invMassB))

	// Friction against the remaining tangential velocity
	friction := ComputeFriction(bodyA.Material, bodyB.Material)
	if friction > 0 {
		relativeVel = bodyB.Velocity.Sub(bodyA.Velocity)
		tangentVel := relativeVel.Sub(c.Normal.Mul(relativeVel.Dot(c.Normal)))
		tangentSpeed := tangentVel.Len()

		if tangentSpeed > 1e-6 {
			tangentDir := tangentVel.Mul(1.0 / tangentSpeed)
			lambdaTangent := -tangentSpeed / invMassSum

			// Coulomb's law: |F_friction| <= mu * |F_normal|
			maxFriction := friction * math.Abs(lambdaNormal)
			if math.Abs(lambdaTangent) > maxFriction {
				lambdaTangent = -maxFriction
			}

			frictionImpulse := tangentDir.Mul(lambdaTangent)
			bodyA.Velocity = bodyA.Velocity.Sub(frictionImpulse.Mul(invMassA))
			bodyB.Velocity = bodyB.Velocity.Add(frictionImpulse.Mul(invMassB))
		}
	}

	c.wakeOnImpulse(lambdaNormal * invMassSum)

	clampSmallVelocities(bodyA)
	clampSmallVelocities(bodyB)
}

// SolvePosition pushes the bodies apart along the normal, split by inverse
// mass. The correction does not feed back into velocities, so depenetration
// does not inject bounce energy.
func (c *ContactConstraint) SolvePosition(dt float64) {
	bodyA := c.BodyA
	bodyB := c.BodyB

	bodyA.Mutex.Lock()
	bodyB.Mutex.Lock()
	defer bodyA.Mutex.Unlock()
	defer bodyB.Mutex.Unlock()

	invMassA := bodyA.InverseMass()
	invMassB := bodyB.InverseMass()
	invMassSum := invMassA + invMassB
	if invMassSum < 1e-12 {
		return
	}

	depth := c.Point.Penetration - PenetrationSlop
	if depth <= 0 {
		return
	}

	correction := c.Normal.Mul(depth * PositionCorrectionFactor / invMassSum)

	if bodyA.Motion != actor.MotionTypeStatic {
		bodyA.Transform.Position = bodyA.Transform.Position.Sub(correction.Mul(invMassA))
		bodyA.BoundingBox = bodyA.Shape.ComputeAABB(bodyA.Transform)
	}
	if bodyB.Motion != actor.MotionTypeStatic {
		bodyB.Transform.Position = bodyB.Transform.Position.Add(correction.Mul(invMassB))
		bodyB.BoundingBox = bodyB.Shape.ComputeAABB(bodyB.Transform)
	}
}

// wakeOnImpulse wakes a sleeping body that just received a real impulse, so a
// moving body can knock a settled one back into the simulation.
func (c *ContactConstraint) wakeOnImpulse(deltaV float64) {
	if math.Abs(deltaV) < WakeImpulseThreshold {
		return
	}
	if c.BodyA.Motion == actor.MotionTypeDynamic && c.BodyA.IsSleeping {
		c.BodyA.Awake()
	}
	if c.BodyB.Motion == actor.MotionTypeDynamic && c.BodyB.IsSleeping {
		c.BodyB.Awake()
	}
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec3{0, 0, 0}
	}
}
