package bounce

import (
	"math"
	"testing"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func dynamicSphere(position mgl64.Vec3, radius float64) *actor.RigidBody {
	return actor.NewRigidBody(actor.TransformAt(position),
		&actor.Sphere{Radius: radius}, actor.MotionTypeDynamic, 1000.0)
}

func staticBox(position mgl64.Vec3, halfExtents mgl64.Vec3) *actor.RigidBody {
	return actor.NewRigidBody(actor.TransformAt(position),
		&actor.Box{HalfExtents: halfExtents}, actor.MotionTypeStatic, 1000.0)
}

func TestCollideSphereSphere(t *testing.T) {
	bodyA := dynamicSphere(mgl64.Vec3{0, 0, 0}, 0.5)
	bodyB := dynamicSphere(mgl64.Vec3{0.8, 0, 0}, 0.5)

	result, hit := makeContact(bodyA, bodyB)
	if !hit {
		t.Fatal("overlapping spheres must collide")
	}
	if !vecAlmostEqual(result.Normal, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Errorf("normal must point from A to B, got %v", result.Normal)
	}
	if !almostEqual(result.Penetration, 0.2, 1e-9) {
		t.Errorf("expected penetration 0.2, got %v", result.Penetration)
	}
	if !vecAlmostEqual(result.Point, mgl64.Vec3{0.4, 0, 0}, 1e-9) {
		t.Errorf("expected midpoint contact, got %v", result.Point)
	}
}

func TestCollideSphereSphereSeparated(t *testing.T) {
	bodyA := dynamicSphere(mgl64.Vec3{0, 0, 0}, 0.5)
	bodyB := dynamicSphere(mgl64.Vec3{2, 0, 0}, 0.5)

	if _, hit := makeContact(bodyA, bodyB); hit {
		t.Error("separated spheres must not collide")
	}
}

func TestCollideSphereSphereConcentric(t *testing.T) {
	bodyA := dynamicSphere(mgl64.Vec3{0, 0, 0}, 0.5)
	bodyB := dynamicSphere(mgl64.Vec3{0, 0, 0}, 0.5)

	result, hit := makeContact(bodyA, bodyB)
	if !hit {
		t.Fatal("concentric spheres overlap")
	}
	if result.Normal.Len() == 0 || math.IsNaN(result.Normal.Len()) {
		t.Errorf("degenerate case needs a usable normal, got %v", result.Normal)
	}
}

func TestCollideSphereOnBox(t *testing.T) {
	// Ball resting slightly into the floor box.
	ball := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, 0.5)
	floor := staticBox(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{5, 1, 5})

	result, hit := makeContact(ball, floor)
	if !hit {
		t.Fatal("penetrating sphere must collide with the box")
	}
	// A is the sphere above the box, so A towards B points down.
	if !vecAlmostEqual(result.Normal, mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Errorf("expected downward normal, got %v", result.Normal)
	}
	if !almostEqual(result.Penetration, 0.05, 1e-9) {
		t.Errorf("expected penetration 0.05, got %v", result.Penetration)
	}
	if !vecAlmostEqual(result.Point, mgl64.Vec3{0, 0, 0}, 1e-9) {
		t.Errorf("expected contact on the box surface, got %v", result.Point)
	}
}

func TestCollideBoxOnSphereFlipsNormal(t *testing.T) {
	ball := dynamicSphere(mgl64.Vec3{0, 0.45, 0}, 0.5)
	floor := staticBox(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{5, 1, 5})

	fromSphere, _ := makeContact(ball, floor)
	fromBox, hit := makeContact(floor, ball)
	if !hit {
		t.Fatal("argument order must not change the hit")
	}
	if !vecAlmostEqual(fromBox.Normal, fromSphere.Normal.Mul(-1), 1e-9) {
		t.Errorf("swapping bodies must flip the normal: %v vs %v", fromBox.Normal, fromSphere.Normal)
	}
	if !almostEqual(fromBox.Penetration, fromSphere.Penetration, 1e-9) {
		t.Error("penetration must not depend on argument order")
	}
}

func TestCollideSphereInsideBox(t *testing.T) {
	ball := dynamicSphere(mgl64.Vec3{0, -0.2, 0}, 0.5)
	box := staticBox(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{5, 1, 5})

	result, hit := makeContact(ball, box)
	if !hit {
		t.Fatal("a sphere with its center inside the box must collide")
	}
	// Nearest face is the top: push the sphere up and out.
	if !vecAlmostEqual(result.Normal, mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Errorf("expected the nearest face normal, got %v", result.Normal)
	}
	if result.Penetration <= 0.5 {
		t.Errorf("center inside means penetration beyond the radius, got %v", result.Penetration)
	}
}

func TestCollideSphereBoxSeparated(t *testing.T) {
	ball := dynamicSphere(mgl64.Vec3{0, 5, 0}, 0.5)
	box := staticBox(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{5, 1, 5})

	if _, hit := makeContact(ball, box); hit {
		t.Error("separated sphere and box must not collide")
	}
}

func TestCollideBoxBox(t *testing.T) {
	bodyA := staticBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := actor.NewRigidBody(actor.TransformAt(mgl64.Vec3{0, 1.8, 0}),
		&actor.Box{HalfExtents: mgl64.Vec3{1, 1, 1}}, actor.MotionTypeDynamic, 1000.0)

	result, hit := makeContact(bodyA, bodyB)
	if !hit {
		t.Fatal("overlapping boxes must collide")
	}
	if !vecAlmostEqual(result.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
		t.Errorf("minimum penetration axis is +Y towards B, got %v", result.Normal)
	}
	if !almostEqual(result.Penetration, 0.2, 1e-9) {
		t.Errorf("expected penetration 0.2, got %v", result.Penetration)
	}
}

func TestCollideBoxBoxSeparated(t *testing.T) {
	bodyA := staticBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	bodyB := staticBox(mgl64.Vec3{5, 0, 0}, mgl64.Vec3{1, 1, 1})

	if _, hit := makeContact(bodyA, bodyB); hit {
		t.Error("separated boxes must not collide")
	}
}
