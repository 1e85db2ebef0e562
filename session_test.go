package bounce

import (
	"errors"
	"testing"

	"github.com/akmonengine/bounce/actor"
	"github.com/go-gl/mathgl/mgl64"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	session, err := NewSession()
	if err != nil {
		t.Fatalf("session init failed: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func TestSessionSingleInstance(t *testing.T) {
	session := newTestSession(t)

	if _, err := NewSession(); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("second live session must be refused, got %v", err)
	}

	session.Close()
	next, err := NewSession()
	if err != nil {
		t.Fatalf("session after close must succeed: %v", err)
	}
	next.Close()
}

func TestSessionCloseIdempotent(t *testing.T) {
	session := newTestSession(t)
	session.Close()
	session.Close()
}

func TestSessionNewWorldAfterClose(t *testing.T) {
	session := newTestSession(t)
	session.Close()

	if _, err := session.NewWorld(); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestSessionCloseShutsDownWorlds(t *testing.T) {
	session := newTestSession(t)
	world, err := session.NewWorld()
	if err != nil {
		t.Fatalf("world creation failed: %v", err)
	}
	if err := world.Configure(testSettings(), NewBroadPhaseLayerTable(),
		DefaultObjectLayerPairFilter(), DefaultObjectVsBroadPhaseLayerFilter()); err != nil {
		t.Fatalf("configure failed: %v", err)
	}

	session.Close()

	_, err = world.AddDynamicBody(actor.SphereSettings{Radius: 0.5},
		actor.TransformAt(mgl64.Vec3{0, 10, 0}), mgl64.Vec3{}, 0.5)
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("operations after teardown must fail, got %v", err)
	}
}

func TestSessionConfigureAfterClose(t *testing.T) {
	session := newTestSession(t)
	world, err := session.NewWorld()
	if err != nil {
		t.Fatalf("world creation failed: %v", err)
	}

	session.Close()

	err = world.Configure(testSettings(), NewBroadPhaseLayerTable(),
		DefaultObjectLayerPairFilter(), DefaultObjectVsBroadPhaseLayerFilter())
	if !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("expected ErrInvalidOrdering, got %v", err)
	}
}

func TestShapeFactoryRegistration(t *testing.T) {
	session := newTestSession(t)

	if err := session.requireRegistered(actor.ShapeTypeSphere); err != nil {
		t.Errorf("sphere should be registered: %v", err)
	}
	if err := session.requireRegistered(actor.ShapeTypeBox); err != nil {
		t.Errorf("box should be registered: %v", err)
	}
	if err := session.requireRegistered(actor.ShapeType(99)); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("unknown shape type must be refused, got %v", err)
	}

	session.Close()
	if err := session.requireRegistered(actor.ShapeTypeSphere); !errors.Is(err, ErrInvalidOrdering) {
		t.Errorf("closed session must refuse lookups, got %v", err)
	}
}
