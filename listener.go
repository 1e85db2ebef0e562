package bounce

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
)

// ValidateResult is the verdict of a ContactListener.OnValidate callback.
type ValidateResult int

const (
	// ValidateAccept lets the contact be created.
	ValidateAccept ValidateResult = iota
	// ValidateReject vetoes the contact before a constraint exists. Using
	// layers to keep objects apart is cheaper; the veto is for dynamic
	// decisions the layer table cannot express.
	ValidateReject
)

// ContactResult carries the narrow phase output handed to OnValidate.
type ContactResult struct {
	Normal      mgl64.Vec3 // from body A towards body B
	Point       mgl64.Vec3
	Penetration float64
}

// ContactListener observes the contact lifecycle. All callbacks are invoked
// from the simulation's internal workers while Step runs: implementations
// must be thread-safe, must not block, and must not mutate body state
// synchronously (doing so risks deadlock against the solver's body locks).
// Nil function fields are skipped.
type ContactListener struct {
	// OnValidate is called before a contact constraint is created and may
	// veto it.
	OnValidate func(bodyA, bodyB BodyID, baseOffset mgl64.Vec3, result ContactResult) ValidateResult

	OnAdded     func(bodyA, bodyB BodyID)
	OnPersisted func(bodyA, bodyB BodyID)
	OnRemoved   func(bodyA, bodyB BodyID)
}

// BodyActivationListener observes bodies waking up and going to sleep. Same
// threading contract as ContactListener.
type BodyActivationListener struct {
	OnActivated   func(body BodyID, userData uint64)
	OnDeactivated func(body BodyID, userData uint64)
}

// NewLoggingContactListener returns a listener that only emits log lines.
// slog handlers are safe for concurrent use, which is all the threading
// contract asks for. A nil logger selects slog.Default().
func NewLoggingContactListener(log *slog.Logger) *ContactListener {
	if log == nil {
		log = slog.Default()
	}
	return &ContactListener{
		OnValidate: func(bodyA, bodyB BodyID, baseOffset mgl64.Vec3, result ContactResult) ValidateResult {
			log.Debug("contact validate", "bodyA", bodyA, "bodyB", bodyB, "penetration", result.Penetration)
			return ValidateAccept
		},
		OnAdded: func(bodyA, bodyB BodyID) {
			log.Info("contact added", "bodyA", bodyA, "bodyB", bodyB)
		},
		OnPersisted: func(bodyA, bodyB BodyID) {
			log.Debug("contact persisted", "bodyA", bodyA, "bodyB", bodyB)
		},
		OnRemoved: func(bodyA, bodyB BodyID) {
			log.Info("contact removed", "bodyA", bodyA, "bodyB", bodyB)
		},
	}
}

// NewLoggingBodyActivationListener returns an activation listener that only
// emits log lines. A nil logger selects slog.Default().
func NewLoggingBodyActivationListener(log *slog.Logger) *BodyActivationListener {
	if log == nil {
		log = slog.Default()
	}
	return &BodyActivationListener{
		OnActivated: func(body BodyID, userData uint64) {
			log.Info("body activated", "body", body)
		},
		OnDeactivated: func(body BodyID, userData uint64) {
			log.Info("body went to sleep", "body", body)
		},
	}
}
