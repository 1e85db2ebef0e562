package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform is the pose of a body: position and orientation in world space.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform.
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// TransformAt returns an identity-orientation transform at the given position.
func TransformAt(position mgl64.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl64.QuatIdent(),
	}
}
