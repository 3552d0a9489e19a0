// Package camera provides the fly camera and view frustum used for culling
// and frame parameters.
package camera

import (
	"github.com/chewxy/math32"

	"helix3d/internal/math3d"
)

// Camera is a yaw/pitch fly camera. Angles are in degrees.
type Camera struct {
	Position math3d.Vec3
	Yaw      float32
	Pitch    float32

	FovY float32 // vertical field of view, degrees
	Near float32
	Far  float32

	MoveSpeed float32 // units per second
	LookSpeed float32 // degrees per pixel
}

// New returns a camera at pos looking toward the scene origin area.
func New(pos math3d.Vec3) *Camera {
	return &Camera{
		Position:  pos,
		Yaw:       -135,
		Pitch:     -30,
		FovY:      60,
		Near:      0.1,
		Far:       1000,
		MoveSpeed: 8,
		LookSpeed: 0.1,
	}
}

// Look applies a mouse delta in pixels, clamping pitch short of the poles.
func (c *Camera) Look(dx, dy float32) {
	c.Yaw += dx * c.LookSpeed
	c.Pitch -= dy * c.LookSpeed
	c.Pitch = math3d.Clamp(c.Pitch, -89, 89)
}

// Move translates along the view basis: x strafes, y lifts, z advances.
func (c *Camera) Move(x, y, z, dt float32) {
	fwd := c.Forward()
	right := c.Right()
	delta := fwd.Scale(z).Add(right.Scale(x)).Add(math3d.Up.Scale(y))
	if delta.LengthSq() > 1 {
		delta = delta.Normalize()
	}
	c.Position = c.Position.Add(delta.Scale(c.MoveSpeed * dt))
}

// Forward returns the unit view direction.
func (c *Camera) Forward() math3d.Vec3 {
	yaw := c.Yaw * math32.Pi / 180
	pitch := c.Pitch * math32.Pi / 180
	return math3d.Vec3{
		X: math32.Cos(pitch) * math32.Cos(yaw),
		Y: math32.Sin(pitch),
		Z: math32.Cos(pitch) * math32.Sin(yaw),
	}
}

// Right returns the unit strafe direction on the horizontal plane.
func (c *Camera) Right() math3d.Vec3 {
	return c.Forward().Cross(math3d.Up).Normalize()
}

// View returns the view matrix.
func (c *Camera) View() math3d.Mat4 {
	return math3d.Mat4LookAt(c.Position, c.Position.Add(c.Forward()), math3d.Up)
}

// Projection returns the perspective projection for the aspect ratio.
func (c *Camera) Projection(aspect float32) math3d.Mat4 {
	return math3d.Mat4Perspective(c.FovY*math32.Pi/180, aspect, c.Near, c.Far)
}

// ViewProjection returns projection × view, the matrix shaders consume.
func (c *Camera) ViewProjection(aspect float32) math3d.Mat4 {
	return c.Projection(aspect).Mul(c.View())
}
