package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Forward returns the forward vector of axis.
func Forward(axis mgl64.Mat3) mgl64.Vec3 { return axis.Col(0) }

// Left returns the left vector of axis.
func Left(axis mgl64.Mat3) mgl64.Vec3 { return axis.Col(1) }

// Up returns the up vector of axis.
func Up(axis mgl64.Mat3) mgl64.Vec3 { return axis.Col(2) }

// AnglesToAxis converts pitch, yaw and roll in degrees to an axis. Yaw turns
// about up, pitch about left and roll about forward; positive pitch looks down.
func AnglesToAxis(angles mgl64.Vec3) mgl64.Mat3 {
	pitch := mgl64.DegToRad(angles[0])
	yaw := mgl64.DegToRad(angles[1])
	roll := mgl64.DegToRad(angles[2])
	return mgl64.Rotate3DZ(yaw).Mul3(mgl64.Rotate3DY(pitch)).Mul3(mgl64.Rotate3DX(roll))
}

// DirToAngles returns the pitch and yaw, in degrees, that look along dir.
// Roll is always zero.
func DirToAngles(dir mgl64.Vec3) mgl64.Vec3 {
	yaw := math.Atan2(dir.Y(), dir.X())
	pitch := -math.Atan2(dir.Z(), math.Hypot(dir.X(), dir.Y()))
	return mgl64.Vec3{mgl64.RadToDeg(pitch), mgl64.RadToDeg(yaw), 0}
}

// AxisFromForward builds an orthonormal axis whose forward column is fwd.
//
// Precondition: fwd must be non-zero.
func AxisFromForward(fwd mgl64.Vec3) mgl64.Mat3 {
	f := fwd.Normalize()
	ref := mgl64.Vec3{0, 0, 1}
	if math.Abs(f.Dot(ref)) > 0.999 {
		ref = mgl64.Vec3{1, 0, 0}
	}
	left := ref.Cross(f).Normalize()
	up := f.Cross(left)
	return mgl64.Mat3FromCols(f, left, up)
}

// LocalToWorld maps a point given in axis space onto world space around origin.
func LocalToWorld(origin mgl64.Vec3, axis mgl64.Mat3, local mgl64.Vec3) mgl64.Vec3 {
	return origin.Add(axis.Mul3x1(local))
}
