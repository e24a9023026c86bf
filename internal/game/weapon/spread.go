package weapon

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/cory-johannsen/armory/internal/game/geom"
)

// SpreadDirection perturbs the forward vector of axis inside a cone of
// spreadDegrees. u1 picks the cone angle as the sine of a uniform fraction of
// the half-angle and u2 picks the roll about the aim axis; both are in [0, 1).
//
// Postcondition: spreadDegrees == 0 returns geom.Forward(axis) exactly.
func SpreadDirection(axis mgl64.Mat3, spreadDegrees, u1, u2 float64) mgl64.Vec3 {
	fwd := geom.Forward(axis)
	if spreadDegrees == 0 {
		return fwd
	}
	ang := math.Sin(mgl64.DegToRad(spreadDegrees) * u1)
	spin := 2 * math.Pi * u2
	dir := fwd.
		Add(geom.Up(axis).Mul(ang * math.Sin(spin))).
		Sub(geom.Left(axis).Mul(ang * math.Cos(spin)))
	return dir.Normalize()
}

func (w *Weapon) spreadDirection(spreadDegrees float64) mgl64.Vec3 {
	u1 := w.deps.Random.Float64()
	u2 := w.deps.Random.Float64()
	return SpreadDirection(w.playerViewAxis, spreadDegrees, u1, u2)
}
