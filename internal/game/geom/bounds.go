// Package geom holds the small amount of 3D math shared by the weapon core
// and the reference world: axis-aligned bounds, ray tests and view axes.
//
// Axes are stored column-wise: column 0 is forward, column 1 is left and
// column 2 is up.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Bounds is an axis-aligned box.
//
// Invariant: a non-empty Bounds has Min[i] <= Max[i] on every axis.
type Bounds struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// NewBounds returns the box spanning min and max.
func NewBounds(min, max mgl64.Vec3) Bounds {
	return Bounds{Min: min, Max: max}
}

// Cube returns a box centred on the origin with the given half extent.
func Cube(half float64) Bounds {
	return Bounds{
		Min: mgl64.Vec3{-half, -half, -half},
		Max: mgl64.Vec3{half, half, half},
	}
}

// IsEmpty reports whether the box is inverted on any axis.
func (b Bounds) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Center returns the midpoint of the box.
func (b Bounds) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent of the box on each axis.
func (b Bounds) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

// Translate moves the box by v.
func (b Bounds) Translate(v mgl64.Vec3) Bounds {
	return Bounds{Min: b.Min.Add(v), Max: b.Max.Add(v)}
}

// Expand grows the box by d on every side.
func (b Bounds) Expand(d float64) Bounds {
	e := mgl64.Vec3{d, d, d}
	return Bounds{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Shrink returns the Minkowski difference of b and o: the region a box of
// shape o may occupy with its origin while staying inside b.
func (b Bounds) Shrink(o Bounds) Bounds {
	return Bounds{Min: b.Min.Sub(o.Min), Max: b.Max.Sub(o.Max)}
}

// Grow returns the Minkowski sum of b and o.
func (b Bounds) Grow(o Bounds) Bounds {
	return Bounds{Min: b.Min.Add(o.Min), Max: b.Max.Add(o.Max)}
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether two boxes overlap.
func (b Bounds) Intersects(o Bounds) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || b.Min[i] > o.Max[i] {
			return false
		}
	}
	return true
}

// RayIntersection returns the scale s at which start+s*dir first enters the
// box. A start inside the box reports s == 0. dir need not be normalized.
//
// Postcondition: ok is false when the ray misses the box or the box is empty.
func (b Bounds) RayIntersection(start, dir mgl64.Vec3) (scale float64, ok bool) {
	if b.IsEmpty() {
		return 0, false
	}
	if b.Contains(start) {
		return 0, true
	}
	tmin, tmax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if start[i] < b.Min[i] || start[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		t1 := (b.Min[i] - start[i]) / dir[i]
		t2 := (b.Max[i] - start[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// SegmentIntersection clips the segment start..end against the box.
// It returns the entry fraction along the segment and the outward normal of
// the face that was hit.
//
// Postcondition: ok is false when the segment misses, starts inside, or the box is empty.
func (b Bounds) SegmentIntersection(start, end mgl64.Vec3) (fraction float64, normal mgl64.Vec3, ok bool) {
	if b.IsEmpty() || b.Contains(start) {
		return 0, mgl64.Vec3{}, false
	}
	dir := end.Sub(start)
	tmin, tmax := 0.0, 1.0
	axis, sign := -1, 0.0
	for i := 0; i < 3; i++ {
		if math.Abs(dir[i]) < 1e-12 {
			if start[i] < b.Min[i] || start[i] > b.Max[i] {
				return 0, mgl64.Vec3{}, false
			}
			continue
		}
		t1 := (b.Min[i] - start[i]) / dir[i]
		t2 := (b.Max[i] - start[i]) / dir[i]
		s := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			s = 1.0
		}
		if t1 > tmin {
			tmin, axis, sign = t1, i, s
		}
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, mgl64.Vec3{}, false
		}
	}
	if axis < 0 {
		return 0, mgl64.Vec3{}, false
	}
	normal[axis] = sign
	return tmin, normal, true
}
