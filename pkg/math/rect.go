package math

// Rect is an axis-aligned rectangle with Min <= Max on both axes.
type Rect struct {
	Min, Max Vec2
}

// NewRect builds a rectangle from two opposite corners in any order.
func NewRect(x0, y0, x1, y1 float32) Rect {
	return Rect{
		Min: Vec2{min(x0, x1), min(y0, y1)},
		Max: Vec2{max(x0, x1), max(y0, y1)},
	}
}

// Width returns the horizontal extent.
func (r Rect) Width() float32 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent.
func (r Rect) Height() float32 {
	return r.Max.Y - r.Min.Y
}

// Center returns the midpoint.
func (r Rect) Center() Vec2 {
	return Vec2{(r.Min.X + r.Max.X) / 2, (r.Min.Y + r.Max.Y) / 2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Union returns the smallest rectangle covering both r and other.
func (r Rect) Union(other Rect) Rect {
	return Rect{
		Min: Vec2{min(r.Min.X, other.Min.X), min(r.Min.Y, other.Min.Y)},
		Max: Vec2{max(r.Max.X, other.Max.X), max(r.Max.Y, other.Max.Y)},
	}
}
