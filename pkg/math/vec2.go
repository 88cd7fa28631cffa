// Package math provides the small amount of 2D geometry the world map needs
// in render space.
package math

import "math"

// Vec2 is a 2D point or vector in render space.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return float32(math.Hypot(float64(v.X), float64(v.Y)))
}

// FlipY mirrors the point across the horizontal axis. Save files store Y
// growing downwards; render space grows upwards.
func (v Vec2) FlipY() Vec2 {
	return Vec2{v.X, -v.Y}
}
