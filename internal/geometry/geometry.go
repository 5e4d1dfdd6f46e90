// Package geometry converts image pixel dimensions into the logical window
// size a scaled display expects.
package geometry

import (
	"fmt"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
)

// Size is a width/height pair in either device pixels or logical units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Scale divides both components by factor.
func (s Size) Scale(factor float64) Size {
	return Size{Width: s.Width / factor, Height: s.Height / factor}
}

// Geometry is the size pair applied to a pinned window. Physical is in device
// pixels; Logical is what the window reports and what min/max are pinned to.
type Geometry struct {
	Physical Size
	Logical  Size
}

// Compute derives window geometry from pixel dimensions. scale must be
// positive; use ScaleSource.Resolve to obtain one.
func Compute(dims imagecodec.Dimensions, scale float64) Geometry {
	physical := Size{Width: float64(dims.Width), Height: float64(dims.Height)}
	return Geometry{
		Physical: physical,
		Logical:  physical.Scale(scale),
	}
}
