package grid

import "fmt"

type Vec2i struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (v Vec2i) String() string { return fmt.Sprintf("%d,%d", v.X, v.Y) }

// Box is an inclusive tile-aligned rectangle.
type Box struct {
	Min Vec2i `json:"min"`
	Max Vec2i `json:"max"`
}

// Around returns the square of half-width radius centred on c.
func Around(c Vec2i, radius int) Box {
	if radius < 0 {
		radius = 0
	}
	return Box{
		Min: Vec2i{X: c.X - radius, Y: c.Y - radius},
		Max: Vec2i{X: c.X + radius, Y: c.Y + radius},
	}
}

func (b Box) Contains(p Vec2i) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Cells lists every cell in row-major order.
func (b Box) Cells() []Vec2i {
	if b.Max.X < b.Min.X || b.Max.Y < b.Min.Y {
		return nil
	}
	out := make([]Vec2i, 0, (b.Max.X-b.Min.X+1)*(b.Max.Y-b.Min.Y+1))
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		for x := b.Min.X; x <= b.Max.X; x++ {
			out = append(out, Vec2i{X: x, Y: y})
		}
	}
	return out
}
