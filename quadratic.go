package hitchhike

import (
	"math"
	"sort"
)

// poly2 is c0 + c1*m + c2*m^2
type poly2 struct {
	c0, c1, c2 float64
}

func (p poly2) at(m float64) float64 {
	return p.c0 + m*(p.c1+m*p.c2)
}

func (p poly2) add(q poly2) poly2 {
	return poly2{c0: p.c0 + q.c0, c1: p.c1 + q.c1, c2: p.c2 + q.c2}
}

func (p poly2) sub(q poly2) poly2 {
	return poly2{c0: p.c0 - q.c0, c1: p.c1 - q.c1, c2: p.c2 - q.c2}
}

func (p poly2) scale(k float64) poly2 {
	return poly2{c0: p.c0 * k, c1: p.c1 * k, c2: p.c2 * k}
}

func constPoly(c float64) poly2 {
	return poly2{c0: c}
}

// positiveRoots returns strictly positive real roots of p(m) = 0 in ascending order
func (p poly2) positiveRoots() []float64 {
	roots := []float64{}
	switch {
	case p.c2 == 0 && p.c1 == 0:
		return roots
	case p.c2 == 0:
		roots = append(roots, -p.c0/p.c1)
	default:
		disc := p.c1*p.c1 - 4*p.c2*p.c0
		if disc < 0 {
			return roots
		}
		sq := math.Sqrt(disc)
		// Citardauq form avoids cancellation when c1^2 >> 4*c2*c0
		t := -0.5 * (p.c1 + math.Copysign(sq, p.c1))
		if t == 0 {
			roots = append(roots, 0)
			break
		}
		roots = append(roots, t/p.c2, p.c0/t)
	}
	out := roots[:0]
	for _, r := range roots {
		if r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r) {
			out = append(out, r)
		}
	}
	sort.Float64s(out)
	if len(out) == 2 && out[0] == out[1] {
		out = out[:1]
	}
	return out
}
