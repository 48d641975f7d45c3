package grapple

import "sort"

// MonotonicInterpolant is a monotone cubic interpolant over a set of
// knots (Fritsch-Carlson). Preview offset math uses one per axis so that
// an anchor sliding from 0 to 1 moves the preview smoothly without
// overshooting past either end knot.
type MonotonicInterpolant struct {
	xs  []float64
	ys  []float64
	c1s []float64
	c2s []float64
	c3s []float64
}

// NewMonotonicInterpolant builds an interpolant through the given knots.
// xs and ys must have equal length; at least two knots are required.
func NewMonotonicInterpolant(xs, ys []float64) *MonotonicInterpolant {
	if len(xs) != len(ys) {
		panic("grapple: interpolant knot lists differ in length")
	}
	if len(xs) < 2 {
		panic("grapple: interpolant needs at least two knots")
	}

	indexes := make([]int, len(xs))
	for i := range indexes {
		indexes[i] = i
	}
	sort.Slice(indexes, func(a, b int) bool { return xs[indexes[a]] < xs[indexes[b]] })

	sortedXs := make([]float64, len(xs))
	sortedYs := make([]float64, len(ys))
	for i, idx := range indexes {
		sortedXs[i] = xs[idx]
		sortedYs[i] = ys[idx]
	}

	// Consecutive differences and secant slopes.
	dxs := make([]float64, len(sortedXs)-1)
	ms := make([]float64, len(sortedXs)-1)
	for i := range dxs {
		dxs[i] = sortedXs[i+1] - sortedXs[i]
		ms[i] = (sortedYs[i+1] - sortedYs[i]) / dxs[i]
	}

	// Degree-1 coefficients; zeroed at local extrema so the curve never
	// overshoots a knot.
	c1s := make([]float64, 0, len(sortedXs))
	c1s = append(c1s, ms[0])
	for i := 0; i < len(dxs)-1; i++ {
		m, mNext := ms[i], ms[i+1]
		if m*mNext <= 0 {
			c1s = append(c1s, 0)
			continue
		}
		dx, dxNext := dxs[i], dxs[i+1]
		common := dx + dxNext
		c1s = append(c1s, 3*common/((common+dxNext)/m+(common+dx)/mNext))
	}
	c1s = append(c1s, ms[len(ms)-1])

	// Degree-2 and degree-3 coefficients.
	c2s := make([]float64, len(c1s)-1)
	c3s := make([]float64, len(c1s)-1)
	for i := range c2s {
		c1, m := c1s[i], ms[i]
		invDx := 1 / dxs[i]
		common := c1 + c1s[i+1] - m - m
		c2s[i] = (m - c1 - common) * invDx
		c3s[i] = common * invDx * invDx
	}

	return &MonotonicInterpolant{xs: sortedXs, ys: sortedYs, c1s: c1s, c2s: c2s, c3s: c3s}
}

// Interpolate evaluates the curve at x. Exact knots return their knot
// value; values outside the knot range follow the end segments.
func (mi *MonotonicInterpolant) Interpolate(x float64) float64 {
	last := len(mi.xs) - 1
	if x == mi.xs[last] {
		return mi.ys[last]
	}

	// Binary search for the rightmost segment starting at or before x.
	low, high := 0, len(mi.c3s)-1
	for low <= high {
		mid := (low + high) / 2
		if mi.xs[mid] < x {
			low = mid + 1
		} else if mi.xs[mid] > x {
			high = mid - 1
		} else {
			return mi.ys[mid]
		}
	}
	i := high
	if i < 0 {
		i = 0
	}

	diff := x - mi.xs[i]
	diffSq := diff * diff
	return mi.ys[i] + mi.c1s[i]*diff + mi.c2s[i]*diffSq + mi.c3s[i]*diff*diffSq
}
