package game

import "math"

// tickDown decrements a countdown timer, clamping at zero so expired timers
// compare exactly equal to 0.
func tickDown(t *float64, dt float64) {
	*t -= dt
	if *t < 0 {
		*t = 0
	}
}

func dist(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay)
}

// within reports whether two points are at most r apart.
func within(ax, ay, bx, by, r float64) bool {
	return dist(ax, ay, bx, by) <= r
}
