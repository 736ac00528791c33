package game

// InputState is the control state a peer holds for one tick. Movement bits
// are level-triggered; Dash and Shoot are pulses the network layer raises
// for exactly one application each. Yaw and Pitch carry the 3D aim and are
// ignored in 2D mode.
//
// The struct is comparable, so edge-triggered senders can use plain !=.
type InputState struct {
	Up    bool
	Down  bool
	Left  bool
	Right bool
	Dash  bool
	Shoot bool

	Yaw   float64
	Pitch float64
}

// MoveAsserted reports whether any directional control is held.
func (in InputState) MoveAsserted() bool {
	return in.Up || in.Down || in.Left || in.Right
}

// axes returns the raw 2D input axes: +X right, +Y down (screen space).
func (in InputState) axes() (dx, dy float64) {
	if in.Left {
		dx--
	}
	if in.Right {
		dx++
	}
	if in.Up {
		dy--
	}
	if in.Down {
		dy++
	}
	return dx, dy
}
