package wire

import "github.com/mpatti/flagdash/game"

// Input bitmask layout. Dash and Shoot are one-shot pulse bits: the sender
// raises them for a single input message and the host clears its stored
// copy after applying them once.
const (
	InUp uint8 = 1 << iota
	InDown
	InLeft
	InRight
	InDash
	InShoot
)

// inputMask strips unknown bits so malformed or future encodings decode to
// something harmless instead of erroring.
const inputMask = InUp | InDown | InLeft | InRight | InDash | InShoot

// PackInput encodes held controls for the wire. The caller stamps T.
func PackInput(in game.InputState) Input {
	var b uint8
	if in.Up {
		b |= InUp
	}
	if in.Down {
		b |= InDown
	}
	if in.Left {
		b |= InLeft
	}
	if in.Right {
		b |= InRight
	}
	if in.Dash {
		b |= InDash
	}
	if in.Shoot {
		b |= InShoot
	}
	return Input{
		Bits:  b,
		Yaw:   scaleAngle(in.Yaw),
		Pitch: scaleAngle(in.Pitch),
	}
}

// PackShoot encodes an aim direction. Magnitude does not matter on the
// wire, the host renormalizes.
func PackShoot(dx, dy, dh float64) Shoot {
	return Shoot{DX: scaleAngle(dx), DY: scaleAngle(dy), DH: scaleAngle(dh)}
}

// State decodes the message back into simulation input.
func (m Input) State() game.InputState {
	b := m.Bits & inputMask
	return game.InputState{
		Up:    b&InUp != 0,
		Down:  b&InDown != 0,
		Left:  b&InLeft != 0,
		Right: b&InRight != 0,
		Dash:  b&InDash != 0,
		Shoot: b&InShoot != 0,
		Yaw:   unscaleAngle(m.Yaw),
		Pitch: unscaleAngle(m.Pitch),
	}
}
