package game

import "math"

// Yaw convention: 0 faces screen-up (-Y), positive turns clockwise, so
// +pi/2 faces +X. Matches the 2D facing directions at the four cardinals.
const (
	yawRight = math.Pi / 2
	yawLeft  = -math.Pi / 2
)

// UpdatePlayer advances one player's kinematics by dt under the given
// input. It runs on the host for every player and on each client for its
// own predicted player, so it must stay deterministic for identical
// (state, input, dt).
func (w *World) UpdatePlayer(p *Player, in InputState, dt float64) {
	if p.State == LifeDead {
		tickDown(&p.RespawnTimer, dt)
		p.VX, p.VY = 0, 0
		return
	}

	tickDown(&p.DashCooldown, dt)
	tickDown(&p.ShootCooldown, dt)
	tickDown(&p.FlashTimer, dt)
	if p.Shielded {
		tickDown(&p.ShieldTimer, dt)
		if p.ShieldTimer == 0 {
			p.Shielded = false
		}
	}
	if p.SpeedBoost {
		tickDown(&p.SpeedBoostTimer, dt)
		if p.SpeedBoostTimer == 0 {
			p.SpeedBoost = false
		}
	}
	if p.Dashing {
		tickDown(&p.DashTimer, dt)
		if p.DashTimer == 0 {
			p.Dashing = false
		}
	}

	if w.Mode == Mode3D {
		p.Yaw, p.Pitch = in.Yaw, in.Pitch
	}

	if in.Dash && !p.Dashing && p.DashCooldown == 0 {
		p.Dashing = true
		p.DashTimer = DashDuration
		p.DashCooldown = DashCooldown
		w.hooks.DashStarted(p)
	}

	var dx, dy float64
	if w.Mode == Mode3D {
		dx, dy = yawRelative(p.Yaw, in)
	} else {
		dx, dy = in.axes()
		if in.MoveAsserted() {
			p.Facing = facingFrom(in, p.Facing)
		}
	}
	if l := math.Hypot(dx, dy); l > 0 {
		dx, dy = dx/l, dy/l
	}

	// A dash with no direction held carries the player along their aim.
	if p.Dashing && dx == 0 && dy == 0 {
		dx, dy = w.aimPlanar(p)
	}

	// Modifier order: dash overrides the base, boost multiplies whichever
	// applies, so a boosted dash is faster than a plain one.
	speed := w.Params.BaseSpeed
	if p.Dashing {
		speed = w.Params.DashSpeed
	}
	if p.SpeedBoost {
		speed *= SpeedBoostFactor
	}

	// Approach the target velocity with bounded acceleration. Released
	// input decelerates toward zero with the (snappier) decel constant.
	tx, ty := dx*speed, dy*speed
	accel := w.Params.Accel
	if dx == 0 && dy == 0 {
		accel = w.Params.Decel
	}
	ddx := tx - p.VX
	ddy := ty - p.VY
	if l := math.Hypot(ddx, ddy); l > 0 {
		step := accel * dt
		if step > l {
			step = l
		}
		p.VX += ddx / l * step
		p.VY += ddy / l * step
	}

	p.X += p.VX * dt
	p.Y += p.VY * dt
	p.X, p.Y = w.Arena.ResolveCircle(p.X, p.Y, w.Params.PlayerRadius)
}

// AimVector returns the player's unit aim direction as (x, y, h). In 2D the
// height component is always zero.
func (w *World) AimVector(p *Player) (x, y, h float64) {
	if w.Mode == Mode3D {
		cp := math.Cos(p.Pitch)
		return math.Sin(p.Yaw) * cp, -math.Cos(p.Yaw) * cp, math.Sin(p.Pitch)
	}
	x, y = w.aimPlanar(p)
	return x, y, 0
}

// aimPlanar is the aim direction projected on the movement plane.
func (w *World) aimPlanar(p *Player) (float64, float64) {
	if w.Mode == Mode3D {
		return math.Sin(p.Yaw), -math.Cos(p.Yaw)
	}
	switch p.Facing {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// yawRelative converts held movement keys into a camera-relative planar
// direction: Up is forward along the yaw, Right strafes.
func yawRelative(yaw float64, in InputState) (float64, float64) {
	var fwd, strafe float64
	if in.Up {
		fwd++
	}
	if in.Down {
		fwd--
	}
	if in.Right {
		strafe++
	}
	if in.Left {
		strafe--
	}
	sin, cos := math.Sin(yaw), math.Cos(yaw)
	return sin*fwd + cos*strafe, -cos*fwd + sin*strafe
}

// facingFrom picks the 2D facing for the held keys, horizontal first.
func facingFrom(in InputState, cur Direction) Direction {
	switch {
	case in.Left:
		return DirLeft
	case in.Right:
		return DirRight
	case in.Up:
		return DirUp
	case in.Down:
		return DirDown
	}
	return cur
}
