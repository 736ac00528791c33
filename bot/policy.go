// Package bot drives a player through the same per-tick input contract a
// human uses: a small reactive capture-the-flag policy, no pathfinding and
// no privileged access to the world.
package bot

import (
	"math"
	"math/rand"

	"github.com/mpatti/flagdash/game"
)

// Tuning. Distances are in tiles so the policy behaves the same in both
// world scales; times are seconds.
const (
	reactMin = 0.12 // pause between decision passes
	reactMax = 0.3

	arriveRadius = 0.4 // closer than this to the target is "there"
	dashRange    = 6.0 // dash when the target is at least this far
	dashRest     = 1.0 // between dash pulses, on top of the ability cooldown
	shootRange   = 9.0
	shootRest    = 0.6 // between shot pulses, on top of the weapon cooldown
	detourRange  = 2.5 // power-up grab distance off route
	aimSlack     = 0.6 // how far off the fire line a 2D victim may sit
)

// Policy is a per-player reactive controller. It keeps a current travel
// target and re-evaluates it on a short randomized reaction timer, so a
// room of bots does not retarget in lockstep. One Policy drives exactly
// one player.
type Policy struct {
	rng *rand.Rand

	think    float64
	targetX  float64
	targetY  float64
	targeted bool

	dashHold  float64
	shootHold float64
}

// New returns a policy with its own randomness stream.
func New(seed int64) *Policy {
	return &Policy{rng: rand.New(rand.NewSource(seed))}
}

// Decide produces this tick's input for the driven player. Dash and Shoot
// come out as pulses spaced by internal hold timers, never level signals.
func (b *Policy) Decide(w *game.World, playerID string, dt float64) game.InputState {
	p := w.Players[playerID]
	if p == nil || !p.Alive() {
		b.targeted = false
		return game.InputState{}
	}

	b.think = sub(b.think, dt)
	b.dashHold = sub(b.dashHold, dt)
	b.shootHold = sub(b.shootHold, dt)

	if !b.targeted || b.think == 0 {
		b.retarget(w, p)
		b.think = reactMin + b.rng.Float64()*(reactMax-reactMin)
	}

	ts := w.Params.TileSize
	dx := b.targetX - p.X
	dy := b.targetY - p.Y
	dist := math.Hypot(dx, dy)

	var in game.InputState
	if w.Mode == game.Mode3D {
		// Steer the aim at the target and walk forward along it.
		in.Yaw = math.Atan2(dx, -dy)
		if dist > arriveRadius*ts {
			in.Up = true
		}
	} else if dist > arriveRadius*ts {
		dead := ts / 4
		in.Left = dx < -dead
		in.Right = dx > dead
		in.Up = dy < -dead
		in.Down = dy > dead
	}

	if dist > dashRange*ts && !p.Dashing && p.DashCooldown == 0 && b.dashHold == 0 {
		in.Dash = true
		b.dashHold = dashRest
	}

	if w.Phase == game.PhasePlaying && p.ShootCooldown == 0 && b.shootHold == 0 {
		if v := b.victim(w, p, in); v != nil {
			in.Shoot = true
			if w.Mode == game.Mode3D {
				// Square up on the victim for this tick's shot.
				in.Yaw = math.Atan2(v.X-p.X, -(v.Y - p.Y))
			}
			b.shootHold = shootRest + b.rng.Float64()*shootRest
		}
	}

	return in
}

// retarget picks the travel target: carrying wins, then returning a
// dropped own flag if this bot is the nearest defender, then the enemy
// flag wherever it is. A power-up within a short unobstructed detour
// overrides everything except a flag run home.
func (b *Policy) retarget(w *game.World, p *game.Player) {
	own := w.Flags[p.Team]
	enemy := w.Flags[p.Team.Enemy()]

	switch {
	case enemy.CarrierID == p.ID:
		b.aim(own.BaseX, own.BaseY)
		return
	case own.Dropped() && b.closestDefender(w, p):
		b.aim(own.X, own.Y)
	default:
		b.aim(enemy.X, enemy.Y)
	}

	if pu := b.nearbyPowerUp(w, p); pu != nil {
		b.aim(pu.X, pu.Y)
	}
}

func (b *Policy) aim(x, y float64) {
	b.targetX, b.targetY = x, y
	b.targeted = true
}

// closestDefender reports whether p is the living teammate nearest its
// own flag, ties broken by id so exactly one defender commits.
func (b *Policy) closestDefender(w *game.World, p *game.Player) bool {
	f := w.Flags[p.Team]
	my := math.Hypot(f.X-p.X, f.Y-p.Y)
	for _, q := range w.PlayersInOrder() {
		if q.ID == p.ID || q.Team != p.Team || !q.Alive() {
			continue
		}
		d := math.Hypot(f.X-q.X, f.Y-q.Y)
		if d < my || (d == my && q.ID < p.ID) {
			return false
		}
	}
	return true
}

func (b *Policy) nearbyPowerUp(w *game.World, p *game.Player) *game.PowerUp {
	ts := w.Params.TileSize
	var best *game.PowerUp
	var bestDist float64
	for _, pu := range w.PowerUps {
		if !pu.Active {
			continue
		}
		d := math.Hypot(pu.X-p.X, pu.Y-p.Y)
		if d > detourRange*ts {
			continue
		}
		if w.Arena.Blocked(p.X, p.Y, pu.X, pu.Y) {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = pu, d
		}
	}
	return best
}

// victim returns an enemy worth a shot right now: alive, ahead, within
// range, near the fire line, and not behind a wall.
func (b *Policy) victim(w *game.World, p *game.Player, in game.InputState) *game.Player {
	ts := w.Params.TileSize
	ax, ay := b.fireLine(w, p, in)

	var best *game.Player
	var bestDist float64
	for _, q := range w.PlayersInOrder() {
		if q.Team == p.Team || !q.Alive() {
			continue
		}
		dx, dy := q.X-p.X, q.Y-p.Y
		dist := math.Hypot(dx, dy)
		if dist == 0 || dist > shootRange*ts {
			continue
		}
		if dx*ax+dy*ay <= 0 {
			continue
		}
		if w.Mode != game.Mode3D {
			// 2D shots fly along the facing axis; the victim must sit
			// close to it.
			if off := math.Abs(dx*ay - dy*ax); off > aimSlack*ts {
				continue
			}
		}
		if w.Arena.Blocked(p.X, p.Y, q.X, q.Y) {
			continue
		}
		if best == nil || dist < bestDist {
			best, bestDist = q, dist
		}
	}
	return best
}

// fireLine is the direction a shot would leave along if fired this tick,
// accounting for the facing change the held keys are about to cause.
func (b *Policy) fireLine(w *game.World, p *game.Player, in game.InputState) (float64, float64) {
	if w.Mode == game.Mode3D {
		return math.Sin(in.Yaw), -math.Cos(in.Yaw)
	}
	switch predictFacing(in, p.Facing) {
	case game.DirUp:
		return 0, -1
	case game.DirDown:
		return 0, 1
	case game.DirLeft:
		return -1, 0
	default:
		return 1, 0
	}
}

// predictFacing mirrors the integrator's facing rule, horizontal first.
func predictFacing(in game.InputState, cur game.Direction) game.Direction {
	switch {
	case in.Left:
		return game.DirLeft
	case in.Right:
		return game.DirRight
	case in.Up:
		return game.DirUp
	case in.Down:
		return game.DirDown
	}
	return cur
}

func sub(v, dt float64) float64 {
	v -= dt
	if v < 0 {
		return 0
	}
	return v
}
