package game

import (
	"fmt"
	"math"

	"github.com/mpatti/flagdash/arena"
)

// UpdateLogic advances everything that is not per-player kinematics: match
// phase, flags, scoring, power-ups, projectiles and the event feed. The
// host calls it once per tick after applying player inputs; clients never
// run it, they receive its results in snapshots.
func (w *World) UpdateLogic(dt float64) {
	w.Tick++

	switch w.Phase {
	case PhaseCountdown:
		w.CountdownTimer -= dt
		if w.CountdownTimer <= 0 {
			w.CountdownTimer = 0
			w.Phase = PhasePlaying
			w.AddEvent("GO!")
		}
		w.decayEvents(dt)
		return
	case PhaseWaiting, PhaseGameOver:
		w.decayEvents(dt)
		return
	}

	w.stepPowerUps(dt)
	w.stepFlags(dt)

	for _, p := range w.PlayersInOrder() {
		if p.State == LifeDead {
			// RespawnTimer is ticked down in UpdatePlayer.
			if p.RespawnTimer == 0 {
				w.respawn(p)
			}
			continue
		}
		w.checkFlagReturn(p)
		w.checkFlagPickup(p)
		w.checkScore(p)
		w.checkPowerUps(p)
	}

	w.stepProjectiles(dt)
	w.decayEvents(dt)
}

// Shoot spawns a projectile for the player along (dx, dy, dh), normalized
// here; a zero vector falls back to the player's aim. Returns false if the
// player cannot shoot right now (dead, cooling down, or no match running).
func (w *World) Shoot(playerID string, dx, dy, dh float64) bool {
	p := w.Players[playerID]
	if p == nil || p.State == LifeDead || w.Phase != PhasePlaying {
		return false
	}
	if p.ShootCooldown > 0 {
		return false
	}

	l := math.Sqrt(dx*dx + dy*dy + dh*dh)
	if l == 0 {
		dx, dy, dh = w.AimVector(p)
	} else {
		dx, dy, dh = dx/l, dy/l, dh/l
	}
	if w.Mode != Mode3D {
		dh = 0
	}

	p.ShootCooldown = ShootCooldown
	w.nextProjectileID++
	w.Projectiles = append(w.Projectiles, &Projectile{
		ID:      w.nextProjectileID,
		OwnerID: p.ID,
		Team:    p.Team,
		X:       p.X,
		Y:       p.Y,
		H:       w.Params.ProjectileEyeHeight,
		VX:      dx * w.Params.ProjectileSpeed,
		VY:      dy * w.Params.ProjectileSpeed,
		VH:      dh * w.Params.ProjectileSpeed,
		Life:    ProjectileLife,
	})
	return true
}

func (w *World) stepPowerUps(dt float64) {
	for _, pu := range w.PowerUps {
		if pu.Active {
			pu.Phase += dt
		}
	}

	w.powerUpSpawnTimer -= dt
	if w.powerUpSpawnTimer > 0 {
		return
	}
	w.powerUpSpawnTimer = PowerUpRespawn

	// Collected entries linger until this cycle prunes them.
	kept := w.PowerUps[:0]
	for _, pu := range w.PowerUps {
		if pu.Active {
			kept = append(kept, pu)
		}
	}
	w.PowerUps = kept

	if len(w.PowerUps) >= MaxActivePowerUps {
		return
	}

	var free []arena.Point
	for _, s := range w.Arena.PowerUpSpots() {
		occupied := false
		for _, pu := range w.PowerUps {
			if within(pu.X, pu.Y, s.X, s.Y, w.Params.PlayerRadius) {
				occupied = true
				break
			}
		}
		if !occupied {
			free = append(free, s)
		}
	}
	if len(free) == 0 {
		return
	}

	s := free[w.rng.Intn(len(free))]
	w.nextPowerUpID++
	w.PowerUps = append(w.PowerUps, &PowerUp{
		ID:     w.nextPowerUpID,
		Kind:   PowerUpKind(w.rng.Intn(3)),
		X:      s.X,
		Y:      s.Y,
		Active: true,
	})
}

func (w *World) stepFlags(dt float64) {
	for _, f := range w.Flags {
		if f.CarrierID != "" {
			// Carried flags ride on the carrier. An unknown carrier id can
			// only appear transiently on clients between merges; leave the
			// flag where it is.
			if c := w.Players[f.CarrierID]; c != nil {
				f.X, f.Y = c.X, c.Y
			}
			continue
		}
		if f.DropTimer > 0 {
			tickDown(&f.DropTimer, dt)
			if f.DropTimer == 0 {
				w.returnFlag(f)
				w.AddEvent(fmt.Sprintf("%s flag returned", f.Team))
				w.hooks.FlagReturned(f.Team)
			}
		}
	}
}

// checkFlagReturn lets a player touch-return their own dropped flag.
func (w *World) checkFlagReturn(p *Player) {
	own := w.Flags[p.Team]
	if !own.Dropped() {
		return
	}
	if !within(p.X, p.Y, own.X, own.Y, w.Params.ReturnRadius) {
		return
	}
	w.returnFlag(own)
	w.AddEvent(fmt.Sprintf("%s returned the %s flag", p.Name, own.Team))
	w.hooks.FlagReturned(own.Team)
}

// checkFlagPickup lets a player grab the enemy flag, at its base or loose.
func (w *World) checkFlagPickup(p *Player) {
	enemy := w.Flags[p.Team.Enemy()]
	if enemy.CarrierID != "" {
		return
	}
	if !within(p.X, p.Y, enemy.X, enemy.Y, w.Params.PickupRadius) {
		return
	}
	enemy.CarrierID = p.ID
	enemy.DropTimer = 0
	enemy.X, enemy.Y = p.X, p.Y
	p.State = LifeCarrying
	w.AddEvent(fmt.Sprintf("%s took the %s flag!", p.Name, enemy.Team))
	w.hooks.FlagTaken(enemy.Team, p)
}

// checkScore captures when a carrier reaches their own base while their own
// flag is home. A stolen or dropped own flag blocks the capture.
func (w *World) checkScore(p *Player) {
	if p.State != LifeCarrying || w.Phase != PhasePlaying {
		return
	}
	own := w.Flags[p.Team]
	if own.CarrierID != "" || !own.AtBase(w.Params.BaseTolerance) {
		return
	}
	if !within(p.X, p.Y, own.BaseX, own.BaseY, w.Params.ScoreRadius) {
		return
	}

	w.returnFlag(w.Flags[p.Team.Enemy()])
	p.State = LifeAlive
	w.Score[p.Team]++
	w.AddEvent(fmt.Sprintf("%s SCORES for %s!", p.Name, p.Team))
	w.hooks.FlagScored(p)

	if w.Score[p.Team] >= ScoreToWin {
		w.Phase = PhaseGameOver
		w.Winner = p.Team
		w.AddEvent(fmt.Sprintf("%s wins the match!", p.Team))
	}
}

func (w *World) checkPowerUps(p *Player) {
	for _, pu := range w.PowerUps {
		if !pu.Active {
			continue
		}
		if !within(p.X, p.Y, pu.X, pu.Y, w.Params.PowerUpRadius) {
			continue
		}
		pu.Active = false
		w.applyPowerUp(p, pu.Kind)
		w.AddEvent(fmt.Sprintf("%s grabbed %s", p.Name, pu.Kind))
		w.hooks.PowerUpCollected(pu.Kind, p)
	}
}

func (w *World) applyPowerUp(p *Player, k PowerUpKind) {
	switch k {
	case PowerSpeed:
		p.SpeedBoost = true
		p.SpeedBoostTimer = SpeedBoostTime
	case PowerShield:
		p.Shielded = true
		p.ShieldTimer = ShieldTime
	case PowerDashReset:
		p.DashCooldown = 0
	}
}

func (w *World) stepProjectiles(dt float64) {
	players := w.PlayersInOrder()
	kept := w.Projectiles[:0]
	for _, pr := range w.Projectiles {
		pr.Life -= dt
		if pr.Life <= 0 {
			continue
		}
		pr.X += pr.VX * dt
		pr.Y += pr.VY * dt
		if w.Mode == Mode3D {
			pr.H += pr.VH * dt
			if pr.H < 0 || pr.H > w.Params.ProjectileMaxHeight {
				continue
			}
		}
		if w.Arena.SolidAtWorld(pr.X, pr.Y) {
			continue
		}
		if w.Mode == Mode3D && pr.H > w.Params.PlayerHeight {
			// Over everyone's head.
			kept = append(kept, pr)
			continue
		}

		hit := false
		for _, target := range players {
			if target.Team == pr.Team || target.State == LifeDead {
				continue
			}
			if !within(pr.X, pr.Y, target.X, target.Y, w.Params.PlayerRadius+w.Params.ProjectileRadius) {
				continue
			}
			w.hitPlayer(target, pr.OwnerID)
			hit = true
			break
		}
		if hit {
			continue
		}
		kept = append(kept, pr)
	}
	w.Projectiles = kept
}

// hitPlayer applies a projectile hit: a shield absorbs it, otherwise the
// victim dies, dropping any carried flag in place.
func (w *World) hitPlayer(victim *Player, ownerID string) {
	victim.FlashTimer = FlashTime

	if victim.Shielded {
		victim.Shielded = false
		victim.ShieldTimer = 0
		w.AddEvent(fmt.Sprintf("%s's shield broke!", victim.Name))
		w.hooks.ShieldBroken(victim)
		return
	}

	if f := w.carriedFlag(victim.ID); f != nil {
		w.dropFlag(f, victim.X, victim.Y)
	}
	victim.State = LifeDead
	victim.RespawnTimer = RespawnTime
	victim.VX, victim.VY = 0, 0
	victim.Dashing = false
	victim.DashTimer = 0
	victim.SpeedBoost = false
	victim.SpeedBoostTimer = 0

	attacker := w.Players[ownerID]
	if attacker != nil {
		w.AddEvent(fmt.Sprintf("%s tagged %s!", attacker.Name, victim.Name))
	} else {
		w.AddEvent(fmt.Sprintf("%s was tagged!", victim.Name))
	}
	w.hooks.PlayerTagged(victim, attacker)
}

func (w *World) respawn(p *Player) {
	sp := w.randomSpawn(p.Team)
	p.X, p.Y = sp.X, sp.Y
	p.VX, p.VY = 0, 0
	p.State = LifeAlive
	p.RespawnTimer = 0
	p.DashCooldown = 0
	p.ShootCooldown = 0
	p.Dashing = false
	w.hooks.PlayerRespawned(p)
}

func (w *World) decayEvents(dt float64) {
	kept := w.Events[:0]
	for i := range w.Events {
		w.Events[i].TTL -= dt
		if w.Events[i].TTL > 0 {
			kept = append(kept, w.Events[i])
		}
	}
	w.Events = kept
}

// AdvanceCosmetics runs the display-only upkeep a non-authoritative world
// needs between snapshots: feed decay, pickup bobbing, projectile coasting
// and remote player display timers. Snapshot merges overwrite everything
// that matters.
func (w *World) AdvanceCosmetics(dt float64, localID string) {
	w.decayEvents(dt)
	for _, pu := range w.PowerUps {
		if pu.Active {
			pu.Phase += dt
		}
	}
	// Shots fly straight between snapshots; the host owns their real
	// collisions and lifetime.
	for _, pr := range w.Projectiles {
		pr.X += pr.VX * dt
		pr.Y += pr.VY * dt
		pr.H += pr.VH * dt
	}
	for _, p := range w.Players {
		if p.ID == localID {
			continue // stepped by prediction
		}
		tickDown(&p.FlashTimer, dt)
		tickDown(&p.RespawnTimer, dt)
		tickDown(&p.ShieldTimer, dt)
		tickDown(&p.SpeedBoostTimer, dt)
	}
}
