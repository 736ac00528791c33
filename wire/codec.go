package wire

import "github.com/mpatti/flagdash/game"

// EncodeWorld projects the world into its compact snapshot. The projection
// is lossy on purpose: names, velocities, dash/shoot cooldowns, events and
// animation phases stay local and are reconstructed by Merge on the far
// side.
func EncodeWorld(w *game.World) *Snapshot {
	s := &Snapshot{
		Tick:      w.Tick,
		Phase:     phaseChar(w.Phase),
		Countdown: scaleTimer(w.CountdownTimer),
		Score: [2]uint16{
			uint16(w.Score[game.TeamBlue]),
			uint16(w.Score[game.TeamRed]),
		},
	}
	if w.Phase == game.PhaseGameOver {
		s.Winner = teamChar(w.Winner)
	}

	for _, p := range w.PlayersInOrder() {
		s.Players = append(s.Players, encodePlayer(w.Mode, p))
	}
	for i, f := range w.Flags {
		s.Flags[i] = FlagRec{
			X:       scalePos(f.X),
			Y:       scalePos(f.Y),
			Carrier: f.CarrierID,
			Drop:    scaleTimer(f.DropTimer),
		}
	}
	for _, pu := range w.PowerUps {
		if !pu.Active {
			continue
		}
		s.PowerUps = append(s.PowerUps, PowerRec{
			ID:   int32(pu.ID),
			Kind: uint8(pu.Kind),
			X:    scalePos(pu.X),
			Y:    scalePos(pu.Y),
		})
	}
	for _, pr := range w.Projectiles {
		s.Shots = append(s.Shots, ShotRec{
			X:    scalePos(pr.X),
			Y:    scalePos(pr.Y),
			H:    scalePos(pr.H),
			VX:   scalePos(pr.VX),
			VY:   scalePos(pr.VY),
			VH:   scalePos(pr.VH),
			Team: uint8(pr.Team),
		})
	}
	return s
}

// Merge folds the snapshot into an existing world, overwriting what the
// wire carries and preserving what it does not. Players missing from the
// snapshot are dropped, except keepID (the caller's own predicted player,
// which membership races must not evict). Reconciliation of the local
// position happens in the client role, not here.
func (s *Snapshot) Merge(w *game.World, keepID string) {
	w.Tick = s.Tick
	w.Phase = charPhase(s.Phase)
	w.CountdownTimer = unscaleTimer(s.Countdown)
	w.Score[game.TeamBlue] = int(s.Score[0])
	w.Score[game.TeamRed] = int(s.Score[1])
	switch s.Winner {
	case 'b':
		w.Winner = game.TeamBlue
	case 'r':
		w.Winner = game.TeamRed
	}

	seen := make(map[string]bool, len(s.Players))
	for _, rec := range s.Players {
		seen[rec.ID] = true
		p := w.Players[rec.ID]
		if p == nil {
			p = &game.Player{ID: rec.ID, Name: game.DefaultName(rec.ID)}
			w.Players[rec.ID] = p
		}
		applyPlayer(w.Mode, rec, p)
	}
	for id := range w.Players {
		if !seen[id] && id != keepID {
			delete(w.Players, id)
		}
	}

	for i := range s.Flags {
		rec := s.Flags[i]
		f := w.Flags[i]
		f.X = unscalePos(rec.X)
		f.Y = unscalePos(rec.Y)
		f.CarrierID = rec.Carrier
		f.DropTimer = unscaleTimer(rec.Drop)
	}

	// Rebuild power-ups, carrying each surviving entry's animation phase
	// over by id.
	oldPhase := make(map[int]float64, len(w.PowerUps))
	for _, pu := range w.PowerUps {
		oldPhase[pu.ID] = pu.Phase
	}
	ups := make([]*game.PowerUp, 0, len(s.PowerUps))
	for _, rec := range s.PowerUps {
		ups = append(ups, &game.PowerUp{
			ID:     int(rec.ID),
			Kind:   game.PowerUpKind(rec.Kind),
			X:      unscalePos(rec.X),
			Y:      unscalePos(rec.Y),
			Active: true,
			Phase:  oldPhase[int(rec.ID)],
		})
	}
	w.PowerUps = ups

	// Lifetime is not on the wire; rebuilt shots get the nominal one so a
	// merged world stays steppable if this peer becomes host.
	shots := make([]*game.Projectile, 0, len(s.Shots))
	for _, rec := range s.Shots {
		shots = append(shots, &game.Projectile{
			X:    unscalePos(rec.X),
			Y:    unscalePos(rec.Y),
			H:    unscalePos(rec.H),
			VX:   unscalePos(rec.VX),
			VY:   unscalePos(rec.VY),
			VH:   unscalePos(rec.VH),
			Team: game.Team(rec.Team & 1),
			Life: game.ProjectileLife,
		})
	}
	w.Projectiles = shots
}

func encodePlayer(mode game.Mode, p *game.Player) PlayerRec {
	var o int32
	if mode == game.Mode3D {
		o = scaleAngle(p.Yaw)
	} else {
		o = int32(p.Facing)
	}

	var f uint8
	if p.Team == game.TeamRed {
		f |= pfTeamRed
	}
	switch p.State {
	case game.LifeDead:
		f |= pfDead
	case game.LifeCarrying:
		f |= pfCarrying
	}
	if p.Shielded {
		f |= pfShield
	}
	if p.SpeedBoost {
		f |= pfSpeed
	}
	if p.Dashing {
		f |= pfDashing
	}

	return PlayerRec{
		ID:      p.ID,
		X:       scalePos(p.X),
		Y:       scalePos(p.Y),
		O:       o,
		Flags:   f,
		Respawn: scaleTimer(p.RespawnTimer),
	}
}

func applyPlayer(mode game.Mode, rec PlayerRec, p *game.Player) {
	p.X = unscalePos(rec.X)
	p.Y = unscalePos(rec.Y)
	if mode == game.Mode3D {
		p.Yaw = unscaleAngle(rec.O)
	} else if rec.O >= int32(game.DirUp) && rec.O <= int32(game.DirRight) {
		p.Facing = game.Direction(rec.O)
	}

	if rec.Flags&pfTeamRed != 0 {
		p.Team = game.TeamRed
	} else {
		p.Team = game.TeamBlue
	}
	switch {
	case rec.Flags&pfDead != 0:
		p.State = game.LifeDead
	case rec.Flags&pfCarrying != 0:
		p.State = game.LifeCarrying
	default:
		p.State = game.LifeAlive
	}

	// Buff booleans are authoritative; the local timers only exist for
	// display, so a rising edge arms them with the full duration.
	if sh := rec.Flags&pfShield != 0; sh != p.Shielded {
		p.Shielded = sh
		if sh {
			p.ShieldTimer = game.ShieldTime
		} else {
			p.ShieldTimer = 0
		}
	}
	if sp := rec.Flags&pfSpeed != 0; sp != p.SpeedBoost {
		p.SpeedBoost = sp
		if sp {
			p.SpeedBoostTimer = game.SpeedBoostTime
		} else {
			p.SpeedBoostTimer = 0
		}
	}
	if da := rec.Flags&pfDashing != 0; da != p.Dashing {
		p.Dashing = da
		if da {
			p.DashTimer = game.DashDuration
		} else {
			p.DashTimer = 0
		}
	}

	p.RespawnTimer = unscaleTimer(rec.Respawn)
}

func phaseChar(p game.Phase) byte {
	switch p {
	case game.PhaseCountdown:
		return 'c'
	case game.PhasePlaying:
		return 'p'
	case game.PhaseGameOver:
		return 'o'
	default:
		return 'w'
	}
}

func charPhase(c byte) game.Phase {
	switch c {
	case 'c':
		return game.PhaseCountdown
	case 'p':
		return game.PhasePlaying
	case 'o':
		return game.PhaseGameOver
	default:
		return game.PhaseWaiting
	}
}

func teamChar(t game.Team) byte {
	if t == game.TeamRed {
		return 'r'
	}
	return 'b'
}
