package network

import (
	"fmt"

	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/wire"
)

// snapshotEvery is the tick divisor for full-state broadcasts.
const snapshotEvery = game.TickRate / game.SnapshotHz

// Host is the authoritative role: it applies every player's freshest
// input, steps the whole world, and broadcasts snapshots for the room.
type Host struct {
	s *Session

	// inputs holds the last decoded input per remote peer. Dash and
	// Shoot are pulses: applied once, then cleared here until the peer
	// raises them again.
	inputs  map[string]game.InputState
	drivers map[string]Driver
}

func newHost(s *Session) *Host {
	return &Host{
		s:       s,
		inputs:  make(map[string]game.InputState),
		drivers: make(map[string]Driver),
	}
}

func (h *Host) Start() {
	logger.Log.Infof("[net] %s is now the host", h.s.localID)
	h.syncRoster(h.s.tr.Members())
	h.fillBots()
	h.maybeStart()
}

func (h *Host) Stop() {
	logger.Log.Infof("[net] %s stops hosting", h.s.localID)
}

func (h *Host) Tick(dt float64) {
	w := h.s.world

	for _, p := range w.PlayersInOrder() {
		var in game.InputState
		switch {
		case p.ID == h.s.localID:
			in = h.s.localInput(dt)
		case p.Bot:
			if d := h.drivers[p.ID]; d != nil {
				in = d.Decide(w, p.ID, dt)
			}
		default:
			in = h.inputs[p.ID]
			if in.Dash || in.Shoot {
				cleared := in
				cleared.Dash, cleared.Shoot = false, false
				h.inputs[p.ID] = cleared
			}
		}

		w.UpdatePlayer(p, in, dt)
		if in.Shoot {
			dx, dy, dh := w.AimVector(p)
			w.Shoot(p.ID, dx, dy, dh)
		}
	}

	w.UpdateLogic(dt)

	if w.Tick%snapshotEvery == 0 {
		h.broadcastState()
	}
}

func (h *Host) handle(env wire.Envelope) {
	switch env.T {
	case wire.KindInput:
		var m wire.Input
		if err := wire.Unmarshal(env.D, &m); err != nil {
			logger.Log.Warnf("[net] bad input from %s: %v", env.From, err)
			return
		}
		in := m.State()
		// A pulse not applied yet must survive a newer level update that
		// raced it, so pulses merge instead of overwrite.
		if prev, ok := h.inputs[env.From]; ok {
			in.Dash = in.Dash || prev.Dash
			in.Shoot = in.Shoot || prev.Shoot
		}
		h.inputs[env.From] = in

	case wire.KindShoot:
		var m wire.Shoot
		if err := wire.Unmarshal(env.D, &m); err != nil {
			logger.Log.Warnf("[net] bad shoot from %s: %v", env.From, err)
			return
		}
		// The x1000 scale cancels out; Shoot normalizes direction.
		h.s.world.Shoot(env.From, float64(m.DX), float64(m.DY), float64(m.DH))

	case wire.KindState:
		// Another peer still believes it is the host. Accepted race on
		// inconsistent membership delivery; clients follow the freshest
		// writer and the roster settles it.
		logger.Log.Debugf("[net] ignoring snapshot from %s while hosting", env.From)
	}
}

func (h *Host) onPresence(id string, joined bool, members []string) {
	w := h.s.world
	if joined {
		if _, ok := w.Players[id]; !ok {
			p := w.AddPlayer(id, game.DefaultName(id), w.PickTeam())
			w.AddEvent(fmt.Sprintf("%s joined %s", p.Name, p.Team))
		}
		h.maybeStart()
		return
	}

	delete(h.inputs, id)
	if p, ok := w.Players[id]; ok {
		w.AddEvent(fmt.Sprintf("%s left", p.Name))
		w.RemovePlayer(id)
	}
}

// syncRoster aligns the world with the room after a promotion: players
// whose peer is gone are dropped (the previous host's bots included) and
// members this world has never seen are added.
func (h *Host) syncRoster(members []string) {
	w := h.s.world
	present := make(map[string]bool, len(members))
	for _, id := range members {
		present[id] = true
	}
	for id := range w.Players {
		if !present[id] {
			w.RemovePlayer(id)
		}
	}
	for _, id := range members {
		if _, ok := w.Players[id]; !ok {
			w.AddPlayer(id, game.DefaultName(id), w.PickTeam())
		}
	}
}

// fillBots pads the roster with locally driven bots.
func (h *Host) fillBots() {
	if h.s.cfg.FillBots <= 0 || h.s.cfg.NewDriver == nil {
		return
	}
	w := h.s.world
	for i := 1; i <= h.s.cfg.FillBots; i++ {
		id := fmt.Sprintf("bot-%d", i)
		if _, ok := w.Players[id]; ok {
			continue
		}
		p := w.AddPlayer(id, fmt.Sprintf("Bot %d", i), w.PickTeam())
		p.Bot = true
		h.drivers[id] = h.s.cfg.NewDriver()
	}
}

// maybeStart arms the countdown once the room is full enough.
func (h *Host) maybeStart() {
	w := h.s.world
	if w.Phase == game.PhaseWaiting && len(w.Players) >= h.s.cfg.MatchSize {
		w.BeginCountdown()
	}
}

func (h *Host) broadcastState() {
	if err := h.s.tr.Publish(wire.KindState, wire.EncodeWorld(h.s.world)); err != nil {
		logger.Log.Warnf("[net] snapshot publish: %v", err)
	}
}
