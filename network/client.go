package network

import (
	"fmt"
	"math"
	"time"

	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/wire"
)

// Client is the predicted role: it steps only the local player, sends
// input upstream when it changes, and reconciles against the host's
// snapshots.
type Client struct {
	s       *Session
	lastMsg wire.Input
	sentAny bool
}

func newClient(s *Session) *Client {
	return &Client{s: s}
}

func (c *Client) Start() {
	logger.Log.Infof("[net] %s following host %s", c.s.localID, lowestID(c.s.tr.Members()))
}

func (c *Client) Stop() {}

func (c *Client) Tick(dt float64) {
	w := c.s.world
	in := c.s.localInput(dt)

	if p := w.Players[c.s.localID]; p != nil {
		w.UpdatePlayer(p, in, dt)
		if in.Shoot && w.Phase == game.PhasePlaying {
			c.sendShoot(w.AimVector(p))
		}
	}
	w.AdvanceCosmetics(dt, c.s.localID)
	c.maybeSendInput(in)
}

func (c *Client) handle(env wire.Envelope) {
	switch env.T {
	case wire.KindState:
		var snap wire.Snapshot
		if err := wire.Unmarshal(env.D, &snap); err != nil {
			logger.Log.Warnf("[net] bad snapshot from %s: %v", env.From, err)
			return
		}
		c.applySnapshot(&snap)
	case wire.KindInput, wire.KindShoot:
		// Host-bound traffic from other peers; nothing for a client.
	}
}

func (c *Client) onPresence(id string, joined bool, members []string) {
	w := c.s.world
	if joined {
		// The player record arrives with the next snapshot.
		if _, ok := w.Players[id]; !ok {
			w.AddEvent(fmt.Sprintf("%s joined", game.DefaultName(id)))
		}
		return
	}
	if p, ok := w.Players[id]; ok {
		w.AddEvent(fmt.Sprintf("%s left", p.Name))
		w.RemovePlayer(id)
	}
}

// maybeSendInput publishes the input only when its encoding differs from
// the last one sent; the host holds the previous value in between.
func (c *Client) maybeSendInput(in game.InputState) {
	msg := wire.PackInput(in)
	if c.sentAny && msg == c.lastMsg {
		return
	}
	c.lastMsg = msg
	c.sentAny = true

	out := msg
	out.T = time.Now().UnixMilli()
	if err := c.s.tr.Publish(wire.KindInput, out); err != nil {
		logger.Log.Warnf("[net] input publish: %v", err)
	}
}

func (c *Client) sendShoot(dx, dy, dh float64) {
	if err := c.s.tr.Publish(wire.KindShoot, wire.PackShoot(dx, dy, dh)); err != nil {
		logger.Log.Warnf("[net] shoot publish: %v", err)
	}
}

// applySnapshot merges authoritative state into the predicted world,
// then reconciles the local player: a fixed fraction of the divergence
// toward the host position every snapshot, never a hard snap.
func (c *Client) applySnapshot(snap *wire.Snapshot) {
	w := c.s.world

	local := w.Players[c.s.localID]
	var px, py float64
	if local != nil {
		px, py = local.X, local.Y
	}
	hostHasLocal := false
	for _, rec := range snap.Players {
		if rec.ID == c.s.localID {
			hostHasLocal = true
			break
		}
	}
	prevScore := w.Score
	prevPhase := w.Phase

	snap.Merge(w, c.s.localID)

	if local != nil && hostHasLocal {
		dx, dy := local.X-px, local.Y-py
		if d := math.Hypot(dx, dy); d > w.Params.ReconcileThreshold {
			logger.Log.Debugf("[net] large correction for %s: %.2f", c.s.localID, d)
		}
		local.X = px + dx*game.ReconcileBlend
		local.Y = py + dy*game.ReconcileBlend
	}

	c.deriveEvents(prevScore, prevPhase)
}

// deriveEvents reconstructs feed lines the wire does not carry from
// transitions the snapshot made observable.
func (c *Client) deriveEvents(prevScore [2]int, prevPhase game.Phase) {
	w := c.s.world
	for _, t := range []game.Team{game.TeamBlue, game.TeamRed} {
		if w.Score[t] > prevScore[t] {
			w.AddEvent(fmt.Sprintf("%s scores!", t))
		}
	}
	if w.Phase == prevPhase {
		return
	}
	switch w.Phase {
	case game.PhaseCountdown:
		w.AddEvent("Match starting!")
	case game.PhasePlaying:
		w.AddEvent("GO!")
	case game.PhaseGameOver:
		w.AddEvent(fmt.Sprintf("%s wins the match!", w.Winner))
	}
}
