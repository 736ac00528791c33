package network

import (
	"strings"
	"testing"

	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/wire"
)

// newHostedSession returns a session that already won the election.
func newHostedSession(t *testing.T, cfg Config) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport("0001-aa", "0001-aa")
	s := newSession(t, cfg, ft)
	if !s.isHost {
		t.Fatal("session did not promote itself")
	}
	return s, ft
}

// placeOpen parks a player on the open mid band of the default arena,
// clear of walls, flags and power-up anchors.
func placeOpen(p *game.Player, x float64) {
	p.X, p.Y = x, 340
	p.VX, p.VY = 0, 0
}

func step(s *Session, n int) {
	for i := 0; i < n; i++ {
		s.role.Tick(dt)
	}
}

func TestHostAppliesRemoteInputUntilReplaced(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())

	p := s.world.Players["0002-bb"]
	if p == nil {
		t.Fatal("joining peer was not added to the world")
	}
	placeOpen(p, 300)

	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{Right: true})))
	step(s, 30)

	if p.X <= 310 {
		t.Fatalf("p.X = %.1f, want movement right; held input must persist between messages", p.X)
	}

	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{})))
	step(s, 60)
	x := p.X
	step(s, 30)
	if p.X != x {
		t.Fatalf("p.X moved from %.1f to %.1f after input released", x, p.X)
	}
}

func TestHostIgnoresPeersWithoutInput(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())

	p := s.world.Players["0002-bb"]
	placeOpen(p, 300)
	step(s, 30)

	if p.X != 300 || p.Y != 340 {
		t.Fatalf("peer moved to (%.1f, %.1f) without ever sending input", p.X, p.Y)
	}
}

func TestHostClearsPulsesAfterOneTick(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())
	h := s.role.(*Host)

	p := s.world.Players["0002-bb"]
	placeOpen(p, 300)

	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{Right: true, Dash: true})))
	if !h.inputs["0002-bb"].Dash {
		t.Fatal("dash pulse not stored")
	}

	step(s, 1)
	if !p.Dashing {
		t.Fatal("dash pulse was not applied")
	}
	in := h.inputs["0002-bb"]
	if in.Dash {
		t.Fatal("dash pulse survived the tick that applied it")
	}
	if !in.Right {
		t.Fatal("held direction was cleared along with the pulse")
	}
}

func TestHostMergesPulseWithRacingUpdate(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())
	h := s.role.(*Host)

	// A level-only update arriving after the pulse, before any tick,
	// must not erase it.
	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{Dash: true})))
	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{Up: true})))

	in := h.inputs["0002-bb"]
	if !in.Dash {
		t.Fatal("dash pulse lost to a racing level update")
	}
	if !in.Up {
		t.Fatal("level update lost to the merged pulse")
	}
}

func TestHostAppliesShootMessage(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())
	s.world.Phase = game.PhasePlaying

	p := s.world.Players["0002-bb"]
	placeOpen(p, 300)

	s.handleEnvelope(envelope(t, wire.KindShoot, "0002-bb", wire.PackShoot(1, 0, 0)))
	if len(s.world.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(s.world.Projectiles))
	}
	pr := s.world.Projectiles[0]
	if pr.OwnerID != "0002-bb" || pr.VX <= 0 || pr.VY != 0 {
		t.Fatalf("projectile = owner %s vel (%.0f, %.0f), want 0002-bb flying +x", pr.OwnerID, pr.VX, pr.VY)
	}

	// The raised input bit for the same shot must dedupe on cooldown.
	s.handleEnvelope(envelope(t, wire.KindInput, "0002-bb", wire.PackInput(game.InputState{Shoot: true})))
	step(s, 1)
	if len(s.world.Projectiles) != 1 {
		t.Fatalf("projectiles = %d after duplicate shoot, want 1", len(s.world.Projectiles))
	}
}

func TestHostSnapshotCadence(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})

	step(s, 12)
	if got := ft.countKind(wire.KindState); got != 2 {
		t.Fatalf("snapshots after 12 ticks = %d, want 2", got)
	}
	step(s, 5)
	if got := ft.countKind(wire.KindState); got != 2 {
		t.Fatalf("snapshots after 17 ticks = %d, want 2", got)
	}
	step(s, 1)
	if got := ft.countKind(wire.KindState); got != 3 {
		t.Fatalf("snapshots after 18 ticks = %d, want 3", got)
	}
}

func TestHostCountdownAtMatchSize(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host", MatchSize: 2})
	if s.world.Phase != game.PhaseWaiting {
		t.Fatalf("phase = %v before the room fills, want waiting", s.world.Phase)
	}

	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())
	if s.world.Phase != game.PhaseCountdown {
		t.Fatalf("phase = %v at match size, want countdown", s.world.Phase)
	}

	ticks := int(game.CountdownTime/dt) + 2
	step(s, ticks)
	if s.world.Phase != game.PhasePlaying {
		t.Fatalf("phase = %v after countdown ran out, want playing", s.world.Phase)
	}
}

func TestHostFillsBots(t *testing.T) {
	s, _ := newHostedSession(t, Config{
		Name:      "host",
		MatchSize: 3,
		FillBots:  2,
		NewDriver: func() Driver { return stubDriver{in: game.InputState{Up: true}} },
	})

	w := s.world
	if len(w.Players) != 3 {
		t.Fatalf("players = %d, want host plus 2 bots", len(w.Players))
	}
	b1, b2 := w.Players["bot-1"], w.Players["bot-2"]
	if b1 == nil || b2 == nil || !b1.Bot || !b2.Bot {
		t.Fatal("bot players missing or not flagged")
	}
	if b1.Team == b2.Team {
		t.Fatalf("both bots on %v, want balanced teams", b1.Team)
	}
	if w.Phase != game.PhaseCountdown {
		t.Fatalf("phase = %v, want countdown once bots fill the room", w.Phase)
	}

	placeOpen(b1, 500)
	y := b1.Y
	step(s, 30)
	if b1.Y >= y-20 {
		t.Fatalf("b1.Y = %.1f, want well above %.1f; driver input was not applied", b1.Y, y)
	}
}

func TestHostRosterSyncOnPromotion(t *testing.T) {
	ft := newFakeTransport("0002-bb", "0001-aa", "0002-bb", "0003-cc")
	s := newSession(t, Config{Name: "heir"}, ft)

	// State a client would have built up from snapshots: every peer
	// plus the old host's bot.
	w := s.world
	w.AddPlayer("0001-aa", "old-host", game.TeamRed)
	w.AddPlayer("0003-cc", "peer", game.TeamRed)
	bot := w.AddPlayer("bot-1", "Bot 1", game.TeamBlue)
	bot.Bot = true

	ft.setMembers("0002-bb", "0003-cc")
	s.handlePresence("0001-aa", false, ft.Members())

	if !s.isHost {
		t.Fatal("survivor with lowest id was not promoted")
	}
	if _, ok := w.Players["0001-aa"]; ok {
		t.Fatal("departed host still in the world")
	}
	if _, ok := w.Players["bot-1"]; ok {
		t.Fatal("old host's bot survived the promotion")
	}
	if len(w.Players) != 2 {
		t.Fatalf("players = %d after roster sync, want 2", len(w.Players))
	}
}

func TestHostAnnouncesJoinsAndLeaves(t *testing.T) {
	s, ft := newHostedSession(t, Config{Name: "host"})
	ft.setMembers("0001-aa", "0002-bb")
	s.handlePresence("0002-bb", true, ft.Members())

	if !hasEvent(s.world, "joined") {
		t.Fatalf("events = %v, want a join line", eventTexts(s.world))
	}

	ft.setMembers("0001-aa")
	s.handlePresence("0002-bb", false, ft.Members())
	if !hasEvent(s.world, "left") {
		t.Fatalf("events = %v, want a leave line", eventTexts(s.world))
	}
	if _, ok := s.world.Players["0002-bb"]; ok {
		t.Fatal("leaver still in the world")
	}
}

func eventTexts(w *game.World) []string {
	out := make([]string, len(w.Events))
	for i, e := range w.Events {
		out[i] = e.Text
	}
	return out
}

func hasEvent(w *game.World, sub string) bool {
	for _, e := range w.Events {
		if strings.Contains(e.Text, sub) {
			return true
		}
	}
	return false
}
