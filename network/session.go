package network

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/mpatti/flagdash/arena"
	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/logger"
	"github.com/mpatti/flagdash/wire"
)

// Role is the network behavior currently bound to the session's world.
// Sessions promote a peer from client to host in place when election
// demands it; the world survives the switch.
type Role interface {
	Start()
	Tick(dt float64)
	Stop()
}

// roleNet is the inbound surface roles implement beyond Role.
type roleNet interface {
	Role
	handle(env wire.Envelope)
	onPresence(id string, joined bool, members []string)
}

// Config seeds a session.
type Config struct {
	Mode game.Mode
	Name string // local display name, announced via chat

	MatchSize int // players needed to arm the countdown; default 2*TeamSize
	FillBots  int // bots the host adds to pad the roster

	NewDriver  func() Driver // bot factory, required when FillBots > 0
	Controller Driver        // drives the local player when non-nil

	OnChat func(from, name, text string)

	Seed int64 // world randomness; 0 means wall clock
}

// Session owns a world and the goroutine that mutates it. Everything the
// network delivers is trampolined onto that goroutine through the inbox,
// so roles never need locks.
type Session struct {
	cfg     Config
	world   *game.World
	tr      Transport
	localID string

	role   roleNet
	isHost bool

	inbox    chan func()
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	manual game.InputState
}

// NewSession builds a session on an already connected transport. The
// local player joins the world immediately so prediction has something
// to drive before the first snapshot.
func NewSession(cfg Config, tr Transport, a *arena.Arena) *Session {
	if cfg.MatchSize <= 0 {
		cfg.MatchSize = 2 * game.TeamSize
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Session{
		cfg:     cfg,
		tr:      tr,
		localID: tr.PeerID(),
		world:   game.New(cfg.Mode, a, seed),
		inbox:   make(chan func(), 256),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.world.SetHooks(sessionHooks{})
	s.world.AddPlayer(s.localID, cfg.Name, s.world.PickTeam())

	tr.SetHandler(func(env wire.Envelope) {
		s.post(func() { s.handleEnvelope(env) })
	})
	tr.SetPresenceHandler(func(id string, joined bool, members []string) {
		s.post(func() { s.handlePresence(id, joined, members) })
	})
	return s
}

// World exposes the session's world for wiring done before Run, such as
// seeding test fixtures. It must not be touched once Run has started.
func (s *Session) World() *game.World { return s.world }

// LocalID returns the relay-assigned id of the local player.
func (s *Session) LocalID() string { return s.localID }

// IsHost reports whether this peer currently owns the simulation. Safe
// only from the session goroutine or before Run; cmd code should treat
// it as advisory.
func (s *Session) IsHost() bool { return s.isHost }

// Run drives the session until Stop: a fixed-rate tick plus the network
// inbox, all on one goroutine, which makes it the world's only writer.
func (s *Session) Run() {
	defer close(s.done)

	s.elect(s.tr.Members())

	ticker := time.NewTicker(time.Second / game.TickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-s.stopCh:
			s.role.Stop()
			return
		case fn := <-s.inbox:
			fn()
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > game.MaxDT {
				dt = game.MaxDT
			}
			s.role.Tick(dt)
		}
	}
}

// Stop ends Run and waits for it to finish. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.done
}

// SetLocalInput replaces the manually driven local input. Dash and Shoot
// are pulses: set true they fire exactly once, on the next tick.
func (s *Session) SetLocalInput(in game.InputState) {
	s.mu.Lock()
	dash := s.manual.Dash || in.Dash
	shoot := s.manual.Shoot || in.Shoot
	s.manual = in
	s.manual.Dash = dash
	s.manual.Shoot = shoot
	s.mu.Unlock()
}

// SendChat publishes a chat line, which doubles as this peer's name and
// team announcement.
func (s *Session) SendChat(text string) {
	text = wire.ClampText(text)
	s.post(func() {
		team := int8(-1)
		if p := s.world.Players[s.localID]; p != nil {
			team = int8(p.Team)
		}
		msg := wire.Chat{
			ID:   randomID(),
			Name: s.cfg.Name,
			Team: team,
			Text: text,
			TS:   time.Now().UnixMilli(),
		}
		if err := s.tr.Publish(wire.KindChat, msg); err != nil {
			logger.Log.Warnf("[net] chat publish: %v", err)
		}
		if s.cfg.OnChat != nil {
			s.cfg.OnChat(s.localID, s.cfg.Name, text)
		}
	})
}

// post queues fn for the session goroutine, dropping it if the session
// is stopping or hopelessly behind.
func (s *Session) post(fn func()) {
	select {
	case <-s.stopCh:
		return
	default:
	}
	select {
	case s.inbox <- fn:
	default:
		logger.Log.Warn("[net] session inbox full, dropping message")
	}
}

// localInput resolves the local player's input for this tick, preferring
// the installed controller over manual state.
func (s *Session) localInput(dt float64) game.InputState {
	if s.cfg.Controller != nil {
		return s.cfg.Controller.Decide(s.world, s.localID, dt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.manual
	s.manual.Dash, s.manual.Shoot = false, false
	return in
}

func (s *Session) handleEnvelope(env wire.Envelope) {
	if env.T == wire.KindChat {
		s.handleChat(env)
		return
	}
	s.role.handle(env)
}

func (s *Session) handlePresence(id string, joined bool, members []string) {
	s.role.onPresence(id, joined, members)
	s.elect(members)
}

// handleChat records the sender's announced name and surfaces the line.
// Chat flows through the relay to everyone, so no role-specific work is
// needed.
func (s *Session) handleChat(env wire.Envelope) {
	var m wire.Chat
	if err := wire.Unmarshal(env.D, &m); err != nil {
		logger.Log.Warnf("[net] bad chat from %s: %v", env.From, err)
		return
	}
	m.Text = wire.ClampText(m.Text)
	name := m.Name
	if name == "" {
		name = game.DefaultName(env.From)
	}
	if p, ok := s.world.Players[env.From]; ok && m.Name != "" {
		p.Name = m.Name
	}
	if s.cfg.OnChat != nil {
		s.cfg.OnChat(env.From, name, m.Text)
	}
}

// elect promotes this peer to host when it holds the lowest id in the
// room. The relay hands out ids that sort by join order, so the crown
// passes to the oldest surviving peer and never moves back.
func (s *Session) elect(members []string) {
	switch {
	case lowestID(members) == s.localID && !s.isHost:
		if s.role != nil {
			s.role.Stop()
		}
		s.isHost = true
		s.role = newHost(s)
		s.role.Start()
	case s.role == nil:
		s.role = newClient(s)
		s.role.Start()
	}
}

func lowestID(ids []string) string {
	min := ""
	for _, id := range ids {
		if min == "" || id < min {
			min = id
		}
	}
	return min
}

// sessionHooks surfaces world feed lines on the process log.
type sessionHooks struct{ game.NopHooks }

func (sessionHooks) EventAdded(text string) {
	logger.Log.Infof("[feed] %s", text)
}

func randomID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b)
}
