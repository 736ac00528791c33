// Package game implements the authoritative capture-the-flag simulation:
// player movement, dashing, projectiles, flag logic, power-ups and match
// phases. The World is a plain mutable aggregate with no locking; whoever
// owns it (the host session, a test) is responsible for single-threaded
// access.
package game

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/mpatti/flagdash/arena"
)

// Team identifies a side. The zero value is blue.
type Team int

const (
	TeamBlue Team = iota
	TeamRed
)

func (t Team) String() string {
	if t == TeamRed {
		return "RED"
	}
	return "BLUE"
}

// Enemy returns the opposing team.
func (t Team) Enemy() Team {
	if t == TeamBlue {
		return TeamRed
	}
	return TeamBlue
}

// Phase is the match lifecycle state.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseCountdown
	PhasePlaying
	PhaseGameOver
)

func (p Phase) String() string {
	switch p {
	case PhaseCountdown:
		return "countdown"
	case PhasePlaying:
		return "playing"
	case PhaseGameOver:
		return "gameover"
	default:
		return "waiting"
	}
}

// LifeState is a player's lifecycle state.
type LifeState int

const (
	LifeAlive LifeState = iota
	LifeDead
	LifeCarrying
)

// Direction is the 2D facing used for sprite selection and default aim.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

// Player is one participant's simulated state. Position and velocity are in
// world units on the X/Y plane; 3D mode adds yaw/pitch aim but no vertical
// movement.
type Player struct {
	ID   string
	Name string
	Team Team
	Bot  bool

	// Kinematics
	X, Y   float64
	VX, VY float64

	// Aim
	Facing Direction // 2D
	Yaw    float64   // 3D, radians
	Pitch  float64   // 3D, radians

	// Lifecycle
	State        LifeState
	RespawnTimer float64

	// Abilities
	DashCooldown  float64
	DashTimer     float64
	Dashing       bool
	ShootCooldown float64

	// Buffs
	Shielded        bool
	ShieldTimer     float64
	SpeedBoost      bool
	SpeedBoostTimer float64

	// Cosmetic
	FlashTimer float64
}

// Alive reports whether the player can move and interact.
func (p *Player) Alive() bool { return p.State != LifeDead }

// Flag is one team's flag. CarrierID is empty when the flag is at its base
// or dropped; a dropped flag has DropTimer counting down to auto-return.
type Flag struct {
	Team         Team
	X, Y         float64
	BaseX, BaseY float64
	CarrierID    string
	DropTimer    float64
}

// AtBase reports whether the flag rests at its base. The tolerance is an
// absolute box on each axis, not a radius, and is distinct from the capture
// radius around the base.
func (f *Flag) AtBase(tol float64) bool {
	return math.Abs(f.X-f.BaseX) <= tol && math.Abs(f.Y-f.BaseY) <= tol
}

// Dropped reports whether the flag lies loose in the field.
func (f *Flag) Dropped() bool { return f.CarrierID == "" && f.DropTimer > 0 }

// Projectile is a live shot. H and VH are only used in 3D mode.
type Projectile struct {
	ID         int
	OwnerID    string
	Team       Team
	X, Y, H    float64
	VX, VY, VH float64
	Life       float64
}

// PowerUpKind selects a power-up effect.
type PowerUpKind int

const (
	PowerSpeed PowerUpKind = iota
	PowerShield
	PowerDashReset
)

func (k PowerUpKind) String() string {
	switch k {
	case PowerShield:
		return "shield"
	case PowerDashReset:
		return "dash reset"
	default:
		return "speed"
	}
}

// PowerUp is a collectible pickup. Collected entries go inactive and are
// pruned on the next spawn cycle.
type PowerUp struct {
	ID     int
	Kind   PowerUpKind
	X, Y   float64
	Active bool
	Phase  float64 // bob animation accumulator, cosmetic
}

// Event is a transient feed line shown in the HUD.
type Event struct {
	Text string
	TTL  float64
}

// World is the complete match state. The host mutates it authoritatively;
// clients hold a predicted replica that snapshots are merged into.
type World struct {
	Mode   Mode
	Params Params
	Arena  *arena.Arena

	Players map[string]*Player
	Flags   [2]*Flag // indexed by Team
	Score   [2]int   // indexed by Team

	Projectiles []*Projectile
	PowerUps    []*PowerUp
	Events      []Event

	Phase          Phase
	CountdownTimer float64
	Winner         Team // valid once Phase == PhaseGameOver
	Tick           uint64

	powerUpSpawnTimer float64
	nextProjectileID  int
	nextPowerUpID     int
	hooks             Hooks
	rng               *rand.Rand
}

// New creates a waiting-phase world on the given arena. The seed drives
// spawn and power-up randomness so tests can be deterministic.
func New(mode Mode, a *arena.Arena, seed int64) *World {
	w := &World{
		Mode:    mode,
		Params:  DefaultParams(mode),
		Arena:   a,
		Players: make(map[string]*Player),
		Phase:   PhaseWaiting,
		hooks:   NopHooks{},
		rng:     rand.New(rand.NewSource(seed)),
	}

	bb := a.BlueBase()
	rb := a.RedBase()
	w.Flags[TeamBlue] = &Flag{Team: TeamBlue, X: bb.X, Y: bb.Y, BaseX: bb.X, BaseY: bb.Y}
	w.Flags[TeamRed] = &Flag{Team: TeamRed, X: rb.X, Y: rb.Y, BaseX: rb.X, BaseY: rb.Y}
	return w
}

// SetHooks installs side-effect callbacks. Pass nil to restore no-ops.
func (w *World) SetHooks(h Hooks) {
	if h == nil {
		h = NopHooks{}
	}
	w.hooks = h
}

// DefaultName derives a display name from a peer id, for players whose
// chosen name has not reached us yet.
func DefaultName(id string) string {
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// PickTeam returns the side with fewer players, blue on ties.
func (w *World) PickTeam() Team {
	blue, red := 0, 0
	for _, p := range w.Players {
		if p.Team == TeamRed {
			red++
		} else {
			blue++
		}
	}
	if red < blue {
		return TeamRed
	}
	return TeamBlue
}

// AddPlayer spawns a new player for the given team and returns it. Existing
// ids are replaced, which covers a peer reconnecting under the same id.
func (w *World) AddPlayer(id, name string, team Team) *Player {
	sp := w.randomSpawn(team)
	p := &Player{
		ID:   id,
		Name: name,
		Team: team,
		X:    sp.X,
		Y:    sp.Y,
	}
	// Face the enemy base.
	if team == TeamBlue {
		p.Facing = DirRight
		p.Yaw = yawRight
	} else {
		p.Facing = DirLeft
		p.Yaw = yawLeft
	}
	w.Players[id] = p
	return p
}

// RemovePlayer drops the player from the match. A carried flag is force
// dropped in place with the standard return timer.
func (w *World) RemovePlayer(id string) {
	p, ok := w.Players[id]
	if !ok {
		return
	}
	if f := w.carriedFlag(id); f != nil {
		w.dropFlag(f, p.X, p.Y)
	}
	delete(w.Players, id)
}

// BeginCountdown arms the pre-match countdown. Only valid from the waiting
// phase; any other phase is a no-op.
func (w *World) BeginCountdown() {
	if w.Phase != PhaseWaiting {
		return
	}
	w.Phase = PhaseCountdown
	w.CountdownTimer = CountdownTime
	w.AddEvent("Match starting!")
}

// AddEvent pushes a feed line, evicting the oldest past the cap.
func (w *World) AddEvent(text string) {
	w.Events = append(w.Events, Event{Text: text, TTL: EventTTL})
	if len(w.Events) > MaxEvents {
		w.Events = w.Events[len(w.Events)-MaxEvents:]
	}
	w.hooks.EventAdded(text)
}

// PlayersInOrder returns the players sorted by id. Logic and encoding walk
// players in this order so outcomes do not depend on map iteration.
func (w *World) PlayersInOrder() []*Player {
	ids := make([]string, 0, len(w.Players))
	for id := range w.Players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Player, len(ids))
	for i, id := range ids {
		out[i] = w.Players[id]
	}
	return out
}

// carriedFlag returns the flag carried by the given player, or nil.
func (w *World) carriedFlag(playerID string) *Flag {
	for _, f := range w.Flags {
		if f.CarrierID == playerID {
			return f
		}
	}
	return nil
}

// dropFlag leaves the flag loose at (x, y) with the auto-return timer armed.
func (w *World) dropFlag(f *Flag, x, y float64) {
	f.CarrierID = ""
	f.X, f.Y = x, y
	f.DropTimer = FlagReturnTime
	w.AddEvent(fmt.Sprintf("%s flag dropped!", f.Team))
}

// returnFlag snaps the flag home and clears carrier and timer.
func (w *World) returnFlag(f *Flag) {
	f.CarrierID = ""
	f.DropTimer = 0
	f.X, f.Y = f.BaseX, f.BaseY
}

func (w *World) randomSpawn(team Team) arena.Point {
	spawns := w.Arena.BlueSpawns()
	if team == TeamRed {
		spawns = w.Arena.RedSpawns()
	}
	return spawns[w.rng.Intn(len(spawns))]
}
