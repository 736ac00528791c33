package game

// Hooks receives simulation side effects as they happen: the host session
// turns these into feed events and log lines, clients could drive particles
// or audio. Callbacks run inline on the simulation goroutine, so they must
// not block and must not mutate the world.
type Hooks interface {
	// PlayerTagged fires when a projectile kills a player. attacker is nil
	// if the owner already left the match.
	PlayerTagged(victim, attacker *Player)

	// ShieldBroken fires when a shield absorbs a hit instead.
	ShieldBroken(victim *Player)

	// FlagTaken fires when a player picks up the enemy flag.
	FlagTaken(flag Team, by *Player)

	// FlagReturned fires when a dropped flag goes home, by touch or timer.
	FlagReturned(flag Team)

	// FlagScored fires on a capture, after the score is applied.
	FlagScored(scorer *Player)

	// PowerUpCollected fires when a player grabs a pickup.
	PowerUpCollected(kind PowerUpKind, by *Player)

	// DashStarted fires when a dash activates.
	DashStarted(p *Player)

	// PlayerRespawned fires when a dead player revives at a spawn point.
	PlayerRespawned(p *Player)

	// EventAdded fires for every feed line pushed with AddEvent.
	EventAdded(text string)
}

// NopHooks ignores every callback. Worlds start with it installed.
type NopHooks struct{}

func (NopHooks) PlayerTagged(victim, attacker *Player) {}
func (NopHooks) ShieldBroken(victim *Player)           {}
func (NopHooks) FlagTaken(flag Team, by *Player)       {}
func (NopHooks) FlagReturned(flag Team)                {}
func (NopHooks) FlagScored(scorer *Player)             {}

func (NopHooks) PowerUpCollected(kind PowerUpKind, by *Player) {}

func (NopHooks) DashStarted(p *Player)     {}
func (NopHooks) PlayerRespawned(p *Player) {}
func (NopHooks) EventAdded(text string)    {}
