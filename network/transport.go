// Package network binds a simulated world to a relay room. The Transport
// moves envelopes, a Role decides what to do with them (authoritative
// host or predicted client), and the Session owns the world, the tick
// loop and the promotion from client to host when the current host
// disappears.
package network

import (
	"github.com/mpatti/flagdash/game"
	"github.com/mpatti/flagdash/wire"
)

// Transport moves envelopes between this peer and the rest of its room.
// Publish is fire-and-forget: implementations log and drop on backpressure
// instead of blocking the simulation. Handlers are called from transport
// goroutines; the session trampolines them onto its own.
type Transport interface {
	// PeerID returns the relay-assigned id for this peer.
	PeerID() string

	// Members returns the sorted room roster, local peer included.
	Members() []string

	// Publish packs one payload into an envelope and sends it to the
	// rest of the room.
	Publish(kind wire.Kind, payload interface{}) error

	// SetHandler registers the sink for application frames (state,
	// input, shoot, chat).
	SetHandler(func(env wire.Envelope))

	// SetPresenceHandler registers the membership sink. members is the
	// roster after the change.
	SetPresenceHandler(func(id string, joined bool, members []string))

	Close() error
}

// Driver produces input for one player each tick. The bot package's
// Policy is the real implementation; sessions also accept one as the
// local controller.
type Driver interface {
	Decide(w *game.World, playerID string, dt float64) game.InputState
}
