// Package wire defines the peer-to-peer message formats: a small msgpack
// envelope carrying typed payloads, the compact world snapshot codec, and
// the input bitmask encoding. Everything here is pure data transformation;
// transports move the bytes, roles decide what to do with them.
package wire

import (
	"fmt"
	"unicode/utf8"

	"github.com/hashicorp/go-msgpack/v2/codec"
)

var handle codec.MsgpackHandle

// Kind tags an envelope's payload type.
type Kind uint8

const (
	KindHello    Kind = 1 + iota // relay -> joining peer: your id and the room roster
	KindPresence                 // relay -> all: a peer joined or left
	KindState                    // host -> all: compact world snapshot
	KindInput                    // client -> host: held-input change
	KindShoot                    // client -> host: discrete shoot event
	KindChat                     // any -> all: chat line, also carries names
)

func (k Kind) String() string {
	switch k {
	case KindHello:
		return "hello"
	case KindPresence:
		return "presence"
	case KindState:
		return "state"
	case KindInput:
		return "input"
	case KindShoot:
		return "shoot"
	case KindChat:
		return "chat"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Envelope frames every relay message. From is the sending peer's id; the
// relay sets it to the empty string on its own hello/presence messages. D
// is the payload, itself msgpack, so relays can forward without decoding.
type Envelope struct {
	T    Kind   `codec:"t"`
	From string `codec:"f"`
	D    []byte `codec:"d"`
}

// Hello is sent by the relay to a peer right after it connects.
type Hello struct {
	ID    string   `codec:"i"` // the id assigned to the receiving peer
	Peers []string `codec:"p"` // other members already in the room, sorted
}

// Presence announces a membership change to everyone in the room.
type Presence struct {
	ID     string `codec:"i"`
	Joined bool   `codec:"j"`
}

// Input carries a client's held-control change. Sent edge-triggered, not
// per tick; the host holds the last value per peer until the next change.
type Input struct {
	Bits  uint8 `codec:"b"`
	Yaw   int32 `codec:"y"` // radians x1000, 3D only
	Pitch int32 `codec:"p"` // radians x1000, 3D only
	T     int64 `codec:"t"` // sender clock, unix ms, diagnostics only
}

// Shoot is a discrete fire event with the shooter's aim direction. The
// direction components are scaled x1000; the host normalizes on receipt,
// so the encoding does not need to be unit length.
type Shoot struct {
	DX int32 `codec:"x"`
	DY int32 `codec:"y"`
	DH int32 `codec:"h"`
}

// ChatMaxLen bounds chat text; both encode and decode clamp to it.
const ChatMaxLen = 100

// Chat is a broadcast text line. Name and Team double as the sender's
// identity announcement, since snapshots never carry display names.
type Chat struct {
	ID   string `codec:"i"` // message id, for client-side dedupe
	Name string `codec:"n"`
	Team int8   `codec:"g"` // 0 blue, 1 red, -1 not on a team
	Text string `codec:"m"`
	TS   int64  `codec:"ts"` // unix ms
}

// ClampText enforces the chat length bound. The cut lands on a rune
// boundary, dropping a multibyte character whole rather than splitting it.
func ClampText(s string) string {
	if len(s) <= ChatMaxLen {
		return s
	}
	cut := ChatMaxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Marshal encodes v as msgpack.
func Marshal(v interface{}) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, &handle).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: marshal: %w", err)
	}
	return buf, nil
}

// Unmarshal decodes msgpack data into v.
func Unmarshal(data []byte, v interface{}) error {
	if err := codec.NewDecoderBytes(data, &handle).Decode(v); err != nil {
		return fmt.Errorf("wire: unmarshal: %w", err)
	}
	return nil
}

// Pack marshals a payload and wraps it in an envelope, ready to publish.
func Pack(kind Kind, from string, payload interface{}) ([]byte, error) {
	d, err := Marshal(payload)
	if err != nil {
		return nil, err
	}
	return Marshal(Envelope{T: kind, From: from, D: d})
}

// Open decodes an envelope without touching its payload.
func Open(data []byte) (Envelope, error) {
	var env Envelope
	err := Unmarshal(data, &env)
	return env, err
}
