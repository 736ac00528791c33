package wire

import "math"

// Fixed-point scaling factors. Encode/decode must stay symmetric: positions
// are good to 0.01 world units, angles to 0.001 radians, timers to 0.1s.
const (
	posScale   = 100
	angleScale = 1000
	timerScale = 10
)

func scalePos(v float64) int32     { return int32(math.Round(v * posScale)) }
func unscalePos(v int32) float64   { return float64(v) / posScale }
func scaleAngle(v float64) int32   { return int32(math.Round(v * angleScale)) }
func unscaleAngle(v int32) float64 { return float64(v) / angleScale }
func scaleTimer(v float64) int16   { return int16(math.Round(v * timerScale)) }
func unscaleTimer(v int16) float64 { return float64(v) / timerScale }

// Player flag bits.
const (
	pfTeamRed uint8 = 1 << iota
	pfDead
	pfCarrying
	pfShield
	pfSpeed
	pfDashing
)

// PlayerRec is the per-player snapshot record. O holds the 2D facing enum
// or the scaled 3D yaw depending on the match mode; names, velocities and
// local cooldowns are deliberately not carried.
type PlayerRec struct {
	ID      string `codec:"i"`
	X       int32  `codec:"x"` // x100
	Y       int32  `codec:"y"` // x100
	O       int32  `codec:"o"`
	Flags   uint8  `codec:"f"`
	Respawn int16  `codec:"r"` // x10
}

// FlagRec is one team's flag; the team is the record's index in the
// snapshot, blue then red.
type FlagRec struct {
	X       int32  `codec:"x"` // x100
	Y       int32  `codec:"y"` // x100
	Carrier string `codec:"c"` // empty = uncarried
	Drop    int16  `codec:"d"` // x10
}

// PowerRec is an active power-up.
type PowerRec struct {
	ID   int32 `codec:"i"`
	Kind uint8 `codec:"k"`
	X    int32 `codec:"x"` // x100
	Y    int32 `codec:"y"` // x100
}

// ShotRec is an in-flight projectile. Clients replace their projectile list
// wholesale each snapshot, so no id is carried.
type ShotRec struct {
	X    int32 `codec:"x"` // x100
	Y    int32 `codec:"y"` // x100
	H    int32 `codec:"h"` // x100
	VX   int32 `codec:"a"` // x100
	VY   int32 `codec:"b"` // x100
	VH   int32 `codec:"c"` // x100
	Team uint8 `codec:"t"`
}

// Snapshot is the host's full-state broadcast, sent at 10Hz whether or not
// anything changed.
type Snapshot struct {
	Tick      uint64      `codec:"k"`
	Phase     byte        `codec:"g"`   // 'w', 'c', 'p', 'o'
	Countdown int16       `codec:"cd"`  // x10
	Winner    byte        `codec:"win"` // 'b', 'r', or 0 while undecided
	Score     [2]uint16   `codec:"s"`   // blue, red
	Players   []PlayerRec `codec:"p"`
	Flags     [2]FlagRec  `codec:"f"`
	PowerUps  []PowerRec  `codec:"u"`
	Shots     []ShotRec   `codec:"j"`
}
