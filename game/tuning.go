package game

// Mode selects the presentation space the match is tuned for. Both modes run
// the same planar simulation; they differ only in scale (2D works in pixels,
// 3D in metres) and in how aim direction is expressed.
type Mode int

const (
	Mode2D Mode = iota
	Mode3D
)

func (m Mode) String() string {
	if m == Mode3D {
		return "3d"
	}
	return "2d"
}

// Params holds the mode-dependent tuning values. Everything here scales with
// the world unit, so the 3D numbers are roughly the 2D ones divided by the
// tile ratio.
type Params struct {
	// World scale
	TileSize     float64
	PlayerRadius float64

	// Movement
	BaseSpeed float64
	DashSpeed float64
	Accel     float64 // toward target velocity while input held
	Decel     float64 // toward zero with no input

	// Interaction radii
	PickupRadius  float64 // enemy flag pickup
	ReturnRadius  float64 // own dropped flag touch-return
	ScoreRadius   float64 // own base capture distance
	PowerUpRadius float64
	BaseTolerance float64 // "flag at base" epsilon

	// Projectiles
	ProjectileSpeed     float64
	ProjectileRadius    float64
	ProjectileEyeHeight float64 // spawn height in 3D, zero in 2D
	ProjectileMaxHeight float64 // 3D only; out of [0, max] despawns
	PlayerHeight        float64 // 3D only; shots above this fly over heads

	// Prediction
	ReconcileThreshold float64 // divergence that logs a large correction
}

// Timing and rule constants shared by both modes. Seconds unless noted.
const (
	TickRate   = 60 // simulation steps per second
	SnapshotHz = 10 // full-state broadcasts per second

	MaxDT = 0.05 // wall-clock step clamp

	DashDuration  = 0.25
	DashCooldown  = 3.0
	ShootCooldown = 0.5

	RespawnTime = 3.0
	FlashTime   = 0.3

	ShieldTime       = 6.0
	SpeedBoostTime   = 5.0
	SpeedBoostFactor = 1.6

	FlagReturnTime = 8.0 // dropped flag auto-return

	PowerUpRespawn    = 10.0
	MaxActivePowerUps = 3

	ProjectileLife = 1.2

	ScoreToWin    = 3
	CountdownTime = 3.0

	EventTTL  = 4.0
	MaxEvents = 5

	ReconcileBlend = 0.3 // fraction moved toward authoritative position
)

// TeamSize is the player count per side a full match fills up to.
const TeamSize = 3

// DefaultParams returns the tuning for the given mode.
func DefaultParams(m Mode) Params {
	if m == Mode3D {
		return Params{
			TileSize:     2.0,
			PlayerRadius: 0.5,

			BaseSpeed: 6.0,
			DashSpeed: 14.0,
			Accel:     48.0,
			Decel:     60.0,

			PickupRadius:  1.2,
			ReturnRadius:  1.2,
			ScoreRadius:   1.6,
			PowerUpRadius: 1.0,
			BaseTolerance: 0.25,

			ProjectileSpeed:     24.0,
			ProjectileRadius:    0.25,
			ProjectileEyeHeight: 1.0,
			ProjectileMaxHeight: 4.0,
			PlayerHeight:        2.0,

			ReconcileThreshold: 1.5,
		}
	}
	return Params{
		TileSize:     40.0,
		PlayerRadius: 14.0,

		BaseSpeed: 220.0,
		DashSpeed: 520.0,
		Accel:     1800.0,
		Decel:     2200.0,

		PickupRadius:  28.0,
		ReturnRadius:  28.0,
		ScoreRadius:   36.0,
		PowerUpRadius: 24.0,
		BaseTolerance: 4.0,

		ProjectileSpeed:  480.0,
		ProjectileRadius: 6.0,

		ReconcileThreshold: 50.0,
	}
}
