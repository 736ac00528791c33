package wire

import (
	"math"
	"testing"

	"github.com/mpatti/flagdash/arena"
	"github.com/mpatti/flagdash/game"
)

func worldPair(mode game.Mode) (host, client *game.World) {
	p := game.DefaultParams(mode)
	host = game.New(mode, arena.Default(p.TileSize), 1)
	client = game.New(mode, arena.Default(p.TileSize), 2)
	return host, client
}

func closeTo(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestSnapshotRoundTrip2D(t *testing.T) {
	host, client := worldPair(game.Mode2D)

	a := host.AddPlayer("aaa111", "Ann", game.TeamBlue)
	a.X, a.Y = 123.456, 678.912
	a.Facing = game.DirDown
	a.State = game.LifeCarrying
	a.Shielded = true
	a.ShieldTimer = 4.2

	b := host.AddPlayer("bbb222", "Bob", game.TeamRed)
	b.X, b.Y = 700.071, 300.033
	b.State = game.LifeDead
	b.RespawnTimer = 2.5

	host.Phase = game.PhasePlaying
	host.Tick = 4242
	host.Score[game.TeamBlue] = 2
	host.Score[game.TeamRed] = 1

	redFlag := host.Flags[game.TeamRed]
	redFlag.CarrierID = "aaa111"
	redFlag.X, redFlag.Y = a.X, a.Y
	blueFlag := host.Flags[game.TeamBlue]
	blueFlag.X, blueFlag.Y = 400.004, 500.005
	blueFlag.DropTimer = 6.75

	host.PowerUps = append(host.PowerUps, &game.PowerUp{
		ID: 7, Kind: game.PowerShield, X: 500, Y: 380, Active: true,
	})
	host.Projectiles = append(host.Projectiles, &game.Projectile{
		ID: 1, OwnerID: "bbb222", Team: game.TeamRed,
		X: 321.123, Y: 322.321, VX: -480, VY: 0.5, Life: 0.8,
	})

	// Across the wire and back.
	raw, err := Marshal(EncodeWorld(host))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var snap Snapshot
	if err := Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	snap.Merge(client, "")

	if client.Tick != 4242 {
		t.Fatalf("tick = %d, want 4242", client.Tick)
	}
	if client.Phase != game.PhasePlaying {
		t.Fatalf("phase = %v, want playing", client.Phase)
	}
	if client.Score[game.TeamBlue] != 2 || client.Score[game.TeamRed] != 1 {
		t.Fatalf("score = %v, want [2 1]", client.Score)
	}

	ca := client.Players["aaa111"]
	if ca == nil {
		t.Fatal("player aaa111 missing after merge")
	}
	if !closeTo(ca.X, a.X, 0.01) || !closeTo(ca.Y, a.Y, 0.01) {
		t.Fatalf("position (%f,%f), want (%f,%f) within 0.01", ca.X, ca.Y, a.X, a.Y)
	}
	if ca.Facing != game.DirDown {
		t.Fatalf("facing = %v, want down", ca.Facing)
	}
	if ca.State != game.LifeCarrying {
		t.Fatalf("state = %v, want carrying", ca.State)
	}
	if !ca.Shielded {
		t.Fatal("shield flag lost")
	}

	cb := client.Players["bbb222"]
	if cb == nil || cb.State != game.LifeDead {
		t.Fatal("dead state lost")
	}
	if !closeTo(cb.RespawnTimer, 2.5, 0.1) {
		t.Fatalf("respawn timer = %f, want 2.5 within 0.1", cb.RespawnTimer)
	}

	cf := client.Flags[game.TeamRed]
	if cf.CarrierID != "aaa111" {
		t.Fatalf("carrier = %q, want aaa111", cf.CarrierID)
	}
	bf := client.Flags[game.TeamBlue]
	if !closeTo(bf.X, 400.004, 0.01) || !closeTo(bf.DropTimer, 6.75, 0.1) {
		t.Fatalf("blue flag = (%f, drop %f), want (400.004, 6.75)", bf.X, bf.DropTimer)
	}

	if len(client.PowerUps) != 1 || client.PowerUps[0].ID != 7 ||
		client.PowerUps[0].Kind != game.PowerShield {
		t.Fatalf("power-ups = %+v, want the shield with id 7", client.PowerUps)
	}
	if len(client.Projectiles) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(client.Projectiles))
	}
	cp := client.Projectiles[0]
	if !closeTo(cp.X, 321.123, 0.01) || !closeTo(cp.VX, -480, 0.01) || cp.Team != game.TeamRed {
		t.Fatalf("projectile = %+v, want the encoded red shot", cp)
	}
}

func TestSnapshotRoundTripYaw3D(t *testing.T) {
	host, client := worldPair(game.Mode3D)
	p := host.AddPlayer("p1", "Ann", game.TeamBlue)
	p.X, p.Y = 12.3456, 7.8912
	p.Yaw = 1.2345

	snap := EncodeWorld(host)
	snap.Merge(client, "")

	cp := client.Players["p1"]
	if !closeTo(cp.Yaw, 1.2345, 0.001) {
		t.Fatalf("yaw = %f, want 1.2345 within 0.001", cp.Yaw)
	}
	if !closeTo(cp.X, 12.3456, 0.01) {
		t.Fatalf("x = %f, want 12.3456 within 0.01", cp.X)
	}
}

func TestMergePreservesLocalOnlyFields(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.AddPlayer("p1", "", game.TeamBlue)

	local := client.AddPlayer("p1", "Zoe", game.TeamBlue)
	local.VX, local.VY = 10, -5
	local.DashCooldown = 2.0
	local.ShootCooldown = 0.3
	client.AddEvent("hello")

	EncodeWorld(host).Merge(client, "")

	got := client.Players["p1"]
	if got.Name != "Zoe" {
		t.Fatalf("name = %q, merge must preserve it", got.Name)
	}
	if got.VX != 10 || got.VY != -5 {
		t.Fatalf("velocity = (%f,%f), merge must preserve it", got.VX, got.VY)
	}
	if got.DashCooldown != 2.0 || got.ShootCooldown != 0.3 {
		t.Fatal("local cooldowns clobbered by merge")
	}
	if len(client.Events) != 1 || client.Events[0].Text != "hello" {
		t.Fatal("local events clobbered by merge")
	}
}

func TestMergeDropsAbsentPlayersExceptKeep(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.AddPlayer("aa", "A", game.TeamBlue)

	client.AddPlayer("aa", "A", game.TeamBlue)
	client.AddPlayer("bb", "B", game.TeamRed)
	client.AddPlayer("me", "Me", game.TeamRed)

	EncodeWorld(host).Merge(client, "me")

	if _, ok := client.Players["bb"]; ok {
		t.Fatal("player bb should have been dropped")
	}
	if _, ok := client.Players["me"]; !ok {
		t.Fatal("keepID player was evicted")
	}
	if _, ok := client.Players["aa"]; !ok {
		t.Fatal("snapshot player missing")
	}
}

func TestMergeUnknownPlayerGetsDefaultName(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.AddPlayer("abcdef123", "Whoever", game.TeamRed)

	EncodeWorld(host).Merge(client, "")

	got := client.Players["abcdef123"]
	if got == nil {
		t.Fatal("player not created on merge")
	}
	if got.Name != "abcdef" {
		t.Fatalf("name = %q, want truncated id abcdef", got.Name)
	}
	if got.Team != game.TeamRed {
		t.Fatalf("team = %v, want red", got.Team)
	}
}

func TestMergeToleratesUnknownCarrier(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.Flags[game.TeamRed].CarrierID = "ghost"

	EncodeWorld(host).Merge(client, "")
	if client.Flags[game.TeamRed].CarrierID != "ghost" {
		t.Fatal("carrier id not carried over")
	}

	// Ticking with a dangling carrier must not panic.
	client.Phase = game.PhasePlaying
	client.UpdateLogic(1.0 / game.TickRate)
}

func TestMergeRebuildsShotLifetime(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.Phase = game.PhasePlaying
	host.Projectiles = append(host.Projectiles, &game.Projectile{
		ID: 1, OwnerID: "r1", Team: game.TeamRed,
		X: 500, Y: 340, VX: -480, Life: 0.8,
	})

	EncodeWorld(host).Merge(client, "")
	if len(client.Projectiles) != 1 {
		t.Fatalf("projectiles after merge = %d, want 1", len(client.Projectiles))
	}
	if got := client.Projectiles[0].Life; got != game.ProjectileLife {
		t.Fatalf("rebuilt life = %f, want nominal %f", got, game.ProjectileLife)
	}

	// A peer promoted to host steps the merged world; in-flight shots must
	// survive that first tick.
	client.UpdateLogic(1.0 / game.TickRate)
	if len(client.Projectiles) != 1 {
		t.Fatalf("projectiles after a promoted tick = %d, want 1", len(client.Projectiles))
	}
}

func TestMergeBuffEdgeArmsDisplayTimer(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	hp := host.AddPlayer("p1", "", game.TeamBlue)
	hp.Shielded = true
	hp.ShieldTimer = 5.9
	client.AddPlayer("p1", "Ann", game.TeamBlue)

	EncodeWorld(host).Merge(client, "")
	got := client.Players["p1"]
	if got.ShieldTimer != game.ShieldTime {
		t.Fatalf("shield timer = %f, want armed to %f on rising edge", got.ShieldTimer, game.ShieldTime)
	}

	// No transition: the locally ticking timer survives the next merge.
	got.ShieldTimer = 3.0
	EncodeWorld(host).Merge(client, "")
	if got.ShieldTimer != 3.0 {
		t.Fatalf("shield timer = %f, want preserved 3.0 without a transition", got.ShieldTimer)
	}

	// Falling edge clears it.
	hp.Shielded = false
	EncodeWorld(host).Merge(client, "")
	if got.Shielded || got.ShieldTimer != 0 {
		t.Fatal("shield not cleared on falling edge")
	}
}

func TestEncodeSkipsInactivePowerUps(t *testing.T) {
	host, _ := worldPair(game.Mode2D)
	host.PowerUps = append(host.PowerUps,
		&game.PowerUp{ID: 1, Active: true, X: 100, Y: 100},
		&game.PowerUp{ID: 2, Active: false, X: 200, Y: 200},
	)
	snap := EncodeWorld(host)
	if len(snap.PowerUps) != 1 || snap.PowerUps[0].ID != 1 {
		t.Fatalf("snapshot power-ups = %+v, want only the active one", snap.PowerUps)
	}
}

func TestMergePreservesPowerUpPhaseByID(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.PowerUps = append(host.PowerUps, &game.PowerUp{ID: 3, Active: true, X: 100, Y: 100})
	client.PowerUps = append(client.PowerUps, &game.PowerUp{ID: 3, Active: true, X: 100, Y: 100, Phase: 1.5})

	EncodeWorld(host).Merge(client, "")
	if client.PowerUps[0].Phase != 1.5 {
		t.Fatalf("phase = %f, want preserved 1.5", client.PowerUps[0].Phase)
	}
}

func TestWinnerOnlyEncodedAtGameOver(t *testing.T) {
	host, client := worldPair(game.Mode2D)
	host.Phase = game.PhasePlaying
	host.Winner = game.TeamRed // stale scratch value, must not leak
	if snap := EncodeWorld(host); snap.Winner != 0 {
		t.Fatalf("winner = %c while playing, want unset", snap.Winner)
	}

	host.Phase = game.PhaseGameOver
	snap := EncodeWorld(host)
	if snap.Winner != 'r' {
		t.Fatalf("winner = %c, want r", snap.Winner)
	}
	snap.Merge(client, "")
	if client.Phase != game.PhaseGameOver || client.Winner != game.TeamRed {
		t.Fatal("game over state not merged")
	}
}
