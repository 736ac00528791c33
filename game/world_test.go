package game

import (
	"fmt"
	"testing"
)

func TestPickTeamBalances(t *testing.T) {
	w := newTestWorld(Mode2D)
	if got := w.PickTeam(); got != TeamBlue {
		t.Fatalf("empty world picks %v, want blue", got)
	}
	w.AddPlayer("a", "A", TeamBlue)
	if got := w.PickTeam(); got != TeamRed {
		t.Fatalf("one blue picks %v, want red", got)
	}
	w.AddPlayer("b", "B", TeamRed)
	if got := w.PickTeam(); got != TeamBlue {
		t.Fatalf("tied teams pick %v, want blue", got)
	}
}

func TestAddPlayerSpawnsOnOwnSide(t *testing.T) {
	w := newTestWorld(Mode2D)
	mid := w.Arena.WorldWidth() / 2
	for i := 0; i < 6; i++ {
		blue := w.AddPlayer(fmt.Sprintf("b%d", i), "B", TeamBlue)
		red := w.AddPlayer(fmt.Sprintf("r%d", i), "R", TeamRed)
		if blue.X >= mid {
			t.Fatalf("blue spawned at x=%f, right of mid %f", blue.X, mid)
		}
		if red.X <= mid {
			t.Fatalf("red spawned at x=%f, left of mid %f", red.X, mid)
		}
	}
}

func TestAddPlayerReplacesSameID(t *testing.T) {
	w := newTestWorld(Mode2D)
	w.AddPlayer("p", "Old", TeamBlue)
	p := w.AddPlayer("p", "New", TeamBlue)
	if len(w.Players) != 1 {
		t.Fatalf("players = %d, want 1 after re-add", len(w.Players))
	}
	if w.Players["p"] != p || p.Name != "New" {
		t.Fatal("re-added player not replaced")
	}
}

func TestRemoveUnknownPlayerIsNoop(t *testing.T) {
	w := newTestWorld(Mode2D)
	w.AddPlayer("p", "Ann", TeamBlue)
	w.RemovePlayer("ghost")
	if len(w.Players) != 1 {
		t.Fatalf("players = %d, want 1", len(w.Players))
	}
}

func TestEventFeedCapsAndDecays(t *testing.T) {
	w := newTestWorld(Mode2D)
	for i := 1; i <= MaxEvents+2; i++ {
		w.AddEvent(fmt.Sprintf("e%d", i))
	}
	if len(w.Events) != MaxEvents {
		t.Fatalf("events = %d, want cap %d", len(w.Events), MaxEvents)
	}
	if w.Events[len(w.Events)-1].Text != fmt.Sprintf("e%d", MaxEvents+2) {
		t.Fatal("newest event evicted instead of oldest")
	}
	if w.Events[0].Text != "e3" {
		t.Fatalf("oldest kept event = %q, want e3", w.Events[0].Text)
	}

	// Waiting-phase ticks still age events out.
	stepFor(w, nil, EventTTL+0.1)
	if len(w.Events) != 0 {
		t.Fatalf("events = %d after TTL, want 0", len(w.Events))
	}
}

func TestPlayersInOrderIsSorted(t *testing.T) {
	w := newTestWorld(Mode2D)
	for _, id := range []string{"zz", "aa", "mm"} {
		w.AddPlayer(id, id, TeamBlue)
	}
	got := w.PlayersInOrder()
	want := []string{"aa", "mm", "zz"}
	for i, p := range got {
		if p.ID != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, p.ID, want[i])
		}
	}
}
