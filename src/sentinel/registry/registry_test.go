package registry

import (
	"sync"
	"testing"
	"time"
)

func TestReserveTicketSingleWinner(t *testing.T) {
	r := New()

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.ReserveTicket("user1", "ref")
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly 1 successful reservation, got %d", won)
	}
}

func TestReserveTicketPendingCountsAsOpen(t *testing.T) {
	r := New()

	if !r.ReserveTicket("user1", "ref1") {
		t.Fatal("first reservation should succeed")
	}
	// Channel not finalized yet; duplicate must still be rejected.
	if r.ReserveTicket("user1", "ref2") {
		t.Fatal("reservation with pending channel should be rejected")
	}

	r.FinalizeTicket("user1", "chan1")
	if r.ReserveTicket("user1", "ref3") {
		t.Fatal("reservation with live ticket should be rejected")
	}
}

func TestTicketByChannel(t *testing.T) {
	r := New()
	r.ReserveTicket("user1", "ref1")
	r.FinalizeTicket("user1", "chan1")

	ticket, ok := r.TicketByChannel("chan1")
	if !ok || ticket.OwnerID != "user1" {
		t.Fatalf("expected ticket owned by user1, got %+v ok=%v", ticket, ok)
	}

	if _, ok := r.TicketByChannel("other"); ok {
		t.Fatal("unknown channel should not resolve to a ticket")
	}

	// Pending reservations have no channel and must not match empty IDs.
	r.ReserveTicket("user2", "ref2")
	if _, ok := r.TicketByChannel(""); ok {
		t.Fatal("empty channel ID should never resolve")
	}
}

func TestReleaseTicket(t *testing.T) {
	r := New()
	r.ReserveTicket("user1", "ref1")
	r.FinalizeTicket("user1", "chan1")

	ticket, ok := r.ReleaseTicket("user1")
	if !ok || ticket.ChannelID != "chan1" {
		t.Fatalf("expected released ticket with chan1, got %+v ok=%v", ticket, ok)
	}

	if _, ok := r.ReleaseTicket("user1"); ok {
		t.Fatal("second release should find nothing")
	}
	if !r.ReserveTicket("user1", "ref2") {
		t.Fatal("slot should be free after release")
	}
}

func TestBannedCounterFloor(t *testing.T) {
	r := New()

	r.RemoveBanned()
	if got := r.Counters().Banned; got != 0 {
		t.Fatalf("banned counter went negative: %d", got)
	}

	r.AddBanned()
	r.AddBanned()
	r.RemoveBanned()
	if got := r.Counters().Banned; got != 1 {
		t.Fatalf("banned counter = %d, want 1", got)
	}
}

func TestPruneMember(t *testing.T) {
	r := New()
	r.TouchActivity("user1", time.Now())
	r.ReserveTicket("user1", "ref1")
	r.FinalizeTicket("user1", "chan1")

	ticket, ok := r.PruneMember("user1")
	if !ok || ticket.ChannelID != "chan1" {
		t.Fatalf("expected pruned ticket with chan1, got %+v ok=%v", ticket, ok)
	}
	if _, ok := r.LastActivity("user1"); ok {
		t.Fatal("activity should be pruned")
	}

	// Pruning an unknown member is a no-op, not a crash.
	if _, ok := r.PruneMember("ghost"); ok {
		t.Fatal("unknown member should prune nothing")
	}
}
