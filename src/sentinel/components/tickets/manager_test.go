package tickets

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stake-plus/sentinel/src/sentinel/registry"
)

type fakeGateway struct {
	mu        sync.Mutex
	created   int
	deleted   []string
	staff     map[string]bool
	createErr error
	deleteErr error
}

func (g *fakeGateway) CreateTicketChannel(name, topic, ownerID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.created++
	return fmt.Sprintf("chan-%d", g.created), nil
}

func (g *fakeGateway) DeleteChannel(channelID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.deleted = append(g.deleted, channelID)
	return nil
}

func (g *fakeGateway) SendMessage(channelID, content string) error { return nil }

func (g *fakeGateway) IsStaff(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.staff[userID]
}

func (g *fakeGateway) channelsCreated() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.created
}

func newTestManager(gw *fakeGateway) (*Manager, *registry.Registry) {
	reg := registry.New()
	return New(Config{Gateway: gw, Registry: reg}), reg
}

func TestOpenCreatesSingleChannel(t *testing.T) {
	gw := &fakeGateway{}
	m, reg := newTestManager(gw)

	channelID, err := m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if channelID == "" {
		t.Fatal("expected a channel ID")
	}

	ticket, ok := reg.TicketByOwner("user1")
	if !ok || ticket.ChannelID != channelID {
		t.Fatalf("ticket not finalized: %+v ok=%v", ticket, ok)
	}

	if _, err := m.Open("user1", "Tester"); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second open: err = %v, want ErrAlreadyOpen", err)
	}
	if gw.channelsCreated() != 1 {
		t.Fatalf("channels created = %d, want 1", gw.channelsCreated())
	}
}

func TestConcurrentOpenSingleWinner(t *testing.T) {
	gw := &fakeGateway{}
	m, _ := newTestManager(gw)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Open("user1", "Tester")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyOpen):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || already != attempts-1 {
		t.Fatalf("ok=%d already=%d, want 1 and %d", ok, already, attempts-1)
	}
	if gw.channelsCreated() != 1 {
		t.Fatalf("channels created = %d, want 1", gw.channelsCreated())
	}
}

func TestOpenReleasesReservationOnCreateFailure(t *testing.T) {
	gw := &fakeGateway{createErr: errors.New("missing permissions")}
	m, reg := newTestManager(gw)

	if _, err := m.Open("user1", "Tester"); err == nil {
		t.Fatal("expected create failure to surface")
	}
	if _, ok := reg.TicketByOwner("user1"); ok {
		t.Fatal("reservation must be released after create failure")
	}

	// Slot is usable again.
	gw.createErr = nil
	if _, err := m.Open("user1", "Tester"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
}

func TestCloseAuthorization(t *testing.T) {
	gw := &fakeGateway{staff: map[string]bool{"staffer": true}}
	m, _ := newTestManager(gw)

	channelID, err := m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := m.Close(channelID, "stranger"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger close: err = %v, want ErrForbidden", err)
	}
	if err := m.Close("not-a-ticket", "user1"); !errors.Is(err, ErrNotATicketChannel) {
		t.Fatalf("non-ticket close: err = %v, want ErrNotATicketChannel", err)
	}

	if err := m.Close(channelID, "user1"); err != nil {
		t.Fatalf("owner close: %v", err)
	}

	// Staff can close someone else's ticket.
	channelID, err = m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := m.Close(channelID, "staffer"); err != nil {
		t.Fatalf("staff close: %v", err)
	}
}

func TestAuthorizeLeavesTicketIntact(t *testing.T) {
	gw := &fakeGateway{staff: map[string]bool{"staffer": true}}
	m, reg := newTestManager(gw)

	channelID, err := m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := m.Authorize(channelID, "stranger"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: err = %v, want ErrForbidden", err)
	}
	if err := m.Authorize("not-a-ticket", "user1"); !errors.Is(err, ErrNotATicketChannel) {
		t.Fatalf("non-ticket: err = %v, want ErrNotATicketChannel", err)
	}
	if err := m.Authorize(channelID, "user1"); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := m.Authorize(channelID, "staffer"); err != nil {
		t.Fatalf("staff: %v", err)
	}

	// Authorize is a pure check: the ticket stays open and nothing is
	// deleted, so a caller can respond in-channel before closing.
	if _, ok := reg.TicketByOwner("user1"); !ok {
		t.Fatal("ticket must remain open after authorization checks")
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", gw.deleted)
	}
}

func TestCloseReleasesReservationEvenIfDeleteFails(t *testing.T) {
	gw := &fakeGateway{}
	m, reg := newTestManager(gw)

	channelID, err := m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	gw.deleteErr = errors.New("channel already gone")
	if err := m.Close(channelID, "user1"); err == nil {
		t.Fatal("expected delete failure to surface")
	}
	if _, ok := reg.TicketByOwner("user1"); ok {
		t.Fatal("reservation must be released despite delete failure")
	}
}

func TestHandleDeparture(t *testing.T) {
	gw := &fakeGateway{}
	m, reg := newTestManager(gw)

	channelID, err := m.Open("user1", "Tester")
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	m.HandleDeparture("user1")
	if _, ok := reg.TicketByOwner("user1"); ok {
		t.Fatal("departure must release the ticket")
	}
	if len(gw.deleted) != 1 || gw.deleted[0] != channelID {
		t.Fatalf("deleted = %v, want [%s]", gw.deleted, channelID)
	}

	// Departure of a member without a ticket is a no-op.
	m.HandleDeparture("user2")
}

func TestChannelName(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"Tester", "ticket-tester"},
		{"Some User_99", "ticket-some-user-99"},
		{"日本語", "ticket-member"},
		{"--weird--", "ticket-weird"},
	}
	for _, tt := range tests {
		if got := channelName(tt.username); got != tt.want {
			t.Errorf("channelName(%q) = %q, want %q", tt.username, got, tt.want)
		}
	}
}
