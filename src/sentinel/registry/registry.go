package registry

import (
	"sync"
	"time"
)

// Ticket is one member's live support channel. A ticket with an empty
// ChannelID is a reservation whose channel is still being created; it
// counts as open for duplicate checks.
type Ticket struct {
	OwnerID   string
	ChannelID string
	Ref       string
	CreatedAt time.Time
}

// Counters are the monotonically adjusted membership statistics. Banned
// is floored at zero on unban.
type Counters struct {
	Passed int64
	Failed int64
	Joined int64
	Left   int64
	Banned int64
}

// Registry guards all state shared across event handlers: ticket
// reservations, last-activity timestamps and the stat counters. A single
// mutex is plenty at guild event rates.
type Registry struct {
	mu           sync.Mutex
	tickets      map[string]*Ticket // keyed by owner ID
	lastActivity map[string]time.Time
	counters     Counters
}

func New() *Registry {
	return &Registry{
		tickets:      make(map[string]*Ticket),
		lastActivity: make(map[string]time.Time),
	}
}

// ReserveTicket atomically claims the one ticket slot for a member.
// Returns false if the member already holds a reservation or a live
// ticket; the caller must not create a channel in that case.
func (r *Registry) ReserveTicket(ownerID, ref string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[ownerID]; exists {
		return false
	}
	r.tickets[ownerID] = &Ticket{
		OwnerID:   ownerID,
		Ref:       ref,
		CreatedAt: time.Now(),
	}
	return true
}

// FinalizeTicket records the channel created for a reservation.
func (r *Registry) FinalizeTicket(ownerID, channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tickets[ownerID]; ok {
		t.ChannelID = channelID
	}
}

// ReleaseTicket drops a member's reservation, live or pending. Returns
// the released ticket so the caller can clean up its channel.
func (r *Registry) ReleaseTicket(ownerID string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[ownerID]
	if !ok {
		return Ticket{}, false
	}
	delete(r.tickets, ownerID)
	return *t, true
}

// TicketByChannel resolves a channel to its owning ticket.
func (r *Registry) TicketByChannel(channelID string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.ChannelID != "" && t.ChannelID == channelID {
			return *t, true
		}
	}
	return Ticket{}, false
}

func (r *Registry) TicketByOwner(ownerID string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[ownerID]
	if !ok {
		return Ticket{}, false
	}
	return *t, true
}

// TouchActivity records a member's latest message time.
func (r *Registry) TouchActivity(userID string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity[userID] = at
}

func (r *Registry) LastActivity(userID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.lastActivity[userID]
	return at, ok
}

// PruneMember clears everything tied to a departed member and returns
// the ticket it held, if any, so the channel can be removed.
func (r *Registry) PruneMember(userID string) (Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lastActivity, userID)

	t, ok := r.tickets[userID]
	if !ok {
		return Ticket{}, false
	}
	delete(r.tickets, userID)
	return *t, true
}

func (r *Registry) AddPassed() { r.add(func(c *Counters) { c.Passed++ }) }
func (r *Registry) AddFailed() { r.add(func(c *Counters) { c.Failed++ }) }
func (r *Registry) AddJoined() { r.add(func(c *Counters) { c.Joined++ }) }
func (r *Registry) AddLeft()   { r.add(func(c *Counters) { c.Left++ }) }
func (r *Registry) AddBanned() { r.add(func(c *Counters) { c.Banned++ }) }

// RemoveBanned decrements the ban counter, floored at zero so unban
// events for bans predating the process cannot drive it negative.
func (r *Registry) RemoveBanned() {
	r.add(func(c *Counters) {
		if c.Banned > 0 {
			c.Banned--
		}
	})
}

func (r *Registry) add(fn func(*Counters)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.counters)
}

// Counters returns a point-in-time snapshot.
func (r *Registry) Counters() Counters {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters
}
