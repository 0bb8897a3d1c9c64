package tickets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/registry"
)

var (
	// ErrAlreadyOpen rejects a second ticket while one is live or its
	// channel is still being created.
	ErrAlreadyOpen = errors.New("tickets: member already has an open ticket")

	// ErrNotATicketChannel rejects close invoked outside a ticket.
	ErrNotATicketChannel = errors.New("tickets: not a ticket channel")

	// ErrForbidden rejects close by someone who is neither the owner
	// nor staff.
	ErrForbidden = errors.New("tickets: not authorized to close this ticket")
)

// Gateway is the slice of Discord the ticket manager needs.
type Gateway interface {
	CreateTicketChannel(name, topic, ownerID string) (channelID string, err error)
	DeleteChannel(channelID, reason string) error
	SendMessage(channelID, content string) error
	IsStaff(userID string) bool
}

type Config struct {
	Gateway  Gateway
	Registry *registry.Registry
	Redis    *redis.Client
}

// Manager enforces the one-open-ticket-per-member invariant and drives
// channel creation and teardown around it.
type Manager struct {
	config Config
}

func New(config Config) *Manager {
	return &Manager{config: config}
}

// Open reserves the member's ticket slot, creates the channel and
// finalizes the ticket. The reservation is visible to concurrent
// openers immediately, before the channel exists, so a double click
// yields exactly one channel.
func (m *Manager) Open(ownerID, username string) (string, error) {
	ref := uuid.NewString()

	if !m.config.Registry.ReserveTicket(ownerID, ref) {
		return "", ErrAlreadyOpen
	}

	name := channelName(username)
	topic := fmt.Sprintf("Ticket %s for %s (ID: %s)", ref, username, ownerID)

	channelID, err := m.config.Gateway.CreateTicketChannel(name, topic, ownerID)
	if err != nil {
		// Channel creation is a remote call; give the slot back so the
		// member can retry.
		m.config.Registry.ReleaseTicket(ownerID)
		return "", fmt.Errorf("create ticket channel: %w", err)
	}

	m.config.Registry.FinalizeTicket(ownerID, channelID)

	greeting := fmt.Sprintf("Hello <@%s>! A staff member will be with you shortly.\nUse /close to close this ticket.", ownerID)
	if err := m.config.Gateway.SendMessage(channelID, greeting); err != nil {
		log.Printf("tickets: greeting in %s: %v", channelID, err)
	}

	m.publish("ticket_open", ownerID, channelID, ref)
	return channelID, nil
}

// Authorize reports whether the requester may close the ticket owning
// the channel, without touching any state. Callers that need to reply
// inside the ticket channel check this first; once Close runs, the
// channel is gone and there is nowhere to put a response.
func (m *Manager) Authorize(channelID, requesterID string) error {
	t, ok := m.config.Registry.TicketByChannel(channelID)
	if !ok {
		return ErrNotATicketChannel
	}
	if requesterID != t.OwnerID && !m.config.Gateway.IsStaff(requesterID) {
		return ErrForbidden
	}
	return nil
}

// Close resolves the channel to its ticket, checks authorization and
// tears it down. The reservation is released even when channel deletion
// fails; a dangling reservation would lock the member out for good,
// while a leftover channel is visible and cleanable by staff.
func (m *Manager) Close(channelID, requesterID string) error {
	if err := m.Authorize(channelID, requesterID); err != nil {
		return err
	}

	t, ok := m.config.Registry.TicketByChannel(channelID)
	if !ok {
		return ErrNotATicketChannel
	}

	m.config.Registry.ReleaseTicket(t.OwnerID)
	m.publish("ticket_close", t.OwnerID, channelID, t.Ref)

	reason := fmt.Sprintf("Ticket closed by %s", requesterID)
	if err := m.config.Gateway.DeleteChannel(channelID, reason); err != nil {
		return fmt.Errorf("delete ticket channel: %w", err)
	}
	return nil
}

// HandleDeparture destroys the ticket of a member who left the guild.
func (m *Manager) HandleDeparture(ownerID string) {
	t, ok := m.config.Registry.ReleaseTicket(ownerID)
	if !ok || t.ChannelID == "" {
		return
	}

	m.publish("ticket_close", ownerID, t.ChannelID, t.Ref)
	if err := m.config.Gateway.DeleteChannel(t.ChannelID, "Ticket owner left the guild"); err != nil {
		log.Printf("tickets: delete channel %s after departure: %v", t.ChannelID, err)
	}
}

func (m *Manager) publish(event, ownerID, channelID, ref string) {
	if m.config.Redis == nil {
		return
	}
	_ = data.PublishEvent(context.Background(), m.config.Redis, map[string]interface{}{
		"event":   event,
		"owner":   ownerID,
		"channel": channelID,
		"ref":     ref,
		"time":    time.Now().Unix(),
	})
}

func channelName(username string) string {
	name := strings.ToLower(username)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ', r == '_', r == '.':
			return '-'
		default:
			return -1
		}
	}, name)
	name = strings.Trim(name, "-")
	if name == "" {
		name = "member"
	}
	return "ticket-" + name
}
