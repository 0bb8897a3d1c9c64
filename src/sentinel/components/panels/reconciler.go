package panels

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/types"
)

const (
	SlotTicketPanel = "ticket-panel"
	SlotRolePanel   = "role-panel"

	// TicketPanelMarker identifies the ticket panel message when the
	// durable anchor row is lost and history has to be scanned.
	TicketPanelMarker = "Click the button below to create a ticket."

	// RolePanelTitle is the embed title of the role panel, used the
	// same way during history recovery.
	RolePanelTitle = "Self-Assign Roles"

	// TicketButtonID is the custom ID of the persistent ticket button.
	TicketButtonID = "create_ticket_button"

	historyScanLimit = 50
)

// Message is the slim view of a channel message the reconciler needs
// for history scans.
type Message struct {
	ID         string
	AuthorID   string
	Content    string
	EmbedTitle string
}

// Gateway is the slice of Discord the reconciler talks to.
type Gateway interface {
	BotUserID() string
	FetchMessage(channelID, messageID string) (bool, error)
	FetchHistory(channelID string, limit int) ([]Message, error)
	CreateRolePanel(channelID, description string) (messageID string, err error)
	CreateTicketPanel(channelID, content, buttonID string) (messageID string, err error)
	AddReaction(channelID, messageID, emoji string) error
	GrantRole(userID, roleID string) error
	RevokeRole(userID, roleID string) error
	RoleName(roleID string) string
}

type Config struct {
	Gateway          Gateway
	Store            data.AnchorStore
	TicketChannelID  string
	RolePanelChannel string
	EmojiRoles       map[string]string
}

// Reconciler establishes and recovers the two anchor messages across
// restarts and routes role-panel reaction deltas to role changes.
type Reconciler struct {
	config Config

	mu            sync.RWMutex
	rolePanelID   string
	ticketPanelID string
}

func New(config Config) *Reconciler {
	return &Reconciler{config: config}
}

// Reconcile runs the idempotent startup pass for both slots. With an
// intact anchor it costs one fetch per slot and sends nothing.
func (r *Reconciler) Reconcile() error {
	ticketID, err := r.reconcileSlot(SlotTicketPanel, r.config.TicketChannelID,
		func(m Message) bool { return strings.Contains(m.Content, TicketPanelMarker) },
		r.createTicketPanel,
	)
	if err != nil {
		return fmt.Errorf("reconcile ticket panel: %w", err)
	}

	roleID, err := r.reconcileSlot(SlotRolePanel, r.config.RolePanelChannel,
		func(m Message) bool { return m.EmbedTitle == RolePanelTitle },
		r.createRolePanel,
	)
	if err != nil {
		return fmt.Errorf("reconcile role panel: %w", err)
	}

	r.mu.Lock()
	r.ticketPanelID = ticketID
	r.rolePanelID = roleID
	r.mu.Unlock()

	return nil
}

// reconcileSlot resolves one slot to a live message ID: stored anchor
// first, then a bounded history scan to repair a lost row, then a fresh
// panel as the terminal fallback. Never produces two live panels.
func (r *Reconciler) reconcileSlot(slot, channelID string, marker func(Message) bool, create func(string) (string, error)) (string, error) {
	anchor, err := r.config.Store.GetAnchor(slot)
	if err != nil {
		return "", fmt.Errorf("load anchor %s: %w", slot, err)
	}

	if anchor != nil {
		found, err := r.config.Gateway.FetchMessage(anchor.ChannelID, anchor.MessageID)
		if err != nil {
			// Only a definite not-found may fall through to the repair
			// path. A transport or permission failure says nothing about
			// the message, and creating a replacement for a panel that
			// is still live would leave two of them.
			return "", fmt.Errorf("fetch anchor %s: %w", slot, err)
		}
		if found {
			return anchor.MessageID, nil
		}
		log.Printf("panels: stored %s message %s is gone, scanning history", slot, anchor.MessageID)
	}

	history, err := r.config.Gateway.FetchHistory(channelID, historyScanLimit)
	if err != nil {
		return "", fmt.Errorf("scan history for %s: %w", slot, err)
	}
	botID := r.config.Gateway.BotUserID()
	for _, m := range history {
		if m.AuthorID != botID || !marker(m) {
			continue
		}
		if err := r.persist(slot, channelID, m.ID); err != nil {
			return "", err
		}
		log.Printf("panels: adopted existing %s message %s", slot, m.ID)
		return m.ID, nil
	}

	messageID, err := create(channelID)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", slot, err)
	}
	if err := r.persist(slot, channelID, messageID); err != nil {
		return "", err
	}
	log.Printf("panels: created new %s message %s", slot, messageID)
	return messageID, nil
}

func (r *Reconciler) persist(slot, channelID, messageID string) error {
	err := r.config.Store.PutAnchor(&types.Anchor{
		Slot:      slot,
		ChannelID: channelID,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("persist anchor %s: %w", slot, err)
	}
	return nil
}

func (r *Reconciler) createTicketPanel(channelID string) (string, error) {
	return r.config.Gateway.CreateTicketPanel(channelID, TicketPanelMarker, TicketButtonID)
}

func (r *Reconciler) createRolePanel(channelID string) (string, error) {
	var b strings.Builder
	b.WriteString("React to assign yourself a role:\n")
	for _, emoji := range r.sortedEmojis() {
		fmt.Fprintf(&b, "%s : %s\n", emoji, r.config.Gateway.RoleName(r.config.EmojiRoles[emoji]))
	}

	messageID, err := r.config.Gateway.CreateRolePanel(channelID, b.String())
	if err != nil {
		return "", err
	}

	for _, emoji := range r.sortedEmojis() {
		if err := r.config.Gateway.AddReaction(channelID, messageID, emoji); err != nil {
			log.Printf("panels: seed reaction %s: %v", emoji, err)
		}
	}
	return messageID, nil
}

func (r *Reconciler) sortedEmojis() []string {
	emojis := make([]string, 0, len(r.config.EmojiRoles))
	for e := range r.config.EmojiRoles {
		emojis = append(emojis, e)
	}
	sort.Strings(emojis)
	return emojis
}

// RolePanelID returns the current role panel anchor, empty before the
// first reconcile.
func (r *Reconciler) RolePanelID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rolePanelID
}

// TicketPanelID returns the current ticket panel anchor.
func (r *Reconciler) TicketPanelID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ticketPanelID
}

// HandleReactionAdd grants the mapped role for a reaction on the role
// panel. Reactions elsewhere, from the bot itself, or with unmapped
// emojis are ignored. Granting an already-held role is a no-op on the
// Discord side, so duplicate deliveries are harmless.
func (r *Reconciler) HandleReactionAdd(messageID, userID, emoji string) {
	roleID, ok := r.routable(messageID, userID, emoji)
	if !ok {
		return
	}
	if err := r.config.Gateway.GrantRole(userID, roleID); err != nil {
		log.Printf("panels: grant role %s to %s: %v", roleID, userID, err)
	}
}

// HandleReactionRemove revokes the mapped role, with the same filters.
func (r *Reconciler) HandleReactionRemove(messageID, userID, emoji string) {
	roleID, ok := r.routable(messageID, userID, emoji)
	if !ok {
		return
	}
	if err := r.config.Gateway.RevokeRole(userID, roleID); err != nil {
		log.Printf("panels: revoke role %s from %s: %v", roleID, userID, err)
	}
}

func (r *Reconciler) routable(messageID, userID, emoji string) (string, bool) {
	if messageID == "" || messageID != r.RolePanelID() {
		return "", false
	}
	if userID == r.config.Gateway.BotUserID() {
		return "", false
	}
	roleID, ok := r.config.EmojiRoles[emoji]
	return roleID, ok
}
