package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/gorm"
)

var (
	// ErrForbidden rejects a ban whose target the actor cannot act on.
	ErrForbidden = errors.New("moderation: not authorized to ban this member")

	// ErrBadDuration rejects malformed ban durations.
	ErrBadDuration = errors.New("moderation: invalid duration, use '7d', '12h' or 'permanent'")
)

// Gateway is the slice of Discord the moderation manager needs.
type Gateway interface {
	Ban(userID, reason string) error
	Unban(userID string) error
	DeleteMessage(channelID, messageID string) error
	RecentMessages(channelID string, limit int) ([]HistoryMessage, error)
	// Outranks reports whether the actor's highest role sits strictly
	// above the target's. Equal or higher targets cannot be banned.
	Outranks(actorID, targetID string) (bool, error)
}

// HistoryMessage is the slim message view used by Clear.
type HistoryMessage struct {
	ID        string
	AuthorID  string
	Timestamp time.Time
}

type Config struct {
	Gateway Gateway
	DB      *gorm.DB
	Redis   *redis.Client
	GuildID string
}

// Manager performs bans, kicks scheduled unbans back to life after a
// restart, and bulk-clears member messages.
type Manager struct {
	config Config
}

func New(config Config) *Manager {
	return &Manager{config: config}
}

// ParseDuration parses a ban duration argument. Returns zero for a
// permanent ban.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "permanent" {
		return 0, nil
	}
	if len(raw) < 2 {
		return 0, ErrBadDuration
	}

	amount, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || amount <= 0 {
		return 0, ErrBadDuration
	}

	switch raw[len(raw)-1] {
	case 'd':
		return time.Duration(amount) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(amount) * time.Hour, nil
	default:
		return 0, ErrBadDuration
	}
}

// Ban validates and executes a ban. Self-bans and targets of equal or
// higher rank are rejected before any remote call. A non-zero duration
// persists a scheduled unban and arms its timer.
func (m *Manager) Ban(ctx context.Context, actorID, targetID, durationRaw, reason string) error {
	if reason == "" {
		reason = "No reason provided"
	}

	if targetID == actorID {
		return ErrForbidden
	}
	outranks, err := m.config.Gateway.Outranks(actorID, targetID)
	if err != nil {
		return fmt.Errorf("rank check: %w", err)
	}
	if !outranks {
		return ErrForbidden
	}

	duration, err := ParseDuration(durationRaw)
	if err != nil {
		return err
	}

	if err := m.config.Gateway.Ban(targetID, reason); err != nil {
		return fmt.Errorf("ban: %w", err)
	}

	m.logAction("ban", targetID, actorID, "", reason)
	m.publish("ban", targetID, actorID, reason)

	if duration > 0 {
		unban := types.ScheduledUnban{
			UserID:  targetID,
			GuildID: m.config.GuildID,
			UnbanAt: time.Now().Add(duration),
			Reason:  reason,
		}
		if m.config.DB != nil {
			if err := m.config.DB.Create(&unban).Error; err != nil {
				log.Printf("moderation: persist scheduled unban for %s: %v", targetID, err)
			}
		}
		m.armUnban(ctx, unban)
	}

	return nil
}

// ReplayPendingUnbans re-arms timers for unbans persisted before a
// restart. Anything already past due fires immediately.
func (m *Manager) ReplayPendingUnbans(ctx context.Context) {
	if m.config.DB == nil {
		return
	}

	var pending []types.ScheduledUnban
	if err := m.config.DB.Where("done = ? AND guild_id = ?", false, m.config.GuildID).Find(&pending).Error; err != nil {
		log.Printf("moderation: load scheduled unbans: %v", err)
		return
	}

	for _, unban := range pending {
		m.armUnban(ctx, unban)
	}
	if len(pending) > 0 {
		log.Printf("moderation: re-armed %d scheduled unbans", len(pending))
	}
}

func (m *Manager) armUnban(ctx context.Context, unban types.ScheduledUnban) {
	go func() {
		wait := time.Until(unban.UnbanAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				// Row stays pending; the next boot replays it.
				return
			}
		}

		if err := m.config.Gateway.Unban(unban.UserID); err != nil {
			log.Printf("moderation: scheduled unban of %s: %v", unban.UserID, err)
			return
		}

		if m.config.DB != nil && unban.ID != 0 {
			if err := m.config.DB.Model(&types.ScheduledUnban{}).Where("id = ?", unban.ID).Update("done", true).Error; err != nil {
				log.Printf("moderation: mark unban %d done: %v", unban.ID, err)
			}
		}

		m.logAction("unban", unban.UserID, "", "", "timed ban expired")
		m.publish("unban", unban.UserID, "", "timed ban expired")
	}()
}

// Clear deletes a member's messages in a channel, bounded to the most
// recent window and an optional age limit in days. Returns the number
// of messages removed.
func (m *Manager) Clear(channelID, actorID, targetID string, maxAgeDays int) (int, error) {
	history, err := m.config.Gateway.RecentMessages(channelID, 100)
	if err != nil {
		return 0, fmt.Errorf("fetch history: %w", err)
	}

	var cutoff time.Time
	if maxAgeDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -maxAgeDays)
	}

	deleted := 0
	for _, msg := range history {
		if msg.AuthorID != targetID {
			continue
		}
		if !cutoff.IsZero() && msg.Timestamp.Before(cutoff) {
			continue
		}
		if err := m.config.Gateway.DeleteMessage(channelID, msg.ID); err != nil {
			log.Printf("moderation: clear message %s: %v", msg.ID, err)
			continue
		}
		deleted++
	}

	m.logAction("clear", targetID, actorID, channelID, fmt.Sprintf("%d messages", deleted))
	return deleted, nil
}

func (m *Manager) logAction(kind, targetID, actorID, channelID, reason string) {
	if m.config.DB == nil {
		return
	}
	action := types.ModAction{
		Ref:       uuid.NewString(),
		Kind:      kind,
		TargetID:  targetID,
		ActorID:   actorID,
		ChannelID: channelID,
		Reason:    reason,
	}
	if err := m.config.DB.Create(&action).Error; err != nil {
		log.Printf("moderation: record %s action: %v", kind, err)
	}
}

func (m *Manager) publish(event, targetID, actorID, reason string) {
	if m.config.Redis == nil {
		return
	}
	_ = data.PublishEvent(context.Background(), m.config.Redis, map[string]interface{}{
		"event":  event,
		"target": targetID,
		"actor":  actorID,
		"reason": reason,
		"time":   time.Now().Unix(),
	})
}
