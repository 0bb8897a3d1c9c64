package modfilter

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/registry"
	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/gorm"
)

// Filter modes. "invites" blocks Discord invite links only; "urls"
// blocks any http/https link.
const (
	ModeInvites = "invites"
	ModeURLs    = "urls"
)

const (
	noticeTTL = 10 * time.Second

	// Identical messages from this many distinct authors inside the
	// burst window get flagged as a possible raid.
	burstThreshold = 5
	burstWindow    = 30 * time.Second
)

// Vote reactions seeded on every message in the configured vote channel.
var voteEmojis = []string{"👍", "👎"}

// Gateway is the slice of Discord the filter needs.
type Gateway interface {
	DeleteMessage(channelID, messageID string) error
	Notice(channelID, content string) // transient, auto-expiring
	ChannelParentID(channelID string) string
	AddReaction(channelID, messageID, emoji string) error
}

type Config struct {
	Gateway       Gateway
	Registry      *registry.Registry
	Redis         *redis.Client
	DB            *gorm.DB
	AllowedChans  map[string]bool
	Mode          string
	VoteChannelID string
}

// Filter evaluates every inbound member message: records activity,
// enforces the link policy and watches for copy-paste bursts.
type Filter struct {
	config Config

	mu     sync.Mutex
	bursts map[uint64]*burst
}

type burst struct {
	first   time.Time
	authors map[string]bool
	flagged bool
}

func New(config Config) *Filter {
	if config.Mode == "" {
		config.Mode = ModeInvites
	}
	return &Filter{
		config: config,
		bursts: make(map[uint64]*burst),
	}
}

// Handle processes one non-bot message. Returns true when the message
// was removed by policy.
func (f *Filter) Handle(channelID, messageID, authorID, content string) bool {
	f.config.Registry.TouchActivity(authorID, time.Now())
	f.trackBurst(authorID, content)

	if f.disallowed(content) && !f.exempt(channelID) {
		// Delete and notice are independent best-effort operations; one
		// failing must not stop the other.
		if err := f.config.Gateway.DeleteMessage(channelID, messageID); err != nil {
			log.Printf("modfilter: delete message %s: %v", messageID, err)
		}
		f.config.Gateway.Notice(channelID, fmt.Sprintf("<@%s>, links are not allowed here.", authorID))

		f.record(channelID, authorID)
		return true
	}

	if f.config.VoteChannelID != "" && channelID == f.config.VoteChannelID {
		f.seedVotes(channelID, messageID)
	}
	return false
}

// seedVotes adds the up/down reactions to a message in the vote channel.
func (f *Filter) seedVotes(channelID, messageID string) {
	for _, emoji := range voteEmojis {
		if err := f.config.Gateway.AddReaction(channelID, messageID, emoji); err != nil {
			log.Printf("modfilter: seed vote %s on %s: %v", emoji, messageID, err)
		}
	}
}

// exempt reports whether the channel, or its parent category when the
// channel itself carries no policy, is on the allow-list.
func (f *Filter) exempt(channelID string) bool {
	if f.config.AllowedChans[channelID] {
		return true
	}
	if parent := f.config.Gateway.ChannelParentID(channelID); parent != "" {
		return f.config.AllowedChans[parent]
	}
	return false
}

func (f *Filter) disallowed(content string) bool {
	lower := strings.ToLower(content)
	switch f.config.Mode {
	case ModeURLs:
		return strings.Contains(lower, "http://") || strings.Contains(lower, "https://")
	default:
		return strings.Contains(lower, "discord.gg/") || strings.Contains(lower, "discord.com/invite/")
	}
}

// trackBurst fingerprints message bodies and flags identical content
// arriving from many members at once, the usual shape of a raid.
func (f *Filter) trackBurst(authorID, content string) {
	body := strings.TrimSpace(content)
	if len(body) < 12 {
		return
	}
	sum := xxhash.ChecksumString64(body)
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	b, ok := f.bursts[sum]
	if !ok || now.Sub(b.first) > burstWindow {
		f.bursts[sum] = &burst{first: now, authors: map[string]bool{authorID: true}}
		f.sweep(now)
		return
	}

	b.authors[authorID] = true
	if !b.flagged && len(b.authors) >= burstThreshold {
		b.flagged = true
		log.Printf("modfilter: possible raid, identical content from %d members (hash %x)", len(b.authors), sum)
		if f.config.Redis != nil {
			_ = data.PublishEvent(context.Background(), f.config.Redis, map[string]interface{}{
				"event":   "raid_burst",
				"hash":    fmt.Sprintf("%x", sum),
				"authors": len(b.authors),
				"time":    now.Unix(),
			})
		}
	}
}

func (f *Filter) sweep(now time.Time) {
	for sum, b := range f.bursts {
		if now.Sub(b.first) > burstWindow {
			delete(f.bursts, sum)
		}
	}
}

func (f *Filter) record(channelID, authorID string) {
	if f.config.DB != nil {
		action := types.ModAction{
			Kind:      "filter",
			TargetID:  authorID,
			ChannelID: channelID,
			Reason:    "disallowed link",
		}
		if err := f.config.DB.Create(&action).Error; err != nil {
			log.Printf("modfilter: record action: %v", err)
		}
	}

	if f.config.Redis != nil {
		_ = data.PublishEvent(context.Background(), f.config.Redis, map[string]interface{}{
			"event":   "filter_delete",
			"user":    authorID,
			"channel": channelID,
			"time":    time.Now().Unix(),
		})
	}
}
