package config

import (
	"log"
	"os"
	"strings"

	"github.com/stake-plus/sentinel/src/sentinel/data"
	"gorm.io/gorm"
)

type Config struct {
	Token            string
	GuildID          string
	TicketChannelID  string
	StaffRoleID      string
	RolePanelChannel string
	TargetChannelID  string // every message here gets vote reactions
	AllowedLinkChans map[string]bool
	EmojiRoles       map[string]string
	LinkFilterMode   string // "invites" or "urls"
	JWTSecret        string
	APIListenAddr    string
	MySQLDSN         string
	RedisURL         string
}

// Load reads configuration from the settings table with environment
// fallbacks, mirroring how every other stake-plus bot boots.
func Load(db *gorm.DB) Config {
	if err := data.LoadSettings(db); err != nil {
		log.Printf("config: load settings: %v", err)
	}

	cfg := Config{
		Token:            setting("discord_token", "DISCORD_TOKEN", ""),
		GuildID:          setting("guild_id", "GUILD_ID", ""),
		TicketChannelID:  setting("ticket_channel_id", "TICKET_CHANNEL_ID", ""),
		StaffRoleID:      setting("staff_role_id", "STAFF_ROLE_ID", ""),
		RolePanelChannel: setting("role_panel_channel_id", "ROLE_PANEL_CHANNEL_ID", ""),
		TargetChannelID:  setting("target_channel_id", "TARGET_CHANNEL_ID", ""),
		LinkFilterMode:   setting("link_filter_mode", "LINK_FILTER_MODE", "invites"),
		JWTSecret:        setting("jwt_secret", "JWT_SECRET", ""),
		APIListenAddr:    setting("api_listen_addr", "API_LISTEN_ADDR", ":8090"),
		MySQLDSN:         getenv("MYSQL_DSN", "sentinel:sentinel@tcp(127.0.0.1:3306)/sentinel"),
		RedisURL:         getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
	}

	cfg.AllowedLinkChans = parseIDSet(setting("allowed_link_channels", "ALLOWED_LINK_CHANNELS", ""))
	cfg.EmojiRoles = parseEmojiRoles(setting("emoji_roles", "EMOJI_ROLES", ""))

	return cfg
}

func setting(name, envKey, def string) string {
	val := data.GetSetting(name)
	if val == "" {
		val = os.Getenv(envKey)
	}
	if val == "" {
		val = def
	}
	return val
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseIDSet splits a comma-separated list of channel IDs.
func parseIDSet(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			set[id] = true
		}
	}
	return set
}

// parseEmojiRoles parses "emoji:roleID,emoji:roleID" pairs.
func parseEmojiRoles(raw string) map[string]string {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			log.Printf("config: skipping malformed emoji role pair %q", pair)
			continue
		}
		emoji := strings.TrimSpace(parts[0])
		roleID := strings.TrimSpace(parts[1])
		if emoji == "" || roleID == "" {
			continue
		}
		mapping[emoji] = roleID
	}
	return mapping
}
