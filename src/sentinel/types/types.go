package types

import "time"

// Settings
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}

// Anchor is the durable record of a panel message. One row per slot
// ("ticket-panel", "role-panel").
type Anchor struct {
	Slot      string `gorm:"primaryKey;size:32"`
	ChannelID string `gorm:"size:64;not null"`
	MessageID string `gorm:"size:64;not null"`
	UpdatedAt time.Time
}

// ModAction is an audit row for every enforcement the bot performs.
type ModAction struct {
	ID        uint64 `gorm:"primaryKey"`
	Ref       string `gorm:"size:36;index"`
	Kind      string `gorm:"size:16;index;not null"` // ban, unban, kick, clear, filter
	TargetID  string `gorm:"size:64;index"`
	ActorID   string `gorm:"size:64"`
	ChannelID string `gorm:"size:64"`
	Reason    string `gorm:"size:512"`
	CreatedAt time.Time
}

// ScheduledUnban persists the expiry of a timed ban so a restart does not
// leave the member banned forever.
type ScheduledUnban struct {
	ID      uint64 `gorm:"primaryKey"`
	UserID  string `gorm:"size:64;index;not null"`
	GuildID string `gorm:"size:64;not null"`
	UnbanAt time.Time
	Reason  string `gorm:"size:512"`
	Done    bool   `gorm:"default:false;index"`
}
