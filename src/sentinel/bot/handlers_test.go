package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/sentinel/src/sentinel/config"
)

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	b, err := New(config.Config{Token: "token", GuildID: "guild1"}, nil, nil)
	if err != nil {
		t.Fatalf("new bot: %v", err)
	}
	return b
}

func memberRemove(id string, bot bool) *discordgo.GuildMemberRemove {
	return &discordgo.GuildMemberRemove{
		Member: &discordgo.Member{User: &discordgo.User{ID: id, Bot: bot}},
	}
}

func TestMemberJoinIgnoresBots(t *testing.T) {
	b := newTestBot(t)

	b.handleMemberJoin(nil, &discordgo.GuildMemberAdd{
		Member: &discordgo.Member{User: &discordgo.User{ID: "bot1", Bot: true}},
	})
	b.wg.Wait()

	if got := b.registry.Counters().Joined; got != 0 {
		t.Fatalf("joined = %d, want 0 for a bot join", got)
	}
}

func TestMemberRemoveIgnoresBots(t *testing.T) {
	b := newTestBot(t)

	// Bot departures move neither counter; otherwise Joined and Left
	// would drift apart, since joins already skip bots.
	b.handleMemberRemove(nil, memberRemove("bot1", true))
	b.wg.Wait()
	if got := b.registry.Counters().Left; got != 0 {
		t.Fatalf("left = %d, want 0 for a bot departure", got)
	}

	b.handleMemberRemove(nil, memberRemove("user1", false))
	b.wg.Wait()
	if got := b.registry.Counters().Left; got != 1 {
		t.Fatalf("left = %d, want 1", got)
	}

	// Events without a user payload are dropped, not a crash.
	b.handleMemberRemove(nil, &discordgo.GuildMemberRemove{Member: &discordgo.Member{}})
	b.wg.Wait()
	if got := b.registry.Counters().Left; got != 1 {
		t.Fatalf("left = %d, want still 1", got)
	}
}
