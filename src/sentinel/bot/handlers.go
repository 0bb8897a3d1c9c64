package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/sentinel/src/sentinel/components/commands"
)

func (b *Bot) handleReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Printf("bot: logged in as %s", event.User.Username)

	if err := commands.Register(s, b.config.GuildID); err != nil {
		log.Printf("bot: register slash commands: %v", err)
	}

	if guild, err := s.Guild(b.config.GuildID); err == nil {
		b.verifier.SetGuildName(guild.Name)
	}

	// Panel reconciliation is idempotent; a reconnect that replays
	// Ready costs one fetch per slot and sends nothing.
	if err := b.panels.Reconcile(); err != nil {
		log.Printf("bot: reconcile panels: %v", err)
	}

	b.moderation.ReplayPendingUnbans(b.ctx)
}

func (b *Bot) handleMemberJoin(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.User == nil || e.User.Bot {
		return
	}

	b.registry.AddJoined()

	// Each join gets its own flow; concurrent joins never block each
	// other or the event path.
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.verifier.Begin(b.ctx, e.User.ID, e.User.Username)
	}()
}

func (b *Bot) handleMemberRemove(s *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.User == nil || e.User.Bot {
		return
	}

	b.registry.AddLeft()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.tickets.HandleDeparture(e.User.ID)
		b.registry.PruneMember(e.User.ID)
	}()
}

func (b *Bot) handleBanAdd(s *discordgo.Session, e *discordgo.GuildBanAdd) {
	b.registry.AddBanned()
}

func (b *Bot) handleBanRemove(s *discordgo.Session, e *discordgo.GuildBanRemove) {
	b.registry.RemoveBanned()
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	// DMs only matter as verification replies.
	if m.GuildID == "" {
		b.verifier.HandleReply(m.ChannelID, m.Author.ID, m.Content)
		return
	}

	b.filter.Handle(m.ChannelID, m.ID, m.Author.ID, m.Content)
}

func (b *Bot) handleReactionAdd(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
	b.panels.HandleReactionAdd(e.MessageID, e.UserID, e.Emoji.APIName())
}

func (b *Bot) handleReactionRemove(s *discordgo.Session, e *discordgo.MessageReactionRemove) {
	b.panels.HandleReactionRemove(e.MessageID, e.UserID, e.Emoji.APIName())
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.router.HandleInteraction(s, i)
}
