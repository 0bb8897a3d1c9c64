package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
	discordutil "github.com/stake-plus/sentinel/src/discord"
	"github.com/stake-plus/sentinel/src/sentinel/components/moderation"
	"github.com/stake-plus/sentinel/src/sentinel/components/panels"
	"github.com/stake-plus/sentinel/src/sentinel/components/stats"
	"github.com/stake-plus/sentinel/src/sentinel/components/tickets"
)

type Config struct {
	Tickets     *tickets.Manager
	Stats       *stats.Stats
	Moderation  *moderation.Manager
	GuildID     string
	StaffRoleID string
}

// Router decodes interactions (slash commands and the ticket panel
// button) and dispatches them to the owning component.
type Router struct {
	config Config
}

func NewRouter(config Config) *Router {
	return &Router{config: config}
}

func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		if i.MessageComponentData().CustomID == panels.TicketButtonID {
			r.handleTicketButton(s, i)
		}
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(s, i)
	}
}

func (r *Router) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}

	switch i.ApplicationCommandData().Name {
	case CommandClose:
		r.handleClose(s, i)
	case CommandStats:
		r.handleStats(s, i)
	case CommandReactions:
		r.handleReactions(s, i)
	case CommandBan:
		r.handleBan(s, i)
	case CommandClear:
		r.handleClear(s, i)
	}
}

func (r *Router) handleTicketButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		return
	}
	user := i.Member.User

	channelID, err := r.config.Tickets.Open(user.ID, user.Username)
	if errors.Is(err, tickets.ErrAlreadyOpen) {
		discordutil.RespondEphemeral(s, i.Interaction, "You already have an open ticket!")
		return
	}
	if err != nil {
		log.Printf("commands: open ticket for %s: %v", user.Username, err)
		discordutil.RespondEphemeral(s, i.Interaction, "Failed to create your ticket. Please try again.")
		return
	}

	discordutil.RespondEphemeral(s, i.Interaction, fmt.Sprintf("Your ticket has been created: <#%s>", channelID))
}

func (r *Router) handleClose(s *discordgo.Session, i *discordgo.InteractionCreate) {
	requesterID := i.Member.User.ID

	err := r.config.Tickets.Authorize(i.ChannelID, requesterID)
	switch {
	case errors.Is(err, tickets.ErrNotATicketChannel):
		discordutil.RespondEphemeral(s, i.Interaction, "This command can only be used inside a ticket channel.")
		return
	case errors.Is(err, tickets.ErrForbidden):
		discordutil.RespondEphemeral(s, i.Interaction, "You don't have permission to close this ticket.")
		return
	}

	// Confirm while the channel still exists; the interaction has no
	// home once Close deletes it.
	discordutil.RespondEphemeral(s, i.Interaction, "Closing ticket...")

	if err := r.config.Tickets.Close(i.ChannelID, requesterID); err != nil {
		log.Printf("commands: close ticket %s: %v", i.ChannelID, err)
	}
}

func (r *Router) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !r.isStaff(i.Member) {
		discordutil.RespondEphemeral(s, i.Interaction, "You don't have permission to use this command.")
		return
	}

	report, err := r.config.Stats.Report(time.Now())
	if err != nil {
		log.Printf("commands: stats report: %v", err)
		discordutil.RespondEphemeral(s, i.Interaction, "Failed to compute statistics. Please try again.")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "Server Statistics",
		Color: 0x0099ff,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Passed verification", Value: fmt.Sprintf("%d", report.Counters.Passed), Inline: true},
			{Name: "Failed verification", Value: fmt.Sprintf("%d", report.Counters.Failed), Inline: true},
			{Name: "Members joined", Value: fmt.Sprintf("%d", report.Counters.Joined), Inline: true},
			{Name: "Members left", Value: fmt.Sprintf("%d", report.Counters.Left), Inline: true},
			{Name: "Banned members", Value: fmt.Sprintf("%d", report.Counters.Banned), Inline: true},
			{Name: "Inactive members (30 days)", Value: fmt.Sprintf("%d", report.Inactive), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	})
	if err != nil {
		log.Printf("commands: stats respond: %v", err)
	}
}

func (r *Router) handleReactions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member.Permissions&discordgo.PermissionManageMessages == 0 {
		discordutil.RespondEphemeral(s, i.Interaction, "You don't have permission to manage messages.")
		return
	}

	messages, err := s.ChannelMessages(i.ChannelID, 100, "", "", "")
	if err != nil {
		log.Printf("commands: fetch history for reactions: %v", err)
		discordutil.RespondEphemeral(s, i.Interaction, "Failed to fetch channel history. Please try again.")
		return
	}

	total := 0
	for _, msg := range messages {
		for _, reaction := range msg.Reactions {
			total += reaction.Count
		}
	}

	content := fmt.Sprintf("There are %d reactions on the last %d messages in this channel.", total, len(messages))
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Printf("commands: reactions respond: %v", err)
	}
}

func (r *Router) handleBan(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !r.isStaff(i.Member) {
		discordutil.RespondEphemeral(s, i.Interaction, "You don't have permission to use this command.")
		return
	}

	opts := optionMap(i)
	memberOpt, ok := opts["member"]
	if !ok {
		discordutil.RespondEphemeral(s, i.Interaction, "Member not found.")
		return
	}
	target := memberOpt.UserValue(s)
	if target == nil {
		discordutil.RespondEphemeral(s, i.Interaction, "Member not found.")
		return
	}

	duration := ""
	if opt, ok := opts["duration"]; ok {
		duration = opt.StringValue()
	}
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	err := r.config.Moderation.Ban(context.Background(), i.Member.User.ID, target.ID, duration, reason)
	switch {
	case errors.Is(err, moderation.ErrForbidden):
		discordutil.RespondEphemeral(s, i.Interaction, "You cannot ban that member.")
	case errors.Is(err, moderation.ErrBadDuration):
		discordutil.RespondEphemeral(s, i.Interaction, "Invalid duration. Use '7d', '12h' or 'permanent'.")
	case err != nil:
		log.Printf("commands: ban %s: %v", target.ID, err)
		discordutil.RespondEphemeral(s, i.Interaction, "Failed to ban the member. Please try again.")
	default:
		when := "permanently"
		if duration != "" && duration != "permanent" {
			when = "for " + duration
		}
		discordutil.RespondEphemeral(s, i.Interaction, fmt.Sprintf("Banned <@%s> %s.", target.ID, when))
	}
}

func (r *Router) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !r.isStaff(i.Member) {
		discordutil.RespondEphemeral(s, i.Interaction, "You don't have permission to use this command.")
		return
	}

	opts := optionMap(i)
	memberOpt, ok := opts["member"]
	if !ok {
		discordutil.RespondEphemeral(s, i.Interaction, "Member not found.")
		return
	}
	target := memberOpt.UserValue(s)
	if target == nil {
		discordutil.RespondEphemeral(s, i.Interaction, "Member not found.")
		return
	}

	days := 0
	if opt, ok := opts["days"]; ok {
		days = int(opt.IntValue())
	}

	deleted, err := r.config.Moderation.Clear(i.ChannelID, i.Member.User.ID, target.ID, days)
	if err != nil {
		log.Printf("commands: clear for %s: %v", target.ID, err)
		discordutil.RespondEphemeral(s, i.Interaction, "Failed to clear messages. Please try again.")
		return
	}

	discordutil.RespondEphemeral(s, i.Interaction, fmt.Sprintf("Deleted %d messages from <@%s>.", deleted, target.ID))
}

func (r *Router) isStaff(member *discordgo.Member) bool {
	for _, role := range member.Roles {
		if role == r.config.StaffRoleID {
			return true
		}
	}
	return false
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, opt := range i.ApplicationCommandData().Options {
		opts[opt.Name] = opt
	}
	return opts
}
