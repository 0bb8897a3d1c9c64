package bot

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	discordutil "github.com/stake-plus/sentinel/src/discord"
	"github.com/stake-plus/sentinel/src/sentinel/components/moderation"
	"github.com/stake-plus/sentinel/src/sentinel/components/panels"
	"github.com/stake-plus/sentinel/src/sentinel/components/stats"
)

const noticeTTL = 10 * time.Second

// gateway adapts the discordgo session to the narrow interfaces each
// component declares. All remote-call error handling stays in the
// components; this layer only translates shapes.
type gateway struct {
	session     *discordgo.Session
	guildID     string
	staffRoleID string
}

func (g *gateway) BotUserID() string {
	return g.session.State.User.ID
}

func (g *gateway) SendDM(userID, content string) (string, error) {
	return discordutil.SendDM(g.session, userID, content)
}

func (g *gateway) Kick(guildID, userID, reason string) error {
	return g.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (g *gateway) SendMessage(channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content)
	return err
}

func (g *gateway) IsStaff(userID string) bool {
	return discordutil.HasRole(g.session, g.guildID, userID, g.staffRoleID)
}

func (g *gateway) CreateTicketChannel(name, topic, ownerID string) (string, error) {
	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone shares its ID with the guild.
			ID:   g.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		{
			ID:    ownerID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
		{
			ID:    g.staffRoleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
		{
			ID:    g.BotUserID(),
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}

	channel, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                topic,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (g *gateway) DeleteChannel(channelID, reason string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithAuditLogReason(reason))
	return err
}

// FetchMessage reports whether the message still exists. A 404 is a
// normal reconciliation answer, not an error.
func (g *gateway) FetchMessage(channelID, messageID string) (bool, error) {
	_, err := g.session.ChannelMessage(channelID, messageID)
	if err == nil {
		return true, nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (g *gateway) FetchHistory(channelID string, limit int) ([]panels.Message, error) {
	messages, err := g.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, err
	}

	out := make([]panels.Message, 0, len(messages))
	for _, m := range messages {
		pm := panels.Message{
			ID:       m.ID,
			AuthorID: m.Author.ID,
			Content:  m.Content,
		}
		if len(m.Embeds) > 0 {
			pm.EmbedTitle = m.Embeds[0].Title
		}
		out = append(out, pm)
	}
	return out, nil
}

func (g *gateway) CreateRolePanel(channelID, description string) (string, error) {
	msg, err := g.session.ChannelMessageSendEmbed(channelID, &discordgo.MessageEmbed{
		Title:       panels.RolePanelTitle,
		Description: description,
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *gateway) CreateTicketPanel(channelID, content, buttonID string) (string, error) {
	msg, err := g.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Create Ticket",
						Style:    discordgo.SuccessButton,
						CustomID: buttonID,
					},
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *gateway) AddReaction(channelID, messageID, emoji string) error {
	return g.session.MessageReactionAdd(channelID, messageID, emoji)
}

func (g *gateway) GrantRole(userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(g.guildID, userID, roleID)
}

func (g *gateway) RevokeRole(userID, roleID string) error {
	return g.session.GuildMemberRoleRemove(g.guildID, userID, roleID)
}

func (g *gateway) RoleName(roleID string) string {
	if role, err := g.session.State.Role(g.guildID, roleID); err == nil {
		return role.Name
	}

	roles, err := g.session.GuildRoles(g.guildID)
	if err == nil {
		for _, role := range roles {
			if role.ID == roleID {
				return role.Name
			}
		}
	}
	return roleID
}

func (g *gateway) DeleteMessage(channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID)
}

func (g *gateway) Notice(channelID, content string) {
	discordutil.SendExpiringMessage(g.session, channelID, content, noticeTTL)
}

func (g *gateway) ChannelParentID(channelID string) string {
	if channel, err := g.session.State.Channel(channelID); err == nil {
		return channel.ParentID
	}
	if channel, err := g.session.Channel(channelID); err == nil {
		return channel.ParentID
	}
	return ""
}

func (g *gateway) Ban(userID, reason string) error {
	return g.session.GuildBanCreateWithReason(g.guildID, userID, reason, 0)
}

func (g *gateway) Unban(userID string) error {
	return g.session.GuildBanDelete(g.guildID, userID)
}

func (g *gateway) RecentMessages(channelID string, limit int) ([]moderation.HistoryMessage, error) {
	messages, err := g.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, err
	}

	out := make([]moderation.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, moderation.HistoryMessage{
			ID:        m.ID,
			AuthorID:  m.Author.ID,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

// Outranks compares the highest role positions of actor and target.
func (g *gateway) Outranks(actorID, targetID string) (bool, error) {
	actorPos, err := g.topRolePosition(actorID)
	if err != nil {
		return false, fmt.Errorf("actor roles: %w", err)
	}
	targetPos, err := g.topRolePosition(targetID)
	if err != nil {
		return false, fmt.Errorf("target roles: %w", err)
	}
	return actorPos > targetPos, nil
}

func (g *gateway) topRolePosition(userID string) (int, error) {
	member, err := g.session.GuildMember(g.guildID, userID)
	if err != nil {
		return 0, err
	}

	roles, err := g.session.GuildRoles(g.guildID)
	if err != nil {
		return 0, err
	}

	positions := make(map[string]int, len(roles))
	for _, role := range roles {
		positions[role.ID] = role.Position
	}

	top := 0
	for _, roleID := range member.Roles {
		if pos, ok := positions[roleID]; ok && pos > top {
			top = pos
		}
	}
	return top, nil
}

func (g *gateway) ListMembers() ([]stats.Member, error) {
	var out []stats.Member
	after := ""
	for {
		page, err := g.session.GuildMembers(g.guildID, after, 1000)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return out, nil
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, stats.Member{ID: m.User.ID, Bot: m.User.Bot})
			after = m.User.ID
		}
		if len(page) < 1000 {
			return out, nil
		}
	}
}
