package discord

import (
	"log"
	"time"

	"github.com/bwmarrin/discordgo"
)

// HasRole reports whether a guild member carries the given role.
func HasRole(s *discordgo.Session, guildID, userID, roleID string) bool {
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}

	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}

	return false
}

// SendExpiringMessage sends a channel message and deletes it after ttl.
// Used for transient moderation notices. Both calls are best-effort.
func SendExpiringMessage(s *discordgo.Session, channelID, content string, ttl time.Duration) {
	msg, err := s.ChannelMessageSend(channelID, content)
	if err != nil {
		log.Printf("discord: send expiring message: %v", err)
		return
	}

	time.AfterFunc(ttl, func() {
		if err := s.ChannelMessageDelete(channelID, msg.ID); err != nil {
			log.Printf("discord: expire message %s: %v", msg.ID, err)
		}
	})
}

// SendDM opens (or reuses) the DM channel for a user and sends content.
// Returns the DM channel ID for reply routing.
func SendDM(s *discordgo.Session, userID, content string) (string, error) {
	ch, err := s.UserChannelCreate(userID)
	if err != nil {
		return "", err
	}
	if _, err := s.ChannelMessageSend(ch.ID, content); err != nil {
		return ch.ID, err
	}
	return ch.ID, nil
}

// RespondEphemeral replies to an interaction with a message only the
// invoking user can see.
func RespondEphemeral(s *discordgo.Session, i *discordgo.Interaction, content string) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("discord: interaction respond: %v", err)
	}
}
