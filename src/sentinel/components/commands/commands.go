package commands

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandClose     = "close"
	CommandStats     = "stats"
	CommandReactions = "reactions"
	CommandBan       = "ban"
	CommandClear     = "clear"
)

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandClose: {
		Name:        CommandClose,
		Description: "Close the ticket this channel belongs to",
	},
	CommandStats: {
		Name:        CommandStats,
		Description: "Show server moderation statistics (staff only)",
	},
	CommandReactions: {
		Name:        CommandReactions,
		Description: "Count reactions on recent messages in this channel",
	},
	CommandBan: {
		Name:        CommandBan,
		Description: "Ban a member (staff only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "Member to ban",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "duration",
				Description: "Ban length: '7d', '12h' or 'permanent'",
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "Reason for the ban",
			},
		},
	},
	CommandClear: {
		Name:        CommandClear,
		Description: "Delete a member's recent messages in this channel (staff only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "member",
				Description: "Member whose messages to delete",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "days",
				Description: "Only delete messages newer than this many days",
			},
		},
	},
}

var defaultCommandOrder = []string{
	CommandClose,
	CommandStats,
	CommandReactions,
	CommandBan,
	CommandClear,
}

// Register registers the requested slash commands for a guild. When no
// command names are provided, all known commands are registered.
func Register(s *discordgo.Session, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("commands: guildID is required to register slash commands")
	}

	if len(names) == 0 {
		names = defaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("commands: unknown slash command %q", name)
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("commands: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("commands: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("commands: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
