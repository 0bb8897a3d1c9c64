package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/sentinel/src/sentinel/components/commands"
	"github.com/stake-plus/sentinel/src/sentinel/components/moderation"
	"github.com/stake-plus/sentinel/src/sentinel/components/modfilter"
	"github.com/stake-plus/sentinel/src/sentinel/components/panels"
	"github.com/stake-plus/sentinel/src/sentinel/components/stats"
	"github.com/stake-plus/sentinel/src/sentinel/components/tickets"
	"github.com/stake-plus/sentinel/src/sentinel/components/verification"
	"github.com/stake-plus/sentinel/src/sentinel/config"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/registry"
	"gorm.io/gorm"
)

type Bot struct {
	session  *discordgo.Session
	db       *gorm.DB
	rdb      *redis.Client
	config   config.Config
	registry *registry.Registry

	verifier   *verification.Verifier
	tickets    *tickets.Manager
	panels     *panels.Reconciler
	filter     *modfilter.Filter
	stats      *stats.Stats
	moderation *moderation.Manager
	router     *commands.Router

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bot{
		session:  dg,
		db:       db,
		rdb:      rdb,
		config:   cfg,
		registry: registry.New(),
		ctx:      ctx,
		cancel:   cancel,
	}

	b.initializeComponents()
	b.registerHandlers()

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	return b, nil
}

func (b *Bot) initializeComponents() {
	gw := &gateway{
		session:     b.session,
		guildID:     b.config.GuildID,
		staffRoleID: b.config.StaffRoleID,
	}

	b.verifier = verification.New(verification.Config{
		Gateway:  gw,
		Registry: b.registry,
		Redis:    b.rdb,
		GuildID:  b.config.GuildID,
	})

	b.tickets = tickets.New(tickets.Config{
		Gateway:  gw,
		Registry: b.registry,
		Redis:    b.rdb,
	})

	b.panels = panels.New(panels.Config{
		Gateway:          gw,
		Store:            data.NewAnchorStore(b.db),
		TicketChannelID:  b.config.TicketChannelID,
		RolePanelChannel: b.config.RolePanelChannel,
		EmojiRoles:       b.config.EmojiRoles,
	})

	b.filter = modfilter.New(modfilter.Config{
		Gateway:       gw,
		Registry:      b.registry,
		Redis:         b.rdb,
		DB:            b.db,
		AllowedChans:  b.config.AllowedLinkChans,
		Mode:          b.config.LinkFilterMode,
		VoteChannelID: b.config.TargetChannelID,
	})

	b.stats = stats.New(stats.Config{
		Registry: b.registry,
		Members:  gw,
	})

	b.moderation = moderation.New(moderation.Config{
		Gateway: gw,
		DB:      b.db,
		Redis:   b.rdb,
		GuildID: b.config.GuildID,
	})

	b.router = commands.NewRouter(commands.Config{
		Tickets:     b.tickets,
		Stats:       b.stats,
		Moderation:  b.moderation,
		GuildID:     b.config.GuildID,
		StaffRoleID: b.config.StaffRoleID,
	})
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMemberJoin)
	b.session.AddHandler(b.handleMemberRemove)
	b.session.AddHandler(b.handleBanAdd)
	b.session.AddHandler(b.handleBanRemove)
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleReactionAdd)
	b.session.AddHandler(b.handleReactionRemove)
	b.session.AddHandler(b.handleInteraction)
}

func (b *Bot) Start() error {
	return b.session.Open()
}

func (b *Bot) Stop() {
	b.cancel()
	b.wg.Wait()
	b.session.Close()
}

// Stats exposes the aggregator for the HTTP API.
func (b *Bot) Stats() *stats.Stats {
	return b.stats
}
