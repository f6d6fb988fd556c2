package bot

import (
	"fmt"

	"arenawager/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token      string
	ChannelID  string
	TaxPercent float64
}

type Bot struct {
	config    Config
	session   *discordgo.Session
	directory Directory
}

// New connects to Discord, registers the slash commands and starts announcing to the configured channel
func New(config Config, directory Directory, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds

	bot := &Bot{
		config:    config,
		session:   dg,
		directory: directory,
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	if config.ChannelID != "" {
		NewAnnouncer(dg, config.ChannelID, config.TaxPercent).Subscribe(eventBus)
		log.WithField("channelID", config.ChannelID).Info("Discord announcements enabled")
	}

	return bot, nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}
