package bot

import (
	"context"
	"fmt"
	"time"

	"arenawager/bot/common"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const commandTimeout = 5 * time.Second

// registerCommands registers all slash commands with Discord
func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "wagers",
			Description: "List open arena wagers",
		},
		{
			Name:        "arenas",
			Description: "Show arena availability",
		},
	}

	for _, cmd := range commands {
		_, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	embed, err := b.commandEmbed(ctx, i.ApplicationCommandData().Name)
	if err != nil {
		log.WithFields(log.Fields{
			"command": i.ApplicationCommandData().Name,
			"error":   err,
		}).Error("Failed to run command")
		common.RespondWithError(s, i, "Unable to process request. Please try again.")
		return
	}
	if embed == nil {
		return
	}

	if err := common.RespondWithEmbed(s, i, embed, false); err != nil {
		log.Errorf("Error responding to %s command: %v", i.ApplicationCommandData().Name, err)
	}
}

// commandEmbed builds the response for a slash command, or nil for unknown commands
func (b *Bot) commandEmbed(ctx context.Context, name string) (*discordgo.MessageEmbed, error) {
	switch name {
	case "wagers":
		offers, err := b.directory.WaitingOffers(ctx)
		if err != nil {
			return nil, err
		}
		return buildOffersEmbed(offers), nil
	case "arenas":
		arenas, lobby, err := b.directory.Arenas(ctx)
		if err != nil {
			return nil, err
		}
		return buildArenasEmbed(arenas, lobby), nil
	}
	return nil, nil
}
