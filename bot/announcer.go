package bot

import (
	"context"

	"arenawager/events"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// embedSender is the part of the Discord session the announcer needs
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts wager activity to a channel
type Announcer struct {
	sender     embedSender
	channelID  string
	taxPercent float64
}

// NewAnnouncer creates an announcer posting to channelID
func NewAnnouncer(sender embedSender, channelID string, taxPercent float64) *Announcer {
	return &Announcer{sender: sender, channelID: channelID, taxPercent: taxPercent}
}

// Subscribe registers the announcer on the event bus
func (a *Announcer) Subscribe(bus *events.Bus) {
	bus.SubscribeMany(a.handle,
		events.EventTypeOfferCreated,
		events.EventTypeMatchResolved,
		events.EventTypeWagerCancelled,
	)
}

func (a *Announcer) handle(ctx context.Context, event events.Event) {
	var embed *discordgo.MessageEmbed
	switch e := event.(type) {
	case events.OfferCreatedEvent:
		embed = buildOfferCreatedEmbed(e)
	case events.MatchResolvedEvent:
		embed = buildResultEmbed(e, a.taxPercent)
	case events.WagerCancelledEvent:
		embed = buildCancelledEmbed(e)
	default:
		return
	}

	if _, err := a.sender.ChannelMessageSendEmbed(a.channelID, embed); err != nil {
		log.WithFields(log.Fields{
			"channelID": a.channelID,
			"eventType": event.Type(),
			"error":     err,
		}).Error("Failed to post announcement")
	}
}
