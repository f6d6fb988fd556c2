package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"arenawager/events"
	"arenawager/format"
	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var decimalTwo = decimal.NewFromInt(2)

// Notifier relays wager events to players through the game server plugin
type Notifier struct {
	bus        MessageBus
	taxPercent float64
}

// NewNotifier creates a notifier. taxPercent is only used in payout summaries.
func NewNotifier(bus MessageBus, taxPercent float64) *Notifier {
	return &Notifier{bus: bus, taxPercent: taxPercent}
}

// Subscribe registers the notifier on every event players should hear about
func (n *Notifier) Subscribe(eventBus *events.Bus) {
	eventBus.SubscribeMany(n.handle,
		events.EventTypeOfferCreated,
		events.EventTypeOfferAccepted,
		events.EventTypeMatchStarting,
		events.EventTypeCountdownTick,
		events.EventTypeMatchStarted,
		events.EventTypeMatchResolved,
		events.EventTypeWagerCancelled,
	)
}

func (n *Notifier) handle(ctx context.Context, event events.Event) {
	subject := NotificationSubject(event.Type())
	for _, note := range n.Notifications(event) {
		data, err := json.Marshal(note)
		if err != nil {
			log.WithError(err).Error("Failed to marshal notification")
			continue
		}
		if err := n.bus.Publish(ctx, subject, data); err != nil {
			log.WithFields(log.Fields{
				"subject": subject,
				"wagerID": note.WagerID,
				"error":   err,
			}).Error("Failed to publish notification")
		}
	}
}

// Notifications renders the player facing messages for an event
func (n *Notifier) Notifications(event events.Event) []Notification {
	switch e := event.(type) {
	case events.OfferCreatedEvent:
		money := format.Money(e.Stake)
		return []Notification{
			chat(e.WagerID, []uuid.UUID{e.ChallengerID},
				fmt.Sprintf("✔ Wager created for %s! Waiting for opponent...", money)),
			chat(e.WagerID, nil,
				fmt.Sprintf("⚔ %s has created a wager for %s! Use /wager to accept!", e.ChallengerName, money)),
		}

	case events.OfferAcceptedEvent:
		return []Notification{
			chat(e.WagerID, []uuid.UUID{e.ChallengerID},
				fmt.Sprintf("%s accepted your wager for %s!", e.OpponentName, format.Money(e.Stake))),
		}

	case events.MatchStartingEvent:
		notes := make([]Notification, 0, len(e.Participants))
		for _, pid := range e.Participants {
			opponent := "Unknown"
			for other, name := range e.Names {
				if other != pid {
					opponent = name
				}
			}
			notes = append(notes, title(e.WagerID, []uuid.UUID{pid},
				"⚔ WAGER STARTING", fmt.Sprintf("vs %s | %s", opponent, format.Money(e.Stake))))
		}
		return notes

	case events.CountdownTickEvent:
		return []Notification{
			title(e.WagerID, e.Participants, strconv.Itoa(e.Remaining), "Get ready..."),
		}

	case events.MatchStartedEvent:
		return []Notification{
			title(e.WagerID, e.Participants, "⚔ FIGHT!", "Kill your opponent!"),
		}

	case events.MatchResolvedEvent:
		return n.resultNotifications(e.Result)

	case events.WagerCancelledEvent:
		return []Notification{
			chat(e.WagerID, e.Participants,
				fmt.Sprintf("Wager cancelled: %s (%s refunded)", e.Reason, format.Money(e.Refund))),
		}
	}
	return nil
}

func (n *Notifier) resultNotifications(r models.MatchResult) []Notification {
	stake := r.Pot.Div(decimalTwo)
	winner := []uuid.UUID{r.WinnerID}
	loser := []uuid.UUID{r.LoserID}

	return []Notification{
		title(r.WagerID, winner, "✔ YOU WON!",
			fmt.Sprintf("+%s (%s tax)", format.Money(r.Winnings), format.Money(r.Tax))),
		chat(r.WagerID, winner,
			"✔ WAGER WON!",
			"Opponent: "+r.LoserName,
			"Pot: "+format.Money(r.Pot),
			fmt.Sprintf("Tax (%s%%): -%s", strconv.FormatFloat(n.taxPercent, 'f', -1, 64), format.Money(r.Tax)),
			"Winnings: +"+format.Money(r.Winnings),
		),
		title(r.WagerID, loser, "✘ YOU LOST!", "-"+format.Money(stake)),
		chat(r.WagerID, loser,
			"✘ WAGER LOST!",
			"Opponent: "+r.WinnerName,
			"Amount Lost: -"+format.Money(stake),
		),
	}
}

func chat(wagerID uuid.UUID, targets []uuid.UUID, lines ...string) Notification {
	return Notification{Kind: NotificationChat, Targets: targets, Lines: lines, WagerID: wagerID}
}

func title(wagerID uuid.UUID, targets []uuid.UUID, main, sub string) Notification {
	return Notification{Kind: NotificationTitle, Targets: targets, Title: main, Subtitle: sub, WagerID: wagerID}
}
