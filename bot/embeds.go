package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"arenawager/bot/common"
	"arenawager/events"
	"arenawager/models"

	"github.com/bwmarrin/discordgo"
)

// buildOfferCreatedEmbed announces a new open offer
func buildOfferCreatedEmbed(e events.OfferCreatedEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "⚔️ New Wager",
		Description: fmt.Sprintf("**%s** has created a wager for %s! Use `/wager` in game to accept!", e.ChallengerName, common.FormatMoney(e.Stake)),
		Color:       common.ColorWarning,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Wager " + e.WagerID.String(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// buildResultEmbed reports a finished match and its payout
func buildResultEmbed(e events.MatchResolvedEvent, taxPercent float64) *discordgo.MessageEmbed {
	r := e.Result
	return &discordgo.MessageEmbed{
		Title:       "🏆 Wager Won",
		Description: fmt.Sprintf("**%s** defeated **%s** in `%s`", r.WinnerName, r.LoserName, e.ArenaID),
		Color:       common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Pot", Value: common.FormatMoney(r.Pot), Inline: true},
			{Name: fmt.Sprintf("🏦 Tax (%s%%)", strconv.FormatFloat(taxPercent, 'f', -1, 64)), Value: common.FormatMoney(r.Tax), Inline: true},
			{Name: "🎉 Winnings", Value: common.FormatMoney(r.Winnings), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Wager " + r.WagerID.String(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// buildCancelledEmbed reports a refunded wager
func buildCancelledEmbed(e events.WagerCancelledEvent) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "❌ Wager Cancelled",
		Description: fmt.Sprintf("Wager cancelled: %s", e.Reason),
		Color:       common.ColorDanger,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "↩️ Refunded", Value: fmt.Sprintf("%s each", common.FormatMoney(e.Refund)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Wager " + e.WagerID.String(),
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// buildOffersEmbed lists the open offers, newest first
func buildOffersEmbed(offers []*models.Wager) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "⚔️ Open Wagers",
		Color: common.ColorPrimary,
	}
	if len(offers) == 0 {
		embed.Description = "No one is wagering right now."
		return embed
	}

	var lines []string
	for _, w := range offers {
		lines = append(lines, fmt.Sprintf("**%s** • %s • %s",
			w.ChallengerName, common.FormatMoney(w.Stake), common.FormatDiscordTimestamp(w.CreatedAt, "R")))
	}
	embed.Description = strings.Join(lines, "\n")
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("%d open", len(offers))}
	return embed
}

// buildArenasEmbed lists arenas with their status and the lobby
func buildArenasEmbed(arenas []*models.Arena, lobby *models.Location) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "⚔️ Arenas",
		Color: common.ColorPrimary,
	}

	if len(arenas) == 0 {
		embed.Description = "No arenas have been created."
	} else {
		var lines []string
		for _, a := range arenas {
			icon := "🟢"
			switch a.Status() {
			case "in use":
				icon = "🔴"
			case "not configured":
				icon = "⚪"
			}
			lines = append(lines, fmt.Sprintf("%s `%s` %s", icon, a.ID, a.Status()))
		}
		embed.Description = strings.Join(lines, "\n")
	}

	lobbyText := "✘ Lobby not set"
	if lobby != nil {
		lobbyText = "✔ Lobby is set"
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: lobbyText}
	return embed
}
