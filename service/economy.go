package service

import (
	"arenawager/models"

	"github.com/shopspring/decimal"
)

// Economy holds the payout rules for a resolved match
type Economy struct {
	TaxPercent decimal.Decimal
}

// NewEconomy creates an economy taking taxPercent of every pot
func NewEconomy(taxPercent float64) Economy {
	return Economy{TaxPercent: decimal.NewFromFloat(taxPercent)}
}

// Tax is the house cut of a pot
func (e Economy) Tax(pot decimal.Decimal) decimal.Decimal {
	return pot.Mul(e.TaxPercent).Shift(-2)
}

// Winnings is what the winner receives from a pot
func (e Economy) Winnings(pot decimal.Decimal) decimal.Decimal {
	return pot.Sub(e.Tax(pot))
}

// Settle computes the result of a match between winner and loser
func (e Economy) Settle(wager *models.Wager, winner, loser models.Participant) models.MatchResult {
	pot := wager.Pot()
	tax := e.Tax(pot)
	return models.MatchResult{
		WagerID:    wager.ID,
		WinnerID:   winner.ID,
		WinnerName: winner.Name,
		LoserID:    loser.ID,
		LoserName:  loser.Name,
		Pot:        pot,
		Tax:        tax,
		Winnings:   pot.Sub(tax),
	}
}
