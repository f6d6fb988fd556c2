package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WagerState represents the lifecycle state of a wager
type WagerState string

const (
	WagerStateWaiting    WagerState = "waiting"
	WagerStateAccepted   WagerState = "accepted"
	WagerStateCountdown  WagerState = "countdown"
	WagerStateInProgress WagerState = "in_progress"
	WagerStateFinished   WagerState = "finished"
)

var wagerStateOrder = map[WagerState]int{
	WagerStateWaiting:    0,
	WagerStateAccepted:   1,
	WagerStateCountdown:  2,
	WagerStateInProgress: 3,
	WagerStateFinished:   4,
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// States only move forward one step at a time, except that any
// non-finished state may jump straight to finished.
func (s WagerState) CanTransitionTo(next WagerState) bool {
	from, ok := wagerStateOrder[s]
	if !ok {
		return false
	}
	to, ok := wagerStateOrder[next]
	if !ok {
		return false
	}
	if s == WagerStateFinished {
		return false
	}
	if next == WagerStateFinished {
		return true
	}
	return to == from+1
}

// Participant identifies a player taking part in a wager
type Participant struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Wager represents a peer-to-peer wagered match
type Wager struct {
	ID             uuid.UUID       `json:"id"`
	ChallengerID   uuid.UUID       `json:"challenger_id"`
	ChallengerName string          `json:"challenger_name"`
	OpponentID     *uuid.UUID      `json:"opponent_id,omitempty"`
	OpponentName   string          `json:"opponent_name,omitempty"`
	Stake          decimal.Decimal `json:"stake"`
	State          WagerState      `json:"state"`
	ArenaID        *string         `json:"arena_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	RemainingTicks int             `json:"remaining_ticks"`
}

// NewWager creates a waiting offer staked by the challenger
func NewWager(challenger Participant, stake decimal.Decimal, now time.Time) *Wager {
	return &Wager{
		ID:             uuid.New(),
		ChallengerID:   challenger.ID,
		ChallengerName: challenger.Name,
		Stake:          stake,
		State:          WagerStateWaiting,
		CreatedAt:      now,
	}
}

// Challenger returns the challenger as a participant
func (w *Wager) Challenger() Participant {
	return Participant{ID: w.ChallengerID, Name: w.ChallengerName}
}

// Opponent returns the opponent, if one has been bound
func (w *Wager) Opponent() (Participant, bool) {
	if w.OpponentID == nil {
		return Participant{}, false
	}
	return Participant{ID: *w.OpponentID, Name: w.OpponentName}, true
}

// Participants returns the ids of everyone bound to the wager, challenger first
func (w *Wager) Participants() []uuid.UUID {
	ids := []uuid.UUID{w.ChallengerID}
	if w.OpponentID != nil {
		ids = append(ids, *w.OpponentID)
	}
	return ids
}

// IsParticipant checks if a participant is involved in the wager
func (w *Wager) IsParticipant(id uuid.UUID) bool {
	return w.ChallengerID == id || (w.OpponentID != nil && *w.OpponentID == id)
}

// GetOpponent returns the other side of the wager for a given participant
func (w *Wager) GetOpponent(id uuid.UUID) (Participant, bool) {
	if w.ChallengerID == id {
		return w.Opponent()
	}
	if w.OpponentID != nil && *w.OpponentID == id {
		return w.Challenger(), true
	}
	return Participant{}, false
}

// NameOf returns the display name recorded for a participant
func (w *Wager) NameOf(id uuid.UUID) string {
	if w.ChallengerID == id {
		return w.ChallengerName
	}
	if w.OpponentID != nil && *w.OpponentID == id {
		return w.OpponentName
	}
	return ""
}

// IsActive checks if the wager has not reached its terminal state
func (w *Wager) IsActive() bool {
	return w.State != WagerStateFinished
}

// Pot is the total staked by both sides
func (w *Wager) Pot() decimal.Decimal {
	return w.Stake.Mul(decimal.NewFromInt(2))
}

// Clone returns a copy safe to hand outside the main context
func (w *Wager) Clone() *Wager {
	c := *w
	if w.OpponentID != nil {
		id := *w.OpponentID
		c.OpponentID = &id
	}
	if w.ArenaID != nil {
		arena := *w.ArenaID
		c.ArenaID = &arena
	}
	return &c
}

// MatchResult represents the outcome of a resolved match
type MatchResult struct {
	WagerID    uuid.UUID       `json:"wager_id"`
	WinnerID   uuid.UUID       `json:"winner_id"`
	WinnerName string          `json:"winner_name"`
	LoserID    uuid.UUID       `json:"loser_id"`
	LoserName  string          `json:"loser_name"`
	Pot        decimal.Decimal `json:"pot"`
	Tax        decimal.Decimal `json:"tax"`
	Winnings   decimal.Decimal `json:"winnings"`
}
