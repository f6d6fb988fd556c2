package api

import (
	"time"

	"arenawager/models"

	"github.com/google/uuid"
)

// CreateOfferRequest opens a new offer. Amount accepts shorthand such as "1k".
type CreateOfferRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Amount        string    `json:"amount"`
}

// AcceptOfferRequest binds the caller as opponent
type AcceptOfferRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
}

// CreateArenaRequest names a new arena
type CreateArenaRequest struct {
	Name string `json:"name"`
}

// ErrorResponse is returned for every failed request
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// WagerResponse is the public view of a wager
type WagerResponse struct {
	ID             uuid.UUID         `json:"id"`
	State          models.WagerState `json:"state"`
	ChallengerID   uuid.UUID         `json:"challenger_id"`
	ChallengerName string            `json:"challenger_name"`
	OpponentID     *uuid.UUID        `json:"opponent_id,omitempty"`
	OpponentName   string            `json:"opponent_name,omitempty"`
	Stake          string            `json:"stake"`
	Pot            string            `json:"pot"`
	ArenaID        *string           `json:"arena_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func newWagerResponse(w *models.Wager) WagerResponse {
	return WagerResponse{
		ID:             w.ID,
		State:          w.State,
		ChallengerID:   w.ChallengerID,
		ChallengerName: w.ChallengerName,
		OpponentID:     w.OpponentID,
		OpponentName:   w.OpponentName,
		Stake:          w.Stake.String(),
		Pot:            w.Pot().String(),
		ArenaID:        w.ArenaID,
		CreatedAt:      w.CreatedAt,
	}
}

// ArenaResponse pairs an arena with its status text
type ArenaResponse struct {
	*models.Arena
	Status string `json:"status"`
}

// ArenaListResponse lists arenas and the lobby
type ArenaListResponse struct {
	Arenas []ArenaResponse   `json:"arenas"`
	Lobby  *models.Location `json:"lobby,omitempty"`
}

// BalanceResponse reports a wallet balance
type BalanceResponse struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Balance       string    `json:"balance"`
}

// ReloadResponse lists arenas created from new schematics
type ReloadResponse struct {
	Created []string `json:"created"`
}
