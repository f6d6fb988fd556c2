package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a wallet account belonging to a participant
type User struct {
	ParticipantID uuid.UUID       `db:"participant_id" json:"participant_id"`
	Username      string          `db:"username" json:"username"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}
