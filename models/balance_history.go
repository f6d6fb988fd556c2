package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypeWagerStake  TransactionType = "wager_stake"
	TransactionTypeWagerRefund TransactionType = "wager_refund"
	TransactionTypeWagerWin    TransactionType = "wager_win"
)

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	ParticipantID       uuid.UUID       `db:"participant_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedWagerID      *uuid.UUID      `db:"related_wager_id"`
	CreatedAt           time.Time       `db:"created_at"`
}
