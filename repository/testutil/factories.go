package testutil

import (
	"time"

	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateTestUser creates a test user with default values
func CreateTestUser(username string) *models.User {
	now := time.Now()
	return &models.User{
		ParticipantID: uuid.New(),
		Username:      username,
		Balance:       decimal.NewFromInt(10000),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestUserWithBalance creates a test user with a specific balance
func CreateTestUserWithBalance(username string, balance int64) *models.User {
	user := CreateTestUser(username)
	user.Balance = decimal.NewFromInt(balance)
	return user
}

// CreateTestBalanceHistory creates a test balance history entry tied to a wager
func CreateTestBalanceHistory(participantID uuid.UUID, wagerID uuid.UUID, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		ParticipantID:   participantID,
		BalanceBefore:   decimal.NewFromInt(10000),
		BalanceAfter:    decimal.NewFromInt(9000),
		ChangeAmount:    decimal.NewFromInt(-1000),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		RelatedWagerID: &wagerID,
		CreatedAt:      time.Now(),
	}
}
