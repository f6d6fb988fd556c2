package service

import (
	"context"
	"errors"
	"fmt"

	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// LedgerWallet is the Postgres-backed wallet. Every movement runs in its own
// unit of work and leaves a balance history entry behind.
type LedgerWallet struct {
	uowFactory      UnitOfWorkFactory
	startingBalance decimal.Decimal
}

// NewLedgerWallet creates a wallet that opens new accounts with startingBalance
func NewLedgerWallet(uowFactory UnitOfWorkFactory, startingBalance decimal.Decimal) *LedgerWallet {
	return &LedgerWallet{
		uowFactory:      uowFactory,
		startingBalance: startingBalance,
	}
}

// Balance returns the participant's balance, zero when no account exists
func (w *LedgerWallet) Balance(ctx context.Context, participantID uuid.UUID) (decimal.Decimal, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByParticipantID(ctx, participantID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get account: %w", err)
	}
	if user == nil {
		return decimal.Zero, nil
	}
	return user.Balance, nil
}

// HasAtLeast reports whether the participant can cover amount
func (w *LedgerWallet) HasAtLeast(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (bool, error) {
	balance, err := w.Balance(ctx, participantID)
	if err != nil {
		return false, err
	}
	return balance.GreaterThanOrEqual(amount), nil
}

// Withdraw debits amount atomically, failing with ErrInsufficientFunds when the balance is too low
func (w *LedgerWallet) Withdraw(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	newBalance, err := uow.UserRepository().DeductBalance(ctx, participantID, amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return err
		}
		return fmt.Errorf("failed to deduct balance: %w", err)
	}

	history := &models.BalanceHistory{
		ParticipantID:   participantID,
		BalanceBefore:   newBalance.Add(amount),
		BalanceAfter:    newBalance,
		ChangeAmount:    amount.Neg(),
		TransactionType: txType,
		TransactionMetadata: map[string]any{
			"wager_id": wagerID.String(),
		},
		RelatedWagerID: &wagerID,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Deposit credits amount atomically
func (w *LedgerWallet) Deposit(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	newBalance, err := uow.UserRepository().AddBalance(ctx, participantID, amount)
	if err != nil {
		return fmt.Errorf("failed to add balance: %w", err)
	}

	history := &models.BalanceHistory{
		ParticipantID:   participantID,
		BalanceBefore:   newBalance.Sub(amount),
		BalanceAfter:    newBalance,
		ChangeAmount:    amount,
		TransactionType: txType,
		TransactionMetadata: map[string]any{
			"wager_id": wagerID.String(),
		},
		RelatedWagerID: &wagerID,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// EnsureAccount returns the participant's account, opening it with the starting balance if needed
func (w *LedgerWallet) EnsureAccount(ctx context.Context, participant models.Participant) (*models.User, error) {
	uow := w.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByParticipantID(ctx, participant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	if user != nil {
		if participant.Name == "" || user.Username == participant.Name {
			return user, nil
		}
		if err := uow.UserRepository().UpdateUsername(ctx, participant.ID, participant.Name); err != nil {
			return nil, fmt.Errorf("failed to update username: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		user.Username = participant.Name
		return user, nil
	}

	user, err = uow.UserRepository().Create(ctx, participant.ID, participant.Name, w.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	history := &models.BalanceHistory{
		ParticipantID:   participant.ID,
		BalanceBefore:   decimal.Zero,
		BalanceAfter:    w.startingBalance,
		ChangeAmount:    w.startingBalance,
		TransactionType: models.TransactionTypeInitial,
		TransactionMetadata: map[string]any{
			"username": participant.Name,
		},
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record initial balance: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"participantID": participant.ID,
		"username":      participant.Name,
		"balance":       w.startingBalance.String(),
	}).Info("Opened wallet account")

	return user, nil
}
