package service

import (
	"context"

	"arenawager/events"
	"arenawager/models"
	"arenawager/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Scheduler is the main context every engine mutation runs on
type Scheduler = scheduler.Scheduler

// Task is a cancellable handle returned by the scheduler
type Task = scheduler.Task

// Wallet moves money in and out of participant accounts
type Wallet interface {
	// Balance returns the participant's current balance
	Balance(ctx context.Context, participantID uuid.UUID) (decimal.Decimal, error)

	// HasAtLeast reports whether the participant can cover amount
	HasAtLeast(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (bool, error)

	// Withdraw debits amount, failing with ErrInsufficientFunds when the balance is too low
	Withdraw(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error

	// Deposit credits amount
	Deposit(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error
}

// AccountWallet is a wallet that also manages the accounts behind it
type AccountWallet interface {
	Wallet

	// EnsureAccount creates the participant's account with the starting balance if it is missing
	EnsureAccount(ctx context.Context, participant models.Participant) (*models.User, error)
}

// ArenaStore persists arena definitions and the lobby location
type ArenaStore interface {
	Load(ctx context.Context) ([]*models.Arena, *models.Location, error)
	Save(ctx context.Context, arenas []*models.Arena, lobby *models.Location) error
}

// World performs side effects on participants inside the game server
type World interface {
	IsOnline(participantID uuid.UUID) bool
	Capture(ctx context.Context, participantID uuid.UUID) (*models.SessionSnapshot, error)
	Prepare(ctx context.Context, participantID uuid.UUID, kit models.Kit) error
	Restore(ctx context.Context, participantID uuid.UUID, snapshot *models.SessionSnapshot) error
	Teleport(ctx context.Context, participantID uuid.UUID, location models.Location) error
	SetFrozen(ctx context.Context, participantID uuid.UUID, frozen bool) error
}

// PasteRequest describes a schematic to build for a newly discovered arena
type PasteRequest struct {
	ArenaID   string          `json:"arena_id"`
	Schematic string          `json:"schematic"`
	Origin    models.Location `json:"origin"`
}

// Provisioner builds arena structures in the game world
type Provisioner interface {
	Provision(ctx context.Context, req PasteRequest) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UserRepository defines the interface for wallet account data access
type UserRepository interface {
	// GetByParticipantID retrieves an account, returning nil when it does not exist
	GetByParticipantID(ctx context.Context, participantID uuid.UUID) (*models.User, error)

	// Create creates a new account with the initial balance
	Create(ctx context.Context, participantID uuid.UUID, username string, initialBalance decimal.Decimal) (*models.User, error)

	// UpdateUsername records the latest display name for an account
	UpdateUsername(ctx context.Context, participantID uuid.UUID, username string) error

	// AddBalance credits an account and returns the new balance
	AddBalance(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// DeductBalance debits an account, failing if funds are insufficient, and returns the new balance
	DeductBalance(ctx context.Context, participantID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)

	// GetAll returns all accounts ordered by balance
	GetAll(ctx context.Context) ([]*models.User, error)
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByParticipant returns the most recent entries for a participant
	GetByParticipant(ctx context.Context, participantID uuid.UUID, limit int) ([]*models.BalanceHistory, error)

	// GetByWager returns every entry tied to a wager
	GetByWager(ctx context.Context, wagerID uuid.UUID) ([]*models.BalanceHistory, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() UserRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
