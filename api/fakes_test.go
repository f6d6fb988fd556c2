package api

import (
	"context"
	"sync"

	"arenawager/events"
	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type memoryWallet struct {
	mu       sync.Mutex
	balances map[uuid.UUID]decimal.Decimal
}

func (w *memoryWallet) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id], nil
}

func (w *memoryWallet) HasAtLeast(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[id].GreaterThanOrEqual(amount), nil
}

func (w *memoryWallet) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[id].LessThan(amount) {
		return service.ErrInsufficientFunds
	}
	w.balances[id] = w.balances[id].Sub(amount)
	return nil
}

func (w *memoryWallet) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[id] = w.balances[id].Add(amount)
	return nil
}

// onlineWorld treats everyone as connected and accepts every command
type onlineWorld struct{}

func (onlineWorld) IsOnline(uuid.UUID) bool { return true }

func (onlineWorld) Capture(ctx context.Context, id uuid.UUID) (*models.SessionSnapshot, error) {
	return &models.SessionSnapshot{}, nil
}

func (onlineWorld) Prepare(context.Context, uuid.UUID, models.Kit) error { return nil }

func (onlineWorld) Restore(context.Context, uuid.UUID, *models.SessionSnapshot) error { return nil }

func (onlineWorld) Teleport(context.Context, uuid.UUID, models.Location) error { return nil }

func (onlineWorld) SetFrozen(context.Context, uuid.UUID, bool) error { return nil }

type memoryStore struct {
	arenas []*models.Arena
	lobby  *models.Location
}

func (s *memoryStore) Load(ctx context.Context) ([]*models.Arena, *models.Location, error) {
	return s.arenas, s.lobby, nil
}

func (s *memoryStore) Save(ctx context.Context, arenas []*models.Arena, lobby *models.Location) error {
	s.arenas = arenas
	s.lobby = lobby
	return nil
}

type discardPublisher struct{}

func (discardPublisher) Publish(events.Event) {}
