package infrastructure

import (
	"context"
	"sync"

	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type published struct {
	subject string
	data    []byte
}

// fakeBus is an in-memory MessageBus. Requests are answered by respond.
type fakeBus struct {
	mu        sync.Mutex
	handlers  map[string]func([]byte) error
	published []published
	requests  []published
	respond   func(ctx context.Context, subject string, data []byte) ([]byte, error)
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]func([]byte) error)}
}

func (b *fakeBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, published{subject, data})
	return nil
}

func (b *fakeBus) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	b.mu.Lock()
	b.requests = append(b.requests, published{subject, data})
	respond := b.respond
	b.mu.Unlock()
	return respond(ctx, subject, data)
}

func (b *fakeBus) Subscribe(subject string, handler func([]byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return nil
}

func (b *fakeBus) deliver(subject string, data []byte) error {
	b.mu.Lock()
	h := b.handlers[subject]
	b.mu.Unlock()
	return h(data)
}

func (b *fakeBus) publishedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

// fakeMatches records the calls the listener forwards
type fakeMatches struct {
	joins       []uuid.UUID
	disconnects []uuid.UUID
	deaths      []uuid.UUID
}

func (m *fakeMatches) HandleJoin(ctx context.Context, id uuid.UUID) bool {
	m.joins = append(m.joins, id)
	return false
}

func (m *fakeMatches) HandleDisconnect(ctx context.Context, id uuid.UUID) {
	m.disconnects = append(m.disconnects, id)
}

func (m *fakeMatches) ResolveElimination(ctx context.Context, id uuid.UUID) (*models.MatchResult, error) {
	m.deaths = append(m.deaths, id)
	return nil, nil
}

// fakeAccounts is an AccountWallet that only tracks opened accounts
type fakeAccounts struct {
	mu     sync.Mutex
	opened []models.Participant
}

func (a *fakeAccounts) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (a *fakeAccounts) HasAtLeast(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	return false, nil
}

func (a *fakeAccounts) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	return nil
}

func (a *fakeAccounts) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	return nil
}

func (a *fakeAccounts) EnsureAccount(ctx context.Context, p models.Participant) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opened = append(a.opened, p)
	return &models.User{ParticipantID: p.ID, Username: p.Name}, nil
}
