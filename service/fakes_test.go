package service

import (
	"context"
	"errors"
	"sync"

	"arenawager/events"
	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// fakeWallet is an in-memory wallet that records every movement
type fakeWallet struct {
	balances    map[uuid.UUID]decimal.Decimal
	withdrawErr error
	depositErr  error
	withdrawals []walletMove
	deposits    []walletMove
}

type walletMove struct {
	participant uuid.UUID
	amount      decimal.Decimal
	txType      models.TransactionType
	wagerID     uuid.UUID
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{balances: make(map[uuid.UUID]decimal.Decimal)}
}

func (w *fakeWallet) set(id uuid.UUID, amount int64) {
	w.balances[id] = decimal.NewFromInt(amount)
}

func (w *fakeWallet) get(id uuid.UUID) decimal.Decimal {
	return w.balances[id]
}

func (w *fakeWallet) total() decimal.Decimal {
	sum := decimal.Zero
	for _, b := range w.balances {
		sum = sum.Add(b)
	}
	return sum
}

func (w *fakeWallet) Balance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	return w.balances[id], nil
}

func (w *fakeWallet) HasAtLeast(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	return w.balances[id].GreaterThanOrEqual(amount), nil
}

func (w *fakeWallet) Withdraw(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.withdrawErr != nil {
		return w.withdrawErr
	}
	if w.balances[id].LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.balances[id] = w.balances[id].Sub(amount)
	w.withdrawals = append(w.withdrawals, walletMove{id, amount, txType, wagerID})
	return nil
}

func (w *fakeWallet) Deposit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, txType models.TransactionType, wagerID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.depositErr != nil {
		return w.depositErr
	}
	w.balances[id] = w.balances[id].Add(amount)
	w.deposits = append(w.deposits, walletMove{id, amount, txType, wagerID})
	return nil
}

// fakeWorld tracks presence and the side effects applied to participants
type fakeWorld struct {
	online     map[uuid.UUID]bool
	frozen     map[uuid.UUID]bool
	locations  map[uuid.UUID]models.Location
	prepared   map[uuid.UUID]int
	restored   map[uuid.UUID]int
	captureErr error
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{
		online:    make(map[uuid.UUID]bool),
		frozen:    make(map[uuid.UUID]bool),
		locations: make(map[uuid.UUID]models.Location),
		prepared:  make(map[uuid.UUID]int),
		restored:  make(map[uuid.UUID]int),
	}
}

func (w *fakeWorld) join(id uuid.UUID) {
	w.online[id] = true
	w.locations[id] = models.Location{World: "world", X: 1, Y: 70, Z: 1}
}

func (w *fakeWorld) IsOnline(id uuid.UUID) bool {
	return w.online[id]
}

func (w *fakeWorld) Capture(ctx context.Context, id uuid.UUID) (*models.SessionSnapshot, error) {
	if w.captureErr != nil {
		return nil, w.captureErr
	}
	return &models.SessionSnapshot{
		Inventory: []*models.ItemStack{{Material: "DIRT", Amount: 64}},
		Location:  w.locations[id],
	}, nil
}

func (w *fakeWorld) Prepare(ctx context.Context, id uuid.UUID, kit models.Kit) error {
	w.prepared[id]++
	return nil
}

func (w *fakeWorld) Restore(ctx context.Context, id uuid.UUID, snapshot *models.SessionSnapshot) error {
	if !w.online[id] {
		return errors.New("participant offline")
	}
	w.restored[id]++
	return nil
}

func (w *fakeWorld) Teleport(ctx context.Context, id uuid.UUID, loc models.Location) error {
	w.locations[id] = loc
	return nil
}

func (w *fakeWorld) SetFrozen(ctx context.Context, id uuid.UUID, frozen bool) error {
	w.frozen[id] = frozen
	return nil
}

// memoryArenaStore keeps arena definitions in memory
type memoryArenaStore struct {
	arenas  []*models.Arena
	lobby   *models.Location
	saves   int
	saveErr error
}

func (s *memoryArenaStore) Load(ctx context.Context) ([]*models.Arena, *models.Location, error) {
	out := make([]*models.Arena, 0, len(s.arenas))
	for _, a := range s.arenas {
		c := *a
		out = append(out, &c)
	}
	return out, s.lobby, nil
}

func (s *memoryArenaStore) Save(ctx context.Context, arenas []*models.Arena, lobby *models.Location) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.arenas = arenas
	s.lobby = lobby
	return nil
}

// recordingPublisher captures published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeProvisioner records paste requests
type fakeProvisioner struct {
	mu       sync.Mutex
	requests []PasteRequest
	err      error
}

func (p *fakeProvisioner) Provision(ctx context.Context, req PasteRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.err
}
