package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arenawager/events"
	"arenawager/format"
	"arenawager/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// ManagerConfig holds the tunables of the wager lifecycle
type ManagerConfig struct {
	MinStake          decimal.Decimal
	MaxStake          decimal.Decimal
	TaxPercent        float64
	CountdownSeconds  int
	CountdownInterval time.Duration
	SettlementDelay   time.Duration
	Kit               models.Kit
}

// DefaultManagerConfig returns the stock limits: 3% tax, 100 to 1,000,000 stakes, 5 second countdown
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MinStake:          decimal.NewFromInt(100),
		MaxStake:          decimal.NewFromInt(1_000_000),
		TaxPercent:        3.0,
		CountdownSeconds:  5,
		CountdownInterval: time.Second,
		SettlementDelay:   3 * time.Second,
		Kit:               models.DefaultKit(),
	}
}

// WagerManager owns every active wager and drives it through its lifecycle.
// All methods must be called on the main context.
type WagerManager struct {
	cfg       ManagerConfig
	economy   Economy
	wallet    Wallet
	arenas    *ArenaRegistry
	world     World
	scheduler Scheduler
	publisher EventPublisher
	now       func() time.Time

	active          map[uuid.UUID]*models.Wager
	order           []uuid.UUID
	byParticipant   map[uuid.UUID]uuid.UUID
	snapshots       map[uuid.UUID]*models.SessionSnapshot
	pendingRestores map[uuid.UUID]*models.SessionSnapshot
	countdowns      map[uuid.UUID]Task
	settlements     map[uuid.UUID]Task
	pendingCredits  []pendingCredit
	creditRetry     Task
}

// NewWagerManager creates a manager with no active wagers
func NewWagerManager(cfg ManagerConfig, wallet Wallet, arenas *ArenaRegistry, world World, sched Scheduler, publisher EventPublisher) *WagerManager {
	if cfg.CountdownInterval <= 0 {
		cfg.CountdownInterval = time.Second
	}
	if cfg.SettlementDelay < 0 {
		cfg.SettlementDelay = 0
	}

	return &WagerManager{
		cfg:             cfg,
		economy:         NewEconomy(cfg.TaxPercent),
		wallet:          wallet,
		arenas:          arenas,
		world:           world,
		scheduler:       sched,
		publisher:       publisher,
		now:             time.Now,
		active:          make(map[uuid.UUID]*models.Wager),
		byParticipant:   make(map[uuid.UUID]uuid.UUID),
		snapshots:       make(map[uuid.UUID]*models.SessionSnapshot),
		pendingRestores: make(map[uuid.UUID]*models.SessionSnapshot),
		countdowns:      make(map[uuid.UUID]Task),
		settlements:     make(map[uuid.UUID]Task),
	}
}

// Economy exposes the payout rules in use
func (m *WagerManager) Economy() Economy {
	return m.economy
}

// Config exposes the lifecycle settings in use
func (m *WagerManager) Config() ManagerConfig {
	return m.cfg
}

// CreateOffer debits the challenger's stake and opens a waiting offer
func (m *WagerManager) CreateOffer(ctx context.Context, challenger models.Participant, stake decimal.Decimal) (*models.Wager, error) {
	if m.IsInWager(challenger.ID) {
		return nil, reject(ErrAlreadyInMatch, "you are already in a wager")
	}
	if !stake.IsPositive() || stake.LessThan(m.cfg.MinStake) {
		return nil, reject(ErrBelowMinimum, "minimum wager is %s", format.Money(m.cfg.MinStake))
	}
	if stake.GreaterThan(m.cfg.MaxStake) {
		return nil, reject(ErrAboveMaximum, "maximum wager is %s", format.Money(m.cfg.MaxStake))
	}

	ok, err := m.wallet.HasAtLeast(ctx, challenger.ID, stake)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		return nil, reject(ErrInsufficientFunds, "you don't have enough money, you need %s", format.Money(stake))
	}

	wager := models.NewWager(challenger, stake, m.now())

	if err := m.wallet.Withdraw(ctx, challenger.ID, stake, models.TransactionTypeWagerStake, wager.ID); err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, reject(ErrInsufficientFunds, "you don't have enough money, you need %s", format.Money(stake))
		}
		return nil, fmt.Errorf("failed to withdraw stake: %w", err)
	}

	m.active[wager.ID] = wager
	m.order = append(m.order, wager.ID)
	m.byParticipant[challenger.ID] = wager.ID

	log.WithFields(log.Fields{
		"wagerID":    wager.ID,
		"challenger": challenger.Name,
		"stake":      stake.String(),
	}).Info("Wager offer created")

	m.publisher.Publish(events.OfferCreatedEvent{
		WagerID:        wager.ID,
		ChallengerID:   challenger.ID,
		ChallengerName: challenger.Name,
		Stake:          stake,
	})

	return wager.Clone(), nil
}

// AcceptOffer binds the acceptor as opponent, reserves an arena and starts the match
func (m *WagerManager) AcceptOffer(ctx context.Context, acceptor models.Participant, wagerID uuid.UUID) (*models.Wager, error) {
	wager, ok := m.active[wagerID]
	if !ok || wager.State != models.WagerStateWaiting {
		return nil, reject(ErrOfferUnavailable, "this wager is no longer available")
	}
	if wager.ChallengerID == acceptor.ID {
		return nil, reject(ErrSelfAccept, "you cannot accept your own wager")
	}
	if m.IsInWager(acceptor.ID) {
		return nil, reject(ErrAlreadyInMatch, "you are already in a wager")
	}

	ok, err := m.wallet.HasAtLeast(ctx, acceptor.ID, wager.Stake)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if !ok {
		return nil, reject(ErrInsufficientFunds, "you don't have enough money, you need %s", format.Money(wager.Stake))
	}

	arena, ok := m.arenas.FindFree()
	if !ok {
		return nil, reject(ErrNoResourceAvailable, "no arenas available, try again later")
	}
	if err := m.arenas.Reserve(arena.ID); err != nil {
		return nil, reject(ErrNoResourceAvailable, "no arenas available, try again later")
	}

	if err := m.wallet.Withdraw(ctx, acceptor.ID, wager.Stake, models.TransactionTypeWagerStake, wager.ID); err != nil {
		m.arenas.Release(arena.ID)
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, reject(ErrInsufficientFunds, "you don't have enough money, you need %s", format.Money(wager.Stake))
		}
		return nil, fmt.Errorf("failed to withdraw stake: %w", err)
	}

	opponentID := acceptor.ID
	arenaID := arena.ID
	wager.OpponentID = &opponentID
	wager.OpponentName = acceptor.Name
	wager.ArenaID = &arenaID
	if err := m.transition(wager, models.WagerStateAccepted); err != nil {
		return nil, err
	}
	m.byParticipant[acceptor.ID] = wager.ID

	log.WithFields(log.Fields{
		"wagerID":    wager.ID,
		"challenger": wager.ChallengerName,
		"opponent":   acceptor.Name,
		"arena":      arenaID,
		"stake":      wager.Stake.String(),
	}).Info("Wager offer accepted")

	m.publisher.Publish(events.OfferAcceptedEvent{
		WagerID:        wager.ID,
		ChallengerID:   wager.ChallengerID,
		ChallengerName: wager.ChallengerName,
		OpponentID:     acceptor.ID,
		OpponentName:   acceptor.Name,
		Stake:          wager.Stake,
		ArenaID:        arenaID,
	})

	if !m.start(ctx, wager, arena) {
		return nil, reject(ErrMatchCancelled, "the match could not start, %s was refunded", format.Money(wager.Stake))
	}

	return wager.Clone(), nil
}

// Cancel ends a wager that has not finished, refunding every stake taken
func (m *WagerManager) Cancel(ctx context.Context, wagerID uuid.UUID, reason string) error {
	wager, ok := m.active[wagerID]
	if !ok {
		return reject(ErrOfferUnavailable, "this wager is no longer available")
	}
	if wager.State == models.WagerStateFinished {
		return reject(ErrNotCancellable, "this wager has already finished")
	}

	m.cancel(ctx, wager, reason)
	return nil
}

// CancelOwnOffer lets a challenger withdraw an offer nobody has accepted yet
func (m *WagerManager) CancelOwnOffer(ctx context.Context, participantID, wagerID uuid.UUID) error {
	wager, ok := m.active[wagerID]
	if !ok {
		return reject(ErrOfferUnavailable, "this wager is no longer available")
	}
	if wager.ChallengerID != participantID || wager.State != models.WagerStateWaiting {
		return reject(ErrNotCancellable, "only the creator can cancel a wager that is still waiting")
	}

	m.cancel(ctx, wager, ReasonTextByCreator)
	return nil
}

// Forfeit withdraws a participant: a waiting offer is cancelled, a started match is lost
func (m *WagerManager) Forfeit(ctx context.Context, participantID uuid.UUID) error {
	wager, ok := m.lookup(participantID)
	if !ok {
		return reject(ErrNotInMatch, "you are not in a wager")
	}

	switch wager.State {
	case models.WagerStateWaiting:
		m.cancel(ctx, wager, ReasonTextByCreator)
		return nil
	case models.WagerStateCountdown, models.WagerStateInProgress:
		_, err := m.resolve(ctx, wager, participantID)
		return err
	default:
		return reject(ErrNotCancellable, "this wager can no longer be cancelled")
	}
}

// GetWaitingOffers returns open offers, newest first
func (m *WagerManager) GetWaitingOffers() []*models.Wager {
	offers := make([]*models.Wager, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		if w, ok := m.active[m.order[i]]; ok && w.State == models.WagerStateWaiting {
			offers = append(offers, w.Clone())
		}
	}
	return offers
}

// ActiveWagers returns every wager still held by the manager, oldest first
func (m *WagerManager) ActiveWagers() []*models.Wager {
	list := make([]*models.Wager, 0, len(m.active))
	for _, id := range m.order {
		if w, ok := m.active[id]; ok {
			list = append(list, w.Clone())
		}
	}
	return list
}

// Get returns a wager by id
func (m *WagerManager) Get(wagerID uuid.UUID) (*models.Wager, bool) {
	w, ok := m.active[wagerID]
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// GetActiveWagerFor returns the wager a participant is bound to
func (m *WagerManager) GetActiveWagerFor(participantID uuid.UUID) (*models.Wager, bool) {
	w, ok := m.lookup(participantID)
	if !ok {
		return nil, false
	}
	return w.Clone(), true
}

// IsInWager reports whether a participant is bound to any wager
func (m *WagerManager) IsInWager(participantID uuid.UUID) bool {
	_, ok := m.lookup(participantID)
	return ok
}

// lookup resolves the participant index, dropping entries that point at nothing
func (m *WagerManager) lookup(participantID uuid.UUID) (*models.Wager, bool) {
	wagerID, ok := m.byParticipant[participantID]
	if !ok {
		return nil, false
	}
	wager, ok := m.active[wagerID]
	if !ok {
		log.WithFields(log.Fields{
			"participantID": participantID,
			"wagerID":       wagerID,
		}).Error("Participant index points at a missing wager, dropping entry")
		delete(m.byParticipant, participantID)
		return nil, false
	}
	return wager, true
}

func (m *WagerManager) transition(wager *models.Wager, next models.WagerState) error {
	if !wager.State.CanTransitionTo(next) {
		log.WithFields(log.Fields{
			"wagerID": wager.ID,
			"from":    wager.State,
			"to":      next,
		}).Error("Illegal wager state transition")
		return fmt.Errorf("illegal wager state transition from %s to %s", wager.State, next)
	}
	wager.State = next
	return nil
}

func (m *WagerManager) remove(wager *models.Wager) {
	delete(m.active, wager.ID)
	for i, id := range m.order {
		if id == wager.ID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	for _, pid := range wager.Participants() {
		if m.byParticipant[pid] == wager.ID {
			delete(m.byParticipant, pid)
		}
	}
}

func (m *WagerManager) stopCountdown(wagerID uuid.UUID) {
	if task, ok := m.countdowns[wagerID]; ok {
		task.Cancel()
		delete(m.countdowns, wagerID)
	}
}
