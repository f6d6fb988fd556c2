package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"arenawager/events"
	"arenawager/models"
	"arenawager/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLobby = models.Location{World: "world", X: 0, Y: 100, Z: 0}

type harness struct {
	t      *testing.T
	ctx    context.Context
	sched  *scheduler.Manual
	wallet *fakeWallet
	world  *fakeWorld
	store  *memoryArenaStore
	arenas *ArenaRegistry
	pub    *recordingPublisher
	mgr    *WagerManager
}

func newHarness(t *testing.T, arenaCount int) *harness {
	t.Helper()
	ctx := context.Background()

	store := &memoryArenaStore{lobby: &models.Location{World: testLobby.World, X: testLobby.X, Y: testLobby.Y, Z: testLobby.Z}}
	for i := 0; i < arenaCount; i++ {
		store.arenas = append(store.arenas, &models.Arena{
			ID:     fmt.Sprintf("arena%d", i+1),
			Spawn1: &models.Location{World: "arenas", X: float64(i * 200), Y: 64, Z: -10},
			Spawn2: &models.Location{World: "arenas", X: float64(i * 200), Y: 64, Z: 10},
		})
	}

	sched := scheduler.NewManual()
	arenas := NewArenaRegistry(store, nil, sched, "arenas")
	require.NoError(t, arenas.Load(ctx))

	h := &harness{
		t:      t,
		ctx:    ctx,
		sched:  sched,
		wallet: newFakeWallet(),
		world:  newFakeWorld(),
		store:  store,
		arenas: arenas,
		pub:    &recordingPublisher{},
	}
	h.mgr = NewWagerManager(DefaultManagerConfig(), h.wallet, arenas, h.world, sched, h.pub)
	return h
}

func (h *harness) player(name string, balance int64) models.Participant {
	p := models.Participant{ID: uuid.New(), Name: name}
	h.wallet.set(p.ID, balance)
	h.world.join(p.ID)
	return p
}

func (h *harness) balance(p models.Participant) string {
	return h.wallet.get(p.ID).String()
}

func (h *harness) arenaInUse(id string) bool {
	a, ok := h.arenas.Get(id)
	require.True(h.t, ok)
	return a.InUse
}

func (h *harness) startMatch(a, b models.Participant, stake int64) *models.Wager {
	h.t.Helper()
	offer, err := h.mgr.CreateOffer(h.ctx, a, decimal.NewFromInt(stake))
	require.NoError(h.t, err)
	w, err := h.mgr.AcceptOffer(h.ctx, b, offer.ID)
	require.NoError(h.t, err)
	require.Equal(h.t, models.WagerStateCountdown, w.State)
	return w
}

func (h *harness) state(id uuid.UUID) models.WagerState {
	w, ok := h.mgr.Get(id)
	require.True(h.t, ok)
	return w.State
}

func TestWagerManager_HappyPath(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, models.WagerStateWaiting, offer.State)
	assert.Equal(t, "9000", h.balance(alice))
	assert.True(t, h.mgr.IsInWager(alice.ID))
	require.Len(t, h.pub.ofType(events.EventTypeOfferCreated), 1)

	w, err := h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WagerStateCountdown, w.State)
	assert.Equal(t, "9000", h.balance(bob))
	require.NotNil(t, w.ArenaID)
	assert.Equal(t, "arena1", *w.ArenaID)
	assert.True(t, h.arenaInUse("arena1"))
	assert.Equal(t, 5, w.RemainingTicks)

	// Both participants are kitted, frozen and on their spawns
	assert.Equal(t, 1, h.world.prepared[alice.ID])
	assert.Equal(t, 1, h.world.prepared[bob.ID])
	assert.True(t, h.world.frozen[alice.ID])
	assert.True(t, h.world.frozen[bob.ID])
	assert.Equal(t, float64(-10), h.world.locations[alice.ID].Z)
	assert.Equal(t, float64(10), h.world.locations[bob.ID].Z)

	h.sched.Advance(5 * time.Second)
	ticks := h.pub.ofType(events.EventTypeCountdownTick)
	require.Len(t, ticks, 5)
	for i, e := range ticks {
		assert.Equal(t, 5-i, e.(events.CountdownTickEvent).Remaining)
	}
	assert.Equal(t, models.WagerStateCountdown, h.state(offer.ID))

	h.sched.Advance(time.Second)
	assert.Equal(t, models.WagerStateInProgress, h.state(offer.ID))
	assert.False(t, h.world.frozen[alice.ID])
	assert.False(t, h.world.frozen[bob.ID])
	require.Len(t, h.pub.ofType(events.EventTypeMatchStarted), 1)

	result, err := h.mgr.ResolveElimination(h.ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, alice.ID, result.WinnerID)
	assert.Equal(t, bob.ID, result.LoserID)
	assert.Equal(t, "2000", result.Pot.String())
	assert.Equal(t, "60", result.Tax.String())
	assert.Equal(t, "1940", result.Winnings.String())
	assert.Equal(t, "10940", h.balance(alice))
	assert.Equal(t, "9000", h.balance(bob))
	assert.Equal(t, models.WagerStateFinished, h.state(offer.ID))

	// Settlement waits for the delay
	h.sched.Advance(2 * time.Second)
	assert.True(t, h.arenaInUse("arena1"))
	assert.True(t, h.mgr.IsInWager(alice.ID))

	h.sched.Advance(time.Second)
	assert.False(t, h.arenaInUse("arena1"))
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))
	_, ok := h.mgr.Get(offer.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, h.world.restored[alice.ID])
	assert.Equal(t, 1, h.world.restored[bob.ID])
	assert.Equal(t, testLobby, h.world.locations[alice.ID])
	assert.Equal(t, testLobby, h.world.locations[bob.ID])
	require.Len(t, h.pub.ofType(events.EventTypeWagerSettled), 1)
	assert.Equal(t, 0, h.sched.PendingTimers())
}

func TestWagerManager_CreateOfferRejections(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	poor := h.player("poor", 50)

	tests := []struct {
		name   string
		who    models.Participant
		stake  string
		reason *WagerError
	}{
		{"below minimum", alice, "99", ErrBelowMinimum},
		{"zero", alice, "0", ErrBelowMinimum},
		{"negative", alice, "-100", ErrBelowMinimum},
		{"above maximum", alice, "1000001", ErrAboveMaximum},
		{"insufficient funds", poor, "100", ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.balance(tt.who)
			_, err := h.mgr.CreateOffer(h.ctx, tt.who, decimal.RequireFromString(tt.stake))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)
			assert.NotEmpty(t, err.Error())
			assert.Equal(t, before, h.balance(tt.who))
			assert.False(t, h.mgr.IsInWager(tt.who.ID))
		})
	}

	// Boundaries are inclusive
	_, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(100))
	require.NoError(t, err)

	_, err = h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrAlreadyInMatch)
	assert.Equal(t, "9900", h.balance(alice))
}

func TestWagerManager_SelfAcceptRejected(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(500))
	require.NoError(t, err)

	_, err = h.mgr.AcceptOffer(h.ctx, alice, offer.ID)
	assert.ErrorIs(t, err, ErrSelfAccept)
	assert.Equal(t, models.WagerStateWaiting, h.state(offer.ID))
	assert.Equal(t, "9500", h.balance(alice))
	assert.False(t, h.arenaInUse("arena1"))
}

func TestWagerManager_NoArenaAvailable(t *testing.T) {
	h := newHarness(t, 0)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)

	_, err = h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
	assert.ErrorIs(t, err, ErrNoResourceAvailable)
	assert.Equal(t, "10000", h.balance(bob))
	assert.Equal(t, models.WagerStateWaiting, h.state(offer.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))
	assert.Len(t, h.mgr.GetWaitingOffers(), 1)
}

func TestWagerManager_AcceptRejections(t *testing.T) {
	h := newHarness(t, 2)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)
	carol := h.player("carol", 10000)
	poor := h.player("poor", 10)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)

	t.Run("unknown offer", func(t *testing.T) {
		_, err := h.mgr.AcceptOffer(h.ctx, bob, uuid.New())
		assert.ErrorIs(t, err, ErrOfferUnavailable)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		_, err := h.mgr.AcceptOffer(h.ctx, poor, offer.ID)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, "10", h.balance(poor))
		assert.False(t, h.arenaInUse("arena1"))
	})

	t.Run("acceptor already in a wager", func(t *testing.T) {
		other, err := h.mgr.CreateOffer(h.ctx, carol, decimal.NewFromInt(200))
		require.NoError(t, err)

		_, err = h.mgr.AcceptOffer(h.ctx, carol, offer.ID)
		assert.ErrorIs(t, err, ErrAlreadyInMatch)
		assert.Equal(t, "9800", h.balance(carol))

		require.NoError(t, h.mgr.Cancel(h.ctx, other.ID, ReasonTextByCreator))
	})

	t.Run("already accepted", func(t *testing.T) {
		_, err := h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
		require.NoError(t, err)

		_, err = h.mgr.AcceptOffer(h.ctx, carol, offer.ID)
		assert.ErrorIs(t, err, ErrOfferUnavailable)
		assert.Equal(t, "10000", h.balance(carol))
	})
}

func TestWagerManager_WithdrawFailureReleasesArena(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)

	h.wallet.withdrawErr = errors.New("ledger unavailable")
	_, err = h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to withdraw stake")

	assert.False(t, h.arenaInUse("arena1"))
	assert.Equal(t, models.WagerStateWaiting, h.state(offer.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))
	assert.Equal(t, "10000", h.balance(bob))
}

func TestWagerManager_ArenaMutualExclusion(t *testing.T) {
	h := newHarness(t, 1)
	a := h.player("a", 10000)
	b := h.player("b", 10000)
	c := h.player("c", 10000)
	d := h.player("d", 10000)

	first, err := h.mgr.CreateOffer(h.ctx, a, decimal.NewFromInt(500))
	require.NoError(t, err)
	second, err := h.mgr.CreateOffer(h.ctx, c, decimal.NewFromInt(500))
	require.NoError(t, err)

	_, err = h.mgr.AcceptOffer(h.ctx, b, first.ID)
	require.NoError(t, err)

	_, err = h.mgr.AcceptOffer(h.ctx, d, second.ID)
	assert.ErrorIs(t, err, ErrNoResourceAvailable)
	assert.Equal(t, "10000", h.balance(d))

	// Once the first match settles the arena can be reused
	h.sched.Advance(6 * time.Second)
	_, err = h.mgr.ResolveElimination(h.ctx, a.ID)
	require.NoError(t, err)
	h.sched.Advance(3 * time.Second)

	w, err := h.mgr.AcceptOffer(h.ctx, d, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "arena1", *w.ArenaID)
}

func TestWagerManager_DisconnectDuringCountdown(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	w := h.startMatch(alice, bob, 1000)
	h.sched.Advance(2 * time.Second)

	h.world.online[bob.ID] = false
	h.sched.Advance(time.Second)

	_, ok := h.mgr.Get(w.ID)
	assert.False(t, ok)
	assert.Equal(t, "10000", h.balance(alice))
	assert.Equal(t, "10000", h.balance(bob))
	assert.False(t, h.arenaInUse("arena1"))
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))

	cancelled := h.pub.ofType(events.EventTypeWagerCancelled)
	require.Len(t, cancelled, 1)
	ev := cancelled[0].(events.WagerCancelledEvent)
	assert.Equal(t, ReasonTextDisconnected, ev.Reason)
	assert.Equal(t, "1000", ev.Refund.String())
	assert.Equal(t, models.WagerStateCountdown, ev.PriorState)

	// The present participant is restored now, the absent one on rejoin
	assert.Equal(t, 1, h.world.restored[alice.ID])
	assert.Equal(t, testLobby, h.world.locations[alice.ID])
	assert.True(t, h.mgr.HasPendingRestore(bob.ID))
	assert.Equal(t, 0, h.world.restored[bob.ID])

	h.world.online[bob.ID] = true
	assert.True(t, h.mgr.HandleJoin(h.ctx, bob.ID))
	assert.Equal(t, 1, h.world.restored[bob.ID])
	assert.Equal(t, testLobby, h.world.locations[bob.ID])
	assert.False(t, h.mgr.HandleJoin(h.ctx, bob.ID))

	// No more countdown ticks after cancel
	before := len(h.pub.ofType(events.EventTypeCountdownTick))
	h.sched.Advance(10 * time.Second)
	assert.Equal(t, before, len(h.pub.ofType(events.EventTypeCountdownTick)))
}

func TestWagerManager_OfflineAtStartCancels(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)
	h.world.online[alice.ID] = false

	w, err := h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
	assert.ErrorIs(t, err, ErrMatchCancelled)
	assert.Nil(t, w)
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))
	assert.Equal(t, "10000", h.balance(alice))
	assert.Equal(t, "10000", h.balance(bob))
	assert.False(t, h.arenaInUse("arena1"))
	assert.Equal(t, 0, h.world.prepared[bob.ID])
}

func TestWagerManager_CaptureFailureCancels(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)
	h.world.captureErr = errors.New("gateway timeout")

	w, err := h.mgr.AcceptOffer(h.ctx, bob, offer.ID)
	assert.ErrorIs(t, err, ErrMatchCancelled)
	assert.Nil(t, w)
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.False(t, h.mgr.IsInWager(bob.ID))
	assert.Equal(t, "10000", h.balance(alice))
	assert.Equal(t, "10000", h.balance(bob))
	assert.False(t, h.arenaInUse("arena1"))

	cancelled := h.pub.ofType(events.EventTypeWagerCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, ReasonTextStartFailed, cancelled[0].(events.WagerCancelledEvent).Reason)
}

func TestWagerManager_ShutdownAll(t *testing.T) {
	h := newHarness(t, 2)
	a := h.player("a", 10000)
	b := h.player("b", 10000)
	c := h.player("c", 10000)
	d := h.player("d", 10000)
	e := h.player("e", 10000)

	_, err := h.mgr.CreateOffer(h.ctx, a, decimal.NewFromInt(700))
	require.NoError(t, err)

	h.startMatch(b, c, 1000)
	h.sched.Advance(6 * time.Second)

	// A finished match still awaiting settlement
	h.startMatch(d, e, 2000)
	h.sched.Advance(6 * time.Second)
	_, err = h.mgr.ResolveElimination(h.ctx, e.ID)
	require.NoError(t, err)

	h.mgr.ShutdownAll(h.ctx)

	assert.Empty(t, h.mgr.ActiveWagers())
	assert.Equal(t, "10000", h.balance(a))
	assert.Equal(t, "10000", h.balance(b))
	assert.Equal(t, "10000", h.balance(c))
	assert.Equal(t, "11880", h.balance(d))
	assert.Equal(t, "8000", h.balance(e))
	assert.False(t, h.arenaInUse("arena1"))
	assert.False(t, h.arenaInUse("arena2"))
	for _, p := range []models.Participant{a, b, c, d, e} {
		assert.False(t, h.mgr.IsInWager(p.ID))
	}

	// The settlement timer that was pending is now a no-op
	h.sched.Advance(5 * time.Second)
	assert.Len(t, h.pub.ofType(events.EventTypeWagerSettled), 1)
	assert.Len(t, h.pub.ofType(events.EventTypeWagerCancelled), 2)
}

func TestWagerManager_SettlementIdempotent(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	w := h.startMatch(alice, bob, 1000)
	h.sched.Advance(6 * time.Second)
	_, err := h.mgr.ResolveElimination(h.ctx, alice.ID)
	require.NoError(t, err)

	h.mgr.settle(h.ctx, w.ID)
	h.mgr.settle(h.ctx, w.ID)
	h.sched.Advance(5 * time.Second)

	assert.Len(t, h.pub.ofType(events.EventTypeWagerSettled), 1)
	assert.Equal(t, 1, h.world.restored[alice.ID])
	assert.Equal(t, 1, h.world.restored[bob.ID])
	assert.Equal(t, "10940", h.balance(bob))
	assert.False(t, h.arenaInUse("arena1"))

	// A second elimination signal after settlement does nothing
	result, err := h.mgr.ResolveElimination(h.ctx, alice.ID)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, "10940", h.balance(bob))
}

func TestWagerManager_EliminationOutsideMatchIgnored(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	result, err := h.mgr.ResolveElimination(h.ctx, alice.ID)
	assert.NoError(t, err)
	assert.Nil(t, result)

	w := h.startMatch(alice, bob, 1000)
	result, err = h.mgr.ResolveElimination(h.ctx, bob.ID)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, models.WagerStateCountdown, h.state(w.ID))
	assert.Equal(t, "9000", h.balance(alice))
}

func TestWagerManager_Forfeit(t *testing.T) {
	t.Run("waiting offer is cancelled", func(t *testing.T) {
		h := newHarness(t, 1)
		alice := h.player("alice", 10000)

		_, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
		require.NoError(t, err)

		require.NoError(t, h.mgr.Forfeit(h.ctx, alice.ID))
		assert.Equal(t, "10000", h.balance(alice))
		assert.False(t, h.mgr.IsInWager(alice.ID))
	})

	t.Run("countdown forfeit awards the other side", func(t *testing.T) {
		h := newHarness(t, 1)
		alice := h.player("alice", 10000)
		bob := h.player("bob", 10000)

		h.startMatch(alice, bob, 1000)
		h.sched.Advance(2 * time.Second)

		require.NoError(t, h.mgr.Forfeit(h.ctx, alice.ID))
		assert.Equal(t, "10940", h.balance(bob))
		assert.Equal(t, "9000", h.balance(alice))
		assert.False(t, h.world.frozen[alice.ID])
		assert.False(t, h.world.frozen[bob.ID])

		h.sched.Advance(10 * time.Second)
		assert.Len(t, h.pub.ofType(events.EventTypeMatchStarted), 0)
		assert.False(t, h.arenaInUse("arena1"))
	})

	t.Run("in progress forfeit awards the other side", func(t *testing.T) {
		h := newHarness(t, 1)
		alice := h.player("alice", 10000)
		bob := h.player("bob", 10000)

		h.startMatch(alice, bob, 1000)
		h.sched.Advance(6 * time.Second)

		require.NoError(t, h.mgr.Forfeit(h.ctx, bob.ID))
		assert.Equal(t, "10940", h.balance(alice))

		err := h.mgr.Forfeit(h.ctx, bob.ID)
		assert.ErrorIs(t, err, ErrNotCancellable)
	})

	t.Run("not in a wager", func(t *testing.T) {
		h := newHarness(t, 1)
		err := h.mgr.Forfeit(h.ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotInMatch)
	})
}

func TestWagerManager_Cancel(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	err := h.mgr.Cancel(h.ctx, uuid.New(), "nope")
	assert.ErrorIs(t, err, ErrOfferUnavailable)

	w := h.startMatch(alice, bob, 1000)
	h.sched.Advance(6 * time.Second)
	_, err = h.mgr.ResolveElimination(h.ctx, bob.ID)
	require.NoError(t, err)

	err = h.mgr.Cancel(h.ctx, w.ID, "too late")
	assert.ErrorIs(t, err, ErrNotCancellable)
	assert.Equal(t, "10940", h.balance(alice))
}

func TestWagerManager_CancelOwnOffer(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)

	err = h.mgr.CancelOwnOffer(h.ctx, bob.ID, offer.ID)
	assert.ErrorIs(t, err, ErrNotCancellable)

	require.NoError(t, h.mgr.CancelOwnOffer(h.ctx, alice.ID, offer.ID))
	assert.Equal(t, "10000", h.balance(alice))
	assert.Empty(t, h.mgr.GetWaitingOffers())
}

func TestWagerManager_HandleDisconnect(t *testing.T) {
	t.Run("waiting", func(t *testing.T) {
		h := newHarness(t, 1)
		alice := h.player("alice", 10000)
		_, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
		require.NoError(t, err)

		h.world.online[alice.ID] = false
		h.mgr.HandleDisconnect(h.ctx, alice.ID)
		assert.Equal(t, "10000", h.balance(alice))
		assert.False(t, h.mgr.IsInWager(alice.ID))
	})

	t.Run("in progress counts as a loss", func(t *testing.T) {
		h := newHarness(t, 1)
		alice := h.player("alice", 10000)
		bob := h.player("bob", 10000)
		h.startMatch(alice, bob, 1000)
		h.sched.Advance(6 * time.Second)

		h.world.online[bob.ID] = false
		h.mgr.HandleDisconnect(h.ctx, bob.ID)
		assert.Equal(t, "10940", h.balance(alice))

		h.sched.Advance(3 * time.Second)
		assert.True(t, h.mgr.HasPendingRestore(bob.ID))
		assert.False(t, h.mgr.HasPendingRestore(alice.ID))
	})

	t.Run("not in a wager", func(t *testing.T) {
		h := newHarness(t, 1)
		h.mgr.HandleDisconnect(h.ctx, uuid.New())
		assert.Empty(t, h.pub.events)
	})
}

func TestWagerManager_WaitingOffersNewestFirst(t *testing.T) {
	h := newHarness(t, 1)
	a := h.player("a", 10000)
	b := h.player("b", 10000)
	c := h.player("c", 10000)

	for _, p := range []models.Participant{a, b, c} {
		_, err := h.mgr.CreateOffer(h.ctx, p, decimal.NewFromInt(100))
		require.NoError(t, err)
	}

	offers := h.mgr.GetWaitingOffers()
	require.Len(t, offers, 3)
	assert.Equal(t, c.ID, offers[0].ChallengerID)
	assert.Equal(t, b.ID, offers[1].ChallengerID)
	assert.Equal(t, a.ID, offers[2].ChallengerID)

	got, ok := h.mgr.GetActiveWagerFor(b.ID)
	require.True(t, ok)
	assert.Equal(t, offers[1].ID, got.ID)

	// Returned wagers are copies
	offers[0].State = models.WagerStateFinished
	assert.Equal(t, models.WagerStateWaiting, h.state(offers[0].ID))
}

func TestWagerManager_IndexCorruptionIsDropped(t *testing.T) {
	h := newHarness(t, 1)
	ghost := uuid.New()
	h.mgr.byParticipant[ghost] = uuid.New()

	assert.False(t, h.mgr.IsInWager(ghost))
	_, stillIndexed := h.mgr.byParticipant[ghost]
	assert.False(t, stillIndexed)
}

func TestEconomy_TaxArithmetic(t *testing.T) {
	tests := []struct {
		stake, tax, pot, cut, winnings string
	}{
		{"1000", "3", "2000", "60", "1940"},
		{"100", "3", "200", "6", "194"},
		{"333", "3.3", "666", "21.978", "644.022"},
		{"500", "0", "1000", "0", "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.stake+"@"+tt.tax, func(t *testing.T) {
			e := Economy{TaxPercent: decimal.RequireFromString(tt.tax)}
			w := &models.Wager{ID: uuid.New(), Stake: decimal.RequireFromString(tt.stake)}
			result := e.Settle(w, models.Participant{ID: uuid.New()}, models.Participant{ID: uuid.New()})

			assert.Equal(t, tt.pot, result.Pot.String())
			assert.Equal(t, tt.cut, result.Tax.String())
			assert.Equal(t, tt.winnings, result.Winnings.String())
			assert.True(t, result.Pot.Equal(result.Tax.Add(result.Winnings)))
		})
	}
}
