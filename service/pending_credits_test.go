package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"arenawager/events"
	"arenawager/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestWagerManager_CancelledContextStillRefunds(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 5000)

	offer, err := h.mgr.CreateOffer(h.ctx, alice, decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "4000", h.balance(alice))

	require.NoError(t, h.mgr.Cancel(cancelledContext(), offer.ID, ReasonTextByCreator))

	assert.Equal(t, "5000", h.balance(alice))
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.True(t, h.mgr.PendingCredits().IsZero())
}

func TestWagerManager_CancelledContextStillPaysOut(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)
	h.startMatch(alice, bob, 1000)

	require.NoError(t, h.mgr.Forfeit(cancelledContext(), bob.ID))

	assert.Equal(t, "10940", h.balance(alice))
	assert.Equal(t, "9000", h.balance(bob))
	assert.True(t, h.mgr.PendingCredits().IsZero())
}

func TestWagerManager_RefusedDepositsAreRetried(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)
	h.startMatch(alice, bob, 1000)
	h.sched.Advance(6 * time.Second)

	h.wallet.depositErr = errors.New("ledger unavailable")
	result, err := h.mgr.ResolveElimination(h.ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "1940", result.Winnings.String())

	// The payout is owed, not lost
	assert.Equal(t, "9000", h.balance(alice))
	assert.Equal(t, "1940", h.mgr.PendingCredits().String())
	assert.Len(t, h.pub.ofType(events.EventTypeMatchResolved), 1)

	// Still failing: the deposit stays queued
	h.sched.Advance(CreditRetryInterval)
	assert.Equal(t, "1940", h.mgr.PendingCredits().String())

	h.wallet.depositErr = nil
	h.sched.Advance(CreditRetryInterval)
	assert.Equal(t, "10940", h.balance(alice))
	assert.True(t, h.mgr.PendingCredits().IsZero())

	require.Len(t, h.wallet.deposits, 1)
	assert.Equal(t, models.TransactionTypeWagerWin, h.wallet.deposits[0].txType)
	assert.Equal(t, alice.ID, h.wallet.deposits[0].participant)
}

func TestWagerManager_ShutdownRetriesOwedRefunds(t *testing.T) {
	h := newHarness(t, 1)
	alice := h.player("alice", 10000)
	bob := h.player("bob", 10000)
	w := h.startMatch(alice, bob, 1000)

	h.wallet.depositErr = errors.New("ledger unavailable")
	require.NoError(t, h.mgr.Cancel(h.ctx, w.ID, "admin"))
	assert.Equal(t, "2000", h.mgr.PendingCredits().String())
	assert.False(t, h.mgr.IsInWager(alice.ID))
	assert.False(t, h.arenaInUse("arena1"))

	h.wallet.depositErr = nil
	h.mgr.ShutdownAll(h.ctx)

	assert.Equal(t, "10000", h.balance(alice))
	assert.Equal(t, "10000", h.balance(bob))
	assert.True(t, h.mgr.PendingCredits().IsZero())
	assert.Equal(t, 0, h.sched.PendingTimers())
}
