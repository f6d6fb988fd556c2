package service

import (
	"context"
	"fmt"
	"sort"

	"arenawager/events"
	"arenawager/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// start moves both participants into the arena and begins the countdown.
// It reports false when the wager had to be cancelled instead.
func (m *WagerManager) start(ctx context.Context, wager *models.Wager, arena *models.Arena) bool {
	challengerID := wager.ChallengerID
	opponentID := *wager.OpponentID

	if !m.world.IsOnline(challengerID) || !m.world.IsOnline(opponentID) {
		m.cancel(ctx, wager, ReasonTextDisconnected)
		return false
	}

	if err := m.prepareParticipants(ctx, wager, arena); err != nil {
		log.WithFields(log.Fields{
			"wagerID": wager.ID,
			"arena":   arena.ID,
			"error":   err,
		}).Error("Failed to start match")
		m.cancel(ctx, wager, ReasonTextStartFailed)
		return false
	}

	if err := m.transition(wager, models.WagerStateCountdown); err != nil {
		m.cancel(ctx, wager, ReasonTextStartFailed)
		return false
	}

	for _, pid := range wager.Participants() {
		if err := m.world.SetFrozen(ctx, pid, true); err != nil {
			log.WithFields(log.Fields{
				"wagerID":       wager.ID,
				"participantID": pid,
				"error":         err,
			}).Warn("Failed to freeze participant")
		}
	}

	wager.RemainingTicks = m.cfg.CountdownSeconds

	log.WithFields(log.Fields{
		"wagerID":   wager.ID,
		"arena":     arena.ID,
		"countdown": wager.RemainingTicks,
	}).Info("Match starting")

	names := make(map[uuid.UUID]string, 2)
	for _, pid := range wager.Participants() {
		names[pid] = wager.NameOf(pid)
	}
	m.publisher.Publish(events.MatchStartingEvent{
		WagerID:      wager.ID,
		Participants: wager.Participants(),
		Names:        names,
		Stake:        wager.Stake,
		ArenaID:      arena.ID,
		Countdown:    wager.RemainingTicks,
	})

	wagerID := wager.ID
	m.countdowns[wagerID] = m.scheduler.RunPeriodic(m.cfg.CountdownInterval, func(task Task) {
		m.countdownTick(wagerID, task)
	})

	return true
}

func (m *WagerManager) prepareParticipants(ctx context.Context, wager *models.Wager, arena *models.Arena) error {
	spawns := map[uuid.UUID]*models.Location{
		wager.ChallengerID: arena.Spawn1,
		*wager.OpponentID:  arena.Spawn2,
	}

	for _, pid := range wager.Participants() {
		snapshot, err := m.world.Capture(ctx, pid)
		if err != nil {
			return fmt.Errorf("failed to capture participant %s: %w", pid, err)
		}
		m.snapshots[pid] = snapshot
	}

	for _, pid := range wager.Participants() {
		if err := m.world.Prepare(ctx, pid, m.cfg.Kit); err != nil {
			return fmt.Errorf("failed to prepare participant %s: %w", pid, err)
		}
		if err := m.world.Teleport(ctx, pid, *spawns[pid]); err != nil {
			return fmt.Errorf("failed to teleport participant %s: %w", pid, err)
		}
	}

	return nil
}

func (m *WagerManager) countdownTick(wagerID uuid.UUID, task Task) {
	ctx := context.Background()

	wager, ok := m.active[wagerID]
	if !ok || wager.State != models.WagerStateCountdown {
		task.Cancel()
		delete(m.countdowns, wagerID)
		return
	}

	for _, pid := range wager.Participants() {
		if !m.world.IsOnline(pid) {
			task.Cancel()
			delete(m.countdowns, wagerID)
			m.cancel(ctx, wager, ReasonTextDisconnected)
			return
		}
	}

	if wager.RemainingTicks > 0 {
		m.publisher.Publish(events.CountdownTickEvent{
			WagerID:      wager.ID,
			Participants: wager.Participants(),
			Remaining:    wager.RemainingTicks,
		})
		wager.RemainingTicks--
		return
	}

	task.Cancel()
	delete(m.countdowns, wagerID)

	for _, pid := range wager.Participants() {
		if err := m.world.SetFrozen(ctx, pid, false); err != nil {
			log.WithFields(log.Fields{
				"wagerID":       wager.ID,
				"participantID": pid,
				"error":         err,
			}).Warn("Failed to unfreeze participant")
		}
	}

	if err := m.transition(wager, models.WagerStateInProgress); err != nil {
		m.cancel(ctx, wager, ReasonTextStartFailed)
		return
	}

	log.WithField("wagerID", wager.ID).Info("Match in progress")

	m.publisher.Publish(events.MatchStartedEvent{
		WagerID:      wager.ID,
		Participants: wager.Participants(),
	})
}

// ResolveElimination awards the match to the other side when a participant is eliminated.
// It does nothing unless the participant is in a match that is in progress.
func (m *WagerManager) ResolveElimination(ctx context.Context, eliminated uuid.UUID) (*models.MatchResult, error) {
	wager, ok := m.lookup(eliminated)
	if !ok || wager.State != models.WagerStateInProgress {
		return nil, nil
	}
	return m.resolve(ctx, wager, eliminated)
}

func (m *WagerManager) resolve(ctx context.Context, wager *models.Wager, loserID uuid.UUID) (*models.MatchResult, error) {
	winner, ok := wager.GetOpponent(loserID)
	if !ok {
		return nil, fmt.Errorf("participant %s has no opponent in wager %s", loserID, wager.ID)
	}
	loser := models.Participant{ID: loserID, Name: wager.NameOf(loserID)}

	prior := wager.State
	if err := m.transition(wager, models.WagerStateFinished); err != nil {
		return nil, err
	}

	if prior == models.WagerStateCountdown {
		m.stopCountdown(wager.ID)
		for _, pid := range wager.Participants() {
			if m.world.IsOnline(pid) {
				if err := m.world.SetFrozen(ctx, pid, false); err != nil {
					log.WithFields(log.Fields{
						"wagerID":       wager.ID,
						"participantID": pid,
						"error":         err,
					}).Warn("Failed to unfreeze participant")
				}
			}
		}
	}

	result := m.economy.Settle(wager, winner, loser)

	m.credit(ctx, winner.ID, result.Winnings, models.TransactionTypeWagerWin, wager.ID)

	arenaID := ""
	if wager.ArenaID != nil {
		arenaID = *wager.ArenaID
	}

	log.WithFields(log.Fields{
		"wagerID":  wager.ID,
		"winner":   winner.Name,
		"loser":    loser.Name,
		"pot":      result.Pot.String(),
		"tax":      result.Tax.String(),
		"winnings": result.Winnings.String(),
	}).Info("Match resolved")

	m.publisher.Publish(events.MatchResolvedEvent{
		Result:  result,
		ArenaID: arenaID,
	})

	wagerID := wager.ID
	m.settlements[wagerID] = m.scheduler.RunAfter(m.cfg.SettlementDelay, func() {
		m.settle(context.Background(), wagerID)
	})

	return &result, nil
}

// settle releases the arena and restores participants. Calling it twice is a no-op.
func (m *WagerManager) settle(ctx context.Context, wagerID uuid.UUID) {
	wager, ok := m.active[wagerID]
	if !ok {
		return
	}

	if task, ok := m.settlements[wagerID]; ok {
		task.Cancel()
		delete(m.settlements, wagerID)
	}

	for _, pid := range wager.Participants() {
		m.restoreParticipant(ctx, pid)
	}

	arenaID := ""
	if wager.ArenaID != nil {
		arenaID = *wager.ArenaID
		m.arenas.Release(arenaID)
	}

	m.remove(wager)

	log.WithFields(log.Fields{
		"wagerID": wagerID,
		"arena":   arenaID,
	}).Info("Wager settled")

	m.publisher.Publish(events.WagerSettledEvent{
		WagerID: wagerID,
		ArenaID: arenaID,
	})
}

func (m *WagerManager) cancel(ctx context.Context, wager *models.Wager, reason string) {
	prior := wager.State
	if err := m.transition(wager, models.WagerStateFinished); err != nil {
		return
	}
	m.stopCountdown(wager.ID)

	for _, pid := range wager.Participants() {
		m.credit(ctx, pid, wager.Stake, models.TransactionTypeWagerRefund, wager.ID)
	}

	if wager.ArenaID != nil {
		for _, pid := range wager.Participants() {
			m.restoreParticipant(ctx, pid)
		}
		m.arenas.Release(*wager.ArenaID)
	}

	m.remove(wager)

	log.WithFields(log.Fields{
		"wagerID":    wager.ID,
		"reason":     reason,
		"priorState": prior,
		"refund":     wager.Stake.String(),
	}).Info("Wager cancelled")

	m.publisher.Publish(events.WagerCancelledEvent{
		WagerID:      wager.ID,
		Participants: wager.Participants(),
		Reason:       reason,
		Refund:       wager.Stake,
		PriorState:   prior,
	})
}

// restoreParticipant puts back a captured snapshot, or parks it until the participant returns
func (m *WagerManager) restoreParticipant(ctx context.Context, participantID uuid.UUID) {
	snapshot, ok := m.snapshots[participantID]
	if !ok {
		return
	}
	delete(m.snapshots, participantID)

	if !m.world.IsOnline(participantID) {
		m.pendingRestores[participantID] = snapshot
		log.WithField("participantID", participantID).Info("Participant offline, restore deferred until rejoin")
		return
	}

	m.applyRestore(ctx, participantID, snapshot)
}

func (m *WagerManager) applyRestore(ctx context.Context, participantID uuid.UUID, snapshot *models.SessionSnapshot) {
	fields := log.Fields{"participantID": participantID}

	if err := m.world.SetFrozen(ctx, participantID, false); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to unfreeze participant")
	}
	if err := m.world.Restore(ctx, participantID, snapshot); err != nil {
		log.WithFields(fields).WithError(err).Error("Failed to restore participant")
	}
	if lobby, ok := m.arenas.Lobby(); ok {
		if err := m.world.Teleport(ctx, participantID, *lobby); err != nil {
			log.WithFields(fields).WithError(err).Warn("Failed to teleport participant to lobby")
		}
	}
}

// HandleDisconnect reacts to a participant leaving the game server
func (m *WagerManager) HandleDisconnect(ctx context.Context, participantID uuid.UUID) {
	wager, ok := m.lookup(participantID)
	if !ok {
		return
	}

	switch wager.State {
	case models.WagerStateWaiting:
		m.cancel(ctx, wager, ReasonTextCreatorLeft)
	case models.WagerStateAccepted, models.WagerStateCountdown:
		m.cancel(ctx, wager, ReasonTextDisconnected)
	case models.WagerStateInProgress:
		if _, err := m.resolve(ctx, wager, participantID); err != nil {
			log.WithFields(log.Fields{
				"wagerID":       wager.ID,
				"participantID": participantID,
				"error":         err,
			}).Error("Failed to resolve match after disconnect")
		}
	}
}

// HandleJoin applies any restore that was parked while the participant was away
func (m *WagerManager) HandleJoin(ctx context.Context, participantID uuid.UUID) bool {
	snapshot, ok := m.pendingRestores[participantID]
	if !ok {
		return false
	}
	delete(m.pendingRestores, participantID)

	m.applyRestore(ctx, participantID, snapshot)
	log.WithField("participantID", participantID).Info("Applied deferred restore")
	return true
}

// HasPendingRestore reports whether a participant is owed a restore on rejoin
func (m *WagerManager) HasPendingRestore(participantID uuid.UUID) bool {
	_, ok := m.pendingRestores[participantID]
	return ok
}

// ShutdownAll settles finished matches immediately and cancels everything else
func (m *WagerManager) ShutdownAll(ctx context.Context) {
	ids := make([]uuid.UUID, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	cancelled, settled := 0, 0
	for _, id := range ids {
		wager, ok := m.active[id]
		if !ok {
			continue
		}
		if wager.State == models.WagerStateFinished {
			m.settle(ctx, id)
			settled++
			continue
		}
		m.cancel(ctx, wager, ReasonTextShutdown)
		cancelled++
	}

	for id, task := range m.countdowns {
		task.Cancel()
		delete(m.countdowns, id)
	}

	if owed := m.RetryPendingCredits(ctx); owed > 0 {
		for _, c := range m.pendingCredits {
			log.WithFields(log.Fields{
				"wagerID":       c.wagerID,
				"participantID": c.participantID,
				"amount":        c.amount.String(),
				"type":          c.txType,
			}).Error("Deposit still owed at shutdown, needs reconciliation")
		}
	}
	if m.creditRetry != nil {
		m.creditRetry.Cancel()
		m.creditRetry = nil
	}

	log.WithFields(log.Fields{
		"cancelled": cancelled,
		"settled":   settled,
	}).Info("All wagers shut down")
}
