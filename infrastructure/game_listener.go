package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"arenawager/models"
	"arenawager/scheduler"
	"arenawager/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// MatchHandler receives presence and elimination signals on the main context
type MatchHandler interface {
	HandleJoin(ctx context.Context, participantID uuid.UUID) bool
	HandleDisconnect(ctx context.Context, participantID uuid.UUID)
	ResolveElimination(ctx context.Context, eliminated uuid.UUID) (*models.MatchResult, error)
}

// GameListener turns game server signals into wager engine calls
type GameListener struct {
	bus     MessageBus
	sched   scheduler.Scheduler
	matches MatchHandler
	gateway *GameGateway
	wallet  service.AccountWallet
}

// NewGameListener creates a listener. wallet may be nil, in which case joins do not open accounts.
func NewGameListener(bus MessageBus, sched scheduler.Scheduler, matches MatchHandler, gateway *GameGateway, wallet service.AccountWallet) *GameListener {
	return &GameListener{
		bus:     bus,
		sched:   sched,
		matches: matches,
		gateway: gateway,
		wallet:  wallet,
	}
}

// Start subscribes to the join, quit and death subjects
func (l *GameListener) Start() error {
	subs := map[string]func([]byte) error{
		SubjectJoin:  l.handleJoin,
		SubjectQuit:  l.handleQuit,
		SubjectDeath: l.handleDeath,
	}
	for subject, handler := range subs {
		if err := l.bus.Subscribe(subject, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
	}
	return nil
}

func (l *GameListener) handleJoin(data []byte) error {
	var msg PresenceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to decode join: %w", err)
	}
	if msg.ParticipantID == uuid.Nil {
		return fmt.Errorf("join without participant id")
	}

	l.gateway.MarkOnline(msg.ParticipantID, msg.Name)

	if l.wallet != nil {
		if _, err := l.wallet.EnsureAccount(context.Background(), models.Participant{ID: msg.ParticipantID, Name: msg.Name}); err != nil {
			log.WithFields(log.Fields{
				"participantID": msg.ParticipantID,
				"error":         err,
			}).Error("Failed to open wallet account on join")
		}
	}

	l.sched.RunNow(func() {
		l.matches.HandleJoin(context.Background(), msg.ParticipantID)
	})
	return nil
}

func (l *GameListener) handleQuit(data []byte) error {
	var msg PresenceMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to decode quit: %w", err)
	}

	l.gateway.MarkOffline(msg.ParticipantID)
	l.sched.RunNow(func() {
		l.matches.HandleDisconnect(context.Background(), msg.ParticipantID)
	})
	return nil
}

func (l *GameListener) handleDeath(data []byte) error {
	var msg DeathMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to decode death: %w", err)
	}

	l.sched.RunNow(func() {
		result, err := l.matches.ResolveElimination(context.Background(), msg.ParticipantID)
		if err != nil {
			log.WithFields(log.Fields{
				"participantID": msg.ParticipantID,
				"error":         err,
			}).Error("Failed to resolve elimination")
			return
		}
		if result != nil {
			log.WithFields(log.Fields{
				"wagerID":  result.WagerID,
				"winnerID": result.WinnerID,
				"loserID":  result.LoserID,
			}).Info("Elimination resolved match")
		}
	})
	return nil
}
