package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrWorldRejected = errors.New("game server rejected request")

// GameGateway drives the game server plugin over the message bus.
// Presence is tracked from join and quit signals so IsOnline never blocks.
type GameGateway struct {
	bus     MessageBus
	timeout time.Duration

	mu     sync.RWMutex
	online map[uuid.UUID]string
}

// NewGameGateway creates a gateway whose requests give up after timeout
func NewGameGateway(bus MessageBus, timeout time.Duration) *GameGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GameGateway{
		bus:     bus,
		timeout: timeout,
		online:  make(map[uuid.UUID]string),
	}
}

var (
	_ service.World       = (*GameGateway)(nil)
	_ service.Provisioner = (*GameGateway)(nil)
)

// MarkOnline records that a participant joined the game server
func (g *GameGateway) MarkOnline(participantID uuid.UUID, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.online[participantID] = name
}

// MarkOffline records that a participant left the game server
func (g *GameGateway) MarkOffline(participantID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.online, participantID)
}

func (g *GameGateway) IsOnline(participantID uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.online[participantID]
	return ok
}

// OnlineCount returns how many participants are connected
func (g *GameGateway) OnlineCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.online)
}

func (g *GameGateway) request(ctx context.Context, subject string, req WorldRequest) (*WorldReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.bus.Request(ctx, subject, data)
	if err != nil {
		return nil, err
	}

	var reply WorldReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode %s reply: %w", subject, err)
	}
	if !reply.OK {
		return nil, fmt.Errorf("%w: %s: %s", ErrWorldRejected, subject, reply.Error)
	}

	log.WithFields(log.Fields{
		"subject":       subject,
		"participantID": req.ParticipantID,
	}).Debug("World request completed")
	return &reply, nil
}

func (g *GameGateway) Capture(ctx context.Context, participantID uuid.UUID) (*models.SessionSnapshot, error) {
	reply, err := g.request(ctx, SubjectCapture, WorldRequest{ParticipantID: participantID})
	if err != nil {
		return nil, err
	}
	if reply.Snapshot == nil {
		return nil, fmt.Errorf("capture reply for %s carried no snapshot", participantID)
	}
	return reply.Snapshot, nil
}

func (g *GameGateway) Prepare(ctx context.Context, participantID uuid.UUID, kit models.Kit) error {
	_, err := g.request(ctx, SubjectPrepare, WorldRequest{ParticipantID: participantID, Kit: &kit})
	return err
}

func (g *GameGateway) Restore(ctx context.Context, participantID uuid.UUID, snapshot *models.SessionSnapshot) error {
	_, err := g.request(ctx, SubjectRestore, WorldRequest{ParticipantID: participantID, Snapshot: snapshot})
	return err
}

func (g *GameGateway) Teleport(ctx context.Context, participantID uuid.UUID, location models.Location) error {
	_, err := g.request(ctx, SubjectTeleport, WorldRequest{ParticipantID: participantID, Location: &location})
	return err
}

func (g *GameGateway) SetFrozen(ctx context.Context, participantID uuid.UUID, frozen bool) error {
	_, err := g.request(ctx, SubjectFreeze, WorldRequest{ParticipantID: participantID, Frozen: &frozen})
	return err
}

// Provision asks the plugin to paste a schematic. Building can take a while so no reply is awaited.
func (g *GameGateway) Provision(ctx context.Context, req service.PasteRequest) error {
	data, err := json.Marshal(PasteMessage{
		ArenaID:   req.ArenaID,
		Schematic: req.Schematic,
		Origin:    req.Origin,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal paste request: %w", err)
	}
	return g.bus.Publish(ctx, SubjectPaste, data)
}
