package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"arenawager/models"
	"arenawager/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(t *testing.T, r WorldReply) []byte {
	data, err := json.Marshal(r)
	require.NoError(t, err)
	return data
}

func TestGameGateway_Presence(t *testing.T) {
	g := NewGameGateway(newFakeBus(), time.Second)
	id := uuid.New()

	assert.False(t, g.IsOnline(id))
	g.MarkOnline(id, "steve")
	assert.True(t, g.IsOnline(id))
	assert.Equal(t, 1, g.OnlineCount())
	g.MarkOffline(id)
	assert.False(t, g.IsOnline(id))
	assert.Equal(t, 0, g.OnlineCount())
}

func TestGameGateway_Capture(t *testing.T) {
	ctx := context.Background()
	bus := newFakeBus()
	g := NewGameGateway(bus, time.Second)
	id := uuid.New()

	snapshot := &models.SessionSnapshot{
		Inventory: []*models.ItemStack{{Material: "STONE", Amount: 3}},
		Location:  models.Location{World: "world", X: 5, Y: 70},
	}
	bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
		assert.Equal(t, SubjectCapture, subject)
		var req WorldRequest
		require.NoError(t, json.Unmarshal(data, &req))
		assert.Equal(t, id, req.ParticipantID)
		return reply(t, WorldReply{OK: true, Snapshot: snapshot}), nil
	}

	got, err := g.Capture(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "STONE", got.Inventory[0].Material)
	assert.Equal(t, float64(5), got.Location.X)

	bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
		return reply(t, WorldReply{OK: true}), nil
	}
	_, err = g.Capture(ctx, id)
	assert.Error(t, err)
}

func TestGameGateway_Commands(t *testing.T) {
	ctx := context.Background()
	bus := newFakeBus()
	g := NewGameGateway(bus, time.Second)
	id := uuid.New()

	var last WorldRequest
	bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
		last = WorldRequest{}
		require.NoError(t, json.Unmarshal(data, &last))
		return reply(t, WorldReply{OK: true}), nil
	}

	require.NoError(t, g.Prepare(ctx, id, models.DefaultKit()))
	require.NotNil(t, last.Kit)
	assert.Equal(t, "DIAMOND_SWORD", last.Kit.Items[0].Material)

	require.NoError(t, g.SetFrozen(ctx, id, false))
	require.NotNil(t, last.Frozen)
	assert.False(t, *last.Frozen)

	require.NoError(t, g.Teleport(ctx, id, models.Location{World: "arenas", Z: 10}))
	require.NotNil(t, last.Location)
	assert.Equal(t, float64(10), last.Location.Z)

	require.NoError(t, g.Restore(ctx, id, &models.SessionSnapshot{}))
	assert.NotNil(t, last.Snapshot)

	subjects := make([]string, 0, len(bus.requests))
	for _, r := range bus.requests {
		subjects = append(subjects, r.subject)
	}
	assert.Equal(t, []string{SubjectPrepare, SubjectFreeze, SubjectTeleport, SubjectRestore}, subjects)
}

func TestGameGateway_Errors(t *testing.T) {
	ctx := context.Background()
	bus := newFakeBus()
	g := NewGameGateway(bus, 20*time.Millisecond)
	id := uuid.New()

	t.Run("rejected", func(t *testing.T) {
		bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
			return reply(t, WorldReply{OK: false, Error: "player offline"}), nil
		}
		err := g.SetFrozen(ctx, id, true)
		assert.ErrorIs(t, err, ErrWorldRejected)
		assert.Contains(t, err.Error(), "player offline")
	})

	t.Run("garbage reply", func(t *testing.T) {
		bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
			return []byte("not json"), nil
		}
		assert.Error(t, g.Prepare(ctx, id, models.Kit{}))
	})

	t.Run("timeout", func(t *testing.T) {
		bus.respond = func(ctx context.Context, subject string, data []byte) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		err := g.Teleport(ctx, id, models.Location{})
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestGameGateway_Provision(t *testing.T) {
	bus := newFakeBus()
	g := NewGameGateway(bus, time.Second)

	err := g.Provision(context.Background(), service.PasteRequest{
		ArenaID:   "pit",
		Schematic: "/data/schematics/pit.schem",
		Origin:    models.Location{World: "wager_arenas", X: 400, Y: 64},
	})
	require.NoError(t, err)

	require.Len(t, bus.published, 1)
	assert.Equal(t, SubjectPaste, bus.published[0].subject)

	var msg PasteMessage
	require.NoError(t, json.Unmarshal(bus.published[0].data, &msg))
	assert.Equal(t, "pit", msg.ArenaID)
	assert.Equal(t, float64(400), msg.Origin.X)
	assert.Empty(t, bus.requests)
}
