package infrastructure

import (
	"encoding/json"
	"testing"
	"time"

	"arenawager/scheduler"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, v any) []byte {
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestGameListener(t *testing.T) {
	bus := newFakeBus()
	sched := scheduler.NewManual()
	matches := &fakeMatches{}
	gateway := NewGameGateway(bus, time.Second)
	accounts := &fakeAccounts{}

	l := NewGameListener(bus, sched, matches, gateway, accounts)
	require.NoError(t, l.Start())
	assert.Len(t, bus.handlers, 3)

	id := uuid.New()

	require.NoError(t, bus.deliver(SubjectJoin, encode(t, PresenceMessage{ParticipantID: id, Name: "alex"})))
	assert.True(t, gateway.IsOnline(id))
	require.Len(t, accounts.opened, 1)
	assert.Equal(t, "alex", accounts.opened[0].Name)

	// Engine calls wait for the main context
	assert.Empty(t, matches.joins)
	sched.RunPending()
	assert.Equal(t, []uuid.UUID{id}, matches.joins)

	require.NoError(t, bus.deliver(SubjectDeath, encode(t, DeathMessage{ParticipantID: id})))
	sched.RunPending()
	assert.Equal(t, []uuid.UUID{id}, matches.deaths)

	require.NoError(t, bus.deliver(SubjectQuit, encode(t, PresenceMessage{ParticipantID: id})))
	assert.False(t, gateway.IsOnline(id))
	sched.RunPending()
	assert.Equal(t, []uuid.UUID{id}, matches.disconnects)
}

func TestGameListener_BadMessages(t *testing.T) {
	bus := newFakeBus()
	sched := scheduler.NewManual()
	matches := &fakeMatches{}
	l := NewGameListener(bus, sched, matches, NewGameGateway(bus, time.Second), nil)
	require.NoError(t, l.Start())

	assert.Error(t, bus.deliver(SubjectJoin, []byte("{")))
	assert.Error(t, bus.deliver(SubjectJoin, encode(t, PresenceMessage{Name: "nobody"})))
	assert.Error(t, bus.deliver(SubjectQuit, []byte("nope")))
	assert.Error(t, bus.deliver(SubjectDeath, []byte("[]")))

	sched.RunPending()
	assert.Empty(t, matches.joins)
	assert.Empty(t, matches.disconnects)
	assert.Empty(t, matches.deaths)
}
