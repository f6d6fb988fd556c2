package bot

import (
	"context"

	"arenawager/models"
	"arenawager/service"
)

// Directory answers the read-only queries behind the slash commands
type Directory interface {
	WaitingOffers(ctx context.Context) ([]*models.Wager, error)
	Arenas(ctx context.Context) ([]*models.Arena, *models.Location, error)
}

// Caller runs fn on the main context and waits for it
type Caller interface {
	Call(ctx context.Context, fn func()) error
}

// LoopDirectory reads wager and arena state on the main context
type LoopDirectory struct {
	loop    Caller
	manager *service.WagerManager
	arenas  *service.ArenaRegistry
}

func NewLoopDirectory(loop Caller, manager *service.WagerManager, arenas *service.ArenaRegistry) *LoopDirectory {
	return &LoopDirectory{loop: loop, manager: manager, arenas: arenas}
}

func (d *LoopDirectory) WaitingOffers(ctx context.Context) ([]*models.Wager, error) {
	var offers []*models.Wager
	err := d.loop.Call(ctx, func() {
		offers = d.manager.GetWaitingOffers()
	})
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (d *LoopDirectory) Arenas(ctx context.Context) ([]*models.Arena, *models.Location, error) {
	var (
		arenas []*models.Arena
		lobby  *models.Location
	)
	err := d.loop.Call(ctx, func() {
		arenas = d.arenas.List()
		lobby, _ = d.arenas.Lobby()
	})
	if err != nil {
		return nil, nil, err
	}
	return arenas, lobby, nil
}
