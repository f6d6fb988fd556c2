package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"arenawager/models"

	log "github.com/sirupsen/logrus"
)

const arenaSpacing = 200

var schematicExtensions = []string{".schem", ".schematic"}

// ArenaRegistry owns the arena pool and its reservation flags.
// It must only be used from the main context.
type ArenaRegistry struct {
	arenas      map[string]*models.Arena
	lobby       *models.Location
	store       ArenaStore
	provisioner Provisioner
	scheduler   Scheduler
	arenaWorld  string
}

// NewArenaRegistry creates an empty registry backed by store
func NewArenaRegistry(store ArenaStore, provisioner Provisioner, sched Scheduler, arenaWorld string) *ArenaRegistry {
	return &ArenaRegistry{
		arenas:      make(map[string]*models.Arena),
		store:       store,
		provisioner: provisioner,
		scheduler:   sched,
		arenaWorld:  arenaWorld,
	}
}

// Load replaces the pool with the stored definitions. Reservations never survive a restart.
func (r *ArenaRegistry) Load(ctx context.Context) error {
	arenas, lobby, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load arenas: %w", err)
	}

	r.arenas = make(map[string]*models.Arena, len(arenas))
	for _, a := range arenas {
		a.InUse = false
		r.arenas[a.ID] = a
	}
	r.lobby = lobby

	log.WithFields(log.Fields{
		"arenas":   len(r.arenas),
		"hasLobby": lobby != nil,
	}).Info("Loaded arenas")
	return nil
}

// Save persists every arena definition and the lobby
func (r *ArenaRegistry) Save(ctx context.Context) error {
	if err := r.store.Save(ctx, r.sorted(), r.lobby); err != nil {
		return fmt.Errorf("failed to save arenas: %w", err)
	}
	return nil
}

func (r *ArenaRegistry) sorted() []*models.Arena {
	list := make([]*models.Arena, 0, len(r.arenas))
	for _, a := range r.arenas {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func copyArena(a *models.Arena) *models.Arena {
	c := *a
	if a.Spawn1 != nil {
		s := *a.Spawn1
		c.Spawn1 = &s
	}
	if a.Spawn2 != nil {
		s := *a.Spawn2
		c.Spawn2 = &s
	}
	return &c
}

// FindFree returns the first ready, unreserved arena in name order
func (r *ArenaRegistry) FindFree() (*models.Arena, bool) {
	for _, a := range r.sorted() {
		if a.IsAssignable() {
			return copyArena(a), true
		}
	}
	return nil, false
}

// Reserve marks an arena as held by a match
func (r *ArenaRegistry) Reserve(id string) error {
	a, ok := r.arenas[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrArenaNotFound, id)
	}
	if !a.IsReady() {
		return fmt.Errorf("%w: %s", ErrArenaNotReady, id)
	}
	if a.InUse {
		return fmt.Errorf("%w: %s", ErrArenaInUse, id)
	}
	a.InUse = true
	return nil
}

// Release frees an arena. Unknown or already free arenas are ignored.
func (r *ArenaRegistry) Release(id string) {
	if a, ok := r.arenas[id]; ok {
		a.InUse = false
	}
}

// Get returns a copy of the named arena
func (r *ArenaRegistry) Get(id string) (*models.Arena, bool) {
	a, ok := r.arenas[id]
	if !ok {
		return nil, false
	}
	return copyArena(a), true
}

// List returns copies of every arena sorted by name
func (r *ArenaRegistry) List() []*models.Arena {
	sorted := r.sorted()
	list := make([]*models.Arena, 0, len(sorted))
	for _, a := range sorted {
		list = append(list, copyArena(a))
	}
	return list
}

// Create adds a new, unconfigured arena
func (r *ArenaRegistry) Create(ctx context.Context, name string) (*models.Arena, error) {
	return r.create(ctx, name, "")
}

func (r *ArenaRegistry) create(ctx context.Context, name, schematic string) (*models.Arena, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("arena name is required")
	}
	if _, exists := r.arenas[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrArenaExists, name)
	}

	a := &models.Arena{ID: name, Schematic: schematic}
	r.arenas[name] = a

	if err := r.Save(ctx); err != nil {
		delete(r.arenas, name)
		return nil, err
	}

	log.WithFields(log.Fields{
		"arena":     name,
		"schematic": schematic,
	}).Info("Arena created")
	return copyArena(a), nil
}

// Delete removes an arena that is not currently reserved
func (r *ArenaRegistry) Delete(ctx context.Context, name string) error {
	a, ok := r.arenas[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrArenaNotFound, name)
	}
	if a.InUse {
		return fmt.Errorf("%w: %s", ErrArenaInUse, name)
	}

	delete(r.arenas, name)
	if err := r.Save(ctx); err != nil {
		r.arenas[name] = a
		return err
	}

	log.WithField("arena", name).Info("Arena deleted")
	return nil
}

// SetSpawn sets spawn point 1 or 2 of an arena
func (r *ArenaRegistry) SetSpawn(ctx context.Context, name string, point int, loc models.Location) error {
	a, ok := r.arenas[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrArenaNotFound, name)
	}

	switch point {
	case 1:
		a.Spawn1 = &loc
	case 2:
		a.Spawn2 = &loc
	default:
		return fmt.Errorf("spawn point must be 1 or 2, got %d", point)
	}

	if err := r.Save(ctx); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"arena":    name,
		"point":    point,
		"location": loc.String(),
		"ready":    a.IsReady(),
	}).Info("Arena spawn set")
	return nil
}

// SetLobby sets where participants are sent after a match
func (r *ArenaRegistry) SetLobby(ctx context.Context, loc models.Location) error {
	r.lobby = &loc
	if err := r.Save(ctx); err != nil {
		return err
	}
	log.WithField("location", loc.String()).Info("Lobby set")
	return nil
}

// Lobby returns the lobby location, if configured
func (r *ArenaRegistry) Lobby() (*models.Location, bool) {
	if r.lobby == nil {
		return nil, false
	}
	l := *r.lobby
	return &l, true
}

// DiscoverSchematics creates an arena for every schematic in dir that has no arena yet
// and hands the structure paste to the provisioner off the main context.
func (r *ArenaRegistry) DiscoverSchematics(ctx context.Context, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create schematics directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schematics directory: %w", err)
	}

	var created []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := schematicName(entry.Name())
		if !ok {
			continue
		}
		if _, exists := r.arenas[name]; exists {
			continue
		}

		if _, err := r.create(ctx, name, entry.Name()); err != nil {
			return created, err
		}
		created = append(created, name)

		log.WithFields(log.Fields{
			"arena":     name,
			"schematic": entry.Name(),
		}).Info("Found new schematic, set spawns to make the arena ready")

		r.provision(name, filepath.Join(dir, entry.Name()))
	}

	return created, nil
}

func (r *ArenaRegistry) provision(name, path string) {
	if r.provisioner == nil {
		return
	}

	index := 0
	for i, a := range r.sorted() {
		if a.ID == name {
			index = i
			break
		}
	}

	req := PasteRequest{
		ArenaID:   name,
		Schematic: path,
		Origin:    models.Location{World: r.arenaWorld, X: float64(index * arenaSpacing), Y: 64, Z: 0},
	}

	r.scheduler.RunAsync(func() {
		if err := r.provisioner.Provision(context.Background(), req); err != nil {
			log.WithFields(log.Fields{
				"arena": req.ArenaID,
				"error": err,
			}).Warn("Failed to paste schematic")
			return
		}
		log.WithFields(log.Fields{
			"arena":  req.ArenaID,
			"origin": req.Origin.String(),
		}).Info("Pasted schematic")
	})
}

func schematicName(file string) (string, bool) {
	for _, ext := range schematicExtensions {
		if strings.HasSuffix(file, ext) {
			return strings.TrimSuffix(file, ext), true
		}
	}
	return "", false
}
