package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"arenawager/models"

	bolt "go.etcd.io/bbolt"
)

const (
	ArenasBucket = "arenas"
	MetaBucket   = "meta"

	lobbyKey = "lobby"
)

// BoltArenaStore keeps arena definitions and the lobby in a bbolt file
type BoltArenaStore struct {
	DB *bolt.DB
}

// NewBoltArenaStore opens (creating if needed) the arena database at path
func NewBoltArenaStore(path string) (*BoltArenaStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database path: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{ArenasBucket, MetaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database buckets: %w", err)
	}

	return &BoltArenaStore{DB: db}, nil
}

// Load returns every stored arena in key order plus the lobby, if set
func (s *BoltArenaStore) Load(ctx context.Context) ([]*models.Arena, *models.Location, error) {
	var arenas []*models.Arena
	var lobby *models.Location

	err := s.DB.View(func(tx *bolt.Tx) error {
		err := tx.Bucket([]byte(ArenasBucket)).ForEach(func(k, v []byte) error {
			var arena models.Arena
			if err := json.Unmarshal(v, &arena); err != nil {
				return fmt.Errorf("failed to decode arena %s: %w", k, err)
			}
			arena.ID = string(k)
			arenas = append(arenas, &arena)
			return nil
		})
		if err != nil {
			return err
		}

		if raw := tx.Bucket([]byte(MetaBucket)).Get([]byte(lobbyKey)); raw != nil {
			var loc models.Location
			if err := json.Unmarshal(raw, &loc); err != nil {
				return fmt.Errorf("failed to decode lobby: %w", err)
			}
			lobby = &loc
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load arenas: %w", err)
	}

	return arenas, lobby, nil
}

// Save replaces every stored arena and the lobby in one transaction.
// Reservation flags are never persisted.
func (s *BoltArenaStore) Save(ctx context.Context, arenas []*models.Arena, lobby *models.Location) error {
	err := s.DB.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(ArenasBucket)); err != nil {
			return fmt.Errorf("failed to clear arenas: %w", err)
		}
		bucket, err := tx.CreateBucket([]byte(ArenasBucket))
		if err != nil {
			return fmt.Errorf("failed to recreate arenas bucket: %w", err)
		}

		for _, a := range arenas {
			stored := *a
			stored.InUse = false
			raw, err := json.Marshal(&stored)
			if err != nil {
				return fmt.Errorf("failed to encode arena %s: %w", a.ID, err)
			}
			if err := bucket.Put([]byte(a.ID), raw); err != nil {
				return fmt.Errorf("failed to store arena %s: %w", a.ID, err)
			}
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if lobby == nil {
			return meta.Delete([]byte(lobbyKey))
		}
		raw, err := json.Marshal(lobby)
		if err != nil {
			return fmt.Errorf("failed to encode lobby: %w", err)
		}
		return meta.Put([]byte(lobbyKey), raw)
	})
	if err != nil {
		return fmt.Errorf("failed to save arenas: %w", err)
	}
	return nil
}

func (s *BoltArenaStore) Shutdown() error {
	//nolint:wrapcheck
	return s.DB.Close()
}
