package infrastructure

import (
	"arenawager/models"

	"github.com/google/uuid"
)

// WorldRequest is the payload of every wager.world.* request
type WorldRequest struct {
	ParticipantID uuid.UUID               `json:"participant_id"`
	Kit           *models.Kit             `json:"kit,omitempty"`
	Snapshot      *models.SessionSnapshot `json:"snapshot,omitempty"`
	Location      *models.Location        `json:"location,omitempty"`
	Frozen        *bool                   `json:"frozen,omitempty"`
}

// WorldReply is the plugin's answer to a world request
type WorldReply struct {
	OK       bool                    `json:"ok"`
	Error    string                  `json:"error,omitempty"`
	Snapshot *models.SessionSnapshot `json:"snapshot,omitempty"`
}

// PasteMessage asks the plugin to build a schematic at origin
type PasteMessage struct {
	ArenaID   string          `json:"arena_id"`
	Schematic string          `json:"schematic"`
	Origin    models.Location `json:"origin"`
}

// PresenceMessage is sent on join and quit
type PresenceMessage struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name,omitempty"`
}

// DeathMessage is sent when a participant is eliminated
type DeathMessage struct {
	ParticipantID uuid.UUID  `json:"participant_id"`
	KillerID      *uuid.UUID `json:"killer_id,omitempty"`
}

// NotificationKind selects how the plugin shows a notification
type NotificationKind string

const (
	NotificationChat  NotificationKind = "chat"
	NotificationTitle NotificationKind = "title"
)

// Notification is a message for players. An empty Targets list means everyone.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	Targets  []uuid.UUID      `json:"targets,omitempty"`
	Title    string           `json:"title,omitempty"`
	Subtitle string           `json:"subtitle,omitempty"`
	Lines    []string         `json:"lines,omitempty"`
	WagerID  uuid.UUID        `json:"wager_id"`
}
