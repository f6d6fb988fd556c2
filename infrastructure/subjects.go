package infrastructure

import (
	"fmt"

	"arenawager/events"
)

// World commands, answered by the game server plugin
const (
	SubjectCapture  = "wager.world.capture"
	SubjectPrepare  = "wager.world.prepare"
	SubjectRestore  = "wager.world.restore"
	SubjectTeleport = "wager.world.teleport"
	SubjectFreeze   = "wager.world.freeze"
	SubjectPaste    = "wager.world.paste"
)

// Game signals sent by the plugin
const (
	SubjectJoin  = "wager.game.join"
	SubjectQuit  = "wager.game.quit"
	SubjectDeath = "wager.game.death"
)

const notifyPrefix = "wager.notify"

// NotificationSubject is where a notification for an event type is published
func NotificationSubject(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", notifyPrefix, eventType)
}
