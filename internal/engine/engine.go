// Package engine spawns and wires the domain actors.
package engine

import (
	"hirehub/internal/database"
	"hirehub/internal/engine/actors"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
)

// Stores bundles the durable stores the actors work against. Both Mongo and
// the in-memory implementation satisfy it.
type Stores struct {
	Messages      database.MessageStore
	Notifications database.NotificationStore
	Users         database.UserStore
}

// Engine owns the actor PIDs. The notification actor is spawned first so the
// chat actor can hand it post-commit notification creations.
type Engine struct {
	system          *actor.ActorSystem
	chatPID         *actor.PID
	notificationPID *actor.PID
}

func NewEngine(system *actor.ActorSystem, stores Stores, hub *ws.Hub, metrics *utils.MetricsCollector) *Engine {
	notificationProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewNotificationActor(stores.Notifications, hub, metrics)
	})
	notificationPID := system.Root.Spawn(notificationProps)

	chatProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewChatActor(stores.Messages, stores.Users, notificationPID, hub, metrics)
	})
	chatPID := system.Root.Spawn(chatProps)

	return &Engine{
		system:          system,
		chatPID:         chatPID,
		notificationPID: notificationPID,
	}
}

func (e *Engine) GetChatActor() *actor.PID {
	return e.chatPID
}

func (e *Engine) GetNotificationActor() *actor.PID {
	return e.notificationPID
}
