package usecase

import (
	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

// Broadcaster pushes a channel event to live subscribers. Implemented by the
// websocket hub; tests substitute a recorder.
type Broadcaster interface {
	Broadcast(event models.ChannelEvent)
}
