// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

// StreamID identifies one client-visible SSE connection.
type StreamID string

// SessionID is the token the engine embeds in generated-report paths,
// grouping all artifacts of one logical run (media/generated/<SessionID>/...).
type SessionID string

func NewStreamID() StreamID {
	return StreamID(uuid.New().String())
}

func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}
