// Package rooms allocates call rooms with the conferencing collaborator and
// issues join tokens for them.
package rooms

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Allocator creates room identifiers. The conferencing provider materializes
// a room lazily on first join, so allocation is a local identifier mint.
type Allocator struct {
	logger *zap.Logger
}

// NewAllocator creates a room allocator.
func NewAllocator(logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{logger: logger}
}

// Allocate returns a new room ID for the session.
func (a *Allocator) Allocate(_ context.Context, sessionID uuid.UUID) (string, error) {
	roomID := uuid.New().String()
	a.logger.Info("room allocated", zap.String("session_id", sessionID.String()), zap.String("room_id", roomID))
	return roomID, nil
}
