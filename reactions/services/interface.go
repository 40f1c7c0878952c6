package services

import (
	"context"

	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/reactions/models"
)

// ReactionService defines the interface for reaction toggles
type ReactionService interface {
	// Toggle applies one press of the reaction button: no reaction adds one,
	// the same kind removes it, another kind changes it in place.
	Toggle(ctx context.Context, targetType string, targetID int64, req *models.ToggleRequest, user *types.UserContext) (*models.ToggleResult, error)

	// Counts aggregates the target's reactions per kind.
	Counts(ctx context.Context, targetType string, targetID int64) (*models.CountsView, error)
}
