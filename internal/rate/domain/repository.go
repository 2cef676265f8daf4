package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository reads persisted rates. Read-only to the engine.
type Repository interface {
	// FindActive returns the active rates of the given jurisdictions
	// whose activity window covers asOf, ordered by ordering ascending.
	FindActive(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]Rate, error)
}
