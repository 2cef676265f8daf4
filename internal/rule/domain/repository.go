package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Repository reads persisted rule configurations. Mutation belongs to
// configuration management; the engine only evaluates.
type Repository interface {
	// FindActive returns the active rules of the given jurisdictions
	// whose activity window covers asOf, ordered by priority descending
	// then id ascending.
	FindActive(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]RuleConfiguration, error)
}
