package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// FindDueWithin returns active obligations of the given
	// jurisdictions due inside [asOf, asOf+window].
	FindDueWithin(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time, window time.Duration) ([]FilingObligation, error)
}
