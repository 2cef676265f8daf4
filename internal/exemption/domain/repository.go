package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	FindByCustomer(ctx context.Context, customerID snowflake.ID) ([]ExemptionCertificate, error)
	FindByID(ctx context.Context, id snowflake.ID) (*ExemptionCertificate, error)

	// MarkUsed increments the usage counter and stamps the last-used
	// date in a single atomic update so concurrent calculations never
	// lose increments.
	MarkUsed(ctx context.Context, id snowflake.ID) error
}
