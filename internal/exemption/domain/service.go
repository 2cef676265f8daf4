package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Reference identifies whose certificates to match: a customer's whole
// set or one certificate directly. Exactly one field is set.
type Reference struct {
	CustomerID    *snowflake.ID
	CertificateID *snowflake.ID
}

// Matcher determines which verified, unexpired certificates apply to a
// resolved jurisdiction set. Matching is pure; recording usage is the
// caller's side effect, executed after calculation through the
// repository's atomic MarkUsed.
type Matcher interface {
	Match(ctx context.Context, ref Reference, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]ExemptionCertificate, error)
}
