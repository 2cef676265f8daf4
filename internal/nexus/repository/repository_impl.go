package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	nexusdomain "github.com/smallbiznis/taxflow/internal/nexus/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) nexusdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindDueWithin(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time, window time.Duration) ([]nexusdomain.FilingObligation, error) {
	if len(jurisdictionIDs) == 0 {
		return nil, nil
	}

	var items []nexusdomain.FilingObligation
	err := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		Where("jurisdiction_id IN ? AND active = ?", jurisdictionIDs, true).
		Where("next_due_at >= ? AND next_due_at <= ?", asOf, asOf.Add(window)).
		Order("next_due_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
