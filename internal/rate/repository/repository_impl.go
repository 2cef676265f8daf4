package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	ratedomain "github.com/smallbiznis/taxflow/internal/rate/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ratedomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindActive(ctx context.Context, jurisdictionIDs []snowflake.ID, asOf time.Time) ([]ratedomain.Rate, error) {
	if len(jurisdictionIDs) == 0 {
		return nil, nil
	}

	var items []ratedomain.Rate
	err := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		Where("jurisdiction_id IN ? AND active = ?", jurisdictionIDs, true).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", asOf, asOf).
		Order("ordering ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
