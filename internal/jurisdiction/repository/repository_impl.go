package repository

import (
	"context"
	"time"

	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) jurisdictiondomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindActive(ctx context.Context, countryCode string, asOf time.Time) ([]jurisdictiondomain.Jurisdiction, error) {
	var items []jurisdictiondomain.Jurisdiction
	err := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		Where("country_code = ? AND active = ?", countryCode, true).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", asOf, asOf).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
