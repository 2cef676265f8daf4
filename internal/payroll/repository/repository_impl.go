package repository

import (
	"context"
	"strings"
	"time"

	jurisdictiondomain "github.com/smallbiznis/taxflow/internal/jurisdiction/domain"
	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) payrolldomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindActive(ctx context.Context, loc jurisdictiondomain.Location, asOf time.Time) ([]payrolldomain.PayrollTaxRule, error) {
	country := strings.ToUpper(strings.TrimSpace(loc.CountryCode))
	if country == "" {
		return nil, nil
	}

	stmt := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		Where("country_code = ? AND active = ?", country, true).
		Where("effective_from <= ? AND (effective_to IS NULL OR effective_to >= ?)", asOf, asOf)

	state := strings.ToUpper(strings.TrimSpace(loc.StateCode))
	if state != "" {
		stmt = stmt.Where("state_code IS NULL OR state_code = ?", state)
	} else {
		stmt = stmt.Where("state_code IS NULL")
	}

	var items []payrolldomain.PayrollTaxRule
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
