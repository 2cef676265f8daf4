package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	exemptiondomain "github.com/smallbiznis/taxflow/internal/exemption/domain"
	"github.com/smallbiznis/taxflow/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) exemptiondomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByCustomer(ctx context.Context, customerID snowflake.ID) ([]exemptiondomain.ExemptionCertificate, error) {
	var items []exemptiondomain.ExemptionCertificate
	err := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		Where("customer_id = ? AND active = ?", customerID, true).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*exemptiondomain.ExemptionCertificate, error) {
	var cert exemptiondomain.ExemptionCertificate
	err := r.db.WithContext(ctx).
		Scopes(db.TenantScope(ctx)).
		First(&cert, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}

// MarkUsed is a single UPDATE so concurrent calculations against the
// same certificate never lose counter increments.
func (r *repository) MarkUsed(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE exemption_certificates
		 SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(),
		time.Now().UTC(),
		id,
	).Error
}
