package db

import (
	"context"

	"github.com/smallbiznis/taxflow/pkg/tenantctx"
	"gorm.io/gorm"
)

// TenantScope restricts a query to the rows visible to the context's
// tenant. Rows with a NULL tenant_id are global and visible to everyone;
// a tenant-scoped context additionally sees its own rows. Without a
// tenant on the context only global rows match.
func TenantScope(ctx context.Context) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if tenantID, ok := tenantctx.TenantID(ctx); ok {
			return tx.Where("tenant_id IS NULL OR tenant_id = ?", tenantID)
		}
		return tx.Where("tenant_id IS NULL")
	}
}
