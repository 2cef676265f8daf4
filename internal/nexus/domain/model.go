package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// FilingObligation is a registered duty to file in a jurisdiction. The
// compliance collaborator owns these rows; the engine only consults the
// next due dates to emit filing warnings.
type FilingObligation struct {
	ID             snowflake.ID  `gorm:"primaryKey"`
	JurisdictionID snowflake.ID  `gorm:"not null;index"`
	TenantID       *snowflake.ID `gorm:"index"`

	Frequency string    `gorm:"type:text;not null"` // monthly, quarterly, annual
	NextDueAt time.Time `gorm:"not null;index"`

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (FilingObligation) TableName() string { return "nexus_filing_obligations" }
