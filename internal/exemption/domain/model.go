package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TaxTypeAll is the wildcard entry of a certificate's tax-type list.
const TaxTypeAll = "all"

// TaxTypeShipping marks certificates that also exempt shipping charges.
const TaxTypeShipping = "shipping"

// ExemptionCertificate entitles a customer to zero tax for specific
// jurisdictions and tax types. Only verified, unexpired certificates
// qualify. The engine mutates nothing but the usage counters, and those
// through an atomic store update.
type ExemptionCertificate struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	CustomerID snowflake.ID  `gorm:"not null;index"`
	TenantID   *snowflake.ID `gorm:"index"`

	CertificateNumber string `gorm:"type:text;not null;uniqueIndex"`

	JurisdictionIDs datatypes.JSONSlice[snowflake.ID] `gorm:"type:json"`
	TaxTypes        datatypes.JSONSlice[string]       `gorm:"type:json"`

	Verified   bool       `gorm:"not null;default:false"`
	VerifiedBy *string    `gorm:"type:text"`
	VerifiedAt *time.Time ``

	EffectiveFrom time.Time  `gorm:"not null"`
	ExpiresAt     *time.Time `gorm:"index"`

	UsageCount int64      `gorm:"not null;default:0"`
	LastUsedAt *time.Time ``

	Active bool `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ExemptionCertificate) TableName() string { return "exemption_certificates" }

// EligibleAt reports whether the certificate can apply at asOf: verified,
// active, effective, and either unexpired or carrying no expiry.
func (c *ExemptionCertificate) EligibleAt(asOf time.Time) bool {
	if !c.Verified || !c.Active {
		return false
	}
	if c.EffectiveFrom.After(asOf) {
		return false
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(asOf) {
		return false
	}
	return true
}

// CoversJurisdictions reports whether at least one certificate
// jurisdiction intersects the resolved set.
func (c *ExemptionCertificate) CoversJurisdictions(resolved []snowflake.ID) bool {
	for _, id := range c.JurisdictionIDs {
		for _, r := range resolved {
			if id == r {
				return true
			}
		}
	}
	return false
}

// CoversTaxType reports whether the certificate covers taxType, either
// explicitly or through the "all" wildcard.
func (c *ExemptionCertificate) CoversTaxType(taxType string) bool {
	for _, t := range c.TaxTypes {
		if t == TaxTypeAll || t == taxType {
			return true
		}
	}
	return false
}

// ExpiresWithin reports whether the certificate expires inside the given
// window starting at asOf. Certificates without expiry never do.
func (c *ExemptionCertificate) ExpiresWithin(asOf time.Time, window time.Duration) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(asOf.Add(window)) && !c.ExpiresAt.Before(asOf)
}
