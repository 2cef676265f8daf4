package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// JurisdictionType orders taxing authorities from broadest to narrowest.
type JurisdictionType string

const (
	TypeFederal JurisdictionType = "federal"
	TypeState   JurisdictionType = "state"
	TypeCounty  JurisdictionType = "county"
	TypeCity    JurisdictionType = "city"
	TypeSpecial JurisdictionType = "special"
)

// Rank returns the resolution order of the jurisdiction type
// (federal first, special districts last).
func (t JurisdictionType) Rank() int {
	switch t {
	case TypeFederal:
		return 0
	case TypeState:
		return 1
	case TypeCounty:
		return 2
	case TypeCity:
		return 3
	case TypeSpecial:
		return 4
	default:
		return 5
	}
}

func (t JurisdictionType) Valid() bool {
	return t.Rank() < 5
}

// Location is the physical or tax address a calculation is anchored to.
type Location struct {
	CountryCode string `json:"country_code"`
	StateCode   string `json:"state_code,omitempty"`
	CountyName  string `json:"county_name,omitempty"`
	CityName    string `json:"city_name,omitempty"`
	ZipCode     string `json:"zip_code,omitempty"`
}

// Jurisdiction is a taxing authority with its own rates and rules.
//
// Geographic scope columns narrow with the type: a state jurisdiction
// declares country+state, a city declares country+state+city, a special
// district declares a zip-code set. A child only resolves when its
// declared scope matches the query location.
type Jurisdiction struct {
	ID       snowflake.ID     `gorm:"primaryKey"`
	ParentID *snowflake.ID    `gorm:"index"`
	TenantID *snowflake.ID    `gorm:"index"`
	Name     string           `gorm:"type:text;not null"`
	Code     string           `gorm:"type:text;not null"`
	Type     JurisdictionType `gorm:"type:text;not null;index"`

	CountryCode string                      `gorm:"type:text;not null;index"`
	StateCode   *string                     `gorm:"type:text;index"`
	CountyName  *string                     `gorm:"type:text"`
	CityName    *string                     `gorm:"type:text"`
	ZipCodes    datatypes.JSONSlice[string] `gorm:"type:json"`

	EffectiveFrom time.Time  `gorm:"not null;index"`
	EffectiveTo   *time.Time `gorm:"index"`
	Active        bool       `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Jurisdiction) TableName() string { return "tax_jurisdictions" }

func (j *Jurisdiction) Validate() error {
	if j.Name == "" || j.Code == "" {
		return ErrInvalidName
	}
	if !j.Type.Valid() {
		return ErrInvalidType
	}
	if j.CountryCode == "" {
		return ErrInvalidCountry
	}
	if j.EffectiveTo != nil && j.EffectiveTo.Before(j.EffectiveFrom) {
		return ErrInvalidWindow
	}
	return nil
}

// ActiveAt reports whether the jurisdiction's activity window covers asOf.
func (j *Jurisdiction) ActiveAt(asOf time.Time) bool {
	if !j.Active {
		return false
	}
	if j.EffectiveFrom.After(asOf) {
		return false
	}
	if j.EffectiveTo != nil && j.EffectiveTo.Before(asOf) {
		return false
	}
	return true
}

// CoversZip reports whether the jurisdiction's declared zip set contains zip.
func (j *Jurisdiction) CoversZip(zip string) bool {
	if zip == "" {
		return false
	}
	for _, z := range j.ZipCodes {
		if z == zip {
			return true
		}
	}
	return false
}
