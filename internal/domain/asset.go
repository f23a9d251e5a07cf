package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asset types accepted by the catalog.
const (
	AssetReturnable    = "Returnable"
	AssetNonReturnable = "Non-returnable"
)

// IsValidAssetType reports whether t is one of the two asset types.
func IsValidAssetType(t string) bool {
	return t == AssetReturnable || t == AssetNonReturnable
}

// Asset is one pooled inventory line owned by an organization (identified by its HR email).
// AvailableQuantity only moves through the guarded statements in application/inventory.
type Asset struct {
	AssetID           uuid.UUID `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	Name              string    `gorm:"column:name;not null" json:"name"`
	Image             string    `gorm:"column:image" json:"image"`
	Type              string    `gorm:"column:type;type:varchar(20);not null" json:"type"`
	TotalQuantity     int       `gorm:"column:total_quantity;not null;check:chk_assets_total,total_quantity >= 0" json:"total_quantity"`
	AvailableQuantity int       `gorm:"column:available_quantity;not null;check:chk_assets_available,available_quantity >= 0 AND available_quantity <= total_quantity" json:"available_quantity"`
	HREmail           string    `gorm:"column:hr_email;not null;index" json:"hr_email"`
	CompanyName       string    `gorm:"column:company_name;not null" json:"company_name"`
	CreatedAt         time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt         time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Asset) TableName() string {
	return "assets"
}

// BeforeCreate: never insert zero UUID for primary key.
func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}
