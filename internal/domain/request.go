package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Request statuses. Pending is the only non-terminal state.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// Request is an employee's ask for one unit of an asset. AssetName/AssetType and
// RequesterName are snapshots taken at submission time.
type Request struct {
	RequestID      uuid.UUID  `gorm:"column:request_id;type:uuid;primaryKey" json:"request_id"`
	AssetID        uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	AssetName      string     `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetType      string     `gorm:"column:asset_type;type:varchar(20);not null" json:"asset_type"`
	RequesterEmail string     `gorm:"column:requester_email;not null;index" json:"requester_email"`
	RequesterName  string     `gorm:"column:requester_name" json:"requester_name"`
	HREmail        string     `gorm:"column:hr_email;not null;index" json:"hr_email"`
	CompanyName    string     `gorm:"column:company_name;not null" json:"company_name"`
	RequestDate    time.Time  `gorm:"column:request_date;not null" json:"request_date"`
	DecisionDate   *time.Time `gorm:"column:decision_date" json:"decision_date"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:'pending';index" json:"status"`
	Note           string     `gorm:"column:note" json:"note"`
	ProcessedBy    *string    `gorm:"column:processed_by" json:"processed_by"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Request) TableName() string {
	return "requests"
}

func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.RequestID == uuid.Nil {
		r.RequestID = uuid.New()
	}
	return nil
}
