package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AssignmentAssigned = "assigned"
	AssignmentReturned = "returned"
)

// Assignment records one unit held by an employee. Exactly one exists per approved
// request (unique request_id).
type Assignment struct {
	AssignmentID   uuid.UUID  `gorm:"column:assignment_id;type:uuid;primaryKey" json:"assignment_id"`
	RequestID      uuid.UUID  `gorm:"column:request_id;type:uuid;not null;uniqueIndex" json:"request_id"`
	AssetID        uuid.UUID  `gorm:"column:asset_id;type:uuid;not null;index" json:"asset_id"`
	AssetName      string     `gorm:"column:asset_name;not null" json:"asset_name"`
	AssetImage     string     `gorm:"column:asset_image" json:"asset_image"`
	AssetType      string     `gorm:"column:asset_type;type:varchar(20);not null" json:"asset_type"`
	EmployeeEmail  string     `gorm:"column:employee_email;not null;index" json:"employee_email"`
	EmployeeName   string     `gorm:"column:employee_name" json:"employee_name"`
	HREmail        string     `gorm:"column:hr_email;not null" json:"hr_email"`
	CompanyName    string     `gorm:"column:company_name;not null" json:"company_name"`
	RequestDate    time.Time  `gorm:"column:request_date;not null" json:"request_date"`
	AssignmentDate time.Time  `gorm:"column:assignment_date;not null" json:"assignment_date"`
	ReturnDate     *time.Time `gorm:"column:return_date" json:"return_date"`
	Status         string     `gorm:"column:status;type:varchar(20);not null;default:'assigned'" json:"status"`
	CreatedAt      time.Time  `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Assignment) TableName() string {
	return "assigned_assets"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.AssignmentID == uuid.Nil {
		a.AssignmentID = uuid.New()
	}
	return nil
}
