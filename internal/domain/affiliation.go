package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AffiliationActive   = "active"
	AffiliationInactive = "inactive"
)

// Affiliation links an employee to a company. The partial unique index allows any number of
// inactive rows but only one active row per (employee_email, company_name).
type Affiliation struct {
	AffiliationID   uuid.UUID `gorm:"column:affiliation_id;type:uuid;primaryKey" json:"affiliation_id"`
	EmployeeEmail   string    `gorm:"column:employee_email;not null;uniqueIndex:idx_affiliations_active,where:status = 'active'" json:"employee_email"`
	EmployeeName    string    `gorm:"column:employee_name" json:"employee_name"`
	HREmail         string    `gorm:"column:hr_email;not null;index" json:"hr_email"`
	CompanyName     string    `gorm:"column:company_name;not null;uniqueIndex:idx_affiliations_active,where:status = 'active'" json:"company_name"`
	CompanyLogo     string    `gorm:"column:company_logo" json:"company_logo"`
	AffiliationDate time.Time `gorm:"column:affiliation_date;not null" json:"affiliation_date"`
	Status          string    `gorm:"column:status;type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt       time.Time `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Affiliation) TableName() string {
	return "employee_affiliations"
}

func (a *Affiliation) BeforeCreate(tx *gorm.DB) error {
	if a.AffiliationID == uuid.Nil {
		a.AffiliationID = uuid.New()
	}
	return nil
}
