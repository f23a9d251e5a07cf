package affiliations

import (
	"context"
	"errors"
	"strings"
	"time"

	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidAffiliation = errors.New("Employee email and company name are required")

// Registry keeps employee/company links.
type Registry struct {
	DB *gorm.DB
}

func (r *Registry) WithTx(tx *gorm.DB) *Registry {
	return &Registry{DB: tx}
}

// Fields are the snapshot values written when a link is first created.
type Fields struct {
	EmployeeName string
	HREmail      string
	CompanyLogo  string
}

// EnsureActive creates the active link for (employeeEmail, companyName) unless one exists.
// The insert relies on the partial unique index idx_affiliations_active, so concurrent
// callers for the same pair create exactly one row; created reports whether this call did.
func (r *Registry) EnsureActive(ctx context.Context, employeeEmail, companyName string, f Fields) (bool, error) {
	employeeEmail = strings.TrimSpace(employeeEmail)
	companyName = strings.TrimSpace(companyName)
	if employeeEmail == "" || companyName == "" {
		return false, ErrInvalidAffiliation
	}
	aff := &domain.Affiliation{
		EmployeeEmail:   employeeEmail,
		EmployeeName:    f.EmployeeName,
		HREmail:         f.HREmail,
		CompanyName:     companyName,
		CompanyLogo:     f.CompanyLogo,
		AffiliationDate: time.Now().UTC(),
		Status:          domain.AffiliationActive,
	}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(aff)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Deactivate flips an active link in hrEmail's organization to inactive. It returns false
// when there is no such active link.
func (r *Registry) Deactivate(ctx context.Context, affiliationID uuid.UUID, hrEmail string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&domain.Affiliation{}).
		Where("affiliation_id = ? AND hr_email = ? AND status = ?", affiliationID, hrEmail, domain.AffiliationActive).
		Update("status", domain.AffiliationInactive)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
