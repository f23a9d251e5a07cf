package assignments

import (
	"context"
	"errors"
	"time"

	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrAssignmentNotFound = errors.New("Assignment not found")
	ErrInvalidAssignment  = errors.New("Assignment must reference a request, an asset and an employee")
)

// Ledger stores assignments. An assignment is closed exactly once, by TryReturn.
type Ledger struct {
	DB *gorm.DB
}

func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{DB: tx}
}

// Create inserts a as an open assignment: status assigned, no return date.
func (l *Ledger) Create(ctx context.Context, a *domain.Assignment) (*domain.Assignment, error) {
	if a == nil || a.RequestID == uuid.Nil || a.AssetID == uuid.Nil || a.EmployeeEmail == "" {
		return nil, ErrInvalidAssignment
	}
	a.Status = domain.AssignmentAssigned
	a.ReturnDate = nil
	if a.AssignmentDate.IsZero() {
		a.AssignmentDate = time.Now().UTC()
	}
	if err := l.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (l *Ledger) Get(ctx context.Context, assignmentID uuid.UUID) (*domain.Assignment, error) {
	var a domain.Assignment
	if err := l.DB.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// TryReturn closes an assigned assignment and stamps the return date. It returns nil when
// the assignment is unknown or already returned.
func (l *Ledger) TryReturn(ctx context.Context, assignmentID uuid.UUID) (*domain.Assignment, error) {
	res := l.DB.WithContext(ctx).Model(&domain.Assignment{}).
		Where("assignment_id = ? AND status = ?", assignmentID, domain.AssignmentAssigned).
		Updates(map[string]interface{}{
			"status":      domain.AssignmentReturned,
			"return_date": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return l.Get(ctx, assignmentID)
}

// Discard deletes an open assignment whose approval is being rolled back. Returned
// assignments are never removed.
func (l *Ledger) Discard(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	res := l.DB.WithContext(ctx).
		Where("assignment_id = ? AND status = ?", assignmentID, domain.AssignmentAssigned).
		Delete(&domain.Assignment{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
