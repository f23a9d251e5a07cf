package requests

import (
	"context"
	"errors"
	"time"

	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRequestNotFound = errors.New("Request not found")
	ErrInvalidRequest  = errors.New("Request must reference an asset and a requester")
)

// Ledger stores asset requests. Status only changes through TryTransition.
type Ledger struct {
	DB *gorm.DB
}

func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{DB: tx}
}

// Create inserts r as a new pending request. Any status, decision date or decider supplied
// by the caller is discarded.
func (l *Ledger) Create(ctx context.Context, r *domain.Request) (*domain.Request, error) {
	if r == nil || r.AssetID == uuid.Nil || r.RequesterEmail == "" {
		return nil, ErrInvalidRequest
	}
	r.Status = domain.RequestPending
	r.DecisionDate = nil
	r.ProcessedBy = nil
	if r.RequestDate.IsZero() {
		r.RequestDate = time.Now().UTC()
	}
	if err := l.DB.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// Get loads a request by id.
func (l *Ledger) Get(ctx context.Context, requestID uuid.UUID) (*domain.Request, error) {
	var r domain.Request
	if err := l.DB.WithContext(ctx).Where("request_id = ?", requestID).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &r, nil
}

// TryTransition moves a request from -> to only if its current status is still from.
// It returns the updated request, or nil when another decision got there first or the
// request does not exist. Leaving pending stamps the decision date and decider; returning
// to pending clears them.
func (l *Ledger) TryTransition(ctx context.Context, requestID uuid.UUID, from, to, processedBy string) (*domain.Request, error) {
	fields := map[string]interface{}{"status": to}
	if to == domain.RequestPending {
		fields["decision_date"] = nil
		fields["processed_by"] = nil
	} else {
		fields["decision_date"] = time.Now().UTC()
		fields["processed_by"] = processedBy
	}
	res := l.DB.WithContext(ctx).Model(&domain.Request{}).
		Where("request_id = ? AND status = ?", requestID, from).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return l.Get(ctx, requestID)
}
