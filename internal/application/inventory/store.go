package inventory

import (
	"context"
	"errors"
	"strings"

	"assetverse-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrAssetNotFound   = errors.New("Asset not found")
	ErrInvalidQuantity = errors.New("Quantity must be a non-negative integer")
	ErrInvalidAsset    = errors.New("Asset name and a valid type are required")
	// ErrAtCapacity means a +1 was refused because available already equals total.
	ErrAtCapacity = errors.New("Available quantity already at total quantity")
)

// Store owns asset quantities. Available stock is only ever changed with a single conditional
// UPDATE, never read-modify-write.
type Store struct {
	DB *gorm.DB
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{DB: tx}
}

// CreateAssetInput is what HR supplies when adding an asset to its pool.
type CreateAssetInput struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	HREmail     string `json:"-"`
	CompanyName string `json:"company_name"`
}

// CreateAsset inserts an asset with total and available both set to Quantity.
func (s *Store) CreateAsset(ctx context.Context, in CreateAssetInput) (*domain.Asset, error) {
	if in.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || !domain.IsValidAssetType(in.Type) {
		return nil, ErrInvalidAsset
	}
	a := &domain.Asset{
		Name:              name,
		Image:             strings.TrimSpace(in.Image),
		Type:              in.Type,
		TotalQuantity:     in.Quantity,
		AvailableQuantity: in.Quantity,
		HREmail:           in.HREmail,
		CompanyName:       in.CompanyName,
	}
	if err := s.DB.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// Get loads an asset by id.
func (s *Store) Get(ctx context.Context, assetID uuid.UUID) (*domain.Asset, error) {
	var a domain.Asset
	if err := s.DB.WithContext(ctx).Where("asset_id = ?", assetID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	return &a, nil
}

// TryDecrement takes one unit if any is available. It returns false, with nothing changed,
// when stock is zero or the asset no longer exists. Two callers racing for the last unit
// cannot both see true.
func (s *Store) TryDecrement(ctx context.Context, assetID uuid.UUID) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&domain.Asset{}).
		Where("asset_id = ? AND available_quantity > 0", assetID).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity - 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Increment gives one unit back, never past total. A refused increment on an existing
// asset is logged and reported as ErrAtCapacity: it means an earlier credit was applied twice.
func (s *Store) Increment(ctx context.Context, assetID uuid.UUID) error {
	res := s.DB.WithContext(ctx).Model(&domain.Asset{}).
		Where("asset_id = ? AND available_quantity < total_quantity", assetID).
		Updates(map[string]interface{}{
			"available_quantity": gorm.Expr("available_quantity + 1"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	a, err := s.Get(ctx, assetID)
	if err != nil {
		return err
	}
	log.Warn().Str("asset_id", assetID.String()).
		Int("available_quantity", a.AvailableQuantity).
		Int("total_quantity", a.TotalQuantity).
		Msg("inventory: increment refused, available quantity already at total")
	return ErrAtCapacity
}
