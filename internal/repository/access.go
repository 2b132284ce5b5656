package repository

import (
	"context"
	"errors"

	"postgate/internal/models"

	"gorm.io/gorm"
)

// AccessTierRepository reads access tiers.
type AccessTierRepository interface {
	List(ctx context.Context) ([]models.EntryAccess, error)
	GetByID(ctx context.Context, id uint) (*models.EntryAccess, error)
	Lowest(ctx context.Context) (*models.EntryAccess, error)
}

type accessTierRepository struct {
	db *gorm.DB
}

// NewAccessTierRepository returns a new AccessTierRepository implementation.
func NewAccessTierRepository(db *gorm.DB) AccessTierRepository {
	return &accessTierRepository{db: db}
}

func (r *accessTierRepository) List(ctx context.Context) ([]models.EntryAccess, error) {
	var tiers []models.EntryAccess
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&tiers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tiers, nil
}

func (r *accessTierRepository) GetByID(ctx context.Context, id uint) (*models.EntryAccess, error) {
	var tier models.EntryAccess
	if err := r.db.WithContext(ctx).First(&tier, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access tier", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &tier, nil
}

// Lowest returns the least restrictive tier, used for anonymous visitors.
func (r *accessTierRepository) Lowest(ctx context.Context) (*models.EntryAccess, error) {
	var tier models.EntryAccess
	if err := r.db.WithContext(ctx).Order("id ASC").First(&tier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Access tier", "lowest")
		}
		return nil, models.NewInternalError(err)
	}
	return &tier, nil
}
