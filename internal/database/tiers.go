package database

import (
	"context"
	"fmt"

	"postgate/internal/models"

	"gorm.io/gorm"
)

// EnsureAccessTiers inserts any missing tier from models.DefaultAccessTiers.
// On an empty table the tiers get ids in their declared order.
func EnsureAccessTiers(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tier := range models.DefaultAccessTiers {
			row := tier
			if err := tx.Where(models.EntryAccess{AccessTitle: tier.AccessTitle}).
				Attrs(models.EntryAccess{Description: tier.Description}).
				FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("ensure access tier %q: %w", tier.AccessTitle, err)
			}
		}
		return nil
	})
}
