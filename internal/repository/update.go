package repository

import (
	"context"

	"postgate/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Changes is an explicit change set for entity type T.
type Changes[T any] interface {
	Apply(entity *T, partial bool)
}

// UpdateEntry applies changes to entity, persists the whole row and returns
// the reloaded entity. A partial update touches only provided fields; a full
// update assigns every declared field. Associations are never written, so
// entity should be loaded without them.
func UpdateEntry[T any, C Changes[T]](ctx context.Context, db *gorm.DB, entity *T, changes C, partial bool, conflictMsg string) (*T, error) {
	changes.Apply(entity, partial)

	if err := db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error; err != nil {
		return nil, translateError(err, conflictMsg)
	}

	// Reload by the primary key already set on entity.
	if err := db.WithContext(ctx).First(entity).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entity, nil
}
