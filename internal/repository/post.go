package repository

import (
	"context"
	"errors"

	"postgate/internal/models"

	"gorm.io/gorm"
)

const postConflictMsg = "Post already exists"

// PostRepository defines persistence operations for posts. Methods taking a
// maxAccessID only return posts whose required tier does not exceed it.
type PostRepository interface {
	ListVisible(ctx context.Context, maxAccessID uint) ([]models.Post, error)
	ListVisibleByOwner(ctx context.Context, ownerID, maxAccessID uint) ([]models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetVisible(ctx context.Context, id, maxAccessID uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post, changes models.PostChanges, partial bool) (*models.Post, error)
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// ListVisible returns every post readable at maxAccessID with its owner loaded.
func (r *postRepository) ListVisible(ctx context.Context, maxAccessID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("required_access_id <= ?", maxAccessID).
		Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListVisibleByOwner(ctx context.Context, ownerID, maxAccessID uint) ([]models.Post, error) {
	var posts []models.Post
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND required_access_id <= ?", ownerID, maxAccessID).
		Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetVisible fetches a post readable at maxAccessID. A missing post and one
// above the tier produce the same Forbidden error.
func (r *postRepository) GetVisible(ctx context.Context, id, maxAccessID uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("required_access_id <= ?", maxAccessID).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewForbiddenError("Not enough access to view this post")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Owner", "RequiredAccess").Create(post).Error; err != nil {
		return translateError(err, postConflictMsg)
	}
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, changes models.PostChanges, partial bool) (*models.Post, error) {
	return UpdateEntry(ctx, r.db, post, changes, partial, postConflictMsg)
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}
