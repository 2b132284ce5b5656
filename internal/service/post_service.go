package service

import (
	"context"

	"postgate/internal/models"
	"postgate/internal/observability"
	"postgate/internal/repository"
	"postgate/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostService applies the access-tier rule and ownership checks to posts.
// A viewer may read a post when the post's required tier does not exceed
// the viewer's tier.
type PostService struct {
	store repository.Store
}

func NewPostService(store repository.Store) *PostService {
	return &PostService{store: store}
}

// ListOwnPosts returns the viewer's posts readable at their tier.
func (s *PostService) ListOwnPosts(ctx context.Context, viewer *models.User) ([]models.Post, error) {
	return s.store.Posts().ListVisibleByOwner(ctx, viewer.ID, viewer.AccessID)
}

// ListVisiblePosts returns every post readable by viewer. A nil viewer reads
// at the lowest tier.
func (s *PostService) ListVisiblePosts(ctx context.Context, viewer *models.User) ([]models.Post, error) {
	tier, err := s.viewerTier(ctx, viewer)
	if err != nil {
		return nil, err
	}
	return s.store.Posts().ListVisible(ctx, tier)
}

// GetVisiblePost returns a post readable at the viewer's tier regardless of owner.
func (s *PostService) GetVisiblePost(ctx context.Context, viewer *models.User, id uint) (*models.Post, error) {
	tier, err := s.viewerTier(ctx, viewer)
	if err != nil {
		return nil, err
	}
	post, err := s.store.Posts().GetVisible(ctx, id, tier)
	if models.IsCode(err, models.CodeForbidden) {
		observability.PostAccessDenied.Inc()
	}
	return post, err
}

// GetOwnPost returns one of the viewer's posts. The tier check runs first and
// cannot tell a missing post from a denied one; a visible post owned by
// someone else is NotFound.
func (s *PostService) GetOwnPost(ctx context.Context, viewer *models.User, id uint) (*models.Post, error) {
	post, err := s.GetVisiblePost(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != viewer.ID {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// CreatePost stores a post owned by viewer. Without a required tier the post
// takes the viewer's tier.
func (s *PostService) CreatePost(ctx context.Context, viewer *models.User, in models.PostChanges) (post *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "CreatePost", attribute.Int("user.id", int(viewer.ID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validation.Present(validation.Field{Name: "title", Set: in.Title != nil}); err != nil {
		return nil, err
	}

	post = &models.Post{OwnerID: viewer.ID, RequiredAccessID: viewer.AccessID}
	in.Apply(post, true)

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		if err := requireTier(ctx, r, post.RequiredAccessID); err != nil {
			return err
		}
		return r.Posts().Create(ctx, post)
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost applies a full or partial change set to one of the viewer's
// posts. A full update requires title and required_access_id and clears an
// absent description.
func (s *PostService) UpdatePost(ctx context.Context, viewer *models.User, id uint, changes models.PostChanges, partial bool) (updated *models.Post, err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "UpdatePost", attribute.Int("post.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Struct(changes); err != nil {
		return nil, err
	}
	if !partial {
		if err := validation.Present(
			validation.Field{Name: "title", Set: changes.Title != nil},
			validation.Field{Name: "required_access_id", Set: changes.RequiredAccessID != nil},
		); err != nil {
			return nil, err
		}
	}

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		post, err := ownedPost(ctx, r, viewer, id)
		if err != nil {
			return err
		}
		if changes.RequiredAccessID != nil {
			if err := requireTier(ctx, r, *changes.RequiredAccessID); err != nil {
				return err
			}
		}
		updated, err = r.Posts().Update(ctx, post, changes, partial)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost removes one of the viewer's posts.
func (s *PostService) DeletePost(ctx context.Context, viewer *models.User, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "post_service", "DeletePost", attribute.Int("post.id", int(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.store.WithinTx(ctx, func(r repository.Repos) error {
		if _, err := ownedPost(ctx, r, viewer, id); err != nil {
			return err
		}
		return r.Posts().Delete(ctx, id)
	})
}

// ownedPost re-fetches a post inside the transaction. A post owned by someone
// else is reported exactly like a missing one.
func ownedPost(ctx context.Context, r repository.Repos, viewer *models.User, id uint) (*models.Post, error) {
	post, err := r.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.OwnerID != viewer.ID {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) viewerTier(ctx context.Context, viewer *models.User) (uint, error) {
	if viewer != nil {
		return viewer.AccessID, nil
	}
	lowest, err := s.store.AccessTiers().Lowest(ctx)
	if err != nil {
		return 0, err
	}
	return lowest.ID, nil
}
