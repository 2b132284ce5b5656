// Package service implements the use cases on top of the repositories.
package service

import (
	"context"
	"strings"

	"postgate/internal/auth"
	"postgate/internal/models"
	"postgate/internal/repository"
	"postgate/internal/validation"
)

type UserService struct {
	store repository.Store
}

// CreateUserInput is the payload for registering or creating a user. Role,
// IsActive and AccessID default to user, true and the lowest tier.
type CreateUserInput struct {
	Username string       `json:"username" form:"username" validate:"required,min=1,max=60"`
	Email    string       `json:"email" form:"email" validate:"required,email,max=60"`
	Password string       `json:"password" form:"password" validate:"required,min=1,bcryptlen"`
	Role     *models.Role `json:"role" form:"role" validate:"omitempty,oneof=admin user moderator premium_user"`
	IsActive *bool        `json:"is_active" form:"is_active"`
	AccessID *uint        `json:"access_id" form:"access_id" validate:"omitempty,min=1"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.Users().ListActive(ctx)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.store.Users().GetByID(ctx, id)
}

// CreateUser stores a new user with a hashed password. A pre-check on the
// email gives a fast conflict; the unique index decides races.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
		Role:     models.RoleUser,
		IsActive: true,
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		existing, err := r.Users().GetByEmail(ctx, in.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return models.NewConflictError("Email already registered", nil)
		}

		if in.AccessID != nil {
			if err := requireTier(ctx, r, *in.AccessID); err != nil {
				return err
			}
			user.AccessID = *in.AccessID
		} else {
			lowest, err := r.AccessTiers().Lowest(ctx)
			if err != nil {
				return err
			}
			user.AccessID = lowest.ID
		}

		return r.Users().Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a full or partial change set. A full update must carry
// every field, password included.
func (s *UserService) UpdateUser(ctx context.Context, id uint, changes models.UserChanges, partial bool) (*models.User, error) {
	if changes.Email != nil {
		email := normalizeEmail(*changes.Email)
		changes.Email = &email
	}
	if changes.Username != nil {
		username := strings.TrimSpace(*changes.Username)
		changes.Username = &username
	}
	if err := validation.Struct(changes); err != nil {
		return nil, err
	}
	if !partial {
		if err := validation.Present(
			validation.Field{Name: "username", Set: changes.Username != nil},
			validation.Field{Name: "email", Set: changes.Email != nil},
			validation.Field{Name: "password", Set: changes.Password != nil},
			validation.Field{Name: "role", Set: changes.Role != nil},
			validation.Field{Name: "is_active", Set: changes.IsActive != nil},
			validation.Field{Name: "access_id", Set: changes.AccessID != nil},
		); err != nil {
			return nil, err
		}
	}

	if changes.Password != nil {
		hash, err := auth.HashPassword(*changes.Password)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		changes.Password = &hash
	}

	var updated *models.User
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		user, err := r.Users().GetByID(ctx, id)
		if err != nil {
			return err
		}

		if changes.Email != nil && *changes.Email != user.Email {
			existing, err := r.Users().GetByEmail(ctx, *changes.Email)
			if err != nil {
				return err
			}
			if existing != nil {
				return models.NewConflictError("Email already registered", nil)
			}
		}
		if changes.AccessID != nil {
			if err := requireTier(ctx, r, *changes.AccessID); err != nil {
				return err
			}
		}

		updated, err = r.Users().Update(ctx, user, changes, partial)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteUser hard-deletes the user together with their posts.
func (s *UserService) DeleteUser(ctx context.Context, id uint) error {
	return s.store.WithinTx(ctx, func(r repository.Repos) error {
		return r.Users().Delete(ctx, id)
	})
}

// DeactivateUser soft-deletes the user. Their posts stay.
func (s *UserService) DeactivateUser(ctx context.Context, id uint) (*models.User, error) {
	var user *models.User
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		var err error
		user, err = r.Users().Deactivate(ctx, id)
		return err
	})
	return user, err
}

func requireTier(ctx context.Context, r repository.Repos, id uint) error {
	if _, err := r.AccessTiers().GetByID(ctx, id); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewValidationError("Unknown access tier")
		}
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
