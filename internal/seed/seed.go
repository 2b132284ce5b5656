package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"postgate/internal/auth"
	"postgate/internal/database"
	"postgate/internal/middleware"
	"postgate/internal/models"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers     int
	PostsPerUser int
	ShouldClean  bool
	// Seed fixes the generated content; zero picks one from the clock.
	Seed int64
}

// Result counts what a run inserted.
type Result struct {
	Users int
	Posts int
}

// Seeder populates a database with demo users and posts.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder returns a Seeder for db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// ClearAll removes every post and user. Access tiers are kept.
func (s *Seeder) ClearAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Run seeds users spread over every tier, each with PostsPerUser posts at or
// below the author's tier.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumUsers < 0 || opts.PostsPerUser < 0 {
		return nil, errors.New("seed counts must not be negative")
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	if err := database.EnsureAccessTiers(ctx, s.db); err != nil {
		return nil, err
	}
	if opts.ShouldClean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	var tierIDs []uint
	if err := s.db.WithContext(ctx).Model(&models.EntryAccess{}).Order("id").Pluck("id", &tierIDs).Error; err != nil {
		return nil, fmt.Errorf("load access tiers: %w", err)
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	f := NewFactory(s.db.WithContext(ctx), opts.Seed, hash)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		users = append(users, f.BuildUser(tierIDs[i%len(tierIDs)]))
	}
	if err := f.CreateUsersBatch(users); err != nil {
		return nil, err
	}

	posts := make([]*models.Post, 0, opts.NumUsers*opts.PostsPerUser)
	for _, user := range users {
		for j := 0; j < opts.PostsPerUser; j++ {
			posts = append(posts, f.BuildPost(user, f.UpTo(tierIDs, user.AccessID)))
		}
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seeded database", "users", len(users), "posts", len(posts), "seed", opts.Seed)
	return &Result{Users: len(users), Posts: len(posts)}, nil
}
