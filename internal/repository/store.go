// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos groups the repositories bound to one database handle.
type Repos interface {
	Users() UserRepository
	Posts() PostRepository
	AccessTiers() AccessTierRepository
}

// Store hands out repositories on the root handle and runs units of work in a
// transaction. Repositories built for a transaction never see the root handle.
type Store interface {
	Repos
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	Ping(ctx context.Context) error
}

type repos struct {
	users       UserRepository
	posts       PostRepository
	accessTiers AccessTierRepository
}

func newRepos(db *gorm.DB) *repos {
	return &repos{
		users:       NewUserRepository(db),
		posts:       NewPostRepository(db),
		accessTiers: NewAccessTierRepository(db),
	}
}

func (r *repos) Users() UserRepository             { return r.users }
func (r *repos) Posts() PostRepository             { return r.posts }
func (r *repos) AccessTiers() AccessTierRepository { return r.accessTiers }

type gormStore struct {
	*repos
	db *gorm.DB
}

// NewStore returns a Store over db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{repos: newRepos(db), db: db}
}

// WithinTx runs fn in one transaction. Returning an error rolls it back.
func (s *gormStore) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx))
	})
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
