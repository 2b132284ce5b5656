// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"testing"

	"postgate/internal/auth"
	"postgate/internal/config"
	"postgate/internal/database"
	"postgate/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Access tier ids as ensured on an empty database.
const (
	TierDefault uint = 1
	TierPremium uint = 2
	TierVIP     uint = 3
)

// NewSQLiteDB returns a fresh in-memory database with the schema applied and
// the access tiers seeded. It is closed when the test ends.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), database.GormConfig(false))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	require.NoError(t, database.ApplySchema(ctx, db, &config.Config{DBSchemaMode: database.SchemaModeAuto}))
	require.NoError(t, database.EnsureAccessTiers(ctx, db))
	return db
}

// CreateUser inserts an active user with the given email and tier. The
// password is "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string, accessID uint) *models.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		Username: email,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
		IsActive: true,
		AccessID: accessID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post owned by ownerID.
func CreatePost(t *testing.T, db *gorm.DB, ownerID uint, title string, requiredAccessID uint) *models.Post {
	t.Helper()

	post := &models.Post{
		Title:            title,
		Description:      "description of " + title,
		OwnerID:          ownerID,
		RequiredAccessID: requiredAccessID,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

// PostsByOwner loads every post of ownerID regardless of tier.
func PostsByOwner(t *testing.T, db *gorm.DB, ownerID uint) []models.Post {
	t.Helper()

	var posts []models.Post
	require.NoError(t, db.Where("owner_id = ?", ownerID).Order("id").Find(&posts).Error)
	return posts
}
