// Package seed provides helpers to create demo data for development
// databases. These helpers are not used by the server.
package seed

import (
	"fmt"
	"strings"

	"postgate/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// Factory builds users and posts with fake content.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	// hash of DemoPassword, computed once per seeder run
	passwordHash string
	// index keeps generated emails unique within a run
	index int
}

// NewFactory creates a Factory bound to db. The same seed yields the same
// content.
func NewFactory(db *gorm.DB, seed int64, passwordHash string) *Factory {
	return &Factory{db: db, faker: gofakeit.New(seed), passwordHash: passwordHash}
}

// BuildUser constructs an active user at the given tier without persisting it.
func (f *Factory) BuildUser(accessID uint, overrides ...func(*models.User)) *models.User {
	f.index++
	username := truncate(f.faker.Username(), 40)
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s.%d@example.com", strings.ToLower(username), f.index),
		Password: f.passwordHash,
		Role:     models.Roles[f.faker.Number(0, len(models.Roles)-1)],
		IsActive: true,
		AccessID: accessID,
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildPost constructs a post owned by owner and readable from
// requiredAccessID upwards.
func (f *Factory) BuildPost(owner *models.User, requiredAccessID uint, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:            truncate(strings.TrimSuffix(f.faker.Sentence(5), "."), 70),
		Description:      truncate(f.faker.Paragraph(1, 2, 12, " "), 250),
		OwnerID:          owner.ID,
		RequiredAccessID: requiredAccessID,
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreateUsersBatch persists users in a single statement.
func (f *Factory) CreateUsersBatch(users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	if err := f.db.Create(&users).Error; err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	return nil
}

// CreatePostsBatch persists posts in batches of 100.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if err := f.db.CreateInBatches(&posts, 100).Error; err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	return nil
}

// Pick returns a random element of ids.
func (f *Factory) Pick(ids []uint) uint {
	return ids[f.faker.Number(0, len(ids)-1)]
}

// UpTo returns a random tier id no higher than max.
func (f *Factory) UpTo(ids []uint, max uint) uint {
	var allowed []uint
	for _, id := range ids {
		if id <= max {
			allowed = append(allowed, id)
		}
	}
	if len(allowed) == 0 {
		return max
	}
	return f.Pick(allowed)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n])
}
