package seed

import (
	"context"
	"testing"

	"postgate/internal/auth"
	"postgate/internal/models"
	"postgate/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_BuildsValidRows(t *testing.T) {
	f := NewFactory(nil, 42, "hash")

	for i := 0; i < 50; i++ {
		user := f.BuildUser(testutil.TierPremium)
		assert.LessOrEqual(t, len(user.Email), 60)
		assert.NotEmpty(t, user.Username)
		assert.True(t, user.Role.Valid())
		assert.True(t, user.IsActive)

		post := f.BuildPost(user, testutil.TierDefault)
		assert.NotEmpty(t, post.Title)
		assert.LessOrEqual(t, len(post.Title), 70)
		assert.LessOrEqual(t, len(post.Description), 250)
	}
}

func TestFactory_SameSeedSameContent(t *testing.T) {
	a := NewFactory(nil, 7, "hash").BuildUser(testutil.TierDefault)
	b := NewFactory(nil, 7, "hash").BuildUser(testutil.TierDefault)
	assert.Equal(t, a.Email, b.Email)
}

func TestFactory_UpTo(t *testing.T) {
	f := NewFactory(nil, 1, "hash")
	tiers := []uint{1, 2, 3}
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, f.UpTo(tiers, 2), uint(2))
	}
	assert.Equal(t, uint(1), f.UpTo(tiers, 1))
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	s := NewSeeder(db)

	res, err := s.Run(ctx, Options{NumUsers: 6, PostsPerUser: 3, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Users)
	assert.Equal(t, 18, res.Posts)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 6)
	assert.True(t, auth.CheckPassword(users[0].Password, DemoPassword))

	var above int64
	require.NoError(t, db.Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.owner_id").
		Where("posts.required_access_id > users.access_id").
		Count(&above).Error)
	assert.Zero(t, above, "authors can read their own posts")

	_, err = s.Run(ctx, Options{NumUsers: 2, PostsPerUser: 1, ShouldClean: true})
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSeeder_RejectsNegativeCounts(t *testing.T) {
	_, err := NewSeeder(testutil.NewSQLiteDB(t)).Run(context.Background(), Options{NumUsers: -1})
	assert.Error(t, err)
}
