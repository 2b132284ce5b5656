package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"postgate/internal/auth"
	"postgate/internal/cache"
	"postgate/internal/models"
	"postgate/internal/repository"
	"postgate/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	store repository.Store
	users *UserService
	auth  *AuthService
	posts *PostService
	redis *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	store := repository.NewStore(db)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := NewUserService(store)
	tokens := auth.NewTokenManager("service-test-secret-32-characters!!", 30*time.Minute)
	return &fixture{
		db:    db,
		store: store,
		users: users,
		auth:  NewAuthService(store, users, tokens, cache.NewRevocations(rdb)),
		posts: NewPostService(store),
		redis: mr,
	}
}

func ptr[T any](v T) *T { return &v }

func TestRegister_DefaultsAndConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "Ann@Example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.True(t, user.IsActive)
	assert.Equal(t, testutil.TierDefault, user.AccessID)
	assert.NotEqual(t, "pw", user.Password)

	_, err = f.auth.Register(ctx, CreateUserInput{Username: "ann2", Email: "ann@example.com", Password: "pw"})
	assert.True(t, models.IsCode(err, models.CodeConflict))
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "not-an-email", Password: "pw"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "a@x.io", Password: "pw", AccessID: ptr(uint(9))})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	role := models.Role("root")
	_, err = f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "a@x.io", Password: "pw", Role: &role})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 60 characters, 120 bytes
	tooLong := strings.Repeat("é", 60)
	_, err := f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "ann@example.com", Password: tooLong})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeValidation))
	assert.Contains(t, err.Error(), "72 bytes")

	fits := strings.Repeat("é", 36)
	user, err := f.auth.Register(ctx, CreateUserInput{Username: "ann", Email: "ann@example.com", Password: fits})
	require.NoError(t, err)
	_, _, err = f.auth.Login(ctx, "ann@example.com", fits)
	assert.NoError(t, err)

	_, err = f.users.UpdateUser(ctx, user.ID, models.UserChanges{Password: &tooLong}, true)
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestUsernameIsTrimmed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, CreateUserInput{Username: "   ", Email: "ann@example.com", Password: "pw"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	user, err := f.auth.Register(ctx, CreateUserInput{Username: "  ann  ", Email: "ann@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)

	_, err = f.users.UpdateUser(ctx, user.ID, models.UserChanges{Username: ptr(" \t ")}, true)
	assert.True(t, models.IsCode(err, models.CodeValidation))

	updated, err := f.users.UpdateUser(ctx, user.ID, models.UserChanges{Username: ptr(" annie ")}, true)
	require.NoError(t, err)
	assert.Equal(t, "annie", updated.Username)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)

	token, user, err := f.auth.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ann@example.com", user.Email)

	_, _, err = f.auth.Login(ctx, "ann@example.com", "wrong")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, _, err = f.auth.Login(ctx, "nobody@example.com", "password123")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestLogin_InactiveUserAlwaysFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)

	_, err := f.users.DeactivateUser(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "ann@example.com", "password123")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)

	token, _, err := f.auth.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)

	resolved, claims, err := f.auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)

	require.NoError(t, f.auth.Logout(ctx, claims))
	assert.True(t, f.redis.Exists("blacklist:"+claims.ID))
	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, _, err = f.auth.Authenticate(ctx, "garbage")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestAuthenticate_DeactivatedAfterLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)

	token, _, err := f.auth.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	_, err = f.users.DeactivateUser(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestAuthenticate_RedisDownStillVerifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)

	token, _, err := f.auth.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	f.redis.Close()

	_, _, err = f.auth.Authenticate(ctx, token)
	assert.NoError(t, err)
}

func TestPostAccessRule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	viewer := testutil.CreateUser(t, f.db, "viewer@example.com", testutil.TierPremium)
	for _, required := range []uint{testutil.TierDefault, testutil.TierPremium, testutil.TierVIP} {
		post := testutil.CreatePost(t, f.db, viewer.ID, "p", required)
		_, err := f.posts.GetOwnPost(ctx, viewer, post.ID)
		if required <= viewer.AccessID {
			assert.NoError(t, err, "required tier %d", required)
		} else {
			assert.True(t, models.IsCode(err, models.CodeForbidden), "required tier %d", required)
		}
	}

	own, err := f.posts.ListOwnPosts(ctx, viewer)
	require.NoError(t, err)
	assert.Len(t, own, 2)
}

func TestGetOwnPost_OtherOwnerIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.db, "owner@example.com", testutil.TierDefault)
	other := testutil.CreateUser(t, f.db, "other@example.com", testutil.TierVIP)
	post := testutil.CreatePost(t, f.db, owner.ID, "mine", testutil.TierDefault)

	_, err := f.posts.GetOwnPost(ctx, other, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	visible, err := f.posts.GetVisiblePost(ctx, other, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, visible.ID)
}

func TestListVisiblePosts_AnonymousUsesLowestTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.db, "owner@example.com", testutil.TierVIP)
	testutil.CreatePost(t, f.db, owner.ID, "open", testutil.TierDefault)
	testutil.CreatePost(t, f.db, owner.ID, "vip", testutil.TierVIP)

	posts, err := f.posts.ListVisiblePosts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "open", posts[0].Title)

	posts, err = f.posts.ListVisiblePosts(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", testutil.TierPremium)

	post, err := f.posts.CreatePost(ctx, owner, models.PostChanges{Title: ptr("Hello"), Description: ptr("world")})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, post.OwnerID)
	assert.Equal(t, testutil.TierPremium, post.RequiredAccessID)

	_, err = f.posts.CreatePost(ctx, owner, models.PostChanges{Description: ptr("no title")})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	_, err = f.posts.CreatePost(ctx, owner, models.PostChanges{Title: ptr("x"), RequiredAccessID: ptr(uint(50))})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestUpdatePost_PartialAndFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", testutil.TierVIP)
	post := testutil.CreatePost(t, f.db, owner.ID, "Hello", testutil.TierPremium)

	updated, err := f.posts.UpdatePost(ctx, owner, post.ID, models.PostChanges{Description: ptr("changed")}, true)
	require.NoError(t, err)
	assert.Equal(t, "Hello", updated.Title)
	assert.Equal(t, "changed", updated.Description)
	assert.Equal(t, testutil.TierPremium, updated.RequiredAccessID)

	_, err = f.posts.UpdatePost(ctx, owner, post.ID, models.PostChanges{Title: ptr("only title")}, false)
	assert.True(t, models.IsCode(err, models.CodeValidation), "full update needs required_access_id")

	updated, err = f.posts.UpdatePost(ctx, owner, post.ID, models.PostChanges{Title: ptr("full"), RequiredAccessID: ptr(testutil.TierDefault)}, false)
	require.NoError(t, err)
	assert.Equal(t, "full", updated.Title)
	assert.Empty(t, updated.Description)
	assert.Equal(t, testutil.TierDefault, updated.RequiredAccessID)
}

func TestMutatingSomeoneElsesPostIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, f.db, "owner@example.com", testutil.TierDefault)
	intruder := testutil.CreateUser(t, f.db, "intruder@example.com", testutil.TierVIP)
	post := testutil.CreatePost(t, f.db, owner.ID, "mine", testutil.TierDefault)

	_, err := f.posts.UpdatePost(ctx, intruder, post.ID, models.PostChanges{Title: ptr("hijack")}, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = f.posts.DeletePost(ctx, intruder, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	err = f.posts.DeletePost(ctx, owner, 12345)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	require.NoError(t, f.posts.DeletePost(ctx, owner, post.ID))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)
	testutil.CreateUser(t, f.db, "taken@example.com", testutil.TierDefault)

	updated, err := f.users.UpdateUser(ctx, user.ID, models.UserChanges{Username: ptr("annie")}, true)
	require.NoError(t, err)
	assert.Equal(t, "annie", updated.Username)
	assert.Equal(t, "ann@example.com", updated.Email)
	assert.True(t, updated.IsActive)

	_, err = f.users.UpdateUser(ctx, user.ID, models.UserChanges{Email: ptr("taken@example.com")}, true)
	assert.True(t, models.IsCode(err, models.CodeConflict))

	_, err = f.users.UpdateUser(ctx, user.ID, models.UserChanges{Username: ptr("x")}, false)
	assert.True(t, models.IsCode(err, models.CodeValidation), "full update needs every field")

	full := models.UserChanges{
		Username: ptr("ann"),
		Email:    ptr("ann@example.com"),
		Password: ptr("newpass"),
		Role:     ptr(models.RoleModerator),
		IsActive: ptr(true),
		AccessID: ptr(testutil.TierVIP),
	}
	updated, err = f.users.UpdateUser(ctx, user.ID, full, false)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, updated.Role)
	assert.Equal(t, testutil.TierVIP, updated.AccessID)

	_, _, err = f.auth.Login(ctx, "ann@example.com", "newpass")
	assert.NoError(t, err, "password is stored hashed and usable")

	_, err = f.users.UpdateUser(ctx, 999, models.UserChanges{Username: ptr("ghost")}, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestDeleteUser_CascadesPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)
	testutil.CreatePost(t, f.db, user.ID, "gone", testutil.TierDefault)

	require.NoError(t, f.users.DeleteUser(ctx, user.ID))

	posts := testutil.PostsByOwner(t, f.db, user.ID)
	assert.Empty(t, posts)

	_, err := f.users.GetUserByID(ctx, user.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestSoftDeleteKeepsPostsForOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, f.db, "ann@example.com", testutil.TierDefault)
	testutil.CreatePost(t, f.db, user.ID, "history", testutil.TierDefault)

	_, err := f.users.DeactivateUser(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "ann@example.com", "password123")
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	posts := testutil.PostsByOwner(t, f.db, user.ID)
	assert.Len(t, posts, 1)

	users, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
