package server

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"postgate/internal/models"
	"postgate/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// webLogin logs in through the form and returns the session cookie.
func (e *testEnv) webLogin(t *testing.T, email string) *http.Cookie {
	t.Helper()
	resp := e.form(t, "/login", url.Values{"email": {email}, "password": {"password123"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/index", resp.Header.Get("Location"))

	cookie := sessionCookieFrom(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	return cookie
}

func TestWebRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.page(t, "/register", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `name="access_id"`)

	form := url.Values{
		"username":  {"ann"},
		"email":     {"ann@x.com"},
		"password":  {"password123"},
		"role":      {"user"},
		"access_id": {"2"},
	}
	resp = env.form(t, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login?msg=")

	resp = env.form(t, "/register", form, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/register?msg="+url.QueryEscape("Email already registered"), resp.Header.Get("Location"))

	resp = env.form(t, "/login", url.Values{"email": {"ann@x.com"}, "password": {"wrong"}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/login?msg=")
	assert.Nil(t, sessionCookieFrom(resp))

	cookie := env.webLogin(t, "ann@x.com")

	resp = env.page(t, "/index", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Signed in as ann@x.com")
}

func TestWebProtectedPagesRedirect(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/my_posts", "/profile", "/post/1"} {
		resp := env.page(t, path, nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Location"), "/login", path)
	}

	resp := env.form(t, "/create_post", url.Values{"title": {"x"}}, nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.page(t, "/my_posts", &http.Cookie{Name: sessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestWebIndexUsesTierFilter(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "vip@x.com", testutil.TierVIP)
	testutil.CreateUser(t, env.db, "basic@x.com", testutil.TierDefault)
	testutil.CreatePost(t, env.db, owner.ID, "Open to all", testutil.TierDefault)
	testutil.CreatePost(t, env.db, owner.ID, "VIP only", testutil.TierVIP)

	resp := env.page(t, "/index", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	anon := body(t, resp)
	assert.Contains(t, anon, "Open to all")
	assert.NotContains(t, anon, "VIP only")

	resp = env.page(t, "/index", env.webLogin(t, "basic@x.com"))
	basic := body(t, resp)
	assert.Contains(t, basic, "Open to all")
	assert.NotContains(t, basic, "VIP only")

	resp = env.page(t, "/index", env.webLogin(t, "vip@x.com"))
	assert.Contains(t, body(t, resp), "VIP only")
}

func TestWebPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierPremium)
	cookie := env.webLogin(t, "ann@x.com")

	resp := env.form(t, "/create_post", url.Values{"title": {"Hello"}, "description": {"world"}, "required_access_id": {""}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var post models.Post
	require.NoError(t, env.db.Where("owner_id = ?", user.ID).First(&post).Error)
	assert.Equal(t, testutil.TierPremium, post.RequiredAccessID)
	path := "/post/" + strconv.Itoa(int(post.ID))
	id := strconv.Itoa(int(post.ID))

	resp = env.page(t, path, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), `action="/update_post_partial"`)

	resp = env.form(t, "/update_post_partial", url.Values{"post_id": {id}, "title": {"   "}, "description": {"changed"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NoError(t, env.db.First(&post, post.ID).Error)
	assert.Equal(t, "Hello", post.Title, "blank fields are not provided")
	assert.Equal(t, "changed", post.Description)

	resp = env.form(t, "/update_post", url.Values{"post_id": {id}, "title": {"Replaced"}, "required_access_id": {"1"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.NoError(t, env.db.First(&post, post.ID).Error)
	assert.Equal(t, "Replaced", post.Title)
	assert.Empty(t, post.Description)

	resp = env.page(t, "/my_posts", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Replaced")

	resp = env.form(t, "/delete_post/"+id, nil, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.page(t, path, cookie)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebCannotTouchOthersPosts(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateUser(t, env.db, "owner@x.com", testutil.TierDefault)
	testutil.CreateUser(t, env.db, "other@x.com", testutil.TierVIP)
	post := testutil.CreatePost(t, env.db, owner.ID, "Mine", testutil.TierDefault)
	id := strconv.Itoa(int(post.ID))
	cookie := env.webLogin(t, "other@x.com")

	resp := env.page(t, "/post/"+id, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode, "visible posts can be read by anyone at the tier")
	assert.NotContains(t, body(t, resp), "update_post_partial")

	resp = env.form(t, "/update_post_partial", url.Values{"post_id": {id}, "title": {"Stolen"}}, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.form(t, "/delete_post/"+id, nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var fresh models.Post
	require.NoError(t, env.db.First(&fresh, post.ID).Error)
	assert.Equal(t, "Mine", fresh.Title)
}

func TestWebProfileUpdateReissuesCookie(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierDefault)
	cookie := env.webLogin(t, "ann@x.com")

	resp := env.form(t, "/update_user_partial", url.Values{"username": {"annie"}, "email": {""}, "password": {" "}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Nil(t, sessionCookieFrom(resp), "same email keeps the session")

	resp = env.form(t, "/update_user_partial", url.Values{"email": {"new@x.com"}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	fresh := sessionCookieFrom(resp)
	require.NotNil(t, fresh)

	resp = env.page(t, "/profile", fresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	assert.Contains(t, page, "new@x.com")
	assert.Contains(t, page, "annie")

	resp = env.page(t, "/profile", cookie)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "the old session is gone")
}

func TestWebProfilePasswordKeepsSurroundingSpaces(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierDefault)
	cookie := env.webLogin(t, "ann@x.com")

	resp := env.form(t, "/update_user_partial", url.Values{"password": {"  new pass  "}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "/profile")

	resp = env.form(t, "/login", url.Values{"email": {"ann@x.com"}, "password": {"new pass"}}, nil)
	assert.Contains(t, resp.Header.Get("Location"), "/login?msg=")

	resp = env.form(t, "/login", url.Values{"email": {"ann@x.com"}, "password": {"  new pass  "}}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/index", resp.Header.Get("Location"))

	resp = env.form(t, "/update_user_partial", url.Values{"password": {"   "}}, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = env.form(t, "/login", url.Values{"email": {"ann@x.com"}, "password": {"  new pass  "}}, nil)
	assert.Equal(t, "/index", resp.Header.Get("Location"), "a blank password is not provided")
}

func TestWebDeleteUserDeactivates(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierDefault)
	testutil.CreatePost(t, env.db, user.ID, "kept", testutil.TierDefault)
	cookie := env.webLogin(t, "ann@x.com")

	resp := env.form(t, "/delete_user", nil, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	cleared := sessionCookieFrom(resp)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	resp = env.form(t, "/login", url.Values{"email": {"ann@x.com"}, "password": {"password123"}}, nil)
	assert.Contains(t, resp.Header.Get("Location"), "/login?msg=")

	var count int64
	require.NoError(t, env.db.Model(&models.Post{}).Where("owner_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWebLogoutRevokesCookieToken(t *testing.T) {
	env := newTestEnv(t)
	testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierDefault)
	cookie := env.webLogin(t, "ann@x.com")

	resp := env.form(t, "/logout", nil, cookie)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = env.page(t, "/my_posts", cookie)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestPostDetailDispatch(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "ann@x.com", testutil.TierDefault)
	post := testutil.CreatePost(t, env.db, user.ID, "Hello", testutil.TierDefault)
	path := "/post/" + strconv.Itoa(int(post.ID))

	token := env.login(t, "ann@x.com")
	resp := env.json(t, http.MethodGet, path, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	resp = env.page(t, path, env.webLogin(t, "ann@x.com"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
