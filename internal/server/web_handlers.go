package server

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"postgate/internal/auth"
	"postgate/internal/middleware"
	"postgate/internal/models"
	"postgate/internal/service"
	"postgate/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// sessionCookie carries the same signed token the API accepts as a bearer.
const sessionCookie = "access_token"

const loginRequiredMsg = "Please log in to continue"

// SessionRequired resolves the caller from the session cookie and redirects
// to the login page when there is none.
func (s *Server) SessionRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.requireSession(c, c.Next)
	}
}

func (s *Server) requireSession(c *fiber.Ctx, next func() error) error {
	user, claims, err := s.sessionUser(c)
	if err != nil {
		return s.renderError(c, err)
	}
	if user == nil {
		if c.Cookies(sessionCookie) != "" {
			s.clearSessionCookie(c)
		}
		return redirectWithMsg(c, "/login", loginRequiredMsg)
	}

	setIdentity(c, user, claims)
	return next()
}

// sessionUser returns the active user behind the session cookie. An absent,
// invalid or revoked cookie is an anonymous visitor, not an error.
func (s *Server) sessionUser(c *fiber.Ctx) (*models.User, *auth.Claims, error) {
	token := c.Cookies(sessionCookie)
	if token == "" {
		return nil, nil, nil
	}

	user, claims, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		if models.IsCode(err, models.CodeUnauthorized) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return user, claims, nil
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   s.authService.TokenTTL(),
		Secure:   s.config.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   s.config.CookieSecure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func redirectWithMsg(c *fiber.Ctx, path, msg string) error {
	return c.Redirect(path+"?msg="+url.QueryEscape(msg), fiber.StatusSeeOther)
}

// renderError shows the error page with the status err implies.
func (s *Server) renderError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	message := "Internal server error"
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "page failed", "error", err)
	} else {
		message = appMessage(err)
	}

	return c.Status(status).Render("error", fiber.Map{
		"Title":   "Error",
		"Status":  status,
		"Message": message,
		"User":    currentUser(c),
	})
}

// failForm sends input problems back to the form page as a message and
// renders everything else as an error page.
func (s *Server) failForm(c *fiber.Ctx, back string, err error) error {
	if models.IsCode(err, models.CodeValidation) || models.IsCode(err, models.CodeConflict) {
		return redirectWithMsg(c, back, appMessage(err))
	}
	return s.renderError(c, err)
}

// formValue returns the trimmed form field, or nil when it is blank.
func formValue(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

// formSecret is formValue for passwords: blank still means not provided,
// but a provided value is kept byte for byte.
func formSecret(c *fiber.Ctx, key string) *string {
	v := c.FormValue(key)
	if validation.Blank(v) {
		return nil
	}
	return &v
}

// formUint parses an optional numeric form field.
func formUint(c *fiber.Ctx, key string) (*uint, error) {
	v := formValue(c, key)
	if v == nil {
		return nil, nil
	}
	n, err := strconv.ParseUint(*v, 10, 32)
	if err != nil || n == 0 {
		return nil, models.NewValidationError(key + " must be a positive number")
	}
	id := uint(n)
	return &id, nil
}

// postForm reads the post fields shared by the create and update forms.
func postForm(c *fiber.Ctx) (models.PostChanges, error) {
	tier, err := formUint(c, "required_access_id")
	if err != nil {
		return models.PostChanges{}, err
	}
	return models.PostChanges{
		Title:            formValue(c, "title"),
		Description:      formValue(c, "description"),
		RequiredAccessID: tier,
	}, nil
}

func (s *Server) tiers(c *fiber.Ctx) ([]models.EntryAccess, error) {
	return s.store.AccessTiers().List(c.UserContext())
}

// LoginPage handles GET /login
func (s *Server) LoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Title": "Log in",
		"Msg":   c.Query("msg"),
	})
}

// LoginSubmit handles POST /login
func (s *Server) LoginSubmit(c *fiber.Ctx) error {
	token, _, err := s.authService.Login(c.UserContext(), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if models.IsCode(err, models.CodeUnauthorized) {
			return redirectWithMsg(c, "/login", appMessage(err))
		}
		return s.renderError(c, err)
	}

	s.setSessionCookie(c, token)
	return c.Redirect("/index", fiber.StatusSeeOther)
}

// RegisterPage handles GET /register
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	tiers, err := s.tiers(c)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Render("register", fiber.Map{
		"Title": "Register",
		"Msg":   c.Query("msg"),
		"Tiers": tiers,
		"Roles": models.Roles,
	})
}

// RegisterSubmit handles POST /register. New accounts are active.
func (s *Server) RegisterSubmit(c *fiber.Ctx) error {
	accessID, err := formUint(c, "access_id")
	if err != nil {
		return s.failForm(c, "/register", err)
	}

	active := true
	in := service.CreateUserInput{
		Username: strings.TrimSpace(c.FormValue("username")),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		IsActive: &active,
		AccessID: accessID,
	}
	if role := formValue(c, "role"); role != nil {
		r := models.Role(*role)
		in.Role = &r
	}

	if _, err := s.authService.Register(c.UserContext(), in); err != nil {
		return s.failForm(c, "/register", err)
	}
	return redirectWithMsg(c, "/login", "Registration successful, please log in")
}

// LogoutSubmit handles POST /logout
func (s *Server) LogoutSubmit(c *fiber.Ctx) error {
	if _, claims, err := s.sessionUser(c); err == nil && claims != nil {
		if err := s.authService.Logout(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "logout revocation failed", "error", err)
		}
	}

	s.clearSessionCookie(c)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// IndexPage handles GET /index. Anonymous visitors read at the lowest tier.
func (s *Server) IndexPage(c *fiber.Ctx) error {
	user, _, err := s.sessionUser(c)
	if err != nil {
		return s.renderError(c, err)
	}

	posts, err := s.postService.ListVisiblePosts(c.UserContext(), user)
	if err != nil {
		return s.renderError(c, err)
	}

	if user == nil {
		return c.Render("index", fiber.Map{
			"Title": "Posts",
			"Msg":   c.Query("msg"),
			"Posts": posts,
		})
	}

	tiers, err := s.tiers(c)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Render("index_auth", fiber.Map{
		"Title": "Posts",
		"Msg":   c.Query("msg"),
		"User":  user,
		"Posts": posts,
		"Tiers": tiers,
	})
}

// CreatePostSubmit handles POST /create_post
func (s *Server) CreatePostSubmit(c *fiber.Ctx) error {
	in, err := postForm(c)
	if err != nil {
		return s.failForm(c, "/index", err)
	}

	if _, err := s.postService.CreatePost(c.UserContext(), currentUser(c), in); err != nil {
		return s.failForm(c, "/index", err)
	}
	return redirectWithMsg(c, "/index", "Post created")
}

// DeletePostSubmit handles POST /delete_post/:id
func (s *Server) DeletePostSubmit(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return s.renderError(c, models.NewValidationError("Invalid ID"))
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), uint(id)); err != nil {
		return s.renderError(c, err)
	}
	return redirectWithMsg(c, "/index", "Post deleted")
}

// UpdatePostSubmit handles POST /update_post, a full update: a blank
// description clears it.
func (s *Server) UpdatePostSubmit(c *fiber.Ctx) error {
	return s.updatePostForm(c, false)
}

// UpdatePostPartialSubmit handles POST /update_post_partial. Blank fields are
// left unchanged.
func (s *Server) UpdatePostPartialSubmit(c *fiber.Ctx) error {
	return s.updatePostForm(c, true)
}

func (s *Server) updatePostForm(c *fiber.Ctx, partial bool) error {
	id, err := formUint(c, "post_id")
	if err == nil && id == nil {
		err = models.NewValidationError("Missing required fields: post_id")
	}
	if err != nil {
		return s.renderError(c, err)
	}

	changes, err := postForm(c)
	if err != nil {
		return s.failForm(c, postPath(*id), err)
	}

	if _, err := s.postService.UpdatePost(c.UserContext(), currentUser(c), *id, changes, partial); err != nil {
		return s.failForm(c, postPath(*id), err)
	}
	return redirectWithMsg(c, postPath(*id), "Post updated")
}

func postPath(id uint) string {
	return "/post/" + strconv.FormatUint(uint64(id), 10)
}

// PostPage renders GET /post/:id for a session. Any post readable at the
// viewer's tier can be shown; only its owner gets the edit forms.
func (s *Server) PostPage(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return s.renderError(c, models.NewValidationError("Invalid ID"))
	}

	user := currentUser(c)
	post, err := s.postService.GetVisiblePost(c.UserContext(), user, uint(id))
	if err != nil {
		return s.renderError(c, err)
	}

	tiers, err := s.tiers(c)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Render("post_detail", fiber.Map{
		"Title":   post.Title,
		"Msg":     c.Query("msg"),
		"User":    user,
		"Post":    post,
		"IsOwner": post.OwnerID == user.ID,
		"Tiers":   tiers,
	})
}

// MyPostsPage handles GET /my_posts
func (s *Server) MyPostsPage(c *fiber.Ctx) error {
	user := currentUser(c)
	posts, err := s.postService.ListOwnPosts(c.UserContext(), user)
	if err != nil {
		return s.renderError(c, err)
	}

	tiers, err := s.tiers(c)
	if err != nil {
		return s.renderError(c, err)
	}
	return c.Render("my_posts", fiber.Map{
		"Title": "My posts",
		"Msg":   c.Query("msg"),
		"User":  user,
		"Posts": posts,
		"Tiers": tiers,
	})
}

// ProfilePage handles GET /profile
func (s *Server) ProfilePage(c *fiber.Ctx) error {
	user := currentUser(c)
	posts, err := s.postService.ListOwnPosts(c.UserContext(), user)
	if err != nil {
		return s.renderError(c, err)
	}

	return c.Render("profile", fiber.Map{
		"Title": "Profile",
		"Msg":   c.Query("msg"),
		"User":  user,
		"Posts": posts,
		"Roles": models.Roles,
	})
}

// UpdateUserPartialSubmit handles POST /update_user_partial. Blank fields are
// left unchanged. A new email invalidates the session token, so a fresh one
// is issued.
func (s *Server) UpdateUserPartialSubmit(c *fiber.Ctx) error {
	user := currentUser(c)

	changes := models.UserChanges{
		Username: formValue(c, "username"),
		Email:    formValue(c, "email"),
		Password: formSecret(c, "password"),
	}
	if role := formValue(c, "role"); role != nil {
		r := models.Role(*role)
		changes.Role = &r
	}
	if changes.Empty() {
		return c.Redirect("/profile", fiber.StatusSeeOther)
	}

	updated, err := s.userService.UpdateUser(c.UserContext(), user.ID, changes, true)
	if err != nil {
		return s.failForm(c, "/profile", err)
	}

	if updated.Email != user.Email {
		if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "old session revocation failed", "error", err)
		}
		token, err := s.authService.IssueToken(updated)
		if err != nil {
			return s.renderError(c, err)
		}
		s.setSessionCookie(c, token)
	}
	return redirectWithMsg(c, "/profile", "Profile updated")
}

// DeleteUserSubmit handles POST /delete_user. The account is deactivated, not
// removed, and the session ends.
func (s *Server) DeleteUserSubmit(c *fiber.Ctx) error {
	if _, err := s.userService.DeactivateUser(c.UserContext(), currentUser(c).ID); err != nil {
		return s.renderError(c, err)
	}
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "logout revocation failed", "error", err)
	}

	s.clearSessionCookie(c)
	return redirectWithMsg(c, "/login", "Your account has been deactivated")
}
