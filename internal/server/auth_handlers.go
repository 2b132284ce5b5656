package server

import (
	"postgate/internal/models"
	"postgate/internal/service"
	"postgate/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// loginRequest follows the OAuth2 password form: username carries the email.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// MessageResponse acknowledges an operation without returning a resource.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// Register handles POST /auth/reg
// @Summary Register
// @Description Create an account. No token is issued; log in afterwards. A duplicate email is reported as 409 Conflict, not 400.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.CreateUserInput true "Registration request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse "Email already registered"
// @Router /auth/reg [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.CreateUserInput
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}

	if _, err := s.authService.Register(c.UserContext(), req); err != nil {
		return respondError(c, err)
	}

	return c.JSON(MessageResponse{Msg: "User registered successfully"})
}

// Login handles POST /auth/login
// @Summary Login
// @Description Exchange email and password for a bearer token
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Email"
// @Param password formData string true "Password"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}
	if err := validation.Present(
		validation.Field{Name: "username", Set: !validation.Blank(req.Username)},
		validation.Field{Name: "password", Set: req.Password != ""},
	); err != nil {
		return respondError(c, err)
	}

	token, _, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if models.IsCode(err, models.CodeUnauthorized) {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}
		return respondError(c, err)
	}

	return c.JSON(TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout handles POST /auth/logout
// @Summary Logout
// @Description Revoke the presented token until it expires
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := s.authService.Logout(c.UserContext(), currentClaims(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(MessageResponse{Msg: "Logged out"})
}

// Me handles GET /auth/me
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}
