package server

import (
	"postgate/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired returns the bearer-token authentication middleware. The caller
// must resolve to an active user.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Not authenticated"))
		}

		user, claims, err := s.authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			if models.IsCode(err, models.CodeUnauthorized) {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
			return respondError(c, err)
		}

		setIdentity(c, user, claims)
		return c.Next()
	}
}
