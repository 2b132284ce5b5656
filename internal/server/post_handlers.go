package server

import (
	"strings"

	"postgate/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPosts handles GET /post/
// @Summary List my posts
// @Description The caller's posts readable at their access tier
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Post
// @Failure 401 {object} models.ErrorResponse
// @Router /post/ [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListOwnPosts(c.UserContext(), currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// CreatePost handles POST /post/
// @Summary Create post
// @Description required_access_id defaults to the caller's tier
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PostChanges true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /post/ [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req models.PostChanges
	if err := c.BodyParser(&req); err != nil {
		return bodyError(c)
	}

	post, err := s.postService.CreatePost(c.UserContext(), currentUser(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetPost handles GET /post/:id
// @Summary Get my post
// @Description 403 when the post is missing or above the caller's tier, 404 when it belongs to someone else
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetOwnPost(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// UpdatePost handles PUT /post/:id
// @Summary Replace post
// @Description title and required_access_id are required; an absent description is cleared
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body models.PostChanges true "Post"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [put]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	return s.updatePost(c, false)
}

// UpdatePostPartial handles PATCH /post/:id
// @Summary Update post
// @Description Only the fields present in the body change
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body models.PostChanges true "Changes"
// @Success 200 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [patch]
func (s *Server) UpdatePostPartial(c *fiber.Ctx) error {
	return s.updatePost(c, true)
}

func (s *Server) updatePost(c *fiber.Ctx, partial bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var changes models.PostChanges
	if err := c.BodyParser(&changes); err != nil {
		return bodyError(c)
	}

	post, err := s.postService.UpdatePost(c.UserContext(), currentUser(c), id, changes, partial)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /post/:id
// @Summary Delete post
// @Tags posts
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /post/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// preferHTML serves a browser request with page and passes everything else
// on to the JSON chain. A request is a browser request when it has no bearer
// header and either carries the session cookie or explicitly accepts HTML.
func (s *Server) preferHTML(page fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "" {
			return c.Next()
		}
		if c.Cookies(sessionCookie) == "" && !strings.Contains(c.Get(fiber.HeaderAccept), fiber.MIMETextHTML) {
			return c.Next()
		}
		return s.requireSession(c, func() error { return page(c) })
	}
}
