package server

import (
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postRequest struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	ImageURL string   `json:"imageUrl"`
	Tags     []string `json:"tags"`
}

// GetPosts handles GET /api/posts
// @Summary List posts
// @Description All posts, newest first, with their authors
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.GetAll(c.UserContext())
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Read a post
// @Description Returns the post and counts the view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetOne(c.UserContext(), id)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
// @Summary Publish a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body postRequest true "Post"
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req postRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Create(c.UserContext(), service.CreatePostInput{
		UserID:   currentUserID(c),
		Title:    req.Title,
		Text:     req.Text,
		ImageURL: req.ImageURL,
		Tags:     req.Tags,
	})
	if err != nil {
		return s.handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// UpdatePost handles PATCH and PUT /api/posts/:id
// @Summary Replace a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body postRequest true "Post"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postRequest
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	err = s.postService.Update(c.UserContext(), service.UpdatePostInput{
		UserID:   currentUserID(c),
		PostID:   id,
		Title:    req.Title,
		Text:     req.Text,
		ImageURL: req.ImageURL,
		Tags:     req.Tags,
	})
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} object{success=bool}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Remove(c.UserContext(), service.RemovePostInput{
		UserID: currentUserID(c),
		PostID: id,
	}); err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GetLastTags handles GET /api/tags and GET /api/posts/tags
// @Summary Recent tags
// @Description Tags of the newest posts, newest first
// @Tags posts
// @Produce json
// @Param limit query int false "Number of tags" default(5)
// @Success 200 {array} string
// @Router /tags [get]
func (s *Server) GetLastTags(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultTagLimit)
	if limit > 50 {
		limit = 50
	}

	tags, err := s.postService.RecentTags(c.UserContext(), limit)
	if err != nil {
		return s.handleError(c, err)
	}
	return c.JSON(tags)
}
