package server

import (
	"commune/internal/models"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/posts
// @Summary List posts
// @Description Paginated board listing, newest first
// @Tags posts
// @Produce json
// @Param page query int false "Page, starting at 1"
// @Param limit query int false "Page size, 1-100"
// @Param board_type query string false "Board filter"
// @Success 200 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	pagination, err := s.parsePagination(c)
	if err != nil {
		return nil
	}

	posts, total, err := s.postService.ListPosts(c.UserContext(), service.ListPostsInput{
		Page:      pagination.Page,
		Limit:     pagination.Limit,
		BoardType: c.Query("board_type"),
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "get_posts_success", fiber.Map{
		"posts": posts,
		"total": total,
		"page":  pagination.Page,
		"limit": pagination.Limit,
	})
}

// GetPost handles GET /api/posts/:id
// @Summary Get one post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "get_post_success", post)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Creates the post and fires best-effort model enrichment in the background
// @Tags posts
// @Accept json
// @Produce json
// @Param request body object{title=string,content=string,board_type=string,image_url=string} true "Post"
// @Success 201 {object} models.Envelope{data=models.Post}
// @Failure 422 {object} models.Envelope
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title     string `json:"title"`
		Content   string `json:"content"`
		BoardType string `json:"board_type"`
		ImageURL  string `json:"image_url"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:    currentUserID(c),
		Title:     req.Title,
		Content:   req.Content,
		BoardType: req.BoardType,
		ImageURL:  req.ImageURL,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "create_post_success", post)
}

// UpdatePost handles PATCH /api/posts/:id
// @Summary Update own post
// @Description Partial update; absent fields keep their value. Counters and owner are immutable.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope{data=models.Post}
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title      *string `json:"title"`
		Content    *string `json:"content"`
		BoardType  *string `json:"board_type"`
		ImageURL   *string `json:"image_url"`
		ImageClass *string `json:"image_class"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:     currentUserID(c),
		PostID:     id,
		Title:      req.Title,
		Content:    req.Content,
		BoardType:  req.BoardType,
		ImageURL:   req.ImageURL,
		ImageClass: req.ImageClass,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "update_post_success", post)
}

// DeletePost handles DELETE /api/posts/:id
// @Summary Delete own post
// @Description Cascades comments and likes in one transaction
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id} [delete]
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), id); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "delete_post_success", nil)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Toggle a like
// @Description Atomic like/unlike; returns the new state and exact count
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	liked, likeCount, err := s.postService.ToggleLike(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "toggle_like_success", fiber.Map{
		"liked":      liked,
		"like_count": likeCount,
	})
}

// IncrementView handles PATCH /api/posts/:id/view
// @Summary Count a view
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/view [patch]
func (s *Server) IncrementView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewCount, err := s.postService.IncrementView(c.UserContext(), id)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "increment_view_success", fiber.Map{
		"view_count": viewCount,
	})
}
