package server

import (
	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ListComments handles GET /api/posts/:id/comments
// @Summary List a post's comments
// @Description Oldest first; 404 when the post does not exist
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comments, err := s.commentService.ListComments(c.UserContext(), postID)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "get_comments_success", comments)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param request body object{content=string} true "Comment"
// @Success 201 {object} models.Envelope{data=models.Comment}
// @Failure 404 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), currentUserID(c), postID, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusCreated, "create_comment_success", comment)
}

// UpdateComment handles PUT /api/posts/:id/comments/:commentId
// @Summary Edit own comment
// @Description Comment is looked up scoped to the post; existence beats ownership
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} models.Envelope{data=models.Comment}
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/comments/{commentId} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), currentUserID(c), postID, commentID, req.Content)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "update_comment_success", comment)
}

// DeleteComment handles DELETE /api/posts/:id/comments/:commentId
// @Summary Delete own comment
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Param commentId path int true "Comment ID"
// @Success 200 {object} models.Envelope
// @Failure 403 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /posts/{id}/comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), currentUserID(c), postID, commentID); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "delete_comment_success", nil)
}
