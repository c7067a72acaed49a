package service

import (
	"context"
	"strings"
	"time"

	"commune/internal/featureflags"
	"commune/internal/middleware"
	"commune/internal/modelclient"
	"commune/internal/models"
	"commune/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	model       modelclient.Client
	flags       *featureflags.Manager
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	model modelclient.Client,
	flags *featureflags.Manager,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		model:       model,
		flags:       flags,
	}
}

// ListComments returns a post's comments oldest first. The post must exist.
func (s *CommentService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

func (s *CommentService) CreateComment(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	if err := s.checkContent(content, userID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	// Advisory: comment sentiment is logged for moderation review, never
	// stored and never blocking.
	if s.model != nil && strings.TrimSpace(content) != "" {
		go s.logSentiment(comment.ID, content)
	}

	return comment, nil
}

func (s *CommentService) logSentiment(commentID uint, content string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sentiment, err := s.model.AnalyzeSentiment(ctx, content)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "comment sentiment failed",
			"comment_id", commentID, "error", err)
		return
	}
	middleware.Logger.InfoContext(ctx, "comment sentiment",
		"comment_id", commentID,
		"label", sentiment.Label,
		"score", sentiment.Score)
}

// UpdateComment edits a comment's content. The lookup is scoped to the post,
// and existence is checked before ownership.
func (s *CommentService) UpdateComment(ctx context.Context, userID, postID, commentID uint, content string) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByPostAndID(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, models.NewForbiddenError()
	}
	if err := s.checkContent(content, userID); err != nil {
		return nil, err
	}

	comment.Content = content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, postID, commentID uint) error {
	comment, err := s.commentRepo.GetByPostAndID(ctx, postID, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return models.NewForbiddenError()
	}
	return s.commentRepo.Delete(ctx, postID, commentID)
}

// checkContent enforces the empty-comment policy, which is flag-driven:
// allow_empty_comments accepts blank content when enabled.
func (s *CommentService) checkContent(content string, userID uint) error {
	if strings.TrimSpace(content) != "" {
		return nil
	}
	if s.flags.Enabled(featureflags.AllowEmptyComments, userID) {
		return nil
	}
	return models.NewValidationError("invalid_request")
}
