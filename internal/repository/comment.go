package repository

import (
	"context"
	"errors"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByPostAndID(ctx context.Context, postID, commentID uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, postID, commentID uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateComments(ctx, comment.PostID)
	return nil
}

// GetByPostAndID looks a comment up scoped to its post. A comment id that
// exists under a different post is treated as absent, never as a mismatch
// the caller has to detect.
func (r *commentRepository) GetByPostAndID(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		First(&comment, commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("comment_not_found")
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns every comment of a post, oldest first. The list is
// cached per post; every comment mutation drops the entry.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	key := cache.CommentListKey(postID)

	err := cache.Aside(ctx, key, &comments, cache.CommentListTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("User").
			Where("post_id = ?", postID).
			Order("created_at ASC, id ASC").
			Find(&comments).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateComments(ctx, comment.PostID)
	return nil
}

func (r *commentRepository) Delete(ctx context.Context, postID, commentID uint) error {
	result := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Delete(&models.Comment{}, commentID)
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("comment_not_found")
	}
	cache.InvalidateComments(ctx, postID)
	return nil
}
