package repository

import (
	"context"
	"errors"
	"time"

	"commune/internal/cache"
	"commune/internal/models"
	"commune/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, boardType string, limit, offset int) ([]*models.Post, int64, error)
	Update(ctx context.Context, post *models.Post) error
	UpdateEnrichment(ctx context.Context, id uint, fields map[string]any) error
	SetTags(ctx context.Context, post *models.Post, names []string) error
	Delete(ctx context.Context, id uint) error
	ToggleLike(ctx context.Context, postID, userID uint) (liked bool, likeCount int, err error)
	IncrementView(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	key := cache.PostKey(id)

	err := cache.Aside(ctx, key, &post, cache.PostTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("User").
			Preload("Tags").
			First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("post_not_found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &post, nil
}

// postPage is the cached shape of one post list page.
type postPage struct {
	Posts []*models.Post `json:"posts"`
	Total int64          `json:"total"`
}

// List returns one page of posts newest-first plus the total row count for
// the filter. Ties on created_at are broken by id so pagination is stable.
// Pages are cached on a short TTL; mutations rely on expiry rather than
// enumerating every page key.
func (r *postRepository) List(ctx context.Context, boardType string, limit, offset int) ([]*models.Post, int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", "posts")
	defer span.End()

	var page postPage
	key := cache.PostListKey(boardType, offset/limit+1, limit)

	err := cache.Aside(ctx, key, &page, cache.PostListTTL, func() error {
		base := r.db.WithContext(ctx).Model(&models.Post{})
		if boardType != "" {
			base = base.Where("board_type = ?", boardType)
		}

		if err := base.Count(&page.Total).Error; err != nil {
			return models.NewInternalError(err)
		}

		if err := base.
			Preload("User").
			Preload("Tags").
			Order("created_at DESC, id DESC").
			Limit(limit).
			Offset(offset).
			Find(&page.Posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return page.Posts, page.Total, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	return nil
}

// UpdateEnrichment writes model-derived columns (summary, sentiment, image
// class) without touching user-owned fields. Missing rows are ignored: the
// post may have been deleted while enrichment ran.
func (r *postRepository) UpdateEnrichment(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	return nil
}

// SetTags replaces the post's tag set, creating unknown tag names on the fly.
func (r *postRepository) SetTags(ctx context.Context, post *models.Post, names []string) error {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		var tag models.Tag
		err := r.db.WithContext(ctx).
			Where(models.Tag{Name: name}).
			FirstOrCreate(&tag).Error
		if err != nil {
			return models.NewInternalError(err)
		}
		tags = append(tags, tag)
	}

	if err := r.db.WithContext(ctx).Model(post).Association("Tags").Replace(tags); err != nil {
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(post.ID))
	return nil
}

// Delete removes the post together with its comments and likes in one
// transaction, so no orphan rows survive a crash between statements.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("post_not_found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// ToggleLike flips the (post, user) like inside one transaction. The insert
// uses ON CONFLICT DO NOTHING so concurrent toggles for the same pair settle
// on the composite primary key instead of erroring; the stored like_count is
// recomputed from the join table in the same transaction, so it can never
// drift below zero or away from the row count.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (bool, int, error) {
	var liked bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var exists int64
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&exists).Error; err != nil {
			return models.NewInternalError(err)
		}
		if exists == 0 {
			return models.NewNotFoundError("post_not_found")
		}

		result := tx.Exec(
			`INSERT INTO post_likes (post_id, user_id, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT (post_id, user_id) DO NOTHING`,
			postID, userID, time.Now(),
		)
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}

		if result.RowsAffected == 1 {
			liked = true
		} else {
			if err := tx.Exec(
				`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`,
				postID, userID,
			).Error; err != nil {
				return models.NewInternalError(err)
			}
			liked = false
		}

		if err := tx.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Update("like_count", count).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return false, 0, err
	}

	cache.Invalidate(ctx, cache.PostKey(postID))
	if liked {
		observability.LikeToggles.WithLabelValues("liked").Inc()
	} else {
		observability.LikeToggles.WithLabelValues("unliked").Inc()
	}
	return liked, int(count), nil
}

// IncrementView bumps view_count in a single UPDATE so concurrent views
// never lose increments.
func (r *postRepository) IncrementView(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("post_not_found")
	}
	cache.Invalidate(ctx, cache.PostKey(id))
	return nil
}
