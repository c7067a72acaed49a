// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"commune/internal/cache"
	"commune/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("user_not_found")
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user matches so callers can
// distinguish "absent" from a storage failure.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("email_already_exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("email_already_exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// Delete removes the user and everything they own in one transaction:
// their comments and likes, their posts, and the comments and likes under
// those posts. Posts by other users the deleted account liked get their
// like_count recomputed from the join table, so the stored counter never
// drifts from the row count. A second delete of the same user reports
// not found.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	var touchedPostIDs []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return models.NewInternalError(err)
		}

		var likedPostIDs []uint
		if err := tx.Model(&models.PostLike{}).Where("user_id = ?", id).
			Distinct().Pluck("post_id", &likedPostIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		var commentedPostIDs []uint
		if err := tx.Model(&models.Comment{}).Where("user_id = ?", id).
			Distinct().Pluck("post_id", &commentedPostIDs).Error; err != nil {
			return models.NewInternalError(err)
		}

		if len(postIDs) > 0 {
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.Comment{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Where("post_id IN ?", postIDs).Delete(&models.PostLike{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
				return models.NewInternalError(err)
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		// Surviving posts the user liked still carry the old counter; bring
		// it back to the join-table count. The user's own posts are already
		// soft-deleted and fall out of the UPDATE.
		if len(likedPostIDs) > 0 {
			if err := tx.Model(&models.Post{}).
				Where("id IN ?", likedPostIDs).
				Update("like_count", gorm.Expr(
					"(SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id)",
				)).Error; err != nil {
				return models.NewInternalError(err)
			}
		}

		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return models.NewInternalError(result.Error)
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("user_not_found")
		}

		touchedPostIDs = append(likedPostIDs, commentedPostIDs...)
		return nil
	})
	if err != nil {
		return err
	}
	cache.InvalidateUser(ctx, id)
	for _, postID := range touchedPostIDs {
		cache.InvalidatePost(ctx, postID)
	}
	return nil
}
