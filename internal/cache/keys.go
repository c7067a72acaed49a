package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostKeyPrefix     = "post:%d"
	PostListPrefix    = "posts:%s:%d:%d"
	CommentListPrefix = "post:%d:comments"
)

const (
	UserTTL        = 5 * time.Minute
	PostTTL        = 30 * time.Minute
	PostListTTL    = 1 * time.Minute
	CommentListTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// PostListKey keys a single page of the post list. boardType may be empty.
func PostListKey(boardType string, page, limit int) string {
	if boardType == "" {
		boardType = "all"
	}
	return fmt.Sprintf(PostListPrefix, boardType, page, limit)
}

func CommentListKey(postID uint) string {
	return fmt.Sprintf(CommentListPrefix, postID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost drops the post and its comment list. List pages are left to
// expire on their short TTL; enumerating every page key is not worth it.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, CommentListKey(postID))
}

func InvalidateComments(ctx context.Context, postID uint) {
	Invalidate(ctx, CommentListKey(postID))
}
