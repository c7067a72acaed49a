package service

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"commune/internal/middleware"
	"commune/internal/modelclient"
	"commune/internal/models"
	"commune/internal/repository"
	"commune/internal/validation"
)

// enrichTimeout bounds the whole background enrichment pass, not the
// individual model calls (those carry the client's own timeout).
const enrichTimeout = 30 * time.Second

type PostService struct {
	postRepo  repository.PostRepository
	model     modelclient.Client
	uploadDir string
}

type CreatePostInput struct {
	UserID    uint
	Title     string
	Content   string
	BoardType string
	ImageURL  string
}

type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      *string
	Content    *string
	BoardType  *string
	ImageURL   *string
	ImageClass *string
}

type ListPostsInput struct {
	Page      int
	Limit     int
	BoardType string
}

// NewPostService wires the post repository with the optional model client.
// A nil client disables enrichment; every write path still works.
func NewPostService(postRepo repository.PostRepository, model modelclient.Client, uploadDir string) *PostService {
	return &PostService{postRepo: postRepo, model: model, uploadDir: uploadDir}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validation.ValidateTitle(in.Title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, models.NewValidationError("invalid_request")
	}

	boardType := in.BoardType
	if boardType == "" {
		boardType = models.BoardTypeCouple
	}

	post := &models.Post{
		UserID:    in.UserID,
		Title:     in.Title,
		Content:   in.Content,
		BoardType: boardType,
		ImageURL:  in.ImageURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	if s.model != nil {
		go s.enrichPost(post.ID, post.Title, post.Content, post.ImageURL)
	}

	return post, nil
}

// enrichPost runs the advisory model calls for a new post: summary,
// sentiment, auto-tags, and image classification when an uploaded image is
// attached. Failures are logged and dropped; the post is already committed.
func (s *PostService) enrichPost(postID uint, title, content, imageURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), enrichTimeout)
	defer cancel()

	text := title + "\n" + content
	fields := map[string]any{}

	if summary, err := s.model.Summarize(ctx, text); err != nil {
		middleware.Logger.WarnContext(ctx, "post enrichment: summarize failed",
			"post_id", postID, "error", err)
	} else if summary != "" {
		fields["summary"] = summary
	}

	if sentiment, err := s.model.AnalyzeSentiment(ctx, text); err != nil {
		middleware.Logger.WarnContext(ctx, "post enrichment: sentiment failed",
			"post_id", postID, "error", err)
	} else {
		fields["sentiment_label"] = sentiment.Label
		fields["sentiment_score"] = sentiment.Score
	}

	if data := s.readUpload(imageURL); data != nil {
		if label, err := s.model.ClassifyImage(ctx, data); err != nil {
			middleware.Logger.WarnContext(ctx, "post enrichment: classify failed",
				"post_id", postID, "error", err)
		} else if label != "" {
			fields["image_class"] = label
		}
	}

	if err := s.postRepo.UpdateEnrichment(ctx, postID, fields); err != nil {
		middleware.Logger.WarnContext(ctx, "post enrichment: update failed",
			"post_id", postID, "error", err)
		return
	}

	tags, err := s.model.AutoTag(ctx, text)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "post enrichment: auto-tag failed",
			"post_id", postID, "error", err)
		return
	}
	if len(tags) > 0 {
		if err := s.postRepo.SetTags(ctx, &models.Post{ID: postID}, tags); err != nil {
			middleware.Logger.WarnContext(ctx, "post enrichment: set tags failed",
				"post_id", postID, "error", err)
		}
	}
}

// readUpload returns the bytes of a locally stored upload, or nil when the
// image URL does not point into the upload dir.
func (s *PostService) readUpload(imageURL string) []byte {
	if s.uploadDir == "" || !strings.HasPrefix(imageURL, "/uploads/") {
		return nil
	}
	name := path.Base(imageURL)
	if name == "." || name == "/" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.uploadDir, name))
	if err != nil {
		return nil
	}
	return data
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, int64, error) {
	offset := (in.Page - 1) * in.Limit
	return s.postRepo.List(ctx, in.BoardType, in.Limit, offset)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// UpdatePost applies a partial update. Existence is checked before
// ownership so probing another user's ids cannot distinguish "not yours"
// from "not there" on missing posts.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if post.UserID != in.UserID {
		return nil, models.NewForbiddenError()
	}

	if in.Title != nil {
		if err := validation.ValidateTitle(*in.Title); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.Title = *in.Title
	}
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return nil, models.NewValidationError("invalid_request")
		}
		post.Content = *in.Content
	}
	if in.BoardType != nil {
		post.BoardType = *in.BoardType
	}
	if in.ImageURL != nil {
		post.ImageURL = *in.ImageURL
	}
	if in.ImageClass != nil {
		post.ImageClass = *in.ImageClass
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError()
	}
	return s.postRepo.Delete(ctx, postID)
}

func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (liked bool, likeCount int, err error) {
	return s.postRepo.ToggleLike(ctx, postID, userID)
}

// IncrementView bumps the counter and returns the new value.
func (s *PostService) IncrementView(ctx context.Context, postID uint) (int, error) {
	if err := s.postRepo.IncrementView(ctx, postID); err != nil {
		return 0, err
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return 0, err
	}
	return post.ViewCount, nil
}
