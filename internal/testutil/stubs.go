// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"sort"
	"strings"
	"sync"
	"time"

	"commune/internal/modelclient"
	"commune/internal/models"
)

// UserRepoStub is an in-memory user repository implementation for tests.
type UserRepoStub struct {
	mu     sync.Mutex
	users  map[uint]*models.User
	nextID uint
}

// NewUserRepoStub creates an in-memory user repository stub.
func NewUserRepoStub() *UserRepoStub {
	return &UserRepoStub{users: make(map[uint]*models.User), nextID: 1}
}

func (s *UserRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, models.NewNotFoundError("user_not_found")
	}
	cp := *u
	return &cp, nil
}

func (s *UserRepoStub) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *UserRepoStub) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return models.NewConflictError("email_already_exists")
		}
	}
	user.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *UserRepoStub) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return models.NewNotFoundError("user_not_found")
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *UserRepoStub) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return models.NewNotFoundError("user_not_found")
	}
	delete(s.users, id)
	return nil
}

// PostRepoStub is an in-memory post repository implementation for tests.
type PostRepoStub struct {
	mu     sync.Mutex
	posts  map[uint]*models.Post
	likes  map[[2]uint]bool // (postID, userID)
	nextID uint

	// EnrichCalls records UpdateEnrichment invocations for assertions.
	EnrichCalls []map[string]any
}

// NewPostRepoStub creates an in-memory post repository stub.
func NewPostRepoStub() *PostRepoStub {
	return &PostRepoStub{
		posts:  make(map[uint]*models.Post),
		likes:  make(map[[2]uint]bool),
		nextID: 1,
	}
}

func (s *PostRepoStub) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	cp := *post
	s.posts[post.ID] = &cp
	return nil
}

func (s *PostRepoStub) GetByID(_ context.Context, id uint) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("post_not_found")
	}
	cp := *p
	return &cp, nil
}

func (s *PostRepoStub) List(_ context.Context, boardType string, limit, offset int) ([]*models.Post, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Post
	for _, p := range s.posts {
		if boardType != "" && p.BoardType != boardType {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (s *PostRepoStub) Update(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return models.NewNotFoundError("post_not_found")
	}
	cp := *post
	s.posts[post.ID] = &cp
	return nil
}

func (s *PostRepoStub) UpdateEnrichment(_ context.Context, id uint, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EnrichCalls = append(s.EnrichCalls, fields)
	p, ok := s.posts[id]
	if !ok {
		return nil
	}
	if v, ok := fields["summary"].(string); ok {
		p.Summary = v
	}
	if v, ok := fields["sentiment_label"].(string); ok {
		p.SentimentLabel = v
	}
	if v, ok := fields["sentiment_score"].(float64); ok {
		p.SentimentScore = v
	}
	if v, ok := fields["image_class"].(string); ok {
		p.ImageClass = v
	}
	return nil
}

func (s *PostRepoStub) SetTags(_ context.Context, post *models.Post, names []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[post.ID]
	if !ok {
		return models.NewNotFoundError("post_not_found")
	}
	p.Tags = nil
	for i, name := range names {
		p.Tags = append(p.Tags, models.Tag{ID: uint(i + 1), Name: name})
	}
	return nil
}

func (s *PostRepoStub) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return models.NewNotFoundError("post_not_found")
	}
	delete(s.posts, id)
	for key := range s.likes {
		if key[0] == id {
			delete(s.likes, key)
		}
	}
	return nil
}

func (s *PostRepoStub) ToggleLike(_ context.Context, postID, userID uint) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return false, 0, models.NewNotFoundError("post_not_found")
	}

	key := [2]uint{postID, userID}
	liked := !s.likes[key]
	if liked {
		s.likes[key] = true
	} else {
		delete(s.likes, key)
	}

	count := 0
	for k := range s.likes {
		if k[0] == postID {
			count++
		}
	}
	p.LikeCount = count
	return liked, count, nil
}

func (s *PostRepoStub) IncrementView(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return models.NewNotFoundError("post_not_found")
	}
	p.ViewCount++
	return nil
}

// CommentRepoStub is an in-memory comment repository implementation for tests.
type CommentRepoStub struct {
	mu       sync.Mutex
	comments map[uint]*models.Comment
	nextID   uint
}

// NewCommentRepoStub creates an in-memory comment repository stub.
func NewCommentRepoStub() *CommentRepoStub {
	return &CommentRepoStub{comments: make(map[uint]*models.Comment), nextID: 1}
}

func (s *CommentRepoStub) Create(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	comment.CreatedAt = now
	comment.UpdatedAt = now
	cp := *comment
	s.comments[comment.ID] = &cp
	return nil
}

func (s *CommentRepoStub) GetByPostAndID(_ context.Context, postID, commentID uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok || c.PostID != postID {
		return nil, models.NewNotFoundError("comment_not_found")
	}
	cp := *c
	return &cp, nil
}

func (s *CommentRepoStub) ListByPost(_ context.Context, postID uint) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *CommentRepoStub) Update(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.comments[comment.ID]; !ok {
		return models.NewNotFoundError("comment_not_found")
	}
	cp := *comment
	s.comments[comment.ID] = &cp
	return nil
}

func (s *CommentRepoStub) Delete(_ context.Context, postID, commentID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[commentID]
	if !ok || c.PostID != postID {
		return models.NewNotFoundError("comment_not_found")
	}
	delete(s.comments, commentID)
	return nil
}

// ModelStub is a configurable modelclient.Client test double.
type ModelStub struct {
	SentimentResult *modelclient.Sentiment
	SummaryResult   string
	TagsResult      []string
	LabelResult     string
	EmbeddingResult []float64
	ReplyResult     string
	ChunksResult    []string
	Err             error

	mu    sync.Mutex
	calls []string
}

func (m *ModelStub) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls returns the method names invoked so far.
func (m *ModelStub) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *ModelStub) AnalyzeSentiment(_ context.Context, _ string) (*modelclient.Sentiment, error) {
	m.record("sentiment")
	if m.Err != nil {
		return nil, m.Err
	}
	if m.SentimentResult == nil {
		return &modelclient.Sentiment{Label: "neutral", Score: 0.5}, nil
	}
	return m.SentimentResult, nil
}

func (m *ModelStub) Summarize(_ context.Context, _ string) (string, error) {
	m.record("summarize")
	return m.SummaryResult, m.Err
}

func (m *ModelStub) AutoTag(_ context.Context, _ string) ([]string, error) {
	m.record("auto-tag")
	return m.TagsResult, m.Err
}

func (m *ModelStub) ClassifyImage(_ context.Context, _ []byte) (string, error) {
	m.record("classify")
	return m.LabelResult, m.Err
}

func (m *ModelStub) Embed(_ context.Context, _ string) ([]float64, error) {
	m.record("embedding")
	return m.EmbeddingResult, m.Err
}

func (m *ModelStub) Chat(_ context.Context, _ string) (string, error) {
	m.record("chat")
	return m.ReplyResult, m.Err
}

func (m *ModelStub) ChatStream(_ context.Context, _ string, onChunk func(string) error) error {
	m.record("chat_stream")
	if m.Err != nil {
		return m.Err
	}
	for _, c := range m.ChunksResult {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

// PNGBytes returns a small valid PNG image.
func PNGBytes() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// JPEGBytes returns a small valid JPEG image.
func JPEGBytes() []byte {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}

// TextBytes returns bytes that sniff as plain text, for rejection tests.
func TextBytes() []byte {
	return []byte(strings.Repeat("definitely not an image\n", 4))
}
