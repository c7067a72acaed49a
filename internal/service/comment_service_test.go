package service

import (
	"context"
	"testing"
	"time"

	"commune/internal/featureflags"
	"commune/internal/models"
	"commune/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commentFixture struct {
	svc   *CommentService
	posts *testutil.PostRepoStub
	model *testutil.ModelStub
}

func newCommentFixture(flagCSV string) *commentFixture {
	posts := testutil.NewPostRepoStub()
	comments := testutil.NewCommentRepoStub()
	model := &testutil.ModelStub{}
	svc := NewCommentService(comments, posts, model, featureflags.NewManager(flagCSV))
	return &commentFixture{svc: svc, posts: posts, model: model}
}

func (f *commentFixture) seedPost(t *testing.T, ownerID uint) *models.Post {
	t.Helper()
	post := &models.Post{UserID: ownerID, Title: "t", Content: "c"}
	require.NoError(t, f.posts.Create(context.Background(), post))
	return post
}

func TestCreateComment_MissingPost(t *testing.T) {
	f := newCommentFixture("")

	_, err := f.svc.CreateComment(context.Background(), 1, 99, "hello")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "post_not_found", appErr.Message)
}

func TestCreateComment_EmptyContentPolicy(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		f := newCommentFixture("")
		post := f.seedPost(t, 1)

		_, err := f.svc.CreateComment(context.Background(), 2, post.ID, "   ")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeValidation, appErr.Code)
		assert.Equal(t, "invalid_request", appErr.Message)
	})

	t.Run("allowed when flag is on", func(t *testing.T) {
		f := newCommentFixture(featureflags.AllowEmptyComments + "=on")
		post := f.seedPost(t, 1)

		comment, err := f.svc.CreateComment(context.Background(), 2, post.ID, "")
		require.NoError(t, err)
		assert.NotZero(t, comment.ID)
	})
}

func TestCreateComment_AdvisorySentiment(t *testing.T) {
	f := newCommentFixture("")
	post := f.seedPost(t, 1)

	_, err := f.svc.CreateComment(context.Background(), 2, post.ID, "lovely evening")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, c := range f.model.Calls() {
			if c == "sentiment" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond, "sentiment should be called in the background")
}

func TestCreateComment_SentimentFailureDoesNotBlock(t *testing.T) {
	f := newCommentFixture("")
	f.model.Err = assert.AnError
	post := f.seedPost(t, 1)

	comment, err := f.svc.CreateComment(context.Background(), 2, post.ID, "hello")
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)
}

func TestUpdateComment_OwnershipAndScoping(t *testing.T) {
	f := newCommentFixture("")
	ctx := context.Background()
	post := f.seedPost(t, 1)
	other := f.seedPost(t, 1)

	comment, err := f.svc.CreateComment(ctx, 2, post.ID, "original")
	require.NoError(t, err)

	// Existing comment addressed through the wrong post: not found, not
	// forbidden.
	_, err = f.svc.UpdateComment(ctx, 2, other.ID, comment.ID, "edited")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)

	// Right post, wrong caller.
	_, err = f.svc.UpdateComment(ctx, 3, post.ID, comment.ID, "edited")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)

	// Owner succeeds.
	updated, err := f.svc.UpdateComment(ctx, 2, post.ID, comment.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
}

func TestDeleteComment(t *testing.T) {
	f := newCommentFixture("")
	ctx := context.Background()
	post := f.seedPost(t, 1)

	comment, err := f.svc.CreateComment(ctx, 2, post.ID, "bye")
	require.NoError(t, err)

	err = f.svc.DeleteComment(ctx, 3, post.ID, comment.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)

	require.NoError(t, f.svc.DeleteComment(ctx, 2, post.ID, comment.ID))

	err = f.svc.DeleteComment(ctx, 2, post.ID, comment.ID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func TestListComments_MissingPost(t *testing.T) {
	f := newCommentFixture("")

	_, err := f.svc.ListComments(context.Background(), 42)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "post_not_found", appErr.Message)
}

func TestListComments_AscendingOrder(t *testing.T) {
	f := newCommentFixture("")
	ctx := context.Background()
	post := f.seedPost(t, 1)

	first, err := f.svc.CreateComment(ctx, 2, post.ID, "first")
	require.NoError(t, err)
	second, err := f.svc.CreateComment(ctx, 3, post.ID, "second")
	require.NoError(t, err)

	comments, err := f.svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, first.ID, comments[0].ID)
	assert.Equal(t, second.ID, comments[1].ID)
}
