package repository

import (
	"context"
	"regexp"
	"testing"

	"commune/internal/cache"
	"commune/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRepoCache backs the cache package with an in-process Redis so list
// caching becomes observable; repository tests otherwise run cacheless.
func setupRepoCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	old := cache.GetClient()
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(old) })
	return mr
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Content: "Content", BoardType: models.BoardTypeCouple, UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(2, "Second", 10).
			AddRow(1, "First", 10))

	// Preload Tags (join table then tags)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_tags"`)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "tag_id"}))

	// Preload User
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nickname"}).AddRow(10, "alice"))

	posts, total, err := repo.List(ctx, "", 20, 0)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "Second", posts[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List_CachesPage(t *testing.T) {
	mr := setupRepoCache(t)
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	// Exactly one round of count + find + preloads: the second List must be
	// served from the cached page.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE board_type = $1`)).
		WithArgs("planner").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE board_type = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id"}).
			AddRow(1, "First", 10))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "post_tags"`)).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "tag_id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "nickname"}).AddRow(10, "alice"))

	posts, total, err := repo.List(ctx, "planner", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, posts, 1)
	assert.True(t, mr.Exists("posts:planner:1:20"))

	again, totalAgain, err := repo.List(ctx, "planner", 20, 0)
	require.NoError(t, err)
	assert.EqualValues(t, total, totalAgain)
	require.Len(t, again, 1)
	assert.Equal(t, posts[0].Title, again[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ToggleLike_Like(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE id = $1`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_likes`)).
		WithArgs(1, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "post_likes" WHERE post_id = $1`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "like_count"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	liked, count, err := repo.ToggleLike(ctx, 1, 7)
	assert.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ToggleLike_Unlike(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE id = $1`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	// Conflict: the row already exists, so the insert affects nothing.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_likes`)).
		WithArgs(1, 7, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`)).
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "post_likes" WHERE post_id = $1`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "like_count"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	liked, count, err := repo.ToggleLike(ctx, 1, 7)
	assert.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ToggleLike_PostMissing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "posts" WHERE id = $1`)).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	_, _, err := repo.ToggleLike(context.Background(), 99, 7)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
	assert.Equal(t, "post_not_found", appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IncrementView(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "view_count"=view_count + $1 WHERE id = $2`)).
		WithArgs(1, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.IncrementView(context.Background(), 1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IncrementView_Missing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "view_count"=view_count + $1 WHERE id = $2`)).
		WithArgs(1, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.IncrementView(context.Background(), 42)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "post_not_found", appErr.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}
