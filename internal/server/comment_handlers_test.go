package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"commune/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	commenter := registerUser(t, app, "commenter@example.com", "commenter")
	postID := createTestPost(t, app, owner)

	resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), commenter, fiber.Map{
		"content": "nice post",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "create_comment_success", env.Message)
	assert.Equal(t, "nice post", dataMap(t, env)["content"])
}

func TestCreateComment_MissingPostIs404(t *testing.T) {
	_, app := newTestServer(t)
	user := registerUser(t, app, "user@example.com", "user")

	resp := doJSON(t, app, fiber.MethodPost, "/api/posts/999/comments", user, fiber.Map{
		"content": "hello?",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "post_not_found", decodeEnvelope(t, resp).Message)
}

func TestCreateComment_EmptyContentPolicy(t *testing.T) {
	t.Run("rejected by default", func(t *testing.T) {
		_, app := newTestServer(t)
		user := registerUser(t, app, "user@example.com", "user")
		postID := createTestPost(t, app, user)

		resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), user, fiber.Map{
			"content": "   ",
		})
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "invalid_request", decodeEnvelope(t, resp).Message)
	})

	t.Run("allowed when flag is on", func(t *testing.T) {
		_, app := newTestServer(t, func(cfg *config.Config) {
			cfg.FeatureFlags = "allow_empty_comments=on"
		})
		user := registerUser(t, app, "user@example.com", "user")
		postID := createTestPost(t, app, user)

		resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), user, fiber.Map{
			"content": "",
		})
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})
}

func TestListComments(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	postID := createTestPost(t, app, owner)

	for _, content := range []string{"first", "second"} {
		resp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), owner, fiber.Map{
			"content": content,
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d/comments", postID), 0, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "get_comments_success", env.Message)

	var comments []struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &comments))
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "second", comments[1].Content)
}

func TestListComments_MissingPost(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/posts/999/comments", 0, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateComment_ScopingAndOwnership(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	other := registerUser(t, app, "other@example.com", "other")
	postID := createTestPost(t, app, owner)
	otherPostID := createTestPost(t, app, owner)

	createResp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), owner, fiber.Map{
		"content": "original",
	})
	require.Equal(t, fiber.StatusCreated, createResp.StatusCode)
	commentID := uint(dataMap(t, decodeEnvelope(t, createResp))["comment_id"].(float64))

	// Addressed through the wrong post: 404, not 403.
	resp := doJSON(t, app, fiber.MethodPut,
		fmt.Sprintf("/api/posts/%d/comments/%d", otherPostID, commentID), other, fiber.Map{"content": "edited"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "comment_not_found", decodeEnvelope(t, resp).Message)

	// Right post, wrong caller: 403.
	resp = doJSON(t, app, fiber.MethodPut,
		fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID), other, fiber.Map{"content": "edited"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Owner succeeds.
	resp = doJSON(t, app, fiber.MethodPut,
		fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID), owner, fiber.Map{"content": "edited"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "update_comment_success", env.Message)
	assert.Equal(t, "edited", dataMap(t, env)["content"])
}

func TestDeleteComment(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	postID := createTestPost(t, app, owner)

	createResp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/comments", postID), owner, fiber.Map{
		"content": "bye",
	})
	require.Equal(t, fiber.StatusCreated, createResp.StatusCode)
	commentID := uint(dataMap(t, decodeEnvelope(t, createResp))["comment_id"].(float64))
	path := fmt.Sprintf("/api/posts/%d/comments/%d", postID, commentID)

	resp := doJSON(t, app, fiber.MethodDelete, path, owner, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "delete_comment_success", decodeEnvelope(t, resp).Message)

	resp = doJSON(t, app, fiber.MethodDelete, path, owner, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "comment_not_found", decodeEnvelope(t, resp).Message)
}
