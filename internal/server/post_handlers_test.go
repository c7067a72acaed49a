package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetPost(t *testing.T) {
	_, app := newTestServer(t)
	userID := registerUser(t, app, "alice@example.com", "alice")

	resp := doJSON(t, app, fiber.MethodPost, "/api/posts", userID, fiber.Map{
		"title":      "hello",
		"content":    "world",
		"board_type": "planner",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "create_post_success", env.Message)
	created := dataMap(t, env)
	assert.Equal(t, "planner", created["board_type"])

	postID := uint(created["post_id"].(float64))
	getResp := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", postID), 0, nil)
	require.Equal(t, fiber.StatusOK, getResp.StatusCode)

	getEnv := decodeEnvelope(t, getResp)
	assert.Equal(t, "get_post_success", getEnv.Message)
	assert.Equal(t, "hello", dataMap(t, getEnv)["title"])
}

func TestCreatePost_RequiresIdentity(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, fiber.MethodPost, "/api/posts", 0, fiber.Map{
		"title":   "hello",
		"content": "world",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetPost_NotFound(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/posts/999", 0, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "post_not_found", decodeEnvelope(t, resp).Message)
}

func TestListPosts_PaginationBounds(t *testing.T) {
	_, app := newTestServer(t)

	// Boundary values are accepted.
	for _, q := range []string{"page=1&limit=1", "page=1&limit=100"} {
		resp := doJSON(t, app, fiber.MethodGet, "/api/posts?"+q, 0, nil)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, q)
		resp.Body.Close()
	}

	// Out-of-range values fail before storage.
	for _, q := range []string{"page=0", "page=-1", "limit=0", "limit=101", "page=abc"} {
		resp := doJSON(t, app, fiber.MethodGet, "/api/posts?"+q, 0, nil)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode, q)
		assert.Equal(t, "invalid_request", decodeEnvelope(t, resp).Message, q)
	}
}

func TestListPosts(t *testing.T) {
	_, app := newTestServer(t)
	userID := registerUser(t, app, "alice@example.com", "alice")
	for i := 0; i < 3; i++ {
		createTestPost(t, app, userID)
	}

	resp := doJSON(t, app, fiber.MethodGet, "/api/posts?page=1&limit=2", 0, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "get_posts_success", env.Message)

	var data struct {
		Posts []json.RawMessage `json:"posts"`
		Total int               `json:"total"`
		Page  int               `json:"page"`
		Limit int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data.Total)
	assert.Len(t, data.Posts, 2)
	assert.Equal(t, 1, data.Page)
	assert.Equal(t, 2, data.Limit)
}

func TestUpdatePost_OwnershipPrecedence(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	other := registerUser(t, app, "other@example.com", "other")
	postID := createTestPost(t, app, owner)

	// Missing post: 404 even for a non-owner.
	resp := doJSON(t, app, fiber.MethodPatch, "/api/posts/999", other, fiber.Map{"title": "x"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "post_not_found", decodeEnvelope(t, resp).Message)

	// Existing post, wrong caller: 403.
	resp = doJSON(t, app, fiber.MethodPatch, fmt.Sprintf("/api/posts/%d", postID), other, fiber.Map{"title": "x"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", decodeEnvelope(t, resp).Message)

	// Owner succeeds, untouched fields survive.
	resp = doJSON(t, app, fiber.MethodPatch, fmt.Sprintf("/api/posts/%d", postID), owner, fiber.Map{"title": "renamed"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "update_post_success", env.Message)
	updated := dataMap(t, env)
	assert.Equal(t, "renamed", updated["title"])
	assert.Equal(t, "some content", updated["content"])
}

func TestToggleLike(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	liker := registerUser(t, app, "liker@example.com", "liker")
	postID := createTestPost(t, app, owner)
	path := fmt.Sprintf("/api/posts/%d/like", postID)

	resp := doJSON(t, app, fiber.MethodPost, path, liker, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, resp)
	assert.Equal(t, "toggle_like_success", env.Message)
	data := dataMap(t, env)
	assert.Equal(t, true, data["liked"])
	assert.EqualValues(t, 1, data["like_count"])

	resp = doJSON(t, app, fiber.MethodPost, path, liker, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	data = dataMap(t, decodeEnvelope(t, resp))
	assert.Equal(t, false, data["liked"])
	assert.EqualValues(t, 0, data["like_count"])
}

func TestIncrementViewEndpoint(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	postID := createTestPost(t, app, owner)
	path := fmt.Sprintf("/api/posts/%d/view", postID)

	for want := 1; want <= 2; want++ {
		resp := doJSON(t, app, fiber.MethodPatch, path, 0, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		env := decodeEnvelope(t, resp)
		assert.Equal(t, "increment_view_success", env.Message)
		assert.EqualValues(t, want, dataMap(t, env)["view_count"])
	}

	resp := doJSON(t, app, fiber.MethodPatch, "/api/posts/999/view", 0, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDeletePost_ThenGone(t *testing.T) {
	_, app := newTestServer(t)
	owner := registerUser(t, app, "owner@example.com", "owner")
	liker := registerUser(t, app, "liker@example.com", "liker")
	postID := createTestPost(t, app, owner)

	likeResp := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), liker, nil)
	require.Equal(t, fiber.StatusOK, likeResp.StatusCode)
	likeResp.Body.Close()

	delResp := doJSON(t, app, fiber.MethodDelete, fmt.Sprintf("/api/posts/%d", postID), owner, nil)
	require.Equal(t, fiber.StatusOK, delResp.StatusCode)
	assert.Equal(t, "delete_post_success", decodeEnvelope(t, delResp).Message)

	getResp := doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", postID), 0, nil)
	assert.Equal(t, fiber.StatusNotFound, getResp.StatusCode)
	assert.Equal(t, "post_not_found", decodeEnvelope(t, getResp).Message)

	likeAgain := doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/like", postID), liker, nil)
	assert.Equal(t, fiber.StatusNotFound, likeAgain.StatusCode)
}

func TestParseID_Invalid(t *testing.T) {
	_, app := newTestServer(t)

	resp := doJSON(t, app, fiber.MethodGet, "/api/posts/abc", 0, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_request", decodeEnvelope(t, resp).Message)
}
