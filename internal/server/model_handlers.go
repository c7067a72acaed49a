package server

import (
	"context"
	"strings"
	"time"

	"commune/internal/middleware"
	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// The model proxy endpoints exist solely to reach the model service, so a
// failed call surfaces as 503 model_service_unavailable rather than 500.

type textRequest struct {
	Text string `json:"text"`
}

// parseTextBody decodes a {text} body and rejects blank text.
func (s *Server) parseTextBody(c *fiber.Ctx) (string, error) {
	var req textRequest
	if err := s.parseBody(c, &req); err != nil {
		return "", errResponseWritten
	}
	if strings.TrimSpace(req.Text) == "" {
		_ = models.RespondWithError(c, models.NewValidationError("invalid_request"))
		return "", errResponseWritten
	}
	return req.Text, nil
}

// ModelSentiment handles POST /api/model/sentiment
// @Summary Analyze sentiment
// @Tags model
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /model/sentiment [post]
func (s *Server) ModelSentiment(c *fiber.Ctx) error {
	text, err := s.parseTextBody(c)
	if err != nil {
		return nil
	}

	sentiment, err := s.model.AnalyzeSentiment(c.UserContext(), text)
	if err != nil {
		return models.RespondWithError(c, models.NewUnavailableError(err))
	}
	return models.Respond(c, fiber.StatusOK, "sentiment_success", fiber.Map{
		"label":      sentiment.Label,
		"confidence": sentiment.Score,
	})
}

// ModelSummarize handles POST /api/model/summarize
// @Summary Summarize text
// @Tags model
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /model/summarize [post]
func (s *Server) ModelSummarize(c *fiber.Ctx) error {
	text, err := s.parseTextBody(c)
	if err != nil {
		return nil
	}

	summary, err := s.model.Summarize(c.UserContext(), text)
	if err != nil {
		return models.RespondWithError(c, models.NewUnavailableError(err))
	}
	return models.Respond(c, fiber.StatusOK, "summarize_success", fiber.Map{
		"summary":         summary,
		"original_length": len([]rune(text)),
		"summary_length":  len([]rune(summary)),
	})
}

// ModelTags handles POST /api/model/tags
// @Summary Suggest tags
// @Tags model
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /model/tags [post]
func (s *Server) ModelTags(c *fiber.Ctx) error {
	text, err := s.parseTextBody(c)
	if err != nil {
		return nil
	}

	tags, err := s.model.AutoTag(c.UserContext(), text)
	if err != nil {
		return models.RespondWithError(c, models.NewUnavailableError(err))
	}
	return models.Respond(c, fiber.StatusOK, "tags_success", fiber.Map{
		"tags": tags,
	})
}

// ModelEmbedding handles POST /api/model/embedding
// @Summary Embed text
// @Tags model
// @Accept json
// @Produce json
// @Param request body object{text=string} true "Text"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /model/embedding [post]
func (s *Server) ModelEmbedding(c *fiber.Ctx) error {
	text, err := s.parseTextBody(c)
	if err != nil {
		return nil
	}

	vector, err := s.model.Embed(c.UserContext(), text)
	if err != nil {
		return models.RespondWithError(c, models.NewUnavailableError(err))
	}
	return models.Respond(c, fiber.StatusOK, "embedding_success", fiber.Map{
		"vector": vector,
		"dim":    len(vector),
	})
}

// ModelChat handles POST /api/model/chat
// @Summary Chat with the model
// @Tags model
// @Accept json
// @Produce json
// @Param request body object{message=string,history=[]string} true "Chat turn"
// @Success 200 {object} models.Envelope
// @Failure 503 {object} models.Envelope
// @Router /model/chat [post]
func (s *Server) ModelChat(c *fiber.Ctx) error {
	var req struct {
		Message string   `json:"message"`
		History []string `json:"history"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}
	if strings.TrimSpace(req.Message) == "" {
		return models.RespondWithError(c, models.NewValidationError("invalid_request"))
	}

	prompt := req.Message
	if len(req.History) > 0 {
		prompt = strings.Join(append(req.History, req.Message), "\n")
	}

	reply, err := s.model.Chat(c.UserContext(), prompt)
	if err != nil {
		return models.RespondWithError(c, models.NewUnavailableError(err))
	}
	return models.Respond(c, fiber.StatusOK, "chat_success", fiber.Map{
		"reply": reply,
	})
}

// upgradeChatSocket gates GET /api/model/chat/ws to WebSocket upgrades.
func (s *Server) upgradeChatSocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// chatSocketHandler streams chat replies over a WebSocket. Each incoming
// {message} produces a sequence of {chunk, done:false} frames and a final
// {done:true}; a model failure closes the turn with an error frame instead.
func (s *Server) chatSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		sessionID := uuid.NewString()
		userID, _ := conn.Locals("userID").(uint)

		for {
			var req struct {
				Message string `json:"message"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if strings.TrimSpace(req.Message) == "" {
				_ = conn.WriteJSON(fiber.Map{
					"session_id": sessionID,
					"error":      "invalid_request",
					"done":       true,
				})
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			err := s.model.ChatStream(ctx, req.Message, func(chunk string) error {
				return conn.WriteJSON(fiber.Map{
					"session_id": sessionID,
					"chunk":      chunk,
					"done":       false,
				})
			})
			cancel()

			if err != nil {
				middleware.Logger.Warn("chat stream failed",
					"session_id", sessionID, "user_id", userID, "error", err)
				_ = conn.WriteJSON(fiber.Map{
					"session_id": sessionID,
					"error":      "model_service_unavailable",
					"done":       true,
				})
				continue
			}

			if err := conn.WriteJSON(fiber.Map{"session_id": sessionID, "done": true}); err != nil {
				return
			}
		}
	})
}
