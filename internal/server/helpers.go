package server

import (
	"errors"
	"strconv"

	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// the ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageLimit   = 20
	maxPaginationLimit = 100
)

// Pagination holds validated page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// parsePagination enforces the strict window: page >= 1, limit in [1,100].
// Out-of-range values are rejected with 422 before any storage access.
// On failure it writes the response and returns errResponseWritten.
func (s *Server) parsePagination(c *fiber.Ctx) (Pagination, error) {
	page, err := parseQueryInt(c, "page", 1)
	if err != nil || page < 1 {
		_ = models.RespondWithError(c, models.NewValidationError("invalid_request"))
		return Pagination{}, errResponseWritten
	}

	limit, err := parseQueryInt(c, "limit", defaultPageLimit)
	if err != nil || limit < 1 || limit > maxPaginationLimit {
		_ = models.RespondWithError(c, models.NewValidationError("invalid_request"))
		return Pagination{}, errResponseWritten
	}

	return Pagination{Page: page, Limit: limit}, nil
}

// parseQueryInt parses an integer query parameter, distinguishing "absent"
// (default applies) from "present but not an integer" (an error).
func parseQueryInt(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// parseID extracts a route parameter as a positive uint. On failure it
// writes a 422 response and returns errResponseWritten; callers should
// check: if err != nil { return nil }.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("invalid_request"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// parseBody decodes the JSON request body into dest. On failure it writes a
// 422 response and returns errResponseWritten.
func (s *Server) parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("invalid_request"))
		return errResponseWritten
	}
	return nil
}

// currentUserID returns the identity stored by IdentityRequired. Routes
// without that middleware must not call this.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}
