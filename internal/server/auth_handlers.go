package server

import (
	"commune/internal/models"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary Register a new account
// @Description Create a user account with email, password, and nickname
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} models.Envelope
// @Failure 409 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var in service.SignupInput
	if err := s.parseBody(c, &in); err != nil {
		return nil
	}

	user, err := s.userService.Signup(c.UserContext(), in)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, "register_success", fiber.Map{
		"user_id": user.ID,
	})
}

// Login handles POST /api/auth/login
// @Summary Log in
// @Description Verify credentials and issue an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} models.Envelope
// @Failure 401 {object} models.Envelope
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, token, err := s.userService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "login_success", fiber.Map{
		"user_id":      user.ID,
		"access_token": token,
	})
}
