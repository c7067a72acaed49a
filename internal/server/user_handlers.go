package server

import (
	"commune/internal/models"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/me
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 401 {object} models.Envelope
// @Router /users/me [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "get_profile_success", user)
}

// UpdateNickname handles PATCH /api/users/nickname
// @Summary Change nickname
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{nickname=string} true "New nickname"
// @Success 200 {object} models.Envelope{data=models.User}
// @Failure 422 {object} models.Envelope
// @Router /users/nickname [patch]
func (s *Server) UpdateNickname(c *fiber.Ctx) error {
	var req struct {
		Nickname string `json:"nickname"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateNickname(c.UserContext(), currentUserID(c), req.Nickname)
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "update_profile_success", user)
}

// UploadProfileImage handles POST /api/users/profile/upload
// @Summary Upload a profile image
// @Description Accepts PNG or JPEG, stores it, and points the profile at the stored URL
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 200 {object} models.Envelope
// @Failure 415 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /users/profile/upload [post]
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	data, declaredType, err := readFilePart(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	url, err := s.uploadService.SaveImage(c.UserContext(), data, declaredType)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	if _, err := s.userService.UpdateProfileImage(c.UserContext(), currentUserID(c), url); err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusOK, "upload_success", fiber.Map{
		"image_url": url,
	})
}

// UpdatePassword handles PATCH /api/users/password
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param request body object{old_password=string,new_password=string,password_check=string} true "Password change"
// @Success 200 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /users/password [patch]
func (s *Server) UpdatePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword   string `json:"old_password"`
		NewPassword   string `json:"new_password"`
		PasswordCheck string `json:"password_check"`
	}
	if err := s.parseBody(c, &req); err != nil {
		return nil
	}

	err := s.userService.UpdatePassword(c.UserContext(), service.UpdatePasswordInput{
		UserID:        currentUserID(c),
		OldPassword:   req.OldPassword,
		NewPassword:   req.NewPassword,
		PasswordCheck: req.PasswordCheck,
	})
	if err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "update_password_success", nil)
}

// DeleteAccount handles DELETE /api/users/profile
// @Summary Delete own account
// @Description Removes the account and cascades the user's posts, comments, and likes
// @Tags users
// @Produce json
// @Success 200 {object} models.Envelope
// @Failure 404 {object} models.Envelope
// @Router /users/profile [delete]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.userService.DeleteAccount(c.UserContext(), currentUserID(c)); err != nil {
		return models.RespondWithError(c, err)
	}
	return models.Respond(c, fiber.StatusOK, "delete_user_success", nil)
}
