package server

import (
	"io"

	"commune/internal/models"

	"github.com/gofiber/fiber/v2"
)

// readFilePart reads the "file" multipart part fully into memory and returns
// its bytes with the declared content type.
func readFilePart(c *fiber.Ctx) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return nil, "", models.NewValidationError("invalid_request")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, "", models.NewValidationError("invalid_request")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	return data, fileHeader.Header.Get("Content-Type"), nil
}

// UploadImage handles POST /api/posts/upload
// @Summary Upload a post image
// @Description Accepts PNG or JPEG (sniffed from content) and returns the stored image URL
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 201 {object} models.Envelope
// @Failure 415 {object} models.Envelope
// @Failure 422 {object} models.Envelope
// @Router /posts/upload [post]
func (s *Server) UploadImage(c *fiber.Ctx) error {
	data, declaredType, err := readFilePart(c)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	url, err := s.uploadService.SaveImage(c.UserContext(), data, declaredType)
	if err != nil {
		return models.RespondWithError(c, err)
	}

	return models.Respond(c, fiber.StatusCreated, "upload_success", fiber.Map{
		"image_url": url,
	})
}
