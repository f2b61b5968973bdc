package extract

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type extractResponse struct {
	Addresses []Candidate `json:"addresses"`
}

func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	if !AllowedImageType(file.Header.Get("Content-Type")) {
		return fiber.NewError(fiber.StatusBadRequest, "Unsupported file type")
	}

	f, err := file.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to read upload")
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "unable to read upload")
	}

	addresses, err := h.service.Extract(c.Context(), data, file.Filename)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if addresses == nil {
		addresses = []Candidate{}
	}
	return c.JSON(extractResponse{Addresses: addresses})
}

// AllowedImageType gates uploads before they enter the pipeline;
// only JPEG and PNG feed the OCR and vision backends.
func AllowedImageType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}
