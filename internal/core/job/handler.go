package job

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"routeplan/internal/core/extract"
)

type Handler struct{ service *Service }

func NewHandler(service *Service) *Handler { return &Handler{service: service} }

type listResponse struct {
	Jobs []*Record `json:"jobs"`
}

// HandleCreate accepts a multipart image upload with an optional
// origin and returns the pending record with 202 Accepted.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	if !extract.AllowedImageType(file.Header.Get("Content-Type")) {
		return fiber.NewError(fiber.StatusBadRequest, "Unsupported file type")
	}

	origin, err := parseOrigin(c.FormValue("latitude"), c.FormValue("longitude"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
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

	record, err := h.service.Create(c.Context(), data, file.Filename, origin)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(record)
}

func (h *Handler) HandleGet(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("jobId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid job id")
	}
	record, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Job not found")
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(record)
}

func (h *Handler) HandleList(c *fiber.Ctx) error {
	records, err := h.service.List(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(listResponse{Jobs: records})
}

// parseOrigin requires both coordinates or neither.
func parseOrigin(latText, lonText string) (*Origin, error) {
	if latText == "" && lonText == "" {
		return nil, nil
	}
	if latText == "" || lonText == "" {
		return nil, errors.New("origin requires both latitude and longitude")
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return nil, errors.New("invalid latitude")
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return nil, errors.New("invalid longitude")
	}
	return &Origin{Latitude: lat, Longitude: lon}, nil
}
