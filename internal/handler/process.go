package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/BitGladiator/image-queue-processor/internal/model"
	"github.com/BitGladiator/image-queue-processor/internal/service"
	"github.com/BitGladiator/image-queue-processor/pkg/response"
)

const maxUploadSize = 20 * 1024 * 1024 // 20MB

const defaultFilter = "grayscale"

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

type ProcessHandler struct {
	sync      *service.SyncService
	uploads   *service.UploadService
	validator *validator.Validate
}

func NewProcessHandler(syncSvc *service.SyncService, uploadSvc *service.UploadService, v *validator.Validate) *ProcessHandler {
	return &ProcessHandler{
		sync:      syncSvc,
		uploads:   uploadSvc,
		validator: v,
	}
}

// Submit handles POST /api/process
func (h *ProcessHandler) Submit(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return response.ValidationError(c, "Image file is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 20MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return response.ValidationError(c, "Unsupported image type. Supported: JPG, PNG, BMP, WEBP", map[string]interface{}{
			"extension": ext,
		})
	}

	filterType := c.FormValue("filter")
	if filterType == "" {
		filterType = defaultFilter
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open uploaded file")
	}
	defer f.Close()

	inputPath, err := h.uploads.Save(f, file.Filename)
	if err != nil {
		return response.ServiceError(c, "Failed to store uploaded file")
	}

	result, err := h.sync.Submit(c.Context(), file.Filename, filterType, inputPath)
	if err != nil {
		if errors.Is(err, model.ErrWorkerUnavailable) {
			return response.WorkerUnavailable(c, "Processing service unavailable, try again")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/jobs/:jobId
func (h *ProcessHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	view, err := h.sync.Reconcile(c.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrJobNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, model.ErrWorkerUnavailable):
			return response.WorkerUnavailable(c, "Processing service unavailable, try again")
		case errors.Is(err, model.ErrStoreWrite):
			return response.StoreError(c, "Failed to record job result")
		default:
			return response.ServiceError(c, err.Error())
		}
	}

	return response.OK(c, view)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
