package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/service"
	"gymmanager/workout-app/internal/storage"
)

// MediaHandler serves media attachment and blob download.
type MediaHandler struct {
	workoutService service.WorkoutService
	files          storage.FileStorage
	log            zerolog.Logger
}

func NewMediaHandler(workoutService service.WorkoutService, files storage.FileStorage, log zerolog.Logger) *MediaHandler {
	return &MediaHandler{workoutService: workoutService, files: files, log: log}
}

// AddMedia handles a multipart upload with one or more "files" parts.
func (h *MediaHandler) AddMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		abortWithError(c, http.StatusBadRequest, "At least one file is required in the 'files' field")
		return
	}

	uploads := make([]service.MediaUpload, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", fh.Filename))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, service.MediaUpload{Name: fh.Filename, Content: f})
	}

	media, err := h.workoutService.AddMedia(c.Request.Context(), c.Param("id"), uploads)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, media)
}

func (h *MediaHandler) RemoveMedia(c *gin.Context) {
	if err := h.workoutService.RemoveMedia(c.Request.Context(), c.Param("id"), c.Param("mediaId")); err != nil {
		respondServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ServeFile streams a stored blob; display URLs of the local store point here.
func (h *MediaHandler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	rc, contentType, err := h.files.Download(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			abortWithError(c, http.StatusNotFound, "File not found")
			return
		}
		h.log.Warn().Err(err).Str("key", key).Msg("failed to open file")
		abortWithError(c, http.StatusBadRequest, "Invalid file key")
		return
	}
	defer rc.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "private, max-age=3600")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
