package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/service"
)

// respondServiceError maps service errors onto HTTP status codes. Unknown
// errors are logged and reported as a generic 500.
func respondServiceError(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrValidationFailed):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrWorkoutNotFound),
		errors.Is(err, service.ErrMediaNotFound),
		errors.Is(err, service.ErrLinkNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrCategoryInUse):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnsupportedMedia):
		abortWithError(c, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, service.ErrMediaTooLarge):
		abortWithError(c, http.StatusRequestEntityTooLarge, err.Error())
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
