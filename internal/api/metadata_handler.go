package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/metadata"
)

type MetadataHandler struct {
	fetcher metadata.Fetcher
	log     zerolog.Logger
}

func NewMetadataHandler(fetcher metadata.Fetcher, log zerolog.Logger) *MetadataHandler {
	return &MetadataHandler{fetcher: fetcher, log: log}
}

type MetadataRequest struct {
	URL string `json:"url"`
}

// FetchMetadata handles POST /url-metadata.
func (h *MetadataHandler) FetchMetadata(c *gin.Context) {
	var req MetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		abortWithError(c, http.StatusBadRequest, "URL is required")
		return
	}
	target, err := metadata.NormalizeURL(req.URL)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid URL format")
		return
	}

	md, err := h.fetcher.Fetch(c.Request.Context(), target)
	if err != nil {
		h.log.Error().Err(err).Str("url", target).Msg("error fetching URL metadata")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch metadata",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, md)
}
