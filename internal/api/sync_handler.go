package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/offline"
)

// SyncHandler exposes the pending-action queue and connectivity state.
type SyncHandler struct {
	queue   *offline.Queue
	monitor *offline.Monitor
	log     zerolog.Logger
}

func NewSyncHandler(queue *offline.Queue, monitor *offline.Monitor, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{queue: queue, monitor: monitor, log: log}
}

type EnqueueActionRequest struct {
	Type    domain.ActionType `json:"type" binding:"required"`
	Payload json.RawMessage   `json:"payload"`
}

type SetStatusRequest struct {
	Online *bool `json:"online" binding:"required"`
}

func (h *SyncHandler) ListActions(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.List())
}

func (h *SyncHandler) EnqueueAction(c *gin.Context) {
	var req EnqueueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	action, err := h.queue.Enqueue(c.Request.Context(), req.Type, req.Payload)
	if err != nil {
		if errors.Is(err, offline.ErrUnknownActionType) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("failed to enqueue action")
		abortWithError(c, http.StatusInternalServerError, "Failed to store pending action")
		return
	}
	c.JSON(http.StatusCreated, action)
}

func (h *SyncHandler) RemoveAction(c *gin.Context) {
	if err := h.queue.Dequeue(c.Request.Context(), c.Param("id")); err != nil {
		h.log.Error().Err(err).Msg("failed to remove action")
		abortWithError(c, http.StatusInternalServerError, "Failed to remove pending action")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SyncHandler) ClearActions(c *gin.Context) {
	if err := h.queue.Clear(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("failed to clear actions")
		abortWithError(c, http.StatusInternalServerError, "Failed to clear pending actions")
		return
	}
	c.Status(http.StatusNoContent)
}

// Replay runs a replay immediately; the report says why when nothing ran.
func (h *SyncHandler) Replay(c *gin.Context) {
	report, err := h.queue.ReplayAll(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("replay interrupted")
	}
	c.JSON(http.StatusOK, report)
}

func (h *SyncHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

// SetStatus records connectivity reported by the client.
func (h *SyncHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	h.monitor.SetOnline(*req.Online)
	c.JSON(http.StatusOK, h.monitor.Status())
}
