package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusResponse состояние сервиса
type StatusResponse struct {
	Sessions       int    `json:"sessions"`
	Seeded         bool   `json:"seeded"`
	SeededAt       string `json:"seededAt,omitempty"`
	MailEnabled    bool   `json:"mailEnabled"`
	NextPort       int    `json:"nextPort,omitempty"`
	LastImportTime string `json:"lastImportTime,omitempty"`
}

// GetStatus состояние сервиса
// GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()
	resp := StatusResponse{
		Sessions:    h.sessions.Len(),
		MailEnabled: h.mailEnabled,
	}

	resp.SeededAt = h.store.SeededAt(ctx)
	resp.Seeded = resp.SeededAt != ""
	if port, err := h.store.NextPort(ctx); err == nil {
		resp.NextPort = port
	}
	if logs, err := h.store.ListImportLogs(ctx, 1); err == nil && len(logs) > 0 {
		resp.LastImportTime = logs[0].CreatedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}
