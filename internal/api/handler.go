// Package api HTTP обработчики загрузчика точек учета
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"loader/internal/importer"
	"loader/internal/mailer"
	"loader/internal/netcode"
	"loader/internal/store"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultPageSize = 100
)

// Options зависимости обработчика
type Options struct {
	Store       *store.Store
	Sessions    *importer.Registry
	Codec       *netcode.Codec
	MaxUpload   int64 // байт; 0 без ограничения
	MailEnabled bool
}

// Handler API обработчик
type Handler struct {
	store       *store.Store
	sessions    *importer.Registry
	codec       *netcode.Codec
	maxUpload   int64
	mailEnabled bool
}

// NewHandler создает обработчик
func NewHandler(opts Options) *Handler {
	codec := opts.Codec
	if codec == nil {
		codec = netcode.NewCodec(nil)
	}
	return &Handler{
		store:       opts.Store,
		sessions:    opts.Sessions,
		codec:       codec,
		maxUpload:   opts.MaxUpload,
		mailEnabled: opts.MailEnabled,
	}
}

// RegisterRoutes регистрирует маршруты
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)
	router.GET("/import-logs", h.ListImportLogs)

	// загрузка файла и работа с сессией
	router.POST("/import", h.Import)
	router.GET("/sessions/:id", h.GetSession)
	router.DELETE("/sessions/:id", h.DeleteSession)
	router.GET("/sessions/:id/rows", h.ListRows)
	router.GET("/sessions/:id/errors", h.ListErrorRows)
	router.GET("/sessions/:id/events", h.ListEvents)
	router.POST("/sessions/:id/validate", h.Validate)
	router.PATCH("/sessions/:id/rows/:row", h.EditCell)
	router.POST("/sessions/:id/references/reload", h.ReloadReferences)
	router.POST("/sessions/:id/ports", h.AssignPorts)
	router.POST("/sessions/:id/export", h.Export)
	router.POST("/sessions/:id/send", h.Send)

	// справочники
	router.GET("/options", h.Options)
	router.GET("/references/:kind", h.ListReference)
	router.POST("/references/settlements", h.CreateSettlement)
	router.POST("/references/streets", h.CreateStreet)
	router.POST("/references/substations", h.CreateSubstation)

	// порты
	router.GET("/ports", h.ListPorts)
	router.GET("/ports/next", h.NextPort)
	router.POST("/ports", h.CreatePort)

	// карточка точки учета
	router.POST("/cards/validate", h.ValidateCard)
	router.POST("/cards/check", h.CheckInput)
	router.POST("/netcode/validate", h.ValidateNetcode)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, importer.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, importer.ErrStale), errors.Is(err, importer.ErrNoRows):
		return http.StatusConflict
	case errors.Is(err, importer.ErrExportBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrParse), errors.Is(err, importer.ErrRowOutOfRange),
		errors.Is(err, mailer.ErrInvalidAddress), errors.Is(err, store.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrPortsUnavailable), errors.Is(err, importer.ErrDeliveryUnavailable),
		errors.Is(err, mailer.ErrNotConfigured):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (h *Handler) session(c *gin.Context) (*importer.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

func pageParams(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.Query("offset"))
	limit = defaultPageSize
	if v, err := strconv.Atoi(c.Query("limit")); err == nil {
		limit = v
	}
	return offset, limit
}
