package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"loader/internal/autofill"
	"loader/internal/model"
	"loader/internal/netcode"
	"loader/internal/validation"
)

// CardRequest карточка одной точки учета
type CardRequest struct {
	SessionID string    `json:"sessionId,omitempty"`
	Values    model.Row `json:"values"`
}

// ValidateCard автозаполняет и проверяет карточку по той же схеме, что и таблицу
// POST /api/cards/validate
func (h *Handler) ValidateCard(c *gin.Context) {
	var req CardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "неверный запрос")
		return
	}
	if req.Values == nil {
		req.Values = model.Row{}
	}

	ctx := c.Request.Context()
	cache, err := h.cacheFor(ctx, req.SessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if settlement := strings.TrimSpace(req.Values[model.FieldSettlement]); settlement != "" {
		_ = cache.EnsureStreets(ctx, []string{settlement})
	}

	row := autofill.All([]model.Row{req.Values}, autofill.Data{
		Devices:     cache.Devices(),
		IPAddresses: cache.IPAddresses(),
		Protocols:   cache.Protocols(),
	})[0]
	errs := validation.Build(cache, h.codec).Validate(row)
	if errs == nil {
		errs = model.FieldErrors{}
	}
	c.JSON(http.StatusOK, gin.H{"valid": len(errs) == 0, "values": row, "errors": errs})
}

// CheckRequest проверка ввода по ходу набора
type CheckRequest struct {
	Field  string    `json:"field"`
	Value  string    `json:"value"`
	Prev   string    `json:"prev,omitempty"`
	Values model.Row `json:"values,omitempty"`
}

// CheckInput фильтр нажатий: можно ли принять значение; даты форматируются
// POST /api/cards/check
func (h *Handler) CheckInput(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Field == "" {
		badRequest(c, "укажите колонку")
		return
	}

	registry := validation.DefaultRegistry()
	if rule, ok := registry.Rule(req.Field); ok && rule.Category == validation.CatDateFormat {
		value, ok := validation.FormatDateInput(req.Prev, req.Value)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "value": value})
		return
	}
	ok := registry.Accept(req.Field, req.Value, req.Values)
	value := req.Value
	if !ok {
		value = req.Prev
	}
	c.JSON(http.StatusOK, gin.H{"ok": ok, "value": value})
}

// NetcodeRequest сетевой код
type NetcodeRequest struct {
	Value string `json:"value"`
}

// ValidateNetcode проверяет и форматирует сетевой код
// POST /api/netcode/validate
func (h *Handler) ValidateNetcode(c *gin.Context) {
	var req NetcodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "неверный запрос")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"formatted": netcode.Format(req.Value),
		"result":    h.codec.Validate(req.Value),
	})
}
