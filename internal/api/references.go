package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"loader/internal/match"
	"loader/internal/model"
	"loader/internal/reference"
)

// cacheFor справочники сессии либо свежий кэш из базы, если сессия не указана
func (h *Handler) cacheFor(ctx context.Context, sessionID string) (*reference.Cache, error) {
	if sessionID != "" {
		s, err := h.sessions.Get(sessionID)
		if err != nil {
			return nil, err
		}
		return s.Cache(), nil
	}
	cache := reference.NewCache(h.store)
	if err := cache.LoadAll(ctx); err != nil {
		log.Printf("справочники для карточки: %v", err)
	}
	return cache, nil
}

// Options похожие значения справочника для выпадающего списка
// GET /api/options?list=&q=&settlement=&session=
func (h *Handler) Options(c *gin.Context) {
	list := model.ListID(c.Query("list"))
	if list == "" {
		badRequest(c, "укажите справочник")
		return
	}
	cache, err := h.cacheFor(c.Request.Context(), c.Query("session"))
	if err != nil {
		writeError(c, err)
		return
	}

	var names []string
	if list == "streets" {
		settlement := strings.TrimSpace(c.Query("settlement"))
		if settlement == "" {
			c.JSON(http.StatusOK, gin.H{"options": []string{}})
			return
		}
		if err := cache.EnsureStreets(c.Request.Context(), []string{settlement}); err != nil {
			log.Printf("улицы %q: %v", settlement, err)
		}
		names, _ = cache.Streets(settlement)
	} else {
		var loaded bool
		if names, loaded = cache.Names(list); !loaded {
			if err := cache.LoadAll(c.Request.Context()); err != nil {
				log.Printf("справочник %s: %v", list, err)
			}
			names, _ = cache.Names(list)
		}
	}

	options := match.SimilarOptions(c.Query("q"), names)
	if options == nil {
		options = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// ListReference содержимое справочника из базы
// GET /api/references/:kind
func (h *Handler) ListReference(c *gin.Context) {
	ctx := c.Request.Context()
	kind := c.Param("kind")

	var (
		data interface{}
		err  error
	)
	switch model.ListID(kind) {
	case "streets":
		var settlement model.RefItem
		settlement, err = h.store.SettlementByName(ctx, c.Query("settlement"))
		if err == nil {
			data, err = h.store.ListStreets(ctx, settlement.ID)
		}
	case model.ListDeviceModels:
		data, err = h.store.ListDevices(ctx)
	case model.ListIPAddresses:
		data, err = h.store.ListIPAddresses(ctx)
	case model.ListProtocols:
		data, err = h.store.ListProtocols(ctx)
	default:
		if !isNamedList(model.ListID(kind)) {
			c.JSON(http.StatusNotFound, gin.H{"error": "неизвестный справочник: " + kind})
			return
		}
		data, err = h.store.ListItems(ctx, model.ListID(kind))
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": data})
}

func isNamedList(id model.ListID) bool {
	for _, l := range model.NamedLists {
		if l == id {
			return true
		}
	}
	return false
}

// CreateReferenceRequest новый элемент справочника
type CreateReferenceRequest struct {
	Name       string `json:"name"`
	Settlement string `json:"settlement,omitempty"`
}

// CreateSettlement добавляет населенный пункт
// POST /api/references/settlements
func (h *Handler) CreateSettlement(c *gin.Context) {
	h.createItem(c, model.ListSettlements, h.store.CreateSettlement)
}

// CreateSubstation добавляет номер ПС
// POST /api/references/substations
func (h *Handler) CreateSubstation(c *gin.Context) {
	h.createItem(c, model.ListSubstationNumbers, h.store.CreateSubstation)
}

func (h *Handler) createItem(c *gin.Context, list model.ListID, create func(context.Context, string) (model.RefItem, error)) {
	var req CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "неверный запрос")
		return
	}
	item, err := create(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	// новые значения сразу видны во всех открытых сессиях
	for _, s := range h.sessions.Sessions() {
		s.Cache().AddItem(list, item)
	}
	c.JSON(http.StatusCreated, item)
}

// CreateStreet добавляет улицу в населенный пункт
// POST /api/references/streets
func (h *Handler) CreateStreet(c *gin.Context) {
	var req CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Settlement) == "" {
		badRequest(c, "укажите населенный пункт и улицу")
		return
	}
	ctx := c.Request.Context()
	settlement, err := h.store.SettlementByName(ctx, req.Settlement)
	if err != nil {
		writeError(c, err)
		return
	}
	item, err := h.store.CreateStreet(ctx, settlement.ID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	for _, s := range h.sessions.Sessions() {
		s.Cache().AddStreet(settlement.Name, item.Name)
	}
	c.JSON(http.StatusCreated, item)
}

// ListPorts занятые порты
// GET /api/ports
func (h *Handler) ListPorts(c *gin.Context) {
	ports, err := h.store.ListPorts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ports": ports})
}

// NextPort следующий свободный порт
// GET /api/ports/next
func (h *Handler) NextPort(c *gin.Context) {
	port, err := h.store.NextPort(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"port": port})
}

// CreatePort резервирует порт вручную
// POST /api/ports
func (h *Handler) CreatePort(c *gin.Context) {
	var req model.Port
	if err := c.ShouldBindJSON(&req); err != nil || req.PortNumber <= 0 || req.PortNumber > 65535 {
		badRequest(c, "неверный номер порта")
		return
	}
	if err := h.store.CreatePort(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ListImportLogs журнал загрузок
// GET /api/import-logs?limit=
func (h *Handler) ListImportLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.store.ListImportLogs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
