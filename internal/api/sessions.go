package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"loader/internal/importer"
)

// Import принимает xlsx и загружает его в новую или указанную сессию
// POST /api/import
func (h *Handler) Import(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "файл не передан")
		return
	}

	var sess *importer.Session
	if id := c.PostForm("sessionId"); id != "" {
		if sess, err = h.sessions.Get(id); err != nil {
			writeError(c, err)
			return
		}
	} else {
		sess = h.sessions.Create()
	}

	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	if err := sess.Load(c.Request.Context(), fh.Filename, f); err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error(), "session": sess.Snapshot()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session": sess.Snapshot(),
		"rows":    sess.RowViews(0, defaultPageSize),
	})
}

// GetSession состояние сессии и страница строк
// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	offset, limit := pageParams(c)
	c.JSON(http.StatusOK, gin.H{
		"session": s.Snapshot(),
		"rows":    s.RowViews(offset, limit),
	})
}

// DeleteSession закрывает сессию
// DELETE /api/sessions/:id
func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		writeError(c, importer.ErrSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRows страница строк
// GET /api/sessions/:id/rows?offset=&limit=
func (h *Handler) ListRows(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	offset, limit := pageParams(c)
	c.JSON(http.StatusOK, gin.H{"rows": s.RowViews(offset, limit), "total": s.Snapshot().RowCount})
}

// ListErrorRows только строки с ошибками
// GET /api/sessions/:id/errors
func (h *Handler) ListErrorRows(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	rows := s.ErrorRows()
	c.JSON(http.StatusOK, gin.H{"rows": rows, "errorRows": len(rows)})
}

// ListEvents журнал событий сессии
// GET /api/sessions/:id/events
func (h *Handler) ListEvents(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": s.Events()})
}

// Validate проверяет все строки
// POST /api/sessions/:id/validate
func (h *Handler) Validate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	errs, err := s.Validate(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    len(errs) == 0,
		"errorCount": errs.Count(),
		"rows":       s.ErrorRows(),
	})
}

// EditCellRequest правка ячейки
type EditCellRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// EditCell меняет значение ячейки; :row отсчитывается с нуля
// PATCH /api/sessions/:id/rows/:row
func (h *Handler) EditCell(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		badRequest(c, "неверный номер строки")
		return
	}
	var req EditCellRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Field) == "" {
		badRequest(c, "укажите колонку и значение")
		return
	}

	res, err := s.EditCell(c.Request.Context(), index, req.Field, req.Value)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReloadReferences перечитывает справочники сессии
// POST /api/sessions/:id/references/reload
func (h *Handler) ReloadReferences(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	if err := s.ReloadReferences(c.Request.Context()); err != nil {
		c.JSON(http.StatusOK, gin.H{"session": s.Snapshot(), "warning": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.Snapshot()})
}

// AssignPorts назначает порты строкам без порта
// POST /api/sessions/:id/ports
func (h *Handler) AssignPorts(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	report, err := s.AssignPorts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Export отдает xlsx, если в данных нет ошибок
// POST /api/sessions/:id/export
func (h *Handler) Export(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	res, err := s.Export(c.Request.Context())
	if err != nil {
		h.refuse(c, s, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(res.FileName))
	c.Data(http.StatusOK, xlsxContentType, res.Content)
}

// SendRequest отправка на почту
type SendRequest struct {
	Email string `json:"email"`
}

// Send отправляет выгрузку на почту, если в данных нет ошибок
// POST /api/sessions/:id/send
func (h *Handler) Send(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "укажите адрес почты")
		return
	}
	if err := s.Send(c.Request.Context(), req.Email); err != nil {
		h.refuse(c, s, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true, "email": req.Email})
}

// refuse ответ на отказ выгрузки: при ошибках в данных возвращаются строки с ошибками
func (h *Handler) refuse(c *gin.Context, s *importer.Session, err error) {
	if errors.Is(err, importer.ErrExportBlocked) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "rows": s.ErrorRows()})
		return
	}
	writeError(c, err)
}

// contentDisposition заголовок вложения с именем файла в UTF-8
func contentDisposition(name string) string {
	fallback := "export.xlsx"
	ascii := true
	for _, r := range name {
		if r > 127 || r == '"' || r == '\\' {
			ascii = false
			break
		}
	}
	if ascii && name != "" {
		fallback = name
	}
	return "attachment; filename=\"" + fallback + "\"; filename*=UTF-8''" + url.PathEscape(name)
}
