package rest

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/engine"
)

// maxImportBytes bounds the body of an import request.
const maxImportBytes = 4 << 20

// SaveHandler serves persistence: save, export, import, reset and the
// journal.
type SaveHandler struct {
	eng    *engine.Engine
	logger *zap.Logger
}

// NewSaveHandler creates a SaveHandler.
func NewSaveHandler(eng *engine.Engine, logger *zap.Logger) *SaveHandler {
	return &SaveHandler{eng: eng, logger: logger}
}

// Save handles POST /api/save.
func (h *SaveHandler) Save(c *gin.Context) {
	if err := h.eng.Save(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.Info(c)
}

// Info handles GET /api/save/info.
func (h *SaveHandler) Info(c *gin.Context) {
	info, err := h.eng.SaveInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Export handles GET /api/save/export. The body is the save document.
func (h *SaveHandler) Export(c *gin.Context) {
	text, err := h.eng.ExportText(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="codepals-save.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(text))
}

// Import handles POST /api/save/import. The body is a save document as
// produced by Export.
func (h *SaveHandler) Import(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	if len(body) > maxImportBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "save too large"})
		return
	}
	snap, err := h.eng.ImportText(c.Request.Context(), string(body))
	if err != nil {
		writeError(c, err)
		return
	}
	h.logger.Info("save imported via api", zap.Int("bytes", len(body)))
	c.JSON(http.StatusOK, snap)
}

type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// Reset handles POST /api/save/reset. The body must be {"confirm": true}.
func (h *SaveHandler) Reset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Confirm {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reset requires {\"confirm\": true}"})
		return
	}
	if err := h.eng.Reset(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.eng.Snapshot())
}

// Journal handles GET /api/journal?limit=N.
func (h *SaveHandler) Journal(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, err := h.eng.Journal(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}
