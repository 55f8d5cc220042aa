package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/engine"
)

// GameHandler serves the live session: snapshot, companions, zones and the
// host activity events.
type GameHandler struct {
	eng    *engine.Engine
	logger *zap.Logger
}

// NewGameHandler creates a GameHandler.
func NewGameHandler(eng *engine.Engine, logger *zap.Logger) *GameHandler {
	return &GameHandler{eng: eng, logger: logger}
}

// Snapshot handles GET /api/snapshot.
func (h *GameHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.eng.Snapshot())
}

// Companions handles GET /api/companions.
func (h *GameHandler) Companions(c *gin.Context) {
	list := h.eng.Companions()
	c.JSON(http.StatusOK, gin.H{"companions": list, "count": len(list)})
}

type catchRequest struct {
	SpeciesID int    `json:"species_id" binding:"required"`
	Nickname  string `json:"nickname"   binding:"max=32"`
}

// Catch handles POST /api/companions.
func (h *GameHandler) Catch(c *gin.Context) {
	var req catchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := h.eng.Catch(c.Request.Context(), req.SpeciesID, req.Nickname)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

type setActiveRequest struct {
	ID string `json:"id" binding:"required"`
}

// SetActive handles PUT /api/companions/active.
func (h *GameHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.eng.SetActiveCompanion(req.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "companion not found"})
		return
	}
	c.JSON(http.StatusOK, h.eng.Snapshot())
}

// Zones handles GET /api/zones.
func (h *GameHandler) Zones(c *gin.Context) {
	type zoneView struct {
		ID           string  `json:"id"`
		Name         string  `json:"name"`
		MinutesSpent float64 `json:"minutes_spent"`
		Encounters   int64   `json:"encounters"`
		Captures     int64   `json:"captures"`
		Unlocked     bool    `json:"unlocked"`
	}
	zones := h.eng.Zones()
	out := make([]zoneView, 0, len(zones))
	for _, z := range zones {
		out = append(out, zoneView{
			ID:           z.ZoneID,
			Name:         z.Name,
			MinutesSpent: z.MinutesSpent,
			Encounters:   z.Encounters,
			Captures:     z.Captures,
			Unlocked:     z.Unlocked,
		})
	}
	c.JSON(http.StatusOK, gin.H{"zones": out})
}

type changeZoneRequest struct {
	Zone string `json:"zone" binding:"required"`
}

// ChangeZone handles PUT /api/zone.
func (h *GameHandler) ChangeZone(c *gin.Context) {
	var req changeZoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changed, err := h.eng.ChangeZone(req.Zone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"zone": req.Zone, "changed": changed})
}

// Achievements handles GET /api/achievements.
func (h *GameHandler) Achievements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"achievements": h.eng.Achievements()})
}

type eventRequest struct {
	File string `json:"file"`
}

// Event handles POST /api/events/:kind, where kind is one of edit, document,
// save, file-created, commit or resume.
func (h *GameHandler) Event(c *gin.Context) {
	ctx := c.Request.Context()
	switch kind := c.Param("kind"); kind {
	case "edit":
		c.JSON(http.StatusOK, h.eng.OnEditEvent(ctx))
	case "document":
		var req eventRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.File == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
			return
		}
		c.JSON(http.StatusOK, h.eng.OnDocumentChange(ctx, req.File))
	case "save":
		c.JSON(http.StatusOK, h.eng.OnSaveEvent(ctx))
	case "file-created":
		c.JSON(http.StatusOK, h.eng.OnFileCreatedEvent(ctx))
	case "commit":
		h.eng.OnCommitEvent(ctx)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	case "resume":
		c.JSON(http.StatusOK, h.eng.ResumeFromBackground(ctx))
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown event " + kind})
	}
}
