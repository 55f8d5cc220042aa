package model

import (
	"time"

	"gorm.io/datatypes"
)

// Activity kinds written to the journal.
const (
	ActivityLevelUp        = "level_up"
	ActivityEvolutionReady = "evolution_ready"
	ActivityEncounter      = "encounter"
	ActivityCapture        = "capture"
	ActivityIdle           = "idle_progress"
	ActivitySave           = "save"
	ActivityImport         = "import"
	ActivityReset          = "reset"
	ActivityLoadWarning    = "load_warning"
)

// ActivityLog is one progression event kept for the host's history view.
type ActivityLog struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID     string         `gorm:"size:36" json:"trace_id,omitempty"`
	PlayerID    string         `gorm:"index:idx_activity_player;size:36;not null" json:"player_id"`
	CompanionID string         `gorm:"size:36" json:"companion_id,omitempty"`
	Kind        string         `gorm:"index:idx_activity_kind;size:32;not null" json:"kind"`
	Zone        string         `gorm:"size:32" json:"zone,omitempty"`
	Detail      datatypes.JSON `json:"detail"`
	CreatedAt   time.Time      `gorm:"index:idx_activity_created;autoCreateTime:milli" json:"created_at"`
}
