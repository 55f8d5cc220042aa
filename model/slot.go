package model

import "time"

// SaveSlot is one key of the save store when it is backed by the database.
type SaveSlot struct {
	Key       string    `gorm:"column:slot_key;primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:mediumtext;not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (SaveSlot) TableName() string { return "save_slots" }
