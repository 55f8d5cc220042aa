package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kasuganosora/codepals/model"
)

// DBStore keeps slots as rows of the save_slots table.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var slot model.SaveSlot
	err := s.db.WithContext(ctx).Where("slot_key = ?", key).First(&slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(slot.Value), nil
}

// Set inserts or replaces the row for key.
func (s *DBStore) Set(ctx context.Context, key string, value []byte) error {
	slot := model.SaveSlot{Key: key, Value: string(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&slot).Error
}

func (s *DBStore) Del(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&model.SaveSlot{}).Error
}
