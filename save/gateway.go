package save

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/game/session"
	"github.com/kasuganosora/codepals/store"
)

const (
	PrimaryKey        = "codepals.gameData"
	BackupKey         = "codepals.gameDataBackup"
	backupIndexKey    = BackupKey + ".index"
	defaultMaxBackups = 5
)

// Info summarizes what the stores currently hold.
type Info struct {
	HasPrimary bool   `json:"has_primary"`
	HasBackup  bool   `json:"has_backup"`
	LastSaved  string `json:"last_saved,omitempty"`
}

// Gateway reads and writes save records. Every save goes to both the primary
// and the backup store; the backup is read only when the primary is absent.
type Gateway struct {
	primary    store.Store
	backup     store.Store
	now        func() time.Time
	maxBackups int
	logger     *zap.Logger
}

func NewGateway(primary, backup store.Store, maxBackups int, now func() time.Time, logger *zap.Logger) *Gateway {
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{primary: primary, backup: backup, now: now, maxBackups: maxBackups, logger: logger}
}

// Save serializes s and writes it to both slots.
func (g *Gateway) Save(ctx context.Context, s *session.Session) (*Record, error) {
	r := Serialize(s, g.now())
	if err := g.Write(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Write stores r in the primary slot, then the backup slot.
func (g *Gateway) Write(ctx context.Context, r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("save: encode record: %w", err)
	}
	if err := g.primary.Set(ctx, PrimaryKey, data); err != nil {
		return &StoreError{Op: "set", Key: PrimaryKey, Err: err}
	}
	if err := g.backup.Set(ctx, BackupKey, data); err != nil {
		return &StoreError{Op: "set", Key: BackupKey, Err: err}
	}
	return nil
}

// readRaw returns the primary slot, or the backup slot when the primary is
// absent. A primary that exists but is unreadable is not replaced by the backup.
func (g *Gateway) readRaw(ctx context.Context) ([]byte, string, error) {
	data, err := g.primary.Get(ctx, PrimaryKey)
	if err == nil {
		return data, PrimaryKey, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, PrimaryKey, &StoreError{Op: "get", Key: PrimaryKey, Err: err}
	}
	data, err = g.backup.Get(ctx, BackupKey)
	if err == nil {
		return data, BackupKey, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrNoSave
	}
	return nil, BackupKey, &StoreError{Op: "get", Key: BackupKey, Err: err}
}

// Load reads, validates, migrates and deserializes the saved game.
// It returns ErrNoSave when neither slot holds data.
func (g *Gateway) Load(ctx context.Context) (*session.Session, error) {
	data, key, err := g.readRaw(ctx)
	if err != nil {
		return nil, err
	}
	r, err := Parse(data)
	if err != nil {
		var pe *ImportParseError
		if errors.As(err, &pe) {
			err = &ValidationError{Reason: "slot does not hold JSON: " + pe.Err.Error()}
		}
		return nil, err
	}
	if r.Version != CurrentVersion {
		g.logger.Info("migrating save", zap.String("from", r.Version), zap.String("to", CurrentVersion))
		Migrate(r, CurrentVersion)
	}
	s, err := Deserialize(r, g.now)
	if err != nil {
		return nil, err
	}
	if key == BackupKey {
		g.logger.Warn("primary save slot empty, loaded backup")
	}
	return s, nil
}

// ExportText returns the primary slot as indented JSON.
func (g *Gateway) ExportText(ctx context.Context) (string, error) {
	data, err := g.primary.Get(ctx, PrimaryKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoSave
	}
	if err != nil {
		return "", &StoreError{Op: "get", Key: PrimaryKey, Err: err}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", &ValidationError{Reason: "slot does not hold JSON: " + err.Error()}
	}
	return buf.String(), nil
}

// ImportText validates text and, only when it is a usable save, writes it to
// both slots. The returned session is the imported game.
func (g *Gateway) ImportText(ctx context.Context, text string) (*session.Session, error) {
	r, err := Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	if r.Version != CurrentVersion {
		Migrate(r, CurrentVersion)
	}
	s, err := Deserialize(r, g.now)
	if err != nil {
		return nil, err
	}
	if err := g.Write(ctx, r); err != nil {
		return nil, err
	}
	return s, nil
}

// Clear deletes both slots.
func (g *Gateway) Clear(ctx context.Context) error {
	if err := g.primary.Del(ctx, PrimaryKey); err != nil {
		return &StoreError{Op: "del", Key: PrimaryKey, Err: err}
	}
	if err := g.backup.Del(ctx, BackupKey); err != nil {
		return &StoreError{Op: "del", Key: BackupKey, Err: err}
	}
	return nil
}

// CreateBackup copies the raw primary slot to a timestamped key in the
// primary store, keeping at most maxBackups copies. It returns the new key,
// or "" when there was nothing to copy.
func (g *Gateway) CreateBackup(ctx context.Context) (string, error) {
	data, err := g.primary.Get(ctx, PrimaryKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", &StoreError{Op: "get", Key: PrimaryKey, Err: err}
	}

	key := BackupKey + "_" + strconv.FormatInt(g.now().UnixMilli(), 10)
	if err := g.primary.Set(ctx, key, data); err != nil {
		return "", &StoreError{Op: "set", Key: key, Err: err}
	}

	index, err := g.Backups(ctx)
	if err != nil {
		return key, err
	}
	index = append(index, key)
	for len(index) > g.maxBackups {
		old := index[0]
		index = index[1:]
		if err := g.primary.Del(ctx, old); err != nil {
			g.logger.Warn("failed to prune old backup", zap.String("key", old), zap.Error(err))
		}
	}
	raw, _ := json.Marshal(index)
	if err := g.primary.Set(ctx, backupIndexKey, raw); err != nil {
		return key, &StoreError{Op: "set", Key: backupIndexKey, Err: err}
	}
	g.logger.Info("save backup created", zap.String("key", key))
	return key, nil
}

// Backups lists the timestamped backup keys, oldest first.
func (g *Gateway) Backups(ctx context.Context) ([]string, error) {
	raw, err := g.primary.Get(ctx, backupIndexKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StoreError{Op: "get", Key: backupIndexKey, Err: err}
	}
	var index []string
	if err := json.Unmarshal(raw, &index); err != nil {
		g.logger.Warn("backup index unreadable, starting a new one", zap.Error(err))
		return nil, nil
	}
	out := index[:0]
	for _, k := range index {
		if strings.HasPrefix(k, BackupKey+"_") {
			out = append(out, k)
		}
	}
	return out, nil
}

// Info reports which slots hold data and when the primary was last saved.
func (g *Gateway) Info(ctx context.Context) (Info, error) {
	var info Info
	data, err := g.primary.Get(ctx, PrimaryKey)
	switch {
	case err == nil:
		info.HasPrimary = true
		var head struct {
			LastSaved string `json:"lastSaved"`
		}
		if json.Unmarshal(data, &head) == nil {
			info.LastSaved = head.LastSaved
		}
	case !errors.Is(err, store.ErrNotFound):
		return info, &StoreError{Op: "get", Key: PrimaryKey, Err: err}
	}
	_, err = g.backup.Get(ctx, BackupKey)
	switch {
	case err == nil:
		info.HasBackup = true
	case !errors.Is(err, store.ErrNotFound):
		return info, &StoreError{Op: "get", Key: BackupKey, Err: err}
	}
	return info, nil
}
