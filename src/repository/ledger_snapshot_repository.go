package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"papertrader/src/database"
	"papertrader/src/ledger"
	"papertrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerSnapshotRepository stores one JSON encoded ledger snapshot per
// session. It satisfies ledger.Persistence.
type LedgerSnapshotRepository struct {
	db *gorm.DB
}

var _ ledger.Persistence = (*LedgerSnapshotRepository)(nil)

func NewLedgerSnapshotRepository() *LedgerSnapshotRepository {
	return &LedgerSnapshotRepository{db: database.MainDB}
}

func NewLedgerSnapshotRepositoryWithDB(db *gorm.DB) *LedgerSnapshotRepository {
	logger.WithField("component", "LedgerSnapshotRepository").
		Debug("Creating new LedgerSnapshotRepository with custom DB instance")
	return &LedgerSnapshotRepository{db: db}
}

// Save upserts the snapshot of sessionID.
func (r *LedgerSnapshotRepository) Save(ctx context.Context, sessionID string, snap ledger.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}

	row := model.LedgerSnapshot{SessionID: sessionID, Payload: string(payload)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}

// Load returns nil, nil when sessionID has no stored snapshot.
func (r *LedgerSnapshotRepository) Load(ctx context.Context, sessionID string) (*ledger.Snapshot, error) {
	var row model.LedgerSnapshot
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap ledger.Snapshot
	if err := json.Unmarshal([]byte(row.Payload), &snap); err != nil {
		return nil, fmt.Errorf("decode ledger snapshot %s: %w", sessionID, err)
	}
	return &snap, nil
}

// Delete removes the stored snapshot of sessionID.
func (r *LedgerSnapshotRepository) Delete(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.LedgerSnapshot{}).Error
}
