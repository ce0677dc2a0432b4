package migrations

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DataMigration is the bookkeeping row of an applied migration.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// Migration rewrites existing rows; schema changes belong in AutoMigrate.
type Migration struct {
	ID string
	Up func(tx *gorm.DB) error
}

// All lists data migrations in apply order. IDs must never change once shipped.
var All = []Migration{
	{ID: "00001_uppercase_candle_symbols", Up: uppercaseCandleSymbols},
}

// Run applies every pending migration of All.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("data_migrations table: %w", err)
	}
	for _, m := range All {
		if err := Apply(db, m); err != nil {
			return err
		}
	}
	return nil
}

// Apply runs m inside a transaction unless its ID is already recorded.
func Apply(db *gorm.DB, m Migration) error {
	switch {
	case db == nil:
		return nil
	case m.ID == "":
		return errors.New("migration without id")
	case m.Up == nil:
		return fmt.Errorf("migration %s: nothing to run", m.ID)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var done int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", m.ID).Count(&done).Error; err != nil {
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		if done > 0 {
			return nil
		}
		if err := m.Up(tx); err != nil {
			return fmt.Errorf("migration %s: %w", m.ID, err)
		}
		return tx.Create(&DataMigration{ID: m.ID, AppliedAt: time.Now().UTC()}).Error
	})
}

// uppercaseCandleSymbols normalizes rows imported before the analyze command
// upper-cased pair symbols.
func uppercaseCandleSymbols(tx *gorm.DB) error {
	return tx.Exec("UPDATE daily_candles SET symbol = UPPER(symbol) WHERE symbol <> UPPER(symbol)").Error
}
