package model

import "time"

// LedgerSnapshot is the persisted form of a ledger session. Payload is the
// JSON encoding of ledger.Snapshot and is opaque to the repository.
type LedgerSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:100;uniqueIndex;not null" json:"session_id"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
