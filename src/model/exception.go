package model

import "time"

// Exception is a system fault persisted for auditing, e.g. a failed refresh
// cycle or a snapshot that could not be saved.
type Exception struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Service string `gorm:"size:100;index" json:"service"` // e.g. "papertrader"
	Module  string `gorm:"size:100;index" json:"module"`  // e.g. "refresh_cycle"
	Method  string `gorm:"size:100" json:"method"`        // e.g. "Run"
	Asset   string `gorm:"size:50;index" json:"asset,omitempty"`

	Message string `gorm:"type:text" json:"message"`
	Stack   string `gorm:"type:text" json:"stack"`

	// debug | info | warn | error | fatal
	Level string `gorm:"size:20;index" json:"level"`

	// JSON encoded extra fields
	Context string `gorm:"type:text" json:"context,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
