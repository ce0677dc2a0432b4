package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Persistence stores ledger snapshots keyed by session id. Load returns
// nil, nil when nothing has been stored for the session.
type Persistence interface {
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
}

var ErrNoPersistence = errors.New("ledger has no persistence configured")

// Save writes the current state through the configured Persistence.
func (l *Ledger) Save(ctx context.Context) error {
	if l.persistence == nil {
		return ErrNoPersistence
	}
	snap := l.Snapshot()
	if err := l.persistence.Save(ctx, l.cfg.SessionID, snap); err != nil {
		return fmt.Errorf("save ledger session %s: %w", l.cfg.SessionID, err)
	}
	return nil
}

// Restore replaces the current state with the stored snapshot. It reports
// false when there was nothing to restore.
func (l *Ledger) Restore(ctx context.Context) (bool, error) {
	if l.persistence == nil {
		return false, ErrNoPersistence
	}
	snap, err := l.persistence.Load(ctx, l.cfg.SessionID)
	if err != nil {
		return false, fmt.Errorf("load ledger session %s: %w", l.cfg.SessionID, err)
	}
	if snap == nil {
		return false, nil
	}
	if err := l.Load(*snap); err != nil {
		return false, err
	}
	return true, nil
}

// Load replaces the state with snap after validating it.
func (l *Ledger) Load(snap Snapshot) error {
	if err := snap.validate(); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if snap.QuoteAsset != "" && snap.QuoteAsset != l.cfg.QuoteAsset {
		return fmt.Errorf("restore snapshot: quote asset %s, ledger uses %s: %w", snap.QuoteAsset, l.cfg.QuoteAsset, ErrInvalidAsset)
	}
	restored := snap.Clone()
	restored.QuoteAsset = l.cfg.QuoteAsset

	l.mu.Lock()
	l.state = restored
	l.mu.Unlock()
	return l.finish("restore", nil, EventRestore, nil)
}
