package ledger

import (
	"time"

	"papertrader/src/model"
)

type EventType string

const (
	EventBuy      EventType = "buy"
	EventSell     EventType = "sell"
	EventClose    EventType = "close"
	EventWithdraw EventType = "withdraw"
	EventDeposit  EventType = "deposit"
	EventReset    EventType = "reset"
	EventRestore  EventType = "restore"
)

// Event is emitted after a command has been applied.
type Event struct {
	Type        EventType          `json:"type"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	At          time.Time          `json:"at"`
}

// Subscribe registers fn for every applied command and returns a function
// that removes it. fn runs on the caller's goroutine, outside the ledger lock.
func (l *Ledger) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.subMu.Lock()
	id := l.nextSubID
	l.nextSubID++
	l.subscribers[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subscribers, id)
		l.subMu.Unlock()
	}
}

func (l *Ledger) emit(evt Event) {
	l.subMu.Lock()
	fns := make([]func(Event), 0, len(l.subscribers))
	for _, fn := range l.subscribers {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}
