package executors

import (
	"sort"
	"strings"
	"sync"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

// AnalysisStore keeps the latest Analysis per asset. Lookups accept the coin
// id or the symbol.
type AnalysisStore struct {
	mu       sync.RWMutex
	byID     map[string]model.Analysis
	idBySym  map[string]string
	nextSub  int
	watchers map[int]func(model.Analysis)
}

func NewAnalysisStore() *AnalysisStore {
	return &AnalysisStore{
		byID:     make(map[string]model.Analysis),
		idBySym:  make(map[string]string),
		watchers: make(map[int]func(model.Analysis)),
	}
}

func (s *AnalysisStore) Put(symbol string, a model.Analysis) {
	s.mu.Lock()
	s.byID[a.Asset] = a
	if symbol != "" {
		s.idBySym[strings.ToUpper(symbol)] = a.Asset
	}
	watchers := make([]func(model.Analysis), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.Unlock()

	for _, fn := range watchers {
		fn(a)
	}
}

func (s *AnalysisStore) Get(asset string) (model.Analysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asset = strings.TrimSpace(asset)
	if a, ok := s.byID[strings.ToLower(asset)]; ok {
		return a, true
	}
	if id, ok := s.idBySym[strings.ToUpper(asset)]; ok {
		a, ok := s.byID[id]
		return a, ok
	}
	return model.Analysis{}, false
}

// All returns every stored analysis ordered by asset.
func (s *AnalysisStore) All() []model.Analysis {
	s.mu.RLock()
	out := make([]model.Analysis, 0, len(s.byID))
	for _, a := range s.byID {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func (s *AnalysisStore) LatestPrice(symbol string) (decimal.Decimal, bool) {
	a, ok := s.Get(symbol)
	if !ok || a.Price <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(a.Price), true
}

func (s *AnalysisStore) LatestSignal(symbol string) (model.Signal, bool) {
	a, ok := s.Get(symbol)
	if !ok {
		return model.Signal{}, false
	}
	return a.Signal, true
}

// Subscribe registers fn for every Put; call the returned func to stop.
func (s *AnalysisStore) Subscribe(fn func(model.Analysis)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}
