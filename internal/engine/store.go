package engine

import (
	"time"

	"volume-surge-alerts/internal/market"
)

// StateStore maps instrument keys to their current observable state. All
// mutation happens on the single consumer path, so no locking is needed here;
// concurrent readers go through the engine's snapshot accessor instead.
//
// Each update replaces the whole entry, so an unchanged entry keeps its
// identity and a rendering layer can diff snapshots cheaply.
type StateStore struct {
	instruments map[string]*market.Instrument
	order       []string
}

// NewStateStore builds a store from the initial selection, preserving order.
func NewStateStore(initial []market.Instrument) *StateStore {
	s := &StateStore{
		instruments: make(map[string]*market.Instrument, len(initial)),
		order:       make([]string, 0, len(initial)),
	}
	for i := range initial {
		inst := initial[i]
		if _, exists := s.instruments[inst.Symbol]; exists {
			continue
		}
		s.instruments[inst.Symbol] = &inst
		s.order = append(s.order, inst.Symbol)
	}
	return s
}

// ApplyVolumeUpdate sets the rolling 1-minute volume for an instrument and
// returns the updated entry. Unknown keys are a no-op: the message may belong
// to an instrument a concurrent reconfiguration just removed.
func (s *StateStore) ApplyVolumeUpdate(symbol string, volume float64, at time.Time) (market.Instrument, bool) {
	current, ok := s.instruments[symbol]
	if !ok {
		return market.Instrument{}, false
	}

	updated := *current
	updated.LastMinuteVolume = volume
	updated.LastUpdatedAt = at
	s.instruments[symbol] = &updated
	return updated, true
}

// ApplyTickerUpdate sets the last price and, when the window open is known and
// non-zero, recomputes the 24h change. Unknown keys are a no-op.
func (s *StateStore) ApplyTickerUpdate(symbol string, closePrice, openPrice float64, at time.Time) (market.Instrument, bool) {
	current, ok := s.instruments[symbol]
	if !ok {
		return market.Instrument{}, false
	}

	updated := *current
	updated.Price = closePrice
	if openPrice != 0 {
		updated.Change24h = (closePrice - openPrice) / openPrice * 100
	}
	updated.LastUpdatedAt = at
	s.instruments[symbol] = &updated
	return updated, true
}

// Snapshot returns a copy of every instrument in selection order.
func (s *StateStore) Snapshot() []market.Instrument {
	out := make([]market.Instrument, 0, len(s.order))
	for _, symbol := range s.order {
		out = append(out, *s.instruments[symbol])
	}
	return out
}

// Symbols returns the subscribed keys in selection order.
func (s *StateStore) Symbols() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len reports the number of tracked instruments.
func (s *StateStore) Len() int {
	return len(s.order)
}
