package engine

import (
	"time"

	"volume-surge-alerts/internal/market"
)

// AlertLog is the bounded, newest-first record of accepted alerts. It is also
// the only list consulted for debounce: a linear scan is fine at 50 entries.
type AlertLog struct {
	events   []market.AlertEvent
	max      int
	debounce time.Duration
	seq      int64
	now      func() time.Time
}

// NewAlertLog builds a log holding at most max events, suppressing repeat
// alerts for the same instrument within the debounce window.
func NewAlertLog(max int, debounce time.Duration) *AlertLog {
	if max <= 0 {
		max = 50
	}
	return &AlertLog{
		events:   make([]market.AlertEvent, 0, max),
		max:      max,
		debounce: debounce,
		now:      time.Now,
	}
}

// Record appends an alert for the instrument unless its most recent alert is
// still inside the debounce window. The returned event is the caller's cue to
// fire tier-appropriate external notification exactly once.
func (l *AlertLog) Record(inst market.Instrument, eval Evaluation) (market.AlertEvent, bool) {
	at := l.now()

	if last, ok := l.lastFor(inst.Symbol); ok {
		if at.Sub(last.EmittedAt) < l.debounce {
			return market.AlertEvent{}, false
		}
	}

	l.seq++
	event := market.AlertEvent{
		ID:        at.UnixMilli()*1000 + l.seq%1000,
		Symbol:    inst.Symbol,
		Price:     inst.Price,
		Ratio:     eval.Ratio,
		Volume:    inst.LastMinuteVolume,
		Tier:      eval.Tier,
		EmittedAt: at,
	}

	l.events = append([]market.AlertEvent{event}, l.events...)
	if len(l.events) > l.max {
		l.events = l.events[:l.max]
	}
	return event, true
}

// lastFor finds the most recent event for a key; the log is newest-first, so
// the first hit wins.
func (l *AlertLog) lastFor(symbol string) (market.AlertEvent, bool) {
	for _, ev := range l.events {
		if ev.Symbol == symbol {
			return ev, true
		}
	}
	return market.AlertEvent{}, false
}

// Events returns a copy of the log, newest first.
func (l *AlertLog) Events() []market.AlertEvent {
	out := make([]market.AlertEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Clear discards all recorded events.
func (l *AlertLog) Clear() {
	l.events = l.events[:0]
}

// Len reports the number of retained events.
func (l *AlertLog) Len() int {
	return len(l.events)
}
