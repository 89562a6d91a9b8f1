package engine

import (
	"fmt"
	"testing"
	"time"

	"volume-surge-alerts/internal/market"
)

func newTestLog(max int) (*AlertLog, *time.Time) {
	log := NewAlertLog(max, 5*time.Second)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	log.now = func() time.Time { return now }
	return log, &now
}

func breakoutEval(ratio float64) Evaluation {
	tier := market.TierNormal
	if ratio >= HighTierRatio {
		tier = market.TierHigh
	}
	return Evaluation{Ratio: ratio, Breakout: true, Tier: tier}
}

func TestRecordDebounceWindow(t *testing.T) {
	log, now := newTestLog(50)
	inst := market.Instrument{Symbol: "BTCUSDT", Price: 100}

	if _, ok := log.Record(inst, breakoutEval(3)); !ok {
		t.Fatal("首次告警应被记录")
	}

	*now = now.Add(4999 * time.Millisecond)
	if _, ok := log.Record(inst, breakoutEval(3)); ok {
		t.Fatal("4999ms 内的重复告警应被抑制")
	}

	*now = now.Add(2 * time.Millisecond) // 5001ms after the first
	if _, ok := log.Record(inst, breakoutEval(3)); !ok {
		t.Fatal("超过防抖窗口后应重新记录")
	}

	if log.Len() != 2 {
		t.Fatalf("期望 2 条记录, 实际 %d", log.Len())
	}
}

func TestRecordDebouncePerInstrument(t *testing.T) {
	log, _ := newTestLog(50)

	if _, ok := log.Record(market.Instrument{Symbol: "BTCUSDT"}, breakoutEval(3)); !ok {
		t.Fatal("BTCUSDT 应被记录")
	}
	if _, ok := log.Record(market.Instrument{Symbol: "ETHUSDT"}, breakoutEval(3)); !ok {
		t.Fatal("防抖按 instrument key 隔离, ETHUSDT 应被记录")
	}
}

func TestRecordBoundedNewestFirst(t *testing.T) {
	log, now := newTestLog(50)

	for i := 0; i < 60; i++ {
		inst := market.Instrument{Symbol: fmt.Sprintf("SYM%dUSDT", i)}
		*now = now.Add(time.Second)
		if _, ok := log.Record(inst, breakoutEval(5)); !ok {
			t.Fatalf("第 %d 条告警应被记录", i)
		}
	}

	events := log.Events()
	if len(events) != 50 {
		t.Fatalf("日志应截断到 50 条, 实际 %d", len(events))
	}
	if events[0].Symbol != "SYM59USDT" {
		t.Fatalf("最新事件应排在最前: %s", events[0].Symbol)
	}
	if events[len(events)-1].Symbol != "SYM10USDT" {
		t.Fatalf("最老的 10 条应被淘汰, 末位实际 %s", events[len(events)-1].Symbol)
	}
	for i := 1; i < len(events); i++ {
		if events[i].EmittedAt.After(events[i-1].EmittedAt) {
			t.Fatalf("日志应严格按最新在前排序, 位置 %d", i)
		}
	}
}

func TestRecordCapturesInstrumentState(t *testing.T) {
	log, _ := newTestLog(50)
	inst := market.Instrument{Symbol: "BTCUSDT", Price: 64000.5, LastMinuteVolume: 777}

	event, ok := log.Record(inst, breakoutEval(16))
	if !ok {
		t.Fatal("告警应被记录")
	}
	if event.Price != 64000.5 || event.Volume != 777 || event.Ratio != 16 {
		t.Fatalf("事件字段不正确: %#v", event)
	}
	if event.Tier != market.TierHigh {
		t.Fatalf("ratio >= 15 应为 high tier: %s", event.Tier)
	}
	if event.ID == 0 {
		t.Fatal("事件 ID 不应为 0")
	}
}

func TestClear(t *testing.T) {
	log, _ := newTestLog(50)
	_, _ = log.Record(market.Instrument{Symbol: "BTCUSDT"}, breakoutEval(3))
	log.Clear()
	if log.Len() != 0 {
		t.Fatalf("清空后应无记录, 实际 %d", log.Len())
	}
}
