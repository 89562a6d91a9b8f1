package market

import "testing"

func TestNormalizeRangeDefaults(t *testing.T) {
	rng := NormalizeRange(0, 500)
	if rng.Start != 1 || rng.End != 100 {
		t.Fatalf("期望 [1,100], 实际 [%d,%d]", rng.Start, rng.End)
	}
}

func TestNormalizeRangeSwapsInverted(t *testing.T) {
	rng := NormalizeRange(50, 10)
	if rng.Start != 10 || rng.End != 50 {
		t.Fatalf("期望 [10,50], 实际 [%d,%d]", rng.Start, rng.End)
	}
}

func TestNormalizeRangeClampsStart(t *testing.T) {
	rng := NormalizeRange(400, 0)
	if rng.Start != 100 || rng.End != 300 {
		t.Fatalf("期望 [100,300], 实际 [%d,%d]", rng.Start, rng.End)
	}
}

func TestSelectRankedWindow(t *testing.T) {
	universe := []UniverseTicker{
		{Symbol: "AUSDT", ChangePct: 50},
		{Symbol: "BUSDT", ChangePct: 40},
		{Symbol: "CUSDT", ChangePct: 30},
		{Symbol: "DUSDT", ChangePct: 20},
		{Symbol: "EUSDT", ChangePct: 10},
	}

	got := SelectRanked(universe, RankRange{Start: 2, End: 4}, SelectorOptions{QuoteAsset: "USDT"})
	want := []string{"BUSDT", "CUSDT", "DUSDT"}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 个, 实际 %d", len(want), len(got))
	}
	for i, sym := range want {
		if got[i].Symbol != sym {
			t.Fatalf("位置 %d 期望 %s, 实际 %s", i, sym, got[i].Symbol)
		}
	}
}

func TestSelectRankedFiltersUniverse(t *testing.T) {
	universe := []UniverseTicker{
		{Symbol: "BTCUSDT", ChangePct: 5},
		{Symbol: "BTCBUSD", ChangePct: 90},
		{Symbol: "BTCUSDT_240927", ChangePct: 80},
		{Symbol: "USDCUSDT", ChangePct: 70},
	}

	got := SelectRanked(universe, RankRange{Start: 1, End: 10}, SelectorOptions{
		QuoteAsset:     "USDT",
		ExcludedPrefix: "USDC",
	})
	if len(got) != 1 || got[0].Symbol != "BTCUSDT" {
		t.Fatalf("过滤结果不正确: %#v", got)
	}
}

func TestSelectRankedStableOnTies(t *testing.T) {
	universe := []UniverseTicker{
		{Symbol: "AUSDT", ChangePct: 10},
		{Symbol: "BUSDT", ChangePct: 10},
		{Symbol: "CUSDT", ChangePct: 10},
	}

	got := SelectRanked(universe, RankRange{Start: 1, End: 3}, SelectorOptions{QuoteAsset: "USDT"})
	for i, sym := range []string{"AUSDT", "BUSDT", "CUSDT"} {
		if got[i].Symbol != sym {
			t.Fatalf("并列涨幅应保持上游顺序, 位置 %d 实际 %s", i, got[i].Symbol)
		}
	}
}

func TestSelectRankedWindowBeyondUniverse(t *testing.T) {
	universe := []UniverseTicker{{Symbol: "AUSDT", ChangePct: 1}}

	if got := SelectRanked(universe, RankRange{Start: 5, End: 10}, SelectorOptions{QuoteAsset: "USDT"}); got != nil {
		t.Fatalf("窗口超出范围时应为空: %#v", got)
	}

	got := SelectRanked(universe, RankRange{Start: 1, End: 10}, SelectorOptions{QuoteAsset: "USDT"})
	if len(got) != 1 {
		t.Fatalf("窗口应截断到候选集长度: %#v", got)
	}
}

func TestSelectListKeepsConfiguredOrder(t *testing.T) {
	universe := []UniverseTicker{
		{Symbol: "ETHUSDT", ChangePct: 2},
		{Symbol: "BTCUSDT", ChangePct: 1},
	}

	got := SelectList(universe, []string{"BTCUSDT", "ETHUSDT", "MISSINGUSDT"})
	if len(got) != 2 {
		t.Fatalf("期望 2 个, 实际 %d", len(got))
	}
	if got[0].Symbol != "BTCUSDT" || got[1].Symbol != "ETHUSDT" {
		t.Fatalf("应按配置顺序返回: %#v", got)
	}
}

func TestFallbackUniverse(t *testing.T) {
	got := FallbackUniverse([]string{"BTCUSDT", "ETHUSDT"})
	if len(got) != 2 {
		t.Fatalf("期望 2 个, 实际 %d", len(got))
	}
	for _, tkr := range got {
		if tkr.LastPrice != 0 || tkr.ChangePct != 0 {
			t.Fatalf("占位数据应为中性值: %#v", tkr)
		}
	}
}
