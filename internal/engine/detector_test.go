package engine

import (
	"testing"

	"volume-surge-alerts/internal/market"
)

func TestEvaluateRatioRounding(t *testing.T) {
	eval, ok := Evaluate(100, 3, 2.0)
	if !ok {
		t.Fatal("正基准不应跳过评估")
	}
	if eval.Ratio != 33.33 {
		t.Fatalf("比值应四舍五入到 2 位小数: %f", eval.Ratio)
	}
}

func TestEvaluateStrictThreshold(t *testing.T) {
	// 比值恰好等于阈值时不算突破。
	eval, _ := Evaluate(200, 100, 2.0)
	if eval.Ratio != 2.0 {
		t.Fatalf("期望比值 2.0, 实际 %f", eval.Ratio)
	}
	if eval.Breakout {
		t.Fatal("ratio == threshold 不应触发突破")
	}

	eval, _ = Evaluate(201, 100, 2.0)
	if !eval.Breakout {
		t.Fatal("ratio > threshold 应触发突破")
	}
}

func TestEvaluateSkipsUnknownBaseline(t *testing.T) {
	if _, ok := Evaluate(100, 0, 2.0); ok {
		t.Fatal("基准为 0 时应跳过评估")
	}
	if _, ok := Evaluate(100, -1, 2.0); ok {
		t.Fatal("负基准应跳过评估")
	}
}

func TestEvaluateTierIndependentOfThreshold(t *testing.T) {
	cases := []struct {
		volume    float64
		baseline  float64
		threshold float64
		tier      market.Tier
	}{
		{1499, 100, 2.0, market.TierNormal}, // 14.99x
		{1500, 100, 2.0, market.TierHigh},   // 15.00x
		{1600, 100, 9.5, market.TierHigh},   // 阈值取上限时 tier 不受影响
		{300, 100, 1.0, market.TierNormal},
	}
	for i, tc := range cases {
		eval, ok := Evaluate(tc.volume, tc.baseline, tc.threshold)
		if !ok {
			t.Fatalf("用例 %d 不应跳过", i)
		}
		if eval.Tier != tc.tier {
			t.Fatalf("用例 %d 期望 tier %s, 实际 %s (ratio %f)", i, tc.tier, eval.Tier, eval.Ratio)
		}
	}
}

func TestEvaluateZeroVolume(t *testing.T) {
	eval, ok := Evaluate(0, 100, 2.0)
	if !ok {
		t.Fatal("零成交量不应跳过评估")
	}
	if eval.Ratio != 0 || eval.Breakout {
		t.Fatalf("零成交量不应触发突破: %#v", eval)
	}
}
