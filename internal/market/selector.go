package market

import (
	"sort"
	"strings"
)

const (
	// MaxRank bounds the ranked-window selection.
	MaxRank = 300

	defaultRankStart = 1
	defaultRankEnd   = 100

	// contractDelimiter marks dated/indexed contracts (e.g. BTCUSDT_240927).
	contractDelimiter = "_"
)

// RankRange is a 1-based inclusive window into the gainers leaderboard.
type RankRange struct {
	Start int
	End   int
}

// NormalizeRange validates a requested rank window without touching the network.
// Missing or non-positive start becomes 1, missing or oversized end becomes 100,
// and an inverted window is swapped.
func NormalizeRange(start, end int) RankRange {
	if start <= 0 {
		start = defaultRankStart
	}
	if end <= 0 || end > MaxRank {
		end = defaultRankEnd
	}
	if start > MaxRank {
		start = MaxRank
	}
	if start > end {
		start, end = end, start
	}
	return RankRange{Start: start, End: end}
}

// SelectorOptions filter the instrument universe before ranking.
type SelectorOptions struct {
	QuoteAsset     string
	ExcludedPrefix string
}

// SelectRanked filters the universe to plain quote-denominated perpetuals, sorts
// descending by 24h change, and returns the requested rank window. Equal change
// values keep their upstream order.
func SelectRanked(universe []UniverseTicker, rng RankRange, opts SelectorOptions) []UniverseTicker {
	candidates := make([]UniverseTicker, 0, len(universe))
	for _, t := range universe {
		if !strings.HasSuffix(t.Symbol, opts.QuoteAsset) {
			continue
		}
		if strings.Contains(t.Symbol, contractDelimiter) {
			continue
		}
		if opts.ExcludedPrefix != "" && strings.HasPrefix(t.Symbol, opts.ExcludedPrefix) {
			continue
		}
		candidates = append(candidates, t)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ChangePct > candidates[j].ChangePct
	})

	if len(candidates) == 0 {
		return nil
	}

	start := rng.Start
	end := rng.End
	if start > len(candidates) {
		return nil
	}
	if end > len(candidates) {
		end = len(candidates)
	}
	return candidates[start-1 : end]
}

// SelectList intersects the universe with a configured symbol list, preserving
// the configured order rather than the universe's.
func SelectList(universe []UniverseTicker, symbols []string) []UniverseTicker {
	bysym := make(map[string]UniverseTicker, len(universe))
	for _, t := range universe {
		bysym[t.Symbol] = t
	}

	out := make([]UniverseTicker, 0, len(symbols))
	for _, s := range symbols {
		if t, ok := bysym[s]; ok {
			out = append(out, t)
		}
	}
	return out
}

// FallbackUniverse builds neutral placeholders for the configured list when the
// universe snapshot is unavailable. Degraded, not fatal.
func FallbackUniverse(symbols []string) []UniverseTicker {
	out := make([]UniverseTicker, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, UniverseTicker{Symbol: s})
	}
	return out
}

// DisplayName strips the quote asset suffix for presentation.
func DisplayName(symbol, quoteAsset string) string {
	return strings.TrimSuffix(symbol, quoteAsset)
}
