package economy

import (
	"math"
	"sort"

	"github.com/railtycoon/server/pkg/core"
)

const (
	rankingSpendWeight = 0.7
	rankingUnitValue   = 10_000_000
)

// Standing is the input of the leaderboard for one owner.
type Standing struct {
	OwnerID           string
	Balance           int64
	ConstructionSpend int64
	Units             int
	Outstanding       int64
}

// Score values an owner's company: cash, 70% of what was spent building it,
// a flat value per unit, minus outstanding debt.
func Score(s Standing) int64 {
	return s.Balance +
		int64(math.Round(float64(s.ConstructionSpend)*rankingSpendWeight)) +
		int64(s.Units)*rankingUnitValue -
		s.Outstanding
}

// Rank orders owners by score, highest first, and returns at most n entries.
// Ties are broken by owner id. n <= 0 returns everyone.
func Rank(standings []Standing, n int) []core.RankingEntry {
	entries := make([]core.RankingEntry, 0, len(standings))
	for _, s := range standings {
		entries = append(entries, core.RankingEntry{
			OwnerID: s.OwnerID,
			Score:   Score(s),
			Balance: s.Balance,
			Units:   s.Units,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].OwnerID < entries[j].OwnerID
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
