package economy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	s := Standing{
		OwnerID:           "alice",
		Balance:           1_000_000_000,
		ConstructionSpend: 1_000_000_000,
		Units:             2,
		Outstanding:       500_000_000,
	}
	assert.Equal(t, int64(1_220_000_000), Score(s))
}

func TestRank_OrdersAndTrims(t *testing.T) {
	standings := []Standing{
		{OwnerID: "carol", Balance: 100},
		{OwnerID: "alice", Balance: 300},
		{OwnerID: "bob", Balance: 300},
		{OwnerID: "dave", Balance: 50, Outstanding: 100},
	}

	all := Rank(standings, 0)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, []string{all[0].OwnerID, all[1].OwnerID, all[2].OwnerID, all[3].OwnerID})
	assert.Equal(t, int64(-50), all[3].Score)
	for i, e := range all {
		assert.Equal(t, i+1, e.Rank)
	}

	top := Rank(standings, 2)
	require.Len(t, top, 2)
	assert.Equal(t, "alice", top[0].OwnerID)
	assert.Equal(t, "bob", top[1].OwnerID)
}

func TestRank_Empty(t *testing.T) {
	assert.Empty(t, Rank(nil, 10))
}
