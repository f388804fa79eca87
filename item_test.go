package seaport

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeParams(start, end, now uint64, consideration bool) *TimeBasedItemParams {
	return &TimeBasedItemParams{
		StartTime:             start,
		EndTime:               end,
		CurrentBlockTimestamp: now,
		IsConsiderationItem:   consideration,
	}
}

func TestGetPresentItemAmount(t *testing.T) {
	tests := []struct {
		name   string
		start  int64
		end    int64
		params *TimeBasedItemParams
		want   int64
	}{
		{name: "nil params uses start amount", start: 100, end: 200, params: nil, want: 100},
		{name: "equal amounts ignore time", start: 50, end: 50, params: timeParams(10, 10, 99, true), want: 50},
		{name: "ascending offer rounds down", start: 100, end: 200, params: timeParams(0, 3, 1, false), want: 133},
		{name: "ascending consideration rounds up", start: 100, end: 200, params: timeParams(0, 3, 1, true), want: 134},
		{name: "descending offer rounds down", start: 200, end: 100, params: timeParams(0, 3, 1, false), want: 166},
		{name: "descending consideration rounds up", start: 200, end: 100, params: timeParams(0, 3, 1, true), want: 167},
		{name: "before start clamps to start amount", start: 100, end: 200, params: timeParams(10, 20, 5, true), want: 100},
		{name: "after end clamps to end amount", start: 100, end: 200, params: timeParams(10, 20, 25, true), want: 200},
		{name: "at end returns end amount", start: 200, end: 100, params: timeParams(10, 20, 20, false), want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetPresentItemAmount(big.NewInt(tt.start), big.NewInt(tt.end), tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Int64())
		})
	}
}

func TestGetPresentItemAmount_EqualAmountsAnyTime(t *testing.T) {
	amount := big.NewInt(777)
	for _, now := range []uint64{0, 1, 50, 100, 1_000} {
		for _, consideration := range []bool{false, true} {
			got, err := GetPresentItemAmount(amount, amount, timeParams(1, 100, now, consideration))
			require.NoError(t, err)
			assert.Equal(t, 0, got.Cmp(amount))
		}
	}
}

func TestGetPresentItemAmount_RoundingDirection(t *testing.T) {
	start, end := big.NewInt(1_000), big.NewInt(7)
	const startTime, endTime = 100, 213

	for now := uint64(startTime); now <= endTime; now++ {
		offerAmount, err := GetPresentItemAmount(start, end, timeParams(startTime, endTime, now, false))
		require.NoError(t, err)
		considerationAmount, err := GetPresentItemAmount(start, end, timeParams(startTime, endTime, now, true))
		require.NoError(t, err)

		elapsed := int64(now - startTime)
		duration := int64(endTime - startTime)
		exact := new(big.Rat).SetFrac(
			new(big.Int).Add(
				new(big.Int).Mul(start, big.NewInt(duration-elapsed)),
				new(big.Int).Mul(end, big.NewInt(elapsed)),
			),
			big.NewInt(duration),
		)

		assert.LessOrEqual(t, new(big.Rat).SetInt(offerAmount).Cmp(exact), 0, "offer at %d", now)
		assert.GreaterOrEqual(t, new(big.Rat).SetInt(considerationAmount).Cmp(exact), 0, "consideration at %d", now)
		assert.LessOrEqual(t, new(big.Int).Sub(considerationAmount, offerAmount).Int64(), int64(1))
	}
}

func TestGetPresentItemAmount_Errors(t *testing.T) {
	tooLarge := new(big.Int).Add(MaxInt, big.NewInt(1))

	tests := []struct {
		name   string
		start  *big.Int
		end    *big.Int
		params *TimeBasedItemParams
	}{
		{name: "missing amount", start: nil, end: big.NewInt(1), params: nil},
		{name: "empty window", start: big.NewInt(1), end: big.NewInt(2), params: timeParams(10, 10, 10, false)},
		{name: "inverted window", start: big.NewInt(1), end: big.NewInt(2), params: timeParams(20, 10, 15, false)},
		{name: "start out of range", start: tooLarge, end: big.NewInt(2), params: timeParams(0, 10, 5, false)},
		{name: "negative end", start: big.NewInt(1), end: big.NewInt(-2), params: timeParams(0, 10, 5, false)},
		{name: "interpolation overflows", start: MaxInt, end: big.NewInt(1), params: timeParams(0, 2, 1, false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GetPresentItemAmount(tt.start, tt.end, tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestGetItemIndexToCriteriaMap(t *testing.T) {
	items := offerOf(
		newItem(ItemTypeERC20, tokenERC20, 0, 10, 10),
		newItem(ItemTypeERC721WithCriteria, tokenERC721, 0, 1, 1),
		newItem(ItemTypeERC1155WithCriteria, tokenERC1155, 0, 5, 5),
	)

	t.Run("resolves criteria items", func(t *testing.T) {
		resolved, err := GetItemIndexToCriteriaMap(items, []InputCriteria{
			{Index: 2, Identifier: big.NewInt(33)},
			{Index: 1, Identifier: big.NewInt(7)},
			{Index: 0, Identifier: big.NewInt(99)},
		})
		require.NoError(t, err)
		require.Len(t, resolved, 2)
		assert.Equal(t, int64(7), resolved[1].Int64())
		assert.Equal(t, int64(33), resolved[2].Int64())
	})

	t.Run("missing criteria", func(t *testing.T) {
		_, err := GetItemIndexToCriteriaMap(items, []InputCriteria{{Index: 1, Identifier: big.NewInt(7)}})
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Message, "item 2")
	})

	t.Run("duplicate criteria", func(t *testing.T) {
		_, err := GetItemIndexToCriteriaMap(items, []InputCriteria{
			{Index: 1, Identifier: big.NewInt(7)},
			{Index: 1, Identifier: big.NewInt(8)},
			{Index: 2, Identifier: big.NewInt(33)},
		})
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("no criteria items", func(t *testing.T) {
		resolved, err := GetItemIndexToCriteriaMap(items[:1], nil)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})
}

func TestGetSummedTokenAndIdentifierAmounts(t *testing.T) {
	items := considerationOf(offerer,
		newItem(ItemTypeNative, common.Address{}, 0, 5, 5),
		newItem(ItemTypeERC20, tokenERC20, 0, 100, 100),
		newItem(ItemTypeERC1155, tokenERC1155, 4, 2, 2),
		newItem(ItemTypeERC20, tokenERC20, 0, 50, 50),
		newItem(ItemTypeNative, common.Address{}, 0, 1, 1),
		newItem(ItemTypeERC1155WithCriteria, tokenERC1155, 0, 3, 3),
	)
	criterias := []InputCriteria{{Index: 5, Identifier: big.NewInt(4)}}

	amounts, err := GetSummedTokenAndIdentifierAmounts(items, criterias, nil)
	require.NoError(t, err)
	require.Equal(t, 3, amounts.Len())

	assert.Equal(t, int64(6), amounts.Get(common.Address{}, big.NewInt(0)).Int64())
	assert.Equal(t, int64(150), amounts.Get(tokenERC20, big.NewInt(0)).Int64())
	assert.Equal(t, int64(5), amounts.Get(tokenERC1155, big.NewInt(4)).Int64())
	assert.Nil(t, amounts.Get(tokenERC1155, big.NewInt(0)))

	entries := amounts.Entries()
	assert.Equal(t, common.Address{}, entries[0].Token)
	assert.Equal(t, tokenERC20, entries[1].Token)
	assert.Equal(t, tokenERC1155, entries[2].Token)

	entries[1].Amount.SetInt64(0)
	assert.Equal(t, int64(150), amounts.Get(tokenERC20, big.NewInt(0)).Int64(), "entries must be copies")
}

func TestGetSummedTokenAndIdentifierAmounts_OrderIndependent(t *testing.T) {
	base := []Item{
		newItem(ItemTypeERC20, tokenERC20, 0, 100, 300),
		newItem(ItemTypeERC721, tokenERC721, 9, 1, 1),
		newItem(ItemTypeERC20, tokenERC20, 0, 10, 10),
		newItem(ItemTypeERC1155, tokenERC1155, 2, 4, 8),
		newItem(ItemTypeERC20, tokenOther20, 0, 7, 1),
	}
	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
		{1, 4, 0, 3, 2},
	}
	params := timeParams(0, 1_000, 333, true)

	var want map[common.Address]map[string]*big.Int
	for _, perm := range permutations {
		items := make([]Item, len(perm))
		for i, j := range perm {
			items[i] = base[j]
		}

		amounts, err := GetSummedTokenAndIdentifierAmounts(items, nil, params)
		require.NoError(t, err)

		got := amounts.ToMap()
		if want == nil {
			want = got
			continue
		}
		assert.Equal(t, want, got)
	}
}

func TestGetSummedTokenAndIdentifierAmounts_WrapsItemIndex(t *testing.T) {
	items := offerOf(
		newItem(ItemTypeERC20, tokenERC20, 0, 1, 1),
		newItem(ItemTypeERC20, tokenERC20, 0, 1, 2),
	)

	_, err := GetSummedTokenAndIdentifierAmounts(items, nil, timeParams(5, 5, 5, false))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "item 1")
}

func TestTokenAndIdentifierAmounts_ExactIdentifier(t *testing.T) {
	aboveRange := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	amounts := NewTokenAndIdentifierAmounts()
	amounts.Add(tokenERC1155, big.NewInt(1), big.NewInt(2))
	amounts.Add(tokenERC1155, aboveRange, big.NewInt(3))
	amounts.Add(tokenERC1155, big.NewInt(-1), big.NewInt(4))

	require.Equal(t, 3, amounts.Len())
	assert.Equal(t, int64(2), amounts.Get(tokenERC1155, big.NewInt(1)).Int64())
	assert.Equal(t, int64(3), amounts.Get(tokenERC1155, aboveRange).Int64())
	assert.Equal(t, int64(4), amounts.Get(tokenERC1155, big.NewInt(-1)).Int64())
}
