package main

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seaport "github.com/kaifufi/seaport-sdk-go"
)

func TestDecodeOrder_StringAmounts(t *testing.T) {
	raw := []byte(`{
		"offerer": "0x1000000000000000000000000000000000000001",
		"offer": [{
			"itemType": 2,
			"token": "0xa000000000000000000000000000000000000002",
			"identifierOrCriteria": "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			"startAmount": "1",
			"endAmount": "1"
		}],
		"consideration": [{
			"itemType": 0,
			"token": "0x0000000000000000000000000000000000000000",
			"identifierOrCriteria": "0",
			"startAmount": "975000000000000000",
			"endAmount": 975000000000000000,
			"recipient": "0x1000000000000000000000000000000000000001"
		}, {
			"itemType": 1,
			"token": "0xa000000000000000000000000000000000000001",
			"identifierOrCriteria": 0,
			"startAmount": "0x19",
			"endAmount": "0x19",
			"recipient": "0x0000a26b00c1F0DF003000390027140000fAa719"
		}],
		"orderType": 0,
		"startTime": "1700000000",
		"endTime": 1700086400
	}`)

	order, err := decodeOrder(raw)
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000001"), order.Offerer)
	assert.Equal(t, uint64(1_700_000_000), order.StartTime)
	assert.Equal(t, uint64(1_700_086_400), order.EndTime)

	require.Len(t, order.Offer, 1)
	assert.Equal(t, seaport.ItemTypeERC721, order.Offer[0].ItemType)
	assert.Equal(t, 0, order.Offer[0].IdentifierOrCriteria.Cmp(seaport.MaxInt))

	require.Len(t, order.Consideration, 2)
	assert.Equal(t, "975000000000000000", order.Consideration[0].StartAmount.String())
	assert.Equal(t, "975000000000000000", order.Consideration[0].EndAmount.String())
	assert.Equal(t, int64(25), order.Consideration[1].StartAmount.Int64())
	assert.Equal(t, common.HexToAddress("0x0000a26b00c1F0DF003000390027140000fAa719"), order.Consideration[1].Recipient)
}

func TestDecodeOrder_Invalid(t *testing.T) {
	for name, raw := range map[string]string{
		"negative":       `{"offer": [{"startAmount": "-1"}]}`,
		"above uint256":  `{"offer": [{"startAmount": "115792089237316195423570985008687907853269984665640564039457584007913129639936"}]}`,
		"not a number":   `{"offer": [{"startAmount": "ten"}]}`,
		"time above u64": `{"startTime": "18446744073709551616"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := decodeOrder([]byte(raw))
			assert.Error(t, err)
		})
	}
}
