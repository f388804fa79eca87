package seaport

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/kaifufi/seaport-sdk-go/chain"
	"github.com/kaifufi/seaport-sdk-go/chain/chaintest"
)

var (
	offerer   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	fulfiller = common.HexToAddress("0x1000000000000000000000000000000000000002")
	operator  = common.HexToAddress("0x2000000000000000000000000000000000000001")

	tokenERC20   = common.HexToAddress("0xa000000000000000000000000000000000000001")
	tokenERC721  = common.HexToAddress("0xa000000000000000000000000000000000000002")
	tokenERC1155 = common.HexToAddress("0xa000000000000000000000000000000000000003")
	tokenOther20 = common.HexToAddress("0xa000000000000000000000000000000000000004")
)

const testHeadTime = 1_700_000_000

func newItem(itemType ItemType, token common.Address, identifier, start, end int64) Item {
	return Item{
		ItemType:             itemType,
		Token:                token,
		IdentifierOrCriteria: big.NewInt(identifier),
		StartAmount:          big.NewInt(start),
		EndAmount:            big.NewInt(end),
	}
}

func offerOf(items ...Item) []OfferItem {
	out := make([]OfferItem, len(items))
	for i, item := range items {
		out[i] = OfferItem{Item: item}
	}
	return out
}

func considerationOf(recipient common.Address, items ...Item) []ConsiderationItem {
	out := make([]ConsiderationItem, len(items))
	for i, item := range items {
		out[i] = ConsiderationItem{Item: item, Recipient: recipient}
	}
	return out
}

func entry(itemType ItemType, token common.Address, identifier, balance, approved int64) BalanceAndApproval {
	return BalanceAndApproval{
		Token:                token,
		IdentifierOrCriteria: big.NewInt(identifier),
		Balance:              big.NewInt(balance),
		ApprovedAmount:       big.NewInt(approved),
		ItemType:             itemType,
	}
}

func maxEntry(itemType ItemType, token common.Address, identifier, balance int64) BalanceAndApproval {
	e := entry(itemType, token, identifier, balance, 0)
	e.ApprovedAmount = new(big.Int).Set(MaxInt)
	return e
}

// newTestBackend deploys one token of each standard
func newTestBackend() *chaintest.Backend {
	backend := chaintest.NewBackend(testHeadTime)
	backend.DeployERC20(tokenERC20, 18)
	backend.DeployERC20(tokenOther20, 6)
	backend.DeployERC721(tokenERC721)
	backend.DeployERC1155(tokenERC1155)
	return backend
}

func newSignerCaller(t *testing.T, backend *chaintest.Backend) (*chain.ContractCaller, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return chain.NewContractCallerWithBackend(backend, key), crypto.PubkeyToAddress(key.PublicKey)
}
