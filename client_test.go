package seaport

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kaifufi/seaport-sdk-go/chain"
	"github.com/kaifufi/seaport-sdk-go/chain/chaintest"
)

func newTestClient(t *testing.T, caller Caller) (*Client, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	client, err := NewClientWithCaller(ClientConfig{ChainID: ChainIDLocalDev}, caller, zap.New(core))
	require.NoError(t, err)
	return client, logs
}

// listing is an ERC721 offered for 1000 units of tokenERC20
func listing() OrderParameters {
	return OrderParameters{
		Offerer:       offerer,
		Offer:         offerOf(newItem(ItemTypeERC721, tokenERC721, 1, 1, 1)),
		Consideration: considerationOf(offerer, newItem(ItemTypeERC20, tokenERC20, 0, 1_000, 1_000)),
		OrderType:     OrderTypeFullOpen,
		StartTime:     testHeadTime - 100,
		EndTime:       testHeadTime + 100,
	}
}

func seedListing(backend *chaintest.Backend, seaportAddress, buyer common.Address) {
	backend.SetERC721Owner(tokenERC721, big.NewInt(1), offerer)
	backend.SetApprovalForAll(tokenERC721, offerer, seaportAddress, true)
	backend.SetERC20Balance(tokenERC20, buyer, big.NewInt(1_000))
	backend.SetNativeBalance(buyer, big.NewInt(1_000_000_000_000_000_000))
}

func TestNewClientWithCaller(t *testing.T) {
	caller := chain.NewContractCallerWithBackend(newTestBackend(), nil)

	client, err := NewClientWithCaller(ClientConfig{ChainID: ChainIDMainnet}, caller, nil)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(crossChainSeaport), client.SeaportAddress())
	assert.Equal(t, ChainIDMainnet, client.ChainID())

	_, err = NewClientWithCaller(ClientConfig{ChainID: ChainIDMainnet, SeaportAddress: "seaport"}, caller, nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewClient(ClientConfig{ChainID: ChainIDMainnet}, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestClient_CheckStandardFulfillment(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller, buyer := newSignerCaller(t, backend)
	client, logs := newTestClient(t, caller)
	seedListing(backend, client.SeaportAddress(), buyer)

	req := FulfillmentRequest{Order: listing(), Fulfiller: buyer}

	actions, err := client.CheckStandardFulfillment(ctx, req)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, tokenERC20, actions[0].Token)
	assert.Equal(t, client.SeaportAddress(), actions[0].Operator)
	assert.Equal(t, buyer, actions[0].TransactionMethods.From)
	assert.Equal(t, 1, logs.FilterMessage("approvals required").Len())

	_, err = actions[0].TransactionMethods.Transact(ctx)
	require.NoError(t, err)

	actions, err = client.CheckStandardFulfillment(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestClient_CheckBasicFulfillment(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller, buyer := newSignerCaller(t, backend)
	client, _ := newTestClient(t, caller)
	seedListing(backend, client.SeaportAddress(), buyer)
	backend.SetERC20Allowance(tokenERC20, buyer, client.SeaportAddress(), big.NewInt(1_000))

	actions, err := client.CheckBasicFulfillment(ctx, FulfillmentRequest{Order: listing(), Fulfiller: buyer})
	require.NoError(t, err)
	assert.Empty(t, actions)

	backend.SetERC20Balance(tokenERC20, buyer, big.NewInt(999))
	_, err = client.CheckBasicFulfillment(ctx, FulfillmentRequest{Order: listing(), Fulfiller: buyer})
	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.Equal(t, PartyFulfiller, balanceErr.Party)
}

func TestClient_CheckStandardFulfillment_OffererNotApproved(t *testing.T) {
	backend := newTestBackend()
	caller, buyer := newSignerCaller(t, backend)
	client, _ := newTestClient(t, caller)
	seedListing(backend, client.SeaportAddress(), buyer)
	backend.SetApprovalForAll(tokenERC721, offerer, client.SeaportAddress(), false)

	_, err := client.CheckStandardFulfillment(context.Background(), FulfillmentRequest{Order: listing(), Fulfiller: buyer})
	assert.ErrorIs(t, err, ErrInsufficientApproval)
}

func TestClient_CheckStandardFulfillment_Criteria(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller, seller := newSignerCaller(t, backend)
	client, _ := newTestClient(t, caller)

	// A collection offer: tokenERC20 for any ERC1155 matching the criteria.
	order := OrderParameters{
		Offerer:       offerer,
		Offer:         offerOf(newItem(ItemTypeERC20, tokenERC20, 0, 500, 500)),
		Consideration: considerationOf(offerer, newItem(ItemTypeERC1155WithCriteria, tokenERC1155, 0, 2, 2)),
		StartTime:     testHeadTime - 10,
		EndTime:       testHeadTime + 10,
	}
	backend.SetERC20Balance(tokenERC20, offerer, big.NewInt(500))
	backend.SetERC20Allowance(tokenERC20, offerer, client.SeaportAddress(), big.NewInt(500))
	backend.SetERC1155Balance(tokenERC1155, seller, big.NewInt(77), big.NewInt(2))

	req := FulfillmentRequest{
		Order:                 order,
		Fulfiller:             seller,
		ConsiderationCriteria: []InputCriteria{{Index: 0, Identifier: big.NewInt(77)}},
	}

	actions, err := client.CheckStandardFulfillment(ctx, req)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, tokenERC1155, actions[0].Token)
	assert.Equal(t, int64(77), actions[0].IdentifierOrCriteria.Int64())

	req.ConsiderationCriteria = nil
	_, err = client.CheckStandardFulfillment(ctx, req)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestClient_CheckStandardFulfillment_AscendingAmount(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller, buyer := newSignerCaller(t, backend)
	client, _ := newTestClient(t, caller)
	seedListing(backend, client.SeaportAddress(), buyer)
	backend.SetERC20Allowance(tokenERC20, buyer, client.SeaportAddress(), MaxInt)

	order := listing()
	order.Consideration = considerationOf(offerer, newItem(ItemTypeERC20, tokenERC20, 0, 900, 1_101))

	// Halfway through the window the buyer owes ceil(1000.5) = 1001.
	_, err := client.CheckStandardFulfillment(ctx, FulfillmentRequest{Order: order, Fulfiller: buyer})
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	backend.SetHeadTime(order.StartTime)
	actions, err := client.CheckStandardFulfillment(ctx, FulfillmentRequest{Order: order, Fulfiller: buyer})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestClient_ValidateOfferForCreation(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller := chain.NewContractCallerWithBackend(backend, nil)
	client, _ := newTestClient(t, caller)
	backend.SetERC721Owner(tokenERC721, big.NewInt(1), offerer)

	actions, err := client.ValidateOfferForCreation(ctx, listing(), nil)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, tokenERC721, actions[0].Token)
	assert.Equal(t, offerer, actions[0].TransactionMethods.From)

	backend.SetERC721Owner(tokenERC721, big.NewInt(1), fulfiller)
	_, err = client.ValidateOfferForCreation(ctx, listing(), nil)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestClient_TokenDecimals(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	client, _ := newTestClient(t, chain.NewContractCallerWithBackend(backend, nil))

	decimals, err := client.TokenDecimals(ctx, tokenOther20, true)
	require.NoError(t, err)
	assert.Equal(t, uint8(6), decimals)
	calls := backend.Calls()

	_, err = client.TokenDecimals(ctx, tokenOther20, true)
	require.NoError(t, err)
	assert.Equal(t, calls, backend.Calls(), "served from cache")

	_, err = client.TokenDecimals(ctx, tokenOther20, false)
	require.NoError(t, err)
	assert.Equal(t, calls+1, backend.Calls())

	formatted, err := client.FormatItemAmount(ctx, ItemTypeERC20, tokenOther20, big.NewInt(2_500_000))
	require.NoError(t, err)
	assert.Equal(t, "2.5", formatted)

	formatted, err = client.FormatItemAmount(ctx, ItemTypeERC721, tokenERC721, big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "1", formatted)
}

func TestClient_TokenDecimals_CacheDisabled(t *testing.T) {
	ctx := context.Background()
	backend := newTestBackend()
	caller := chain.NewContractCallerWithBackend(backend, nil)
	client, err := NewClientWithCaller(ClientConfig{ChainID: ChainIDLocalDev, DecimalsCacheTTL: -1}, caller, nil)
	require.NoError(t, err)

	calls := backend.Calls()
	for i := 1; i <= 3; i++ {
		decimals, err := client.TokenDecimals(ctx, tokenOther20, true)
		require.NoError(t, err)
		assert.Equal(t, uint8(6), decimals)
		assert.Equal(t, calls+i, backend.Calls())
	}
}
