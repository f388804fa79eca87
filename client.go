package seaport

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/kaifufi/seaport-sdk-go/chain"
)

// Caller is the chain access the Client needs. *chain.ContractCaller implements it.
type Caller interface {
	ChainReader
	ApprovalTransactor
	CurrentBlockTimestamp(ctx context.Context) (uint64, error)
	ERC20Decimals(ctx context.Context, token common.Address) (uint8, error)
	Close()
}

// Client is the main SDK client
type Client struct {
	caller              Caller
	chainID             ChainID
	seaportAddress      common.Address
	snapshotConcurrency int
	log                 *zap.SugaredLogger

	decimalsCache    map[common.Address]cacheEntry
	decimalsCacheTTL time.Duration
	cacheMutex       sync.RWMutex
}

type cacheEntry struct {
	decimals  uint8
	timestamp time.Time
}

// NewClient dials config.RPCURL and creates a new Seaport SDK client.
// A nil logger disables logging.
func NewClient(config ClientConfig, logger *zap.Logger) (*Client, error) {
	if config.RPCURL == "" {
		return nil, &ConfigurationError{Message: "rpc_url is required"}
	}

	contractCaller, err := chain.NewContractCaller(config.RPCURL, config.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create contract caller: %w", err)
	}

	client, err := NewClientWithCaller(config, contractCaller, logger)
	if err != nil {
		contractCaller.Close()
		return nil, err
	}
	return client, nil
}

// NewClientWithCaller creates a client over an existing caller. RPCURL and
// PrivateKey in config are ignored.
func NewClientWithCaller(config ClientConfig, caller Caller, logger *zap.Logger) (*Client, error) {
	config, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(config.SeaportAddress) {
		return nil, &ConfigurationError{Message: fmt.Sprintf("invalid seaport address: %s", config.SeaportAddress)}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		caller:              caller,
		chainID:             config.ChainID,
		seaportAddress:      common.HexToAddress(config.SeaportAddress),
		snapshotConcurrency: config.SnapshotConcurrency,
		log:                 logger.Sugar().With("chain_id", int(config.ChainID)),
		decimalsCache:       make(map[common.Address]cacheEntry),
		decimalsCacheTTL:    config.DecimalsCacheTTL,
	}, nil
}

// Close closes the client and cleans up resources
func (c *Client) Close() {
	if c.caller != nil {
		c.caller.Close()
	}
}

// ChainID returns the configured chain
func (c *Client) ChainID() ChainID {
	return c.chainID
}

// SeaportAddress returns the Seaport contract used as the default operator
func (c *Client) SeaportAddress() common.Address {
	return c.seaportAddress
}

// GetBalancesAndApprovals snapshots owner's holdings of items and their approval to operator
func (c *Client) GetBalancesAndApprovals(ctx context.Context, owner common.Address, items []Item, criterias []InputCriteria, operator common.Address) (BalancesAndApprovals, error) {
	snapshot, err := GetBalancesAndApprovals(ctx, c.caller, owner, items, criterias, c.operatorOrDefault(operator), SnapshotOptions{
		Concurrency: c.snapshotConcurrency,
	})
	if err != nil {
		c.log.Warnw("snapshot failed", "owner", owner.Hex(), "items", len(items), "error", err)
		return nil, err
	}

	c.log.Debugw("snapshot built", "owner", owner.Hex(), "entries", len(snapshot))
	return snapshot, nil
}

// GetTimeBasedItemParams returns the params for an order window evaluated at the latest block
func (c *Client) GetTimeBasedItemParams(ctx context.Context, startTime, endTime uint64) (*TimeBasedItemParams, error) {
	timestamp, err := c.caller.CurrentBlockTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	return &TimeBasedItemParams{
		StartTime:             startTime,
		EndTime:               endTime,
		CurrentBlockTimestamp: timestamp,
	}, nil
}

// ValidateOfferForCreation checks that the offerer of an order about to be
// created holds everything offered, and returns the approvals they still
// need to give the Seaport contract. Start amounts are used.
func (c *Client) ValidateOfferForCreation(ctx context.Context, order OrderParameters, offerCriteria []InputCriteria) ([]ApprovalAction, error) {
	items := offerItems(order.Offer)

	snapshot, err := c.GetBalancesAndApprovals(ctx, order.Offerer, items, offerCriteria, c.seaportAddress)
	if err != nil {
		return nil, err
	}

	insufficient, err := ValidateOfferBalancesAndApprovals(order.Offer, offerCriteria, snapshot, c.seaportAddress, OfferValidationOptions{})
	if err != nil {
		c.log.Infow("offer validation failed", "offerer", order.Offerer.Hex(), "error", err)
		return nil, err
	}

	offerer := order.Offerer
	return c.GetApprovalActions(insufficient, &offerer)
}

// FulfillmentRequest describes a fulfiller about to fill an order
type FulfillmentRequest struct {
	Order                 OrderParameters
	Fulfiller             common.Address
	OfferCriteria         []InputCriteria
	ConsiderationCriteria []InputCriteria
	// OffererOperator and FulfillerOperator default to the Seaport address
	OffererOperator   common.Address
	FulfillerOperator common.Address
}

// CheckBasicFulfillment validates a basic order fulfillment against current
// chain state and returns the approvals the fulfiller still has to submit
func (c *Client) CheckBasicFulfillment(ctx context.Context, req FulfillmentRequest) ([]ApprovalAction, error) {
	state, err := c.fulfillmentState(ctx, req)
	if err != nil {
		return nil, err
	}

	insufficient, err := ValidateBasicFulfillBalancesAndApprovals(BasicFulfillValidation{
		Offer:                         req.Order.Offer,
		Consideration:                 req.Order.Consideration,
		OffererBalancesAndApprovals:   state.offerer,
		FulfillerBalancesAndApprovals: state.fulfiller,
		TimeBasedItemParams:           state.params,
		OffererOperator:               state.offererOperator,
		FulfillerOperator:             state.fulfillerOperator,
	})
	if err != nil {
		c.log.Infow("basic fulfillment rejected", "offerer", req.Order.Offerer.Hex(), "fulfiller", req.Fulfiller.Hex(), "error", err)
		return nil, err
	}

	fulfiller := req.Fulfiller
	return c.GetApprovalActions(insufficient, &fulfiller)
}

// CheckStandardFulfillment validates a standard order fulfillment against
// current chain state and returns the approvals the fulfiller still has to submit
func (c *Client) CheckStandardFulfillment(ctx context.Context, req FulfillmentRequest) ([]ApprovalAction, error) {
	state, err := c.fulfillmentState(ctx, req)
	if err != nil {
		return nil, err
	}

	insufficient, err := ValidateStandardFulfillBalancesAndApprovals(StandardFulfillValidation{
		Offer:                         req.Order.Offer,
		Consideration:                 req.Order.Consideration,
		OfferCriteria:                 req.OfferCriteria,
		ConsiderationCriteria:         req.ConsiderationCriteria,
		OffererBalancesAndApprovals:   state.offerer,
		FulfillerBalancesAndApprovals: state.fulfiller,
		TimeBasedItemParams:           state.params,
		OffererOperator:               state.offererOperator,
		FulfillerOperator:             state.fulfillerOperator,
	})
	if err != nil {
		c.log.Infow("standard fulfillment rejected", "offerer", req.Order.Offerer.Hex(), "fulfiller", req.Fulfiller.Hex(), "error", err)
		return nil, err
	}

	fulfiller := req.Fulfiller
	return c.GetApprovalActions(insufficient, &fulfiller)
}

// GetApprovalActions builds approval transactions for insufficient approvals.
// A nil callerAddress sends them from the configured signer.
func (c *Client) GetApprovalActions(insufficientApprovals []InsufficientApproval, callerAddress *common.Address) ([]ApprovalAction, error) {
	actions, err := GetApprovalActions(insufficientApprovals, c.caller, callerAddress)
	if err != nil {
		return nil, err
	}

	for _, action := range actions {
		c.log.Debugw("approval required",
			"token", action.Token.Hex(),
			"item_type", int(action.ItemType),
			"operator", action.Operator.Hex(),
		)
	}
	if len(actions) > 0 {
		c.log.Infow("approvals required", "count", len(actions))
	}

	return actions, nil
}

// TokenDecimals returns the decimals of an ERC20 token
func (c *Client) TokenDecimals(ctx context.Context, token common.Address, useCache bool) (uint8, error) {
	c.cacheMutex.RLock()
	if useCache && c.decimalsCacheTTL > 0 {
		if entry, ok := c.decimalsCache[token]; ok {
			if time.Since(entry.timestamp) < c.decimalsCacheTTL {
				c.cacheMutex.RUnlock()
				return entry.decimals, nil
			}
		}
	}
	c.cacheMutex.RUnlock()

	decimals, err := c.caller.ERC20Decimals(ctx, token)
	if err != nil {
		return 0, err
	}

	c.cacheMutex.Lock()
	if c.decimalsCacheTTL > 0 {
		c.decimalsCache[token] = cacheEntry{
			decimals:  decimals,
			timestamp: time.Now(),
		}
	}
	c.cacheMutex.Unlock()

	return decimals, nil
}

type fulfillmentState struct {
	offerer           BalancesAndApprovals
	fulfiller         BalancesAndApprovals
	params            *TimeBasedItemParams
	offererOperator   common.Address
	fulfillerOperator common.Address
}

// fulfillmentState reads both snapshots and the time params of req.
// The fulfiller snapshot covers offer and consideration items so received
// offer amounts can be credited.
func (c *Client) fulfillmentState(ctx context.Context, req FulfillmentRequest) (*fulfillmentState, error) {
	state := &fulfillmentState{
		offererOperator:   c.operatorOrDefault(req.OffererOperator),
		fulfillerOperator: c.operatorOrDefault(req.FulfillerOperator),
	}

	params, err := c.GetTimeBasedItemParams(ctx, req.Order.StartTime, req.Order.EndTime)
	if err != nil {
		return nil, err
	}
	state.params = params

	state.offerer, err = c.GetBalancesAndApprovals(ctx, req.Order.Offerer, offerItems(req.Order.Offer), req.OfferCriteria, state.offererOperator)
	if err != nil {
		return nil, fmt.Errorf("offerer snapshot: %w", err)
	}

	items, criterias := fulfillerItems(req)
	state.fulfiller, err = c.GetBalancesAndApprovals(ctx, req.Fulfiller, items, criterias, state.fulfillerOperator)
	if err != nil {
		return nil, fmt.Errorf("fulfiller snapshot: %w", err)
	}

	return state, nil
}

func (c *Client) operatorOrDefault(operator common.Address) common.Address {
	if operator == (common.Address{}) {
		return c.seaportAddress
	}
	return operator
}

func offerItems(offer []OfferItem) []Item {
	items := make([]Item, len(offer))
	for i, item := range offer {
		items[i] = item.Item
	}
	return items
}

// fulfillerItems concatenates offer and consideration items, shifting
// consideration criteria past the offer items
func fulfillerItems(req FulfillmentRequest) ([]Item, []InputCriteria) {
	items := offerItems(req.Order.Offer)
	for _, item := range req.Order.Consideration {
		items = append(items, item.Item)
	}

	criterias := make([]InputCriteria, 0, len(req.OfferCriteria)+len(req.ConsiderationCriteria))
	criterias = append(criterias, req.OfferCriteria...)
	for _, criteria := range req.ConsiderationCriteria {
		criteria.Index += len(req.Order.Offer)
		criterias = append(criterias, criteria)
	}

	return items, criterias
}

// FormatItemAmount renders amount in whole units. Native currency uses 18
// decimals, ERC20 tokens their own decimals, and NFTs are printed as counts.
func (c *Client) FormatItemAmount(ctx context.Context, itemType ItemType, token common.Address, amount *big.Int) (string, error) {
	switch {
	case IsNativeCurrencyItem(itemType):
		return FormatUnits(amount, 18), nil
	case IsERC20Item(itemType):
		decimals, err := c.TokenDecimals(ctx, token, true)
		if err != nil {
			return "", err
		}
		return FormatUnits(amount, int(decimals)), nil
	}
	return FormatUnits(amount, 0), nil
}
