package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// snapshotIndex locates snapshot entries by token and identifier. The first
// entry wins when a snapshot holds duplicates.
type snapshotIndex map[tokenIdentifier]int

func newSnapshotIndex(snapshot BalancesAndApprovals) snapshotIndex {
	index := make(snapshotIndex, len(snapshot))
	for i, entry := range snapshot {
		key := newTokenIdentifier(entry.Token, entry.IdentifierOrCriteria)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}
	return index
}

func (idx snapshotIndex) find(token common.Address, identifier *big.Int) (int, error) {
	i, ok := idx[newTokenIdentifier(token, identifier)]
	if !ok {
		return 0, &LookupError{Token: token, Identifier: cloneInt(identifier)}
	}
	return i, nil
}

// FindBalanceAndApproval returns the first snapshot entry for token and identifier
func FindBalanceAndApproval(snapshot BalancesAndApprovals, token common.Address, identifier *big.Int) (BalanceAndApproval, error) {
	i, err := newSnapshotIndex(snapshot).find(token, identifier)
	if err != nil {
		return BalanceAndApproval{}, err
	}
	return snapshot[i], nil
}

// GetInsufficientBalanceAndApprovalAmounts compares required amounts with a
// snapshot. A pair is insufficient when the snapshot value is strictly below
// the requirement. Results follow the order requirements were aggregated in.
func GetInsufficientBalanceAndApprovalAmounts(
	snapshot BalancesAndApprovals,
	amounts *TokenAndIdentifierAmounts,
	operator common.Address,
) (InsufficientBalanceAndApprovalAmounts, error) {
	var result InsufficientBalanceAndApprovalAmounts
	index := newSnapshotIndex(snapshot)

	for _, needed := range amounts.Entries() {
		i, err := index.find(needed.Token, needed.Identifier)
		if err != nil {
			return InsufficientBalanceAndApprovalAmounts{}, err
		}
		entry := snapshot[i]

		if valueOrZero(entry.Balance).Cmp(needed.Amount) < 0 {
			result.InsufficientBalances = append(result.InsufficientBalances, InsufficientBalance{
				Token:                needed.Token,
				IdentifierOrCriteria: needed.Identifier,
				RequiredAmount:       needed.Amount,
				AmountHave:           cloneInt(valueOrZero(entry.Balance)),
				ItemType:             entry.ItemType,
			})
		}

		if valueOrZero(entry.ApprovedAmount).Cmp(needed.Amount) < 0 {
			result.InsufficientApprovals = append(result.InsufficientApprovals, InsufficientApproval{
				Token:                  needed.Token,
				IdentifierOrCriteria:   needed.Identifier,
				ApprovedAmount:         cloneInt(valueOrZero(entry.ApprovedAmount)),
				RequiredApprovedAmount: new(big.Int).Set(needed.Amount),
				Operator:               operator,
				ItemType:               entry.ItemType,
			})
		}
	}

	return result, nil
}

// partyCheck is the policy applied to one side of a fulfillment
type partyCheck struct {
	side     Side
	operator common.Address
	// exempt skips items the party does not have to source itself
	exempt func(Item) bool
	// receive is credited to the party's balances before checking
	receive *TokenAndIdentifierAmounts
}

// checkParty aggregates items under the policy and diffs them against snapshot
func checkParty[T OrderItem](
	items []T,
	criterias []InputCriteria,
	snapshot BalancesAndApprovals,
	params *TimeBasedItemParams,
	policy partyCheck,
) (InsufficientBalanceAndApprovalAmounts, error) {
	amounts, err := sumItems(items, criterias, paramsForSide(params, policy.side), policy.exempt)
	if err != nil {
		return InsufficientBalanceAndApprovalAmounts{}, err
	}

	if policy.receive != nil {
		snapshot, err = creditBalances(snapshot, policy.receive)
		if err != nil {
			return InsufficientBalanceAndApprovalAmounts{}, err
		}
	}

	return GetInsufficientBalanceAndApprovalAmounts(snapshot, amounts, policy.operator)
}

// creditBalances returns a deep copy of snapshot with received added to the
// matching balances. The input snapshot is never modified.
func creditBalances(snapshot BalancesAndApprovals, received *TokenAndIdentifierAmounts) (BalancesAndApprovals, error) {
	adjusted := snapshot.Clone()
	index := newSnapshotIndex(adjusted)

	for _, entry := range received.Entries() {
		i, err := index.find(entry.Token, entry.Identifier)
		if err != nil {
			return nil, err
		}
		adjusted[i].Balance = new(big.Int).Add(valueOrZero(adjusted[i].Balance), entry.Amount)
	}

	return adjusted, nil
}

func paramsForSide(params *TimeBasedItemParams, side Side) *TimeBasedItemParams {
	if params == nil {
		return nil
	}
	p := params.ForSide(side)
	return &p
}

// OfferValidationOptions tunes ValidateOfferBalancesAndApprovals. The zero
// value fails on insufficient balances and reports insufficient approvals.
type OfferValidationOptions struct {
	// TimeBasedItemParams resolves ascending and descending amounts; nil uses start amounts
	TimeBasedItemParams *TimeBasedItemParams
	// IgnoreInsufficientBalances returns approvals even when balances fall short
	IgnoreInsufficientBalances bool
	// FailOnInsufficientApprovals turns insufficient approvals into an error
	FailOnInsufficientApprovals bool
}

// ValidateOfferBalancesAndApprovals checks that the offerer holds and has
// approved everything offered:
//  1. The offerer should have sufficient balance of all offered items.
//  2. The offerer should have sufficient approvals set for the operator for all
//     offered ERC20, ERC721 and ERC1155 items.
func ValidateOfferBalancesAndApprovals(
	offer []OfferItem,
	criterias []InputCriteria,
	snapshot BalancesAndApprovals,
	operator common.Address,
	opts OfferValidationOptions,
) ([]InsufficientApproval, error) {
	result, err := checkParty(offer, criterias, snapshot, opts.TimeBasedItemParams, partyCheck{
		side:     SideOffer,
		operator: operator,
	})
	if err != nil {
		return nil, err
	}

	if !opts.IgnoreInsufficientBalances && len(result.InsufficientBalances) > 0 {
		return nil, &InsufficientBalanceError{Party: PartyOfferer, Balances: result.InsufficientBalances}
	}

	if opts.FailOnInsufficientApprovals && len(result.InsufficientApprovals) > 0 {
		return nil, &InsufficientApprovalError{Party: PartyOfferer, Approvals: result.InsufficientApprovals}
	}

	return result.InsufficientApprovals, nil
}

// BasicFulfillValidation holds the inputs of ValidateBasicFulfillBalancesAndApprovals
type BasicFulfillValidation struct {
	Offer                         []OfferItem
	Consideration                 []ConsiderationItem
	OffererBalancesAndApprovals   BalancesAndApprovals
	FulfillerBalancesAndApprovals BalancesAndApprovals
	TimeBasedItemParams           *TimeBasedItemParams
	OffererOperator               common.Address
	FulfillerOperator             common.Address
}

// ValidateBasicFulfillBalancesAndApprovals checks a basic order fulfillment:
//  1. The offerer still has sufficient balance and approvals.
//  2. The fulfiller has sufficient balance of all consideration items except
//     those whose item type matches the offered item type, which are sourced
//     from the offerer.
//  3. Fulfiller approvals to the fulfiller operator are returned, not failed on.
func ValidateBasicFulfillBalancesAndApprovals(in BasicFulfillValidation) ([]InsufficientApproval, error) {
	if len(in.Offer) == 0 {
		return nil, &ConfigurationError{Message: "basic order fulfillment requires an offer item"}
	}

	_, err := ValidateOfferBalancesAndApprovals(in.Offer, nil, in.OffererBalancesAndApprovals, in.OffererOperator, OfferValidationOptions{
		TimeBasedItemParams:         in.TimeBasedItemParams,
		FailOnInsufficientApprovals: true,
	})
	if err != nil {
		return nil, err
	}

	offeredItemType := in.Offer[0].ItemType
	result, err := checkParty(in.Consideration, nil, in.FulfillerBalancesAndApprovals, in.TimeBasedItemParams, partyCheck{
		side:     SideConsideration,
		operator: in.FulfillerOperator,
		exempt: func(item Item) bool {
			return item.ItemType == offeredItemType
		},
	})
	if err != nil {
		return nil, err
	}

	if len(result.InsufficientBalances) > 0 {
		return nil, &InsufficientBalanceError{Party: PartyFulfiller, Balances: result.InsufficientBalances}
	}

	return result.InsufficientApprovals, nil
}

// StandardFulfillValidation holds the inputs of ValidateStandardFulfillBalancesAndApprovals
type StandardFulfillValidation struct {
	Offer                         []OfferItem
	Consideration                 []ConsiderationItem
	OfferCriteria                 []InputCriteria
	ConsiderationCriteria         []InputCriteria
	OffererBalancesAndApprovals   BalancesAndApprovals
	FulfillerBalancesAndApprovals BalancesAndApprovals
	TimeBasedItemParams           *TimeBasedItemParams
	OffererOperator               common.Address
	FulfillerOperator             common.Address
}

// ValidateStandardFulfillBalancesAndApprovals checks a standard order fulfillment:
//  1. The offerer still has sufficient balance and approvals.
//  2. The fulfiller has sufficient balance of all consideration items after
//     receiving all offered items.
//  3. Fulfiller approvals to the fulfiller operator are returned, not failed on.
//
// The fulfiller snapshot must contain an entry for every offered token and identifier.
func ValidateStandardFulfillBalancesAndApprovals(in StandardFulfillValidation) ([]InsufficientApproval, error) {
	_, err := ValidateOfferBalancesAndApprovals(in.Offer, in.OfferCriteria, in.OffererBalancesAndApprovals, in.OffererOperator, OfferValidationOptions{
		TimeBasedItemParams:         in.TimeBasedItemParams,
		FailOnInsufficientApprovals: true,
	})
	if err != nil {
		return nil, err
	}

	received, err := GetSummedTokenAndIdentifierAmounts(in.Offer, in.OfferCriteria, paramsForSide(in.TimeBasedItemParams, SideOffer))
	if err != nil {
		return nil, err
	}

	result, err := checkParty(in.Consideration, in.ConsiderationCriteria, in.FulfillerBalancesAndApprovals, in.TimeBasedItemParams, partyCheck{
		side:     SideConsideration,
		operator: in.FulfillerOperator,
		receive:  received,
	})
	if err != nil {
		return nil, fmt.Errorf("fulfiller: %w", err)
	}

	if len(result.InsufficientBalances) > 0 {
		return nil, &InsufficientBalanceError{Party: PartyFulfiller, Balances: result.InsufficientBalances}
	}

	return result.InsufficientApprovals, nil
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
