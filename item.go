package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// GetPresentItemAmount returns the amount owed for an item at params.CurrentBlockTimestamp.
//
// The calculation mirrors the Seaport contract: offer amounts round down and
// consideration amounts round up. A nil params returns startAmount unchanged.
func GetPresentItemAmount(startAmount, endAmount *big.Int, params *TimeBasedItemParams) (*big.Int, error) {
	if startAmount == nil || endAmount == nil {
		return nil, &ConfigurationError{Message: "item amounts are required"}
	}
	if params == nil || startAmount.Cmp(endAmount) == 0 {
		return new(big.Int).Set(startAmount), nil
	}
	if params.StartTime >= params.EndTime {
		return nil, &ConfigurationError{Message: fmt.Sprintf("start time %d must be before end time %d", params.StartTime, params.EndTime)}
	}

	start, overflow := uint256.FromBig(startAmount)
	if overflow || startAmount.Sign() < 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("start amount out of uint256 range: %s", startAmount.String())}
	}
	end, overflow := uint256.FromBig(endAmount)
	if overflow || endAmount.Sign() < 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("end amount out of uint256 range: %s", endAmount.String())}
	}

	duration := params.EndTime - params.StartTime
	var elapsed uint64
	switch {
	case params.CurrentBlockTimestamp <= params.StartTime:
		elapsed = 0
	case params.CurrentBlockTimestamp >= params.EndTime:
		elapsed = duration
	default:
		elapsed = params.CurrentBlockTimestamp - params.StartTime
	}
	remaining := duration - elapsed

	// (start * remaining + end * elapsed + extraCeiling) / duration
	startPart, overflow := new(uint256.Int).MulOverflow(start, uint256.NewInt(remaining))
	if overflow {
		return nil, errAmountOverflow()
	}
	endPart, overflow := new(uint256.Int).MulOverflow(end, uint256.NewInt(elapsed))
	if overflow {
		return nil, errAmountOverflow()
	}
	total, overflow := new(uint256.Int).AddOverflow(startPart, endPart)
	if overflow {
		return nil, errAmountOverflow()
	}
	if params.IsConsiderationItem {
		total, overflow = total.AddOverflow(total, uint256.NewInt(duration-1))
		if overflow {
			return nil, errAmountOverflow()
		}
	}

	return total.Div(total, uint256.NewInt(duration)).ToBig(), nil
}

func errAmountOverflow() error {
	return &ConfigurationError{Message: "interpolated amount overflows uint256"}
}

// GetItemIndexToCriteriaMap maps the index of every criteria item to the
// identifier supplied for it. Proofs are not verified here.
func GetItemIndexToCriteriaMap[T OrderItem](items []T, criterias []InputCriteria) (map[int]*big.Int, error) {
	byIndex := make(map[int]InputCriteria, len(criterias))
	for _, criteria := range criterias {
		if _, ok := byIndex[criteria.Index]; ok {
			return nil, &ConfigurationError{Message: fmt.Sprintf("duplicate input criteria for item %d", criteria.Index)}
		}
		byIndex[criteria.Index] = criteria
	}

	resolved := make(map[int]*big.Int)
	for index, orderItem := range items {
		item := orderItem.GetItem()
		if !IsCriteriaItem(item.ItemType) {
			continue
		}
		criteria, ok := byIndex[index]
		if !ok || criteria.Identifier == nil {
			return nil, &ConfigurationError{Message: fmt.Sprintf("no input criteria supplied for criteria-based item %d (token %s)", index, item.Token.Hex())}
		}
		resolved[index] = criteria.Identifier
	}

	return resolved, nil
}

// tokenIdentifier keys on the full decimal identifier so that values outside
// the uint256 range never alias an in-range one
type tokenIdentifier struct {
	token      common.Address
	identifier string
}

func newTokenIdentifier(token common.Address, identifier *big.Int) tokenIdentifier {
	if identifier == nil {
		return tokenIdentifier{token: token, identifier: "0"}
	}
	return tokenIdentifier{token: token, identifier: identifier.String()}
}

// TokenIdentifierAmount is one entry of TokenAndIdentifierAmounts
type TokenIdentifierAmount struct {
	Token      common.Address
	Identifier *big.Int
	Amount     *big.Int
}

// TokenAndIdentifierAmounts sums amounts per token and identifier, remembering
// the order in which pairs were first added
type TokenAndIdentifierAmounts struct {
	entries []TokenIdentifierAmount
	index   map[tokenIdentifier]int
}

// NewTokenAndIdentifierAmounts creates an empty aggregate
func NewTokenAndIdentifierAmounts() *TokenAndIdentifierAmounts {
	return &TokenAndIdentifierAmounts{index: make(map[tokenIdentifier]int)}
}

// Add adds amount to the total for token and identifier
func (t *TokenAndIdentifierAmounts) Add(token common.Address, identifier, amount *big.Int) {
	key := newTokenIdentifier(token, identifier)
	if i, ok := t.index[key]; ok {
		t.entries[i].Amount.Add(t.entries[i].Amount, amount)
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, TokenIdentifierAmount{
		Token:      token,
		Identifier: new(big.Int).Set(identifier),
		Amount:     new(big.Int).Set(amount),
	})
}

// Get returns the total for token and identifier, or nil if nothing was added
func (t *TokenAndIdentifierAmounts) Get(token common.Address, identifier *big.Int) *big.Int {
	i, ok := t.index[newTokenIdentifier(token, identifier)]
	if !ok {
		return nil
	}
	return new(big.Int).Set(t.entries[i].Amount)
}

// Len returns the number of distinct pairs
func (t *TokenAndIdentifierAmounts) Len() int {
	return len(t.entries)
}

// Entries returns copies of all totals in first-added order
func (t *TokenAndIdentifierAmounts) Entries() []TokenIdentifierAmount {
	out := make([]TokenIdentifierAmount, len(t.entries))
	for i, entry := range t.entries {
		out[i] = TokenIdentifierAmount{
			Token:      entry.Token,
			Identifier: new(big.Int).Set(entry.Identifier),
			Amount:     new(big.Int).Set(entry.Amount),
		}
	}
	return out
}

// ToMap returns the totals as token -> identifier (decimal string) -> amount
func (t *TokenAndIdentifierAmounts) ToMap() map[common.Address]map[string]*big.Int {
	out := make(map[common.Address]map[string]*big.Int)
	for _, entry := range t.entries {
		if out[entry.Token] == nil {
			out[entry.Token] = make(map[string]*big.Int)
		}
		out[entry.Token][entry.Identifier.String()] = new(big.Int).Set(entry.Amount)
	}
	return out
}

// GetSummedTokenAndIdentifierAmounts sums the present amount of every item per
// token and identifier. Native currency is keyed under the zero address.
func GetSummedTokenAndIdentifierAmounts[T OrderItem](items []T, criterias []InputCriteria, params *TimeBasedItemParams) (*TokenAndIdentifierAmounts, error) {
	return sumItems(items, criterias, params, nil)
}

// sumItems aggregates items, skipping those for which exempt returns true.
// Criteria indices always refer to positions in the full items slice.
func sumItems[T OrderItem](items []T, criterias []InputCriteria, params *TimeBasedItemParams, exempt func(Item) bool) (*TokenAndIdentifierAmounts, error) {
	resolved, err := GetItemIndexToCriteriaMap(items, criterias)
	if err != nil {
		return nil, err
	}

	amounts := NewTokenAndIdentifierAmounts()
	for index, orderItem := range items {
		item := orderItem.GetItem()
		if exempt != nil && exempt(item) {
			continue
		}

		amount, err := GetPresentItemAmount(item.StartAmount, item.EndAmount, params)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", index, err)
		}

		amounts.Add(item.Token, itemIdentifier(item, index, resolved), amount)
	}

	return amounts, nil
}

func itemIdentifier(item Item, index int, resolved map[int]*big.Int) *big.Int {
	if identifier, ok := resolved[index]; ok {
		return identifier
	}
	if item.IdentifierOrCriteria == nil {
		return new(big.Int)
	}
	return item.IdentifierOrCriteria
}
