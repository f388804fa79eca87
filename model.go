package seaport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/seaport-sdk-go/chain"
)

// ItemType represents the token standard of an offer or consideration item
type ItemType int

const (
	ItemTypeNative ItemType = iota
	ItemTypeERC20
	ItemTypeERC721
	ItemTypeERC1155
	ItemTypeERC721WithCriteria
	ItemTypeERC1155WithCriteria
)

// Side represents the role an item plays in an order
type Side int

const (
	SideOffer Side = iota
	SideConsideration
)

// OrderType represents the fill and restriction mode of an order
type OrderType int

const (
	OrderTypeFullOpen          OrderType = iota // No partial fills, anyone can execute
	OrderTypePartialOpen                        // Partial fills supported, anyone can execute
	OrderTypeFullRestricted                     // No partial fills, only offerer or zone can execute
	OrderTypePartialRestricted                  // Partial fills supported, only offerer or zone can execute
)

// Item holds the fields shared by offer and consideration items
type Item struct {
	ItemType             ItemType       `json:"itemType"`
	Token                common.Address `json:"token"`
	IdentifierOrCriteria *big.Int       `json:"identifierOrCriteria"`
	StartAmount          *big.Int       `json:"startAmount"`
	EndAmount            *big.Int       `json:"endAmount"`
}

// GetItem returns the shared item fields
func (i Item) GetItem() Item {
	return i
}

// OfferItem is an item given up by the offerer
type OfferItem struct {
	Item
}

// ConsiderationItem is an item the offerer requires to be sent to Recipient
type ConsiderationItem struct {
	Item
	Recipient common.Address `json:"recipient"`
}

// OrderItem is implemented by OfferItem and ConsiderationItem
type OrderItem interface {
	GetItem() Item
}

// OrderParameters holds the parts of an order the balance checks read
type OrderParameters struct {
	Offerer       common.Address      `json:"offerer"`
	Offer         []OfferItem         `json:"offer"`
	Consideration []ConsiderationItem `json:"consideration"`
	OrderType     OrderType           `json:"orderType"`
	StartTime     uint64              `json:"startTime"`
	EndTime       uint64              `json:"endTime"`
}

// InputCriteria supplies the concrete identifier for the criteria item at Index
type InputCriteria struct {
	Index      int           `json:"index"`
	Identifier *big.Int      `json:"identifier"`
	Proof      []common.Hash `json:"proof"`
}

// TimeBasedItemParams describes when an order is executed so ascending and
// descending amounts can be resolved
type TimeBasedItemParams struct {
	StartTime             uint64
	EndTime               uint64
	CurrentBlockTimestamp uint64
	IsConsiderationItem   bool
}

// ForSide returns a copy of the params rounding for side
func (p TimeBasedItemParams) ForSide(side Side) TimeBasedItemParams {
	p.IsConsiderationItem = side == SideConsideration
	return p
}

// BalanceAndApproval is a snapshot of one party's holding of one asset
type BalanceAndApproval struct {
	Token                common.Address
	IdentifierOrCriteria *big.Int
	Balance              *big.Int
	ApprovedAmount       *big.Int
	ItemType             ItemType
}

// Clone returns a deep copy
func (b BalanceAndApproval) Clone() BalanceAndApproval {
	return BalanceAndApproval{
		Token:                b.Token,
		IdentifierOrCriteria: cloneInt(b.IdentifierOrCriteria),
		Balance:              cloneInt(b.Balance),
		ApprovedAmount:       cloneInt(b.ApprovedAmount),
		ItemType:             b.ItemType,
	}
}

// BalancesAndApprovals is a snapshot with one entry per item
type BalancesAndApprovals []BalanceAndApproval

// Clone returns a deep copy of every entry
func (s BalancesAndApprovals) Clone() BalancesAndApprovals {
	cloned := make(BalancesAndApprovals, len(s))
	for i, entry := range s {
		cloned[i] = entry.Clone()
	}
	return cloned
}

// InsufficientBalance reports an asset whose balance is below the required amount
type InsufficientBalance struct {
	Token                common.Address
	IdentifierOrCriteria *big.Int
	RequiredAmount       *big.Int
	AmountHave           *big.Int
	ItemType             ItemType
}

// InsufficientApproval reports an asset whose approval to Operator is below the required amount
type InsufficientApproval struct {
	Token                  common.Address
	IdentifierOrCriteria   *big.Int
	ApprovedAmount         *big.Int
	RequiredApprovedAmount *big.Int
	Operator               common.Address
	ItemType               ItemType
}

// InsufficientBalanceAndApprovalAmounts groups the deficits found for one party
type InsufficientBalanceAndApprovalAmounts struct {
	InsufficientBalances  []InsufficientBalance
	InsufficientApprovals []InsufficientApproval
}

// ApprovalAction is an approval the caller must submit before retrying
type ApprovalAction struct {
	Token                common.Address
	IdentifierOrCriteria *big.Int
	ItemType             ItemType
	Operator             common.Address
	TransactionMethods   *chain.TransactionMethods
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
