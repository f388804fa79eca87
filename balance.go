package seaport

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DefaultSnapshotConcurrency bounds the chain queries in flight per snapshot
const DefaultSnapshotConcurrency = 8

// BalanceReader reads token balances. *chain.ContractCaller implements it.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	ERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error)
	ERC721OwnerOf(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error)
	ERC1155Balance(ctx context.Context, token, account common.Address, id *big.Int) (*big.Int, error)
}

// ApprovalReader reads operator approvals. *chain.ContractCaller implements it.
type ApprovalReader interface {
	ERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error)
}

// ChainReader combines the balance and approval reads a snapshot needs
type ChainReader interface {
	BalanceReader
	ApprovalReader
}

// SnapshotOptions tunes GetBalancesAndApprovals
type SnapshotOptions struct {
	// Concurrency bounds in-flight queries; zero means DefaultSnapshotConcurrency
	Concurrency int
}

// BalanceOf returns owner's balance of item. ERC721 balances are 1 if owner
// holds identifier and 0 otherwise.
func BalanceOf(ctx context.Context, reader BalanceReader, owner common.Address, item Item, identifier *big.Int) (*big.Int, error) {
	switch {
	case IsNativeCurrencyItem(item.ItemType):
		return reader.NativeBalance(ctx, owner)
	case IsERC20Item(item.ItemType):
		return reader.ERC20Balance(ctx, item.Token, owner)
	case IsERC721Item(item.ItemType):
		tokenOwner, err := reader.ERC721OwnerOf(ctx, item.Token, identifier)
		if err != nil {
			return nil, err
		}
		if tokenOwner == owner {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case IsERC1155Item(item.ItemType):
		return reader.ERC1155Balance(ctx, item.Token, owner, identifier)
	}
	return nil, &ConfigurationError{Message: fmt.Sprintf("unknown item type %d", item.ItemType)}
}

// ApprovedItemAmount returns how much of item operator may move for owner.
// Native currency needs no approval and operator-wide approvals are all or
// nothing, so both report MaxInt when nothing limits the transfer.
func ApprovedItemAmount(ctx context.Context, reader ApprovalReader, owner common.Address, item Item, operator common.Address) (*big.Int, error) {
	switch {
	case IsERC721Item(item.ItemType) || IsERC1155Item(item.ItemType):
		approved, err := reader.IsApprovedForAll(ctx, item.Token, owner, operator)
		if err != nil {
			return nil, err
		}
		if approved {
			return new(big.Int).Set(MaxInt), nil
		}
		return big.NewInt(0), nil
	case IsERC20Item(item.ItemType):
		return reader.ERC20Allowance(ctx, item.Token, owner, operator)
	}
	return new(big.Int).Set(MaxInt), nil
}

// GetBalancesAndApprovals snapshots owner's balance and approval to operator
// for every item. The result has one entry per item in the same order; nothing
// is deduplicated. Any failed query fails the whole snapshot.
func GetBalancesAndApprovals[T OrderItem](
	ctx context.Context,
	reader ChainReader,
	owner common.Address,
	items []T,
	criterias []InputCriteria,
	operator common.Address,
	opts SnapshotOptions,
) (BalancesAndApprovals, error) {
	resolved, err := GetItemIndexToCriteriaMap(items, criterias)
	if err != nil {
		return nil, err
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultSnapshotConcurrency
	}

	snapshot := make(BalancesAndApprovals, len(items))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	for index, orderItem := range items {
		index, item := index, orderItem.GetItem()
		identifier := itemIdentifier(item, index, resolved)

		group.Go(func() error {
			balance, err := BalanceOf(groupCtx, reader, owner, item, identifier)
			if err != nil {
				return fmt.Errorf("failed to get balance for item %d: %w", index, err)
			}

			approvedAmount, err := ApprovedItemAmount(groupCtx, reader, owner, item, operator)
			if err != nil {
				return fmt.Errorf("failed to get approval for item %d: %w", index, err)
			}

			snapshot[index] = BalanceAndApproval{
				Token:                item.Token,
				IdentifierOrCriteria: new(big.Int).Set(identifier),
				Balance:              balance,
				ApprovedAmount:       approvedAmount,
				ItemType:             item.ItemType,
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return snapshot, nil
}
