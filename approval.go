package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/kaifufi/seaport-sdk-go/chain"
)

// ApprovalTransactor builds approval transactions. *chain.ContractCaller implements it.
type ApprovalTransactor interface {
	ApproveERC20(token, spender common.Address, amount *big.Int, from common.Address) (*chain.TransactionMethods, error)
	SetApprovalForAll(token, operator common.Address, approved bool, from common.Address) (*chain.TransactionMethods, error)
	SignerAddress() common.Address
}

// GetApprovalActions turns insufficient approvals into approval transactions.
//
// Findings are collapsed to one action per token, keeping the last finding for
// a token and ordering actions by the first time each token was seen. ERC721
// and ERC1155 tokens get setApprovalForAll(operator, true); ERC20 tokens get
// approve(operator, MaxInt). Native currency findings need no approval and are
// skipped. Transactions are sent from callerAddress when set, otherwise from the
// transactor's signer. Nothing is submitted.
func GetApprovalActions(insufficientApprovals []InsufficientApproval, transactor ApprovalTransactor, callerAddress *common.Address) ([]ApprovalAction, error) {
	if len(insufficientApprovals) == 0 {
		return nil, nil
	}

	from := transactor.SignerAddress()
	if callerAddress != nil {
		from = *callerAddress
	}
	if from == (common.Address{}) {
		return nil, &ConfigurationError{Message: "no address to send approvals from"}
	}

	var order []common.Address
	latest := make(map[common.Address]InsufficientApproval, len(insufficientApprovals))
	for _, approval := range insufficientApprovals {
		if IsNativeCurrencyItem(approval.ItemType) {
			continue
		}
		if _, seen := latest[approval.Token]; !seen {
			order = append(order, approval.Token)
		}
		latest[approval.Token] = approval
	}

	actions := make([]ApprovalAction, 0, len(order))
	for _, token := range order {
		approval := latest[token]

		var (
			tx  *chain.TransactionMethods
			err error
		)
		if IsERC721Item(approval.ItemType) || IsERC1155Item(approval.ItemType) {
			tx, err = transactor.SetApprovalForAll(approval.Token, approval.Operator, true, from)
		} else {
			tx, err = transactor.ApproveERC20(approval.Token, approval.Operator, MaxInt, from)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build approval for %s: %w", approval.Token.Hex(), err)
		}

		actions = append(actions, ApprovalAction{
			Token:                approval.Token,
			IdentifierOrCriteria: cloneInt(approval.IdentifierOrCriteria),
			ItemType:             approval.ItemType,
			Operator:             approval.Operator,
			TransactionMethods:   tx,
		})
	}

	return actions, nil
}
