package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ErrNoSigner is returned when a transaction is sent by a caller without a private key
var ErrNoSigner = errors.New("no signer configured")

// Backend is the subset of *ethclient.Client the caller depends on
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

// ContractCaller handles token contract reads and builds approval transactions
type ContractCaller struct {
	client          Backend
	privateKey      *ecdsa.PrivateKey
	receiptTimeout  time.Duration
	receiptInterval time.Duration
}

// NewContractCaller dials rpcURL and creates a new ContractCaller.
// privateKeyHex may be empty for read-only use.
func NewContractCaller(rpcURL string, privateKeyHex string) (*ContractCaller, error) {
	var privateKey *ecdsa.PrivateKey
	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(privateKeyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		privateKey = key
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return NewContractCallerWithBackend(client, privateKey), nil
}

// NewContractCallerWithBackend creates a ContractCaller over an existing backend
func NewContractCallerWithBackend(backend Backend, privateKey *ecdsa.PrivateKey) *ContractCaller {
	return &ContractCaller{
		client:          backend,
		privateKey:      privateKey,
		receiptTimeout:  120 * time.Second,
		receiptInterval: 2 * time.Second,
	}
}

// SignerAddress returns the address of the signer, or the zero address in read-only mode
func (cc *ContractCaller) SignerAddress() common.Address {
	if cc.privateKey == nil {
		return common.Address{}
	}
	publicKey := cc.privateKey.Public()
	publicKeyECDSA, _ := publicKey.(*ecdsa.PublicKey)
	return crypto.PubkeyToAddress(*publicKeyECDSA)
}

// CurrentBlockTimestamp returns the timestamp of the latest block
func (cc *ContractCaller) CurrentBlockTimestamp(ctx context.Context) (uint64, error) {
	header, err := cc.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest header: %w", err)
	}
	return header.Time, nil
}

// NativeBalance returns the native currency balance of account
func (cc *ContractCaller) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := cc.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get native balance: %w", err)
	}
	return balance, nil
}

// ERC20Balance returns the ERC20 balance for an account
func (cc *ContractCaller) ERC20Balance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var balance *big.Int
	if err := cc.call(ctx, erc20ABI, token, &balance, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get ERC20 balance of %s: %w", token.Hex(), err)
	}
	return balance, nil
}

// ERC20Allowance returns the ERC20 allowance for owner to spender
func (cc *ContractCaller) ERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	if err := cc.call(ctx, erc20ABI, token, &allowance, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("failed to get ERC20 allowance of %s: %w", token.Hex(), err)
	}
	return allowance, nil
}

// ERC20Decimals returns the decimals of an ERC20 token
func (cc *ContractCaller) ERC20Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	if err := cc.call(ctx, erc20ABI, token, &decimals, "decimals"); err != nil {
		return 0, fmt.Errorf("failed to get decimals of %s: %w", token.Hex(), err)
	}
	return decimals, nil
}

// ERC721OwnerOf returns the owner of an ERC721 token id
func (cc *ContractCaller) ERC721OwnerOf(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	var owner common.Address
	if err := cc.call(ctx, erc721ABI, token, &owner, "ownerOf", tokenID); err != nil {
		return common.Address{}, fmt.Errorf("failed to get owner of %s #%s: %w", token.Hex(), tokenID.String(), err)
	}
	return owner, nil
}

// ERC1155Balance returns the ERC1155 balance of account for id
func (cc *ContractCaller) ERC1155Balance(ctx context.Context, token, account common.Address, id *big.Int) (*big.Int, error) {
	var balance *big.Int
	if err := cc.call(ctx, erc1155ABI, token, &balance, "balanceOf", account, id); err != nil {
		return nil, fmt.Errorf("failed to get ERC1155 balance of %s #%s: %w", token.Hex(), id.String(), err)
	}
	return balance, nil
}

// IsApprovedForAll checks if operator is approved for all of owner's tokens.
// The selector is shared by ERC721 and ERC1155.
func (cc *ContractCaller) IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error) {
	var approved bool
	if err := cc.call(ctx, erc721ABI, token, &approved, "isApprovedForAll", owner, operator); err != nil {
		return false, fmt.Errorf("failed to check isApprovedForAll on %s: %w", token.Hex(), err)
	}
	return approved, nil
}

// ApproveERC20 builds an approve(spender, amount) transaction sent from from
func (cc *ContractCaller) ApproveERC20(token, spender common.Address, amount *big.Int, from common.Address) (*TransactionMethods, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return cc.newTransactionMethods(from, token, data), nil
}

// SetApprovalForAll builds a setApprovalForAll(operator, approved) transaction sent from from
func (cc *ContractCaller) SetApprovalForAll(token, operator common.Address, approved bool, from common.Address) (*TransactionMethods, error) {
	data, err := erc721ABI.Pack("setApprovalForAll", operator, approved)
	if err != nil {
		return nil, fmt.Errorf("failed to pack setApprovalForAll: %w", err)
	}
	return cc.newTransactionMethods(from, token, data), nil
}

// CheckGasBalance checks if from has enough native balance to pay for estimatedGas
func (cc *ContractCaller) CheckGasBalance(ctx context.Context, from common.Address, estimatedGas uint64) error {
	balance, err := cc.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}

	gasPrice, err := cc.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}

	// Add 20% safety margin
	estimatedGasWithMargin := new(big.Int).Mul(new(big.Int).SetUint64(estimatedGas), big.NewInt(120))
	estimatedGasWithMargin.Div(estimatedGasWithMargin, big.NewInt(100))

	requiredEth := new(big.Int).Mul(estimatedGasWithMargin, gasPrice)

	if balance.Cmp(requiredEth) < 0 {
		return fmt.Errorf("insufficient gas balance: %s has %s wei, but needs approximately %s wei for gas",
			from.Hex(),
			balance.String(),
			requiredEth.String(),
		)
	}

	return nil
}

// WaitForReceipt waits for a transaction receipt with timeout
func (cc *ContractCaller) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, cc.receiptTimeout)
	defer cancel()

	ticker := time.NewTicker(cc.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := cc.client.TransactionReceipt(timeoutCtx, txHash)
		if err == nil {
			return receipt, nil
		}

		select {
		case <-timeoutCtx.Done():
			return nil, fmt.Errorf("timeout waiting for transaction receipt: %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}

// call packs method with args, runs it against contract and unpacks the single output into out
func (cc *ContractCaller) call(ctx context.Context, contractABI abi.ABI, contract common.Address, out interface{}, method string, args ...interface{}) error {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return err
	}

	result, err := cc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		return err
	}

	return contractABI.UnpackIntoInterface(out, method, result)
}

// Close closes the Ethereum client connection
func (cc *ContractCaller) Close() {
	if cc.client != nil {
		cc.client.Close()
	}
}
