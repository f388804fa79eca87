// Package chaintest provides an in-memory chain.Backend holding ERC20, ERC721
// and ERC1155 token state for tests.
package chaintest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/kaifufi/seaport-sdk-go/chain"
)

// ChainID of the fake chain
var ChainID = big.NewInt(1337)

// ErrReverted is returned for calls the fake contracts reject
var ErrReverted = errors.New("execution reverted")

// TokenKind is the token standard deployed at an address
type TokenKind int

const (
	KindERC20 TokenKind = iota + 1
	KindERC721
	KindERC1155
)

type pair struct {
	a, b common.Address
}

type holding struct {
	owner common.Address
	id    common.Hash
}

// Backend is an in-memory chain.Backend. The zero value is not usable; call NewBackend.
type Backend struct {
	mu sync.Mutex

	kinds      map[common.Address]TokenKind
	native     map[common.Address]*big.Int
	balances   map[common.Address]map[common.Address]*big.Int
	allowances map[common.Address]map[pair]*big.Int
	decimals   map[common.Address]uint8
	owners     map[common.Address]map[common.Hash]common.Address
	multi      map[common.Address]map[holding]*big.Int
	operators  map[common.Address]map[pair]bool
	nonces     map[common.Address]uint64
	receipts   map[common.Hash]*types.Receipt

	headTime uint64
	failErr  error
	calls    int
	sent     []*types.Transaction
}

var _ chain.Backend = (*Backend)(nil)

// NewBackend creates an empty backend with the head block at headTime
func NewBackend(headTime uint64) *Backend {
	return &Backend{
		kinds:      make(map[common.Address]TokenKind),
		native:     make(map[common.Address]*big.Int),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[pair]*big.Int),
		decimals:   make(map[common.Address]uint8),
		owners:     make(map[common.Address]map[common.Hash]common.Address),
		multi:      make(map[common.Address]map[holding]*big.Int),
		operators:  make(map[common.Address]map[pair]bool),
		nonces:     make(map[common.Address]uint64),
		receipts:   make(map[common.Hash]*types.Receipt),
		headTime:   headTime,
	}
}

// DeployERC20 registers an ERC20 token at addr
func (b *Backend) DeployERC20(addr common.Address, decimals uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds[addr] = KindERC20
	b.decimals[addr] = decimals
	b.balances[addr] = make(map[common.Address]*big.Int)
	b.allowances[addr] = make(map[pair]*big.Int)
}

// DeployERC721 registers an ERC721 token at addr
func (b *Backend) DeployERC721(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds[addr] = KindERC721
	b.owners[addr] = make(map[common.Hash]common.Address)
	b.operators[addr] = make(map[pair]bool)
}

// DeployERC1155 registers an ERC1155 token at addr
func (b *Backend) DeployERC1155(addr common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kinds[addr] = KindERC1155
	b.multi[addr] = make(map[holding]*big.Int)
	b.operators[addr] = make(map[pair]bool)
}

// SetNativeBalance sets the native balance of account
func (b *Backend) SetNativeBalance(account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.native[account] = new(big.Int).Set(amount)
}

// SetERC20Balance sets an ERC20 balance
func (b *Backend) SetERC20Balance(token, account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[token][account] = new(big.Int).Set(amount)
}

// SetERC20Allowance sets an ERC20 allowance
func (b *Backend) SetERC20Allowance(token, owner, spender common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allowances[token][pair{owner, spender}] = new(big.Int).Set(amount)
}

// SetERC721Owner sets the owner of an ERC721 token id
func (b *Backend) SetERC721Owner(token common.Address, id *big.Int, owner common.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owners[token][common.BigToHash(id)] = owner
}

// SetERC1155Balance sets an ERC1155 balance
func (b *Backend) SetERC1155Balance(token, account common.Address, id *big.Int, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.multi[token][holding{account, common.BigToHash(id)}] = new(big.Int).Set(amount)
}

// SetApprovalForAll sets an operator approval on an ERC721 or ERC1155 token
func (b *Backend) SetApprovalForAll(token, owner, operator common.Address, approved bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.operators[token][pair{owner, operator}] = approved
}

// SetHeadTime moves the timestamp of the latest block
func (b *Backend) SetHeadTime(headTime uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.headTime = headTime
}

// FailCalls makes every subsequent contract call return err. nil restores normal behavior.
func (b *Backend) FailCalls(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

// Calls returns the number of CallContract and BalanceAt requests served
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Sent returns the transactions received by SendTransaction
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func (b *Backend) contractABI(kind TokenKind) abi.ABI {
	switch kind {
	case KindERC20:
		return chain.GetERC20ABI()
	case KindERC721:
		return chain.GetERC721ABI()
	default:
		return chain.GetERC1155ABI()
	}
}

// CallContract implements chain.Backend
func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++

	if b.failErr != nil {
		return nil, b.failErr
	}
	if call.To == nil {
		return nil, fmt.Errorf("call without target")
	}
	// Calls to accounts without code return no data, like a real node.
	kind, ok := b.kinds[*call.To]
	if !ok {
		return []byte{}, nil
	}

	method, args, err := b.decode(kind, call.Data)
	if err != nil {
		return nil, err
	}

	out, err := b.read(kind, *call.To, method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out...)
}

func (b *Backend) decode(kind TokenKind, data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, ErrReverted
	}
	contractABI := b.contractABI(kind)
	method, err := contractABI.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReverted, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrReverted, err)
	}
	return method, args, nil
}

func (b *Backend) read(kind TokenKind, token common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch {
	case kind == KindERC20 && method == "balanceOf":
		return []interface{}{valueOrZero(b.balances[token][args[0].(common.Address)])}, nil
	case kind == KindERC20 && method == "allowance":
		return []interface{}{valueOrZero(b.allowances[token][pair{args[0].(common.Address), args[1].(common.Address)}])}, nil
	case kind == KindERC20 && method == "decimals":
		return []interface{}{b.decimals[token]}, nil
	case kind == KindERC20 && method == "approve":
		return []interface{}{true}, nil
	case kind == KindERC721 && method == "ownerOf":
		owner, ok := b.owners[token][common.BigToHash(args[0].(*big.Int))]
		if !ok {
			return nil, fmt.Errorf("%w: ERC721: invalid token ID", ErrReverted)
		}
		return []interface{}{owner}, nil
	case kind == KindERC721 && method == "balanceOf":
		count := int64(0)
		for _, owner := range b.owners[token] {
			if owner == args[0].(common.Address) {
				count++
			}
		}
		return []interface{}{big.NewInt(count)}, nil
	case kind == KindERC1155 && method == "balanceOf":
		return []interface{}{valueOrZero(b.multi[token][holding{args[0].(common.Address), common.BigToHash(args[1].(*big.Int))}])}, nil
	case method == "isApprovedForAll":
		return []interface{}{b.operators[token][pair{args[0].(common.Address), args[1].(common.Address)}]}, nil
	case method == "setApprovalForAll":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: unsupported method %s", ErrReverted, method)
}

func (b *Backend) apply(from common.Address, tx *types.Transaction) error {
	if tx.To() == nil {
		return fmt.Errorf("contract creation not supported")
	}
	token := *tx.To()
	kind, ok := b.kinds[token]
	if !ok {
		return nil
	}
	method, args, err := b.decode(kind, tx.Data())
	if err != nil {
		return err
	}
	switch method.Name {
	case "approve":
		b.allowances[token][pair{from, args[0].(common.Address)}] = new(big.Int).Set(args[1].(*big.Int))
	case "setApprovalForAll":
		b.operators[token][pair{from, args[0].(common.Address)}] = args[1].(bool)
	default:
		return fmt.Errorf("%w: unsupported transaction %s", ErrReverted, method.Name)
	}
	return nil
}

// BalanceAt implements chain.Backend
func (b *Backend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.failErr != nil {
		return nil, b.failErr
	}
	return valueOrZero(b.native[account]), nil
}

// HeaderByNumber implements chain.Backend
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: big.NewInt(1), Time: b.headTime}, nil
}

// EstimateGas implements chain.Backend
func (b *Backend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 60000, nil
}

// SuggestGasPrice implements chain.Backend
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// PendingNonceAt implements chain.Backend
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

// ChainID implements chain.Backend
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(ChainID), nil
}

// SendTransaction implements chain.Backend. Approvals are applied immediately.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.NewEIP155Signer(ChainID), tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[from])
	}
	if err := b.apply(from, tx); err != nil {
		return err
	}
	b.nonces[from]++
	b.sent = append(b.sent, tx)
	b.receipts[tx.Hash()] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}
	return nil
}

// TransactionReceipt implements chain.Backend
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// Close implements chain.Backend
func (b *Backend) Close() {}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
