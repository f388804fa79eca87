package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TransactionMethods is a prepared contract call that has not been submitted.
// Nothing is sent until Transact is called.
type TransactionMethods struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int

	caller *ContractCaller
}

func (cc *ContractCaller) newTransactionMethods(from, to common.Address, data []byte) *TransactionMethods {
	return &TransactionMethods{
		From:   from,
		To:     to,
		Data:   data,
		Value:  big.NewInt(0),
		caller: cc,
	}
}

// CallMsg returns the call message for this transaction
func (tm *TransactionMethods) CallMsg() ethereum.CallMsg {
	to := tm.To
	return ethereum.CallMsg{
		From:  tm.From,
		To:    &to,
		Value: tm.Value,
		Data:  tm.Data,
	}
}

// CallStatic executes the call without creating a transaction
func (tm *TransactionMethods) CallStatic(ctx context.Context) ([]byte, error) {
	result, err := tm.caller.client.CallContract(ctx, tm.CallMsg(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", tm.To.Hex(), err)
	}
	return result, nil
}

// EstimateGas estimates the gas needed to execute the transaction
func (tm *TransactionMethods) EstimateGas(ctx context.Context) (uint64, error) {
	gas, err := tm.caller.client.EstimateGas(ctx, tm.CallMsg())
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// BuildTransaction builds the unsigned transaction with nonce, gas and gas price filled in
func (tm *TransactionMethods) BuildTransaction(ctx context.Context) (*types.Transaction, error) {
	nonce, err := tm.caller.client.PendingNonceAt(ctx, tm.From)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := tm.caller.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	gas, err := tm.EstimateGas(ctx)
	if err != nil {
		return nil, err
	}

	return types.NewTransaction(nonce, tm.To, tm.Value, gas, gasPrice, tm.Data), nil
}

// Transact signs the transaction with the caller's key and sends it
func (tm *TransactionMethods) Transact(ctx context.Context) (*types.Transaction, error) {
	cc := tm.caller
	if cc.privateKey == nil {
		return nil, ErrNoSigner
	}
	if signer := cc.SignerAddress(); signer != tm.From {
		return nil, fmt.Errorf("transaction from %s cannot be signed by %s", tm.From.Hex(), signer.Hex())
	}

	tx, err := tm.BuildTransaction(ctx)
	if err != nil {
		return nil, err
	}

	if err := cc.CheckGasBalance(ctx, tm.From, tx.Gas()); err != nil {
		return nil, err
	}

	chainID, err := cc.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), cc.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := cc.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}
