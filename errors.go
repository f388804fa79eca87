package seaport

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrConfiguration represents inputs that cannot be validated as given
	ErrConfiguration = errors.New("configuration error")

	// ErrLookup represents a required asset missing from a snapshot
	ErrLookup = errors.New("balance and approval lookup error")

	// ErrInsufficientBalance represents a party lacking the assets needed
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientApproval represents an offerer lacking the approvals needed
	ErrInsufficientApproval = errors.New("insufficient approval")
)

// Party names used in errors
const (
	PartyOfferer   = "offerer"
	PartyFulfiller = "fulfiller"
)

// ConfigurationError represents a configuration error with context
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// LookupError is returned when a required token and identifier has no snapshot entry
type LookupError struct {
	Token      common.Address
	Identifier *big.Int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("balances and approvals didn't contain token %s with identifier %s", e.Token.Hex(), e.Identifier.String())
}

func (e *LookupError) Unwrap() error {
	return ErrLookup
}

// InsufficientBalanceError is returned when a party does not hold enough to create or fulfill
type InsufficientBalanceError struct {
	Party    string
	Balances []InsufficientBalance
}

func (e *InsufficientBalanceError) Error() string {
	if e.Party == PartyOfferer {
		return "the offerer does not have the amount needed to create or fulfill"
	}
	return fmt.Sprintf("the %s does not have the balances needed to fulfill", e.Party)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InsufficientApprovalError is returned when required approvals are treated as fatal
type InsufficientApprovalError struct {
	Party     string
	Approvals []InsufficientApproval
}

func (e *InsufficientApprovalError) Error() string {
	return fmt.Sprintf("the %s does not have the sufficient approvals", e.Party)
}

func (e *InsufficientApprovalError) Unwrap() error {
	return ErrInsufficientApproval
}
