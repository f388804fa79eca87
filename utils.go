package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

const MaxDecimals = 77

// MaxInt is the largest uint256, used for unlimited approvals
var MaxInt = new(big.Int).Set(math.MaxBig256)

// IsCurrencyItem reports whether itemType is native currency or ERC20
func IsCurrencyItem(itemType ItemType) bool {
	return itemType == ItemTypeNative || itemType == ItemTypeERC20
}

// IsNativeCurrencyItem reports whether itemType is native currency
func IsNativeCurrencyItem(itemType ItemType) bool {
	return itemType == ItemTypeNative
}

// IsERC20Item reports whether itemType is ERC20
func IsERC20Item(itemType ItemType) bool {
	return itemType == ItemTypeERC20
}

// IsERC721Item reports whether itemType is ERC721 with or without criteria
func IsERC721Item(itemType ItemType) bool {
	return itemType == ItemTypeERC721 || itemType == ItemTypeERC721WithCriteria
}

// IsERC1155Item reports whether itemType is ERC1155 with or without criteria
func IsERC1155Item(itemType ItemType) bool {
	return itemType == ItemTypeERC1155 || itemType == ItemTypeERC1155WithCriteria
}

// IsCriteriaItem reports whether the identifier of itemType is a criteria commitment
func IsCriteriaItem(itemType ItemType) bool {
	return itemType == ItemTypeERC721WithCriteria || itemType == ItemTypeERC1155WithCriteria
}

// ParseUnits converts a human-readable amount such as "1.5" into base units
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, &ConfigurationError{Message: fmt.Sprintf("decimals must be between 0 and %d, got: %d", MaxDecimals, decimals)}
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &ConfigurationError{Message: fmt.Sprintf("invalid amount %q: %v", amount, err)}
	}
	if value.IsNegative() {
		return nil, &ConfigurationError{Message: fmt.Sprintf("amount must not be negative, got: %s", amount)}
	}

	scaled := value.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, &ConfigurationError{Message: fmt.Sprintf("amount %s has more than %d decimals", amount, decimals)}
	}

	result := scaled.BigInt()
	if result.Cmp(math.MaxBig256) > 0 {
		return nil, &ConfigurationError{Message: fmt.Sprintf("amount too large for uint256: %s", result.String())}
	}

	return result, nil
}

// FormatUnits converts base units into a human-readable amount
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, int32(-decimals)).String()
}
