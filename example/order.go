package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"

	seaport "github.com/kaifufi/seaport-sdk-go"
)

// uint256JSON decodes a uint256 written either as a JSON number or as a
// decimal or 0x-prefixed hex string, the way Seaport order payloads carry them
type uint256JSON struct {
	value *big.Int
}

func (u *uint256JSON) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		u.value = nil
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	value, ok := math.ParseBig256(text)
	if !ok || value.Sign() < 0 {
		return fmt.Errorf("invalid uint256 %q", text)
	}
	u.value = value
	return nil
}

func (u uint256JSON) uint64() (uint64, error) {
	if u.value == nil {
		return 0, nil
	}
	if !u.value.IsUint64() {
		return 0, fmt.Errorf("timestamp %s out of range", u.value)
	}
	return u.value.Uint64(), nil
}

type itemJSON struct {
	ItemType             seaport.ItemType `json:"itemType"`
	Token                common.Address   `json:"token"`
	IdentifierOrCriteria uint256JSON      `json:"identifierOrCriteria"`
	StartAmount          uint256JSON      `json:"startAmount"`
	EndAmount            uint256JSON      `json:"endAmount"`
	Recipient            common.Address   `json:"recipient"`
}

func (i itemJSON) item() seaport.Item {
	return seaport.Item{
		ItemType:             i.ItemType,
		Token:                i.Token,
		IdentifierOrCriteria: i.IdentifierOrCriteria.value,
		StartAmount:          i.StartAmount.value,
		EndAmount:            i.EndAmount.value,
	}
}

type orderJSON struct {
	Offerer       common.Address    `json:"offerer"`
	Offer         []itemJSON        `json:"offer"`
	Consideration []itemJSON        `json:"consideration"`
	OrderType     seaport.OrderType `json:"orderType"`
	StartTime     uint256JSON       `json:"startTime"`
	EndTime       uint256JSON       `json:"endTime"`
}

// decodeOrder reads order parameters from JSON. Amounts, identifiers and
// timestamps may be numbers or strings.
func decodeOrder(raw []byte) (seaport.OrderParameters, error) {
	var in orderJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return seaport.OrderParameters{}, err
	}

	startTime, err := in.StartTime.uint64()
	if err != nil {
		return seaport.OrderParameters{}, fmt.Errorf("startTime: %w", err)
	}
	endTime, err := in.EndTime.uint64()
	if err != nil {
		return seaport.OrderParameters{}, fmt.Errorf("endTime: %w", err)
	}

	order := seaport.OrderParameters{
		Offerer:   in.Offerer,
		OrderType: in.OrderType,
		StartTime: startTime,
		EndTime:   endTime,
	}
	for _, item := range in.Offer {
		order.Offer = append(order.Offer, seaport.OfferItem{Item: item.item()})
	}
	for _, item := range in.Consideration {
		order.Consideration = append(order.Consideration, seaport.ConsiderationItem{
			Item:      item.item(),
			Recipient: item.Recipient,
		})
	}
	return order, nil
}
