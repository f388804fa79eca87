// Example usage of the Seaport SDK Go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	seaport "github.com/kaifufi/seaport-sdk-go"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file; env only when empty")
	orderPath := flag.String("order", "order.json", "path to an order parameters JSON file; amounts may be numbers or strings")
	fulfillerHex := flag.String("fulfiller", "", "address of the fulfiller")
	basic := flag.Bool("basic", false, "check a basic order fulfillment")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize the SDK client
	config, err := seaport.LoadClientConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := seaport.NewClient(*config, logger)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	raw, err := os.ReadFile(*orderPath)
	if err != nil {
		log.Fatalf("Failed to read order: %v", err)
	}
	order, err := decodeOrder(raw)
	if err != nil {
		log.Fatalf("Failed to decode order: %v", err)
	}

	if !common.IsHexAddress(*fulfillerHex) {
		log.Fatalf("Invalid fulfiller address: %q", *fulfillerHex)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	req := seaport.FulfillmentRequest{
		Order:     order,
		Fulfiller: common.HexToAddress(*fulfillerHex),
	}

	fmt.Println("Checking balances and approvals...")
	var actions []seaport.ApprovalAction
	if *basic {
		actions, err = client.CheckBasicFulfillment(ctx, req)
	} else {
		actions, err = client.CheckStandardFulfillment(ctx, req)
	}

	var balanceErr *seaport.InsufficientBalanceError
	if errors.As(err, &balanceErr) {
		fmt.Printf("The %s cannot cover the order:\n", balanceErr.Party)
		for _, b := range balanceErr.Balances {
			need, have := formatAmounts(ctx, client, b)
			fmt.Printf("  %s #%s: needs %s, has %s\n", b.Token.Hex(), b.IdentifierOrCriteria, need, have)
		}
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("Failed to check fulfillment: %v", err)
	}

	if len(actions) == 0 {
		fmt.Println("No approvals needed, the order can be fulfilled")
		return
	}

	fmt.Printf("\n%d approval(s) needed before fulfilling:\n", len(actions))
	for _, action := range actions {
		fmt.Printf("  token %s -> operator %s\n", action.Token.Hex(), action.Operator.Hex())
		fmt.Printf("    from %s data 0x%x\n", action.TransactionMethods.From.Hex(), action.TransactionMethods.Data)
	}
}

func formatAmounts(ctx context.Context, client *seaport.Client, b seaport.InsufficientBalance) (string, string) {
	need, err := client.FormatItemAmount(ctx, b.ItemType, b.Token, b.RequiredAmount)
	if err != nil {
		return b.RequiredAmount.String(), b.AmountHave.String()
	}
	have, err := client.FormatItemAmount(ctx, b.ItemType, b.Token, b.AmountHave)
	if err != nil {
		return need, b.AmountHave.String()
	}
	return need, have
}
