package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/hamza-akhtar-dev/bondcurve/internal/curve"
	"github.com/hamza-akhtar-dev/bondcurve/pkg/wad"
)

// cmd/quote is a one-shot pricing calculator: it builds an engine from the
// given parameters and evaluates a single operation, without any storage or
// network dependencies. Useful for sanity-checking curve configurations.
func main() {
	aFlag := flag.String("a", "1", "base price A (decimal)")
	bFlag := flag.String("b", "0.000001", "steepness B per token (decimal)")
	supplyFlag := flag.String("supply", "0", "circulating supply in tokens (decimal)")
	opFlag := flag.String("op", "price", "operation: price | sell | buy | cost | impact")
	amountFlag := flag.String("amount", "0", "token amount for sell/cost/impact (decimal)")
	fundsFlag := flag.String("funds", "0", "reserve funds for buy (decimal)")
	maxSupplyFlag := flag.String("max-supply", "", "override maximum supply in tokens (decimal)")
	maxTxFlag := flag.String("max-tx", "", "override per-transaction token cap (decimal)")
	flag.Parse()

	engine, err := buildEngine(*aFlag, *bFlag, *maxSupplyFlag, *maxTxFlag)
	if err != nil {
		fatal(err)
	}

	supply, err := parseWad("supply", *supplyFlag)
	if err != nil {
		fatal(err)
	}

	switch *opFlag {
	case "price":
		price, err := engine.CurrentPrice(supply)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("price: %s\n", wad.Format(price))

	case "sell":
		amount, err := parseWad("amount", *amountFlag)
		if err != nil {
			fatal(err)
		}
		funds, err := engine.FundsReceived(supply, amount)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("funds received: %s\n", wad.Format(funds))

	case "buy":
		funds, err := parseWad("funds", *fundsFlag)
		if err != nil {
			fatal(err)
		}
		amount, err := engine.AmountOut(supply, funds)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("tokens out: %s\n", wad.Format(amount))

	case "cost":
		amount, err := parseWad("amount", *amountFlag)
		if err != nil {
			fatal(err)
		}
		funds, err := engine.CostToBuy(supply, amount)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("cost: %s\n", wad.Format(funds))

	case "impact":
		amount, err := parseWad("amount", *amountFlag)
		if err != nil {
			fatal(err)
		}
		bps, err := engine.SimulatePriceImpact(supply, amount)
		if err != nil {
			fatal(err)
		}
		fmt.Printf("impact: %s bps\n", bps.String())

	default:
		fatal(fmt.Errorf("unknown op %q", *opFlag))
	}
}

func buildEngine(aStr, bStr, maxSupplyStr, maxTxStr string) (*curve.Engine, error) {
	a, err := parseWad("a", aStr)
	if err != nil {
		return nil, err
	}
	b, err := parseWad("b", bStr)
	if err != nil {
		return nil, err
	}

	limits := curve.DefaultLimits()
	if maxSupplyStr != "" {
		if limits.MaxSupply, err = parseWad("max-supply", maxSupplyStr); err != nil {
			return nil, err
		}
	}
	if maxTxStr != "" {
		if limits.MaxTxSize, err = parseWad("max-tx", maxTxStr); err != nil {
			return nil, err
		}
	}
	return curve.New(curve.Params{A: a, B: b}, limits)
}

func parseWad(name, s string) (*big.Int, error) {
	v, err := wad.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
