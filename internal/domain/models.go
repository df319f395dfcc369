package domain

import (
	"fmt"
	"math"
	"strings"
)

// Currency represents a currency code
type Currency string

const (
	CurrencyINR Currency = "INR"
	CurrencyUSD Currency = "USD"
)

// Side represents the order direction (BUY or SELL)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// IsValid checks if the side is valid
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// IsBuy returns true if this is a BUY order
func (s Side) IsBuy() bool {
	return s == SideBuy
}

// IsSell returns true if this is a SELL order
func (s Side) IsSell() bool {
	return s == SideSell
}

// SideFromString creates a Side from a string (case-insensitive)
func SideFromString(value string) (Side, error) {
	if value == "" {
		return "", fmt.Errorf("invalid side: empty string")
	}

	switch strings.ToUpper(value) {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	default:
		return "", fmt.Errorf("invalid side: %s", value)
	}
}

// ProductType represents how an order is financed.
// CNC is delivery: full upfront payment, held indefinitely.
// MIS is intraday: leveraged margin order, squared off by the daily cutoff.
type ProductType string

const (
	ProductCNC ProductType = "CNC"
	ProductMIS ProductType = "MIS"
)

// IsValid checks if the product type is valid
func (p ProductType) IsValid() bool {
	return p == ProductCNC || p == ProductMIS
}

// IsIntraday returns true for margin intraday products
func (p ProductType) IsIntraday() bool {
	return p == ProductMIS
}

// ProductTypeFromString creates a ProductType from a string (case-insensitive).
// An empty string defaults to CNC.
func ProductTypeFromString(value string) (ProductType, error) {
	if value == "" {
		return ProductCNC, nil
	}

	switch strings.ToUpper(value) {
	case "CNC":
		return ProductCNC, nil
	case "MIS":
		return ProductMIS, nil
	default:
		return "", fmt.Errorf("invalid product type: %s", value)
	}
}

// Round2 rounds a monetary amount to two decimal places.
// Used at response boundaries; ledger math stays unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
