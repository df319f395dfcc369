package wallet

import (
	"fmt"
	"time"

	"github.com/aristath/paper-trader/internal/domain"
)

// MarginPolicy computes required funds per product type and owns the
// intraday cutoff. Pure calculation; no storage access.
type MarginPolicy struct {
	leverage     float64
	cutoffHour   int
	cutoffMinute int
}

// NewMarginPolicy creates a margin policy. leverage is the MIS leverage
// factor (4 => 25% margin); cutoff is the daily intraday square-off time.
func NewMarginPolicy(leverage float64, cutoffHour, cutoffMinute int) *MarginPolicy {
	return &MarginPolicy{
		leverage:     leverage,
		cutoffHour:   cutoffHour,
		cutoffMinute: cutoffMinute,
	}
}

// Leverage returns the MIS leverage factor
func (p *MarginPolicy) Leverage() float64 {
	return p.leverage
}

// RequiredFunds returns the cash debit needed to open a position of the
// given notional value. CNC pays the full notional; MIS posts notional
// divided by the leverage factor as margin.
func (p *MarginPolicy) RequiredFunds(notional float64, productType domain.ProductType) float64 {
	if productType.IsIntraday() {
		return notional / p.leverage
	}
	return notional
}

// CheckFunds verifies the wallet can cover a buy of the given notional.
// Returns the required debit, or domain.ErrInsufficientFunds.
func (p *MarginPolicy) CheckFunds(w *Wallet, notional float64, productType domain.ProductType) (float64, error) {
	required := p.RequiredFunds(notional, productType)
	if required > w.VirtualCash {
		return 0, fmt.Errorf("%w: required %.2f, available %.2f",
			domain.ErrInsufficientFunds, required, w.VirtualCash)
	}
	return required, nil
}

// IsPastCutoff reports whether new intraday positions may no longer be
// opened. Remaining MIS activity after the cutoff is closing-only.
func (p *MarginPolicy) IsPastCutoff(now time.Time) bool {
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), p.cutoffHour, p.cutoffMinute, 0, 0, now.Location())
	return !now.Before(cutoff)
}

// MarginRelease returns the margin freed by selling qty shares of a MIS
// holding opened at avgPrice
func (p *MarginPolicy) MarginRelease(qty int64, avgPrice float64) float64 {
	return float64(qty) * avgPrice / p.leverage
}
