package trading

import (
	"fmt"
	"strings"

	"github.com/aristath/paper-trader/internal/domain"
)

// Order is a validated buy/sell request. Built at the HTTP boundary from the
// raw body; the engine only ever sees orders that passed Validate.
type Order struct {
	Symbol      string             `json:"stockSymbol"`
	Exchange    string             `json:"exchange"`
	Quantity    int64              `json:"quantity"`
	Side        domain.Side        `json:"side"`
	ProductType domain.ProductType `json:"productType"`
}

// Validate validates order data and normalizes the symbol and exchange
func (o *Order) Validate() error {
	if strings.TrimSpace(o.Symbol) == "" {
		return fmt.Errorf("symbol cannot be empty")
	}

	if strings.TrimSpace(o.Exchange) == "" {
		return fmt.Errorf("exchange cannot be empty")
	}

	if o.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	if !o.Side.IsValid() {
		return fmt.Errorf("invalid side: %s", o.Side)
	}

	if !o.ProductType.IsValid() {
		return fmt.Errorf("invalid product type: %s", o.ProductType)
	}

	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	o.Exchange = strings.ToUpper(strings.TrimSpace(o.Exchange))

	return nil
}

// orderRequest is the raw HTTP body for buy/sell
type orderRequest struct {
	StockSymbol string `json:"stockSymbol"`
	Exchange    string `json:"exchange"`
	Quantity    int64  `json:"quantity"`
	ProductType string `json:"productType"`
}

// toOrder builds a validated Order with the side fixed by the route
func (req *orderRequest) toOrder(side domain.Side) (*Order, error) {
	productType, err := domain.ProductTypeFromString(req.ProductType)
	if err != nil {
		return nil, err
	}

	order := &Order{
		Symbol:      req.StockSymbol,
		Exchange:    req.Exchange,
		Quantity:    req.Quantity,
		Side:        side,
		ProductType: productType,
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	return order, nil
}
