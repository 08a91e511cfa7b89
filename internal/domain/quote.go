package domain

import (
	"github.com/shopspring/decimal"
)

// SymbolQuote is a lightweight price snapshot for one symbol inside a
// batched update. Quotes are evaluation input only and are never persisted
// on their own.
type SymbolQuote struct {
	Price     decimal.Decimal `json:"price"`
	Volume    int64           `json:"volume"`
	ChangePct decimal.Decimal `json:"change_pct"`
}

// PriceUpdate is one batched message from the quote publisher, carrying
// the latest quote per symbol. An update with no symbols is a no-op.
type PriceUpdate struct {
	Timestamp int64                  `json:"timestamp"`
	Source    string                 `json:"source"`
	Symbols   map[string]SymbolQuote `json:"symbols"`
}
