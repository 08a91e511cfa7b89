package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/tickerwatch/notifier/internal/domain"
)

// evaluateCondition reports whether the quote satisfies the rule's parsed
// condition. Threshold comparisons are inclusive: a price sitting exactly
// on the threshold triggers. Kinds without an evaluator (volume_spike,
// news, earnings, anything unknown) evaluate false without error.
func evaluateCondition(cond domain.Condition, quote *domain.SymbolQuote) bool {
	switch c := cond.(type) {
	case domain.ThresholdCondition:
		return evaluateThreshold(c, quote)
	case domain.PriceChangeCondition:
		return evaluatePriceChange(c, quote)
	case domain.VolumeSpikeCondition:
		// Needs a rolling baseline volume the quote stream does not carry.
		return false
	default:
		return false
	}
}

func evaluateThreshold(c domain.ThresholdCondition, quote *domain.SymbolQuote) bool {
	volume := decimal.NewFromInt(quote.Volume)
	switch c.RuleKind {
	case domain.KindPriceAbove:
		return quote.Price.GreaterThanOrEqual(c.Threshold)
	case domain.KindPriceBelow:
		return quote.Price.LessThanOrEqual(c.Threshold)
	case domain.KindVolumeAbove:
		return volume.GreaterThanOrEqual(c.Threshold)
	case domain.KindVolumeBelow:
		return volume.LessThanOrEqual(c.Threshold)
	default:
		return false
	}
}

func evaluatePriceChange(c domain.PriceChangeCondition, quote *domain.SymbolQuote) bool {
	change := quote.ChangePct
	switch c.Direction {
	case domain.DirectionUp:
		return change.GreaterThanOrEqual(c.PercentChange)
	case domain.DirectionDown:
		return change.LessThanOrEqual(c.PercentChange.Neg())
	default:
		return change.Abs().GreaterThanOrEqual(c.PercentChange)
	}
}
