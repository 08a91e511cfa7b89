package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction constrains a price-change condition to one side of the move.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionEither Direction = "either"
)

// Condition is the parsed, kind-specific payload of an alert rule. It is
// a closed set: every supported kind has one variant, and anything the
// engine does not recognise parses to UnsupportedCondition instead of
// failing, so new kinds can land in the rule schema before evaluator
// support exists.
type Condition interface {
	Kind() AlertKind
}

// ThresholdCondition backs price_above, price_below, volume_above and
// volume_below rules.
type ThresholdCondition struct {
	RuleKind  AlertKind       `json:"-"`
	Threshold decimal.Decimal `json:"threshold"`
}

func (c ThresholdCondition) Kind() AlertKind { return c.RuleKind }

// PriceChangeCondition backs price_change_pct rules. An empty direction
// is treated as "either".
type PriceChangeCondition struct {
	PercentChange decimal.Decimal `json:"percent_change"`
	Direction     Direction       `json:"direction"`
}

func (PriceChangeCondition) Kind() AlertKind { return KindPriceChangePct }

// VolumeSpikeCondition backs volume_spike rules. The baseline window the
// multiplier applies to is named but not yet evaluated; volume_spike rules
// never match until the baseline source ships.
type VolumeSpikeCondition struct {
	VolumeMultiplier decimal.Decimal `json:"volume_multiplier"`
	Baseline         string          `json:"baseline"`
}

func (VolumeSpikeCondition) Kind() AlertKind { return KindVolumeSpike }

// UnsupportedCondition is the forward-compatibility variant: the rule kind
// carries no evaluator yet (news, earnings) or is unknown entirely. It
// always evaluates false.
type UnsupportedCondition struct {
	RuleKind AlertKind
	Raw      json.RawMessage
}

func (c UnsupportedCondition) Kind() AlertKind { return c.RuleKind }

// ParseCondition decodes a rule's conditions payload into its typed
// variant. Malformed payloads and non-positive thresholds are errors;
// unrecognised kinds are not.
func ParseCondition(kind AlertKind, raw json.RawMessage) (Condition, error) {
	switch kind {
	case KindPriceAbove, KindPriceBelow, KindVolumeAbove, KindVolumeBelow:
		var c ThresholdCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s conditions: %w", kind, err)
		}
		if !c.Threshold.IsPositive() {
			return nil, fmt.Errorf("%s threshold must be positive, got %s", kind, c.Threshold)
		}
		c.RuleKind = kind
		return c, nil

	case KindPriceChangePct:
		var c PriceChangeCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s conditions: %w", kind, err)
		}
		if !c.PercentChange.IsPositive() {
			return nil, fmt.Errorf("percent_change must be positive, got %s", c.PercentChange)
		}
		if c.Direction == "" {
			c.Direction = DirectionEither
		}
		return c, nil

	case KindVolumeSpike:
		var c VolumeSpikeCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parse %s conditions: %w", kind, err)
		}
		return c, nil

	default:
		return UnsupportedCondition{RuleKind: kind, Raw: raw}, nil
	}
}
