package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tickerwatch/notifier/internal/domain"
	"github.com/tickerwatch/notifier/internal/metrics"
)

// Router dispatches notifications for a freshly logged trigger and reports
// whether any requested channel actually delivered.
type Router interface {
	Deliver(ctx context.Context, rule *domain.AlertRule, logID string, quote *domain.SymbolQuote) (bool, error)
}

// TriggerOutcome records how far a claimed trigger got through the
// log-and-deliver pipeline. A claim always advances the rule's trigger
// state, so everything past "skipped" counts as fired from the product's
// point of view even when later stages failed.
type TriggerOutcome int

const (
	OutcomeSkipped TriggerOutcome = iota
	OutcomeFired
	OutcomeFiredUnlogged
	OutcomeFiredUndelivered
)

func (o TriggerOutcome) String() string {
	switch o {
	case OutcomeFired:
		return "fired"
	case OutcomeFiredUnlogged:
		return "fired_unlogged"
	case OutcomeFiredUndelivered:
		return "fired_undelivered"
	default:
		return "skipped"
	}
}

// Evaluator consumes batched price updates and drives the per-rule
// pipeline: frequency gate, condition evaluator, trigger claim, log write,
// delivery. It holds no mutable state of its own; exactly-once firing per
// eligibility window is guaranteed solely by the claim's conditional write,
// so any number of Evaluator instances may process the same update
// concurrently (expected under at-least-once delivery upstream).
type Evaluator struct {
	alerts domain.AlertRepository
	logs   domain.AlertLogRepository
	router Router
	logger *zap.Logger
	now    func() time.Time
}

func NewEvaluator(alerts domain.AlertRepository, logs domain.AlertLogRepository, router Router, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		alerts: alerts,
		logs:   logs,
		router: router,
		logger: logger,
		now:    time.Now,
	}
}

// HandlePriceUpdate processes one batched quote message. Only batch-fatal
// errors are returned (malformed payload, rule-set resolution failure) so
// the feed can retry or dead-letter; per-rule failures are logged and the
// remaining rules still run.
func (e *Evaluator) HandlePriceUpdate(ctx context.Context, payload []byte) error {
	var update domain.PriceUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return fmt.Errorf("parse price update: %w", err)
	}
	return e.Evaluate(ctx, &update)
}

// Evaluate runs the pipeline for an already-decoded update.
func (e *Evaluator) Evaluate(ctx context.Context, update *domain.PriceUpdate) error {
	if len(update.Symbols) == 0 {
		return nil
	}
	metrics.EventSymbols.Observe(float64(len(update.Symbols)))

	symbols := make([]string, 0, len(update.Symbols))
	for symbol := range update.Symbols {
		symbols = append(symbols, symbol)
	}

	rules, err := e.alerts.ActiveForSymbols(ctx, symbols)
	if err != nil {
		return fmt.Errorf("fetch alerts: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	now := e.now()
	var fired int
	for i := range rules {
		rule := &rules[i]
		quote, ok := update.Symbols[rule.Symbol]
		if !ok {
			continue
		}
		metrics.RulesEvaluated.Inc()

		if !rule.Frequency.Valid() {
			e.logger.Warn("unknown frequency policy",
				zap.String("alert_id", rule.ID),
				zap.String("frequency", string(rule.Frequency)))
			continue
		}
		if !eligibleNow(rule, now) {
			continue
		}

		cond, err := domain.ParseCondition(rule.Kind, rule.Conditions)
		if err != nil {
			e.logger.Warn("invalid alert conditions",
				zap.String("alert_id", rule.ID),
				zap.String("kind", string(rule.Kind)),
				zap.Error(err))
			continue
		}
		if !evaluateCondition(cond, &quote) {
			continue
		}

		outcome, err := e.trigger(ctx, rule, cond, &quote)
		if err != nil {
			e.logger.Warn("trigger pipeline error",
				zap.String("alert_id", rule.ID),
				zap.String("outcome", outcome.String()),
				zap.Error(err))
		}
		if outcome != OutcomeSkipped {
			metrics.Triggers.WithLabelValues(outcome.String()).Inc()
			fired++
		}
	}

	if fired > 0 {
		e.logger.Info("price update evaluated",
			zap.Int("rules", len(rules)),
			zap.Int("fired", fired))
	}
	return nil
}

// trigger runs the claim, log write, and delivery for one matched rule. The claim is
// the authoritative gate: losing it is the normal outcome for duplicate
// deliveries and concurrent racers, not an error.
func (e *Evaluator) trigger(ctx context.Context, rule *domain.AlertRule, cond domain.Condition, quote *domain.SymbolQuote) (TriggerOutcome, error) {
	claimed, err := e.alerts.ClaimTrigger(ctx, rule.ID, rule.Frequency)
	if err != nil {
		metrics.Claims.WithLabelValues("error").Inc()
		return OutcomeSkipped, fmt.Errorf("claim trigger: %w", err)
	}
	if !claimed {
		metrics.Claims.WithLabelValues("lost").Inc()
		return OutcomeSkipped, nil
	}
	metrics.Claims.WithLabelValues("won").Inc()

	log := &domain.AlertLog{
		AlertRuleID:  rule.ID,
		UserID:       rule.UserID,
		Symbol:       rule.Symbol,
		Kind:         rule.Kind,
		ConditionMet: conditionSnapshot(rule, cond),
		MarketData:   marketSnapshot(rule.Symbol, quote, e.now()),
	}
	logID, err := e.logs.Create(ctx, log)
	if err != nil {
		// The claim already committed: the rule has fired, there is just
		// no audit row for it. Accepted gap.
		return OutcomeFiredUnlogged, fmt.Errorf("create alert log: %w", err)
	}

	delivered, err := e.router.Deliver(ctx, rule, logID, quote)
	if err != nil {
		return OutcomeFiredUndelivered, fmt.Errorf("deliver: %w", err)
	}
	if !delivered && (rule.NotifyEmail || rule.NotifyInApp) {
		return OutcomeFiredUndelivered, nil
	}
	return OutcomeFired, nil
}

// conditionSnapshot captures which condition matched, denormalised into
// the log row so the audit trail survives later edits to the rule.
func conditionSnapshot(rule *domain.AlertRule, cond domain.Condition) json.RawMessage {
	snap := map[string]any{
		"alert_type": rule.Kind,
		"triggered":  true,
	}
	switch c := cond.(type) {
	case domain.ThresholdCondition:
		snap["threshold"] = c.Threshold
	case domain.PriceChangeCondition:
		snap["percent_change"] = c.PercentChange
		snap["direction"] = c.Direction
	case domain.VolumeSpikeCondition:
		snap["volume_multiplier"] = c.VolumeMultiplier
	}
	raw, _ := json.Marshal(snap)
	return raw
}

func marketSnapshot(symbol string, quote *domain.SymbolQuote, at time.Time) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"symbol":     symbol,
		"price":      quote.Price,
		"volume":     quote.Volume,
		"change_pct": quote.ChangePct,
		"timestamp":  at.Unix(),
	})
	return raw
}
