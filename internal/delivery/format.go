package delivery

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tickerwatch/notifier/internal/domain"
)

var kindLabels = map[domain.AlertKind]string{
	domain.KindPriceAbove:     "Price Above",
	domain.KindPriceBelow:     "Price Below",
	domain.KindPriceChangePct: "Price Change %",
	domain.KindVolumeAbove:    "Volume Above",
	domain.KindVolumeBelow:    "Volume Below",
	domain.KindVolumeSpike:    "Volume Spike",
	domain.KindNews:           "News Alert",
	domain.KindEarnings:       "Earnings Report",
}

// kindLabel returns a human-readable label for an alert kind.
func kindLabel(kind domain.AlertKind) string {
	if label, ok := kindLabels[kind]; ok {
		return label
	}
	return strings.ReplaceAll(string(kind), "_", " ")
}

func buildTitle(rule *domain.AlertRule) string {
	return fmt.Sprintf("%s %s", rule.Symbol, kindLabel(rule.Kind))
}

// buildMessage generates the in-app notification body for one trigger.
func buildMessage(rule *domain.AlertRule, quote *domain.SymbolQuote) string {
	cond, err := domain.ParseCondition(rule.Kind, rule.Conditions)
	if err != nil {
		return fmt.Sprintf("Alert triggered for %s", rule.Symbol)
	}

	switch c := cond.(type) {
	case domain.ThresholdCondition:
		switch rule.Kind {
		case domain.KindPriceAbove:
			return fmt.Sprintf("%s crossed above $%s (current: $%s)",
				rule.Symbol, c.Threshold.StringFixed(2), quote.Price.StringFixed(2))
		case domain.KindPriceBelow:
			return fmt.Sprintf("%s dropped below $%s (current: $%s)",
				rule.Symbol, c.Threshold.StringFixed(2), quote.Price.StringFixed(2))
		case domain.KindVolumeAbove:
			return fmt.Sprintf("%s volume exceeded %s (current: %s)",
				rule.Symbol, formatVolume(c.Threshold), formatVolume(decimal.NewFromInt(quote.Volume)))
		case domain.KindVolumeBelow:
			return fmt.Sprintf("%s volume dropped below %s (current: %s)",
				rule.Symbol, formatVolume(c.Threshold), formatVolume(decimal.NewFromInt(quote.Volume)))
		}
	case domain.PriceChangeCondition:
		return fmt.Sprintf("%s moved %s%% today", rule.Symbol, quote.ChangePct.StringFixed(2))
	}
	return fmt.Sprintf("Alert triggered for %s", rule.Symbol)
}

// buildData is the metadata blob stored with an in-app notification. The
// watch_list_id lets the frontend dropdown deep-link into the watchlist.
func buildData(rule *domain.AlertRule, quote *domain.SymbolQuote) json.RawMessage {
	raw, err := json.Marshal(map[string]any{
		"watch_list_id": rule.WatchListID,
		"symbol":        rule.Symbol,
		"price":         quote.Price,
		"volume":        quote.Volume,
		"alert_type":    rule.Kind,
	})
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// formatVolume renders share volume with K/M/B suffixes.
func formatVolume(vol decimal.Decimal) string {
	f, _ := vol.Float64()
	switch {
	case f >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", f/1_000_000_000)
	case f >= 1_000_000:
		return fmt.Sprintf("%.1fM", f/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%.1fK", f/1_000)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

func emailSubject(rule *domain.AlertRule) string {
	return fmt.Sprintf("Alert: %s %s", rule.Symbol, kindLabel(rule.Kind))
}

// emailBody generates the HTML alert email.
func emailBody(rule *domain.AlertRule, quote *domain.SymbolQuote, userName, frontendURL string) string {
	watchlistURL := fmt.Sprintf("%s/watchlist/%s", frontendURL, rule.WatchListID)

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: #1a1a2e; color: #e0e0e0; padding: 24px; border-radius: 8px;">
    <h2 style="color: #4fc3f7; margin-top: 0;">Alert Triggered: %s</h2>
    <p>Hi %s,</p>
    <p>Your alert <strong>%s</strong> has been triggered:</p>
    <div style="background: #16213e; padding: 16px; border-radius: 6px; margin: 16px 0;">
      <table style="width: 100%%; border-collapse: collapse; color: #e0e0e0;">
        <tr>
          <td style="padding: 8px 0;"><strong>Symbol</strong></td>
          <td style="padding: 8px 0; text-align: right;">%s</td>
        </tr>
        <tr>
          <td style="padding: 8px 0;"><strong>Current Price</strong></td>
          <td style="padding: 8px 0; text-align: right;">$%s</td>
        </tr>
        <tr>
          <td style="padding: 8px 0;"><strong>Change</strong></td>
          <td style="padding: 8px 0; text-align: right;">%s%%</td>
        </tr>
        <tr>
          <td style="padding: 8px 0;"><strong>Volume</strong></td>
          <td style="padding: 8px 0; text-align: right;">%s</td>
        </tr>
      </table>
    </div>
    <p>
      <a href="%s" style="display: inline-block; background: #4fc3f7; color: #1a1a2e; padding: 10px 24px; border-radius: 6px; text-decoration: none; font-weight: bold;">
        View Watchlist
      </a>
    </p>
    <hr style="border: none; border-top: 1px solid #333; margin: 20px 0;">
    <p style="color: #888; font-size: 12px;">
      You received this email because you have email alerts enabled for this watchlist.
      To manage your notification preferences, visit your
      <a href="%s/settings" style="color: #4fc3f7;">account settings</a>.
    </p>
  </div>
</body>
</html>`,
		rule.Name,
		userName,
		rule.Name,
		rule.Symbol,
		quote.Price.StringFixed(2),
		quote.ChangePct.StringFixed(2),
		formatVolume(decimal.NewFromInt(quote.Volume)),
		watchlistURL,
		frontendURL,
	)
}
