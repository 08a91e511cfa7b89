package delivery

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerwatch/notifier/internal/domain"
)

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "Price Above", kindLabel(domain.KindPriceAbove))
	assert.Equal(t, "Volume Spike", kindLabel(domain.KindVolumeSpike))
	assert.Equal(t, "some future kind", kindLabel(domain.AlertKind("some_future_kind")))
}

func TestFormatVolume(t *testing.T) {
	cases := []struct {
		vol  int64
		want string
	}{
		{500, "500"},
		{1_500, "1.5K"},
		{2_500_000, "2.5M"},
		{3_200_000_000, "3.2B"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatVolume(decimal.NewFromInt(tc.vol)))
	}
}

func TestBuildMessage(t *testing.T) {
	quote := sampleQuote()

	rule := sampleRule()
	assert.Equal(t, "AAPL crossed above $150.00 (current: $151.25)", buildMessage(rule, quote))

	rule.Kind = domain.KindPriceBelow
	assert.Equal(t, "AAPL dropped below $150.00 (current: $151.25)", buildMessage(rule, quote))

	rule.Kind = domain.KindVolumeAbove
	rule.Conditions = json.RawMessage(`{"threshold": 1000000}`)
	assert.Equal(t, "AAPL volume exceeded 1.0M (current: 2.5M)", buildMessage(rule, quote))

	rule.Kind = domain.KindPriceChangePct
	rule.Conditions = json.RawMessage(`{"percent_change": 2, "direction": "up"}`)
	assert.Equal(t, "AAPL moved 1.80% today", buildMessage(rule, quote))

	// Malformed conditions fall back to a generic message.
	rule.Kind = domain.KindPriceAbove
	rule.Conditions = json.RawMessage(`{"threshold": -5}`)
	assert.Equal(t, "Alert triggered for AAPL", buildMessage(rule, quote))
}

func TestBuildData(t *testing.T) {
	raw := buildData(sampleRule(), sampleQuote())

	var data map[string]any
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "wl-1", data["watch_list_id"])
	assert.Equal(t, "AAPL", data["symbol"])
	assert.Equal(t, "price_above", data["alert_type"])
	assert.Equal(t, "151.25", data["price"])
}
