package stream

import "encoding/json"

// snsEnvelope is the wrapper the quote publisher's fan-out puts around the
// actual payload when the topic is bridged onto the bus.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// UnwrapEnvelope extracts the inner payload from an SNS-style JSON
// envelope. Bodies that are not an envelope (raw publishes, test
// producers) pass through unchanged.
func UnwrapEnvelope(body []byte) []byte {
	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if envelope.Message == "" {
		return body
	}
	return []byte(envelope.Message)
}
