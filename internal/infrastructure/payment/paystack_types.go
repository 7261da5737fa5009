package payment

import (
	"encoding/json"
	"strconv"
)

// paystackEnvelope is the wrapper around every Paystack response
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type paystackInitializeRequest struct {
	Email       string            `json:"email"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Reference   string            `json:"reference"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paystackInitializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// paystackTransaction is the transaction object returned by verify and
// carried in webhook payloads. Amounts are in minor units.
type paystackTransaction struct {
	ID              int64            `json:"id"`
	Status          string           `json:"status"`
	Reference       string           `json:"reference"`
	Amount          int64            `json:"amount"`
	Fees            *int64           `json:"fees"`
	Currency        string           `json:"currency"`
	PaidAt          string           `json:"paid_at"`
	Channel         string           `json:"channel"`
	GatewayResponse string           `json:"gateway_response"`
	Metadata        paystackMetadata `json:"metadata"`
}

type paystackWebhook struct {
	Event string              `json:"event"`
	Data  paystackTransaction `json:"data"`
}

// paystackMetadata accepts the object we send on initialize, and tolerates
// the empty string or number Paystack returns for transactions without one.
type paystackMetadata map[string]string

func (m *paystackMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = nil
		return nil
	}
	out := make(paystackMetadata, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(val)
		}
	}
	*m = out
	return nil
}
