package relay

import "encoding/json"

// CallbackResult reports whether the provider accepted a bridged call.
type CallbackResult struct {
	Accepted     bool
	From         string
	To           string
	ProviderTime string
	CallID       string
	Raw          json.RawMessage
}

// BalanceResult carries the account balance.
type BalanceResult struct {
	OK       bool
	Balance  float64
	Currency string
	Raw      json.RawMessage
}

// SIPExtension describes one SIP extension on the account.
type SIPExtension struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Lines       int    `json:"lines"`
}

// SIPListResult lists the extensions available for outbound bridging.
type SIPListResult struct {
	OK         bool
	Extensions []SIPExtension
	Raw        json.RawMessage
}

// CallInfoResult carries the provider's record of a placed call.
type CallInfoResult struct {
	OK          bool
	CallID      string
	Duration    int
	Disposition string
	Raw         json.RawMessage
}

type callbackResponse struct {
	Status string `json:"status"`
	From   string `json:"from"`
	To     string `json:"to"`
	Time   string `json:"time"`
	CallID string `json:"call_id"`
}

type balanceResponse struct {
	Status   string  `json:"status"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

type sipListResponse struct {
	Status string         `json:"status"`
	SIPs   []SIPExtension `json:"sips"`
}

type callInfoResponse struct {
	Status      string `json:"status"`
	CallID      string `json:"call_id"`
	Duration    int    `json:"duration"`
	Disposition string `json:"disposition"`
}
