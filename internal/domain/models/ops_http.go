package models

// Requests for the ops HTTP endpoints. Defined in domain for consistency and reuse.

type RecentSignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Side   string `query:"side" json:"side" validate:"omitempty,oneof=BUY SELL NONE"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}
