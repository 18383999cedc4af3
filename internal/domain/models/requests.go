package models

// Requests for the dashboard HTTP endpoints. Defined in domain for
// consistency and reuse.

type SummaryRequest struct {
	Window string `query:"window" json:"window" default:"24h" validate:"oneof=24h 7d 30d all"`
}

type TradesHistoryRequest struct {
	Address string `query:"address" json:"address" validate:"required"`
	Limit   int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type BalanceHistoryRequest struct {
	Address string `query:"address" json:"address" validate:"required"`
	Token   string `query:"token" json:"token"`
	Window  string `query:"window" json:"window" default:"7d" validate:"oneof=24h 7d 30d all"`
}
