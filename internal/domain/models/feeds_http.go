package models

// HTTP request DTOs. Decimal fields arrive as strings and are parsed at the
// handler edge so validation errors stay in the transport layer.

type RegisterFeedRequest struct {
	Asset        string `json:"asset" validate:"required"`
	Symbol       string `json:"symbol" validate:"required,min=1,max=16"`
	Timeframe    int    `json:"timeframe" validate:"required,gt=0"`
	DataProvider string `json:"data_provider" validate:"required"`
}

type BarUpdateRequest struct {
	Open      string `json:"open" validate:"required,decimal"`
	High      string `json:"high" validate:"required,decimal"`
	Low       string `json:"low" validate:"required,decimal"`
	Close     string `json:"close" validate:"required,decimal"`
	Volume    string `json:"volume" validate:"required,decimal"`
	Timestamp int64  `json:"timestamp" validate:"required,gt=0"`
}

type AggregateRequest struct {
	Count int `query:"count" json:"count" default:"1" validate:"gte=1"`
}

type AddTimeframeRequest struct {
	Timeframe int `json:"timeframe" validate:"required,gt=0"`
}

type HaltFeedRequest struct {
	Halt bool `json:"halt"`
}

type SetProviderRequest struct {
	DataProvider string `json:"data_provider" validate:"required"`
}

type SetOperatorRequest struct {
	Operator string `json:"operator" validate:"required"`
}

type RegisterPerformanceFeedRequest struct {
	Owner        string `json:"owner" validate:"required"`
	DataProvider string `json:"data_provider" validate:"required"`
	UsageFee     string `json:"usage_fee" validate:"required,decimal"`
}

type PositionUpdateRequest struct {
	Asset          string `json:"asset" validate:"required"`
	IsLong         bool   `json:"is_long"`
	ExecutionPrice string `json:"execution_price" validate:"required,decimal"`
	Size           string `json:"size" validate:"required,decimal"`
}

type UpdateUsageFeeRequest struct {
	UsageFee string `json:"usage_fee" validate:"required,decimal"`
}
