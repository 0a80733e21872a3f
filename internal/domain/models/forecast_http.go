package models

// Requests for forecast HTTP endpoints. Defined in domain for consistency and reuse.

type ForecastRequest struct {
	Symbol     string `query:"symbol" json:"symbol" validate:"required,min=1,max=12"`
	Horizon    int    `query:"horizon" json:"horizon" default:"7" validate:"gte=1,lte=90"`
	NLags      int    `query:"n_lags" json:"n_lags" default:"7" validate:"gte=1,lte=30"`
	WindowSize int    `query:"window_size" json:"window_size" default:"7" validate:"gte=2,lte=60"`
}

type CandlesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,min=1,max=12"`
	N      int    `query:"n" json:"n" default:"120" validate:"gte=1,lte=5000"`
}
