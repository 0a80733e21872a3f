package api

import (
	"errors"
	"net/http"
	"time"

	models "StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/usecase"
	pkgcache "StockCast/pkg/cache"
	xhttp "StockCast/pkg/http"
	xlogger "StockCast/pkg/logger"
	"StockCast/pkg/util"

	"github.com/labstack/echo/v4"
)

// Forecast computation is expensive on a cache miss, so each symbol
// gets a small token bucket.
const (
	forecastBurst  = 3
	forecastPerSec = 0.5

	candlesCacheTTL = time.Minute
)

// ForecastEchoHandler exposes the forecast pipeline over HTTP.
type ForecastEchoHandler struct {
	logger    *xlogger.Logger
	predictor *usecase.Predictor
	store     domrepo.PriceStore
	limiter   *ratelimit.Limiter
	respCache pkgcache.Service
}

func NewForecastEchoHandler(logger *xlogger.Logger, predictor *usecase.Predictor, store domrepo.PriceStore, respCache pkgcache.Service) *ForecastEchoHandler {
	return &ForecastEchoHandler{
		logger:    logger,
		predictor: predictor,
		store:     store,
		limiter:   ratelimit.New(),
		respCache: respCache,
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/candles", h.Candles)
	e.GET("/healthz", h.Health)
}

func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.limiter.Allow("forecast:"+req.Symbol, forecastBurst, forecastPerSec) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded for symbol")
	}

	res, err := h.predictor.Forecast(c.Request().Context(), *req)
	if err != nil {
		if errors.Is(err, util.ErrInvalidDate) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Error("forecast usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if res == nil {
		// Not an error: the caller renders "forecast unavailable".
		return xhttp.SuccessResponse(c, map[string]interface{}{
			"symbol":   req.Symbol,
			"forecast": nil,
			"message":  "forecast unavailable",
		})
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *ForecastEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := pkgcache.Key("candles", req.Symbol, req.N)

	if h.respCache != nil {
		var bars []models.DailyBar
		if err := h.respCache.Get(ctx, key, &bars); err == nil {
			return xhttp.ListResponse(c, bars, int64(len(bars)))
		}
	}

	bars, err := h.predictor.Candles(ctx, req.Symbol, req.N)
	if err != nil {
		h.logger.Error("candles usecase error",
			xlogger.String("symbol", req.Symbol),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if h.respCache != nil && len(bars) > 0 {
		_ = h.respCache.Set(ctx, key, bars, candlesCacheTTL)
	}
	return xhttp.ListResponse(c, bars, int64(len(bars)))
}

func (h *ForecastEchoHandler) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

var _ xhttp.Handler = (*ForecastEchoHandler)(nil)
