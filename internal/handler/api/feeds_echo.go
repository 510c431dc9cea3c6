package api

import (
	"strconv"
	"time"

	models "MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	svcache "MarketFeeds/internal/service/cache"
	"MarketFeeds/internal/usecase"
	pkgcache "MarketFeeds/pkg/cache"
	xhttp "MarketFeeds/pkg/http"
	xlogger "MarketFeeds/pkg/logger"
	"MarketFeeds/pkg/util"

	"github.com/labstack/echo/v4"
)

// FeedsEchoHandler exposes the candlestick registry over HTTP.
type FeedsEchoHandler struct {
	logger     *xlogger.Logger
	registry   *usecase.CandlestickRegistry
	archive    domrepo.BarArchive
	cache      *svcache.TTLCache
	history    pkgcache.Service
	infoTTL    time.Duration
	historyTTL time.Duration
}

func NewFeedsEchoHandler(logger *xlogger.Logger, registry *usecase.CandlestickRegistry, archive domrepo.BarArchive, cache *svcache.TTLCache, history pkgcache.Service, infoTTL, historyTTL time.Duration) *FeedsEchoHandler {
	if infoTTL <= 0 {
		infoTTL = 5 * time.Second
	}
	if historyTTL <= 0 {
		historyTTL = 30 * time.Second
	}
	return &FeedsEchoHandler{
		logger:     logger,
		registry:   registry,
		archive:    archive,
		cache:      cache,
		history:    history,
		infoTTL:    infoTTL,
		historyTTL: historyTTL,
	}
}

func (h *FeedsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/feeds")
	g.POST("", h.Register)
	g.GET("/count", h.Count)
	g.POST("/timeframes", h.AddTimeframe)
	g.GET("/timeframes/:tf", h.TimeframeValid)
	g.POST("/operator", h.SetOperator)
	g.POST("/registrar", h.SetRegistrar)

	g.GET("/:symbol/:tf/price", h.Price)
	g.GET("/:symbol/:tf/price/:index", h.PriceAt)
	g.GET("/:symbol/:tf/candle", h.Candle)
	g.GET("/:symbol/:tf/candle/:index", h.CandleAt)
	g.GET("/:symbol/:tf/aggregate", h.Aggregate)
	g.GET("/:symbol/:tf/history", h.History)
	g.GET("/:symbol/:tf/info", h.Info)
	g.GET("/:symbol/:tf/status", h.Status)
	g.GET("/:symbol/:tf/last-updated", h.LastUpdated)
	g.GET("/:symbol/:tf/can-update", h.CanUpdate)
	g.GET("/:symbol/:tf/id", h.FeedID)
	g.POST("/:symbol/:tf/bars", h.UpdateBar)
	g.POST("/:symbol/:tf/halt", h.Halt)
	g.POST("/:symbol/:tf/provider", h.SetProvider)
	g.POST("/:symbol/:tf/operator", h.SetFeedOperator)
}

func feedParams(c echo.Context) (string, int) {
	return c.Param("symbol"), domrepo.ParseTimeframe(c.Param("tf"))
}

func (h *FeedsEchoHandler) Register(c echo.Context) error {
	req := &models.RegisterFeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	feed, err := h.registry.RegisterDataFeed(callerAccount(c), req.Asset, req.Symbol, req.Timeframe, req.DataProvider)
	if err != nil {
		h.logger.Error("register feed", xlogger.String("asset", req.Asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{"id": feed.ID()})
}

func (h *FeedsEchoHandler) Count(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{"count": h.registry.NumberOfDataFeeds()})
}

func (h *FeedsEchoHandler) AddTimeframe(c echo.Context) error {
	req := &models.AddTimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.AddValidTimeframe(callerAccount(c), req.Timeframe); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"timeframe": req.Timeframe})
}

func (h *FeedsEchoHandler) TimeframeValid(c echo.Context) error {
	tf := domrepo.ParseTimeframe(c.Param("tf"))
	return xhttp.SuccessResponse(c, map[string]interface{}{"timeframe": tf, "valid": h.registry.IsValidTimeframe(tf)})
}

func (h *FeedsEchoHandler) SetOperator(c echo.Context) error {
	req := &models.SetOperatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetOperator(callerAccount(c), req.Operator); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *FeedsEchoHandler) SetRegistrar(c echo.Context) error {
	req := &models.SetProviderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetRegistrar(callerAccount(c), req.DataProvider); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *FeedsEchoHandler) Price(c echo.Context) error {
	symbol, tf := feedParams(c)
	price, err := h.registry.GetCurrentPrice(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"price": price})
}

func (h *FeedsEchoHandler) PriceAt(c echo.Context) error {
	symbol, tf := feedParams(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return xhttp.BadRequestResponse(c, "index must be an integer")
	}
	price, derr := h.registry.GetPriceAt(symbol, tf, index)
	if derr != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(derr))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"index": index, "price": price})
}

func (h *FeedsEchoHandler) Candle(c echo.Context) error {
	symbol, tf := feedParams(c)
	bar, err := h.registry.GetCurrentCandlestick(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, bar)
}

func (h *FeedsEchoHandler) CandleAt(c echo.Context) error {
	symbol, tf := feedParams(c)
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return xhttp.BadRequestResponse(c, "index must be an integer")
	}
	bar, derr := h.registry.GetCandlestickAt(symbol, tf, index)
	if derr != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(derr))
	}
	return xhttp.SuccessResponse(c, bar)
}

func (h *FeedsEchoHandler) Aggregate(c echo.Context) error {
	symbol, tf := feedParams(c)
	req := &models.AggregateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	bar, err := h.registry.AggregateCandlesticks(symbol, tf, req.Count)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, bar)
}

// History serves closed bars from the archive. Results are cached because the
// archive only ever gains rows for a given (symbol, timeframe, limit) window.
func (h *FeedsEchoHandler) History(c echo.Context) error {
	symbol, tf := feedParams(c)
	limit := util.ParseIntDefault(c.QueryParam("limit"), 100)
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	ctx := c.Request().Context()
	key := pkgcache.GenerateKeyWithParams("history", symbol, tf, limit)
	if h.history != nil {
		var cached []models.Candlestick
		if err := h.history.Get(ctx, key, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.InternalError("bar archive unavailable"))
	}
	bars, err := h.archive.Query(ctx, symbol, tf, limit)
	if err != nil {
		h.logger.Error("history query", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	if h.history != nil {
		_ = h.history.Set(ctx, key, bars, h.historyTTL)
	}
	return xhttp.SuccessResponse(c, bars)
}

func (h *FeedsEchoHandler) Info(c echo.Context) error {
	symbol, tf := feedParams(c)
	key := "feedinfo:" + symbol + ":" + strconv.Itoa(tf)
	if h.cache != nil {
		if v, ok := h.cache.Get(key); ok {
			return xhttp.SuccessResponse(c, v)
		}
	}
	info, err := h.registry.GetDataFeedInfo(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	if h.cache != nil {
		h.cache.Set(key, info, h.infoTTL)
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *FeedsEchoHandler) Status(c echo.Context) error {
	symbol, tf := feedParams(c)
	status := h.registry.GetDataFeedStatus(symbol, tf)
	return xhttp.SuccessResponse(c, map[string]interface{}{"status": int(status), "label": status.String()})
}

func (h *FeedsEchoHandler) LastUpdated(c echo.Context) error {
	symbol, tf := feedParams(c)
	ts, err := h.registry.LastUpdated(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"last_updated": ts})
}

func (h *FeedsEchoHandler) CanUpdate(c echo.Context) error {
	symbol, tf := feedParams(c)
	ok, err := h.registry.CanUpdate(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"can_update": ok})
}

func (h *FeedsEchoHandler) FeedID(c echo.Context) error {
	symbol, tf := feedParams(c)
	id, err := h.registry.GetDataFeedID(symbol, tf)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"id": id})
}

func (h *FeedsEchoHandler) UpdateBar(c echo.Context) error {
	symbol, tf := feedParams(c)
	req := &models.BarUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	u := models.BarUpdate{Timestamp: req.Timestamp}
	var aerr *xhttp.AppError
	if u.Open, aerr = parseDecimal(c, "open", req.Open); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if u.High, aerr = parseDecimal(c, "high", req.High); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if u.Low, aerr = parseDecimal(c, "low", req.Low); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if u.Close, aerr = parseDecimal(c, "close", req.Close); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if u.Volume, aerr = parseDecimal(c, "volume", req.Volume); aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if err := h.registry.UpdateBar(c.Request().Context(), callerAccount(c), symbol, tf, u); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *FeedsEchoHandler) Halt(c echo.Context) error {
	symbol, tf := feedParams(c)
	req := &models.HaltFeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.HaltDataFeed(callerAccount(c), symbol, tf, req.Halt); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *FeedsEchoHandler) SetProvider(c echo.Context) error {
	symbol, tf := feedParams(c)
	req := &models.SetProviderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.UpdateDedicatedDataProvider(callerAccount(c), symbol, tf, req.DataProvider); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *FeedsEchoHandler) SetFeedOperator(c echo.Context) error {
	symbol, tf := feedParams(c)
	req := &models.SetOperatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetDataFeedOperator(callerAccount(c), symbol, tf, req.Operator); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}
