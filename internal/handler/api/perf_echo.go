package api

import (
	models "MarketFeeds/internal/domain/models"
	"MarketFeeds/internal/service/feepool"
	"MarketFeeds/internal/service/ratelimit"
	"MarketFeeds/internal/usecase"
	xhttp "MarketFeeds/pkg/http"
	xlogger "MarketFeeds/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PerfEchoHandler exposes the performance feed registry and the fee pool.
type PerfEchoHandler struct {
	logger   *xlogger.Logger
	registry *usecase.PerformanceRegistry
	fees     *feepool.FeePool
	limiter  *ratelimit.Limiter
	rps      float64
	burst    float64
}

func NewPerfEchoHandler(logger *xlogger.Logger, registry *usecase.PerformanceRegistry, fees *feepool.FeePool, limiter *ratelimit.Limiter, rps float64, burst int) *PerfEchoHandler {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &PerfEchoHandler{logger: logger, registry: registry, fees: fees, limiter: limiter, rps: rps, burst: float64(burst)}
}

func (h *PerfEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/perf")
	g.POST("", h.Register)
	g.GET("/count", h.Count)
	g.POST("/operator", h.SetOperator)
	g.POST("/registrar", h.SetRegistrar)

	g.GET("/:key/token-price", h.TokenPrice)
	g.GET("/:key/indicative-price", h.IndicativePrice)
	g.GET("/:key/info", h.Info)
	g.GET("/:key/status", h.Status)
	g.GET("/:key/last-updated", h.LastUpdated)
	g.POST("/:key/positions", h.UpdatePosition)
	g.POST("/:key/usage-fee", h.UpdateUsageFee)
	g.POST("/:key/halt", h.Halt)
	g.POST("/:key/provider", h.SetProvider)
	g.POST("/:key/operator", h.SetFeedOperator)

	f := e.Group("/api/fees")
	f.GET("/available", h.AvailableFees)
	f.POST("/claim", h.ClaimFees)
}

func (h *PerfEchoHandler) Register(c echo.Context) error {
	req := &models.RegisterPerformanceFeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	fee, aerr := parseDecimal(c, "usage_fee", req.UsageFee)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	feed, err := h.registry.RegisterDataFeed(callerAccount(c), req.Owner, req.DataProvider, fee)
	if err != nil {
		h.logger.Error("register performance feed", xlogger.String("owner", req.Owner), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.CreatedResponse(c, map[string]interface{}{"id": feed.ID(), "owner": feed.Owner()})
}

func (h *PerfEchoHandler) Count(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{"count": h.registry.NumberOfDataFeeds()})
}

func (h *PerfEchoHandler) SetOperator(c echo.Context) error {
	req := &models.SetOperatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetOperator(callerAccount(c), req.Operator); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) SetRegistrar(c echo.Context) error {
	req := &models.SetProviderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetRegistrar(callerAccount(c), req.DataProvider); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

// TokenPrice is the paid read: the caller's account is debited the usage fee
// before any state moves. Rate limited per caller.
func (h *PerfEchoHandler) TokenPrice(c echo.Context) error {
	caller := callerAccount(c)
	if h.limiter != nil && !h.limiter.Allow("token-price:"+caller, float64(h.burst), h.rps) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("ERR_RATE_LIMITED", "", "too many token price reads", 429))
	}
	price, err := h.registry.GetTokenPrice(c.Request().Context(), caller, c.Param("key"))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"token_price": price})
}

func (h *PerfEchoHandler) IndicativePrice(c echo.Context) error {
	price, err := h.registry.GetIndicativePrice(c.Param("key"))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"indicative_price": price})
}

func (h *PerfEchoHandler) Info(c echo.Context) error {
	info, err := h.registry.GetDataFeedInfo(c.Param("key"))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, info)
}

func (h *PerfEchoHandler) Status(c echo.Context) error {
	status := h.registry.GetDataFeedStatus(c.Param("key"))
	return xhttp.SuccessResponse(c, map[string]interface{}{"status": int(status), "label": status.String()})
}

func (h *PerfEchoHandler) LastUpdated(c echo.Context) error {
	ts, err := h.registry.LastUpdated(c.Param("key"))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"last_updated": ts})
}

func (h *PerfEchoHandler) UpdatePosition(c echo.Context) error {
	req := &models.PositionUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	price, aerr := parseDecimal(c, "execution_price", req.ExecutionPrice)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	size, aerr := parseDecimal(c, "size", req.Size)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	err := h.registry.UpdatePosition(c.Request().Context(), callerAccount(c), c.Param("key"), req.Asset, req.IsLong, price, size)
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) UpdateUsageFee(c echo.Context) error {
	req := &models.UpdateUsageFeeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	fee, aerr := parseDecimal(c, "usage_fee", req.UsageFee)
	if aerr != nil {
		return xhttp.AppErrorResponse(c, aerr)
	}
	if err := h.registry.UpdateUsageFee(callerAccount(c), c.Param("key"), fee); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) Halt(c echo.Context) error {
	req := &models.HaltFeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.HaltDataFeed(callerAccount(c), c.Param("key"), req.Halt); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) SetProvider(c echo.Context) error {
	req := &models.SetProviderRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.UpdateDedicatedDataProvider(callerAccount(c), c.Param("key"), req.DataProvider); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) SetFeedOperator(c echo.Context) error {
	req := &models.SetOperatorRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.registry.SetDataFeedOperator(callerAccount(c), c.Param("key"), req.Operator); err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *PerfEchoHandler) AvailableFees(c echo.Context) error {
	caller := callerAccount(c)
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"account":   caller,
		"available": h.fees.AvailableFees(caller),
	})
}

func (h *PerfEchoHandler) ClaimFees(c echo.Context) error {
	claimed, err := h.fees.ClaimFees(c.Request().Context(), callerAccount(c))
	if err != nil {
		return xhttp.AppErrorResponse(c, mapDomainError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"claimed": claimed})
}
