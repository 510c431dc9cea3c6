package api

import (
	"errors"

	"MarketFeeds/internal/domain/models"
	"MarketFeeds/internal/scalar"
	xhttp "MarketFeeds/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// CallerHeader carries the ledger account id of the caller. Authentication
// proper sits in front of this service.
const CallerHeader = "X-Caller-Account"

func callerAccount(c echo.Context) string {
	return c.Request().Header.Get(CallerHeader)
}

// mapDomainError translates sentinel domain errors into transport errors.
func mapDomainError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, models.ErrPermissionDenied):
		return xhttp.PermissionDeniedError(err.Error())
	case errors.Is(err, models.ErrAlreadyExists):
		return xhttp.AlreadyExistsError(err.Error())
	case errors.Is(err, models.ErrInvalidOrdering):
		return xhttp.InvalidOrderingError(err.Error())
	case errors.Is(err, models.ErrHalted):
		return xhttp.HaltedError(err.Error())
	case errors.Is(err, models.ErrInvalidTimeframe):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrInsufficientFunds):
		return xhttp.InsufficientFundsError(err.Error())
	case errors.Is(err, models.ErrFeeCooldown):
		return xhttp.FeeCooldownError(err.Error())
	case errors.Is(err, scalar.ErrInvalidScalarInput):
		return xhttp.InvalidScalarInputError(err.Error())
	case errors.Is(err, scalar.ErrDivisionByZero):
		return xhttp.DivisionByZeroError(err.Error())
	default:
		return xhttp.InternalError(err.Error()).WithError(err)
	}
}

func parseDecimal(c echo.Context, field, s string) (decimal.Decimal, *xhttp.AppError) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, xhttp.NewAppError("ERR_VALIDATION", field, field+" must be a decimal string", 400)
	}
	return d, nil
}
