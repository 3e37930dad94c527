package server

import (
	"context"
	"errors"
	"net/http"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/labstack/echo/v4"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

// 499 is nginx's client-closed-request status
const statusClientClosedRequest = 499

func errorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		he := toHTTPError(err, c)

		if !c.Response().Committed {
			var werr error
			if c.Request().Method == http.MethodHead {
				werr = c.NoContent(he.Code)
			} else {
				werr = c.JSON(he.Code, he)
			}
			if werr != nil {
				log.Errorw(c.Request().Context(), "write error response", "error", werr)
			}
		}
	}
}

func toHTTPError(err error, c echo.Context) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, models.ErrUnauthorized):
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, models.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	case errors.Is(err, models.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "already exists")
	case errors.Is(err, models.ErrVersionConflict):
		return echo.NewHTTPError(http.StatusConflict, "conflicting update, retry")
	case errors.Is(err, models.ErrInvalidMessage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		return echo.NewHTTPError(statusClientClosedRequest, "request canceled")
	}

	log.Errorw(c.Request().Context(), "unhandled error", "error", err)
	return &echo.HTTPError{
		Code:    http.StatusInternalServerError,
		Message: http.StatusText(http.StatusInternalServerError),
	}
}
