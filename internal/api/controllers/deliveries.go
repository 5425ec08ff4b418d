package controllers

import (
	"net/http"
	"strconv"

	"github.com/appcourier/appcourier/internal/app"
	"github.com/labstack/echo/v5"
)

const defaultRecentLimit = 50

type DeliveryController struct {
	App *app.Context
}

// HandleRecent returns the latest delivery records, newest first.
func (ctrl *DeliveryController) HandleRecent(c *echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		}
		limit = n
	}

	records, err := ctrl.App.History.Recent(c.Request().Context(), limit)
	if err != nil {
		ctrl.App.Logger.Error("history query: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
	}

	return c.JSON(http.StatusOK, records)
}
