package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tournevent/tradepost/pkg/shipping"
)

// Coordinator is the shipping workflow served over HTTP.
type Coordinator interface {
	GetRates(ctx context.Context, req *shipping.RateRequest) (*shipping.Quote, error)
	CreateLabel(ctx context.Context, callerID int64, req *shipping.LabelRequest) (*shipping.LabelResult, error)
	GetTracking(ctx context.Context, carrier, trackingNumber string) (*shipping.TrackingInfo, error)
	ListLabels(ctx context.Context, callerID, tradeID int64) ([]shipping.LabelRecord, error)
}

// ShippingHandler handles HTTP requests for shipping operations.
type ShippingHandler struct {
	coord Coordinator
}

// NewShippingHandler creates a ShippingHandler.
func NewShippingHandler(coord Coordinator) *ShippingHandler {
	return &ShippingHandler{coord: coord}
}

// GetRates handles POST /v1/shipping/rates.
func (h *ShippingHandler) GetRates(c echo.Context) error {
	var req ratesRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	quote, err := h.coord.GetRates(c.Request().Context(), req.toModel())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toRatesResponse(quote))
}

// CreateLabel handles POST /v1/shipping/labels.
func (h *ShippingHandler) CreateLabel(c echo.Context) error {
	callerID, err := callerFromContext(c)
	if err != nil {
		return err
	}

	var req labelRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	label, err := h.coord.CreateLabel(c.Request().Context(), callerID, req.toModel())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toLabelResponse(label))
}

// GetTracking handles GET /v1/shipping/tracking/:carrier/:tracking_number.
func (h *ShippingHandler) GetTracking(c echo.Context) error {
	info, err := h.coord.GetTracking(c.Request().Context(), c.Param("carrier"), c.Param("tracking_number"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTrackingResponse(info))
}

// ListLabels handles GET /v1/trades/:trade_id/labels.
func (h *ShippingHandler) ListLabels(c echo.Context) error {
	callerID, err := callerFromContext(c)
	if err != nil {
		return err
	}

	tradeID, err := strconv.ParseInt(c.Param("trade_id"), 10, 64)
	if err != nil {
		return shipping.NewError(shipping.KindValidation, "trade_id must be an integer")
	}

	labels, err := h.coord.ListLabels(c.Request().Context(), callerID, tradeID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLabelListResponse(labels))
}
