package handler

import (
	"context"
	"net/url"

	"github.com/labstack/echo/v4"

	"cmc-proxy/internal/model"
	"cmc-proxy/internal/response"
	"cmc-proxy/internal/service"
)

type translator func(ctx context.Context, q url.Values) (*model.Result, error)

// QuoteHandler exposes the CoinMarketCap translators over HTTP.
type QuoteHandler struct {
	service *service.QuoteService
}

// NewQuoteHandler creates a QuoteHandler.
func NewQuoteHandler(svc *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: svc}
}

// Latest serves /api/quotes/latest.
func (h *QuoteHandler) Latest(c echo.Context) error {
	return h.relay(c, h.service.LatestQuotes)
}

// Historical serves /api/quotes/historical.
func (h *QuoteHandler) Historical(c echo.Context) error {
	return h.relay(c, h.service.HistoricalQuotes)
}

// Map serves /api/map.
func (h *QuoteHandler) Map(c echo.Context) error {
	return h.relay(c, h.service.SymbolMap)
}

// relay runs one translator and writes its result. Unexpected failures are
// returned for ErrorHandler to render.
func (h *QuoteHandler) relay(c echo.Context, translate translator) error {
	req := c.Request()
	res, err := translate(req.Context(), req.URL.Query())
	if err != nil {
		return err
	}
	return response.JSON(c, res.StatusCode, res.Payload)
}
