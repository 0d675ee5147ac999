package catalog

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"possync/internal/domain/catalog"
)

type Handler struct {
	service    catalog.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service catalog.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.productsOp(), h.products)
	huma.Register(api, h.customersOp(), h.customers)
}

func (h *Handler) products(ctx context.Context, _ *struct{}) (*productsOutput, error) {
	resp, err := h.service.Products(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list products")
	}
	return &productsOutput{Body: resp}, nil
}

func (h *Handler) customers(ctx context.Context, _ *struct{}) (*customersOutput, error) {
	resp, err := h.service.Customers(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list customers")
	}
	return &customersOutput{Body: resp}, nil
}
