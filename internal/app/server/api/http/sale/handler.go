package sale

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"possync/internal/domain/catalog"
	"possync/internal/domain/sale"
)

type Handler struct {
	service    sale.Servicer
	catalog    catalog.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sale.Servicer, catalogService catalog.Servicer, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		catalog:    catalogService,
		log:        log,
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.pushTransactionOp(), h.pushTransaction)
	huma.Register(api, h.pushInventoryOp(), h.pushInventory)
	huma.Register(api, h.statsOp(), h.stats)
}

func (h *Handler) pushTransaction(ctx context.Context, input *pushInput) (*pushOutput, error) {
	return h.push(ctx, sale.KindTransaction, input)
}

// pushInventory сохраняет корректировку и применяет ее к остатку.
// Ошибка применения не отменяет прием: касса не должна повторять запись.
func (h *Handler) pushInventory(ctx context.Context, input *pushInput) (*pushOutput, error) {
	out, err := h.push(ctx, sale.KindInventoryUpdate, input)
	if err != nil || out.Body.Duplicate {
		return out, err
	}

	if err := h.catalog.ApplyInventoryUpdate(ctx, input.Body.Payload); err != nil {
		h.log.Warn("stock not adjusted", "ref", input.Body.Ref, "id", out.Body.ID, "error", err)
	}

	return out, nil
}

func (h *Handler) push(ctx context.Context, kind sale.Kind, input *pushInput) (*pushOutput, error) {
	acc, err := h.service.Accept(ctx, kind, input.Body)
	if err != nil {
		switch {
		case errors.Is(err, sale.ErrEmptyRef),
			errors.Is(err, sale.ErrInvalidPayload),
			errors.Is(err, sale.ErrUnknownKind):
			return nil, huma.Error422UnprocessableEntity(err.Error())
		default:
			return nil, huma.Error500InternalServerError("failed to store entry")
		}
	}

	status := http.StatusCreated
	if acc.Duplicate {
		status = http.StatusOK
	}

	return &pushOutput{
		Status: status,
		Body: sale.PushResponse{
			Status:    "Ok",
			ID:        acc.ID,
			Duplicate: acc.Duplicate,
		},
	}, nil
}

func (h *Handler) stats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	tx, err := h.service.Count(ctx, sale.KindTransaction)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to count transactions")
	}

	inv, err := h.service.Count(ctx, sale.KindInventoryUpdate)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to count inventory updates")
	}

	return &statsOutput{
		Body: statsResponse{Transactions: tx, InventoryUpdates: inv},
	}, nil
}
