package sale

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) pushTransactionOp() huma.Operation {
	return huma.Operation{
		OperationID: "push-transaction",
		Method:      http.MethodPost,
		Path:        "/api/v1/transactions",
		Summary:     "Принять продажу с кассы",
		Description: "Идемпотентно по ref: повтор возвращает id первой записи и duplicate=true.",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) pushInventoryOp() huma.Operation {
	return huma.Operation{
		OperationID: "push-inventory-update",
		Method:      http.MethodPost,
		Path:        "/api/v1/inventory-updates",
		Summary:     "Принять корректировку остатков с кассы",
		Description: "Корректировка вида {\"sku\": ..., \"delta\": ...} меняет остаток товара при первом приеме.",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) statsOp() huma.Operation {
	return huma.Operation{
		OperationID: "submissions-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/submissions/stats",
		Summary:     "Количество принятых записей",
		Tags:        []string{"sync"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
