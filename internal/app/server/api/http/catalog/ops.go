package catalog

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) productsOp() huma.Operation {
	return huma.Operation{
		OperationID: "catalog-products",
		Method:      http.MethodGet,
		Path:        "/api/v1/products",
		Summary:     "Каталог товаров для офлайн-кэша касс",
		Tags:        []string{"catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}

func (h *Handler) customersOp() huma.Operation {
	return huma.Operation{
		OperationID: "catalog-customers",
		Method:      http.MethodGet,
		Path:        "/api/v1/customers",
		Summary:     "Справочник покупателей для офлайн-кэша касс",
		Tags:        []string{"catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
		Middlewares: h.middleware,
	}
}
