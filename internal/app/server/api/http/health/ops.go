package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Service and database health",
		Description: "Reports whether the backend and its database are reachable. Tills poll it as a connectivity probe.",
		Tags:        []string{"health"},
		Middlewares: h.middleware,
	}
}
