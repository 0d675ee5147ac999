package logger

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/slog"
)

func TestLogger_Middleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "ok", status: http.StatusCreated, wantLevel: "level=INFO"},
		{name: "client error", status: http.StatusUnprocessableEntity, wantLevel: "level=WARN"},
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
			ctx := humatest.NewContext(&huma.Operation{OperationID: "push-transaction"}, req, httptest.NewRecorder())

			New(log).Middleware()(ctx, func(c huma.Context) {
				c.SetStatus(tt.status)
			})

			out := buf.String()
			assert.Contains(t, out, tt.wantLevel)
			assert.Contains(t, out, "path=/api/v1/transactions")
			assert.Contains(t, out, "operation=push-transaction")
		})
	}
}
