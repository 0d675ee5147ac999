// GET  /api/v1/health               # Проба связи для касс (публичный)
// POST /api/v1/transactions         # Продажа с кассы (auth)
// POST /api/v1/inventory-updates    # Корректировка остатков (auth)
// GET  /api/v1/submissions/stats    # Количество принятых записей (auth)
// GET  /api/v1/products             # Каталог для офлайн-кэша (auth)
// GET  /api/v1/customers            # Покупатели для офлайн-кэша (auth)

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	catalogAPI "possync/internal/app/server/api/http/catalog"
	healthAPI "possync/internal/app/server/api/http/health"
	"possync/internal/app/server/api/http/middleware"
	"possync/internal/app/server/api/http/middleware/auth"
	"possync/internal/app/server/api/http/middleware/logger"
	saleAPI "possync/internal/app/server/api/http/sale"
	"possync/internal/domain/catalog"
	"possync/internal/domain/sale"
	"possync/internal/infrastructure/storage/postgres"
)

type Handlers struct {
	Health  *healthAPI.Handler
	Sale    *saleAPI.Handler
	Catalog *catalogAPI.Handler
}

// Services - доменные сервисы, из которых собираются обработчики
type Services struct {
	Sale    sale.Servicer
	Catalog catalog.Servicer
}

// NewServices создает сервисы поверх postgres
func NewServices(storage *postgres.Storage, log *slog.Logger) Services {
	return Services{
		Sale:    sale.NewService(postgres.NewSubmissionRepository(storage.Pool(), log), log),
		Catalog: catalog.NewService(postgres.NewCatalogRepository(storage.Pool(), log), log),
	}
}

// New создает *chi.Mux со всеми операциями через huma.Register.
// db может быть nil, тогда health не проверяет базу.
func New(services Services, db healthAPI.Pinger, apiToken string, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("POS Sync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(services, db, apiToken, log)
	h.Health.SetupRoutes(API)
	h.Sale.SetupRoutes(API)
	h.Catalog.SetupRoutes(API)

	return mux
}

func handlers(services Services, db healthAPI.Pinger, apiToken string, log *slog.Logger) *Handlers {
	authMW := auth.New(apiToken, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(db, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	saleHandler := saleAPI.NewHandler(services.Sale, services.Catalog, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	middlewares.Add(authMW.Middleware())
	catalogHandler := catalogAPI.NewHandler(services.Catalog, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Sale:    saleHandler,
		Catalog: catalogHandler,
	}
}
