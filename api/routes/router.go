package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marcvidal/eventstock-backend/api/controllers"
	"github.com/marcvidal/eventstock-backend/api/middleware"
	"github.com/marcvidal/eventstock-backend/internal/allocation"
	"github.com/marcvidal/eventstock-backend/internal/availability"
	"github.com/marcvidal/eventstock-backend/internal/catalog"
	"github.com/marcvidal/eventstock-backend/internal/ledger"
	"github.com/marcvidal/eventstock-backend/internal/registry"
	"github.com/marcvidal/eventstock-backend/pkg/config"
	"github.com/marcvidal/eventstock-backend/pkg/db"
	"github.com/marcvidal/eventstock-backend/pkg/logger"
	"github.com/marcvidal/eventstock-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	catalogService catalog.Service,
	registryService registry.Service,
	ledgerService ledger.Service,
	availabilityCalc availability.Calculator,
	allocationEngine allocation.Engine,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Get("/ping", controllers.Ping())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.ProductCreate(catalogService, logg))
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Get("/critical", controllers.ProductListCritical(catalogService, logg))
			r.Get("/code/{code}", controllers.ProductGetByCode(catalogService, logg))

			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", controllers.ProductGet(catalogService, logg))
				r.Patch("/", controllers.ProductUpdate(catalogService, logg))
				r.Post("/adjust-stock", controllers.ProductAdjustStock(catalogService, logg))
				r.Post("/recompute-availability", controllers.ProductRecomputeAvailability(catalogService, logg))
				r.Get("/movements", controllers.ProductMovements(ledgerService, logg))
				r.Get("/movements/totals", controllers.ProductMovementTotals(ledgerService, logg))
			})
		})

		r.Route("/instances", func(r chi.Router) {
			r.Post("/", controllers.InstanceRegister(registryService, logg))
			r.Get("/", controllers.InstanceList(registryService, logg))
			r.Get("/serial/{serial}", controllers.InstanceGetBySerial(registryService, logg))

			r.Route("/{instanceId}", func(r chi.Router) {
				r.Get("/", controllers.InstanceGet(registryService, logg))
				r.Delete("/", controllers.InstanceDelete(registryService, logg))
				r.Post("/status", controllers.InstanceChangeStatus(registryService, logg))
				r.Post("/maintenance", controllers.InstanceSendToMaintenance(registryService, logg))
				r.Post("/maintenance/return", controllers.InstanceReturnFromMaintenance(registryService, logg))
				r.Post("/release", controllers.AllocationReleaseInstance(allocationEngine, logg))
			})
		})

		r.Route("/availability", func(r chi.Router) {
			r.Post("/check", controllers.AvailabilityCheck(availabilityCalc, logg))
			r.Post("/check-batch", controllers.AvailabilityCheckBatch(availabilityCalc, logg))
		})

		r.Route("/reservation-lines/{lineId}", func(r chi.Router) {
			r.Post("/allocate", controllers.AllocationAllocate(allocationEngine, logg))
			r.Post("/release", controllers.AllocationRelease(allocationEngine, logg))
			r.Post("/resize", controllers.AllocationResize(allocationEngine, logg))
		})
	})

	return r
}
