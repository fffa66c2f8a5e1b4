package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"relistapi/internal/assist"
	"relistapi/internal/config"
	"relistapi/internal/database"
	"relistapi/internal/database/migration"
	handlers "relistapi/internal/http/handler"
	"relistapi/internal/http/middleware"
	"relistapi/internal/imggen"
	"relistapi/internal/metrics"
	"relistapi/internal/otel"
	"relistapi/internal/repository/postgres"
	"relistapi/internal/service"
	"relistapi/internal/storage"
	"relistapi/internal/textgen"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := time.UTC

	// Tracing is optional; a missing collector degrades to noop.
	shutdownTracing, err := otel.Init(context.Background(), loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Apply schema migrations before serving traffic
	if err := migration.EnsureMigrated(context.Background(), db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Metrics registry: runtime collectors plus domain counters
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	variationMetrics, err := metrics.NewVariationMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register variation metrics: %v", err)
	}

	// Repositories, engines, and services
	originalRepo := postgres.NewOriginalPostgres(db)
	ledgerRepo := postgres.NewLedgerPostgres(db)

	assistClient := assist.NewOpenAIClient(cfg.Assist)
	textEngine := textgen.NewEngine(cfg.Variation, assistClient)
	imagePipeline := imggen.NewPipeline(cfg.Variation)

	originalSvc := service.NewOriginalService(objStore, originalRepo)
	ledgerSvc := service.NewLedgerService(ledgerRepo)

	retention := time.Duration(cfg.Variation.RetentionDays) * 24 * time.Hour
	orch := service.NewOrchestrator(originalSvc, ledgerSvc, textEngine, imagePipeline, variationMetrics, retention)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Variant bundles carry image payloads both ways.
		BodyLimit: 64 * 1024 * 1024,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// HTTP request counting
	app.Use(promMw.Handler())

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, originalSvc, orch)

	// Prometheus exposition on the app port
	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	)
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	// Daily retention pass: purge expired originals and compact the ledger
	maintainCtx, stopMaintain := context.WithCancel(context.Background())
	defer stopMaintain()
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-maintainCtx.Done():
				return
			case <-ticker.C:
				if _, _, err := orch.Maintain(maintainCtx); err != nil {
					log.Printf("maintenance pass failed: %v", err)
				}
			}
		}
	}()

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
