package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certigen/docs"
	"certigen/internal/config"
	"certigen/internal/database"
	"certigen/internal/database/migration"
	"certigen/internal/fontfit"
	handlers "certigen/internal/http/handler"
	"certigen/internal/http/middleware"
	"certigen/internal/mail"
	"certigen/internal/otel"
	"certigen/internal/render"
	"certigen/internal/repository/postgres"
	"certigen/internal/service"
	"certigen/internal/storage"
)

// @title CertiGen API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.Local

	ctx := context.Background()

	// Initialize tracing; degrades to noop when the exporter is unreachable
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Apply schema migrations on a fresh database
	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Load the embedded font set once; shared by every render
	fonts, err := fontfit.NewFontSet()
	if err != nil {
		log.Fatalf("failed to load fonts: %v", err)
	}
	renderer := render.NewRenderer(fonts)

	// Outbound mail: a base sender from config, plus a factory so bulk runs
	// can substitute caller-supplied SMTP credentials
	baseSender := mail.NewSMTPSender(cfg.SMTP)
	senderFactory := mail.SenderFactory(func(username, password string) mail.Sender {
		if username == "" {
			return baseSender
		}
		return baseSender.WithCredentials(username, password)
	})

	// Initialize repositories and services
	tplRepo := postgres.NewTemplatePostgres(db)
	certRepo := postgres.NewCertificatePostgres(db)
	tplSvc := service.NewTemplateService(objStore, tplRepo)
	certSvc := service.NewCertificateService(objStore, certRepo, tplSvc, renderer, baseSender, cfg.SMTP.Subject, cfg.SMTP.FromName)
	bulkSvc := service.NewBulkService(tplSvc, certSvc, senderFactory, cfg.SMTP.Subject, cfg.SMTP.FromName,
		time.Duration(cfg.SMTP.SendDelayMS)*time.Millisecond)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Trace every request
	app.Use(otelfiber.Middleware())

	// Request counters, exposed on /metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, tplSvc, certSvc, bulkSvc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
