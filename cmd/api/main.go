package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"flowershop/internal/categories"
	"flowershop/internal/customers"
	"flowershop/internal/flowers"
	"flowershop/internal/messaging"
	"flowershop/internal/orders"
	"flowershop/internal/storage"
	"flowershop/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "flowershop-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("flowershop-api", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := runtime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	imageRoot := os.Getenv("IMAGE_STORE_PATH")
	if imageRoot == "" {
		imageRoot = "images"
	}
	imageStore, err := storage.NewDiskStore(imageRoot)
	if err != nil {
		logger.Error("failed to initialize image store", "error", err)
		os.Exit(1)
	}

	flowerRepo := flowers.NewRepository(db)
	categoryRepo := categories.NewRepository(db)
	customerRepo := customers.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	var producer orders.EventPublisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		kafkaProducer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.TopicOrderCreated)
		defer func() { _ = kafkaProducer.Close() }()
		producer = kafkaProducer
	}

	flowerHandler := flowers.NewHandler(flowerRepo, categoryRepo, imageStore, logger)
	categoryHandler := categories.NewHandler(categoryRepo, logger)
	customerHandler := customers.NewHandler(customerRepo, logger)
	orderHandler := orders.NewHandler(orderRepo, customerRepo, producer, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /flowers", telemetry.WithHTTPRoute(flowerHandler.HandleList))
	mux.HandleFunc("GET /flowers/category/{categoryId}", telemetry.WithHTTPRoute(flowerHandler.HandleListByCategory))
	mux.HandleFunc("GET /flowers/{id}", telemetry.WithHTTPRoute(flowerHandler.HandleGet))
	mux.HandleFunc("POST /flowers", telemetry.WithHTTPRoute(flowerHandler.HandleCreate))
	mux.HandleFunc("PUT /flowers", telemetry.WithHTTPRoute(flowerHandler.HandleUpdate))
	mux.HandleFunc("DELETE /flowers/{id}", telemetry.WithHTTPRoute(flowerHandler.HandleDelete))
	mux.HandleFunc("POST /flowers/{id}/images", telemetry.WithHTTPRoute(flowerHandler.HandleUploadImages))
	mux.HandleFunc("DELETE /flowers/{id}/images/{imageId}", telemetry.WithHTTPRoute(flowerHandler.HandleDeleteImage))

	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(categoryHandler.HandleList))
	mux.HandleFunc("GET /categories/{id}", telemetry.WithHTTPRoute(categoryHandler.HandleGet))
	mux.HandleFunc("POST /categories", telemetry.WithHTTPRoute(categoryHandler.HandleCreate))
	mux.HandleFunc("PUT /categories", telemetry.WithHTTPRoute(categoryHandler.HandleUpdate))
	mux.HandleFunc("DELETE /categories/{id}", telemetry.WithHTTPRoute(categoryHandler.HandleDelete))

	mux.HandleFunc("GET /customers", telemetry.WithHTTPRoute(customerHandler.HandleList))
	mux.HandleFunc("GET /customers/{id}", telemetry.WithHTTPRoute(customerHandler.HandleGet))
	mux.HandleFunc("POST /customers", telemetry.WithHTTPRoute(customerHandler.HandleCreate))
	mux.HandleFunc("PUT /customers", telemetry.WithHTTPRoute(customerHandler.HandleUpdate))
	mux.HandleFunc("DELETE /customers/{id}", telemetry.WithHTTPRoute(customerHandler.HandleDelete))

	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/reports/sales", telemetry.WithHTTPRoute(orderHandler.HandleSalesReport))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(orderHandler.HandleCreate))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "flowershop-api",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting flowershop api", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
