package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	checkAvailabilityHandler "github.com/m04kA/SMC-RentalService/internal/api/handlers/check_availability"
	createReservationHandler "github.com/m04kA/SMC-RentalService/internal/api/handlers/create_reservation"
	getReservationHandler "github.com/m04kA/SMC-RentalService/internal/api/handlers/get_reservation"
	listReservationsHandler "github.com/m04kA/SMC-RentalService/internal/api/handlers/list_reservations"
	updateReservationStatusHandler "github.com/m04kA/SMC-RentalService/internal/api/handlers/update_reservation_status"
	"github.com/m04kA/SMC-RentalService/internal/api/middleware"
	"github.com/m04kA/SMC-RentalService/internal/config"
	"github.com/m04kA/SMC-RentalService/internal/infra/events"
	"github.com/m04kA/SMC-RentalService/internal/infra/idempotency"
	itemRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/item"
	reservationRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/reservation"
	reservationsService "github.com/m04kA/SMC-RentalService/internal/service/reservations"
	checkAvailabilityUC "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
	createReservationUC "github.com/m04kA/SMC-RentalService/internal/usecase/create_reservation"
	"github.com/m04kA/SMC-RentalService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RentalService/pkg/logger"
	"github.com/m04kA/SMC-RentalService/pkg/metrics"
	"github.com/m04kA/SMC-RentalService/pkg/tracing"
	"github.com/m04kA/SMC-RentalService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-RentalService...")
	log.Info("Configuration loaded from config.toml (date_order_policy=%s, reservation_consistency=%s)",
		cfg.Availability.DateOrderPolicy, cfg.Availability.ReservationConsistency)

	// Трассировка (без endpoint - no-op)
	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), tracing.Config{
		ServiceName: cfg.Metrics.ServiceName,
		Endpoint:    tracingEndpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal("Failed to initialize tracing: %v", err)
	}
	if cfg.Tracing.Enabled {
		log.Info("Tracing enabled, exporting to %s", cfg.Tracing.Endpoint)
	}

	// Инициализируем метрики (если включены).
	// Интерфейсы остаются nil при выключенных метриках, а не typed-nil *metrics.Metrics.
	var (
		metricsCollector   *metrics.Metrics
		dbRecorder         dbmetrics.Recorder
		checkMetrics       checkAvailabilityUC.Metrics
		reservationMetrics createReservationUC.Metrics
	)
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		dbRecorder = metricsCollector
		checkMetrics = metricsCollector
		reservationMetrics = metricsCollector
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	wrappedDB := dbmetrics.WrapWithDefault(db, dbRecorder, stopMetricsCh)

	// Инициализируем репозитории и transaction manager
	itemRepository := itemRepo.NewRepository(wrappedDB)
	reservationRepository := reservationRepo.NewRepository(wrappedDB)
	txMgr := txmanager.NewTransactionManager(wrappedDB, txmanager.WithMaxRetries(cfg.Availability.MaxTxRetries))

	// Ключи идемпотентности: Redis или память процесса
	idempotencyStore, redisClient := newIdempotencyStore(cfg, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Публикация событий
	publisher, err := newEventPublisher(cfg, metricsCollector, log)
	if err != nil {
		log.Fatal("Failed to initialize event publisher: %v", err)
	}
	defer publisher.Close()

	// Инициализируем use cases
	checkAvailabilityUseCase := checkAvailabilityUC.NewUseCase(
		itemRepository,
		reservationRepository,
		cfg.Availability.Policy(),
		checkMetrics,
		log,
	)

	createReservationUseCase := createReservationUC.NewUseCase(
		checkAvailabilityUseCase,
		itemRepository,
		reservationRepository,
		txMgr,
		idempotencyStore,
		publisher,
		cfg.Availability.Consistency(),
		reservationMetrics,
		log,
	)

	// Инициализируем сервисы
	reservationSvc := reservationsService.NewService(
		reservationRepository,
		publisher,
		log,
	)

	// Инициализируем handlers
	checkAvailability := checkAvailabilityHandler.NewHandler(checkAvailabilityUseCase, log)
	createReservation := createReservationHandler.NewHandler(createReservationUseCase, log)
	getReservation := getReservationHandler.NewHandler(reservationSvc, log)
	listReservations := listReservationsHandler.NewHandler(reservationSvc, log)
	updateReservationStatus := updateReservationStatusHandler.NewHandler(reservationSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)

	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(cfg.Metrics.ServiceName))
		log.Info("HTTP tracing middleware enabled")
	}

	// Добавляем metrics middleware (если метрики включены)
	if metricsCollector != nil {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		log.Info("HTTP metrics middleware enabled")

		// Metrics endpoint (публичный, без аутентификации)
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Проверка доступности позиции на период
	api.HandleFunc("/availability", checkAvailability.Handle).Methods(http.MethodPost)
	api.HandleFunc("/availability", checkAvailability.HandleQuery).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(cfg.Auth.UserIDHeader))

	// Создание бронирования
	protected.HandleFunc("/reservations", createReservation.Handle).Methods(http.MethodPost)

	// ============================================================
	// ADMIN ROUTES (требуют X-User-Role: admin)
	// ============================================================

	admin := api.PathPrefix("").Subrouter()
	admin.Use(middleware.RequireAdmin(cfg.Auth.RoleHeader, cfg.Auth.AdminRole))

	admin.HandleFunc("/reservations", listReservations.Handle).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{reservationId}", getReservation.Handle).Methods(http.MethodGet)
	admin.HandleFunc("/reservations/{reservationId}/status", updateReservationStatus.Handle).Methods(http.MethodPatch)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Failed to flush traces: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// newIdempotencyStore возвращает Redis хранилище, если оно включено, иначе хранилище в памяти
func newIdempotencyStore(cfg *config.Config, log *logger.Logger) (createReservationUC.IdempotencyStore, *redis.Client) {
	ttl := time.Duration(cfg.Redis.IdempotencyTTL) * time.Second

	if !cfg.Redis.Enabled {
		log.Warn("Redis disabled, idempotency keys are kept in process memory")
		return idempotency.NewMemoryStore(ttl), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to ping redis at %s: %v", cfg.Redis.Addr, err)
	}
	log.Info("Successfully connected to redis (addr=%s, db=%d)", cfg.Redis.Addr, cfg.Redis.DB)

	return idempotency.NewRedisStore(client, ttl), client
}

// newEventPublisher выбирает бэкенд событий по конфигурации
func newEventPublisher(cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (events.Publisher, error) {
	var publisher events.Publisher

	switch cfg.Events.Backend {
	case config.EventsBackendRabbitMQ:
		p, err := events.NewRabbitMQPublisher(cfg.Events.Rabbit.URL, cfg.Events.Rabbit.Exchange, cfg.Metrics.ServiceName)
		if err != nil {
			return nil, err
		}
		log.Info("Publishing events to RabbitMQ exchange %s", cfg.Events.Rabbit.Exchange)
		publisher = p

	case config.EventsBackendKafka:
		publisher = events.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic)
		log.Info("Publishing events to Kafka topic %s (brokers=%v)", cfg.Events.Kafka.Topic, cfg.Events.Kafka.Brokers)

	default:
		publisher = events.NewLogPublisher(log)
		log.Info("Event publishing disabled, events are only logged")
	}

	if m != nil {
		publisher = events.NewInstrumented(publisher, m)
	}
	return publisher, nil
}
