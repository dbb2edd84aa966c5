package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/predtracker/predtracker/external/dayscore"
	"github.com/predtracker/predtracker/external/predictgen"
	"github.com/predtracker/predtracker/external/scorefeed"
	"github.com/predtracker/predtracker/internal/config"
	"github.com/predtracker/predtracker/internal/domain/prediction"
	cacherepo "github.com/predtracker/predtracker/internal/infrastructure/repository/cache"
	"github.com/predtracker/predtracker/internal/infrastructure/repository/memory"
	"github.com/predtracker/predtracker/internal/infrastructure/repository/postgres"
	"github.com/predtracker/predtracker/internal/interfaces/httpapi"
	"github.com/predtracker/predtracker/internal/platform/cache"
	"github.com/predtracker/predtracker/internal/platform/logging"
	"github.com/predtracker/predtracker/internal/platform/resilience"
	"github.com/predtracker/predtracker/internal/usecase"
)

// NewHTTPServer wires repositories, external clients, and services into a
// ready-to-run HTTP server. The returned cleanup closes the DB handle when
// one was opened; it is safe to call on a nil-error path only.
func NewHTTPServer(cfg config.Config, logger *slog.Logger, appLogger *logging.Logger) (*http.Server, func(context.Context) error, error) {
	cleanup := func(context.Context) error { return nil }

	var repo prediction.Repository
	if cfg.DBURL != "" {
		db, err := openDB(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		repo = postgres.NewDayRepository(db)
		cleanup = func(context.Context) error { return db.Close() }
	} else {
		repo = memory.NewDayRepository()
	}

	resultSource := scorefeed.NewClient(scorefeed.ClientConfig{
		BaseURL:    cfg.ScoreFeedBaseURL,
		Token:      cfg.ScoreFeedToken,
		Timeout:    cfg.ScoreFeedTimeout,
		MaxRetries: cfg.ScoreFeedMaxRetries,
		Logger:     appLogger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.ScoreFeedCircuitEnabled,
			FailureThreshold: cfg.ScoreFeedCircuitFailureCount,
			OpenTimeout:      cfg.ScoreFeedCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.ScoreFeedCircuitHalfOpenMaxReq,
		},
	})

	var fallbackSource usecase.DayResultSource
	if cfg.DayScoreEnabled {
		fallbackSource = dayscore.NewClient(dayscore.ClientConfig{
			BaseURL: cfg.DayScoreBaseURL,
			Timeout: cfg.DayScoreTimeout,
			Logger:  appLogger,
		})
	}

	var generator usecase.Generator
	if cfg.PredictGenEnabled {
		generator = predictgen.NewClient(
			&http.Client{Timeout: cfg.PredictGenTimeout},
			cfg.PredictGenBaseURL,
			cfg.PredictGenToken,
			logger,
		)
	}

	var statsCache *cache.Store
	if cfg.CacheEnabled {
		statsCache = cache.NewStore(cfg.CacheTTL)
		repo = cacherepo.NewDayRepository(repo, statsCache)
	}

	predictionSvc := usecase.NewPredictionService(repo, generator)
	statsSvc := usecase.NewStatsService(repo)
	reconcileSvc := usecase.NewReconcileService(repo, resultSource, fallbackSource, appLogger, cfg.ReconcileWriteWorkers)

	handler := httpapi.NewHandler(predictionSvc, statsSvc, reconcileSvc, statsCache, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.InternalJobToken)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, cleanup, nil
}

func openDB(cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)

	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
	}
	if name := dbNameFromURL(cfg.DBURL); name != "" {
		attrs = append(attrs, attribute.String("db.name", name))
	}

	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithAttributes(attrs...),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
