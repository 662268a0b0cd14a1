package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/casegraph/backend/internal/queue"
	mid "github.com/casegraph/backend/internal/server/middleware"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/entity"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/ner"
	"github.com/casegraph/backend/pkg/network"
	"github.com/casegraph/backend/pkg/ocr"
	"github.com/casegraph/backend/pkg/pipeline"
	pgxstore "github.com/casegraph/backend/pkg/store/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	runMigrations(databaseURL)

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que, err := queue.NewRedis(ctx, "server")
	if err != nil {
		logger.Fatal("Failed to connect to task queue", "err", err)
	}
	defer que.Close()

	st := pgxstore.New(conn)

	nerClient := ner.NewClient(ner.NewClientParams{
		ExtractionModel: util.GetEnv("AI_CHAT_EXTRACT_MODEL"),
		AnalysisModel:   util.GetEnv("AI_CHAT_ANALYZE_MODEL"),
		BaseURL:         util.GetEnv("AI_CHAT_URL"),
		APIKey:          util.GetEnv("AI_CHAT_KEY"),
	})

	svc := pipeline.NewService(pipeline.Params{
		Store:     st,
		Queue:     que,
		Engine:    network.NewEngine(st),
		Resolver:  entity.NewResolver(st, entity.NewNormalizer(nil), util.GetEnvFloat("MATCH_THRESHOLD", 0)),
		Extractor: ocr.NewExtractor(),
		NER:       nerClient,
		Analyzer:  nerClient,
	})

	app := &mid.App{
		Store:   st,
		Queue:   que,
		Service: svc,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(echomw.CORS())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("64M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

func runMigrations(databaseURL string) {
	dir := util.GetEnvString("MIGRATIONS_DIR", "db/migrations")
	m, err := migrate.New("file://"+dir, databaseURL)
	if err != nil {
		logger.Fatal("Failed to load migrations", "err", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
	logger.Info("Migrations applied")
}
