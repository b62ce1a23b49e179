package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/database"
    "github.com/iliyamo/restaurant-reservation/internal/handler"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/model"
    "github.com/iliyamo/restaurant-reservation/internal/queue"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/router"
    "github.com/iliyamo/restaurant-reservation/internal/service"
)

func main() {
    config.LoadDotEnv()
    cfg := config.Load()
    setupLogging(cfg)

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        logrus.WithError(err).Fatal("database connection failed")
    }
    defer db.Close()
    if cfg.DBMigrate {
        if err := database.Migrate(db, cfg.DBName); err != nil {
            logrus.WithError(err).Fatal("database migration failed")
        }
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    rdb := config.NewRedisClient()
    if rdb != nil {
        defer rdb.Close()
    }

    var events handler.EventPublisher = service.Discard{}
    if cfg.EventsEnabled {
        pub := service.NewEventPublisher(cfg.RabbitURL)
        defer pub.Close()
        events = pub
    }
    if cfg.EventsConsumer {
        go func() {
            err := queue.StartEventLogConsumer(ctx, cfg.RabbitURL, cfg.EventsLogPath)
            if err != nil && !errors.Is(err, context.Canceled) {
                logrus.WithError(err).Error("event consumer stopped")
            }
        }()
    }

    reservations := repository.NewReservationRepo(db)
    tables := repository.NewTableRepo(db, reservations)

    e := echo.New()
    e.HideBanner = true
    e.HTTPErrorHandler = handler.ErrorHandler
    e.Validator = handler.NewValidator()
    e.Use(echomw.Recover())
    e.Use(echomw.BodyLimit("64K"))
    e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
    e.Use(requestLogger())
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSAllowOrigin}))

    cacheCfg := config.LoadCacheConfig()
    floor := []echo.MiddlewareFunc{
        middleware.Optional(cfg.AuthRequired, middleware.JWTAuth(cfg.JWTSecret)),
        middleware.Optional(cfg.AuthRequired, middleware.RequireRole(model.RoleHost, model.RoleManager)),
        middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
        middleware.InvalidateCache(cacheCfg, rdb),
        middleware.NewRedisCache(cacheCfg, rdb),
    }
    managerOnly := middleware.Optional(cfg.AuthRequired, middleware.RequireRole(model.RoleManager))

    router.RegisterRoutes(e, db)
    router.RegisterAuth(e, handler.NewAuthHandler(cfg,
        repository.NewUserRepo(db), repository.NewTokenRepo(db)), cfg.JWTSecret)
    router.RegisterReservations(e, handler.NewReservationHandler(reservations, events),
        router.Clock{Now: time.Now, Location: cfg.Location}, floor...)
    router.RegisterTables(e, handler.NewTableHandler(tables, events), managerOnly, floor...)

    go func() {
        addr := ":" + cfg.Port
        logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "tz": cfg.Location.String()}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            logrus.WithError(err).Fatal("server failed")
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        logrus.WithError(err).Error("graceful shutdown failed")
    }
    logrus.Info("server stopped")
}

// setupLogging uses JSON output outside development and the level named
// by LOG_LEVEL.
func setupLogging(cfg config.Config) {
    if cfg.Env == "dev" || cfg.Env == "development" {
        logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    } else {
        logrus.SetFormatter(&logrus.JSONFormatter{})
    }
    level, err := logrus.ParseLevel(cfg.LogLevel)
    if err != nil {
        logrus.WithError(err).Warn("unknown LOG_LEVEL; using info")
        level = logrus.InfoLevel
    }
    logrus.SetLevel(level)
}

// requestLogger feeds echo's request logger into logrus.
func requestLogger() echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            entry := logrus.WithFields(logrus.Fields{
                "method":     v.Method,
                "uri":        v.URI,
                "status":     v.Status,
                "latency":    v.Latency.String(),
                "request_id": v.RequestID,
                "remote_ip":  v.RemoteIP,
            })
            if v.Error != nil {
                entry.WithError(v.Error).Warn("request")
                return nil
            }
            entry.Info("request")
            return nil
        },
    })
}
