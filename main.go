package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweetbite/config"
	"sweetbite/events"
	"sweetbite/handlers"
	"sweetbite/middleware"
	"sweetbite/routes"
	"sweetbite/services"
	"sweetbite/session"
	"sweetbite/uploads"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg)

	// Set Gin mode
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := config.OpenDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := config.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}
	logrus.WithField("driver", cfg.DBDriver).Info("database connected and migrated")

	// Session store
	var store session.Store = session.NewMemoryStore()
	if cfg.SessionStore == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logrus.WithError(err).Fatal("failed to connect to redis")
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
		logrus.WithField("addr", cfg.RedisAddr).Info("using redis session store")
	}

	// Order events go to live dashboards and, when configured, to the broker
	hub := events.NewHub()
	publishers := events.Multi{hub}
	if cfg.AMQPURL != "" {
		amqpPub, err := events.DialAMQP(cfg.AMQPURL)
		if err != nil {
			logrus.WithError(err).Fatal("failed to connect to message broker")
		}
		defer amqpPub.Close()
		publishers = append(publishers, amqpPub)
		logrus.Info("publishing order events to " + events.ExchangeName)
	}

	files := uploads.NewStore(cfg.UploadDir)
	h := &handlers.Handler{
		DB:       db,
		Accounts: services.NewAccounts(db, files),
		Menu:     services.NewMenu(db, files),
		Orders:   services.NewOrders(db, publishers),
		Hub:      hub,
	}

	r := routes.NewRouter(routes.Deps{
		Handler: h,
		Sessions: &middleware.Sessions{
			Store:  store,
			Secret: []byte(cfg.SessionSecret),
			TTL:    cfg.SessionTTL,
			Secure: cfg.IsProd,
		},
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRate),
		UploadDir:    cfg.UploadDir,
		IsProd:       cfg.IsProd,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("server running on http://localhost:%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("server shutdown failed")
	}
	logrus.Info("server stopped")
}
