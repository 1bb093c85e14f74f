package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"make24/internal/config"
	"make24/internal/db"
	"make24/internal/game"
	"make24/internal/server"
	"make24/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	st, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("store setup failed")
	}

	engine := game.New(st, game.Config{
		RoundSeconds: cfg.RoundSeconds,
		MaxRounds:    cfg.MaxRounds,
		TickInterval: cfg.TickInterval,
	})
	srv := server.New(engine, cfg)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":  httpServer.Addr,
			"store": cfg.StoreDriver,
		}).Info("make24 server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		logrus.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		logrus.WithError(err).Error("http server failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("http shutdown incomplete")
	}
	engine.Close()
	if err := st.Close(); err != nil {
		logrus.WithError(err).Warn("store close failed")
	}
}

func openStore(cfg config.Config) (store.Storage, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(cfg.DatabaseURL, db.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
			ConnMaxIdleTime: cfg.ConnMaxIdleTime(),
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Migrate(conn); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		return store.NewGormStore(conn), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedisStore(client, cfg.RedisPrefix), nil
	default:
		return store.NewMemoryStore(), nil
	}
}
