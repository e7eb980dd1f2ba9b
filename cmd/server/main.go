package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"anoa.com/gamification/internal/bootstrap"
	"anoa.com/gamification/internal/config"
	"anoa.com/gamification/internal/server"
	"anoa.com/gamification/pkg/database"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		slog.Error("Failed to load rules", slog.Any("error", err))
		os.Exit(1)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		slog.Error("Migration failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		slog.Error("Failed to seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	if err := bootstrap.SeedAchievements(db); err != nil {
		slog.Error("Failed to seed achievements", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedAdminUser(db); err != nil {
			slog.Error("Failed to seed admin user", slog.Any("error", err))
			os.Exit(1)
		}
	}

	redisClient := connectRedis(cfg.RedisURL)
	meiliClient := connectMeili(cfg.MeiliSearchHost, cfg.MeiliMasterKey)

	srv, err := server.NewServer(cfg, rules, db, redisClient, meiliClient)
	if err != nil {
		slog.Error("Failed to build server", slog.Any("error", err))
		os.Exit(1)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutting down")
		srv.Shutdown()
		os.Exit(0)
	}()

	slog.Info("Server starting", slog.String("port", cfg.Port), slog.String("env", cfg.AppEnv))
	if err := srv.Run(":" + cfg.Port); err != nil {
		slog.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

// connectRedis returns nil when Redis is not configured or unreachable; the leaderboard then runs uncached.
func connectRedis(url string) *redis.Client {
	if url == "" {
		slog.Warn("REDIS_URL not set, leaderboard cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		slog.Warn("Invalid REDIS_URL, leaderboard cache disabled", slog.Any("error", err))
		return nil
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unreachable, leaderboard cache disabled", slog.Any("error", err))
		_ = client.Close()
		return nil
	}

	slog.Info("Connected to Redis")
	return client
}

func connectMeili(host, key string) meilisearch.ServiceManager {
	if host == "" {
		slog.Warn("MEILISEARCH_HOST not set, achievement search uses SQL")
		return nil
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(key))
	if _, err := client.Health(); err != nil {
		slog.Warn("Meilisearch unreachable, achievement search uses SQL", slog.Any("error", err))
		return nil
	}

	return client
}
