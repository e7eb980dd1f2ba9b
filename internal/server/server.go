package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"anoa.com/gamification/internal/config"
	"anoa.com/gamification/internal/middleware"

	achievementHttp "anoa.com/gamification/internal/modules/achievement/delivery/http"
	achievementRepo "anoa.com/gamification/internal/modules/achievement/repository"
	achievementService "anoa.com/gamification/internal/modules/achievement/service"

	gamificationHttp "anoa.com/gamification/internal/modules/gamification/delivery/http"
	gamificationService "anoa.com/gamification/internal/modules/gamification/service"

	leaderboardHttp "anoa.com/gamification/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "anoa.com/gamification/internal/modules/leaderboard/repository"
	leaderboardService "anoa.com/gamification/internal/modules/leaderboard/service"

	ledgerHttp "anoa.com/gamification/internal/modules/ledger/delivery/http"
	ledgerRepo "anoa.com/gamification/internal/modules/ledger/repository"
	ledgerService "anoa.com/gamification/internal/modules/ledger/service"

	levelingService "anoa.com/gamification/internal/modules/leveling/service"

	notiHttp "anoa.com/gamification/internal/modules/notification/delivery/http"
	notifRepo "anoa.com/gamification/internal/modules/notification/repository"
	notifService "anoa.com/gamification/internal/modules/notification/service"

	profileHttp "anoa.com/gamification/internal/modules/profile/delivery/http"
	profileService "anoa.com/gamification/internal/modules/profile/service"

	statHttp "anoa.com/gamification/internal/modules/stat/delivery/http"
	statService "anoa.com/gamification/internal/modules/stat/service"

	streakHttp "anoa.com/gamification/internal/modules/streak/delivery/http"
	streakRepo "anoa.com/gamification/internal/modules/streak/repository"
	streakService "anoa.com/gamification/internal/modules/streak/service"

	userHttp "anoa.com/gamification/internal/modules/user/delivery/http"
	userRepo "anoa.com/gamification/internal/modules/user/repository"
	userService "anoa.com/gamification/internal/modules/user/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
	scheduler   gocron.Scheduler
}

// NewServer wires every module. redisClient and meiliClient are optional.
func NewServer(cfg *config.Config, rules *config.Rules, db *gorm.DB, redisClient *redis.Client, meiliClient meilisearch.ServiceManager) (*Server, error) {
	userRepo := userRepo.NewUserRepository(db)
	userSvc := userService.NewUserService(userRepo)
	userHandler := userHttp.NewUserHandler(userSvc)

	calc, err := levelingService.NewCalculatorFromRules(rules.Levels)
	if err != nil {
		return nil, err
	}

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc)

	ledgerRepository := ledgerRepo.NewLedgerRepository(db)
	ledgerSvc := ledgerService.NewLedgerService(ledgerRepository, userRepo, calc, notificationSvc, ledgerService.Options{
		MaxXPPerEvent: cfg.MaxXPPerEvent,
	})
	ledgerHandler := ledgerHttp.NewLedgerHandler(ledgerSvc)

	var catalogIndex achievementService.CatalogIndex
	if meiliClient != nil {
		catalogIndex = achievementService.NewCatalogIndex(meiliClient)
	}
	achievementRepository := achievementRepo.NewAchievementRepository(db)
	trackerSvc := achievementService.NewTrackerService(achievementRepository, userRepo, ledgerSvc, notificationSvc, catalogIndex, achievementService.Options{})
	achievementHandler := achievementHttp.NewAchievementHandler(trackerSvc)

	streakRepository := streakRepo.NewStreakRepository(db)
	streakSvc := streakService.NewStreakService(streakRepository, userRepo, ledgerSvc, notificationSvc, streakService.PolicyFromRules(rules.Streaks), streakService.Options{})
	streakHandler := streakHttp.NewStreakHandler(streakSvc)

	engineSvc := gamificationService.NewEngine(ledgerSvc, trackerSvc, streakSvc)
	eventHandler := gamificationHttp.NewEventHandler(engineSvc)

	var leaderboardCache leaderboardService.Cache
	if redisClient != nil {
		leaderboardCache = leaderboardService.NewRedisCache(redisClient)
	}
	leaderboardRepository := leaderboardRepo.NewLeaderboardRepository(db)
	leaderboardSvc := leaderboardService.NewLeaderboardService(leaderboardRepository, calc, leaderboardCache, leaderboardService.Options{
		CacheTTL: cfg.LeaderboardCacheTTL,
	})
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	profileSvc := profileService.NewProfileService(userRepo, ledgerSvc, trackerSvc, streakSvc, notificationSvc, cfg.ProfileRecentEvents)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	statSvc := statService.NewStatService(userRepo, ledgerRepository, achievementRepository, streakRepository, nil)
	statHandler := statHttp.NewStatHandler(statSvc)

	scheduler, err := streakService.StartSweepScheduler(streakSvc, cfg.StreakSweepCron)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz"},
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authMiddleware := middleware.NewAuthMiddleware(userRepo, cfg.JWTSecret)

	api := router.Group("/api")

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Upstream systems report events here
		events := protected.Group("/events")
		{
			events.POST("/xp", authMiddleware.RequireService(), eventHandler.AwardXP)
			events.POST("/activity", authMiddleware.RequireService(), eventHandler.RecordActivity)
			events.GET("/me", ledgerHandler.GetMyEvents)
		}

		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.POST("/users", userHandler.RegisterUser)
			adminGroup.GET("/statistics", statHandler.GetStatistics)
			adminGroup.POST("/achievements", achievementHandler.CreateAchievement)
			adminGroup.PUT("/achievements/:id", achievementHandler.UpdateAchievement)
			adminGroup.POST("/achievements/progress", achievementHandler.UpdateProgress)
			adminGroup.POST("/achievements/reindex", achievementHandler.Reindex)
			adminGroup.POST("/users/:user_id/reconcile", ledgerHandler.Reconcile)
			adminGroup.POST("/streaks/sweep", streakHandler.Sweep)
		}

		protected.GET("/profile/me", profileHandler.GetCurrentProfile)
		protected.GET("/profile/:user_id", profileHandler.GetProfile)
		protected.GET("/achievements", achievementHandler.GetAchievements)
		protected.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		protected.GET("/streaks/me", streakHandler.GetMyStreaks)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
	}

	return &Server{
		engine:      router,
		db:          db,
		redisClient: redisClient,
		scheduler:   scheduler,
	}, nil
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Shutdown stops background jobs and releases connections.
func (s *Server) Shutdown() {
	if err := s.scheduler.Shutdown(); err != nil {
		slog.Error("Failed to stop scheduler", slog.Any("error", err))
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
