package app

import (
	"contest_leaderboard/internal/config"
	"contest_leaderboard/internal/controller"
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/repository"
	"contest_leaderboard/internal/service"
	"contest_leaderboard/internal/util"
	"contest_leaderboard/pkg/configwatcher"
	"contest_leaderboard/pkg/database"
	"contest_leaderboard/pkg/logger"
	"contest_leaderboard/pkg/monitoring"
	"contest_leaderboard/pkg/security"
	"contest_leaderboard/pkg/tracing"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)
	tracerProvider  *sdktrace.TracerProvider

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type repositories struct {
	user       *repository.UserRepository
	team       *repository.TeamRepository
	task       *repository.TaskRepository
	taskKey    *repository.TaskKeyRepository
	scoreboard *repository.ScoreboardRepository
}

type services struct {
	auth          *service.AuthService
	storage       *service.StorageService
	notifications *service.NotificationCenter
	feed          *service.ChangeFeed
	sync          *service.ScoreboardSync
	hub           *service.ScoreboardHub
	submission    *service.SubmissionService
	key           *service.KeyService
	contest       *service.ContestService
}

type controllers struct {
	auth       *controller.AuthController
	scoreboard *controller.ScoreboardController
	submission *controller.SubmissionController
	task       *controller.TaskController
	contest    *controller.ContestController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		team:       repository.NewTeamRepository(db),
		task:       repository.NewTaskRepository(db),
		taskKey:    repository.NewTaskKeyRepository(db),
		scoreboard: repository.NewScoreboardRepository(db),
	}
}

func (a *App) initServices(r *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.notifications = service.NewNotificationCenter()
	s.feed = service.NewChangeFeed(rdb, cfg.Scoreboard.ChangeChannel)
	s.sync = service.NewScoreboardSync(r.scoreboard, s.notifications, cfg.Scoreboard.RefreshInterval, cfg.Scoreboard.FetchTimeout)

	// 浏览器端的刷新请求与变更通知共用同一个单飞刷新
	s.hub = service.NewScoreboardHub(s.sync, func() {
		if err := s.sync.RefreshScoreboard(a.ctx); err != nil {
			logger.Log.Debug("Client requested refresh failed", zap.Error(err))
		}
	})
	s.notifications.AddSink(s.hub)
	s.sync.OnScoreboard(s.hub.PublishScoreboard)
	s.sync.OnTasks(s.hub.PublishTasks)

	s.contest = service.NewContestService(
		service.NewRedisStatusStore(rdb),
		model.ContestStatus(cfg.Contest.InitialStatus),
		r.team, s.sync, s.feed, s.notifications,
	)
	s.submission = service.NewSubmissionService(service.NewHTTPScorer(cfg.Scorer), s.contest, s.feed, s.notifications)
	s.storage = service.NewStorageService(a.ctx, cfg)
	s.key = service.NewKeyService(r.task, r.taskKey, s.storage, s.sync, s.feed, s.notifications)
	s.auth = service.NewAuthService(r.user, s.feed, cfg)

	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.sync.SetRefreshInterval(newCfg.Scoreboard.RefreshInterval)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		scoreboard: controller.NewScoreboardController(s.sync, s.hub),
		submission: controller.NewSubmissionController(s.submission),
		task:       controller.NewTaskController(s.key),
		contest:    controller.NewContestController(s.contest),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, security.ByClientIP))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 启动推送中心、变更订阅与排行榜同步循环
func (a *App) startBackgroundTasks(s *services) {
	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		s.hub.Run(a.ctx)
	}()

	events, err := s.feed.Subscribe(a.ctx)
	if err != nil {
		logger.Log.Warn("Change feed unavailable, relying on periodic refresh", zap.Error(err))
		events = nil
	}
	go func() {
		defer a.wg.Done()
		s.sync.Run(a.ctx, events)
	}()

	if a.Config.ConfigDir != "" {
		go func() {
			configFile := filepath.Join(a.Config.ConfigDir, "config.yaml")
			if err := configwatcher.Watch(a.ctx, configFile, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	svcs := app.initServices(repos, cfg, rdb)
	app.services = svcs
	ctrls := app.initControllers(svcs, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("contest-leaderboard", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(svcs)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 停止同步循环并关闭所有 websocket 连接
	a.cancel()
	a.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	log.Println("Server exiting")
}
