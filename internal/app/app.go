package app

import (
	"context"
	"english_virtual_lab/internal/catalog"
	"english_virtual_lab/internal/config"
	"english_virtual_lab/internal/controller"
	"english_virtual_lab/internal/middleware"
	"english_virtual_lab/internal/repository"
	"english_virtual_lab/internal/service"
	"english_virtual_lab/pkg/configwatcher"
	"english_virtual_lab/pkg/database"
	"english_virtual_lab/pkg/logger"
	"english_virtual_lab/pkg/monitoring"
	"english_virtual_lab/pkg/security"
	"english_virtual_lab/pkg/tracing"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const janitorInterval = time.Minute

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)

	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user       *repository.UserRepository
	profile    *repository.ProfileRepository
	progress   *repository.ProgressRepository
	quizResult *repository.QuizResultRepository
}

type services struct {
	auth      *service.AuthService
	progress  *service.ProgressService
	quiz      *service.QuizService
	profile   *service.ProfileService
	dashboard *service.DashboardService
}

type controllers struct {
	auth      *controller.AuthController
	catalog   *controller.CatalogController
	progress  *controller.ProgressController
	quiz      *controller.QuizController
	profile   *controller.ProfileController
	dashboard *controller.DashboardController
	health    *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:       repository.NewUserRepository(db),
		profile:    repository.NewProfileRepository(db),
		progress:   repository.NewProgressRepository(db),
		quizResult: repository.NewQuizResultRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cat *catalog.Catalog, cfg *config.Config, rdb *redis.Client) *services {
	notifier := service.RequestNotifier{}

	var sessions service.QuizSessionStore
	if rdb != nil {
		sessions = service.NewRedisQuizSessionStore(rdb, cfg.Quiz.SessionTTL)
	} else {
		sessions = service.NewMemoryQuizSessionStore(cfg.Quiz.SessionTTL)
	}

	s := &services{}
	s.auth = service.NewAuthService(repos.user, cfg)
	s.progress = service.NewProgressService(repos.progress, cat, notifier, cfg.Progress.SessionTTL)
	s.progress.WriteTimeout = cfg.Progress.WriteTimeout
	s.quiz = service.NewQuizService(service.NewQuizEngine(service.EnglishQuiz), sessions, repos.quizResult, notifier)
	if cfg.Quiz.WriteTimeout > 0 {
		s.quiz.WriteTimeout = cfg.Quiz.WriteTimeout
	}
	s.profile = service.NewProfileService(repos.profile, repos.user, repos.quizResult, notifier)
	s.dashboard = service.NewDashboardService(repos.profile, repos.quizResult, repos.progress, cat, notifier)
	return s
}

func (a *App) initControllers(s *services, cat *catalog.Catalog) *controllers {
	return &controllers{
		auth:      controller.NewAuthController(s.auth),
		catalog:   controller.NewCatalogController(cat),
		progress:  controller.NewProgressController(s.progress),
		quiz:      controller.NewQuizController(s.quiz),
		profile:   controller.NewProfileController(s.profile),
		dashboard: controller.NewDashboardController(s.dashboard),
		health:    controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
	router.Use(middleware.Notifications())
}

// build 组装仓储、服务、控制器和路由；rdb 为 nil 时测验会话使用内存存储
func build(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config:    cfg,
		ConfigDir: "configs",
		DB:        db,
		Redis:     rdb,
		ctx:       ctx,
		cancel:    cancel,
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cat, cfg, rdb)
	controllers := app.initControllers(app.services, cat)

	// 监控初始化
	monitoring.Init()

	router := gin.Default()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.services.progress.StartJanitor(janitorInterval)
	app.RegisterConfigCallback(logger.SetLevel)
	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == gin.DebugMode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate || cfg.MigrateOnly {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	} else {
		logger.Log.Warn("Redis disabled, quiz sessions are kept in memory")
	}

	var tp *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tp, err = tracing.InitTracer(context.Background(), cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app, err := build(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to build application", zap.Error(err))
	}
	app.tracer = tp
	return app
}

func (a *App) watchConfig() {
	err := configwatcher.WatchConfig(a.ctx, a.ConfigDir, func(cfg *config.Config) {
		for _, cb := range a.configCallbacks {
			cb(cfg)
		}
	})
	if err != nil {
		logger.Log.Warn("Config watcher stopped", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go a.watchConfig()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := a.Close(ctx); err != nil {
		logger.Log.Error("Cleanup failed", zap.Error(err))
	}

	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		a.services.progress.Stop()
	}

	var errs []error
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}
