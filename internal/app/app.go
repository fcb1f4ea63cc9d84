package app

import (
	"context"
	"errors"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/controller"
	"learnsphere_backend/internal/middleware"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/pkg/configwatcher"
	"learnsphere_backend/pkg/database"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/security"
	"learnsphere_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client

	config          atomic.Pointer[config.Config]
	services        *services
	limiter         *security.RateLimiter
	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	course      *repository.CourseRepository
	lesson      *repository.LessonRepository
	enrollment  *repository.EnrollmentRepository
	progress    *repository.LessonProgressRepository
	certificate *repository.CertificateRepository
	point       *repository.PointRepository
	badge       *repository.BadgeRepository
	achievement *repository.AchievementRepository
	quiz        *repository.QuizRepository
	review      *repository.ReviewRepository
	attachment  *repository.AttachmentRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	storage      *service.StorageService
	points       *service.PointsService
	badges       *service.BadgeService
	certificates *service.CertificateService
	progress     *service.ProgressService
	quizzes      *service.QuizService
	streaks      *service.StreakService
	achievements *service.AchievementService
	courses      *service.CourseService
	reviews      *service.ReviewService
	attachments  *service.AttachmentService
}

type controllers struct {
	auth        *controller.AuthController
	user        *controller.UserController
	course      *controller.CourseController
	review      *controller.ReviewController
	learning    *controller.LearningController
	quiz        *controller.QuizController
	achievement *controller.AchievementController
	certificate *controller.CertificateController
	health      *controller.HealthController
	attachment  *controller.AttachmentController
}

// Config 返回当前生效的配置，热更新后会被替换
func (a *App) Config() *config.Config {
	return a.config.Load()
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		course:      repository.NewCourseRepository(db),
		lesson:      repository.NewLessonRepository(db),
		enrollment:  repository.NewEnrollmentRepository(db),
		progress:    repository.NewLessonProgressRepository(db),
		certificate: repository.NewCertificateRepository(db),
		point:       repository.NewPointRepository(db),
		badge:       repository.NewBadgeRepository(db),
		achievement: repository.NewAchievementRepository(db),
		quiz:        repository.NewQuizRepository(db),
		review:      repository.NewReviewRepository(db),
		attachment:  repository.NewAttachmentRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, storage *service.StorageService, notifier service.Notifier) *services {
	s := &services{storage: storage}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.user = service.NewUserService(repos.user)
	s.points = service.NewPointsService(db, repos.point, notifier)
	s.badges = service.NewBadgeService(repos.badge, notifier)
	s.certificates = service.NewCertificateService(
		db,
		repos.certificate,
		repos.enrollment,
		repos.achievement,
		repos.course,
		repos.user,
		s.points,
		s.badges,
		storage,
		notifier,
		cfg.Gamification.CertificatePrefix,
	)
	s.progress = service.NewProgressService(db, repos.course, repos.lesson, repos.enrollment, repos.progress, s.points, s.badges, s.certificates)
	s.quizzes = service.NewQuizService(db, repos.quiz, repos.lesson, s.points, s.badges, s.progress)
	s.streaks = service.NewStreakService(repos.progress, cfg.Gamification.CalendarDays)
	s.achievements = service.NewAchievementService(
		repos.achievement,
		repos.enrollment,
		repos.progress,
		repos.quiz,
		repos.certificate,
		s.points,
		s.badges,
		s.streaks,
	)
	s.courses = service.NewCourseService(db, repos.course, repos.lesson, repos.quiz, repos.enrollment)
	s.reviews = service.NewReviewService(db, repos.review, repos.course)
	s.attachments = service.NewAttachmentService(repos.attachment, repos.lesson, s.courses, storage)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		user:        controller.NewUserController(s.user),
		course:      controller.NewCourseController(s.courses),
		review:      controller.NewReviewController(s.reviews),
		learning:    controller.NewLearningController(s.progress),
		quiz:        controller.NewQuizController(s.quizzes),
		achievement: controller.NewAchievementController(s.achievements, s.points, s.badges, s.streaks),
		certificate: controller.NewCertificateController(s.certificates),
		attachment:  controller.NewAttachmentController(s.attachments),
		health:      controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("config", a.Config())
		c.Next()
	})
	router.Use(middleware.RequestLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks 定时用积分流水重建积分缓存
func (a *App) startBackgroundTasks(cfg *config.Config) {
	if cfg.Jobs.ReconcileCron == "" {
		return
	}
	a.cron = cron.New()
	_, err := a.cron.AddFunc(cfg.Jobs.ReconcileCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := a.services.points.ReconcileTotals(ctx); err != nil {
			logger.Log.Error("Point reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Log.Error("Invalid reconcile cron expression", zap.String("cron", cfg.Jobs.ReconcileCron), zap.Error(err))
		a.cron = nil
		return
	}
	a.cron.Start()
}

// newStorage minio 不可用时降级为本地存储
func newStorage(cfg *config.Config) *service.StorageService {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := service.NewStorageService(ctx, cfg)
	if err != nil {
		logger.Log.Warn("Object storage unavailable, falling back to local storage",
			zap.String("type", cfg.Storage.Type), zap.Error(err))
		return &service.StorageService{Provider: &service.LocalStorageProvider{Root: cfg.Storage.LocalPath}}
	}
	return storage
}

// newNotifier 未启用 Redis 时通知直接丢弃
func newNotifier(rdb *redis.Client) service.Notifier {
	if rdb == nil {
		return service.NopNotifier{}
	}
	return service.NewRedisNotifier(rdb)
}

// OpenDatabase 按配置连接数据库，debug 模式或 ForceMigrate 时自动迁移
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := OpenDatabase(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, notifications disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := build(cfg, db, rdb, newStorage(cfg))

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("learnsphere", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	app.RegisterConfigCallback(logger.SetLevel)
	app.RegisterConfigCallback(func(newCfg *config.Config) {
		app.limiter.Update(newCfg.RateLimit.MaxRequests, time.Duration(newCfg.RateLimit.WindowMinutes)*time.Minute)
	})

	app.startBackgroundTasks(cfg)
	return app
}

// build 组装仓储、服务与路由，不涉及外部连接
func build(cfg *config.Config, db *gorm.DB, rdb *redis.Client, storage *service.StorageService) *App {
	if cfg.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	app := &App{DB: db, Redis: rdb}
	app.config.Store(cfg)
	app.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg, db, storage, newNotifier(rdb))
	controllers := app.initControllers(app.services, db)

	monitoring.Init()

	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if local, ok := storage.Provider.(*service.LocalStorageProvider); ok {
		router.Static("/uploads", local.Root)
	}

	return app
}

// reloadConfig 替换当前配置并依次执行回调，JWT 与数据库配置不支持热更新
func (a *App) reloadConfig(newCfg *config.Config) {
	old := a.Config()
	newCfg.ForceMigrate = old.ForceMigrate
	newCfg.ConfigDir = old.ConfigDir
	newCfg.JWT = old.JWT
	newCfg.Database = old.Database
	a.config.Store(newCfg)
	for _, cb := range a.configCallbacks {
		cb(newCfg)
	}
}

// ReconcilePoints 供命令行调用，返回处理的用户数
func (a *App) ReconcilePoints(ctx context.Context) (int, error) {
	return a.services.points.ReconcileTotals(ctx)
}

func (a *App) Run() {
	cfg := a.Config()
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, filepath.Join(cfg.ConfigDir, "config.yaml"), a.reloadConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Listen failed", zap.Error(err))
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

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close 停止后台任务并释放连接
func (a *App) Close(ctx context.Context) {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	a.limiter.Stop()
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = logger.Log.Sync()
}
