package database

import (
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 按配置的驱动建立连接，不做迁移
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
				cfg.User,
				cfg.Password,
				cfg.Host,
				cfg.Port,
				cfg.DBName,
				cfg.Charset,
				cfg.ParseTime,
			)
		}
		dialector = mysql.Open(dsn)
	case "postgres":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
				cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "learnsphere.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// sqlite 只允许单写连接，事务内必须使用事务句柄
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Log.Info("Database connection established", zap.String("driver", cfg.Driver))
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.LessonProgress{},
		&model.Certificate{},
		&model.PointEntry{},
		&model.PointTotal{},
		&model.Badge{},
		&model.UserBadge{},
		&model.Achievement{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAttempt{},
		&model.CourseReview{},
		&model.LessonAttachment{},
	)
	if err != nil {
		return err
	}

	logger.Log.Info("Database migration completed")
	return SeedBadges(db)
}

// DefaultBadges 默认徽章目录
var DefaultBadges = []model.Badge{
	{Name: model.BadgeFirstSteps, Description: "Complete your first lesson", Icon: "👶", Color: "#4CAF50", PointsRequired: 0},
	{Name: "Quick Learner", Description: "Earn 50 points", Icon: "⚡", Color: "#FF9800", PointsRequired: 50},
	{Name: "Dedicated Student", Description: "Earn 100 points", Icon: "📚", Color: "#2196F3", PointsRequired: 100},
	{Name: model.BadgeQuizMaster, Description: "Score 100% on a quiz", Icon: "🧠", Color: "#9C27B0", PointsRequired: 100},
	{Name: model.BadgeCourseCompleted, Description: "Complete a course", Icon: "🎓", Color: "#FFD700", PointsRequired: 100},
	{Name: "Knowledge Seeker", Description: "Earn 300 points", Icon: "🔍", Color: "#607D8B", PointsRequired: 300},
	{Name: "Expert Learner", Description: "Earn 500 points", Icon: "🏆", Color: "#E91E63", PointsRequired: 500},
	{Name: "Master Scholar", Description: "Earn 1000 points", Icon: "👑", Color: "#795548", PointsRequired: 1000},
}

// SeedBadges 按名称补齐缺失的徽章，已存在的不覆盖
func SeedBadges(db *gorm.DB) error {
	for _, b := range DefaultBadges {
		badge := b
		if err := db.Where(model.Badge{Name: badge.Name}).FirstOrCreate(&badge).Error; err != nil {
			return err
		}
	}
	return nil
}
