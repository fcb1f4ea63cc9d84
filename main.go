// @title LearnSphere 后端 API
// @version 1.0
// @description LearnSphere 在线学习平台的后端服务，包含学习进度、积分、徽章与证书。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"fmt"
	"learnsphere_backend/internal/app"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/pkg/database"
	"learnsphere_backend/pkg/logger"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "learnsphere",
	Short: "LearnSphere learning platform backend",
	RunE:  runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and seed the badge catalog, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger.InitLogger(cfg)
		defer logger.Log.Sync()

		db, err := database.Open(&cfg.Database)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Log.Info("Database migration completed")
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile-points",
	Short: "Rebuild cached point totals from the points ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		application := app.NewApp(cfg)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		defer application.Close(ctx)

		n, err := application.ReconcilePoints(ctx)
		if err != nil {
			return err
		}
		logger.Log.Info("Point totals rebuilt", zap.Int("users", n))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "Directory containing config.yaml")
	rootCmd.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	serveCmd.Flags().Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ForceMigrate, _ = cmd.Flags().GetBool("migrate")

	application := app.NewApp(cfg)
	application.Run()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
