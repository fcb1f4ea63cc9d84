// Package testutil 提供基于内存 SQLite 的测试数据库
package testutil

import (
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/pkg/database"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB 每个测试一个独立的内存数据库，已执行迁移和徽章初始化
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
