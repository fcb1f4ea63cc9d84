package repository

import (
	"context"
	"learnsphere_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PointRepository struct {
	DB *gorm.DB
}

func NewPointRepository(db *gorm.DB) *PointRepository {
	return &PointRepository{DB: db}
}

func (r *PointRepository) WithTx(tx *gorm.DB) *PointRepository {
	return &PointRepository{DB: tx}
}

// Append 写入一条积分流水。带来源键的流水重复时不写入，返回 false
func (r *PointRepository) Append(ctx context.Context, entry *model.PointEntry) (bool, error) {
	db := r.DB.WithContext(ctx)
	if entry.SourceKey != nil {
		db = db.Clauses(clause.OnConflict{DoNothing: true})
	}
	res := db.Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PointRepository) SumByUser(ctx context.Context, userID uint) (int, error) {
	var total int64
	err := r.DB.WithContext(ctx).Model(&model.PointEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return int(total), err
}

// UpsertTotal 覆盖写入积分缓存
func (r *PointRepository) UpsertTotal(ctx context.Context, userID uint, total int, level string) error {
	row := model.PointTotal{
		UserID:      userID,
		TotalPoints: total,
		BadgeLevel:  level,
		UpdatedAt:   time.Now(),
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_points", "badge_level", "updated_at"}),
	}).Create(&row).Error
}

func (r *PointRepository) FindTotal(ctx context.Context, userID uint) (*model.PointTotal, error) {
	var row model.PointTotal
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *PointRepository) History(ctx context.Context, userID uint, page, limit int) ([]model.PointEntry, int64, error) {
	var entries []model.PointEntry
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.PointEntry{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("earned_date DESC, id DESC").Offset((page - 1) * limit).Limit(limit).Find(&entries).Error
	return entries, total, err
}

type LeaderboardRow struct {
	UserID      uint   `json:"userId"`
	FullName    string `json:"fullName"`
	TotalPoints int    `json:"totalPoints"`
	BadgeLevel  string `json:"badgeLevel"`
}

// TopTotals 基于缓存表的排行榜
func (r *PointRepository) TopTotals(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := r.DB.WithContext(ctx).Table("user_point_totals AS t").
		Select("t.user_id, u.full_name, t.total_points, t.badge_level").
		Joins("JOIN users u ON u.id = t.user_id AND u.deleted_at IS NULL").
		Order("t.total_points DESC, t.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

type UserPointSum struct {
	UserID uint
	Total  int
}

// SumAll 按用户汇总全部流水
func (r *PointRepository) SumAll(ctx context.Context) ([]UserPointSum, error) {
	var sums []UserPointSum
	err := r.DB.WithContext(ctx).Model(&model.PointEntry{}).
		Select("user_id, COALESCE(SUM(points), 0) AS total").
		Group("user_id").
		Scan(&sums).Error
	return sums, err
}
