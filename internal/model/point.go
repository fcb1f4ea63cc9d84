package model

import "time"

// PointEntry 积分流水，只追加不修改。SourceKey 非空时同一用户同一来源只能入账一次
// swagger:model PointEntry
type PointEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_point_user_source;not null" json:"userId"`
	SourceKey  *string   `gorm:"size:100;uniqueIndex:idx_point_user_source" json:"sourceKey,omitempty"`
	Points     int       `gorm:"not null" json:"points"`
	Reason     string    `gorm:"size:255" json:"reason"`
	EarnedDate time.Time `gorm:"index;not null" json:"earnedDate"`
}

func (PointEntry) TableName() string {
	return "user_points"
}

// PointTotal 由流水汇总得到的缓存，只作读优化
// swagger:model PointTotal
type PointTotal struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      uint      `gorm:"uniqueIndex;not null" json:"userId"`
	TotalPoints int       `gorm:"default:0;index" json:"totalPoints"`
	BadgeLevel  string    `gorm:"size:50;default:'Newbie'" json:"badgeLevel"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (PointTotal) TableName() string {
	return "user_point_totals"
}
