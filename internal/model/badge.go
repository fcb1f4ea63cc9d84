package model

import "time"

// 由业务流程自动授予的目录徽章
const (
	BadgeFirstSteps      = "First Steps"
	BadgeQuizMaster      = "Quiz Master"
	BadgeCourseCompleted = "Course Completed"
)

// swagger:model Badge
type Badge struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	Icon           string    `gorm:"size:50" json:"icon"`
	Color          string    `gorm:"size:20;default:'#FFD700'" json:"color"`
	PointsRequired int       `gorm:"default:0" json:"pointsRequired"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Badge) TableName() string {
	return "badges"
}

// swagger:model UserBadge
type UserBadge struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"userId"`
	BadgeID    uint      `gorm:"uniqueIndex:idx_user_badge;not null" json:"badgeId"`
	EarnedDate time.Time `gorm:"not null" json:"earnedDate"`
	IsNew      bool      `gorm:"default:true" json:"isNew"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
