package model

import "time"

const AchievementCourseCompletion = "course_completion"

// Achievement 里程碑事件流水，用于前端动态展示
type Achievement struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"userId"`
	AchievementType string    `gorm:"size:50" json:"achievementType"`
	Title           string    `gorm:"size:200" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Icon            string    `gorm:"size:50" json:"icon"`
	PointsEarned    int       `gorm:"default:0" json:"pointsEarned"`
	AchievedDate    time.Time `gorm:"index;not null" json:"achievedDate"`
}

func (Achievement) TableName() string {
	return "achievements"
}
