package model

import "time"

type LessonStatus string

const (
	LessonNotStarted LessonStatus = "not_started"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

// LessonProgress 每个学员每节课只有一行，重复完成不会新增记录
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID       uint         `gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null" json:"userId"`
	LessonID     uint         `gorm:"uniqueIndex:idx_lesson_progress_user_lesson;not null" json:"lessonId"`
	CourseID     uint         `gorm:"index" json:"courseId"`
	Status       LessonStatus `gorm:"size:20;default:'not_started'" json:"status"`
	IsCompleted  bool         `gorm:"default:false;index" json:"isCompleted"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	LastPosition float64      `gorm:"default:0" json:"lastPosition"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
