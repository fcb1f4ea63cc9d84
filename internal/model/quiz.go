package model

import (
	"time"

	"gorm.io/datatypes"
)

const DefaultPassScore = 70

// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID     uint   `gorm:"index;not null" json:"courseId"`
	LessonID     *uint  `gorm:"index" json:"lessonId,omitempty"`
	Title        string `gorm:"size:500;not null" json:"title"`
	TimerSeconds int    `gorm:"default:0" json:"timerSeconds"`
	PassScore    int    `gorm:"default:70" json:"passScore"`
	// RewardSchedule 按尝试次数递减的积分表，例如 [100,75,50,25]，为空时使用默认表
	RewardSchedule datatypes.JSON `json:"rewardSchedule,omitempty"`
	Questions      []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID       uint           `gorm:"index;not null" json:"quizId"`
	Prompt       string         `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSON `json:"options"`
	CorrectIndex int            `gorm:"not null" json:"correctIndex"`
	OrderIndex   int            `gorm:"default:0" json:"orderIndex"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizAttempt 只追加，attempt_number 对 (学员, 测验) 从 1 开始连续递增
// swagger:model QuizAttempt
type QuizAttempt struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint           `gorm:"uniqueIndex:idx_quiz_attempt_number;not null" json:"userId"`
	QuizID         uint           `gorm:"uniqueIndex:idx_quiz_attempt_number;not null" json:"quizId"`
	AttemptNumber  int            `gorm:"uniqueIndex:idx_quiz_attempt_number;not null" json:"attemptNumber"`
	CourseID       uint           `gorm:"index" json:"courseId"`
	Score          int            `gorm:"default:0" json:"score"`
	CorrectCount   int            `gorm:"default:0" json:"correctCount"`
	TotalQuestions int            `gorm:"default:0" json:"totalQuestions"`
	Answers        datatypes.JSON `json:"answers"`
	PointsEarned   int            `gorm:"default:0" json:"pointsEarned"`
	Passed         bool           `gorm:"default:false" json:"passed"`
	SubmittedAt    time.Time      `gorm:"not null" json:"submittedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
