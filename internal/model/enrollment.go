package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentNotStarted EnrollmentStatus = "not_started"
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
)

// Enrollment 学员选课记录，进度只由进度聚合或强制完成写入
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID             uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID           uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null;index" json:"courseId"`
	ProgressPercentage int              `gorm:"default:0" json:"progressPercentage"`
	Status             EnrollmentStatus `gorm:"size:20;default:'not_started'" json:"status"`
	CompletedDate      *time.Time       `json:"completedDate,omitempty"`
	IsPaid             bool             `gorm:"default:false" json:"isPaid"`
	Course             *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	User               *User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
