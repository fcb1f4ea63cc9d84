package model

import "time"

// CourseReview 评价删除为物理删除，便于再次评价时复用唯一索引
// swagger:model CourseReview
type CourseReview struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint      `gorm:"uniqueIndex:idx_review_user_course;not null" json:"userId"`
	CourseID   uint      `gorm:"uniqueIndex:idx_review_user_course;not null;index" json:"courseId"`
	Rating     int       `gorm:"not null" json:"rating"`
	ReviewText string    `gorm:"type:text" json:"reviewText"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (CourseReview) TableName() string {
	return "course_reviews"
}
