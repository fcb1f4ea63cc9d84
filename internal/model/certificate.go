package model

import "time"

// Certificate 每个 (学员, 课程) 只签发一次，签发后除下载标记外不可修改
// swagger:model Certificate
type Certificate struct {
	ID                uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint       `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"userId"`
	CourseID          uint       `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"courseId"`
	CertificateNumber string     `gorm:"size:100;uniqueIndex;not null" json:"certificateNumber"`
	IssuedDate        time.Time  `gorm:"not null" json:"issuedDate"`
	CompletionDate    *time.Time `json:"completionDate,omitempty"`
	Grade             string     `gorm:"size:10" json:"grade"`
	IsDownloaded      bool       `gorm:"default:false" json:"isDownloaded"`
	DocumentKey       string     `gorm:"size:255" json:"-"`
	Course            *Course    `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
