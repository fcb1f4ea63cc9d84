package model

import (
	"time"
)

type UserRole string

const (
	Learner    UserRole = "learner"
	Instructor UserRole = "instructor"
	Admin      UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Learner, Instructor, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	FullName  string     `gorm:"size:255;not null" json:"fullName"`
	Email     string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'learner'" json:"role"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}
