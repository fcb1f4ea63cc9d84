package model

type CourseAccess string

const (
	AccessFree    CourseAccess = "free"
	AccessPayment CourseAccess = "payment"
)

// swagger:model Course
type Course struct {
	BaseModel
	InstructorID     uint         `gorm:"index;not null" json:"instructorId"`
	Title            string       `gorm:"size:500;not null" json:"title"`
	ShortDescription string       `gorm:"type:text" json:"shortDescription"`
	FullDescription  string       `gorm:"type:text" json:"fullDescription"`
	ImageURL         string       `gorm:"size:500" json:"imageUrl"`
	Tags             string       `gorm:"size:500" json:"tags"`
	Access           CourseAccess `gorm:"size:20;default:'free'" json:"access"`
	Price            float64      `gorm:"default:0" json:"price"`
	Published        bool         `gorm:"default:false" json:"published"`
	AverageRating    float64      `gorm:"default:0" json:"averageRating"`
	TotalReviews     int          `gorm:"default:0" json:"totalReviews"`
	Lessons          []Lesson     `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type LessonType string

const (
	LessonVideo    LessonType = "video"
	LessonDocument LessonType = "document"
	LessonQuiz     LessonType = "quiz"
)

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID   uint       `gorm:"index;not null" json:"courseId"`
	Title      string     `gorm:"size:500;not null" json:"title"`
	LessonType LessonType `gorm:"size:20;default:'document'" json:"lessonType"`
	Content    string     `gorm:"type:text" json:"content"`
	Duration   int        `gorm:"default:0" json:"duration"` // 分钟
	OrderIndex int        `gorm:"default:0" json:"orderIndex"`
}

func (Lesson) TableName() string {
	return "lessons"
}
