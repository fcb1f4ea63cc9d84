package model

// LessonAttachment 课时附件，上传的文件存放在对象存储，外部链接只记录地址
// swagger:model LessonAttachment
type LessonAttachment struct {
	BaseModel
	LessonID    uint   `gorm:"index;not null" json:"lessonId"`
	FileName    string `gorm:"size:255;not null" json:"fileName"`
	FileType    string `gorm:"size:100" json:"fileType"`
	FileSize    int64  `gorm:"default:0" json:"fileSize"`
	StorageKey  string `gorm:"size:500" json:"-"`
	ExternalURL string `gorm:"size:1000" json:"-"`
	FileURL     string `gorm:"-" json:"fileUrl"`
}

func (LessonAttachment) TableName() string {
	return "lesson_attachments"
}
