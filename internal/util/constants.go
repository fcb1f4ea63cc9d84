package util

const DateFormat = "2006-01-02"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const MimeText = "text/plain; charset=utf-8"

// MaxAttachmentSize 课时附件大小上限
const MaxAttachmentSize = 50 << 20

// 分页默认值
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)
