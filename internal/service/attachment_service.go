package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var allowedAttachmentExt = map[string]bool{
	".pdf": true, ".txt": true, ".md": true, ".zip": true,
	".doc": true, ".docx": true, ".ppt": true, ".pptx": true, ".xls": true, ".xlsx": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".mp3": true, ".mp4": true,
}

type AttachmentService struct {
	AttachmentRepo *repository.AttachmentRepository
	LessonRepo     *repository.LessonRepository
	Courses        *CourseService
	Storage        *StorageService
}

func NewAttachmentService(
	attachmentRepo *repository.AttachmentRepository,
	lessonRepo *repository.LessonRepository,
	courses *CourseService,
	storage *StorageService,
) *AttachmentService {
	return &AttachmentService{
		AttachmentRepo: attachmentRepo,
		LessonRepo:     lessonRepo,
		Courses:        courses,
		Storage:        storage,
	}
}

// AttachmentUpload 上传的文件内容，Body 需要可回读以便嗅探类型
type AttachmentUpload struct {
	FileName string
	Size     int64
	Body     io.ReadSeeker
}

type AttachmentLinkRequest struct {
	FileName string `json:"fileName" binding:"required,max=255"`
	FileURL  string `json:"fileUrl" binding:"required,max=1000"`
	FileType string `json:"fileType" binding:"max=100"`
	FileSize int64  `json:"fileSize" binding:"gte=0"`
}

func (s *AttachmentService) List(ctx context.Context, lessonID uint) ([]model.LessonAttachment, error) {
	if _, err := s.LessonRepo.FindByID(ctx, lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}
	list, err := s.AttachmentRepo.ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if err := s.resolveURL(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// Upload 文件先写入存储再落库，落库失败时清理已上传的对象
func (s *AttachmentService) Upload(ctx context.Context, actor Actor, lessonID uint, up AttachmentUpload) (*model.LessonAttachment, error) {
	lesson, err := s.Courses.ownedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(strings.TrimSpace(up.FileName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, util.InvalidInputf("file name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedAttachmentExt[ext] {
		return nil, util.ErrUnsupportedFile
	}
	if up.Size <= 0 || up.Size > util.MaxAttachmentSize {
		return nil, util.InvalidInputf("file size must be between 1 byte and %d MB", util.MaxAttachmentSize>>20)
	}

	fileType, err := sniffContentType(up.Body)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(fileType, "text/html") {
		return nil, util.ErrUnsupportedFile
	}

	key := fmt.Sprintf("attachments/%d/%s%s", lesson.ID, uuid.NewString(), ext)
	if err := s.Storage.Upload(ctx, key, up.Body, up.Size, fileType); err != nil {
		return nil, err
	}

	attachment := &model.LessonAttachment{
		LessonID:   lesson.ID,
		FileName:   name,
		FileType:   fileType,
		FileSize:   up.Size,
		StorageKey: key,
	}
	if err := s.AttachmentRepo.Create(ctx, attachment); err != nil {
		s.removeObject(ctx, key)
		return nil, err
	}
	if err := s.resolveURL(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// AddLink 只记录外部地址，不经过存储
func (s *AttachmentService) AddLink(ctx context.Context, actor Actor, lessonID uint, req AttachmentLinkRequest) (*model.LessonAttachment, error) {
	lesson, err := s.Courses.ownedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(req.FileURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, util.InvalidInputf("fileUrl must be an http(s) address")
	}

	attachment := &model.LessonAttachment{
		LessonID:    lesson.ID,
		FileName:    strings.TrimSpace(req.FileName),
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		ExternalURL: u.String(),
	}
	if err := s.AttachmentRepo.Create(ctx, attachment); err != nil {
		return nil, err
	}
	attachment.FileURL = attachment.ExternalURL
	return attachment, nil
}

func (s *AttachmentService) Delete(ctx context.Context, actor Actor, lessonID, attachmentID uint) error {
	if _, err := s.Courses.ownedLesson(ctx, actor, lessonID); err != nil {
		return err
	}
	attachment, err := s.AttachmentRepo.FindByIDAndLesson(ctx, attachmentID, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrAttachmentNotFound
	}
	if err != nil {
		return err
	}
	if err := s.AttachmentRepo.Delete(ctx, attachment.ID); err != nil {
		return err
	}
	if attachment.StorageKey != "" {
		s.removeObject(ctx, attachment.StorageKey)
	}
	return nil
}

func (s *AttachmentService) resolveURL(ctx context.Context, a *model.LessonAttachment) error {
	if a.StorageKey == "" {
		a.FileURL = a.ExternalURL
		return nil
	}
	u, err := s.Storage.URL(ctx, a.StorageKey)
	if err != nil {
		return err
	}
	a.FileURL = u
	return nil
}

func (s *AttachmentService) removeObject(ctx context.Context, key string) {
	if err := s.Storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Failed to remove attachment object", zap.String("key", key), zap.Error(err))
	}
}

// sniffContentType 按文件内容判断类型，读取后复位
func sniffContentType(body io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
