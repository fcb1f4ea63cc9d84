package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/tracing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const certificateGrade = "A"

// CertificateNumber 形如 LS-2026-000042-0007，同一 (学员, 课程) 只会生成一次
func CertificateNumber(prefix string, year int, userID, courseID uint) string {
	return fmt.Sprintf("%s-%d-%06d-%04d", prefix, year, userID, courseID)
}

type CertificateService struct {
	DB              *gorm.DB
	CertRepo        *repository.CertificateRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	AchievementRepo *repository.AchievementRepository
	CourseRepo      *repository.CourseRepository
	UserRepo        *repository.UserRepository
	Points          *PointsService
	Badges          *BadgeService
	Storage         *StorageService
	Notifier        Notifier
	Prefix          string
}

func NewCertificateService(
	db *gorm.DB,
	certRepo *repository.CertificateRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	achievementRepo *repository.AchievementRepository,
	courseRepo *repository.CourseRepository,
	userRepo *repository.UserRepository,
	points *PointsService,
	badges *BadgeService,
	storage *StorageService,
	notifier Notifier,
	prefix string,
) *CertificateService {
	if prefix == "" {
		prefix = "LS"
	}
	return &CertificateService{
		DB:              db,
		CertRepo:        certRepo,
		EnrollmentRepo:  enrollmentRepo,
		AchievementRepo: achievementRepo,
		CourseRepo:      courseRepo,
		UserRepo:        userRepo,
		Points:          points,
		Badges:          badges,
		Storage:         storage,
		Notifier:        notifier,
		Prefix:          prefix,
	}
}

// IssueIfComplete 进度达到 100 时签发证书。已有证书时原样返回，issued 为 false
func (s *CertificateService) IssueIfComplete(ctx context.Context, userID, courseID uint) (*model.Certificate, bool, error) {
	var (
		cert   *model.Certificate
		issued bool
		pc     postCommit
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cert, issued, err = s.issueIfComplete(ctx, tx, &pc, userID, courseID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	pc.run(ctx)
	return cert, issued, nil
}

func (s *CertificateService) issueIfComplete(ctx context.Context, tx *gorm.DB, pc *postCommit, userID, courseID uint) (*model.Certificate, bool, error) {
	enrollment, err := s.EnrollmentRepo.WithTx(tx).Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if enrollment.ProgressPercentage < 100 {
		return nil, false, nil
	}
	return s.issue(ctx, tx, pc, userID, courseID, enrollment.CompletedDate)
}

// issue 插入放在保存点内，并发签发时输家回滚保存点后读取赢家的证书
func (s *CertificateService) issue(ctx context.Context, tx *gorm.DB, pc *postCommit, userID, courseID uint, completedAt *time.Time) (*model.Certificate, bool, error) {
	ctx, span := tracing.Tracer.Start(ctx, "CertificateService.issue")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("course.id", int(courseID)))

	certs := s.CertRepo.WithTx(tx)
	existing, err := certs.FindByUserCourse(ctx, userID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.RecordError(span, err)
		return nil, false, err
	}

	now := time.Now().UTC()
	if completedAt == nil {
		completedAt = &now
	}
	cert := &model.Certificate{
		UserID:            userID,
		CourseID:          courseID,
		CertificateNumber: CertificateNumber(s.Prefix, now.Year(), userID, courseID),
		IssuedDate:        now,
		CompletionDate:    completedAt,
		Grade:             certificateGrade,
	}

	err = tx.Transaction(func(sp *gorm.DB) error {
		return s.CertRepo.WithTx(sp).Create(ctx, cert)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		winner, ferr := certs.FindCommitted(ctx, userID, courseID)
		if ferr != nil {
			tracing.RecordError(span, ferr)
			return nil, false, ferr
		}
		logger.Log.Debug("Certificate issued concurrently, using existing row",
			zap.Uint("user_id", userID), zap.Uint("course_id", courseID))
		return winner, false, nil
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, false, err
	}

	achievement := &model.Achievement{
		UserID:          userID,
		AchievementType: model.AchievementCourseCompletion,
		Title:           "Course Completed",
		Description:     fmt.Sprintf("Completed course #%d", courseID),
		Icon:            "🎓",
		PointsEarned:    PointsCourseCompletion,
		AchievedDate:    now,
	}
	if err := s.AchievementRepo.WithTx(tx).Create(ctx, achievement); err != nil {
		return nil, false, err
	}

	key := courseSourceKey(courseID)
	if _, err := s.Points.award(ctx, tx, pc, userID, PointsCourseCompletion, "Course completed", &key); err != nil {
		return nil, false, err
	}
	if _, err := s.Badges.awardByName(ctx, tx, pc, userID, model.BadgeCourseCompleted); err != nil {
		return nil, false, err
	}

	issued := *cert
	pc.add(func(ctx context.Context) {
		monitoring.CertificatesIssued.Inc()
		s.storeDocument(ctx, &issued)
		notify(ctx, s.Notifier, Notification{
			Type:   NotifyCertificateIssued,
			UserID: userID,
			Payload: map[string]interface{}{
				"certificateId":     issued.ID,
				"certificateNumber": issued.CertificateNumber,
				"courseId":          courseID,
			},
		})
	})

	return cert, true, nil
}

// storeDocument 生成证书文档并上传，失败只记录日志
func (s *CertificateService) storeDocument(ctx context.Context, cert *model.Certificate) {
	if s.Storage == nil {
		return
	}
	if err := s.uploadDocument(ctx, cert); err != nil {
		logger.Log.Warn("Failed to store certificate document",
			zap.String("certificate", cert.CertificateNumber),
			zap.Error(err),
		)
	}
}

func (s *CertificateService) uploadDocument(ctx context.Context, cert *model.Certificate) error {
	user, err := s.UserRepo.FindByID(ctx, cert.UserID)
	if err != nil {
		return err
	}
	course, err := s.CourseRepo.FindByID(ctx, cert.CourseID)
	if err != nil {
		return err
	}

	doc := RenderCertificate(cert, user.FullName, course.Title)
	key := fmt.Sprintf("certificates/%d/%s-%s.txt", cert.UserID, cert.CertificateNumber, uuid.NewString()[:8])
	if err := s.Storage.Upload(ctx, key, bytes.NewReader(doc), int64(len(doc)), util.MimeText); err != nil {
		return err
	}
	if err := s.CertRepo.SetDocumentKey(ctx, cert.ID, key); err != nil {
		return err
	}
	cert.DocumentKey = key
	return nil
}

// RenderCertificate 纯文本证书
func RenderCertificate(cert *model.Certificate, learnerName, courseTitle string) []byte {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "CERTIFICATE OF COMPLETION")
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "This certifies that %s\n", learnerName)
	fmt.Fprintf(&buf, "has successfully completed the course \"%s\".\n", courseTitle)
	fmt.Fprintln(&buf)
	fmt.Fprintf(&buf, "Certificate number: %s\n", cert.CertificateNumber)
	fmt.Fprintf(&buf, "Grade: %s\n", cert.Grade)
	fmt.Fprintf(&buf, "Issued: %s\n", cert.IssuedDate.UTC().Format(util.DateFormat))
	if cert.CompletionDate != nil {
		fmt.Fprintf(&buf, "Completed: %s\n", cert.CompletionDate.UTC().Format(util.DateFormat))
	}
	return buf.Bytes()
}

func (s *CertificateService) List(ctx context.Context, userID uint) ([]model.Certificate, error) {
	return s.CertRepo.ListByUser(ctx, userID)
}

// Get 证书不存在或不属于该学员时返回 NotFound
func (s *CertificateService) Get(ctx context.Context, userID, certID uint) (*model.Certificate, error) {
	cert, err := s.CertRepo.FindByIDAndUser(ctx, certID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCertificateNotFound
	}
	return cert, err
}

type CertificateDownload struct {
	Certificate *model.Certificate `json:"certificate"`
	DownloadURL string             `json:"downloadUrl,omitempty"`
}

// MarkDownloaded 标记已下载并返回文档地址，文档缺失时补生成
func (s *CertificateService) MarkDownloaded(ctx context.Context, userID, certID uint) (*CertificateDownload, error) {
	cert, err := s.Get(ctx, userID, certID)
	if err != nil {
		return nil, err
	}
	if err := s.CertRepo.MarkDownloaded(ctx, cert.ID, userID); err != nil {
		return nil, err
	}
	cert.IsDownloaded = true

	result := &CertificateDownload{Certificate: cert}
	if s.Storage == nil {
		return result, nil
	}
	if cert.DocumentKey == "" {
		if err := s.uploadDocument(ctx, cert); err != nil {
			logger.Log.Warn("Failed to render certificate document", zap.Uint("certificate_id", cert.ID), zap.Error(err))
			return result, nil
		}
	}
	url, err := s.Storage.URL(ctx, cert.DocumentKey)
	if err != nil {
		logger.Log.Warn("Failed to build certificate download url", zap.Uint("certificate_id", cert.ID), zap.Error(err))
		return result, nil
	}
	result.DownloadURL = url
	return result, nil
}
