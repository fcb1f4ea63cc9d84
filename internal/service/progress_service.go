package service

import (
	"context"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type ProgressService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.LessonProgressRepository
	Points         *PointsService
	Badges         *BadgeService
	Certificates   *CertificateService
}

func NewProgressService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	lessonRepo *repository.LessonRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.LessonProgressRepository,
	points *PointsService,
	badges *BadgeService,
	certificates *CertificateService,
) *ProgressService {
	return &ProgressService{
		DB:             db,
		CourseRepo:     courseRepo,
		LessonRepo:     lessonRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		Points:         points,
		Badges:         badges,
		Certificates:   certificates,
	}
}

type ProgressResult struct {
	Percentage int                    `json:"percentage"`
	Status     model.EnrollmentStatus `json:"status"`
}

func statusForPercentage(p int) model.EnrollmentStatus {
	switch {
	case p <= 0:
		return model.EnrollmentNotStarted
	case p >= 100:
		return model.EnrollmentCompleted
	default:
		return model.EnrollmentInProgress
	}
}

// Enroll 重复选课返回已有记录，created 为 false
func (s *ProgressService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, bool, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if !course.Published {
		return nil, false, util.ErrCourseNotOpen
	}

	existing, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentNotStarted,
		IsPaid:   course.Access == model.AccessFree,
	}
	err = s.EnrollmentRepo.Create(ctx, enrollment)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
		return existing, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return enrollment, true, nil
}

const (
	AccessReasonOpen            = "open"
	AccessReasonEnrolled        = "enrolled"
	AccessReasonPaymentRequired = "payment_required"
)

type AccessCheck struct {
	HasAccess bool   `json:"hasAccess"`
	Reason    string `json:"reason"`
}

// CheckAccess 免费课程直接开放，付费课程需要已选课且已确认付款
func (s *ProgressService) CheckAccess(ctx context.Context, userID, courseID uint) (*AccessCheck, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, util.ErrCourseNotOpen
	}
	if course.Access != model.AccessPayment {
		return &AccessCheck{HasAccess: true, Reason: AccessReasonOpen}, nil
	}

	enrollment, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &AccessCheck{Reason: AccessReasonPaymentRequired}, nil
	}
	if err != nil {
		return nil, err
	}
	if !enrollment.IsPaid {
		return &AccessCheck{Reason: AccessReasonPaymentRequired}, nil
	}
	return &AccessCheck{HasAccess: true, Reason: AccessReasonEnrolled}, nil
}

func (s *ProgressService) MyCourses(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(ctx, userID)
}

type LessonWithProgress struct {
	model.Lesson
	Status       model.LessonStatus `json:"status"`
	IsCompleted  bool               `json:"isCompleted"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty"`
	LastPosition float64            `json:"lastPosition"`
}

type CourseProgressView struct {
	Enrollment       *model.Enrollment    `json:"enrollment"`
	Course           *model.Course        `json:"course"`
	Lessons          []LessonWithProgress `json:"lessons"`
	CompletedLessons int                  `json:"completedLessons"`
	TotalLessons     int                  `json:"totalLessons"`
}

// CourseProgress 学员视角的课程详情，未选课时返回 Forbidden
func (s *ProgressService) CourseProgress(ctx context.Context, userID, courseID uint) (*CourseProgressView, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	enrollment, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}

	lessons, err := s.LessonRepo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ProgressRepo.ListInCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[uint]model.LessonProgress, len(rows))
	for _, p := range rows {
		byLesson[p.LessonID] = p
	}

	view := &CourseProgressView{
		Enrollment:   enrollment,
		Course:       course,
		Lessons:      make([]LessonWithProgress, 0, len(lessons)),
		TotalLessons: len(lessons),
	}
	for _, l := range lessons {
		item := LessonWithProgress{Lesson: l, Status: model.LessonNotStarted}
		if p, ok := byLesson[l.ID]; ok {
			item.Status = p.Status
			item.IsCompleted = p.IsCompleted
			item.CompletedAt = p.CompletedAt
			item.LastPosition = p.LastPosition
			if p.IsCompleted {
				view.CompletedLessons++
			}
		}
		view.Lessons = append(view.Lessons, item)
	}
	return view, nil
}

// Recompute 根据已完成课时重新计算选课进度
func (s *ProgressService) Recompute(ctx context.Context, userID, courseID uint) (ProgressResult, error) {
	var result ProgressResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.recompute(ctx, tx, userID, courseID)
		return err
	})
	return result, err
}

func (s *ProgressService) recompute(ctx context.Context, tx *gorm.DB, userID, courseID uint) (ProgressResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.recompute")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("course.id", int(courseID)))

	total, err := s.LessonRepo.WithTx(tx).CountByCourse(ctx, courseID)
	if err != nil {
		tracing.RecordError(span, err)
		return ProgressResult{}, err
	}
	completed, err := s.ProgressRepo.WithTx(tx).CountCompletedInCourse(ctx, userID, courseID)
	if err != nil {
		tracing.RecordError(span, err)
		return ProgressResult{}, err
	}

	pct := ProgressPercent(completed, total)
	result := ProgressResult{Percentage: pct, Status: statusForPercentage(pct)}

	enrollments := s.EnrollmentRepo.WithTx(tx)
	enrollment, err := enrollments.Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return result, nil
	}
	if err != nil {
		tracing.RecordError(span, err)
		return ProgressResult{}, err
	}

	if result.Status != model.EnrollmentCompleted {
		certified, err := s.certified(ctx, tx, userID, courseID)
		if err != nil {
			tracing.RecordError(span, err)
			return ProgressResult{}, err
		}
		// 已签发证书的选课始终保持完成
		if certified {
			result = ProgressResult{Percentage: 100, Status: model.EnrollmentCompleted}
		}
	}

	completedDate := enrollment.CompletedDate
	switch {
	case result.Status == model.EnrollmentCompleted && enrollment.Status != model.EnrollmentCompleted:
		now := time.Now().UTC()
		completedDate = &now
	case result.Status != model.EnrollmentCompleted:
		completedDate = nil
	}

	if err := enrollments.UpdateProgress(ctx, enrollment.ID, result.Percentage, result.Status, completedDate); err != nil {
		tracing.RecordError(span, err)
		return ProgressResult{}, err
	}
	return result, nil
}

func (s *ProgressService) certified(ctx context.Context, tx *gorm.DB, userID, courseID uint) (bool, error) {
	_, err := s.Certificates.CertRepo.WithTx(tx).FindByUserCourse(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// StartLesson 已完成的课时不会被改回进行中
func (s *ProgressService) StartLesson(ctx context.Context, userID, lessonID uint) (*model.LessonProgress, error) {
	lesson, err := s.findLesson(ctx, s.LessonRepo, lessonID)
	if err != nil {
		return nil, err
	}

	var progress *model.LessonProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)
		existing, err := repo.Find(ctx, userID, lessonID)
		if err == nil {
			progress = existing
			if existing.IsCompleted || existing.Status == model.LessonInProgress {
				return nil
			}
			existing.Status = model.LessonInProgress
			return repo.Update(ctx, existing.ID, map[string]interface{}{"status": model.LessonInProgress})
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		progress = &model.LessonProgress{
			UserID:   userID,
			LessonID: lessonID,
			CourseID: lesson.CourseID,
			Status:   model.LessonInProgress,
		}
		return repo.Create(ctx, progress)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

type LessonCompletion struct {
	LessonID        uint               `json:"lessonId"`
	FirstCompletion bool               `json:"firstCompletion"`
	Progress        ProgressResult     `json:"progress"`
	CourseCompleted bool               `json:"courseCompleted"`
	Certificate     *model.Certificate `json:"certificate,omitempty"`
	PointsAwarded   int                `json:"pointsAwarded"`
}

// CompleteLesson 完成课时并在同一事务内重算进度、按需签发证书
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, lessonID uint) (*LessonCompletion, error) {
	var (
		result *LessonCompletion
		pc     postCommit
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lesson, err := s.findLesson(ctx, s.LessonRepo.WithTx(tx), lessonID)
		if err != nil {
			return err
		}
		result, err = s.completeLesson(ctx, tx, &pc, userID, lesson)
		return err
	})
	if err != nil {
		return nil, err
	}
	pc.run(ctx)
	return result, nil
}

// completeLesson 课时完成流水线：记录完成、首次奖励、重算进度、签发证书
func (s *ProgressService) completeLesson(ctx context.Context, tx *gorm.DB, pc *postCommit, userID uint, lesson *model.Lesson) (*LessonCompletion, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.completeLesson")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("lesson.id", int(lesson.ID)))

	result := &LessonCompletion{LessonID: lesson.ID}
	repo := s.ProgressRepo.WithTx(tx)
	now := time.Now().UTC()

	existing, err := repo.Find(ctx, userID, lesson.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var inserted bool
		existing, inserted, err = s.insertCompletion(ctx, tx, userID, lesson, now)
		result.FirstCompletion = inserted
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if !result.FirstCompletion && !existing.IsCompleted {
		result.FirstCompletion = existing.CompletedAt == nil
		fields := map[string]interface{}{
			"status":       model.LessonCompleted,
			"is_completed": true,
		}
		if existing.CompletedAt == nil {
			fields["completed_at"] = now
		}
		if err := repo.Update(ctx, existing.ID, fields); err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}
	}

	if result.FirstCompletion {
		key := lessonSourceKey(lesson.ID)
		award, err := s.Points.award(ctx, tx, pc, userID, PointsLessonCompletion, "Completed lesson: "+lesson.Title, &key)
		if err != nil {
			return nil, err
		}
		if award.Awarded {
			result.PointsAwarded += PointsLessonCompletion
		}
		if _, err := s.Badges.awardByName(ctx, tx, pc, userID, model.BadgeFirstSteps); err != nil {
			return nil, err
		}
		pc.add(func(ctx context.Context) { monitoring.LessonsCompleted.Inc() })
	}

	progress, err := s.recompute(ctx, tx, userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}
	result.Progress = progress

	if progress.Status == model.EnrollmentCompleted {
		cert, issued, err := s.Certificates.issueIfComplete(ctx, tx, pc, userID, lesson.CourseID)
		if err != nil {
			return nil, err
		}
		result.Certificate = cert
		result.CourseCompleted = cert != nil
		if issued {
			result.PointsAwarded += PointsCourseCompletion
		}
	}
	return result, nil
}

// insertCompletion 插入放在保存点内，并发插入冲突时回滚保存点并返回对方已提交的记录
func (s *ProgressService) insertCompletion(ctx context.Context, tx *gorm.DB, userID uint, lesson *model.Lesson, now time.Time) (*model.LessonProgress, bool, error) {
	row := &model.LessonProgress{
		UserID:      userID,
		LessonID:    lesson.ID,
		CourseID:    lesson.CourseID,
		Status:      model.LessonCompleted,
		IsCompleted: true,
		CompletedAt: &now,
	}
	err := tx.Transaction(func(sp *gorm.DB) error {
		return s.ProgressRepo.WithTx(sp).Create(ctx, row)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		winner, ferr := s.ProgressRepo.WithTx(tx).FindCommitted(ctx, userID, lesson.ID)
		return winner, false, ferr
	}
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}

// SavePosition 只更新已有的学习记录
func (s *ProgressService) SavePosition(ctx context.Context, userID, lessonID uint, position float64) error {
	if position < 0 {
		return util.InvalidInputf("position must not be negative")
	}
	existing, err := s.ProgressRepo.Find(ctx, userID, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.ProgressRepo.Update(ctx, existing.ID, map[string]interface{}{"last_position": position})
}

type CourseCompletion struct {
	Enrollment  *model.Enrollment  `json:"enrollment"`
	Certificate *model.Certificate `json:"certificate"`
	Issued      bool               `json:"issued"`
}

// ForceComplete 将课程所有课时和选课置为完成并签发证书，证书只会签发一次
func (s *ProgressService) ForceComplete(ctx context.Context, userID, courseID uint) (*CourseCompletion, error) {
	var (
		result *CourseCompletion
		pc     postCommit
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.CourseRepo.WithTx(tx).FindByID(ctx, courseID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrCourseNotFound
			}
			return err
		}

		enrollments := s.EnrollmentRepo.WithTx(tx)
		enrollment, err := enrollments.Find(ctx, userID, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		}
		if err != nil {
			return err
		}

		lessons, err := s.LessonRepo.WithTx(tx).ListByCourse(ctx, courseID)
		if err != nil {
			return err
		}
		if len(lessons) == 0 {
			return util.ErrCourseHasNoLessons
		}
		// 课时一并标记完成，之后的重算不会回退进度；不发放课时积分
		if err := s.ProgressRepo.WithTx(tx).CompleteAll(ctx, userID, lessons, time.Now().UTC()); err != nil {
			return err
		}

		if enrollment.Status != model.EnrollmentCompleted || enrollment.ProgressPercentage != 100 {
			completedDate := enrollment.CompletedDate
			if enrollment.Status != model.EnrollmentCompleted || completedDate == nil {
				now := time.Now().UTC()
				completedDate = &now
			}
			if err := enrollments.UpdateProgress(ctx, enrollment.ID, 100, model.EnrollmentCompleted, completedDate); err != nil {
				return err
			}
			enrollment.ProgressPercentage = 100
			enrollment.Status = model.EnrollmentCompleted
			enrollment.CompletedDate = completedDate
		}

		cert, issued, err := s.Certificates.issue(ctx, tx, &pc, userID, courseID, enrollment.CompletedDate)
		if err != nil {
			return err
		}
		result = &CourseCompletion{Enrollment: enrollment, Certificate: cert, Issued: issued}
		return nil
	})
	if err != nil {
		return nil, err
	}
	pc.run(ctx)
	return result, nil
}

func (s *ProgressService) findLesson(ctx context.Context, repo *repository.LessonRepository, lessonID uint) (*model.Lesson, error) {
	lesson, err := repo.FindByID(ctx, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	return lesson, err
}
