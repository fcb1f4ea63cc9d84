package service

import (
	"context"
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/testutil"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) ofType(kind string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notification
	for _, n := range r.sent {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	ctx          context.Context
	db           *gorm.DB
	notifier     *recordingNotifier
	storage      *StorageService
	points       *PointsService
	badges       *BadgeService
	certificates *CertificateService
	progress     *ProgressService
	quizzes      *QuizService
	streaks      *StreakService
	achievements *AchievementService
	reviews      *ReviewService
	courses      *CourseService
	auth         *AuthService
	users        *UserService
	attachments  *AttachmentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewLessonProgressRepository(db)
	certRepo := repository.NewCertificateRepository(db)
	pointRepo := repository.NewPointRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	f := &fixture{
		ctx:      context.Background(),
		db:       db,
		notifier: &recordingNotifier{},
		storage:  &StorageService{Provider: &LocalStorageProvider{Root: t.TempDir()}},
	}

	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	f.points = NewPointsService(db, pointRepo, f.notifier)
	f.badges = NewBadgeService(badgeRepo, f.notifier)
	f.certificates = NewCertificateService(db, certRepo, enrollmentRepo, achievementRepo, courseRepo, userRepo,
		f.points, f.badges, f.storage, f.notifier, "LS")
	f.progress = NewProgressService(db, courseRepo, lessonRepo, enrollmentRepo, progressRepo, f.points, f.badges, f.certificates)
	f.quizzes = NewQuizService(db, quizRepo, lessonRepo, f.points, f.badges, f.progress)
	f.streaks = NewStreakService(progressRepo, 60)
	f.achievements = NewAchievementService(achievementRepo, enrollmentRepo, progressRepo, quizRepo, certRepo, f.points, f.badges, f.streaks)
	f.reviews = NewReviewService(db, reviewRepo, courseRepo)
	f.courses = NewCourseService(db, courseRepo, lessonRepo, quizRepo, enrollmentRepo)
	f.auth = NewAuthService(userRepo, cfg)
	f.auth.BcryptCost = bcrypt.MinCost
	f.users = NewUserService(userRepo)
	f.attachments = NewAttachmentService(attachmentRepo, lessonRepo, f.courses, f.storage)
	return f
}

var userSeq struct {
	sync.Mutex
	n int
}

func (f *fixture) createUser(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	userSeq.Lock()
	userSeq.n++
	n := userSeq.n
	userSeq.Unlock()

	user := &model.User{
		FullName: fmt.Sprintf("User %d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: "x",
		Role:     role,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

// createCourse 创建已发布课程及指定数量的课时
func (f *fixture) createCourse(t *testing.T, instructorID uint, lessons int) (*model.Course, []model.Lesson) {
	t.Helper()
	course := &model.Course{
		InstructorID: instructorID,
		Title:        "Go in Practice",
		Access:       model.AccessFree,
		Published:    true,
	}
	require.NoError(t, f.db.Create(course).Error)

	out := make([]model.Lesson, 0, lessons)
	for i := 0; i < lessons; i++ {
		lesson := model.Lesson{
			CourseID:   course.ID,
			Title:      fmt.Sprintf("Lesson %d", i+1),
			LessonType: model.LessonDocument,
			OrderIndex: i + 1,
		}
		require.NoError(t, f.db.Create(&lesson).Error)
		out = append(out, lesson)
	}
	return course, out
}

func (f *fixture) enroll(t *testing.T, userID, courseID uint) *model.Enrollment {
	t.Helper()
	e, _, err := f.progress.Enroll(f.ctx, userID, courseID)
	require.NoError(t, err)
	return e
}

func (f *fixture) enrollment(t *testing.T, userID, courseID uint) *model.Enrollment {
	t.Helper()
	var e model.Enrollment
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error)
	return &e
}

func (f *fixture) count(t *testing.T, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}
