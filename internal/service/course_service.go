package service

import (
	"context"
	"encoding/json"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Actor 发起操作的用户
type Actor struct {
	UserID uint
	Role   model.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.Admin
}

type CourseService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	LessonRepo     *repository.LessonRepository
	QuizRepo       *repository.QuizRepository
	EnrollmentRepo *repository.EnrollmentRepository
}

func NewCourseService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	lessonRepo *repository.LessonRepository,
	quizRepo *repository.QuizRepository,
	enrollmentRepo *repository.EnrollmentRepository,
) *CourseService {
	return &CourseService{
		DB:             db,
		CourseRepo:     courseRepo,
		LessonRepo:     lessonRepo,
		QuizRepo:       quizRepo,
		EnrollmentRepo: enrollmentRepo,
	}
}

type CourseRequest struct {
	Title            string             `json:"title" binding:"required,max=500"`
	ShortDescription string             `json:"shortDescription"`
	FullDescription  string             `json:"fullDescription"`
	ImageURL         string             `json:"imageUrl" binding:"max=500"`
	Tags             string             `json:"tags" binding:"max=500"`
	Access           model.CourseAccess `json:"access"`
	Price            float64            `json:"price" binding:"gte=0"`
	Published        *bool              `json:"published"`
}

type LessonRequest struct {
	Title      string           `json:"title" binding:"required,max=500"`
	LessonType model.LessonType `json:"lessonType"`
	Content    string           `json:"content"`
	Duration   int              `json:"duration" binding:"gte=0"`
	OrderIndex *int             `json:"orderIndex"`
}

type QuestionRequest struct {
	Prompt       string   `json:"prompt" binding:"required"`
	Options      []string `json:"options" binding:"required,min=2"`
	CorrectIndex int      `json:"correctIndex" binding:"gte=0"`
}

type QuizRequest struct {
	Title          string            `json:"title" binding:"required,max=500"`
	TimerSeconds   int               `json:"timerSeconds" binding:"gte=0"`
	PassScore      int               `json:"passScore" binding:"gte=0,lte=100"`
	RewardSchedule []int             `json:"rewardSchedule"`
	Questions      []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

func (s *CourseService) findCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

// ownedCourse 讲师只能操作自己的课程，管理员不受限
func (s *CourseService) ownedCourse(ctx context.Context, actor Actor, courseID uint) (*model.Course, error) {
	course, err := s.findCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && course.InstructorID != actor.UserID {
		return nil, util.ErrNotCourseOwner
	}
	return course, nil
}

func (s *CourseService) ownedLesson(ctx context.Context, actor Actor, lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(ctx, lessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrLessonNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCourse(ctx, actor, lesson.CourseID); err != nil {
		return nil, err
	}
	return lesson, nil
}

func validAccess(a model.CourseAccess) bool {
	return a == "" || a == model.AccessFree || a == model.AccessPayment
}

func applyCourseRequest(course *model.Course, req CourseRequest) {
	course.Title = strings.TrimSpace(req.Title)
	course.ShortDescription = req.ShortDescription
	course.FullDescription = req.FullDescription
	course.ImageURL = req.ImageURL
	course.Tags = req.Tags
	course.Access = req.Access
	if course.Access == "" {
		course.Access = model.AccessFree
	}
	course.Price = req.Price
	if req.Published != nil {
		course.Published = *req.Published
	}
}

func (s *CourseService) Create(ctx context.Context, actor Actor, req CourseRequest) (*model.Course, error) {
	if !validAccess(req.Access) {
		return nil, util.InvalidInputf("invalid access type %q", req.Access)
	}
	course := &model.Course{InstructorID: actor.UserID}
	applyCourseRequest(course, req)
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, actor Actor, courseID uint, req CourseRequest) (*model.Course, error) {
	if !validAccess(req.Access) {
		return nil, util.InvalidInputf("invalid access type %q", req.Access)
	}
	course, err := s.ownedCourse(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	applyCourseRequest(course, req)
	if err := s.CourseRepo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(ctx context.Context, actor Actor, courseID uint) error {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return err
	}
	return s.CourseRepo.Delete(ctx, courseID)
}

func (s *CourseService) ListPublished(ctx context.Context, keyword string, page, limit int) ([]model.Course, int64, error) {
	return s.CourseRepo.ListPublished(ctx, strings.TrimSpace(keyword), page, limit)
}

func (s *CourseService) ListMine(ctx context.Context, actor Actor) ([]model.Course, error) {
	return s.CourseRepo.ListByInstructor(ctx, actor.UserID)
}

// Detail 未发布的课程对外不可见
func (s *CourseService) Detail(ctx context.Context, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindWithLessons(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !course.Published) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}

func (s *CourseService) AddLesson(ctx context.Context, actor Actor, courseID uint, req LessonRequest) (*model.Lesson, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		CourseID:   courseID,
		Title:      strings.TrimSpace(req.Title),
		LessonType: req.LessonType,
		Content:    req.Content,
		Duration:   req.Duration,
	}
	if lesson.LessonType == "" {
		lesson.LessonType = model.LessonDocument
	}
	if req.OrderIndex != nil {
		lesson.OrderIndex = *req.OrderIndex
	} else {
		next, err := s.LessonRepo.NextOrderIndex(ctx, courseID)
		if err != nil {
			return nil, err
		}
		lesson.OrderIndex = next
	}

	if err := s.LessonRepo.Create(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) UpdateLesson(ctx context.Context, actor Actor, lessonID uint, req LessonRequest) (*model.Lesson, error) {
	lesson, err := s.ownedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}
	lesson.Title = strings.TrimSpace(req.Title)
	if req.LessonType != "" {
		lesson.LessonType = req.LessonType
	}
	lesson.Content = req.Content
	lesson.Duration = req.Duration
	if req.OrderIndex != nil {
		lesson.OrderIndex = *req.OrderIndex
	}
	if err := s.LessonRepo.Update(ctx, lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *CourseService) DeleteLesson(ctx context.Context, actor Actor, lessonID uint) error {
	lesson, err := s.ownedLesson(ctx, actor, lessonID)
	if err != nil {
		return err
	}
	return s.LessonRepo.Delete(ctx, lesson.ID)
}

// CreateQuiz 每个课时最多一个测验，完成测验即完成该课时
func (s *CourseService) CreateQuiz(ctx context.Context, actor Actor, lessonID uint, req QuizRequest) (*model.Quiz, error) {
	lesson, err := s.ownedLesson(ctx, actor, lessonID)
	if err != nil {
		return nil, err
	}

	for i, q := range req.Questions {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return nil, util.InvalidInputf("question %d: correct index out of range", i+1)
		}
	}
	for _, p := range req.RewardSchedule {
		if p < 0 {
			return nil, util.InvalidInputf("reward schedule must not contain negative points")
		}
	}

	quiz := &model.Quiz{
		CourseID:     lesson.CourseID,
		LessonID:     &lesson.ID,
		Title:        strings.TrimSpace(req.Title),
		TimerSeconds: req.TimerSeconds,
		PassScore:    req.PassScore,
	}
	if quiz.PassScore == 0 {
		quiz.PassScore = model.DefaultPassScore
	}
	if len(req.RewardSchedule) > 0 {
		raw, err := json.Marshal(req.RewardSchedule)
		if err != nil {
			return nil, err
		}
		quiz.RewardSchedule = datatypes.JSON(raw)
	}
	for i, q := range req.Questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Prompt:       q.Prompt,
			Options:      datatypes.JSON(options),
			CorrectIndex: q.CorrectIndex,
			OrderIndex:   i + 1,
		})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quizzes := s.QuizRepo.WithTx(tx)
		exists, err := quizzes.ExistsForLesson(ctx, lesson.ID)
		if err != nil {
			return err
		}
		if exists {
			return util.ErrQuizExists
		}
		if err := quizzes.Create(ctx, quiz); err != nil {
			return err
		}
		if lesson.LessonType != model.LessonQuiz {
			lesson.LessonType = model.LessonQuiz
			return s.LessonRepo.WithTx(tx).Update(ctx, lesson)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

// Students 课程的选课学员及进度
func (s *CourseService) Students(ctx context.Context, actor Actor, courseID uint) ([]model.Enrollment, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.EnrollmentRepo.ListByCourse(ctx, courseID)
}

// ConfirmPayment 讲师确认学员已付款，重复确认无副作用
func (s *CourseService) ConfirmPayment(ctx context.Context, actor Actor, courseID, learnerID uint) (*model.Enrollment, error) {
	if _, err := s.ownedCourse(ctx, actor, courseID); err != nil {
		return nil, err
	}
	enrollment, err := s.EnrollmentRepo.Find(ctx, learnerID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}
	if !enrollment.IsPaid {
		if err := s.EnrollmentRepo.MarkPaid(ctx, enrollment.ID); err != nil {
			return nil, err
		}
		enrollment.IsPaid = true
	}
	return enrollment, nil
}
