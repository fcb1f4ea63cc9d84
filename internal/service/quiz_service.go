package service

import (
	"context"
	"encoding/json"
	"errors"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/repository"
	"learnsphere_backend/internal/util"
	"learnsphere_backend/pkg/logger"
	"learnsphere_backend/pkg/monitoring"
	"learnsphere_backend/pkg/tracing"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 并发提交导致尝试序号冲突时的重试次数
const maxAttemptRetries = 3

var errAttemptTaken = errors.New("attempt number already taken")

type QuizService struct {
	DB         *gorm.DB
	QuizRepo   *repository.QuizRepository
	LessonRepo *repository.LessonRepository
	Points     *PointsService
	Badges     *BadgeService
	Progress   *ProgressService
}

func NewQuizService(
	db *gorm.DB,
	quizRepo *repository.QuizRepository,
	lessonRepo *repository.LessonRepository,
	points *PointsService,
	badges *BadgeService,
	progress *ProgressService,
) *QuizService {
	return &QuizService{
		DB:         db,
		QuizRepo:   quizRepo,
		LessonRepo: lessonRepo,
		Points:     points,
		Badges:     badges,
		Progress:   progress,
	}
}

type QuestionView struct {
	ID      uint     `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// QuizView 学员可见的测验，不包含正确答案
type QuizView struct {
	ID             uint           `json:"id"`
	CourseID       uint           `json:"courseId"`
	LessonID       *uint          `json:"lessonId,omitempty"`
	Title          string         `json:"title"`
	TimerSeconds   int            `json:"timerSeconds"`
	PassScore      int            `json:"passScore"`
	RewardSchedule []int          `json:"rewardSchedule"`
	Questions      []QuestionView `json:"questions"`
}

func parseOptions(raw datatypes.JSON) []string {
	var options []string
	if len(raw) == 0 {
		return options
	}
	if err := json.Unmarshal(raw, &options); err != nil {
		logger.Log.Warn("Malformed quiz question options", zap.Error(err))
		return nil
	}
	return options
}

func (s *QuizService) findQuiz(ctx context.Context, repo *repository.QuizRepository, quizID uint) (*model.Quiz, error) {
	quiz, err := repo.FindByID(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

func (s *QuizService) Get(ctx context.Context, quizID uint) (*QuizView, error) {
	quiz, err := s.findQuiz(ctx, s.QuizRepo, quizID)
	if err != nil {
		return nil, err
	}

	view := &QuizView{
		ID:             quiz.ID,
		CourseID:       quiz.CourseID,
		LessonID:       quiz.LessonID,
		Title:          quiz.Title,
		TimerSeconds:   quiz.TimerSeconds,
		PassScore:      quiz.PassScore,
		RewardSchedule: ParseRewardSchedule(quiz.RewardSchedule),
		Questions:      make([]QuestionView, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		view.Questions = append(view.Questions, QuestionView{
			ID:      q.ID,
			Prompt:  q.Prompt,
			Options: parseOptions(q.Options),
		})
	}
	return view, nil
}

type SubmitResult struct {
	AttemptID       uint              `json:"attemptId"`
	AttemptNumber   int               `json:"attemptNumber"`
	Score           int               `json:"score"`
	CorrectCount    int               `json:"correctCount"`
	TotalQuestions  int               `json:"totalQuestions"`
	PointsEarned    int               `json:"pointsEarned"`
	Passed          bool              `json:"passed"`
	LessonCompleted bool              `json:"lessonCompleted"`
	Lesson          *LessonCompletion `json:"lesson,omitempty"`
}

// validateAnswers 答案不能多于题目，且每个下标都要落在选项范围内
func validateAnswers(questions []model.QuizQuestion, answers []int) error {
	if len(answers) > len(questions) {
		return util.InvalidInputf("got %d answers for %d questions", len(answers), len(questions))
	}
	for i, a := range answers {
		if a < 0 {
			return util.InvalidInputf("answer %d is negative", i+1)
		}
		if options := parseOptions(questions[i].Options); len(options) > 0 && a >= len(options) {
			return util.InvalidInputf("answer %d is out of range", i+1)
		}
	}
	return nil
}

// Submit 判分并记录一次尝试，绑定课时的测验同时完成该课时
func (s *QuizService) Submit(ctx context.Context, userID, quizID uint, answers []int) (*SubmitResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "QuizService.Submit")
	defer span.End()
	span.SetAttributes(attribute.Int("user.id", int(userID)), attribute.Int("quiz.id", int(quizID)))

	quiz, err := s.findQuiz(ctx, s.QuizRepo, quizID)
	if err != nil {
		return nil, err
	}
	if err := validateAnswers(quiz.Questions, answers); err != nil {
		return nil, err
	}

	correct := make([]int, len(quiz.Questions))
	for i, q := range quiz.Questions {
		correct[i] = q.CorrectIndex
	}
	grade := Grade(correct, answers)
	passScore := quiz.PassScore
	if passScore <= 0 {
		passScore = model.DefaultPassScore
	}
	schedule := ParseRewardSchedule(quiz.RewardSchedule)

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	for try := 1; try <= maxAttemptRetries; try++ {
		var (
			result *SubmitResult
			pc     postCommit
		)
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = s.submit(ctx, tx, &pc, userID, quiz, grade, passScore, schedule, answersJSON)
			return err
		})
		if errors.Is(err, errAttemptTaken) {
			logger.Log.Debug("Quiz attempt number taken, retrying",
				zap.Uint("user_id", userID), zap.Uint("quiz_id", quizID), zap.Int("try", try))
			continue
		}
		if err != nil {
			tracing.RecordError(span, err)
			return nil, err
		}

		pc.run(ctx)
		monitoring.QuizSubmissions.WithLabelValues(strconv.FormatBool(result.Passed)).Inc()
		return result, nil
	}
	return nil, util.ErrAttemptConflict
}

func (s *QuizService) submit(ctx context.Context, tx *gorm.DB, pc *postCommit, userID uint, quiz *model.Quiz, grade GradeResult, passScore int, schedule []int, answers []byte) (*SubmitResult, error) {
	repo := s.QuizRepo.WithTx(tx)

	prior, err := repo.CountAttempts(ctx, userID, quiz.ID)
	if err != nil {
		return nil, err
	}
	attemptNumber := int(prior) + 1
	points := RewardForAttempt(schedule, attemptNumber)

	attempt := &model.QuizAttempt{
		UserID:         userID,
		QuizID:         quiz.ID,
		AttemptNumber:  attemptNumber,
		CourseID:       quiz.CourseID,
		Score:          grade.Score,
		CorrectCount:   grade.CorrectCount,
		TotalQuestions: grade.TotalQuestions,
		Answers:        datatypes.JSON(answers),
		PointsEarned:   points,
		Passed:         grade.Score >= passScore,
		SubmittedAt:    time.Now().UTC(),
	}
	if err := repo.CreateAttempt(ctx, attempt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errAttemptTaken
		}
		return nil, err
	}

	result := &SubmitResult{
		AttemptID:      attempt.ID,
		AttemptNumber:  attemptNumber,
		Score:          grade.Score,
		CorrectCount:   grade.CorrectCount,
		TotalQuestions: grade.TotalQuestions,
		PointsEarned:   points,
		Passed:         attempt.Passed,
	}

	key := quizAttemptSourceKey(attempt.ID)
	if _, err := s.Points.award(ctx, tx, pc, userID, points, "Quiz attempt: "+quiz.Title, &key); err != nil {
		return nil, err
	}
	if grade.TotalQuestions > 0 && grade.Score == 100 {
		if _, err := s.Badges.awardByName(ctx, tx, pc, userID, model.BadgeQuizMaster); err != nil {
			return nil, err
		}
	}

	if quiz.LessonID == nil {
		return result, nil
	}
	lesson, err := s.LessonRepo.WithTx(tx).FindByID(ctx, *quiz.LessonID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Log.Warn("Quiz bound to missing lesson", zap.Uint("quiz_id", quiz.ID), zap.Uint("lesson_id", *quiz.LessonID))
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	completion, err := s.Progress.completeLesson(ctx, tx, pc, userID, lesson)
	if err != nil {
		return nil, err
	}
	result.LessonCompleted = true
	result.Lesson = completion
	return result, nil
}

func (s *QuizService) Attempts(ctx context.Context, userID, quizID uint) ([]model.QuizAttempt, error) {
	if _, err := s.findQuiz(ctx, s.QuizRepo, quizID); err != nil {
		return nil, err
	}
	return s.QuizRepo.ListAttempts(ctx, userID, quizID)
}
