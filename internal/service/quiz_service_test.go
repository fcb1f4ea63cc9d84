package service

import (
	"testing"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fourQuestionQuiz(schedule []int) QuizRequest {
	q := func(prompt string, correct int) QuestionRequest {
		return QuestionRequest{Prompt: prompt, Options: []string{"a", "b", "c"}, CorrectIndex: correct}
	}
	return QuizRequest{
		Title:          "Checkpoint",
		RewardSchedule: schedule,
		Questions:      []QuestionRequest{q("q1", 0), q("q2", 1), q("q3", 2), q("q4", 0)},
	}
}

// setupQuiz 创建一门课程并在最后一个课时上挂一个四题测验
func setupQuiz(t *testing.T, f *fixture, lessons int, schedule []int) (*model.User, *model.Course, []model.Lesson, *model.Quiz) {
	t.Helper()
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, ls := f.createCourse(t, instructor.ID, lessons)
	quiz, err := f.courses.CreateQuiz(f.ctx, Actor{UserID: instructor.ID, Role: model.Instructor}, ls[len(ls)-1].ID, fourQuestionQuiz(schedule))
	require.NoError(t, err)
	return learner, course, ls, quiz
}

func TestQuizGetHidesAnswers(t *testing.T) {
	f := newFixture(t)
	_, _, lessons, quiz := setupQuiz(t, f, 1, nil)

	view, err := f.quizzes.Get(f.ctx, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checkpoint", view.Title)
	assert.Equal(t, model.DefaultPassScore, view.PassScore)
	assert.Equal(t, DefaultRewardSchedule, view.RewardSchedule)
	require.Len(t, view.Questions, 4)
	assert.Equal(t, []string{"a", "b", "c"}, view.Questions[0].Options)
	require.NotNil(t, view.LessonID)
	assert.Equal(t, lessons[0].ID, *view.LessonID)

	var lesson model.Lesson
	require.NoError(t, f.db.First(&lesson, lessons[0].ID).Error)
	assert.Equal(t, model.LessonQuiz, lesson.LessonType)

	_, err = f.quizzes.Get(f.ctx, 9999)
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestQuizSubmitScoresAndDecaysRewards(t *testing.T) {
	f := newFixture(t)
	learner, course, _, quiz := setupQuiz(t, f, 2, nil)
	f.enroll(t, learner.ID, course.ID)

	answers := []int{0, 1, 2, 1}
	want := []int{100, 75, 50, 25, 25}
	for i, points := range want {
		res, err := f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, answers)
		require.NoError(t, err)
		assert.Equal(t, i+1, res.AttemptNumber)
		assert.Equal(t, 75, res.Score)
		assert.Equal(t, 3, res.CorrectCount)
		assert.Equal(t, 4, res.TotalQuestions)
		assert.True(t, res.Passed)
		assert.Equal(t, points, res.PointsEarned)
	}

	attempts, err := f.quizzes.Attempts(f.ctx, learner.ID, quiz.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, len(want))

	// 课时积分只在第一次完成时发放
	summary, err := f.points.Summary(f.ctx, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 100+75+50+25+25+PointsLessonCompletion, summary.TotalPoints)
}

func TestQuizSubmitCustomSchedule(t *testing.T) {
	f := newFixture(t)
	learner, _, _, quiz := setupQuiz(t, f, 2, []int{30, 5})

	want := []int{30, 5, 5}
	for _, points := range want {
		res, err := f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, []int{2, 2, 2, 2})
		require.NoError(t, err)
		assert.Equal(t, 25, res.Score)
		assert.False(t, res.Passed)
		assert.Equal(t, points, res.PointsEarned)
	}
}

func TestQuizSubmitCompletesBoundLesson(t *testing.T) {
	f := newFixture(t)
	learner, course, lessons, quiz := setupQuiz(t, f, 1, nil)
	f.enroll(t, learner.ID, course.ID)

	res, err := f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, []int{0, 1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.True(t, res.LessonCompleted)
	require.NotNil(t, res.Lesson)
	assert.Equal(t, lessons[0].ID, res.Lesson.LessonID)
	assert.True(t, res.Lesson.CourseCompleted)
	require.NotNil(t, res.Lesson.Certificate)

	e := f.enrollment(t, learner.ID, course.ID)
	assert.Equal(t, model.EnrollmentCompleted, e.Status)

	badges, err := f.badges.ListUserBadges(f.ctx, learner.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, b.Badge.Name)
	}
	assert.Contains(t, names, model.BadgeQuizMaster)
	assert.Contains(t, names, model.BadgeCourseCompleted)
}

func TestQuizSubmitRejectsInvalidAnswers(t *testing.T) {
	f := newFixture(t)
	learner, _, _, quiz := setupQuiz(t, f, 1, nil)

	cases := map[string][]int{
		"too many answers": {0, 0, 0, 0, 0},
		"negative index":   {0, -1},
		"index past range": {0, 3},
	}
	for name, answers := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, answers)
			assert.ErrorIs(t, err, util.ErrInvalidInput)
		})
	}
	assert.Equal(t, int64(0), f.count(t, &model.QuizAttempt{}, "user_id = ?", learner.ID))
}

func TestQuizSubmitUnansweredQuestionsCountAsWrong(t *testing.T) {
	f := newFixture(t)
	learner, _, _, quiz := setupQuiz(t, f, 1, nil)

	res, err := f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 50, res.Score)
	assert.False(t, res.Passed)
}

func TestQuizSubmitUnknownQuiz(t *testing.T) {
	f := newFixture(t)
	learner := f.createUser(t, model.Learner)

	_, err := f.quizzes.Submit(f.ctx, learner.ID, 4242, []int{0})
	assert.ErrorIs(t, err, util.ErrQuizNotFound)

	_, err = f.quizzes.Attempts(f.ctx, learner.ID, 4242)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}
