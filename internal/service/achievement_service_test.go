package service

import (
	"testing"
	"time"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardForNewLearner(t *testing.T) {
	f := newFixture(t)
	learner := f.createUser(t, model.Learner)

	d, err := f.achievements.GetDashboard(f.ctx, learner.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Points.TotalPoints)
	assert.Equal(t, LevelNewbie, d.Points.BadgeLevel)
	assert.Zero(t, d.CoursesCompleted)
	assert.Zero(t, d.LessonsCompleted)
	assert.Empty(t, d.Badges)
	assert.Empty(t, d.Certificates)
	assert.Equal(t, 0, d.Streak.CurrentStreak)
}

func TestDashboardAfterCompletingCourse(t *testing.T) {
	f := newFixture(t)
	learner, course, lessons, quiz := setupQuiz(t, f, 2, nil)
	f.enroll(t, learner.ID, course.ID)

	_, err := f.progress.CompleteLesson(f.ctx, learner.ID, lessons[0].ID)
	require.NoError(t, err)
	_, err = f.quizzes.Submit(f.ctx, learner.ID, quiz.ID, []int{0, 1, 2, 0})
	require.NoError(t, err)

	d, err := f.achievements.GetDashboard(f.ctx, learner.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.CoursesCompleted)
	assert.Equal(t, int64(2), d.LessonsCompleted)
	assert.Equal(t, int64(1), d.QuizzesPassed)
	assert.Len(t, d.Certificates, 1)
	require.Len(t, d.Achievements, 1)
	assert.Equal(t, model.AchievementCourseCompletion, d.Achievements[0].AchievementType)
	assert.Len(t, d.Badges, 3)
	assert.Equal(t, 2*PointsLessonCompletion+PointsCourseCompletion+100, d.Points.TotalPoints)
	assert.Equal(t, 1, d.Streak.CurrentStreak)
	assert.Equal(t, 1, d.Streak.TotalActiveDays)
	assert.Equal(t, []string{time.Now().UTC().Format(util.DateFormat)}, d.Streak.ActivityCalendar)
}

func TestStreakServiceUsesCompletionTimes(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, lessons := f.createCourse(t, instructor.ID, 3)
	f.enroll(t, learner.ID, course.ID)

	asOf := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	for i, offset := range []int{0, -1, -3} {
		at := asOf.AddDate(0, 0, offset)
		require.NoError(t, f.db.Create(&model.LessonProgress{
			UserID:      learner.ID,
			LessonID:    lessons[i].ID,
			CourseID:    course.ID,
			Status:      model.LessonCompleted,
			IsCompleted: true,
			CompletedAt: &at,
		}).Error)
	}

	streak, err := f.streaks.ComputeStreak(f.ctx, learner.ID, asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, streak.TotalActiveDays)
	assert.Equal(t, []string{"2026-05-07", "2026-05-09", "2026-05-10"}, streak.ActivityCalendar)
}

func TestBadgeMarkViewed(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, lessons := f.createCourse(t, instructor.ID, 2)
	f.enroll(t, learner.ID, course.ID)
	_, err := f.progress.CompleteLesson(f.ctx, learner.ID, lessons[0].ID)
	require.NoError(t, err)

	fresh, err := f.badges.NewBadges(f.ctx, learner.ID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, model.BadgeFirstSteps, fresh[0].Badge.Name)
	assert.Len(t, f.notifier.ofType(NotifyBadgeEarned), 1)

	require.NoError(t, f.badges.MarkViewed(f.ctx, learner.ID, fresh[0].BadgeID))
	require.NoError(t, f.badges.MarkViewed(f.ctx, learner.ID, fresh[0].BadgeID))
	fresh, err = f.badges.NewBadges(f.ctx, learner.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	err = f.badges.MarkViewed(f.ctx, learner.ID, 9999)
	assert.ErrorIs(t, err, util.ErrBadgeNotFound)
}
