package service

import (
	"testing"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseOwnership(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	stranger := f.createUser(t, model.Instructor)
	admin := f.createUser(t, model.Admin)

	ownerActor := Actor{UserID: owner.ID, Role: model.Instructor}
	published := true
	course, err := f.courses.Create(f.ctx, ownerActor, CourseRequest{Title: " Intro ", Published: &published})
	require.NoError(t, err)
	assert.Equal(t, "Intro", course.Title)
	assert.Equal(t, model.AccessFree, course.Access)

	_, err = f.courses.Update(f.ctx, Actor{UserID: stranger.ID, Role: model.Instructor}, course.ID, CourseRequest{Title: "Hijack"})
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	updated, err := f.courses.Update(f.ctx, Actor{UserID: admin.ID, Role: model.Admin}, course.ID, CourseRequest{Title: "Intro v2"})
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", updated.Title)
	assert.True(t, updated.Published)

	_, err = f.courses.Create(f.ctx, ownerActor, CourseRequest{Title: "Bad", Access: "barter"})
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	mine, err := f.courses.ListMine(f.ctx, ownerActor)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCourseLessonsOrdering(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	actor := Actor{UserID: owner.ID, Role: model.Instructor}
	published := true
	course, err := f.courses.Create(f.ctx, actor, CourseRequest{Title: "Ordered", Published: &published})
	require.NoError(t, err)

	first, err := f.courses.AddLesson(f.ctx, actor, course.ID, LessonRequest{Title: "One"})
	require.NoError(t, err)
	second, err := f.courses.AddLesson(f.ctx, actor, course.ID, LessonRequest{Title: "Two"})
	require.NoError(t, err)
	assert.Equal(t, first.OrderIndex+1, second.OrderIndex)
	assert.Equal(t, model.LessonDocument, first.LessonType)

	detail, err := f.courses.Detail(f.ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, detail.Lessons, 2)
	assert.Equal(t, "One", detail.Lessons[0].Title)

	require.NoError(t, f.courses.DeleteLesson(f.ctx, actor, first.ID))
	detail, err = f.courses.Detail(f.ctx, course.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Lessons, 1)
}

func TestCourseDetailHidesUnpublished(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	course, err := f.courses.Create(f.ctx, Actor{UserID: owner.ID, Role: model.Instructor}, CourseRequest{Title: "Draft"})
	require.NoError(t, err)

	_, err = f.courses.Detail(f.ctx, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	list, total, err := f.courses.ListPublished(f.ctx, "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, list)
}

func TestCourseListPublishedKeyword(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	f.createCourse(t, owner.ID, 0)
	actor := Actor{UserID: owner.ID, Role: model.Instructor}
	published := true
	_, err := f.courses.Create(f.ctx, actor, CourseRequest{Title: "Rust Basics", Published: &published})
	require.NoError(t, err)

	list, total, err := f.courses.ListPublished(f.ctx, "rust", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Rust Basics", list[0].Title)
}

func TestCreateQuizValidation(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	actor := Actor{UserID: owner.ID, Role: model.Instructor}
	_, lessons := f.createCourse(t, owner.ID, 1)

	bad := fourQuestionQuiz(nil)
	bad.Questions[1].CorrectIndex = 3
	_, err := f.courses.CreateQuiz(f.ctx, actor, lessons[0].ID, bad)
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = f.courses.CreateQuiz(f.ctx, actor, lessons[0].ID, fourQuestionQuiz([]int{10, -1}))
	assert.ErrorIs(t, err, util.ErrInvalidInput)

	_, err = f.courses.CreateQuiz(f.ctx, actor, lessons[0].ID, fourQuestionQuiz(nil))
	require.NoError(t, err)
	_, err = f.courses.CreateQuiz(f.ctx, actor, lessons[0].ID, fourQuestionQuiz(nil))
	assert.ErrorIs(t, err, util.ErrQuizExists)

	stranger := f.createUser(t, model.Instructor)
	_, err = f.courses.CreateQuiz(f.ctx, Actor{UserID: stranger.ID, Role: model.Instructor}, lessons[0].ID, fourQuestionQuiz(nil))
	assert.ErrorIs(t, err, util.ErrForbidden)
}

func TestCourseStudents(t *testing.T) {
	f := newFixture(t)
	owner := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, lessons := f.createCourse(t, owner.ID, 2)
	f.enroll(t, learner.ID, course.ID)
	_, err := f.progress.CompleteLesson(f.ctx, learner.ID, lessons[0].ID)
	require.NoError(t, err)

	students, err := f.courses.Students(f.ctx, Actor{UserID: owner.ID, Role: model.Instructor}, course.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, 50, students[0].ProgressPercentage)
	require.NotNil(t, students[0].User)
	assert.Equal(t, learner.Email, students[0].User.Email)
}
