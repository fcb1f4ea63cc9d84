package service

import (
	"testing"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckAccessFreeCourse(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)

	access, err := f.progress.CheckAccess(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	assert.Equal(t, AccessReasonOpen, access.Reason)

	_, err = f.progress.CheckAccess(f.ctx, learner.ID, course.ID+100)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	require.NoError(t, f.db.Model(course).Update("published", false).Error)
	_, err = f.progress.CheckAccess(f.ctx, learner.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrCourseNotOpen)
}

func TestCheckAccessPaymentCourse(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	stranger := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)
	require.NoError(t, f.db.Model(course).Update("access", model.AccessPayment).Error)

	access, err := f.progress.CheckAccess(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, access.HasAccess)
	assert.Equal(t, AccessReasonPaymentRequired, access.Reason)

	enrollment := f.enroll(t, learner.ID, course.ID)
	assert.False(t, enrollment.IsPaid)
	access, err = f.progress.CheckAccess(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, access.HasAccess)

	other := f.createUser(t, model.Learner)
	_, err = f.courses.ConfirmPayment(f.ctx, Actor{UserID: instructor.ID, Role: model.Instructor}, course.ID, other.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = f.courses.ConfirmPayment(f.ctx, Actor{UserID: stranger.ID, Role: model.Instructor}, course.ID, learner.ID)
	assert.ErrorIs(t, err, util.ErrNotCourseOwner)

	paid, err := f.courses.ConfirmPayment(f.ctx, Actor{UserID: instructor.ID, Role: model.Instructor}, course.ID, learner.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.True(t, f.enrollment(t, learner.ID, course.ID).IsPaid)

	access, err = f.progress.CheckAccess(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.True(t, access.HasAccess)
	assert.Equal(t, AccessReasonEnrolled, access.Reason)
}
