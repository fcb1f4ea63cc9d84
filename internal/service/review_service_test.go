package service

import (
	"testing"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewUpsertRefreshesCourseRating(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	a := f.createUser(t, model.Learner)
	b := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)

	_, created, err := f.reviews.Upsert(f.ctx, a.ID, course.ID, ReviewRequest{Rating: 5, ReviewText: " great "})
	require.NoError(t, err)
	assert.True(t, created)
	_, _, err = f.reviews.Upsert(f.ctx, b.ID, course.ID, ReviewRequest{Rating: 2})
	require.NoError(t, err)

	review, created, err := f.reviews.Upsert(f.ctx, a.ID, course.ID, ReviewRequest{Rating: 4, ReviewText: "good"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 4, review.Rating)

	var stored model.Course
	require.NoError(t, f.db.First(&stored, course.ID).Error)
	assert.Equal(t, 3.0, stored.AverageRating)
	assert.Equal(t, 2, stored.TotalReviews)

	list, err := f.reviews.List(f.ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].User)
}

func TestReviewRejectsBadRating(t *testing.T) {
	f := newFixture(t)
	learner := f.createUser(t, model.Learner)

	for _, rating := range []int{0, 6, -1} {
		_, _, err := f.reviews.Upsert(f.ctx, learner.ID, 1, ReviewRequest{Rating: rating})
		assert.ErrorIs(t, err, util.ErrInvalidInput)
	}

	_, _, err := f.reviews.Upsert(f.ctx, learner.ID, 777, ReviewRequest{Rating: 3})
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestReviewDeleteOwnOnly(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	owner := f.createUser(t, model.Learner)
	other := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)

	review, _, err := f.reviews.Upsert(f.ctx, owner.ID, course.ID, ReviewRequest{Rating: 3})
	require.NoError(t, err)

	err = f.reviews.Delete(f.ctx, other.ID, course.ID, review.ID)
	assert.ErrorIs(t, err, util.ErrForbidden)

	err = f.reviews.Delete(f.ctx, owner.ID, course.ID+1, review.ID)
	assert.ErrorIs(t, err, util.ErrReviewNotFound)

	require.NoError(t, f.reviews.Delete(f.ctx, owner.ID, course.ID, review.ID))

	var stored model.Course
	require.NoError(t, f.db.First(&stored, course.ID).Error)
	assert.Equal(t, 0.0, stored.AverageRating)
	assert.Equal(t, 0, stored.TotalReviews)
}
