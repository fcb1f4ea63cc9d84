package service

import (
	"testing"

	"learnsphere_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsAwardAccumulates(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, model.Learner)

	res, err := f.points.Award(f.ctx, user.ID, 15, "bonus")
	require.NoError(t, err)
	assert.True(t, res.Awarded)
	assert.Equal(t, 15, res.NewTotal)
	assert.Equal(t, LevelNewbie, res.BadgeLevel)

	res, err = f.points.Award(f.ctx, user.ID, 10, "bonus")
	require.NoError(t, err)
	assert.Equal(t, 25, res.NewTotal)
	assert.Equal(t, LevelExplorer, res.BadgeLevel)
	assert.Equal(t, LevelNewbie, res.PreviousLevel)

	var cached model.PointTotal
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&cached).Error)
	assert.Equal(t, 25, cached.TotalPoints)
	assert.Equal(t, string(LevelExplorer), cached.BadgeLevel)

	assert.Len(t, f.notifier.ofType(NotifyLevelUp), 1)
}

func TestPointsAwardOnceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, model.Learner)

	first, err := f.points.AwardOnce(f.ctx, user.ID, 10, "lesson", "lesson:1")
	require.NoError(t, err)
	assert.True(t, first.Awarded)

	second, err := f.points.AwardOnce(f.ctx, user.ID, 10, "lesson", "lesson:1")
	require.NoError(t, err)
	assert.False(t, second.Awarded)
	assert.Equal(t, 10, second.NewTotal)

	assert.Equal(t, int64(1), f.count(t, &model.PointEntry{}, "user_id = ?", user.ID))

	// 同一来源键对其他用户不冲突
	other := f.createUser(t, model.Learner)
	res, err := f.points.AwardOnce(f.ctx, other.ID, 10, "lesson", "lesson:1")
	require.NoError(t, err)
	assert.True(t, res.Awarded)
}

func TestPointsSummaryInitialisesNewLearner(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, model.Learner)

	summary, err := f.points.Summary(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalPoints)
	assert.Equal(t, LevelNewbie, summary.BadgeLevel)
	assert.Equal(t, LevelExplorer, summary.NextLevel)
	assert.Equal(t, 20, summary.PointsToNextLevel)

	assert.Equal(t, int64(1), f.count(t, &model.PointTotal{}, "user_id = ?", user.ID))
}

func TestPointsSummaryReadsLedgerNotCache(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, model.Learner)

	_, err := f.points.Award(f.ctx, user.ID, 130, "bonus")
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&model.PointTotal{}).Where("user_id = ?", user.ID).Update("total_points", 1).Error)

	summary, err := f.points.Summary(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 130, summary.TotalPoints)
	assert.Equal(t, LevelLegend, summary.BadgeLevel)
	assert.Empty(t, summary.NextLevel)
}

func TestPointsReconcileTotals(t *testing.T) {
	f := newFixture(t)
	a := f.createUser(t, model.Learner)
	b := f.createUser(t, model.Learner)

	_, err := f.points.Award(f.ctx, a.ID, 50, "bonus")
	require.NoError(t, err)
	_, err = f.points.Award(f.ctx, b.ID, 5, "bonus")
	require.NoError(t, err)
	require.NoError(t, f.db.Where("1 = 1").Delete(&model.PointTotal{}).Error)

	n, err := f.points.ReconcileTotals(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	board, err := f.points.Leaderboard(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, a.ID, board[0].UserID)
	assert.Equal(t, 50, board[0].TotalPoints)
	assert.Equal(t, a.FullName, board[0].FullName)
	assert.Equal(t, b.ID, board[1].UserID)
}

func TestPointsHistory(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, model.Learner)
	for i := 0; i < 3; i++ {
		_, err := f.points.Award(f.ctx, user.ID, 1, "tick")
		require.NoError(t, err)
	}

	entries, total, err := f.points.History(f.ctx, user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, entries, 2)
}
