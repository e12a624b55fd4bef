package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/academy/internal/clock"
	"github.com/smallbiznis/academy/internal/events"
	"github.com/smallbiznis/academy/internal/progress/domain"
	"github.com/smallbiznis/academy/internal/progress/repository"
	"github.com/smallbiznis/academy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupProgressService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := testutil.OpenSQLite(t, &domain.Progress{})
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.Node(t),
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, db, clk
}

func levelPassed(user string, course int64, delta int) events.CourseLevelPassed {
	return events.CourseLevelPassed{UserID: user, CourseID: course, LevelID: 1, Progress: delta, CourseName: "Go Basics"}
}

func countRows(t *testing.T, db *gorm.DB, user string, course int64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM progress WHERE user_id = ? AND course_id = ?`, user, course).Scan(&n).Error)
	return n
}

func TestApplyLevelPassedSumsDeltas(t *testing.T) {
	svc, db, clk := setupProgressService(t)
	ctx := context.Background()

	var last domain.Snapshot
	for i, delta := range []int{10, 5, 30, 7} {
		snap, err := svc.ApplyLevelPassed(ctx, levelPassed("u1", 1, delta))
		require.NoError(t, err, "event %d", i)
		last = snap
		clk.Advance(time.Minute)
	}

	assert.Equal(t, 52, last.Progress)
	assert.False(t, last.Completed())
	assert.Equal(t, int64(1), countRows(t, db, "u1", 1))
}

func TestApplyLevelPassedCrossesThreshold(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	completed := 0
	var last domain.Snapshot
	for _, delta := range []int{25, 25, 25, 25} {
		snap, err := svc.ApplyLevelPassed(ctx, levelPassed("u1", 1, delta))
		require.NoError(t, err)
		if snap.Completed() {
			completed++
		}
		last = snap
	}

	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, 1, completed)
}

func TestApplyLevelPassedIsNotCapped(t *testing.T) {
	svc, _, _ := setupProgressService(t)

	snap, err := svc.ApplyLevelPassed(context.Background(), levelPassed("u1", 1, 150))
	require.NoError(t, err)
	assert.Equal(t, 150, snap.Progress)
	assert.True(t, snap.Completed())
	assert.NotZero(t, snap.ID)
}

func TestApplyLevelPassedKeepsPairsApart(t *testing.T) {
	svc, _, _ := setupProgressService(t)
	ctx := context.Background()

	_, err := svc.ApplyLevelPassed(ctx, levelPassed("u1", 1, 40))
	require.NoError(t, err)
	_, err = svc.ApplyLevelPassed(ctx, levelPassed("u2", 1, 10))
	require.NoError(t, err)
	snap, err := svc.ApplyLevelPassed(ctx, levelPassed("u1", 2, 15))
	require.NoError(t, err)
	assert.Equal(t, 15, snap.Progress)

	list, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	byCourse := map[string]int{}
	for _, item := range list {
		byCourse[item.CourseID] = item.Progress
	}
	assert.Equal(t, map[string]int{"1": 40, "2": 15}, byCourse)
}

func TestApplyLevelPassedRejectsIncompleteEvents(t *testing.T) {
	svc, _, _ := setupProgressService(t)

	_, err := svc.ApplyLevelPassed(context.Background(), levelPassed(" ", 1, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = svc.ApplyLevelPassed(context.Background(), levelPassed("u1", 0, 10))
	assert.ErrorIs(t, err, domain.ErrInvalidCourse)
}

func TestApplyLevelPassedPropagatesStorageErrors(t *testing.T) {
	svc, db, _ := setupProgressService(t)
	require.NoError(t, db.Exec(`DROP TABLE progress`).Error)

	_, err := svc.ApplyLevelPassed(context.Background(), levelPassed("u1", 1, 10))
	assert.Error(t, err)
}

func TestProgressAcceptsDuplicateRowsForOnePair(t *testing.T) {
	svc, db, clk := setupProgressService(t)
	ctx := context.Background()
	repo := repository.Provide()
	node := testutil.Node(t)

	for i := 0; i < 2; i++ {
		now := clk.Now()
		require.NoError(t, repo.Insert(ctx, db, &domain.Progress{
			ID:        node.Generate(),
			UserID:    "u1",
			CourseID:  1,
			Progress:  10,
			CreatedAt: now,
			UpdatedAt: now,
		}))
	}
	assert.Equal(t, int64(2), countRows(t, db, "u1", 1))

	snap, err := svc.ApplyLevelPassed(ctx, levelPassed("u1", 1, 5))
	require.NoError(t, err)
	assert.Equal(t, 15, snap.Progress)
	assert.Equal(t, int64(2), countRows(t, db, "u1", 1))
}
