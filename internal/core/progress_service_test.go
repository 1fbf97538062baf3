package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthesis.io/tutor-backend/internal/logger"
)

func ptr[T any](v T) *T { return &v }

func TestRecordProgress_AbsentScoreDoesNotClobber(t *testing.T) {
	db := openTestStore(t)
	svc := NewProgressService(db, 100, logger.NewNop())
	ctx := context.Background()

	first, err := svc.RecordProgress(ctx, ProgressInput{
		StudentID: "s1", ModuleID: "m1", ModuleName: "Introduction to Numbers",
		Completed: true, Score: ptr(90.0),
	})
	require.NoError(t, err)

	second, err := svc.RecordProgress(ctx, ProgressInput{
		StudentID: "s1", ModuleID: "m1", ModuleName: "Introduction to Numbers",
		Completed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Completed)
	require.NotNil(t, second.Score)
	assert.Equal(t, 90.0, *second.Score)
}

func TestRecordProgress_UpdateOverwritesCompletedAndSuppliedScore(t *testing.T) {
	db := openTestStore(t)
	svc := NewProgressService(db, 100, logger.NewNop())
	ctx := context.Background()

	_, err := svc.RecordProgress(ctx, ProgressInput{StudentID: "s1", ModuleID: "m1", ModuleName: "N", Completed: true, Score: ptr(50.0)})
	require.NoError(t, err)

	rec, err := svc.RecordProgress(ctx, ProgressInput{StudentID: "s1", ModuleID: "m1", ModuleName: "Renamed", Completed: false, Score: ptr(75.0)})
	require.NoError(t, err)
	assert.False(t, rec.Completed)
	assert.Equal(t, 75.0, *rec.Score)
	assert.Equal(t, "N", rec.ModuleName, "module name is only set on create")
}

func TestRecordProgress_NewRecordWithoutScore(t *testing.T) {
	db := openTestStore(t)
	svc := NewProgressService(db, 100, logger.NewNop())

	rec, err := svc.RecordProgress(context.Background(), ProgressInput{StudentID: "s1", ModuleID: "m9", ModuleName: "Science"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Nil(t, rec.Score)
	assert.False(t, rec.Completed)
}

func TestRecordProgress_NeverDuplicatesKey(t *testing.T) {
	db := openTestStore(t)
	svc := NewProgressService(db, 100, logger.NewNop())
	ctx := context.Background()

	calls := []ProgressInput{
		{StudentID: "s1", ModuleID: "m1", ModuleName: "A", Completed: false},
		{StudentID: "s1", ModuleID: "m2", ModuleName: "B", Completed: true, Score: ptr(10.0)},
		{StudentID: "s1", ModuleID: "m1", ModuleName: "A", Completed: true, Score: ptr(80.0)},
		{StudentID: "s2", ModuleID: "m1", ModuleName: "A", Completed: true},
		{StudentID: "s1", ModuleID: "m2", ModuleName: "B", Completed: false},
		{StudentID: "s1", ModuleID: "m1", ModuleName: "A", Completed: true},
	}
	for _, in := range calls {
		_, err := svc.RecordProgress(ctx, in)
		require.NoError(t, err)
	}

	s1, err := svc.ListProgress(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, s1, 2)

	byModule := map[string]float64{}
	for _, rec := range s1 {
		require.NotNil(t, rec.Score)
		byModule[rec.ModuleID] = *rec.Score
	}
	assert.Equal(t, map[string]float64{"m1": 80.0, "m2": 10.0}, byModule)

	s2, err := svc.ListProgress(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, s2, 1)
}
