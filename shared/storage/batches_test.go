package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner-stack/internal/models"
)

// anyArgs builds n pgxmock.AnyArg matchers; pgxmock requires one matcher per
// argument, there is no "match any argument list" mode.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func runningBatch() *models.AutoPlanBatch {
	return &models.AutoPlanBatch{
		ID:          uuid.New(),
		TriggeredAt: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		TriggeredBy: models.TriggerScheduled,
		Status:      models.BatchStatusRunning,
		TargetCount: 5,
	}
}

func TestCreateRunning(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := runningBatch()
	mock.ExpectExec("INSERT INTO auto_plan_batches").
		WithArgs(batch.ID, batch.TriggeredAt, batch.TriggeredBy,
			models.BatchStatusRunning, batch.TargetCount, models.BatchStatusRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewBatchStore(mock)
	require.NoError(t, store.CreateRunning(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRunningConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// Zero rows means the guard clause found an existing running batch.
	mock.ExpectExec("INSERT INTO auto_plan_batches").
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewBatchStore(mock)
	err = store.CreateRunning(context.Background(), runningBatch())
	assert.ErrorIs(t, err, ErrBatchConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBatch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := runningBatch()
	batch.Status = models.BatchStatusPartial
	batch.TotalPlans = 5
	batch.CompletedPlans = 3
	batch.FailedPlans = 2
	batch.ErrorLog = []string{"some keyword: research unavailable"}
	completedAt := time.Date(2026, 9, 1, 9, 20, 0, 0, time.UTC)
	batch.CompletedAt = &completedAt

	mock.ExpectExec("UPDATE auto_plan_batches SET").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewBatchStore(mock)
	require.NoError(t, store.Update(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBatchMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE auto_plan_batches SET").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewBatchStore(mock)
	err = store.Update(context.Background(), runningBatch())
	assert.ErrorIs(t, err, ErrBatchNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarshalNullable(t *testing.T) {
	data, err := marshalNullable((*models.TrendData)(nil))
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalNullable([]string(nil))
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = marshalNullable([]string{"entry"})
	require.NoError(t, err)
	assert.JSONEq(t, `["entry"]`, string(data))
}
