package services

import (
	"testing"
	"time"

	"cmms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusTransition_RecordsDuration(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	wo := &models.WorkOrder{Status: models.WorkOrderOpen}

	changed, err := ApplyStatusTransition(wo, models.WorkOrderInProgress, start)
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, wo.ActualStartTime)
	assert.Equal(t, start, *wo.ActualStartTime)

	changed, err = ApplyStatusTransition(wo, models.WorkOrderCompleted, start.Add(47*time.Minute))
	require.NoError(t, err)
	assert.True(t, changed)
	require.NotNil(t, wo.ActualDuration)
	assert.Equal(t, 47, *wo.ActualDuration)
	assert.Equal(t, models.WorkOrderCompleted, wo.Status)
}

func TestApplyStatusTransition_SameStatusIsNoop(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	wo := &models.WorkOrder{Status: models.WorkOrderInProgress, ActualStartTime: &start}

	changed, err := ApplyStatusTransition(wo, models.WorkOrderInProgress, start.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, start, *wo.ActualStartTime)
}

func TestApplyStatusTransition_CompleteFromOpen(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	wo := &models.WorkOrder{Status: models.WorkOrderOpen}

	changed, err := ApplyStatusTransition(wo, models.WorkOrderCompleted, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, now, *wo.ActualEndTime)
	assert.Nil(t, wo.ActualDuration)
}

func TestApplyStatusTransition_Rejected(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		from   string
		target string
		err    error
	}{
		{"unknown status", models.WorkOrderOpen, "paused", ErrInvalidStatus},
		{"reopen completed", models.WorkOrderCompleted, models.WorkOrderOpen, ErrInvalidTransition},
		{"restart completed", models.WorkOrderCompleted, models.WorkOrderInProgress, ErrInvalidTransition},
		{"revive cancelled", models.WorkOrderCancelled, models.WorkOrderInProgress, ErrInvalidTransition},
		{"complete cancelled", models.WorkOrderCancelled, models.WorkOrderCompleted, ErrInvalidTransition},
		{"back to open", models.WorkOrderInProgress, models.WorkOrderOpen, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wo := &models.WorkOrder{Status: tt.from}
			changed, err := ApplyStatusTransition(wo, tt.target, now)
			assert.ErrorIs(t, err, tt.err)
			assert.False(t, changed)
			assert.Equal(t, tt.from, wo.Status)
		})
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.WorkOrderOpen, models.WorkOrderCancelled))
	assert.True(t, CanTransition(models.WorkOrderInProgress, models.WorkOrderCompleted))
	assert.False(t, CanTransition(models.WorkOrderCancelled, models.WorkOrderOpen))
	assert.False(t, CanTransition("unknown", models.WorkOrderOpen))
}
