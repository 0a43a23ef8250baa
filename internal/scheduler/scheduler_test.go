package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySpec(t *testing.T) {
	spec, err := dailySpec("07:30")
	require.NoError(t, err)
	assert.Equal(t, "0 30 7 * * *", spec)

	spec, err = dailySpec("00:00")
	require.NoError(t, err)
	assert.Equal(t, "0 0 0 * * *", spec)
}

func TestDailySpecRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "7", "24:00", "07:60", "seven:30", "07:30:00"} {
		_, err := dailySpec(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestScheduleDailyBadTime(t *testing.T) {
	s := New(time.UTC)
	_, err := s.ScheduleDaily("25:00", func() {})
	assert.Error(t, err)
}

func TestScheduleEveryMinimumInterval(t *testing.T) {
	s := New(time.UTC)
	_, err := s.ScheduleEvery(100*time.Millisecond, func() {})
	assert.Error(t, err)
}

func TestScheduleEveryRuns(t *testing.T) {
	s := New(time.UTC)
	var calls atomic.Int32
	_, err := s.ScheduleEvery(time.Second, func() { calls.Add(1) })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	deadline := time.After(3 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("job never ran")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
