package alarmclock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	commonredis "healthguard/common/redis"
	"healthguard/internal/alarm"
	"healthguard/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDueSource struct {
	mu      sync.Mutex
	alarms  map[int64]ScheduledAlarm
	dueErr  error
	deleted []int64
}

func newFakeDueSource(alarms ...ScheduledAlarm) *fakeDueSource {
	f := &fakeDueSource{alarms: make(map[int64]ScheduledAlarm)}
	for _, a := range alarms {
		f.alarms[a.Trigger.ID] = a
	}
	return f
}

func (f *fakeDueSource) Due(_ context.Context, now time.Time, limit int) ([]ScheduledAlarm, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var out []ScheduledAlarm
	for _, a := range f.alarms {
		if !a.Trigger.FireAt.After(now) && len(out) < limit {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeDueSource) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.alarms, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestDispatchDue_PublishesAndRemoves(t *testing.T) {
	client, _ := newTestRedis(t)
	now := time.Date(2024, 5, 1, 16, 0, 5, 0, time.UTC)

	due := ScheduledAlarm{
		Trigger: alarm.Trigger{
			ID:      30001,
			FireAt:  time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC),
			Payload: models.AlarmPayload{MedicationID: 3, Name: "Ibuprofen", Slot: "16:00", Kind: models.AlarmMedication},
		},
		Exact: true,
	}
	later := ScheduledAlarm{Trigger: alarm.Trigger{ID: 30002, FireAt: now.Add(time.Hour)}}
	src := newFakeDueSource(due, later)

	d := NewDispatcher(src, client, "alarms:fired", time.Second, zap.NewNop())
	d.now = func() time.Time { return now }

	n, err := d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{30001}, src.deleted)

	ctx := context.Background()
	require.NoError(t, commonredis.CreateConsumerGroup(ctx, client, "alarms:fired", "g"))
	msgs, err := commonredis.ReadFromStream(ctx, client, "alarms:fired", "g", "c", 10, -1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var fired models.FiredAlarm
	require.NoError(t, commonredis.DecodeJSON(msgs[0], &fired))
	assert.NotEmpty(t, fired.EventID)
	assert.Equal(t, int64(30001), fired.TriggerID)
	assert.True(t, fired.Exact)
	assert.Equal(t, "16:00", fired.Payload.Slot)
	assert.True(t, now.Equal(fired.FiredAt))
}

func TestDispatchDue_PublishFailureKeepsTrigger(t *testing.T) {
	client, mr := newTestRedis(t)
	mr.Close()

	src := newFakeDueSource(ScheduledAlarm{Trigger: alarm.Trigger{ID: 1, FireAt: time.Now().Add(-time.Minute)}})
	d := NewDispatcher(src, client, "alarms:fired", time.Second, zap.NewNop())

	n, err := d.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, src.deleted)
}

func TestDispatchDue_SourceError(t *testing.T) {
	client, _ := newTestRedis(t)
	src := newFakeDueSource()
	src.dueErr = errors.New("db down")

	d := NewDispatcher(src, client, "alarms:fired", time.Second, zap.NewNop())
	_, err := d.DispatchDue(context.Background())
	assert.Error(t, err)
}

func TestDispatcher_StartStopsOnCancel(t *testing.T) {
	client, _ := newTestRedis(t)
	d := NewDispatcher(newFakeDueSource(), client, "alarms:fired", 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
