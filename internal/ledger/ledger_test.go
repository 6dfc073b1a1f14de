package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"healthguard/internal/models"
	"healthguard/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockIntakeBackend is a mock implementation of IntakeBackend
type MockIntakeBackend struct {
	mock.Mock
}

func (m *MockIntakeBackend) GetIntakesForDate(ctx context.Context, patientID int64, day time.Time) ([]models.RemoteIntake, error) {
	args := m.Called(patientID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RemoteIntake), args.Error(1)
}

func (m *MockIntakeBackend) UpdateIntakeStatus(ctx context.Context, intakeID int64, status models.IntakeStatus) error {
	return m.Called(intakeID, status).Error(0)
}

// failingKV fails every call.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, error) { return "", errors.New("disk full") }
func (failingKV) Set(context.Context, string, string, time.Duration) error {
	return errors.New("disk full")
}
func (failingKV) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errors.New("disk full")
}

// memKV is an in-memory KV.
type memKV struct {
	mu sync.Mutex
	m  map[string]string
}

func (k *memKV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.m[key]
	if !ok {
		return "", store.ErrMiss
	}
	return v, nil
}

func (k *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = value
	return nil
}

func (k *memKV) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if _, err := k.Get(ctx, key); err == nil {
		return false, nil
	}
	return true, k.Set(ctx, key, value, ttl)
}

var day = time.Date(2024, 5, 1, 8, 2, 0, 0, time.UTC)

func aspirin() models.Medication {
	return models.Medication{ID: 3, Name: "Aspirin", FrequencyHours: 12, StartTime: "08:00"}
}

func TestKey(t *testing.T) {
	l := New(&memKV{m: map[string]string{}}, nil, 1, "", 0, zap.NewNop())
	assert.Equal(t, "intake:2024-05-01_3_08:00", l.Key(day, 3, "08:00"))
}

func TestMarkTaken_ReconcilesPending(t *testing.T) {
	kv := &memKV{m: map[string]string{}}
	be := new(MockIntakeBackend)
	be.On("GetIntakesForDate", int64(7), day).Return([]models.RemoteIntake{
		{ID: 1, MedicationName: "Aspirin", ScheduledAt: "2024-05-01T20:00:00", Status: models.IntakePending},
		{ID: 2, MedicationName: "Other", ScheduledAt: "2024-05-01T08:00:00", Status: models.IntakePending},
		{ID: 3, MedicationName: "Aspirin", ScheduledAt: "2024-05-01T08:00:00", Status: models.IntakePending},
	}, nil)
	be.On("UpdateIntakeStatus", int64(3), models.IntakeTaken).Return(nil)

	l := New(kv, be, 7, "", time.Second, zap.NewNop())
	require.NoError(t, l.MarkTaken(context.Background(), aspirin(), "08:00", day))
	assert.True(t, l.IsTaken(context.Background(), 3, "08:00", day))

	l.Wait()
	be.AssertExpectations(t)
	be.AssertNumberOfCalls(t, "UpdateIntakeStatus", 1)
}

func TestMarkTaken_SkipsNonPending(t *testing.T) {
	kv := &memKV{m: map[string]string{}}
	be := new(MockIntakeBackend)
	be.On("GetIntakesForDate", int64(7), day).Return([]models.RemoteIntake{
		{ID: 3, MedicationName: "Aspirin", ScheduledAt: "2024-05-01T08:00:00", Status: models.IntakeTaken},
		{ID: 4, MedicationName: "Aspirin", ScheduledAt: "2024-05-01T08:00:00", Status: models.IntakeOmitted},
	}, nil)

	l := New(kv, be, 7, "", time.Second, zap.NewNop())
	require.NoError(t, l.MarkTaken(context.Background(), aspirin(), "08:00", day))
	l.Wait()

	be.AssertNotCalled(t, "UpdateIntakeStatus", mock.Anything, mock.Anything)
}

func TestMarkTaken_BackendFailureKeepsLocalFlag(t *testing.T) {
	kv := &memKV{m: map[string]string{}}
	be := new(MockIntakeBackend)
	be.On("GetIntakesForDate", int64(7), day).Return(nil, errors.New("offline"))

	l := New(kv, be, 7, "", time.Second, zap.NewNop())
	require.NoError(t, l.MarkTaken(context.Background(), aspirin(), "08:00", day))
	l.Wait()

	assert.True(t, l.IsTaken(context.Background(), 3, "08:00", day))
	be.AssertNotCalled(t, "UpdateIntakeStatus", mock.Anything, mock.Anything)
}

func TestMarkTaken_LocalFailure(t *testing.T) {
	be := new(MockIntakeBackend)
	l := New(failingKV{}, be, 7, "", time.Second, zap.NewNop())

	err := l.MarkTaken(context.Background(), aspirin(), "08:00", day)
	require.Error(t, err)
	l.Wait()
	be.AssertNotCalled(t, "GetIntakesForDate", mock.Anything, mock.Anything)
}

func TestIsTaken(t *testing.T) {
	kv := &memKV{m: map[string]string{}}
	l := New(kv, nil, 7, "", time.Second, zap.NewNop())
	ctx := context.Background()

	assert.False(t, l.IsTaken(ctx, 3, "08:00", day))

	require.NoError(t, kv.Set(ctx, l.Key(day, 3, "08:00"), "true", 0))
	assert.True(t, l.IsTaken(ctx, 3, "08:00", day))
	assert.False(t, l.IsTaken(ctx, 3, "20:00", day))
	assert.False(t, l.IsTaken(ctx, 3, "08:00", day.AddDate(0, 0, 1)))

	assert.False(t, New(failingKV{}, nil, 7, "", 0, zap.NewNop()).IsTaken(ctx, 3, "08:00", day))
}

func TestLedger_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	be := new(MockIntakeBackend)
	be.On("GetIntakesForDate", int64(7), day).Return([]models.RemoteIntake{}, nil)

	l := New(store.NewRedisKV(client), be, 7, "hg:intake:", time.Second, zap.NewNop())
	require.NoError(t, l.MarkTaken(context.Background(), aspirin(), "20:00", day))
	l.Wait()

	v, err := mr.Get("hg:intake:2024-05-01_3_20:00")
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.Equal(t, time.Duration(0), mr.TTL("hg:intake:2024-05-01_3_20:00"))
}
