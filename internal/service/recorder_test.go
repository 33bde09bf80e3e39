package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"authcore/internal/model"
	"authcore/internal/repository"
)

func TestRecorder_FlushesOnClose(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.recorder.Record(ctx, model.AuthEvent{Event: model.EventLoginFailed, Provider: "google"})
		}()
	}
	wg.Wait()

	assert.Len(t, h.eventKinds(t), 100, "ListRecent caps at 100")

	var n int64
	require.NoError(t, h.db.Model(&model.AuthEvent{}).Count(&n).Error)
	assert.Equal(t, int64(250), n)
}

func TestRecorder_AfterClose(t *testing.T) {
	h := newHarness(t)
	h.recorder.Close()
	h.recorder.Close()

	assert.NotPanics(t, func() {
		h.recorder.Touch(uuid.New())
		h.recorder.Record(context.Background(), model.AuthEvent{Event: model.EventLogout})
	})

	kinds := h.eventKinds(t)
	assert.Equal(t, []model.EventKind{model.EventLogout}, kinds)
}

// MockEventRepository is a mock implementation of EventRepository.
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *model.AuthEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) CreateBatch(ctx context.Context, events []model.AuthEvent) error {
	return m.Called(ctx, events).Error(0)
}

func (m *MockEventRepository) ListRecent(ctx context.Context, userID *uuid.UUID, limit int) ([]model.AuthEvent, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]model.AuthEvent), args.Error(1)
}

var _ repository.EventRepository = (*MockEventRepository)(nil)

func TestRecorder_BatchesEvents(t *testing.T) {
	events := new(MockEventRepository)
	var sizes []int
	var mu sync.Mutex
	events.On("CreateBatch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(args.Get(1).([]model.AuthEvent)))
	}).Return(nil)

	r := NewRecorder(events, nil, nil)
	for i := 0; i < 15; i++ {
		r.Record(context.Background(), model.AuthEvent{Event: model.EventTokenCreated})
	}
	r.Close()

	total := 0
	for _, s := range sizes {
		assert.LessOrEqual(t, s, eventBatchSize)
		total += s
	}
	assert.Equal(t, 15, total)
	events.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
