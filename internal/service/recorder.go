package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"authcore/internal/logger"
	"authcore/internal/model"
	"authcore/internal/repository"
)

const (
	eventBatchSize     = 10
	eventBufferSize    = 100
	touchBufferSize    = 256
	recorderFlushEvery = time.Second
)

// Recorder writes auth events and token last-used times off the request path.
// Events are never dropped: when the buffer is full they are written synchronously.
// Last-used touches are best effort and dropped when the buffer is full.
type Recorder struct {
	events repository.EventRepository
	tokens repository.TokenRepository
	log    *logger.Logger
	now    func() time.Time

	eventCh chan model.AuthEvent
	touchCh chan touch

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type touch struct {
	id uuid.UUID
	at time.Time
}

// NewRecorder starts the background workers. Call Close to flush and stop them.
func NewRecorder(events repository.EventRepository, tokens repository.TokenRepository, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	r := &Recorder{
		events:  events,
		tokens:  tokens,
		log:     log,
		now:     time.Now,
		eventCh: make(chan model.AuthEvent, eventBufferSize),
		touchCh: make(chan touch, touchBufferSize),
	}
	r.wg.Add(2)
	go r.eventWorker()
	go r.touchWorker()
	return r
}

// Record queues an auth event.
func (r *Recorder) Record(ctx context.Context, event model.AuthEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.closed {
		select {
		case r.eventCh <- event:
			return
		default:
		}
	}
	// Channel full or closed, write synchronously as fallback
	if err := r.events.Create(context.WithoutCancel(ctx), &event); err != nil {
		r.log.Warn("record auth event", "event", event.Event, "error", err)
	}
}

// Touch queues a last-used update for a token.
func (r *Recorder) Touch(tokenID uuid.UUID) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.touchCh <- touch{id: tokenID, at: r.now()}:
	default:
	}
}

// Close flushes pending work and stops the workers. It is safe to call more than once.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.eventCh)
	close(r.touchCh)
	r.mu.Unlock()
	r.wg.Wait()
}

// eventWorker processes auth events asynchronously.
func (r *Recorder) eventWorker() {
	defer r.wg.Done()
	ctx := context.Background()
	batch := make([]model.AuthEvent, 0, eventBatchSize)
	ticker := time.NewTicker(recorderFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.events.CreateBatch(ctx, batch); err != nil {
			r.log.Warn("flush auth events", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-r.eventCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= eventBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// touchWorker coalesces last-used updates per flush.
func (r *Recorder) touchWorker() {
	defer r.wg.Done()
	ctx := context.Background()
	pending := make(map[uuid.UUID]time.Time)
	ticker := time.NewTicker(recorderFlushEvery)
	defer ticker.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		var latest time.Time
		ids := make([]uuid.UUID, 0, len(pending))
		for id, at := range pending {
			ids = append(ids, id)
			if at.After(latest) {
				latest = at
			}
		}
		if err := r.tokens.TouchLastUsed(ctx, ids, latest); err != nil {
			r.log.Warn("update token last used", "count", len(ids), "error", err)
		}
		pending = make(map[uuid.UUID]time.Time)
	}

	for {
		select {
		case t, ok := <-r.touchCh:
			if !ok {
				flush()
				return
			}
			pending[t.id] = t.at
		case <-ticker.C:
			flush()
		}
	}
}

// metadata encodes event details for the JSON metadata column.
func metadata(kv map[string]any) datatypes.JSON {
	if len(kv) == 0 {
		return nil
	}
	b, err := json.Marshal(kv)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, model.AuthEvent) {}
func (nopRecorder) Touch(uuid.UUID)                         {}
