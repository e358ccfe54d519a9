package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestWorker(store OutboxStore, d Deliverer, cfg WorkerConfig) *Worker {
	w := NewWorker(store, d, cfg, nil)
	w.now = func() time.Time { return fixedNow }
	return w
}

func event(id string, attempts int) domain.OutboxEvent {
	return domain.OutboxEvent{
		ID:        id,
		BookingID: "bk-" + id,
		Type:      domain.EventBookingAcceptance,
		Status:    domain.OutboxProcessing,
		Attempts:  attempts,
	}
}

func TestBackoff(t *testing.T) {
	base := 5 * time.Second

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{6, 160 * time.Second},
		{12, time.Hour},
		{100, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(base, tt.attempts), "attempts=%d", tt.attempts)
	}
}

func TestWorker_ProcessBatch_MarksSuccessesSent(t *testing.T) {
	store := newMemOutbox(event("1", 0), event("2", 0))
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, mock.Anything).Return(nil)

	w := newTestWorker(store, d, WorkerConfig{BatchSize: 10})
	n, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"1", "2"}, store.sent)
	assert.Empty(t, store.retries)
	d.AssertNumberOfCalls(t, "Deliver", 2)
}

func TestWorker_ProcessBatch_RetriesWithBackoff(t *testing.T) {
	store := newMemOutbox(event("1", 0), event("2", 2))
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(ev domain.OutboxEvent) bool { return ev.ID == "1" })).Return(nil)
	d.On("Deliver", mock.Anything, mock.MatchedBy(func(ev domain.OutboxEvent) bool { return ev.ID == "2" })).
		Return(errors.New("smtp down"))

	w := newTestWorker(store, d, WorkerConfig{BatchSize: 10, MaxAttempts: 5, BaseBackoff: time.Second})
	_, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, store.sent)
	require.Len(t, store.retries, 1)
	r := store.retries[0]
	assert.Equal(t, "2", r.id)
	assert.Equal(t, 3, r.attempts)
	assert.Equal(t, fixedNow.Add(4*time.Second), r.next)
	assert.Equal(t, "smtp down", r.lastErr)
}

func TestWorker_ProcessBatch_DeadAfterMaxAttempts(t *testing.T) {
	store := newMemOutbox(event("1", 4))
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, mock.Anything).Return(errors.New("still down"))

	w := newTestWorker(store, d, WorkerConfig{MaxAttempts: 5})
	_, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 5, store.dead["1"])
	assert.Empty(t, store.retries)
	assert.Empty(t, store.sent)
}

func TestWorker_ProcessBatch_ReleasesStaleClaims(t *testing.T) {
	store := newMemOutbox()
	w := newTestWorker(store, new(MockDeliverer), WorkerConfig{StaleAfter: 5 * time.Minute})

	n, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	require.Len(t, store.released, 1)
	assert.Equal(t, fixedNow.Add(-5*time.Minute), store.released[0])
}

func TestWorker_ProcessBatch_FetchError(t *testing.T) {
	store := newMemOutbox()
	store.fetchErr = errors.New("db down")
	w := newTestWorker(store, new(MockDeliverer), WorkerConfig{})

	_, err := w.ProcessBatch(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestWorker_ProcessBatch_PerSendTimeout(t *testing.T) {
	store := newMemOutbox(event("1", 0))
	d := new(MockDeliverer)
	d.On("Deliver", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), mock.Anything).Return(nil).Once()

	w := newTestWorker(store, d, WorkerConfig{SendTimeout: time.Second})
	_, err := w.ProcessBatch(context.Background())

	require.NoError(t, err)
	d.AssertExpectations(t)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := newMemOutbox(event("1", 0))
	d := new(MockDeliverer)
	d.On("Deliver", mock.Anything, mock.Anything).Return(nil)

	w := newTestWorker(store, d, WorkerConfig{PollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
