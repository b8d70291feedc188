package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/appointment-service/internal/queue"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Qos(prefetchCount int) error {
	return m.Called(prefetchCount).Error(0)
}

func (m *mockBroker) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	args := m.Called(consumerTag)
	ch, _ := args.Get(0).(chan amqp.Delivery)
	return ch, args.Error(1)
}

func (m *mockBroker) PublishDelayed(ctx context.Context, body []byte, contentType string, delay time.Duration) error {
	return m.Called(ctx, body, contentType, delay).Error(0)
}

// fakeAcknowledger records how deliveries were settled
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
	settled chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{settled: make(chan struct{}, 16)}
}

func (f *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	f.acked = append(f.acked, tag)
	f.mu.Unlock()
	f.settled <- struct{}{}
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	f.mu.Unlock()
	f.settled <- struct{}{}
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func (f *fakeAcknowledger) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.settled:
	case <-time.After(2 * time.Second):
		t.Fatal("delivery was not settled")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(t *testing.T, broker Broker, handler queue.HandlerFunc) (*Worker, *queue.MemoryDeadLetters) {
	t.Helper()
	deadLetters := queue.NewMemoryDeadLetters()
	dispatcher := queue.NewDispatcher(queue.DispatcherConfig{
		DeadLetters: deadLetters,
		Policy: queue.RetryPolicy{
			MaxAttempts:     3,
			InitialInterval: time.Second,
			MaxInterval:     time.Minute,
			Multiplier:      2,
		},
		JobTimeout: time.Second,
		Logger:     discardLogger(),
	})
	require.NoError(t, dispatcher.Registry().Register("CancellationMail", handler))

	w := NewWorker(&Config{
		Logger:      discardLogger(),
		Broker:      broker,
		Dispatcher:  dispatcher,
		Concurrency: 2,
		WorkerID:    "worker-test",
	})
	return w, deadLetters
}

func newDelivery(t *testing.T, ack amqp.Acknowledger, tag uint64, job queue.Job) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(job)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestSettle(t *testing.T) {
	job, err := queue.NewJob("CancellationMail", map[string]string{"id": "a1"}, time.Now())
	require.NoError(t, err)

	tests := []struct {
		name        string
		outcome     queue.Outcome
		publishErr  error
		wantPublish bool
		wantAcked   bool
		wantRequeue bool
	}{
		{
			name:      "success is acked",
			outcome:   queue.Outcome{},
			wantAcked: true,
		},
		{
			name:        "retry is republished then acked",
			outcome:     queue.Outcome{Err: errors.New("smtp down"), Retry: true, RetryIn: 2 * time.Second},
			wantPublish: true,
			wantAcked:   true,
		},
		{
			name:        "retry publish failure requeues",
			outcome:     queue.Outcome{Err: errors.New("smtp down"), Retry: true, RetryIn: 2 * time.Second},
			publishErr:  errors.New("channel closed"),
			wantPublish: true,
			wantRequeue: true,
		},
		{
			name:      "terminal failure is acked",
			outcome:   queue.Outcome{Err: errors.New("bad")},
			wantAcked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker := new(mockBroker)
			if tt.wantPublish {
				broker.On("PublishDelayed", mock.Anything, mock.MatchedBy(func(body []byte) bool {
					var next queue.Job
					return json.Unmarshal(body, &next) == nil && next.ID == job.ID && next.Attempt == 2
				}), queue.ContentTypeJSON, tt.outcome.RetryIn).Return(tt.publishErr).Once()
			}

			w, _ := newTestWorker(t, broker, func(context.Context, queue.Job) error { return nil })
			ack := newFakeAcknowledger()
			msg := &message{job: job, delivery: newDelivery(t, ack, 7, job)}

			w.settle(context.Background(), "worker-test-0", msg, tt.outcome)

			broker.AssertExpectations(t)
			if tt.wantAcked {
				assert.Equal(t, []uint64{7}, ack.acked)
				assert.Empty(t, ack.nacked)
			}
			if tt.wantRequeue {
				assert.Empty(t, ack.acked)
				assert.Equal(t, []uint64{7}, ack.nacked)
				assert.Equal(t, []bool{true}, ack.requeue)
			}
		})
	}
}

func TestDecodeJob(t *testing.T) {
	valid, err := queue.NewJob("CancellationMail", nil, time.Now())
	require.NoError(t, err)
	validBody, err := json.Marshal(valid)
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid job", body: string(validBody)},
		{name: "not json", body: "hello", wantErr: true},
		{name: "missing key", body: `{"id":"7b0c3f5e-8c53-4b43-9a43-2f1d0d0f8a11"}`, wantErr: true},
		{name: "invalid id", body: `{"id":"abc","key":"CancellationMail"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := decodeJob([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, valid.ID, job.ID)
			assert.Equal(t, 1, job.Attempt)
		})
	}
}

func TestWorker_Start(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 4)
	broker := new(mockBroker)
	broker.On("Qos", 2).Return(nil).Once()
	broker.On("Consume", "worker-test").Return(deliveries, nil).Once()

	handled := make(chan string, 4)
	w, deadLetters := newTestWorker(t, broker, func(_ context.Context, job queue.Job) error {
		handled <- job.ID
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- w.Start(ctx) }()

	ack := newFakeAcknowledger()

	job, err := queue.NewJob("CancellationMail", map[string]string{"id": "a1"}, time.Now())
	require.NoError(t, err)
	deliveries <- newDelivery(t, ack, 1, job)
	ack.wait(t)
	assert.Equal(t, job.ID, <-handled)

	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("garbage")}
	ack.wait(t)

	cancel()
	require.NoError(t, <-errChan)
	w.Stop()

	ack.mu.Lock()
	defer ack.mu.Unlock()
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeue)

	letters := deadLetters.List()
	require.Len(t, letters, 1)
	assert.Contains(t, letters[0].Error, "invalid job payload")
	assert.Equal(t, `"garbage"`, string(letters[0].Job.Payload))
	broker.AssertExpectations(t)
}

func TestWorker_StartDeliveriesClosed(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	broker := new(mockBroker)
	broker.On("Qos", 2).Return(nil)
	broker.On("Consume", "worker-test").Return(deliveries, nil)

	w, _ := newTestWorker(t, broker, func(context.Context, queue.Job) error { return nil })
	close(deliveries)

	err := w.Start(context.Background())
	assert.ErrorIs(t, err, ErrDeliveriesClosed)
	w.Stop()
}

func TestWorker_StartQosError(t *testing.T) {
	broker := new(mockBroker)
	broker.On("Qos", 2).Return(errors.New("channel closed"))

	w, _ := newTestWorker(t, broker, func(context.Context, queue.Job) error { return nil })

	err := w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set QoS")
	broker.AssertNotCalled(t, "Consume", mock.Anything)
}
