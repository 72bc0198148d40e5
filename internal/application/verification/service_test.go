package verification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/nexus-wa-bridge/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSession struct{ mock.Mock }

func (m *mockSession) State() domain.ConnectionState {
	return m.Called().Get(0).(domain.ConnectionState)
}

func (m *mockSession) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// countingSession answers from a fixed set and remembers every query in order.
type countingSession struct {
	mu       sync.Mutex
	accounts map[string]bool
	queries  []string
	block    chan struct{}
	entered  chan struct{} // closed on the first query
	once     sync.Once
}

func (s *countingSession) State() domain.ConnectionState { return domain.StateConnected }

func (s *countingSession) Exists(ctx context.Context, id string) (bool, error) {
	if s.entered != nil {
		s.once.Do(func() { close(s.entered) })
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, id)
	return s.accounts[id], nil
}

func (s *countingSession) queried() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// --- helpers ---

func newTestService(sess Session) *service {
	svc := NewService(sess, Options{QueryTimeout: time.Second}, logging.Discard()).(*service)
	svc.pause = func(context.Context, time.Duration) error { return nil }
	return svc
}

// --- tests ---

func TestVerify_RejectsWhenNotConnected(t *testing.T) {
	for _, st := range []domain.ConnectionState{domain.StateDisconnected, domain.StateQRPending} {
		sess := new(mockSession)
		sess.On("State").Return(st)

		_, err := newTestService(sess).Verify(context.Background(), []string{"(11) 91234-5678"})

		assert.ErrorIs(t, err, domain.ErrSessionNotReady)
		sess.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	}
}

func TestVerify_ReturnsOriginalStrings(t *testing.T) {
	sess := new(mockSession)
	sess.On("State").Return(domain.StateConnected)
	// First candidate misses, second (without the mobile 9) hits.
	sess.On("Exists", mock.Anything, "5511912345678").Return(false, nil)
	sess.On("Exists", mock.Anything, "551112345678").Return(true, nil)
	// Ten digit number: found only with the 9 inserted.
	sess.On("Exists", mock.Anything, "551133334444").Return(false, nil)
	sess.On("Exists", mock.Anything, "5511933334444").Return(true, nil)
	// Unknown number.
	sess.On("Exists", mock.Anything, "5521988887777").Return(false, nil)
	sess.On("Exists", mock.Anything, "552188887777").Return(false, nil)

	input := []string{"(11) 91234-5678", "11 3333-4444", "21 98888-7777"}
	res, err := newTestService(sess).Verify(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, []string{"(11) 91234-5678", "11 3333-4444"}, res.ValidNumbers)
	assert.NotEmpty(t, res.BatchID)
	sess.AssertExpectations(t)
}

func TestVerify_StopsAtFirstExistingCandidate(t *testing.T) {
	sess := &countingSession{accounts: map[string]bool{"5511987654321": true, "551187654321": true}}

	res, err := newTestService(sess).Verify(context.Background(), []string{"5511987654321"})

	require.NoError(t, err)
	assert.Equal(t, []string{"5511987654321"}, res.ValidNumbers)
	assert.Equal(t, []string{"5511987654321"}, sess.queried())
}

func TestVerify_QueryFailureFallsThroughToNextCandidate(t *testing.T) {
	sess := new(mockSession)
	sess.On("State").Return(domain.StateConnected)
	sess.On("Exists", mock.Anything, "5511912345678").Return(false, errors.New("iq timed out"))
	sess.On("Exists", mock.Anything, "551112345678").Return(true, nil)
	sess.On("Exists", mock.Anything, "5511999990000").Return(false, errors.New("websocket closed"))
	sess.On("Exists", mock.Anything, "551199990000").Return(false, errors.New("websocket closed"))

	res, err := newTestService(sess).Verify(context.Background(), []string{"11912345678", "11999990000"})

	require.NoError(t, err)
	assert.Equal(t, []string{"11912345678"}, res.ValidNumbers)
}

func TestVerify_QueryTimeoutCountsAsMiss(t *testing.T) {
	sess := &countingSession{block: make(chan struct{}), accounts: map[string]bool{}}
	svc := newTestService(sess)
	svc.opts.QueryTimeout = 10 * time.Millisecond

	res, err := svc.Verify(context.Background(), []string{"11912345678"})

	require.NoError(t, err)
	assert.Empty(t, res.ValidNumbers)
}

func TestVerify_PausesAfterEveryFifthEntry(t *testing.T) {
	accounts := map[string]bool{}
	input := make([]string, 12)
	for i := range input {
		input[i] = fmt.Sprintf("1130000%03d", i) // ten digits: first candidate hits
		accounts["55"+input[i]] = true
	}
	sess := &countingSession{accounts: accounts}
	svc := newTestService(sess)

	var completedAtPause []int
	svc.pause = func(_ context.Context, d time.Duration) error {
		assert.Equal(t, 300*time.Millisecond, d)
		completedAtPause = append(completedAtPause, len(sess.queried()))
		return nil
	}

	res, err := svc.Verify(context.Background(), input)

	require.NoError(t, err)
	assert.Len(t, res.ValidNumbers, 12)
	// Pauses follow the entries at index 5 and 10.
	assert.Equal(t, []int{6, 11}, completedAtPause)
}

func TestVerify_DuplicatesAppearOnce(t *testing.T) {
	sess := &countingSession{accounts: map[string]bool{"5511912345678": true}}

	res, err := newTestService(sess).Verify(context.Background(), []string{"11912345678", "11912345678", "(11) 91234-5678"})

	require.NoError(t, err)
	assert.Equal(t, []string{"11912345678", "(11) 91234-5678"}, res.ValidNumbers)
	assert.Len(t, sess.queried(), 2)
}

func TestVerify_OutputIsSubsetOfInput(t *testing.T) {
	sess := &countingSession{accounts: map[string]bool{
		"5511912345678": true, "551133334444": true, "5521988887777": true,
	}}
	input := []string{"11 91234 5678", "abc", "", "1133334444", "+55 21 98888-7777", "999"}

	res, err := newTestService(sess).Verify(context.Background(), input)

	require.NoError(t, err)
	assert.Subset(t, input, res.ValidNumbers)
	assert.Len(t, res.ValidNumbers, 3)
}

func TestVerify_RejectsOversizedBatch(t *testing.T) {
	sess := new(mockSession)
	sess.On("State").Return(domain.StateConnected)
	svc := newTestService(sess)
	svc.opts.MaxBatch = 2

	_, err := svc.Verify(context.Background(), []string{"1", "2", "3"})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	sess.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
}

func TestVerify_RejectsConcurrentBatch(t *testing.T) {
	sess := &countingSession{block: make(chan struct{}), entered: make(chan struct{}), accounts: map[string]bool{}}
	svc := newTestService(sess)
	svc.opts.QueryTimeout = 5 * time.Second

	done := make(chan error, 1)
	go func() {
		_, err := svc.Verify(context.Background(), []string{"11912345678"})
		done <- err
	}()
	select {
	case <-sess.entered:
	case <-time.After(time.Second):
		t.Fatal("first batch never queried")
	}

	_, err := svc.Verify(context.Background(), []string{"11912345678"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	close(sess.block)
	require.NoError(t, <-done)
}

func TestVerify_CancelledContextAbortsBatch(t *testing.T) {
	sess := &countingSession{accounts: map[string]bool{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(sess).Verify(ctx, []string{"11912345678"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sess.queried())
}

func TestVerify_SessionDroppedMidBatchFailsWholeBatch(t *testing.T) {
	sess := new(mockSession)
	sess.On("State").Return(domain.StateConnected)
	sess.On("Exists", mock.Anything, "5511912345678").Return(true, nil).Once()
	sess.On("Exists", mock.Anything, mock.Anything).
		Return(false, fmt.Errorf("exists: %w", domain.ErrSessionNotReady))

	res, err := newTestService(sess).Verify(context.Background(),
		[]string{"11912345678", "21988887777", "31977776666"})

	assert.ErrorIs(t, err, domain.ErrSessionNotReady)
	assert.Nil(t, res, "no partial result when the session is gone")
	// The batch stops at the first candidate of the second entry.
	sess.AssertNumberOfCalls(t, "Exists", 2)
}

func TestVerify_BatchTimeoutAbortsBatch(t *testing.T) {
	sess := &countingSession{block: make(chan struct{}), accounts: map[string]bool{}}
	svc := newTestService(sess)
	svc.opts.BatchTimeout = 20 * time.Millisecond

	res, err := svc.Verify(context.Background(), []string{"11912345678", "11988887777"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, res)
}
