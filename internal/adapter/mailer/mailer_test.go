package mailer

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type MockEmailLookup struct{ mock.Mock }

func (m *MockEmailLookup) GetEmailByID(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type recordingDialer struct {
	mu      sync.Mutex
	sent    []*gomail.Message
	err     error
	release chan struct{}
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	if d.release != nil {
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, m...)
	return d.err
}

func (d *recordingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func newTestNotifier(users EmailLookup, d dialer) *OwnerNotifier {
	return &OwnerNotifier{from: "noreply@wanderlust.test", dialer: d, users: users, timeout: time.Second, logger: logger.NewNop()}
}

func TestNewOwnerNotifier_IncompleteConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SMTPConfig
	}{
		{"missing host", SMTPConfig{Port: 587, From: "a@b.c"}},
		{"missing from", SMTPConfig{Host: "smtp.example.com", Port: 587}},
		{"missing port", SMTPConfig{Host: "smtp.example.com", From: "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOwnerNotifier(tt.cfg, new(MockEmailLookup), logger.NewNop())
			assert.ErrorIs(t, err, ErrIncompleteConfig)
		})
	}

	n, err := NewOwnerNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "a@b.c"}, new(MockEmailLookup), logger.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestSend(t *testing.T) {
	listing := &domain.Listing{ID: "listing-1", Title: "Loft", Location: "Paris", OwnerID: "user-1"}

	t.Run("SendsToOwner", func(t *testing.T) {
		users := new(MockEmailLookup)
		d := &recordingDialer{}
		users.On("GetEmailByID", mock.Anything, "user-1").Return("alice@example.com", nil).Once()

		require.NoError(t, newTestNotifier(users, d).send(context.Background(), listing))

		require.Len(t, d.sent, 1)
		assert.Equal(t, []string{"alice@example.com"}, d.sent[0].GetHeader("To"))
		assert.Equal(t, []string{`Your listing "Loft" is live`}, d.sent[0].GetHeader("Subject"))
		var buf bytes.Buffer
		_, err := d.sent[0].WriteTo(&buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "listing-1")
	})

	t.Run("NoEmailSkips", func(t *testing.T) {
		users := new(MockEmailLookup)
		d := &recordingDialer{}
		users.On("GetEmailByID", mock.Anything, "user-1").Return("", nil).Once()

		require.NoError(t, newTestNotifier(users, d).send(context.Background(), listing))
		assert.Empty(t, d.sent)
	})

	t.Run("LookupError", func(t *testing.T) {
		users := new(MockEmailLookup)
		d := &recordingDialer{}
		users.On("GetEmailByID", mock.Anything, "user-1").Return("", errors.New("user not found")).Once()

		assert.Error(t, newTestNotifier(users, d).send(context.Background(), listing))
		assert.Empty(t, d.sent)
	})

	t.Run("SMTPError", func(t *testing.T) {
		users := new(MockEmailLookup)
		d := &recordingDialer{err: errors.New("connection refused")}
		users.On("GetEmailByID", mock.Anything, "user-1").Return("alice@example.com", nil).Once()

		err := newTestNotifier(users, d).send(context.Background(), listing)
		assert.ErrorContains(t, err, "failed to send email")
	})
}

func TestNotifyListingCreated_DoesNotBlockOnSMTP(t *testing.T) {
	listing := &domain.Listing{ID: "listing-1", Title: "Loft", Location: "Paris", OwnerID: "user-1"}
	users := new(MockEmailLookup)
	users.On("GetEmailByID", mock.Anything, "user-1").Return("alice@example.com", nil).Once()
	d := &recordingDialer{release: make(chan struct{})}
	n := newTestNotifier(users, d)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, n.NotifyListingCreated(ctx, listing))
	cancel()
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, 0, d.count())

	// The request context is gone, yet delivery still completes.
	close(d.release)
	n.Wait()
	assert.Equal(t, 1, d.count())
}

func TestSend_GivesUpAtDeadline(t *testing.T) {
	listing := &domain.Listing{ID: "listing-1", Title: "Loft", OwnerID: "user-1"}
	users := new(MockEmailLookup)
	users.On("GetEmailByID", mock.Anything, "user-1").Return("alice@example.com", nil).Once()
	d := &recordingDialer{release: make(chan struct{})}
	defer close(d.release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := newTestNotifier(users, d).send(ctx, listing)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
