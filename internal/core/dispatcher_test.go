package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMailer records every send with its timestamp and fails the indexes
// it is told to fail
type fakeMailer struct {
	mu      sync.Mutex
	calls   []fakeCall
	failAt  map[int]error
	delayAt map[int]time.Duration
}

type fakeCall struct {
	to   string
	at   time.Time
	body string
}

func (m *fakeMailer) Send(ctx context.Context, msg *OutboundMessage) error {
	m.mu.Lock()
	idx := len(m.calls)
	m.calls = append(m.calls, fakeCall{to: msg.To, at: time.Now(), body: msg.Body})
	m.mu.Unlock()

	if delay, ok := m.delayAt[idx]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err, ok := m.failAt[idx]; ok {
		return err
	}
	return nil
}

// fakeHistory accumulates recorded events
type fakeHistory struct {
	mu     sync.Mutex
	events []SendEvent
	err    error
}

func (h *fakeHistory) RecordSend(ctx context.Context, event *SendEvent) error {
	if h.err != nil {
		return h.err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, *event)
	return nil
}

func (h *fakeHistory) ListSends(ctx context.Context, email string) ([]SendEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []SendEvent
	for _, e := range h.events {
		if email == "" || e.RecipientEmail == email {
			out = append(out, e)
		}
	}
	return out, nil
}

// plainRenderer renders a minimal message without templates
var plainRenderer = RenderFunc(func(contact *Contact, sender Sender) (*OutboundMessage, error) {
	return &OutboundMessage{
		To:      contact.Email,
		Subject: "hello",
		Body:    "hello " + contact.DisplayName(),
		Sender:  sender,
	}, nil
})

func testContacts(emails ...string) []Contact {
	contacts := make([]Contact, len(emails))
	for i, email := range emails {
		contacts[i] = Contact{FullName: "c", Email: email, Status: StatusNew}
	}
	return contacts
}

func newTestDispatcher(mailer Mailer, history SendHistory, interval time.Duration) *Dispatcher {
	return NewDispatcher(mailer, history, plainRenderer, zap.NewNop(), interval, time.Second)
}

func TestDispatchBulk_PartialFailure(t *testing.T) {
	mailer := &fakeMailer{failAt: map[int]error{2: errors.New("mailbox full")}}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	contacts := testContacts("a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com")
	result, err := d.DispatchBulk(context.Background(), contacts, Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 5, result.Attempted)
	assert.Equal(t, 4, result.Sent)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[2], "mailbox full")

	// Every record was still attempted, in order
	require.Len(t, mailer.calls, 5)
	assert.Equal(t, "c@x.com", mailer.calls[2].to)
	assert.Equal(t, "e@x.com", mailer.calls[4].to)
}

func TestDispatchBulk_SkipsRecordsWithoutEmail(t *testing.T) {
	mailer := &fakeMailer{}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	contacts := []Contact{
		{FullName: "a", Email: "a@x.com"},
		{FullName: "phone only", Phone: "555-0100"},
		{FullName: "b", Email: "b@x.com"},
	}
	result, err := d.DispatchBulk(context.Background(), contacts, Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	require.Len(t, mailer.calls, 2)
}

func TestDispatchBulk_EnforcesMinimumSpacing(t *testing.T) {
	interval := 30 * time.Millisecond
	mailer := &fakeMailer{}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, interval)

	_, err := d.DispatchBulk(context.Background(), testContacts("a@x.com", "b@x.com", "c@x.com"), Sender{}, nil)
	require.NoError(t, err)

	require.Len(t, mailer.calls, 3)
	for i := 1; i < len(mailer.calls); i++ {
		gap := mailer.calls[i].at.Sub(mailer.calls[i-1].at)
		assert.GreaterOrEqual(t, gap, interval-time.Millisecond, "gap between send %d and %d", i-1, i)
	}
}

func TestDispatchBulk_ReportsProgressAfterEveryAttempt(t *testing.T) {
	mailer := &fakeMailer{failAt: map[int]error{1: errors.New("bounce")}}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	var progress [][2]int
	_, err := d.DispatchBulk(context.Background(), testContacts("a@x.com", "b@x.com", "c@x.com"), Sender{},
		func(sent, total int) {
			progress = append(progress, [2]int{sent, total})
		})

	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
}

func TestDispatchBulk_ProgressPanicDoesNotAbortRun(t *testing.T) {
	mailer := &fakeMailer{}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	result, err := d.DispatchBulk(context.Background(), testContacts("a@x.com", "b@x.com"), Sender{},
		func(sent, total int) {
			panic("presentation layer bug")
		})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
}

func TestDispatchBulk_RecordsHistoryForEveryAttempt(t *testing.T) {
	mailer := &fakeMailer{failAt: map[int]error{0: errors.New("bounce")}}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	_, err := d.DispatchBulk(context.Background(), testContacts("a@x.com", "b@x.com"), Sender{}, nil)
	require.NoError(t, err)

	require.Len(t, history.events, 2)
	assert.False(t, history.events[0].Succeeded)
	assert.Contains(t, history.events[0].ErrorReason, "bounce")
	assert.True(t, history.events[1].Succeeded)
	assert.Empty(t, history.events[1].ErrorReason)
}

func TestDispatchBulk_HistoryFailureDoesNotFailItem(t *testing.T) {
	mailer := &fakeMailer{}
	history := &fakeHistory{err: errors.New("history db down")}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	result, err := d.DispatchBulk(context.Background(), testContacts("a@x.com"), Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 0, result.Failed)
}

func TestDispatchBulk_CancellationKeepsPartialResult(t *testing.T) {
	mailer := &fakeMailer{}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	result, err := d.DispatchBulk(ctx, testContacts("a@x.com", "b@x.com", "c@x.com"), Sender{},
		func(sent, total int) {
			if sent == 1 {
				cancel()
			}
		})

	require.ErrorIs(t, err, ErrCancelled)
	assert.True(t, result.Cancelled)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, 1, result.Attempted)
	require.Len(t, mailer.calls, 1)
}

func TestDispatchBulk_TimeoutIsPerItemFailure(t *testing.T) {
	mailer := &fakeMailer{delayAt: map[int]time.Duration{0: 200 * time.Millisecond}}
	history := &fakeHistory{}
	d := NewDispatcher(mailer, history, plainRenderer, zap.NewNop(), time.Millisecond, 20*time.Millisecond)

	result, err := d.DispatchBulk(context.Background(), testContacts("slow@x.com", "fast@x.com"), Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Errors[0], "context deadline exceeded")
}

func TestDispatchBulk_EmptyInput(t *testing.T) {
	mailer := &fakeMailer{}
	history := &fakeHistory{}
	d := newTestDispatcher(mailer, history, time.Millisecond)

	result, err := d.DispatchBulk(context.Background(), nil, Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Attempted)
	assert.NotEmpty(t, result.RunID)
}
