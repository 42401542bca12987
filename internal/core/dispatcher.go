package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrCancelled is returned when a bulk run is aborted between items. The
// partial result accompanying it is still valid.
var ErrCancelled = errors.New("dispatch cancelled")

// ProgressFunc receives the running count of completed attempts and the
// total number of eligible records after every attempt
type ProgressFunc func(sent, total int)

// Dispatcher sends outreach messages one at a time with an enforced minimum
// spacing between attempts. The mail provider rate-limits bursts, so sends
// are never concurrent and order always follows the input sequence.
type Dispatcher struct {
	mailer   Mailer
	history  SendHistory
	renderer MessageRenderer
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

// MessageRenderer produces the outgoing message for one contact
type MessageRenderer interface {
	Render(contact *Contact, sender Sender) (*OutboundMessage, error)
}

// NewDispatcher creates a new dispatcher
func NewDispatcher(
	mailer Mailer,
	history SendHistory,
	renderer MessageRenderer,
	logger *zap.Logger,
	interval time.Duration,
	timeout time.Duration,
) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		history:  history,
		renderer: renderer,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// DispatchBulk sends to every record with an email, in order, recording one
// SendEvent per attempt. Records without an email are skipped and counted as
// neither sent nor failed. A failed attempt is recorded per item and never
// stops the remaining sends. Cancellation via ctx returns the accumulated
// partial result together with ErrCancelled.
func (d *Dispatcher) DispatchBulk(
	ctx context.Context,
	contacts []Contact,
	sender Sender,
	onProgress ProgressFunc,
) (*DispatchResult, error) {
	result := &DispatchResult{
		RunID:  uuid.NewString(),
		Errors: make(map[int]string),
	}

	eligible := 0
	for i := range contacts {
		if contacts[i].Email != "" {
			eligible++
		}
	}

	limiter := rate.NewLimiter(rate.Every(d.interval), 1)

	d.logger.Info("Starting bulk dispatch",
		zap.String("run_id", result.RunID),
		zap.Int("records", len(contacts)),
		zap.Int("eligible", eligible))

	completed := 0
	for i := range contacts {
		contact := &contacts[i]
		if contact.Email == "" {
			continue
		}

		// Cancellation points sit at the two suspend boundaries: before
		// the inter-send wait and before the collaborator call.
		if err := limiter.Wait(ctx); err != nil {
			result.Cancelled = true
			return result, ErrCancelled
		}
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, ErrCancelled
		}

		result.Attempted++
		sendErr := d.attempt(ctx, contact, sender)
		if sendErr != nil {
			result.Failed++
			result.Errors[i] = sendErr.Error()
			d.logger.Warn("Send attempt failed",
				zap.String("run_id", result.RunID),
				zap.String("recipient", contact.Email),
				zap.Error(sendErr))
		} else {
			result.Sent++
		}

		d.record(ctx, contact.Email, sendErr)

		completed++
		notifyProgress(onProgress, completed, eligible, d.logger)
	}

	d.logger.Info("Bulk dispatch complete",
		zap.String("run_id", result.RunID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}

// attempt renders and sends one message under the per-attempt timeout.
// A timeout is a per-item failure, not a fatal abort of the run.
func (d *Dispatcher) attempt(ctx context.Context, contact *Contact, sender Sender) error {
	msg, err := d.renderer.Render(contact, sender)
	if err != nil {
		return err
	}

	sendCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	return d.mailer.Send(sendCtx, msg)
}

// record appends the attempt to the send history. History failures are
// logged but never fail the item: the send itself already happened.
func (d *Dispatcher) record(ctx context.Context, email string, sendErr error) {
	event := &SendEvent{
		RecipientEmail: email,
		SentAt:         time.Now(),
		Succeeded:      sendErr == nil,
	}
	if sendErr != nil {
		event.ErrorReason = sendErr.Error()
	}
	if err := d.history.RecordSend(ctx, event); err != nil {
		d.logger.Error("Failed to record send event",
			zap.String("recipient", email),
			zap.Error(err))
	}
}

// notifyProgress invokes the caller's callback, absorbing panics so a
// misbehaving presentation layer cannot abort the run
func notifyProgress(onProgress ProgressFunc, sent, total int, logger *zap.Logger) {
	if onProgress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && logger != nil {
			logger.Warn("Progress callback panicked", zap.Any("panic", r))
		}
	}()
	onProgress(sent, total)
}
