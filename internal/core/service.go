package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned when the contact store cannot serve a run
// at all, as opposed to a per-item persistence failure
var ErrStoreUnavailable = errors.New("contact store unavailable")

// Normalizer turns raw delimited text into contact records
type Normalizer interface {
	NormalizeReport(rawText string) ([]Contact, int)
}

// RenderFunc adapts a rendering function to the MessageRenderer interface
type RenderFunc func(contact *Contact, sender Sender) (*OutboundMessage, error)

// Render implements MessageRenderer
func (f RenderFunc) Render(contact *Contact, sender Sender) (*OutboundMessage, error) {
	return f(contact, sender)
}

// TemplateSet supplies the message bodies the service dispatches
type TemplateSet interface {
	RenderOutreach(contact *Contact, sender Sender) (*OutboundMessage, error)
	RenderFollowUp(contact *Contact, sender Sender) (*OutboundMessage, error)
}

// OutreachService is the façade composing the normalizer, dispatcher, and
// classifier for import-and-send runs and follow-up passes
type OutreachService struct {
	store      ContactStore
	history    SendHistory
	normalizer Normalizer
	classifier *Classifier
	outreach   *Dispatcher
	followUp   *Dispatcher
	logger     *zap.Logger
}

// NewOutreachService creates a new outreach service
func NewOutreachService(
	store ContactStore,
	mailer Mailer,
	history SendHistory,
	normalizer Normalizer,
	templates TemplateSet,
	logger *zap.Logger,
	interval time.Duration,
	timeout time.Duration,
) *OutreachService {
	return &OutreachService{
		store:      store,
		history:    history,
		normalizer: normalizer,
		classifier: NewClassifier(logger),
		outreach:   NewDispatcher(mailer, history, RenderFunc(templates.RenderOutreach), logger, interval, timeout),
		followUp:   NewDispatcher(mailer, history, RenderFunc(templates.RenderFollowUp), logger, interval, timeout),
		logger:     logger,
	}
}

// ParseImport normalizes raw import text without persisting or sending,
// for previewing before commit
func (s *OutreachService) ParseImport(rawText string) ([]Contact, int) {
	return s.normalizer.NormalizeReport(rawText)
}

// ImportAndSend normalizes the raw text, optionally persists each record,
// and optionally dispatches to the result. Persistence is best-effort: a
// create failure for one record is reported alongside dispatch errors and
// the record is still sent as a transient contact.
func (s *OutreachService) ImportAndSend(
	ctx context.Context,
	rawText string,
	sender Sender,
	persist bool,
	send bool,
	onProgress ProgressFunc,
) (*DispatchResult, error) {
	records, rejected := s.normalizer.NormalizeReport(rawText)
	s.logger.Info("Import parsed",
		zap.Int("records", len(records)),
		zap.Int("rejected", rejected),
		zap.Bool("persist", persist),
		zap.Bool("send", send))

	persistErrors := make(map[int]string)
	if persist {
		for i := range records {
			id, err := s.store.Create(ctx, &records[i])
			if err != nil {
				persistErrors[i] = fmt.Sprintf("persist: %v", err)
				s.logger.Warn("Failed to persist imported contact",
					zap.String("email", records[i].Email),
					zap.Error(err))
				continue
			}
			records[i].ID = id
		}
	}

	if !send {
		result := &DispatchResult{Errors: persistErrors}
		return result, nil
	}

	result, err := s.outreach.DispatchBulk(ctx, records, sender, onProgress)
	for i, reason := range persistErrors {
		if _, taken := result.Errors[i]; !taken {
			result.Errors[i] = reason
		}
	}
	if err != nil {
		return result, err
	}

	s.markContacted(ctx, records, result)
	return result, nil
}

// SendToExisting dispatches the outreach template to stored contacts by id.
// A missing id is a per-item error; a store that cannot list at all is a
// top-level failure.
func (s *OutreachService) SendToExisting(
	ctx context.Context,
	ids []string,
	sender Sender,
	onProgress ProgressFunc,
) (*DispatchResult, error) {
	if _, err := s.store.List(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// Keep the records slice aligned with ids so per-item error keys refer
	// to the caller's indexes. A failed load leaves a placeholder the
	// dispatcher skips.
	records := make([]Contact, len(ids))
	loadErrors := make(map[int]string)
	for i, id := range ids {
		contact, err := s.store.Get(ctx, id)
		if err != nil {
			loadErrors[i] = fmt.Sprintf("load: %v", err)
			continue
		}
		records[i] = *contact
	}

	result, err := s.outreach.DispatchBulk(ctx, records, sender, onProgress)
	for i, reason := range loadErrors {
		if _, taken := result.Errors[i]; !taken {
			result.Errors[i] = reason
		}
	}
	if err != nil {
		return result, err
	}

	s.markContacted(ctx, records, result)
	return result, nil
}

// SendOne dispatches the outreach template to a single stored contact
func (s *OutreachService) SendOne(ctx context.Context, id string, sender Sender) (*DispatchResult, error) {
	return s.SendToExisting(ctx, []string{id}, sender, nil)
}

// FollowUps lists the contacts due for a reminder, longest-waiting first
func (s *OutreachService) FollowUps(ctx context.Context) ([]FollowUpCandidate, error) {
	contacts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	events, err := s.history.ListSends(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list send history: %w", err)
	}
	return s.classifier.Classify(contacts, events), nil
}

// SendFollowUps classifies and then dispatches the follow-up template to
// every candidate
func (s *OutreachService) SendFollowUps(
	ctx context.Context,
	sender Sender,
	onProgress ProgressFunc,
) (*DispatchResult, error) {
	candidates, err := s.FollowUps(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]Contact, len(candidates))
	for i, candidate := range candidates {
		records[i] = candidate.Contact
	}

	result, err := s.followUp.DispatchBulk(ctx, records, sender, onProgress)
	if err != nil {
		return result, err
	}

	s.markContacted(ctx, records, result)
	return result, nil
}

// Contacts returns the stored contacts matching the filter
func (s *OutreachService) Contacts(ctx context.Context, filter ContactFilter) ([]Contact, error) {
	contacts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	filtered := make([]Contact, 0, len(contacts))
	for i := range contacts {
		if filter.Matches(&contacts[i]) {
			filtered = append(filtered, contacts[i])
		}
	}
	return filtered, nil
}

// Stats summarizes the contact list the way the dashboard cards did
func (s *OutreachService) Stats(ctx context.Context) (*Stats, error) {
	contacts, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	stats := &Stats{Total: len(contacts)}
	for _, contact := range contacts {
		switch contact.Status {
		case StatusNew, "":
			stats.New++
		case StatusContacted:
			stats.Contacted++
		case StatusInterested:
			stats.Interested++
		}
	}
	return stats, nil
}

// markContacted pushes status and last-contact updates for successfully
// sent, persisted contacts. Best-effort: the send already happened, so a
// store failure here is only logged.
func (s *OutreachService) markContacted(ctx context.Context, records []Contact, result *DispatchResult) {
	now := time.Now()
	for i := range records {
		contact := &records[i]
		if contact.ID == "" || contact.Email == "" {
			continue
		}
		if _, failed := result.Errors[i]; failed {
			continue
		}
		update := ContactUpdate{LastContactedAt: &now}
		if contact.Status == StatusNew || contact.Status == "" {
			status := StatusContacted
			update.Status = &status
		}
		if err := s.store.Update(ctx, contact.ID, update); err != nil {
			s.logger.Warn("Failed to update contact after send",
				zap.String("id", contact.ID),
				zap.Error(err))
		}
	}
}
