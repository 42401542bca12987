package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chbs/lead-outreach/internal/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the ContactStore and
// SendHistory interfaces, for tests and transient CSV-only runs
type MemoryStore struct {
	contacts map[string]*core.Contact
	events   []core.SendEvent
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		contacts: make(map[string]*core.Contact),
		logger:   logger,
	}
}

// List returns all stored contacts, newest first
func (s *MemoryStore) List(ctx context.Context) ([]core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contacts := make([]core.Contact, 0, len(s.contacts))
	for _, contact := range s.contacts {
		contacts = append(contacts, *contact)
	}
	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].CreatedAt.After(contacts[j].CreatedAt)
	})
	return contacts, nil
}

// Get retrieves a contact by id
func (s *MemoryStore) Get(ctx context.Context, id string) (*core.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contact, ok := s.contacts[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	copied := *contact
	return &copied, nil
}

// Create stores a new contact and returns its assigned id
func (s *MemoryStore) Create(ctx context.Context, contact *core.Contact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *contact
	stored.ID = uuid.NewString()
	if stored.Status == "" {
		stored.Status = core.StatusNew
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.contacts[stored.ID] = &stored
	return stored.ID, nil
}

// Update applies the non-nil fields of the partial update
func (s *MemoryStore) Update(ctx context.Context, id string, update core.ContactUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, ok := s.contacts[id]
	if !ok {
		return core.ErrNotFound
	}
	if update.FirstName != nil {
		contact.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		contact.LastName = *update.LastName
	}
	if update.FullName != nil {
		contact.FullName = *update.FullName
	}
	if update.Email != nil {
		contact.Email = *update.Email
	}
	if update.Phone != nil {
		contact.Phone = *update.Phone
	}
	if update.Address != nil {
		contact.Address = *update.Address
	}
	if update.Status != nil {
		contact.Status = *update.Status
	}
	if update.LeadType != nil {
		contact.LeadType = *update.LeadType
	}
	if update.Notes != nil {
		contact.Notes = *update.Notes
	}
	if update.LastContactedAt != nil {
		t := *update.LastContactedAt
		contact.LastContactedAt = &t
	}
	return nil
}

// Delete removes a contact
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contacts[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

// RecordSend appends an attempt to the history
func (s *MemoryStore) RecordSend(ctx context.Context, event *core.SendEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, *event)
	return nil
}

// ListSends returns recorded events, optionally filtered by recipient email
func (s *MemoryStore) ListSends(ctx context.Context, email string) ([]core.SendEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]core.SendEvent, 0, len(s.events))
	for _, event := range s.events {
		if email != "" && event.RecipientEmail != email {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
