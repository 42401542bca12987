package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chbs/lead-outreach/internal/adapters/store"
	"github.com/chbs/lead-outreach/internal/core"
	"github.com/chbs/lead-outreach/internal/csv"
	"github.com/chbs/lead-outreach/internal/template"
)

// stubMailer records messages and fails configured recipients
type stubMailer struct {
	mu     sync.Mutex
	sent   []core.OutboundMessage
	failTo map[string]error
}

func (m *stubMailer) Send(ctx context.Context, msg *core.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failTo[msg.To]; ok {
		return err
	}
	m.sent = append(m.sent, *msg)
	return nil
}

// brokenStore simulates a store that cannot serve the run at all
type brokenStore struct {
	*store.MemoryStore
}

func (s *brokenStore) List(ctx context.Context) ([]core.Contact, error) {
	return nil, errors.New("connection refused")
}

// pickyStore rejects creates for one email to exercise best-effort persistence
type pickyStore struct {
	*store.MemoryStore
	rejectEmail string
}

func (s *pickyStore) Create(ctx context.Context, contact *core.Contact) (string, error) {
	if contact.Email == s.rejectEmail {
		return "", errors.New("constraint violation")
	}
	return s.MemoryStore.Create(ctx, contact)
}

type serviceFixture struct {
	svc    *core.OutreachService
	store  *store.MemoryStore
	mailer *stubMailer
}

func newFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := zap.NewNop()
	backend := store.NewMemoryStore(logger)
	mailer := &stubMailer{}
	svc := core.NewOutreachService(
		backend, mailer, backend,
		csv.NewNormalizer(logger),
		template.NewRenderer(logger),
		logger,
		time.Millisecond, time.Second,
	)
	return &serviceFixture{svc: svc, store: backend, mailer: mailer}
}

const importText = "name,email,phone,category\n" +
	"\"Doe, Jane\",jane@x.com,(555) 123-4567,Tax Lien\n" +
	"John Smith,john@x.com,,probate\n" +
	"No Contact,,,divorce\n"

func TestParseImport_Preview(t *testing.T) {
	f := newFixture(t)

	records, rejected := f.svc.ParseImport(importText)

	require.Len(t, records, 2)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, "Doe, Jane", records[0].FullName)
	assert.Equal(t, core.LeadTaxLien, records[0].LeadType)

	// Preview never touches the store
	stored, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestImportAndSend_PersistAndSend(t *testing.T) {
	f := newFixture(t)
	sender := core.Sender{Name: "Chris Bennett", Company: "CHBS Holdings LLC", Phone: "555-123-4567"}

	result, err := f.svc.ImportAndSend(context.Background(), importText, sender, true, true, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempted)
	assert.Equal(t, 2, result.Sent)
	assert.Equal(t, 0, result.Failed)

	stored, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, contact := range stored {
		assert.Equal(t, core.StatusContacted, contact.Status)
		require.NotNil(t, contact.LastContactedAt)
	}

	require.Len(t, f.mailer.sent, 2)
	assert.Contains(t, f.mailer.sent[0].Body, "Chris Bennett")
	assert.Contains(t, f.mailer.sent[0].Body, "CHBS Holdings LLC")
	assert.Contains(t, f.mailer.sent[0].Body, "555-123-4567")
}

func TestImportAndSend_TransientSendSkipsStore(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ImportAndSend(context.Background(), importText, core.Sender{}, false, true, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)

	stored, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestImportAndSend_ImportOnly(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.ImportAndSend(context.Background(), importText, core.Sender{}, true, false, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Attempted)
	assert.Empty(t, f.mailer.sent)

	stored, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportAndSend_PersistFailureIsPerItemAndStillSends(t *testing.T) {
	logger := zap.NewNop()
	backend := &pickyStore{MemoryStore: store.NewMemoryStore(logger), rejectEmail: "jane@x.com"}
	mailer := &stubMailer{}
	svc := core.NewOutreachService(backend, mailer, backend.MemoryStore,
		csv.NewNormalizer(logger), template.NewRenderer(logger), logger,
		time.Millisecond, time.Second)

	result, err := svc.ImportAndSend(context.Background(), importText, core.Sender{}, true, true, nil)

	require.NoError(t, err)
	// Both records were still dispatched, the rejected one as transient
	assert.Equal(t, 2, result.Sent)
	require.Contains(t, result.Errors[0], "persist")

	stored, listErr := backend.MemoryStore.List(context.Background())
	require.NoError(t, listErr)
	assert.Len(t, stored, 1)
}

func TestSendToExisting_MissingIDIsPerItemError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.store.Create(ctx, &core.Contact{FullName: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)

	result, err := f.svc.SendToExisting(ctx, []string{id, "missing-id"}, core.Sender{}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Contains(t, result.Errors[1], "load")
}

func TestSendToExisting_StoreDownIsTopLevelError(t *testing.T) {
	logger := zap.NewNop()
	backend := &brokenStore{MemoryStore: store.NewMemoryStore(logger)}
	svc := core.NewOutreachService(backend, &stubMailer{}, backend.MemoryStore,
		csv.NewNormalizer(logger), template.NewRenderer(logger), logger,
		time.Millisecond, time.Second)

	_, err := svc.SendToExisting(context.Background(), []string{"any"}, core.Sender{}, nil)

	require.ErrorIs(t, err, core.ErrStoreUnavailable)
}

func TestSendOne_UsesOutreachTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.store.Create(ctx, &core.Contact{FirstName: "Jane", Email: "jane@x.com", Address: "123 Main St"})
	require.NoError(t, err)

	result, err := f.svc.SendOne(ctx, id, core.Sender{Name: "Chris", Phone: "555-0100"})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "jane@x.com", f.mailer.sent[0].To)
	assert.Contains(t, f.mailer.sent[0].Body, "Hi Jane")
	assert.Contains(t, f.mailer.sent[0].Body, "123 Main St")
}

func TestFollowUpsFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := core.Sender{Name: "Chris", Company: "CHBS", Phone: "555-0100"}

	// Import and send to two leads, then mark one as interested
	_, err := f.svc.ImportAndSend(ctx, importText, sender, true, true, nil)
	require.NoError(t, err)

	stored, err := f.store.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, contact := range stored {
		if contact.Email == "john@x.com" {
			status := core.StatusInterested
			require.NoError(t, f.store.Update(ctx, contact.ID, core.ContactUpdate{Status: &status}))
		}
	}

	candidates, err := f.svc.FollowUps(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "jane@x.com", candidates[0].Contact.Email)
	assert.Equal(t, 1, candidates[0].EmailCount)

	f.mailer.sent = nil
	result, err := f.svc.SendFollowUps(ctx, sender, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "Following up on your property", f.mailer.sent[0].Subject)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contacts := []core.Contact{
		{FullName: "a", Email: "a@x.com", Status: core.StatusNew},
		{FullName: "b", Email: "b@x.com", Status: core.StatusContacted},
		{FullName: "c", Email: "c@x.com", Status: core.StatusInterested},
		{FullName: "d", Email: "d@x.com", Status: core.StatusClosed},
	}
	for i := range contacts {
		_, err := f.store.Create(ctx, &contacts[i])
		require.NoError(t, err)
	}

	stats, err := f.svc.Stats(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.New)
	assert.Equal(t, 1, stats.Contacted)
	assert.Equal(t, 1, stats.Interested)
}

func TestContacts_Filtered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := []core.Contact{
		{FullName: "Jane Doe", Email: "jane@x.com", Address: "12 Oak Ave", LeadType: core.LeadProbate, Status: core.StatusNew},
		{FullName: "John Smith", Email: "john@x.com", Address: "99 Elm St", LeadType: core.LeadDivorce, Status: core.StatusContacted},
	}
	for i := range seed {
		_, err := f.store.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	byTerm, err := f.svc.Contacts(ctx, core.ContactFilter{Term: "oak"})
	require.NoError(t, err)
	require.Len(t, byTerm, 1)
	assert.Equal(t, "Jane Doe", byTerm[0].FullName)

	byType, err := f.svc.Contacts(ctx, core.ContactFilter{LeadType: core.LeadDivorce})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "John Smith", byType[0].FullName)

	byStatus, err := f.svc.Contacts(ctx, core.ContactFilter{Status: core.StatusContacted})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
}
