package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chbs/lead-outreach/internal/core"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Contact{FullName: "Jane Doe", Email: "jane@x.com"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	contact, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", contact.FullName)
	assert.Equal(t, core.StatusNew, contact.Status)
	assert.False(t, contact.CreatedAt.IsZero())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())

	_, err := s.Get(context.Background(), "nope")

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_UpdatePartial(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Contact{FullName: "Jane", Email: "jane@x.com", Notes: "original"})
	require.NoError(t, err)

	status := core.StatusInterested
	now := time.Now()
	err = s.Update(ctx, id, core.ContactUpdate{Status: &status, LastContactedAt: &now})
	require.NoError(t, err)

	contact, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusInterested, contact.Status)
	assert.Equal(t, "original", contact.Notes) // untouched
	require.NotNil(t, contact.LastContactedAt)
}

func TestMemoryStore_UpdateContactDetails(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Contact{
		FirstName: "Jane", LastName: "Doe", FullName: "Jane Doe",
		Email: "old@x.com", Phone: "555-0100", Address: "12 Oak Ave",
	})
	require.NoError(t, err)

	email := "new@x.com"
	phone := "555-0199"
	address := "99 Elm St"
	err = s.Update(ctx, id, core.ContactUpdate{Email: &email, Phone: &phone, Address: &address})
	require.NoError(t, err)

	contact, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", contact.Email)
	assert.Equal(t, "555-0199", contact.Phone)
	assert.Equal(t, "99 Elm St", contact.Address)
	assert.Equal(t, "Jane Doe", contact.FullName) // untouched
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	status := core.StatusClosed

	err := s.Update(context.Background(), "nope", core.ContactUpdate{Status: &status})

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Contact{FullName: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, id), core.ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Contact{FullName: "Jane", Email: "jane@x.com"})
	require.NoError(t, err)

	contact, err := s.Get(ctx, id)
	require.NoError(t, err)
	contact.FullName = "mutated"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Jane", again.FullName)
}

func TestMemoryStore_SendHistoryFilter(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	events := []core.SendEvent{
		{RecipientEmail: "a@x.com", SentAt: time.Now(), Succeeded: true},
		{RecipientEmail: "b@x.com", SentAt: time.Now(), Succeeded: false, ErrorReason: "bounce"},
		{RecipientEmail: "a@x.com", SentAt: time.Now(), Succeeded: true},
	}
	for i := range events {
		require.NoError(t, s.RecordSend(ctx, &events[i]))
	}

	all, err := s.ListSends(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	forA, err := s.ListSends(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Len(t, forA, 2)
}
