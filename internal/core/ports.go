package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a contact id does not exist
var ErrNotFound = errors.New("contact not found")

// ContactStore defines the interface for the persistent contact store
type ContactStore interface {
	// List returns all stored contacts
	List(ctx context.Context) ([]Contact, error)

	// Get retrieves a contact by id
	Get(ctx context.Context, id string) (*Contact, error)

	// Create stores a new contact and returns its assigned id
	Create(ctx context.Context, contact *Contact) (string, error)

	// Update applies the non-zero fields of the partial update
	Update(ctx context.Context, id string, update ContactUpdate) error

	// Delete removes a contact
	Delete(ctx context.Context, id string) error
}

// ContactUpdate is a partial contact mutation. Nil fields are left unchanged.
type ContactUpdate struct {
	FirstName       *string
	LastName        *string
	FullName        *string
	Email           *string
	Phone           *string
	Address         *string
	Status          *Status
	LeadType        *LeadType
	Notes           *string
	LastContactedAt *time.Time
}

// Mailer defines the interface for the mail-delivery collaborator.
// One invocation per recipient; no batching is assumed.
type Mailer interface {
	// Send delivers a rendered message to a single recipient
	Send(ctx context.Context, msg *OutboundMessage) error
}

// OutboundMessage is one rendered message bound for a single recipient
type OutboundMessage struct {
	To      string
	Subject string
	Body    string
	Sender  Sender
}

// SendHistory defines the interface for the send-history collaborator
type SendHistory interface {
	// RecordSend appends an attempt to the history
	RecordSend(ctx context.Context, event *SendEvent) error

	// ListSends returns recorded events, optionally filtered by recipient
	// email. An empty email returns everything.
	ListSends(ctx context.Context, email string) ([]SendEvent, error)
}
