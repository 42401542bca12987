package core

import (
	"strings"
	"time"
)

// LeadType categorizes how a lead entered the pipeline
type LeadType string

const (
	LeadDivorce     LeadType = "divorce"
	LeadProbate     LeadType = "probate"
	LeadForeclosure LeadType = "foreclosure"
	LeadTaxLien     LeadType = "taxlien"
	LeadOutOfState  LeadType = "outofstate"
	LeadUnset       LeadType = ""
)

// Status tracks where a contact sits in the outreach pipeline
type Status string

const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusInterested    Status = "interested"
	StatusNotInterested Status = "not_interested"
	StatusNegotiating   Status = "negotiating"
	StatusClosed        Status = "closed"
)

// Contact represents a lead, either imported from CSV or entered directly
type Contact struct {
	ID              string
	FirstName       string
	LastName        string
	FullName        string
	Email           string
	Phone           string
	Address         string
	LeadType        LeadType
	Status          Status
	Notes           string
	LastContactedAt *time.Time
	CreatedAt       time.Time
}

// DisplayName returns the full name, deriving it from first/last if unset
func (c *Contact) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Reachable reports whether the contact has at least one way to be contacted.
// A record with neither email nor phone is dropped during normalization.
func (c *Contact) Reachable() bool {
	return c.Email != "" || c.Phone != ""
}

// Sender is the identity attached to every outgoing message. The fields are
// opaque strings passed through to the template unchanged.
type Sender struct {
	Name    string
	Company string
	Phone   string
}

// SendEvent records one attempt to email a contact. Immutable once created.
type SendEvent struct {
	RecipientEmail string
	SentAt         time.Time
	Succeeded      bool
	ErrorReason    string
}

// DispatchResult aggregates the outcome of one bulk dispatch run
type DispatchResult struct {
	RunID     string
	Attempted int
	Sent      int
	Failed    int
	// Errors maps the record's index in the input sequence to the failure
	// reason. Skipped records (no email) appear in neither count.
	Errors    map[int]string
	Cancelled bool
}

// FollowUpCandidate is a contact classified as due for a reminder.
// Derived from send history on each classification pass, never stored.
type FollowUpCandidate struct {
	Contact    Contact
	EmailCount int
	LastSentAt time.Time
}

// Stats summarizes the contact list for dashboard-style consumers
type Stats struct {
	Total      int
	New        int
	Contacted  int
	Interested int
}

// ContactFilter narrows a contact listing. Zero values match everything.
type ContactFilter struct {
	Term     string
	LeadType LeadType
	Status   Status
}

// Matches applies the same semantics the CRM front end used: the term matches
// name, email, or address case-insensitively, type and status match exactly
// when set.
func (f ContactFilter) Matches(c *Contact) bool {
	if f.Term != "" {
		term := strings.ToLower(f.Term)
		if !strings.Contains(strings.ToLower(c.DisplayName()), term) &&
			!strings.Contains(strings.ToLower(c.Email), term) &&
			!strings.Contains(strings.ToLower(c.Address), term) {
			return false
		}
	}
	if f.LeadType != LeadUnset && c.LeadType != f.LeadType {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}
