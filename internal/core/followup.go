package core

import (
	"sort"

	"go.uber.org/zap"
)

// Classifier partitions contacts into those due for a follow-up reminder
// and those not. Classification is a pure read-side computation over the
// contact list and the send history; nothing is mutated.
type Classifier struct {
	logger *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify returns the contacts that were emailed successfully at least once
// but have not advanced since, ordered by last send ascending so the
// longest-waiting lead comes first.
//
// "Has not advanced" is inferred from status rather than an explicit reply
// flag: interested and negotiating read as a reply, closed and
// not_interested as resolved. A status moved out-of-band for unrelated
// reasons is indistinguishable from a reply here.
func (c *Classifier) Classify(contacts []Contact, events []SendEvent) []FollowUpCandidate {
	type sendStats struct {
		count int
		last  SendEvent
	}
	byEmail := make(map[string]*sendStats)
	for _, ev := range events {
		if !ev.Succeeded || ev.RecipientEmail == "" {
			continue
		}
		stats, ok := byEmail[ev.RecipientEmail]
		if !ok {
			stats = &sendStats{}
			byEmail[ev.RecipientEmail] = stats
		}
		stats.count++
		if ev.SentAt.After(stats.last.SentAt) {
			stats.last = ev
		}
	}

	var candidates []FollowUpCandidate
	for _, contact := range contacts {
		if contact.Email == "" {
			continue
		}
		switch contact.Status {
		case StatusClosed, StatusNotInterested, StatusInterested, StatusNegotiating:
			continue
		}
		stats, ok := byEmail[contact.Email]
		if !ok {
			continue
		}
		candidates = append(candidates, FollowUpCandidate{
			Contact:    contact,
			EmailCount: stats.count,
			LastSentAt: stats.last.SentAt,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LastSentAt.Before(candidates[j].LastSentAt)
	})

	if c.logger != nil {
		c.logger.Debug("Classified follow-ups",
			zap.Int("contacts", len(contacts)),
			zap.Int("candidates", len(candidates)))
	}
	return candidates
}
