// Package audit records and reads the append-only activity log of
// complaints.
package audit

import (
	"context"
	"time"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"
)

var vocabulary = map[string]bool{
	models.ActionCreated:   true,
	models.ActionAssigned:  true,
	models.ActionStarted:   true,
	models.ActionCompleted: true,
	models.ActionVerified:  true,
	models.ActionRejected:  true,
	models.ActionFeedback:  true,
}

// IsKnownAction reports whether action belongs to the audit vocabulary.
func IsKnownAction(action string) bool {
	return vocabulary[action]
}

// Log reads activity entries. Writes go through Record so that they share
// the caller's transaction.
type Log struct {
	Store storage.ActivityStore
}

func NewLog(s storage.ActivityStore) *Log {
	return &Log{Store: s}
}

// Entry describes one action to record.
type Entry struct {
	Action      string
	Details     string
	ComplaintID string
	ActorID     string
}

// Record appends e through tx (the Log's own store when tx is nil) and
// returns the stored row. Entries are never updated afterwards.
func (l *Log) Record(ctx context.Context, tx storage.ActivityStore, e Entry, at time.Time) (*models.ActivityLog, error) {
	if !IsKnownAction(e.Action) {
		return nil, apperr.InvalidArgument("unknown audit action %q", e.Action)
	}
	if tx == nil {
		tx = l.Store
	}
	row := &models.ActivityLog{
		Action:      e.Action,
		Details:     e.Details,
		ComplaintID: e.ComplaintID,
		UserID:      e.ActorID,
		CreatedAt:   at,
	}
	if err := tx.AppendActivity(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ForComplaint returns the complaint's history newest first.
func (l *Log) ForComplaint(ctx context.Context, complaintID string) ([]models.ActivityLog, error) {
	return l.Store.ListActivityByComplaint(ctx, complaintID)
}

// ForActor returns every entry written by userID, newest first.
func (l *Log) ForActor(ctx context.Context, userID string) ([]models.ActivityLog, error) {
	return l.Store.ListActivityByUser(ctx, userID)
}

// Replay reconstructs the status walk of a complaint from its history
// (newest first, as returned by ForComplaint) and checks that every step
// follows a lifecycle edge. FEEDBACK entries leave the status unchanged.
func Replay(history []models.ActivityLog) ([]models.Status, error) {
	var walk []models.Status
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		if e.Action == models.ActionFeedback {
			continue
		}
		next, ok := models.ActionResult[e.Action]
		if !ok {
			return walk, apperr.InvalidArgument("unknown audit action %q", e.Action)
		}
		if len(walk) == 0 {
			if e.Action != models.ActionCreated {
				return walk, apperr.Conflict("history of complaint %s does not start with CREATED", e.ComplaintID)
			}
			walk = append(walk, next)
			continue
		}
		if e.Action == models.ActionCreated {
			return walk, apperr.Conflict("complaint %s created twice", e.ComplaintID)
		}
		prev := walk[len(walk)-1]
		if !prev.CanTransitionTo(next) {
			return walk, apperr.Conflict("illegal step %s -> %s in history of complaint %s", prev, next, e.ComplaintID)
		}
		walk = append(walk, next)
	}
	return walk, nil
}
