// Package complaint implements the complaint lifecycle: role and ownership
// gated transitions, each committed together with exactly one audit entry.
package complaint

import (
	"context"
	"fmt"
	"time"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/audit"
	"wastetrack/backend/internal/config"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/filestore"
	"wastetrack/backend/internal/lock"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Service is the lifecycle engine.
type Service struct {
	Storage   storage.Storage
	Directory *directory.Service
	Audit     *audit.Log
	Files     filestore.Store
	Locker    lock.Locker
	Now       func() time.Time
}

// NewService wires the engine with an in-process locker and the wall clock.
func NewService(s storage.Storage, files filestore.Store) *Service {
	return &Service{
		Storage:   s,
		Directory: directory.NewService(s),
		Audit:     audit.NewLog(s),
		Files:     files,
		Locker:    lock.NewLocalLocker(),
		Now:       time.Now,
	}
}

// Result is the outcome of a transition: the committed complaint and the
// single audit entry written with it.
type Result struct {
	Complaint *models.Complaint
	Entry     *models.ActivityLog
}

// mutation edits c, a private copy of the stored complaint, and returns the
// audit entry describing the change. Returning an error aborts the
// transition with nothing written.
type mutation func(ctx context.Context, tx storage.Storage, c *models.Complaint, p *photos) (audit.Entry, error)

// Create files a new PENDING complaint owned by the citizen actorID.
func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (res *Result, err error) {
	defer func() { s.observe("create", actorID, res, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.actorWithRole(ctx, actorID, models.RoleCitizen)
	if err != nil {
		return nil, err
	}

	p := &photos{store: s.Files}
	imagePath, err := p.save(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	now := s.timestamp(time.Time{})
	c := &models.Complaint{
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Status:      models.StatusPending,
		Priority:    in.Priority,
		CitizenID:   actor.ID,
		ImagePath:   imagePath,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		if err := tx.CreateComplaint(ctx, c); err != nil {
			return err
		}
		entry, err := s.Audit.Record(ctx, tx, audit.Entry{
			Action:      models.ActionCreated,
			Details:     config.ActionDetails[models.ActionCreated],
			ComplaintID: c.ID,
			ActorID:     actor.ID,
		}, now)
		if err != nil {
			return err
		}
		stored, err := tx.GetComplaintByID(ctx, c.ID)
		if err != nil {
			return err
		}
		res = &Result{Complaint: stored, Entry: entry}
		return nil
	})
	if err != nil {
		p.discard(ctx)
		return nil, err
	}
	return res, nil
}

// Assign hands a PENDING complaint to an active worker.
func (s *Service) Assign(ctx context.Context, actorID, complaintID string, in AssignInput) (res *Result, err error) {
	defer func() { s.observe("assign", actorID, res, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.actorWithRole(ctx, actorID, models.RoleAgent)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, complaintID, func(ctx context.Context, tx storage.Storage, c *models.Complaint, _ *photos) (audit.Entry, error) {
		if err := requireStatus(c, models.StatusPending); err != nil {
			return audit.Entry{}, err
		}
		// the target worker is checked once the complaint itself is known
		worker, err := tx.GetUserByID(ctx, in.WorkerID)
		if err != nil {
			return audit.Entry{}, err
		}
		if worker.Role != models.RoleWorker {
			return audit.Entry{}, apperr.InvalidArgument("user %s is not a worker", worker.ID)
		}
		if !directory.IsActive(worker) {
			return audit.Entry{}, apperr.InvalidArgument("worker %s is deactivated", worker.ID)
		}
		c.Status = models.StatusAssigned
		c.AssignedWorkerID = &worker.ID
		c.AssignedAt = timePtr(c.UpdatedAt)
		return audit.Entry{
			Action:  models.ActionAssigned,
			Details: fmt.Sprintf(config.ActionDetails[models.ActionAssigned], worker.Name),
		}, nil
	})
}

// Start moves an ASSIGNED complaint to IN_PROGRESS. Only the assigned worker
// may start it.
func (s *Service) Start(ctx context.Context, actorID, complaintID string) (res *Result, err error) {
	defer func() { s.observe("start", actorID, res, err) }()

	actor, err := s.actorWithRole(ctx, actorID, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, complaintID, func(ctx context.Context, tx storage.Storage, c *models.Complaint, _ *photos) (audit.Entry, error) {
		if !c.IsAssignedTo(actor.ID) {
			return audit.Entry{}, apperr.Unauthorized("you are not assigned to this complaint")
		}
		if err := requireStatus(c, models.StatusAssigned); err != nil {
			return audit.Entry{}, err
		}
		c.Status = models.StatusInProgress
		return audit.Entry{
			Action:  models.ActionStarted,
			Details: config.ActionDetails[models.ActionStarted],
		}, nil
	})
}

// Complete finishes the work on an IN_PROGRESS complaint, storing the
// optional before/after photos.
func (s *Service) Complete(ctx context.Context, actorID, complaintID string, in CompleteInput) (res *Result, err error) {
	defer func() { s.observe("complete", actorID, res, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.actorWithRole(ctx, actorID, models.RoleWorker)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, complaintID, func(ctx context.Context, tx storage.Storage, c *models.Complaint, p *photos) (audit.Entry, error) {
		if !c.IsAssignedTo(actor.ID) {
			return audit.Entry{}, apperr.Unauthorized("you are not assigned to this complaint")
		}
		if err := requireStatus(c, models.StatusInProgress); err != nil {
			return audit.Entry{}, err
		}
		if in.BeforeImage != nil && c.BeforeImagePath != nil {
			return audit.Entry{}, apperr.InvalidArgument("before image is already attached")
		}
		if in.AfterImage != nil && c.AfterImagePath != nil {
			return audit.Entry{}, apperr.InvalidArgument("after image is already attached")
		}

		before, err := p.save(ctx, in.BeforeImage)
		if err != nil {
			return audit.Entry{}, err
		}
		after, err := p.save(ctx, in.AfterImage)
		if err != nil {
			return audit.Entry{}, err
		}
		if before != nil {
			c.BeforeImagePath = before
		}
		if after != nil {
			c.AfterImagePath = after
		}
		c.Status = models.StatusCompleted
		c.CompletedAt = timePtr(c.UpdatedAt)
		return audit.Entry{
			Action:  models.ActionCompleted,
			Details: config.ActionDetails[models.ActionCompleted],
		}, nil
	})
}

// Verify approves a COMPLETED complaint or sends it back to the same worker.
func (s *Service) Verify(ctx context.Context, actorID, complaintID string, in VerifyInput) (res *Result, err error) {
	defer func() { s.observe("verify", actorID, res, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.actorWithRole(ctx, actorID, models.RoleAgent)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, complaintID, func(ctx context.Context, tx storage.Storage, c *models.Complaint, _ *photos) (audit.Entry, error) {
		if c.Status == models.StatusVerified {
			return audit.Entry{}, apperr.Conflict("complaint %s is already verified", c.ID)
		}
		if err := requireStatus(c, models.StatusCompleted); err != nil {
			return audit.Entry{}, err
		}

		entry := audit.Entry{Action: models.ActionRejected}
		if in.Approved {
			entry.Action = models.ActionVerified
			c.Status = models.StatusVerified
			c.VerifiedAt = timePtr(c.UpdatedAt)
		} else {
			// The worker, assignedAt and photos stay: the same worker redoes the job.
			c.Status = models.StatusAssigned
		}
		entry.Details = config.ActionDetails[entry.Action]
		if in.Feedback != nil && *in.Feedback != "" {
			entry.Details = *in.Feedback
		}
		return entry, nil
	})
}

// SubmitFeedback attaches the owner's rating to a verified or previously
// rejected complaint. The status does not change.
func (s *Service) SubmitFeedback(ctx context.Context, actorID, complaintID string, in FeedbackInput) (res *Result, err error) {
	defer func() { s.observe("feedback", actorID, res, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.actorWithRole(ctx, actorID, models.RoleCitizen)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, complaintID, func(ctx context.Context, tx storage.Storage, c *models.Complaint, _ *photos) (audit.Entry, error) {
		if !c.IsOwnedBy(actor.ID) {
			return audit.Entry{}, apperr.Unauthorized("you can only give feedback on your own complaints")
		}
		if c.Status != models.StatusVerified {
			rejected, err := tx.HasActivity(ctx, c.ID, models.ActionRejected)
			if err != nil {
				return audit.Entry{}, err
			}
			if !rejected {
				return audit.Entry{}, apperr.Conflict("feedback is accepted once the complaint is verified or rejected")
			}
		}
		feedback := in.Feedback
		rating := in.Rating
		c.Feedback = &feedback
		c.Rating = &rating
		return audit.Entry{
			Action:  models.ActionFeedback,
			Details: fmt.Sprintf(config.ActionDetails[models.ActionFeedback], rating),
		}, nil
	})
}

// apply runs m under the complaint lock inside one transaction. The
// complaint update and its audit entry commit together or not at all, and
// photos stored by m are removed again when the commit fails.
func (s *Service) apply(ctx context.Context, actor *models.User, complaintID string, m mutation) (*Result, error) {
	release, err := s.Locker.Lock(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	defer release()

	p := &photos{store: s.Files}
	var res *Result
	err = s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		current, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return err
		}

		next := current.Clone()
		next.UpdatedAt = s.timestamp(current.UpdatedAt)
		e, err := m(ctx, tx, next, p)
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(next.Status) && next.Status != current.Status {
			return apperr.Internal("illegal transition", fmt.Errorf("%s -> %s", current.Status, next.Status))
		}
		if err := tx.UpdateComplaint(ctx, next); err != nil {
			return err
		}

		e.ComplaintID = next.ID
		e.ActorID = actor.ID
		entry, err := s.Audit.Record(ctx, tx, e, next.UpdatedAt)
		if err != nil {
			return err
		}
		stored, err := tx.GetComplaintByID(ctx, next.ID)
		if err != nil {
			return err
		}
		res = &Result{Complaint: stored, Entry: entry}
		return nil
	})
	if err != nil {
		p.discard(ctx)
		return nil, err
	}
	return res, nil
}

func (s *Service) actorWithRole(ctx context.Context, actorID string, role models.Role) (*models.User, error) {
	actor, err := s.Directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := directory.RequireRole(actor, role); err != nil {
		return nil, err
	}
	return actor, nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func requireStatus(c *models.Complaint, want models.Status) error {
	if c.Status != want {
		return apperr.Conflict("complaint %s is %s, expected %s", c.ID, c.Status, want)
	}
	return nil
}

// timestamp returns the clock truncated to microseconds, kept strictly after
// prev so entries of one complaint are ordered.
func (s *Service) timestamp(prev time.Time) time.Time {
	now := s.Now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func (s *Service) observe(op, actorID string, res *Result, err error) {
	if err != nil {
		log.Debug().
			Str("op", op).
			Str("actor_id", actorID).
			Str("kind", string(apperr.KindOf(err))).
			Err(err).
			Msg("transition rejected")
		return
	}
	log.Info().
		Str("op", op).
		Str("actor_id", actorID).
		Str("complaint_id", res.Complaint.ID).
		Str("action", res.Entry.Action).
		Str("status", string(res.Complaint.Status)).
		Msg("transition committed")
}

// photos tracks the files a transition stored so they can be removed when
// the transition does not commit.
type photos struct {
	store filestore.Store
	paths []string
}

func (p *photos) save(ctx context.Context, up *filestore.Upload) (*string, error) {
	if up == nil {
		return nil, nil
	}
	if err := up.Check(); err != nil {
		return nil, apperr.InvalidArgument("photo must be a jpeg, png, gif or webp image")
	}
	if p.store == nil {
		return nil, apperr.Internal("store photo", fmt.Errorf("no file store configured"))
	}
	path, err := p.store.Save(ctx, up)
	if err != nil {
		return nil, apperr.Internal("store photo", err)
	}
	p.paths = append(p.paths, path)
	return &path, nil
}

func (p *photos) discard(ctx context.Context) {
	for _, path := range p.paths {
		if err := p.store.Delete(ctx, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove orphaned photo")
		}
	}
	p.paths = nil
}
