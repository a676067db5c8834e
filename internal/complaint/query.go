package complaint

import (
	"context"

	"wastetrack/backend/internal/apperr"
	"wastetrack/backend/internal/directory"
	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"

	"github.com/rs/zerolog/log"
)

// Page is one page of a complaint listing.
type Page struct {
	Items []models.Complaint `json:"items"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Size  int                `json:"size"`
}

// listScopes restricts a listing to what each role works with.
var listScopes = map[models.Role]func(actor *models.User) storage.ComplaintFilter{
	models.RoleCitizen: func(actor *models.User) storage.ComplaintFilter {
		return storage.ComplaintFilter{CitizenID: actor.ID}
	},
	models.RoleWorker: func(actor *models.User) storage.ComplaintFilter {
		return storage.ComplaintFilter{WorkerID: actor.ID}
	},
	models.RoleAgent: func(*models.User) storage.ComplaintFilter {
		return storage.ComplaintFilter{}
	},
}

// logAccess decides whether a role may read a complaint's history.
var logAccess = map[models.Role]func(actor *models.User, c *models.Complaint) bool{
	models.RoleCitizen: func(actor *models.User, c *models.Complaint) bool { return c.IsOwnedBy(actor.ID) },
	models.RoleWorker:  func(actor *models.User, c *models.Complaint) bool { return c.IsAssignedTo(actor.ID) },
	models.RoleAgent:   func(*models.User, *models.Complaint) bool { return true },
}

// Get returns the complaint with citizen and worker loaded.
func (s *Service) Get(ctx context.Context, complaintID string) (*models.Complaint, error) {
	return s.Storage.GetComplaintByID(ctx, complaintID)
}

// ListForActor lists the complaints visible to actorID, newest first.
func (s *Service) ListForActor(ctx context.Context, actorID string, in ListInput) (*Page, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	actor, err := s.Directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	scope, ok := listScopes[actor.Role]
	if !ok {
		return &Page{Items: []models.Complaint{}, Page: in.Page, Size: in.Size}, nil
	}

	filter := scope(actor)
	if in.Status != "" {
		filter.Statuses = []models.Status{in.Status}
	}
	total, err := s.Storage.CountComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	filter.Offset = in.Page * in.Size
	filter.Limit = in.Size
	items, err := s.Storage.ListComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: in.Page, Size: in.Size}, nil
}

// Logs returns the history of a complaint, newest first. Agents read any
// history; citizens and workers only that of their own complaints.
func (s *Service) Logs(ctx context.Context, actorID, complaintID string) ([]models.ActivityLog, error) {
	actor, err := s.Directory.Resolve(ctx, actorID)
	if err != nil {
		return nil, err
	}
	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	allowed, ok := logAccess[actor.Role]
	if !ok || !allowed(actor, c) {
		return nil, apperr.Unauthorized("you cannot read the history of this complaint")
	}
	return s.Audit.ForComplaint(ctx, complaintID)
}

// ActorLogs returns every entry actorID wrote, newest first.
func (s *Service) ActorLogs(ctx context.Context, actorID string) ([]models.ActivityLog, error) {
	if _, err := s.Directory.Resolve(ctx, actorID); err != nil {
		return nil, err
	}
	return s.Audit.ForActor(ctx, actorID)
}

// Delete removes a complaint with its history and photos. Agents only.
func (s *Service) Delete(ctx context.Context, actorID, complaintID string) error {
	actor, err := s.Directory.Resolve(ctx, actorID)
	if err != nil {
		return err
	}
	if err := directory.RequireRole(actor, models.RoleAgent); err != nil {
		return err
	}

	release, err := s.Locker.Lock(ctx, complaintID)
	if err != nil {
		return err
	}
	defer release()

	c, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return err
	}
	if err := s.Storage.DeleteComplaint(ctx, complaintID); err != nil {
		return err
	}

	p := &photos{store: s.Files}
	for _, path := range []*string{c.ImagePath, c.BeforeImagePath, c.AfterImagePath} {
		if path != nil {
			p.paths = append(p.paths, *path)
		}
	}
	if p.store != nil {
		p.discard(ctx)
	}

	log.Info().Str("complaint_id", complaintID).Str("actor_id", actor.ID).Msg("complaint deleted")
	return nil
}
