// Package stats derives the per-role dashboard counters from the current
// complaint state. Nothing is cached; every call reads committed rows.
package stats

import (
	"context"

	"wastetrack/backend/internal/models"
	"wastetrack/backend/internal/storage"
)

type view func(ctx context.Context, store storage.ComplaintStore, actor *models.User) (*models.DashboardStats, error)

var views = map[models.Role]view{
	models.RoleAgent:   agentView,
	models.RoleWorker:  workerView,
	models.RoleCitizen: citizenView,
}

// Aggregator computes dashboard stats.
type Aggregator struct {
	Store storage.ComplaintStore
}

func NewAggregator(s storage.ComplaintStore) *Aggregator {
	return &Aggregator{Store: s}
}

// For returns the stats of actor's role. Roles without a view get an empty
// result.
func (a *Aggregator) For(ctx context.Context, actor *models.User) (*models.DashboardStats, error) {
	v, ok := views[actor.Role]
	if !ok {
		return &models.DashboardStats{}, nil
	}
	return v(ctx, a.Store, actor)
}

func agentView(ctx context.Context, store storage.ComplaintStore, _ *models.User) (*models.DashboardStats, error) {
	byStatus, err := store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	byPriority, err := store.CountByPriority(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make(map[models.Status]int64, len(models.Statuses))
	var total int64
	for _, s := range models.Statuses {
		statuses[s] = byStatus[s]
		total += byStatus[s]
	}
	priorities := make(map[models.Priority]int64, len(models.Priorities))
	for _, p := range models.Priorities {
		priorities[p] = byPriority[p]
	}

	return &models.DashboardStats{
		TotalComplaints:      count(total),
		PendingComplaints:    count(statuses[models.StatusPending]),
		AssignedComplaints:   count(statuses[models.StatusAssigned]),
		InProgressComplaints: count(statuses[models.StatusInProgress]),
		CompletedComplaints:  count(statuses[models.StatusCompleted]),
		VerifiedComplaints:   count(statuses[models.StatusVerified]),
		StatusBreakdown:      statuses,
		PriorityBreakdown:    priorities,
	}, nil
}

func workerView(ctx context.Context, store storage.ComplaintStore, actor *models.User) (*models.DashboardStats, error) {
	mine := storage.ComplaintFilter{WorkerID: actor.ID}
	assigned, err := store.CountComplaints(ctx, mine)
	if err != nil {
		return nil, err
	}
	pending, err := countWith(ctx, store, mine, models.StatusAssigned, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	completed, err := countWith(ctx, store, mine, models.StatusCompleted, models.StatusVerified)
	if err != nil {
		return nil, err
	}
	return &models.DashboardStats{
		AssignedTasks:  count(assigned),
		PendingTasks:   count(pending),
		CompletedTasks: count(completed),
	}, nil
}

func citizenView(ctx context.Context, store storage.ComplaintStore, actor *models.User) (*models.DashboardStats, error) {
	mine := storage.ComplaintFilter{CitizenID: actor.ID}
	total, err := store.CountComplaints(ctx, mine)
	if err != nil {
		return nil, err
	}
	resolved, err := countWith(ctx, store, mine, models.StatusVerified)
	if err != nil {
		return nil, err
	}
	pending, err := countWith(ctx, store, mine, models.StatusPending, models.StatusAssigned, models.StatusInProgress)
	if err != nil {
		return nil, err
	}
	return &models.DashboardStats{
		MyComplaints:       count(total),
		ResolvedComplaints: count(resolved),
		PendingComplaints:  count(pending),
	}, nil
}

func countWith(ctx context.Context, store storage.ComplaintStore, f storage.ComplaintFilter, statuses ...models.Status) (int64, error) {
	f.Statuses = statuses
	return store.CountComplaints(ctx, f)
}

func count(n int64) *int64 {
	return &n
}
